// Copyright 2024 The Rapier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rapier contains the runtime error types shared by modules
// generated with the rapier tool.
//
// Rapier is a compile-time configuration injection tool. It scans Go
// packages for component interfaces annotated with rapier comment
// directives, resolves each qualified provision method to an external
// configuration item (environment variable, command-line parameter, or
// AWS SSM parameter), and writes a rapier_gen.go file containing one
// module type per component and configuration kind. The generated
// module's provider methods are plain Go functions and methods, so a
// downstream dependency injection framework can consume them like any
// other provider.
//
// A component is declared like this:
//
//	//rapier:component
//	type AppConfig interface {
//		// rapier:env TIMEOUT default=30000
//		Timeout() int64
//	}
//
// See the cmd/rapier command for how generation is invoked.
package rapier

import "fmt"

// An UnsetError reports that a required configuration item had no
// value at module construction time.
type UnsetError struct {
	// Kind is the configuration kind, e.g. "environment variable" or
	// "AWS SSM parameter".
	Kind string
	// Key is the user-facing identity of the item, e.g. the variable
	// name or the parameter path.
	Key string
}

func (e *UnsetError) Error() string {
	return fmt.Sprintf("%s %s is not set", e.Kind, e.Key)
}

// A ConversionError reports that a stored raw value could not be
// converted to the representation a provider method was asked for.
type ConversionError struct {
	Kind   string
	Key    string
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("%s %s: cannot convert value to %s: %v", e.Kind, e.Key, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
