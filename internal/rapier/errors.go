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

package rapier

import (
	"fmt"
	"go/token"
)

// errorCollector accumulates errors so one analysis pass can surface
// many independent mistakes instead of stopping at the first.
type errorCollector struct {
	errors []error
}

func (ec *errorCollector) add(errs ...error) {
	for _, e := range errs {
		if e != nil {
			ec.errors = append(ec.errors, e)
		}
	}
}

// mapErrors returns a new slice with f applied to each error.
func mapErrors(errs []error, f func(error) error) []error {
	if len(errs) == 0 {
		return nil
	}
	newErrs := make([]error, len(errs))
	for i := range errs {
		newErrs[i] = f(errs[i])
	}
	return newErrs
}

// A rapierErr is an error with an attached source position.
type rapierErr struct {
	error    error
	position token.Position
}

func (e *rapierErr) Error() string {
	return fmt.Sprintf("%v: %v", e.position, e.error)
}

// notePosition wraps an error with position information, unless the
// error already carries a position.
func notePosition(p token.Position, e error) error {
	switch e.(type) {
	case nil:
		return nil
	case *rapierErr:
		return e
	default:
		return &rapierErr{error: e, position: p}
	}
}

// notePositionAll wraps a list of errors with position information.
func notePositionAll(p token.Position, errs []error) []error {
	return mapErrors(errs, func(e error) error {
		return notePosition(p, e)
	})
}
