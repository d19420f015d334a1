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

package main

// Config declares the configuration surface the runtime tests drive
// through the generated modules.
//
//rapier:command tool version=1.2.3 description="Exercises generated modules"
type Config interface {
	//rapier:env TIMEOUT
	Timeout() int

	//rapier:option long=alpha
	Alpha() string

	//rapier:positional 0
	Input() string
}
