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
	generator "github.com/aleph0io/rapier-go/internal/rapier"
)

// Generate analyzes the component declarations in the packages that
// match the given patterns and returns a GenerateResult for each
// package. See github.com/aleph0io/rapier-go/internal/rapier.Generate
var Generate = generator.Generate

// Config configures a Generate run.
// See github.com/aleph0io/rapier-go/internal/rapier.Config
type Config = generator.Config

// GenerateResult stores the result of generating one package.
// See github.com/aleph0io/rapier-go/internal/rapier.GenerateResult
type GenerateResult = generator.GenerateResult
