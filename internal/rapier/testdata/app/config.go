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

package app

// Endpoint is a named string type convertible by direct conversion.
type Endpoint string

// Port demonstrates factory-based conversion.
type Port struct {
	n int
}

// ParsePort is the conventional factory for Port.
func ParsePort(s string) (Port, error) {
	return Port{n: len(s)}, nil
}

// Config gathers service configuration from the environment and SSM.
//
//rapier:component
//rapier:include DbModule
type Config interface {
	//rapier:env TIMEOUT default=30
	Timeout() int

	//rapier:env ENDPOINT
	Endpoint() Endpoint

	//rapier:env PORT
	Port() Port

	//rapier:env TAGS
	Tags() *[]string

	//rapier:ssm /app/api/key
	APIKey() string
}

// DbModule supplies database settings.
type DbModule struct {
	//rapier:env DB_URL
	URL string

	//rapier:env DB_POOL_SIZE default=10
	PoolSize int
}

// Tool is the command-line surface.
//
//rapier:command mytool version=1.0.0 description="Does things to inputs"
type Tool interface {
	//rapier:option short=a long=alpha help="the alpha value"
	Alpha() *string

	//rapier:flag long=verbose nolong=no-verbose
	Verbose() *bool

	//rapier:positional 0 name=input
	Input() string

	//rapier:positional 1 name=extras
	Extras() *[]string
}