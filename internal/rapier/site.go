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
	"go/types"
)

// An InjectionSite is one place in user code that requests a
// configuration value: a provision method on a component interface or
// a qualified field on an included module struct. Sites are created
// fresh for every Generate pass and never mutated.
type InjectionSite struct {
	// Type is the requested type after unwrapping any provider
	// (func() T) and nullable (*T) wrappers. It may still be a slice
	// for list-shaped sites.
	Type types.Type

	// Qualifier is the directive that names the external configuration
	// item this site binds to.
	Qualifier directive

	// Nullable reports whether the site accepts an absent value: the
	// declared type carried a *T wrapper.
	Nullable bool

	// Lazy reports whether the declared type carried a func() T
	// wrapper. The wrapper shape does not affect binding resolution.
	Lazy bool

	// Pos locates the site for diagnostics.
	Pos token.Pos
}

// unwrapSiteType peels the legal wrapper shapes off a declared type:
// func() T, then *T. The remaining type (possibly a slice) is the
// requested type. Illegal shapes such as **T, *func() T, or func
// types with parameters are errors.
func unwrapSiteType(t types.Type) (typ types.Type, nullable, lazy bool, err error) {
	if sig, ok := t.Underlying().(*types.Signature); ok {
		if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
			return nil, false, false, fmt.Errorf("unsupported provider shape %s; want func() T", types.TypeString(t, nil))
		}
		lazy = true
		t = sig.Results().At(0).Type()
	}
	if ptr, ok := t.(*types.Pointer); ok {
		nullable = true
		t = ptr.Elem()
	}
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Signature:
		return nil, false, false, fmt.Errorf("unsupported wrapper shape %s", types.TypeString(t, nil))
	}
	if s, ok := t.Underlying().(*types.Slice); ok {
		switch s.Elem().Underlying().(type) {
		case *types.Pointer, *types.Signature, *types.Slice:
			return nil, false, false, fmt.Errorf("unsupported list element type %s", types.TypeString(s.Elem(), nil))
		}
	}
	return t, nullable, lazy, nil
}

// isListType reports whether a requested type is list-shaped.
func isListType(t types.Type) bool {
	_, ok := t.Underlying().(*types.Slice)
	return ok
}
