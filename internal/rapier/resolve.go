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
	"go/types"
	"sort"
	"strconv"
)

// rawSource is the shape of the stored raw value a conversion reads
// from: strings for options, positionals, environment and SSM values;
// booleans for flags.
type rawSource int

const (
	srcString rawSource = iota
	srcBool
)

type convKind int

const (
	// convIdentity: the raw value already has the requested type.
	convIdentity convKind = iota
	// convParse: strconv parse of a basic kind, optionally wrapped in
	// a named type whose underlying type is that basic kind.
	convParse
	// convFactory: call a conventional package-level factory function
	// (Parse<T> or New<T>) taking a single string.
	convFactory
	// convCast: direct Go conversion T(raw), for named types whose
	// underlying type matches the raw source.
	convCast
	// convElem: elementwise conversion of a list source.
	convElem
)

// A conversion describes how a stored raw value becomes one concrete
// representation type. The emitter renders it to source text; by the
// time emission runs the lookup is guaranteed to have succeeded.
type conversion struct {
	kind   convKind
	target types.Type
	fn     *types.Func // convFactory
	fnErr  bool        // factory returns (T, error)
	elem   *conversion // convElem
}

// fallible reports whether the rendered conversion can fail at
// runtime, which decides whether the provider method returns an error.
func (c conversion) fallible() bool {
	switch c.kind {
	case convParse:
		return true
	case convFactory:
		return c.fnErr
	case convElem:
		return c.elem.fallible()
	default:
		return false
	}
}

var errorType = types.Universe.Lookup("error").Type()

// parseableKinds are the basic kinds with a strconv parse.
var parseableKinds = map[types.BasicKind]bool{
	types.Bool:    true,
	types.Int:     true,
	types.Int8:    true,
	types.Int16:   true,
	types.Int32:   true,
	types.Int64:   true,
	types.Uint:    true,
	types.Uint8:   true,
	types.Uint16:  true,
	types.Uint32:  true,
	types.Uint64:  true,
	types.Float32: true,
	types.Float64: true,
}

// findScalarConversion looks up a conversion from a scalar raw value
// to t. The lookup order is fixed: identity, primitive parse, factory
// function (Parse<T> then New<T>), then a direct type conversion for
// named types whose underlying type matches the source. The first
// match wins.
func findScalarConversion(t types.Type, src rawSource) (conversion, bool) {
	want := types.Typ[types.String]
	if src == srcBool {
		want = types.Typ[types.Bool]
	}
	if b, ok := t.(*types.Basic); ok {
		if types.Identical(t, want) {
			return conversion{kind: convIdentity, target: t}, true
		}
		if src == srcString && parseableKinds[b.Kind()] {
			return conversion{kind: convParse, target: t}, true
		}
		return conversion{}, false
	}
	named, ok := t.(*types.Named)
	if !ok {
		return conversion{}, false
	}
	if src == srcString {
		if fn, fnErr, ok := findFactory(named); ok {
			return conversion{kind: convFactory, target: t, fn: fn, fnErr: fnErr}, true
		}
	}
	u, ok := named.Underlying().(*types.Basic)
	if !ok {
		return conversion{}, false
	}
	if types.Identical(u, want) {
		return conversion{kind: convCast, target: t}, true
	}
	if src == srcString && parseableKinds[u.Kind()] {
		return conversion{kind: convParse, target: t}, true
	}
	return conversion{}, false
}

// findListConversion looks up a conversion from the list form of the
// raw value to t, which must be slice-shaped; elements convert with
// the scalar lookup.
func findListConversion(t types.Type, src rawSource) (conversion, bool) {
	slice, ok := t.Underlying().(*types.Slice)
	if !ok {
		return conversion{}, false
	}
	want := types.Typ[types.String]
	if src == srcBool {
		want = types.Typ[types.Bool]
	}
	if _, isNamed := t.(*types.Named); !isNamed && types.Identical(slice.Elem(), want) {
		return conversion{kind: convIdentity, target: t}, true
	}
	elem, ok := findScalarConversion(slice.Elem(), src)
	if !ok {
		return conversion{}, false
	}
	return conversion{kind: convElem, target: t, elem: &elem}, true
}

// findFactory looks for the conventional single-string factory
// function of a named type, trying Parse<T> then New<T> in the type's
// own package. The signature must be func(string) T or
// func(string) (T, error).
func findFactory(named *types.Named) (fn *types.Func, fnErr bool, ok bool) {
	obj := named.Obj()
	if obj.Pkg() == nil {
		return nil, false, false
	}
	scope := obj.Pkg().Scope()
	for _, prefix := range []string{"Parse", "New"} {
		f, ok := scope.Lookup(prefix + obj.Name()).(*types.Func)
		if !ok {
			continue
		}
		sig, ok := f.Type().(*types.Signature)
		if !ok || sig.Params().Len() != 1 || sig.Variadic() {
			continue
		}
		if !types.Identical(sig.Params().At(0).Type(), types.Typ[types.String]) {
			continue
		}
		switch sig.Results().Len() {
		case 1:
			if types.Identical(sig.Results().At(0).Type(), named) {
				return f, false, true
			}
		case 2:
			if types.Identical(sig.Results().At(0).Type(), named) && types.Identical(sig.Results().At(1).Type(), errorType) {
				return f, true, true
			}
		}
	}
	return nil, false, false
}

// A representation is one provider method to emit: a concrete type
// delivered from either the scalar or list form of the raw value.
type representation struct {
	typ  types.Type
	list bool
	conv conversion
}

// resolvedParam is the conflict-free binding for one ParameterKey.
type resolvedParam struct {
	key      ParameterKey
	sites    []qualifiedSite
	metadata ParameterMetadata

	// defaultValue is the per-use default for CLI keys; environment
	// and SSM keys carry their default in the key itself.
	defaultValue string
	hasDefault   bool

	reps []representation
}

// keyDefault returns the effective default for any key variant.
func (p *resolvedParam) keyDefault() (string, bool) {
	switch k := p.key.(type) {
	case EnvKey:
		return k.Default, k.HasDefault
	case SsmKey:
		return k.Default, k.HasDefault
	default:
		return p.defaultValue, p.hasDefault
	}
}

// resolveGroup reconciles all sites grouped under one key into a
// single ParameterMetadata plus the closure of representations to
// emit. It accumulates diagnostics; a key with any diagnostic is
// dropped from generation while sibling keys continue.
func resolveGroup(g siteGroup, note func(*InjectionSite, error) error) (*resolvedParam, []error) {
	ec := new(errorCollector)
	p := &resolvedParam{key: g.key, sites: g.sites}

	// Per-use defaults (CLI only; env/ssm defaults live in the key).
	if g.key.Kind() == KindCli {
		for _, qs := range g.sites {
			if !qs.attrs.hasDefault {
				continue
			}
			if p.hasDefault && p.defaultValue != qs.attrs.defaultValue {
				ec.add(note(qs.site, fmt.Errorf("conflicting default values for parameter %s: %q and %q", g.key.DisplayName(), p.defaultValue, qs.attrs.defaultValue)))
				continue
			}
			p.defaultValue, p.hasDefault = qs.attrs.defaultValue, true
		}
	}
	if _, isFlag := g.key.(FlagKey); isFlag && p.hasDefault && p.defaultValue != "true" && p.defaultValue != "false" {
		ec.add(note(g.sites[0].site, fmt.Errorf("default value for flag parameter %s must be true or false, got %q", g.key.DisplayName(), p.defaultValue)))
	}
	_, keyHasDefault := p.keyDefault()

	// Conventional requiredness: required unless the site is nullable
	// or a default value is present at that site.
	first := true
	agreed := false
	for _, qs := range g.sites {
		siteDefault := keyHasDefault
		if g.key.Kind() == KindCli {
			siteDefault = qs.attrs.hasDefault
		}
		req := !qs.site.Nullable && !siteDefault
		if first {
			agreed, first = req, false
			continue
		}
		if req != agreed {
			ec.add(note(qs.site, fmt.Errorf("ambiguous requiredness for parameter %s", g.key.DisplayName())))
			break
		}
	}
	p.metadata.Required = agreed && !keyHasDefault

	// Help metadata: first declared wins; declaration order is source
	// order, so the choice is deterministic.
	for _, qs := range g.sites {
		if p.metadata.HelpName == "" {
			p.metadata.HelpName = qs.attrs.helpName
		}
		if p.metadata.HelpDescription == "" {
			p.metadata.HelpDescription = qs.attrs.helpDesc
		}
	}
	if p.metadata.HelpName == "" {
		p.metadata.HelpName = defaultHelpName(g.key)
	}

	src := srcString
	if _, isFlag := g.key.(FlagKey); isFlag {
		src = srcBool
	}

	switch g.key.Kind() {
	case KindCli:
		resolveCliRepresentations(p, g, src, note, ec)
	case KindEnv:
		resolveValueRepresentations(p, g, true, note, ec)
	case KindSsm:
		resolveValueRepresentations(p, g, false, note, ec)
	}

	if len(ec.errors) > 0 {
		return nil, ec.errors
	}
	sortRepresentations(p.reps)
	return p, nil
}

// resolveValueRepresentations handles the environment and SSM kinds:
// each requested type resolves independently, the canonical string
// form is always included, and list values are comma-separated
// strings (environment kind only).
func resolveValueRepresentations(p *resolvedParam, g siteGroup, allowList bool, note func(*InjectionSite, error) error, ec *errorCollector) {
	addRepresentation(p, representation{
		typ:  types.Typ[types.String],
		conv: conversion{kind: convIdentity, target: types.Typ[types.String]},
	})
	for _, qs := range g.sites {
		t := qs.site.Type
		if isListType(t) {
			if !allowList {
				ec.add(note(qs.site, fmt.Errorf("list-valued parameters are not supported for AWS SSM parameter %s", g.key.DisplayName())))
				continue
			}
			conv, ok := findListConversion(t, srcString)
			if !ok {
				ec.add(note(qs.site, fmt.Errorf("no conversion available for parameter %s as %s", g.key.DisplayName(), types.TypeString(t, nil))))
				continue
			}
			addRepresentation(p, representation{typ: t, list: true, conv: conv})
			continue
		}
		conv, ok := findScalarConversion(t, srcString)
		if !ok {
			ec.add(note(qs.site, fmt.Errorf("no conversion available for parameter %s as %s", g.key.DisplayName(), types.TypeString(t, nil))))
			continue
		}
		addRepresentation(p, representation{typ: t, conv: conv})
	}
}

// resolveCliRepresentations handles option, flag, and positional
// parameters. Scalar and list convertibility are checked
// independently per representation, then aggregated with all/any/none
// predicates to classify the group as unanimously scalar, unanimously
// list, or irreconcilable.
func resolveCliRepresentations(p *resolvedParam, g siteGroup, src rawSource, note func(*InjectionSite, error) error, ec *errorCollector) {
	type classified struct {
		qs                 qualifiedSite
		scalarOK, listOK   bool
		scalarConv, listCv conversion
	}
	cls := make([]classified, 0, len(g.sites))
	anyNeither := false
	anyBoth := false
	allScalar := true
	allList := true
	for _, qs := range g.sites {
		c := classified{qs: qs}
		c.scalarConv, c.scalarOK = findScalarConversion(qs.site.Type, src)
		c.listCv, c.listOK = findListConversion(qs.site.Type, src)
		switch {
		case c.scalarOK && c.listOK:
			anyBoth = true
		case !c.scalarOK && !c.listOK:
			anyNeither = true
			ec.add(note(qs.site, fmt.Errorf("no conversion available for parameter %s as %s", g.key.DisplayName(), types.TypeString(qs.site.Type, nil))))
		}
		if !c.scalarOK {
			allScalar = false
		}
		if !c.listOK {
			allList = false
		}
		cls = append(cls, c)
	}
	if anyNeither {
		return
	}
	switch {
	case allScalar && !anyBoth:
		p.metadata.List = false
	case allList && !anyBoth:
		p.metadata.List = true
	default:
		ec.add(note(g.sites[0].site, fmt.Errorf("ambiguous listness for parameter %s", g.key.DisplayName())))
		return
	}

	// Canonical raw representations: the scalar and list forms of the
	// source itself.
	canon := types.Typ[types.String]
	if src == srcBool {
		canon = types.Typ[types.Bool]
	}
	addRepresentation(p, representation{typ: canon, conv: conversion{kind: convIdentity, target: canon}})
	canonList := types.NewSlice(canon)
	addRepresentation(p, representation{typ: canonList, list: true, conv: conversion{kind: convIdentity, target: canonList}})

	// Both scalar and list forms of every requested type.
	for _, c := range cls {
		if p.metadata.List {
			slice := c.qs.site.Type.Underlying().(*types.Slice)
			addRepresentation(p, representation{typ: c.qs.site.Type, list: true, conv: c.listCv})
			if sc, ok := findScalarConversion(slice.Elem(), src); ok {
				addRepresentation(p, representation{typ: slice.Elem(), conv: sc})
			}
			continue
		}
		addRepresentation(p, representation{typ: c.qs.site.Type, conv: c.scalarConv})
		slice := types.NewSlice(c.qs.site.Type)
		if lc, ok := findListConversion(slice, src); ok {
			addRepresentation(p, representation{typ: slice, list: true, conv: lc})
		}
	}
}

// addRepresentation records a representation, deduplicating by
// delivered type and form.
func addRepresentation(p *resolvedParam, r representation) {
	for _, have := range p.reps {
		if have.list == r.list && types.Identical(have.typ, r.typ) {
			return
		}
	}
	p.reps = append(p.reps, r)
}

func sortRepresentations(reps []representation) {
	sort.Slice(reps, func(i, j int) bool {
		if reps[i].list != reps[j].list {
			return !reps[i].list
		}
		return types.TypeString(reps[i].typ, nil) < types.TypeString(reps[j].typ, nil)
	})
}

func defaultHelpName(key ParameterKey) string {
	switch k := key.(type) {
	case OptionKey:
		if k.Long != "" {
			return k.Long
		}
		return k.Short
	case FlagKey:
		if k.PosLong != "" {
			return k.PosLong
		}
		if k.PosShort != "" {
			return k.PosShort
		}
		if k.NegLong != "" {
			return k.NegLong
		}
		return k.NegShort
	case PositionalKey:
		return "arg" + strconv.Itoa(k.Index)
	case EnvKey:
		return k.Name
	case SsmKey:
		return k.Path
	default:
		return ""
	}
}
