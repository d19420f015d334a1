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
	"bytes"
	"fmt"
	"go/format"
	"go/types"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/go/packages"
)

// Import paths of the runtime packages the generated code leans on.
const (
	runtimeImportPath = "github.com/aleph0io/rapier-go"
	cliargsImportPath = "github.com/aleph0io/rapier-go/cliargs"
	awsssmImportPath  = "github.com/aleph0io/rapier-go/awsssm"
)

// gen accumulates the generated file for one package. Output is
// deterministic: the buffer is written in a fixed order and the import
// block is sorted when the file is framed.
type gen struct {
	pkg     *packages.Package
	buf     bytes.Buffer
	imports map[string]string // import path -> local name
}

func newGen(pkg *packages.Package) *gen {
	return &gen{
		pkg:     pkg,
		imports: make(map[string]string),
	}
}

// frame bundles the buffer into a complete gofmt'd source file.
func (g *gen) frame(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("// Code generated by rapier")
	if cfg.Version != "" {
		buf.WriteString(" ")
		buf.WriteString(cfg.Version)
	}
	buf.WriteString(". DO NOT EDIT.\n")
	if cfg.Date != "" {
		fmt.Fprintf(&buf, "// generated: %s\n", cfg.Date)
	}
	if cfg.URL != "" {
		fmt.Fprintf(&buf, "// source: %s\n", cfg.URL)
	}
	buf.WriteString("\npackage ")
	buf.WriteString(g.pkg.Name)
	buf.WriteString("\n\n")
	if len(g.imports) > 0 {
		buf.WriteString("import (\n")
		paths := make([]string, 0, len(g.imports))
		for path := range g.imports {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			name := g.imports[path]
			if name == lastComponent(path) {
				fmt.Fprintf(&buf, "\t%q\n", path)
			} else {
				fmt.Fprintf(&buf, "\t%s %q\n", name, path)
			}
		}
		buf.WriteString(")\n\n")
	}
	buf.Write(g.buf.Bytes())
	return format.Source(buf.Bytes())
}

func (g *gen) p(format string, args ...interface{}) {
	fmt.Fprintf(&g.buf, format, args...)
}

// qualifyImport returns the local name to use for an import path,
// adding the import and disambiguating the name if needed.
func (g *gen) qualifyImport(name, path string) string {
	if path == g.pkg.PkgPath {
		return ""
	}
	if n, ok := g.imports[path]; ok {
		return n
	}
	taken := make(map[string]bool, len(g.imports))
	for _, n := range g.imports {
		taken[n] = true
	}
	n := disambiguate(name, func(n string) bool {
		return taken[n] || g.pkg.Types.Scope().Lookup(n) != nil
	})
	g.imports[path] = n
	return n
}

// qualifiedIdent renders a reference to a package-level identifier.
func (g *gen) qualifiedIdent(pkg *types.Package, name string) string {
	if pkg == nil || pkg == g.pkg.Types {
		return name
	}
	return g.qualifyImport(pkg.Name(), pkg.Path()) + "." + name
}

// typeString renders a type with imports routed through the gen's
// import table.
func (g *gen) typeString(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string {
		return g.qualifyImport(p.Name(), p.Path())
	})
}

// zeroValue renders an expression of t's zero value, for error-path
// returns.
func (g *gen) zeroValue(t types.Type) string {
	switch u := t.Underlying().(type) {
	case *types.Basic:
		info := u.Info()
		switch {
		case info&types.IsBoolean != 0:
			if _, named := t.(*types.Named); named {
				return g.typeString(t) + "(false)"
			}
			return "false"
		case info&types.IsNumeric != 0:
			if _, named := t.(*types.Named); named {
				return g.typeString(t) + "(0)"
			}
			return "0"
		case info&types.IsString != 0:
			if _, named := t.(*types.Named); named {
				return g.typeString(t) + `("")`
			}
			return `""`
		}
	case *types.Slice, *types.Pointer, *types.Map, *types.Chan, *types.Signature, *types.Interface:
		return "nil"
	case *types.Struct, *types.Array:
		return g.typeString(t) + "{}"
	}
	return g.typeString(t) + "{}"
}

// lastComponent returns the final path element, the default local name
// of an import.
func lastComponent(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// disambiguate picks a unique name loosely based on name, mirroring
// the usual v2, v3 convention. collides reports whether a candidate is
// taken.
func disambiguate(name string, collides func(string) bool) string {
	if !collides(name) {
		return name
	}
	buf := []byte(name)
	if len(buf) > 0 && buf[len(buf)-1] >= '0' && buf[len(buf)-1] <= '9' {
		buf = append(buf, '_')
	}
	base := len(buf)
	for n := 2; ; n++ {
		buf = strconv.AppendInt(buf[:base], int64(n), 10)
		sbuf := string(buf)
		if !collides(sbuf) {
			return sbuf
		}
	}
}

// export converts an identifier to an exported form.
func export(name string) string {
	if name == "" {
		return ""
	}
	r, sz := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return name
	}
	return string(unicode.ToUpper(r)) + name[sz:]
}

// camelName folds a raw parameter name (SHOUTY_CASE, kebab-case, or
// /slash/paths) to a CamelCase identifier fragment.
func camelName(raw string) string {
	var b strings.Builder
	up := true
	for _, r := range raw {
		switch {
		case r == '_' || r == '-' || r == '.' || r == '/':
			up = true
		case up:
			b.WriteRune(unicode.ToUpper(unicode.ToLower(r)))
			up = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// defaultHash produces a short stable tag for a default value, used
// to keep method names for the same parameter name with different
// defaults distinct.
func defaultHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

// methodBase returns the provider-method name stem for a key.
func methodBase(key ParameterKey) string {
	switch k := key.(type) {
	case EnvKey:
		base := "Env" + camelName(k.Name)
		if k.HasDefault {
			base += "Default" + defaultHash(k.Default)
		}
		return base
	case SsmKey:
		base := "Ssm" + camelName(k.Path)
		if k.HasDefault {
			base += "Default" + defaultHash(k.Default)
		}
		return base
	case OptionKey:
		if k.Long != "" {
			return "Option" + camelName(k.Long)
		}
		return "Option" + strings.ToUpper(k.Short)
	case FlagKey:
		for _, n := range []string{k.PosLong, k.NegLong} {
			if n != "" {
				return "Flag" + camelName(n)
			}
		}
		for _, n := range []string{k.PosShort, k.NegShort} {
			if n != "" {
				return "Flag" + strings.ToUpper(n)
			}
		}
		return "Flag"
	case PositionalKey:
		return "Positional" + strconv.Itoa(k.Index)
	}
	return ""
}

// typeToken renders a type as a method-name suffix: int -> Int,
// []string -> StringList, pkg.Widget -> Widget.
func typeToken(t types.Type) string {
	switch u := t.(type) {
	case *types.Basic:
		return export(u.Name())
	case *types.Named:
		return export(u.Obj().Name())
	case *types.Slice:
		return typeToken(u.Elem()) + "List"
	case *types.Pointer:
		return typeToken(u.Elem())
	}
	return "Value"
}

// methodName is the full provider-method name for one representation
// of one key.
func methodName(key ParameterKey, rep representation) string {
	return methodBase(key) + "As" + typeToken(rep.typ)
}

// kindLabel is the human-facing parameter kind used in runtime error
// values.
func kindLabel(key ParameterKey) string {
	switch key.(type) {
	case EnvKey:
		return "environment variable"
	case SsmKey:
		return "AWS SSM parameter"
	case OptionKey:
		return "option parameter"
	case FlagKey:
		return "flag parameter"
	case PositionalKey:
		return "positional parameter"
	}
	return "parameter"
}

// genConvert writes statements converting the scalar variable src
// into a new variable named dst of the conversion's target type.
// errKey and errTarget season the runtime ConversionError. The caller
// guarantees a fallible conversion runs inside a method with a
// declared zero return.
func (g *gen) genConvert(c conversion, dst, src, kind, key string) {
	switch c.kind {
	case convIdentity:
		g.p("\t%s := %s\n", dst, src)
	case convCast:
		g.p("\t%s := %s(%s)\n", dst, g.typeString(c.target), src)
	case convParse:
		g.genParse(c, dst, src, kind, key)
	case convFactory:
		fn := g.qualifiedIdent(c.fn.Pkg(), c.fn.Name())
		if c.fnErr {
			g.p("\t%s, err := %s(%s)\n", dst, fn, src)
			g.genConvErrCheck(c.target, kind, key)
		} else {
			g.p("\t%s := %s(%s)\n", dst, fn, src)
		}
	case convElem:
		g.p("\t%s := make(%s, 0, len(%s))\n", dst, g.typeString(c.target), src)
		g.p("\tfor _, raw := range %s {\n", src)
		g.genConvertElem(*c.elem, dst, "raw", kind, key)
		g.p("\t}\n")
	}
}

// genConvertElem is the loop-body variant of genConvert, appending to
// dst instead of declaring it.
func (g *gen) genConvertElem(c conversion, dst, src, kind, key string) {
	switch c.kind {
	case convIdentity:
		g.p("\t\t%s = append(%s, %s)\n", dst, dst, src)
	case convCast:
		g.p("\t\t%s = append(%s, %s(%s))\n", dst, dst, g.typeString(c.target), src)
	case convParse:
		g.p("\t")
		g.genParse(c, "elem", src, kind, key)
		g.p("\t\t%s = append(%s, elem)\n", dst, dst)
	case convFactory:
		fn := g.qualifiedIdent(c.fn.Pkg(), c.fn.Name())
		if c.fnErr {
			g.p("\t\telem, err := %s(%s)\n", fn, src)
			g.p("\t")
			g.genConvErrCheck(c.target, kind, key)
			g.p("\t\t%s = append(%s, elem)\n", dst, dst)
		} else {
			g.p("\t\t%s = append(%s, %s(%s))\n", dst, dst, fn, src)
		}
	}
}

// genParse writes a strconv parse of src into dst, wrapping parse
// failures in a ConversionError.
func (g *gen) genParse(c conversion, dst, src, kind, key string) {
	strconvPkg := g.qualifyImport("strconv", "strconv")
	b := c.target.Underlying().(*types.Basic)
	named := false
	if _, ok := c.target.(*types.Named); ok {
		named = true
	}
	narrow := needsNarrowing(c.target, b.Kind())
	parsed := dst
	if named || narrow {
		parsed = dst + "Raw"
	}
	switch b.Kind() {
	case types.Bool:
		g.p("\t%s, err := %s.ParseBool(%s)\n", parsed, strconvPkg, src)
	case types.Int:
		g.p("\t%s, err := %s.Atoi(%s)\n", parsed, strconvPkg, src)
	case types.Int8, types.Int16, types.Int32, types.Int64:
		g.p("\t%s, err := %s.ParseInt(%s, 10, %d)\n", parsed, strconvPkg, src, basicBits(b.Kind()))
	case types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64:
		g.p("\t%s, err := %s.ParseUint(%s, 10, %d)\n", parsed, strconvPkg, src, basicBits(b.Kind()))
	case types.Float32, types.Float64:
		g.p("\t%s, err := %s.ParseFloat(%s, %d)\n", parsed, strconvPkg, src, basicBits(b.Kind()))
	}
	g.genConvErrCheck(c.target, kind, key)
	if named || narrow {
		g.p("\t%s := %s(%s)\n", dst, g.typeString(c.target), parsed)
	}
}

// genConvErrCheck writes the err check following a fallible
// conversion step.
func (g *gen) genConvErrCheck(target types.Type, kind, key string) {
	runtimePkg := g.qualifyImport("rapier", runtimeImportPath)
	g.p("\tif err != nil {\n")
	g.p("\t\treturn zero, &%s.ConversionError{Kind: %q, Key: %q, Target: %q, Err: err}\n", runtimePkg, kind, key, types.TypeString(target, nil))
	g.p("\t}\n")
}

// needsNarrowing reports whether the strconv result type differs from
// an unnamed basic target (ParseInt returns int64 even for int8).
func needsNarrowing(t types.Type, k types.BasicKind) bool {
	if _, ok := t.(*types.Named); ok {
		return false
	}
	switch k {
	case types.Int8, types.Int16, types.Int32, types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Float32:
		return true
	}
	return false
}

func basicBits(k types.BasicKind) int {
	switch k {
	case types.Int8, types.Uint8:
		return 8
	case types.Int16, types.Uint16:
		return 16
	case types.Int32, types.Uint32, types.Float32:
		return 32
	default:
		return 64
	}
}
