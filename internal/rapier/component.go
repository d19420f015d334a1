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
	"go/ast"
	"go/token"
	"go/types"
	"strconv"

	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/go/packages"
)

// A component is one rapier:component or rapier:command interface,
// flattened to its injection sites.
type component struct {
	name    string
	pkg     *packages.Package
	pos     token.Pos
	command *CommandMetadata // non-nil for rapier:command
	sites   []*InjectionSite
}

// pkgIndex resolves named types back to their declarations across the
// whole loaded program, including dependencies, so include chains can
// cross package boundaries.
type pkgIndex struct {
	fset *token.FileSet
	pkgs map[string]*packages.Package
}

func newPkgIndex(fset *token.FileSet, initial []*packages.Package) *pkgIndex {
	idx := &pkgIndex{fset: fset, pkgs: make(map[string]*packages.Package)}
	var visit func(p *packages.Package)
	visit = func(p *packages.Package) {
		if _, ok := idx.pkgs[p.PkgPath]; ok {
			return
		}
		idx.pkgs[p.PkgPath] = p
		for _, imp := range p.Imports {
			visit(imp)
		}
	}
	for _, p := range initial {
		visit(p)
	}
	return idx
}

// typeSpec finds the declaration that defines the given type.
func (idx *pkgIndex) typeSpec(obj *types.TypeName) (*packages.Package, *ast.File, *ast.GenDecl, *ast.TypeSpec, error) {
	if obj.Pkg() == nil {
		return nil, nil, nil, nil, fmt.Errorf("%s is a universe type, not a module", obj.Name())
	}
	pkg := idx.pkgs[obj.Pkg().Path()]
	if pkg == nil {
		return nil, nil, nil, nil, fmt.Errorf("package %q not loaded", obj.Pkg().Path())
	}
	pos := obj.Pos()
	for _, f := range pkg.Syntax {
		tokenFile := idx.fset.File(f.Pos())
		if tokenFile == nil {
			continue
		}
		if base := tokenFile.Base(); base <= int(pos) && int(pos) < base+tokenFile.Size() {
			path, _ := astutil.PathEnclosingInterval(f, pos, pos)
			var spec *ast.TypeSpec
			var decl *ast.GenDecl
			for _, node := range path {
				switch node := node.(type) {
				case *ast.TypeSpec:
					spec = node
				case *ast.GenDecl:
					decl = node
				}
			}
			if spec != nil {
				return pkg, f, decl, spec, nil
			}
		}
	}
	return nil, nil, nil, nil, fmt.Errorf("declaration of %s not found", obj.Name())
}

// resolveRef resolves a symbol reference from the standpoint of the
// file that declared it.
func (idx *pkgIndex) resolveRef(ref symref, pkg *packages.Package, file *ast.File) (*types.TypeName, error) {
	scopePkg := pkg.Types
	switch {
	case ref.importPath != "":
		p := idx.pkgs[ref.importPath]
		if p == nil {
			return nil, fmt.Errorf("resolve %v: package %q not loaded", ref, ref.importPath)
		}
		scopePkg = p.Types
	case ref.pkgName != "":
		found := false
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			p := idx.pkgs[path]
			if p == nil {
				continue
			}
			local := p.Types.Name()
			if imp.Name != nil {
				local = imp.Name.Name
			}
			if local == ref.pkgName {
				scopePkg = p.Types
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("resolve %v: %s does not name an imported package", ref, ref.pkgName)
		}
	}
	obj := scopePkg.Scope().Lookup(ref.name)
	if obj == nil {
		return nil, fmt.Errorf("resolve %v: %s not found in package %q", ref, ref.name, scopePkg.Path())
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("resolve %v: %s does not name a type", ref, ref.name)
	}
	return tn, nil
}

// findComponents discovers the components declared in a package. The
// analysis is best-effort: a malformed site or include is reported and
// skipped so one pass can surface many independent mistakes.
func findComponents(idx *pkgIndex, pkg *packages.Package) ([]*component, []error) {
	ec := new(errorCollector)
	var comps []*component
	for _, f := range pkg.Syntax {
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				var dirs []directive
				dirs = extractDirectives(dirs, gd.Doc)
				dirs = extractDirectives(dirs, ts.Doc)
				comp, errs := processComponentDecl(idx, pkg, f, ts, dirs)
				ec.add(errs...)
				if comp != nil {
					comps = append(comps, comp)
				}
			}
		}
	}
	return comps, ec.errors
}

// processComponentDecl builds a component from a marked type spec, or
// returns nil if the type carries no component/command directive.
func processComponentDecl(idx *pkgIndex, pkg *packages.Package, file *ast.File, ts *ast.TypeSpec, dirs []directive) (*component, []error) {
	var compDir, cmdDir directive
	for _, d := range dirs {
		switch d.kind {
		case "component":
			if compDir.isValid() {
				return nil, []error{notePosition(idx.fset.Position(d.pos), fmt.Errorf("multiple rapier:component directives for %s", ts.Name.Name))}
			}
			compDir = d
		case "command":
			if cmdDir.isValid() {
				return nil, []error{notePosition(idx.fset.Position(d.pos), fmt.Errorf("multiple rapier:command directives for %s", ts.Name.Name))}
			}
			cmdDir = d
		}
	}
	if !compDir.isValid() && !cmdDir.isValid() {
		return nil, nil
	}
	if compDir.isValid() && cmdDir.isValid() {
		return nil, []error{notePosition(idx.fset.Position(ts.Pos()), fmt.Errorf("%s is marked as both rapier:component and rapier:command", ts.Name.Name))}
	}

	comp := &component{
		name: ts.Name.Name,
		pkg:  pkg,
		pos:  ts.Pos(),
	}
	ec := new(errorCollector)
	if cmdDir.isValid() {
		cmd, err := parseCommandDirective(cmdDir)
		if err != nil {
			return nil, []error{notePosition(idx.fset.Position(cmdDir.pos), err)}
		}
		comp.command = cmd
	} else if len(compDir.line) != 0 {
		ec.add(notePosition(idx.fset.Position(compDir.pos), fmt.Errorf("rapier:component takes no arguments")))
	}

	obj, ok := pkg.TypesInfo.Defs[ts.Name].(*types.TypeName)
	if !ok {
		ec.add(notePosition(idx.fset.Position(ts.Pos()), fmt.Errorf("no type information for %s", ts.Name.Name)))
		return nil, ec.errors
	}

	a := &analyzer{idx: idx, visited: make(map[*types.TypeName]bool), ec: ec}
	a.walkType(obj)
	comp.sites = a.sites
	return comp, ec.errors
}

func parseCommandDirective(d directive) (*CommandMetadata, error) {
	pa, err := d.parseArgs()
	if err != nil {
		return nil, err
	}
	cmd := &CommandMetadata{ProvideHelp: true, ProvideVersion: true}
	cmd.Version, _ = pa.take("version")
	cmd.Description, _ = pa.take("description")
	for _, tok := range pa.bare {
		switch {
		case tok == "nohelp":
			cmd.ProvideHelp = false
		case tok == "noversion":
			cmd.ProvideVersion = false
		case cmd.Name == "":
			cmd.Name = tok
		default:
			return nil, fmt.Errorf("rapier:command: unexpected argument %q", tok)
		}
	}
	if cmd.Name == "" {
		return nil, fmt.Errorf("rapier:command requires a command name")
	}
	return cmd, pa.finish(d)
}

// analyzer flattens a component's include and embedding graph into
// injection sites.
type analyzer struct {
	idx     *pkgIndex
	visited map[*types.TypeName]bool
	ec      *errorCollector
	sites   []*InjectionSite
}

// walkType visits one module type: the component interface itself, an
// included module, or an embedded type. Interfaces contribute
// provision methods; structs contribute qualified fields. Includes
// and embeddings recurse.
func (a *analyzer) walkType(obj *types.TypeName) {
	if a.visited[obj] {
		return
	}
	a.visited[obj] = true

	pkg, file, gd, ts, err := a.idx.typeSpec(obj)
	if err != nil {
		a.ec.add(notePosition(a.idx.fset.Position(obj.Pos()), err))
		return
	}

	// Includes declared on the type.
	var dirs []directive
	dirs = extractDirectives(dirs, gd.Doc)
	dirs = extractDirectives(dirs, ts.Doc)
	for _, d := range dirs {
		if d.kind != "include" {
			continue
		}
		args := d.args()
		if len(args) == 0 {
			a.ec.add(notePosition(a.idx.fset.Position(d.pos), fmt.Errorf("rapier:include requires at least one module reference")))
			continue
		}
		for _, arg := range args {
			ref, err := parseSymbolRef(arg)
			if err != nil {
				a.ec.add(notePosition(a.idx.fset.Position(d.pos), err))
				continue
			}
			tn, err := a.idx.resolveRef(ref, pkg, file)
			if err != nil {
				a.ec.add(notePosition(a.idx.fset.Position(d.pos), err))
				continue
			}
			a.walkType(tn)
		}
	}

	switch t := ts.Type.(type) {
	case *ast.InterfaceType:
		a.walkInterface(pkg, t)
	case *ast.StructType:
		a.walkStruct(pkg, t)
	default:
		a.ec.add(notePosition(a.idx.fset.Position(ts.Pos()), fmt.Errorf("%s must be an interface or struct type", obj.Name())))
	}
}

func (a *analyzer) walkInterface(pkg *packages.Package, it *ast.InterfaceType) {
	for _, field := range it.Methods.List {
		if len(field.Names) == 0 {
			// Embedded interface: a module include chain.
			a.walkEmbedded(pkg, field)
			continue
		}
		d, ok := a.qualifier(field.Doc, field.Pos())
		if !ok {
			continue
		}
		ft, ok := field.Type.(*ast.FuncType)
		if !ok {
			continue
		}
		if ft.Params != nil && len(ft.Params.List) > 0 || ft.Results == nil || len(ft.Results.List) != 1 {
			a.ec.add(notePosition(a.idx.fset.Position(field.Pos()), fmt.Errorf("provision method %s must take no arguments and return exactly one value", field.Names[0].Name)))
			continue
		}
		t := pkg.TypesInfo.TypeOf(ft.Results.List[0].Type)
		if t == nil {
			a.ec.add(notePosition(a.idx.fset.Position(field.Pos()), fmt.Errorf("no type information for provision method %s", field.Names[0].Name)))
			continue
		}
		a.addSite(t, d, field.Pos())
	}
}

func (a *analyzer) walkStruct(pkg *packages.Package, st *ast.StructType) {
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			// Embedded struct: a module hierarchy chain.
			a.walkEmbedded(pkg, field)
			continue
		}
		d, ok := a.qualifier(field.Doc, field.Pos())
		if !ok {
			continue
		}
		t := pkg.TypesInfo.TypeOf(field.Type)
		if t == nil {
			a.ec.add(notePosition(a.idx.fset.Position(field.Pos()), fmt.Errorf("no type information for field %s", field.Names[0].Name)))
			continue
		}
		a.addSite(t, d, field.Pos())
	}
}

// walkEmbedded follows an embedded interface or struct to its named
// type declaration.
func (a *analyzer) walkEmbedded(pkg *packages.Package, field *ast.Field) {
	t := pkg.TypesInfo.TypeOf(field.Type)
	if t == nil {
		a.ec.add(notePosition(a.idx.fset.Position(field.Pos()), fmt.Errorf("no type information for embedded type")))
		return
	}
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	named, ok := t.(*types.Named)
	if !ok {
		a.ec.add(notePosition(a.idx.fset.Position(field.Pos()), fmt.Errorf("embedded type %s is not a named type", types.TypeString(t, nil))))
		return
	}
	a.walkType(named.Obj())
}

// qualifier finds the single parameter qualifier among a doc
// comment's directives. More than one is an error.
func (a *analyzer) qualifier(doc *ast.CommentGroup, pos token.Pos) (directive, bool) {
	var dirs []directive
	dirs = extractDirectives(dirs, doc)
	var found directive
	for _, d := range dirs {
		if !qualifierKinds[d.kind] {
			if d.kind != "include" {
				a.ec.add(notePosition(a.idx.fset.Position(d.pos), fmt.Errorf("unknown directive rapier:%s", d.kind)))
			}
			continue
		}
		if found.isValid() {
			a.ec.add(notePosition(a.idx.fset.Position(d.pos), fmt.Errorf("multiple parameter qualifiers on one injection site")))
			return directive{}, false
		}
		found = d
	}
	return found, found.isValid()
}

// addSite unwraps the declared type and records the injection site.
func (a *analyzer) addSite(declared types.Type, d directive, pos token.Pos) {
	typ, nullable, lazy, err := unwrapSiteType(declared)
	if err != nil {
		a.ec.add(notePosition(a.idx.fset.Position(pos), err))
		return
	}
	a.sites = append(a.sites, &InjectionSite{
		Type:      typ,
		Qualifier: d,
		Nullable:  nullable,
		Lazy:      lazy,
		Pos:       pos,
	})
}
