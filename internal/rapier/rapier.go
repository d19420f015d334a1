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

// Package rapier generates configuration modules from component
// declarations. Interfaces and structs marked with rapier directives
// declare injection sites for environment variables, command-line
// arguments, and AWS SSM parameters; the generator analyzes the
// declarations, reconciles each parameter's requiredness and
// representations, and writes provider modules alongside the
// declaring package.
package rapier

import (
	"context"
	"fmt"
	"go/token"
	"path/filepath"

	"golang.org/x/tools/go/packages"
)

// GenerateResult stores the result of generating one package.
type GenerateResult struct {
	// PkgPath is the package's PkgPath.
	PkgPath string
	// OutputPath is the path where the generated output should be
	// written. May be empty if there is nothing to write.
	OutputPath string
	// Content is the gofmt'd source code to write to OutputPath.
	Content []byte
	// Errs is a list of errors found while generating. If non-empty,
	// the other fields still describe any siblings that generated
	// cleanly.
	Errs []error
}

// Commit writes the generated file to disk.
func (gen GenerateResult) Commit(write func(string, []byte) error) error {
	if len(gen.Content) == 0 {
		return nil
	}
	return write(gen.OutputPath, gen.Content)
}

// Config configures a Generate run.
type Config struct {
	// Version, Date, and URL season the generated-file header; all
	// are optional.
	Version string
	Date    string
	URL     string

	// Env and Dir configure package loading.
	Env []string
	Dir string

	// Tags is a comma-separated list of extra build tags.
	Tags string
}

// genFileName is the output file written next to each declaring
// package.
const genFileName = "rapier_gen.go"

// Generate loads the packages matched by patterns and produces one
// GenerateResult per package, in a deterministic order. A component
// with diagnostics is skipped while sibling components continue;
// every accumulated diagnostic is reported on the package's result.
func Generate(ctx context.Context, cfg Config, patterns []string) ([]GenerateResult, []error) {
	pkgs, errs := load(ctx, cfg, patterns)
	if len(errs) > 0 {
		return nil, errs
	}
	fset := token.NewFileSet()
	if len(pkgs) > 0 {
		fset = pkgs[0].Fset
	}
	idx := newPkgIndex(fset, pkgs)

	generated := make([]GenerateResult, 0, len(pkgs))
	for _, pkg := range pkgs {
		res := GenerateResult{PkgPath: pkg.PkgPath}
		outDir, err := detectOutputDir(pkg.GoFiles)
		if err != nil {
			res.Errs = append(res.Errs, err)
			generated = append(generated, res)
			continue
		}
		res.OutputPath = filepath.Join(outDir, genFileName)

		comps, errs := findComponents(idx, pkg)
		res.Errs = append(res.Errs, errs...)

		g := newGen(pkg)
		emitted := false
		for _, c := range comps {
			if errs := generateComponent(g, idx, c); len(errs) > 0 {
				res.Errs = append(res.Errs, errs...)
				continue
			}
			emitted = true
		}
		if emitted {
			out, err := g.frame(cfg)
			if err != nil {
				res.Errs = append(res.Errs, fmt.Errorf("%s: %v", pkg.PkgPath, err))
			} else {
				res.Content = out
			}
		}
		generated = append(generated, res)
	}
	return generated, nil
}

// generateComponent runs the per-component pipeline: group the
// component's sites by key, resolve each group, validate across keys,
// and emit the kind modules. Diagnostics accumulate across every
// stage before the component is abandoned.
func generateComponent(g *gen, idx *pkgIndex, c *component) []error {
	note := func(s *InjectionSite, err error) error {
		return notePosition(idx.fset.Position(s.Pos), err)
	}

	groups, errs := groupSites(c.sites, note)
	ec := new(errorCollector)
	ec.add(errs...)

	resolved := make(map[Kind][]*resolvedParam)
	for _, kind := range []Kind{KindCli, KindEnv, KindSsm} {
		for _, grp := range groups[kind] {
			p, errs := resolveGroup(grp, note)
			if len(errs) > 0 {
				ec.add(errs...)
				continue
			}
			resolved[kind] = append(resolved[kind], p)
		}
	}

	if len(resolved[KindCli]) > 0 || (c.command != nil && len(groups[KindCli]) > 0) {
		if c.command == nil {
			first := groups[KindCli][0]
			ec.add(note(first.sites[0].site, fmt.Errorf("command-line parameters require a command declaration on component %s", c.name)))
		} else {
			ec.add(validateCli(c.command, resolved[KindCli], note)...)
		}
	}

	if len(ec.errors) > 0 {
		// Errors noted at a site already carry that position; anything
		// else falls back to the component declaration.
		return notePositionAll(idx.fset.Position(c.pos), ec.errors)
	}

	if len(resolved[KindEnv]) > 0 {
		g.genEnvModule(c, resolved[KindEnv])
	}
	if len(resolved[KindSsm]) > 0 {
		g.genSsmModule(c, resolved[KindSsm])
	}
	if c.command != nil {
		g.genCliModule(c, resolved[KindCli])
	}
	return nil
}

// load typechecks the packages that match the given patterns and
// includes source for all transitive dependencies.
func load(ctx context.Context, cfg Config, patterns []string) ([]*packages.Package, []error) {
	var bflags []string
	if cfg.Tags != "" {
		bflags = append(bflags, "-tags="+cfg.Tags)
	}
	loadCfg := &packages.Config{
		Context:    ctx,
		Mode:       packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles | packages.NeedImports | packages.NeedDeps | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
		Dir:        cfg.Dir,
		Env:        cfg.Env,
		BuildFlags: bflags,
	}
	pkgs, err := packages.Load(loadCfg, patterns...)
	if err != nil {
		return nil, []error{err}
	}
	var errs []error
	for _, p := range pkgs {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return pkgs, nil
}

// detectOutputDir finds the package directory from its source files.
func detectOutputDir(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("no files to derive output directory from")
	}
	dir := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		if dir2 := filepath.Dir(p); dir2 != dir {
			return "", fmt.Errorf("found conflicting directories %q and %q", dir, dir2)
		}
	}
	return dir, nil
}
