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

import "sort"

// genSsmModule emits the AWS SSM module for one component. The
// constructor fetches every referenced parameter once up front, so
// provider methods never touch the network and the module is safe for
// concurrent use.
func (g *gen) genSsmModule(c *component, params []*resolvedParam) {
	name := "Rapier" + c.name + "SsmModule"
	ctxPkg := g.qualifyImport("context", "context")
	ssmPkg := g.qualifyImport("awsssm", awsssmImportPath)

	paths := make(map[string]bool)
	for _, p := range params {
		paths[p.key.(SsmKey).Path] = true
	}
	sorted := make([]string, 0, len(paths))
	for path := range paths {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)

	g.p("// %s supplies configuration for %s from AWS SSM\n", name, c.name)
	g.p("// parameters.\n")
	g.p("type %s struct {\n", name)
	g.p("\tvalues map[string]string\n")
	g.p("}\n\n")

	g.p("// New%s fetches every referenced parameter and returns a\n", name)
	g.p("// module serving the snapshot.\n")
	g.p("func New%s(ctx %s.Context, client %s.Client) (*%s, error) {\n", name, ctxPkg, ssmPkg, name)
	g.p("\tvalues := make(map[string]string, %d)\n", len(sorted))
	g.p("\tfor _, path := range []string{\n")
	for _, path := range sorted {
		g.p("\t\t%q,\n", path)
	}
	g.p("\t} {\n")
	g.p("\t\tv, ok, err := %s.Fetch(ctx, client, path)\n", ssmPkg)
	g.p("\t\tif err != nil {\n")
	g.p("\t\t\treturn nil, err\n")
	g.p("\t\t}\n")
	g.p("\t\tif ok {\n")
	g.p("\t\t\tvalues[path] = v\n")
	g.p("\t\t}\n")
	g.p("\t}\n")
	g.p("\treturn &%s{values: values}, nil\n", name)
	g.p("}\n\n")

	for _, p := range params {
		k := p.key.(SsmKey)
		for _, rep := range p.reps {
			g.genValueProvider(name, "values", p, rep, k.Path)
		}
	}
}
