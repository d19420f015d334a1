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

// genEnvModule emits the environment module for one component: a
// struct holding a name-to-value snapshot, constructors from the
// process environment or an explicit environ slice, and one provider
// method per representation of each environment key.
func (g *gen) genEnvModule(c *component, params []*resolvedParam) {
	name := "Rapier" + c.name + "EnvModule"
	stringsPkg := g.qualifyImport("strings", "strings")
	osPkg := g.qualifyImport("os", "os")

	g.p("// %s supplies configuration for %s from environment\n", name, c.name)
	g.p("// variables.\n")
	g.p("type %s struct {\n", name)
	g.p("\tenv map[string]string\n")
	g.p("}\n\n")

	g.p("// New%sFromEnviron builds the module from the process environment.\n", name)
	g.p("func New%sFromEnviron() *%s {\n", name, name)
	g.p("\treturn New%s(%s.Environ())\n", name, osPkg)
	g.p("}\n\n")

	g.p("// New%s builds the module from KEY=VALUE entries.\n", name)
	g.p("func New%s(environ []string) *%s {\n", name, name)
	g.p("\tenv := make(map[string]string, len(environ))\n")
	g.p("\tfor _, kv := range environ {\n")
	g.p("\t\tif i := %s.IndexByte(kv, '='); i >= 0 {\n", stringsPkg)
	g.p("\t\t\tenv[kv[:i]] = kv[i+1:]\n")
	g.p("\t\t}\n")
	g.p("\t}\n")
	g.p("\treturn &%s{env: env}\n", name)
	g.p("}\n\n")

	for _, p := range params {
		k := p.key.(EnvKey)
		for _, rep := range p.reps {
			g.genValueProvider(name, "env", p, rep, k.Name)
		}
	}
}

// genValueProvider emits one provider method over a string-valued
// lookup map. Environment and SSM modules share the shape; only the
// map field, key text, and kind label differ.
func (g *gen) genValueProvider(moduleName, mapField string, p *resolvedParam, rep representation, lookupKey string) {
	kind := kindLabel(p.key)
	def, hasDef := p.keyDefault()
	required := p.metadata.Required
	optional := !required && !hasDef

	retType := g.typeString(rep.typ)
	if optional && !rep.list {
		retType = "*" + g.typeString(rep.typ)
	}
	fallible := rep.conv.fallible() || required

	g.p("func (m *%s) %s() ", moduleName, methodName(p.key, rep))
	if fallible {
		g.p("(%s, error) {\n", retType)
	} else {
		g.p("%s {\n", retType)
	}
	if fallible {
		g.p("\tvar zero %s\n", retType)
	}

	g.p("\tv, ok := m.%s[%q]\n", mapField, lookupKey)
	g.p("\tif !ok {\n")
	switch {
	case hasDef:
		g.p("\t\tv = %q\n", def)
	case required:
		runtimePkg := g.qualifyImport("rapier", runtimeImportPath)
		g.p("\t\treturn zero, &%s.UnsetError{Kind: %q, Key: %q}\n", runtimePkg, kind, lookupKey)
	case rep.list:
		if fallible {
			g.p("\t\treturn nil, nil\n")
		} else {
			g.p("\t\treturn nil\n")
		}
	default:
		if fallible {
			g.p("\t\treturn nil, nil\n")
		} else {
			g.p("\t\treturn nil\n")
		}
	}
	g.p("\t}\n")

	if rep.list {
		stringsPkg := g.qualifyImport("strings", "strings")
		g.p("\tvar parts []string\n")
		g.p("\tif v != \"\" {\n")
		g.p("\t\tparts = %s.Split(v, \",\")\n", stringsPkg)
		g.p("\t}\n")
		g.genConvert(rep.conv, "out", "parts", kind, lookupKey)
		if fallible {
			g.p("\treturn out, nil\n")
		} else {
			g.p("\treturn out\n")
		}
	} else {
		g.genConvert(rep.conv, "out", "v", kind, lookupKey)
		ret := "out"
		if optional {
			ret = "&out"
		}
		if fallible {
			g.p("\treturn %s, nil\n", ret)
		} else {
			g.p("\treturn %s\n", ret)
		}
	}
	g.p("}\n\n")
}
