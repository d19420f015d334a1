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
	"sort"
	"strings"
)

// Internal flag identifiers for the generated help and version flags.
// The dot keeps them out of the user's name space, which never
// contains dots.
const (
	helpFlagID    = "rapier.help"
	versionFlagID = "rapier.version"
)

// optionID returns the tokenizer identity of an option key.
func optionID(k OptionKey) string {
	if k.Long != "" {
		return k.Long
	}
	return k.Short
}

// flagID returns the tokenizer identity of a flag key.
func flagID(k FlagKey) string {
	for _, n := range []string{k.PosLong, k.NegLong, k.PosShort, k.NegShort} {
		if n != "" {
			return n
		}
	}
	return ""
}

// genCliModule emits the command-line module for one command
// component: the tokenizer tables, usage and help text helpers, a
// constructor that parses and validates the argument vector, and one
// provider method per representation of each CLI key.
func (g *gen) genCliModule(c *component, params []*resolvedParam) {
	name := "Rapier" + c.name + "CliModule"
	cmd := c.command
	cliPkg := g.qualifyImport("cliargs", cliargsImportPath)
	osPkg := g.qualifyImport("os", "os")

	// The argument vector after the declared positionals is excess
	// unless the last positional is a list and absorbs it.
	posCount := 0
	tailIsList := false
	anyRequired := false
	for _, p := range params {
		if p.metadata.Required {
			anyRequired = true
		}
		if k, ok := p.key.(PositionalKey); ok && k.Index+1 > posCount {
			posCount, tailIsList = k.Index+1, p.metadata.List
		}
	}
	fmtPkg := ""
	if cmd.ProvideHelp || cmd.ProvideVersion || anyRequired || !tailIsList {
		fmtPkg = g.qualifyImport("fmt", "fmt")
	}

	g.p("// %s supplies configuration for %s from command-line\n", name, c.name)
	g.p("// arguments.\n")
	g.p("type %s struct {\n", name)
	g.p("\tparsed *%s.Parsed\n", cliPkg)
	g.p("}\n\n")

	g.genCliTables(c, params, cliPkg)
	g.genCliHelp(c, params, cliPkg)

	// Constructors.
	g.p("// New%s is shorthand for New%sFromArgs(os.Args[1:]).\n", name, name)
	g.p("func New%s() (*%s, error) {\n", name, name)
	g.p("\treturn New%sFromArgs(%s.Args[1:])\n", name, osPkg)
	g.p("}\n\n")

	g.p("// New%sFromArgs parses args, which must not include the\n", name)
	g.p("// program name.")
	if cmd.ProvideHelp {
		g.p(" Help and version requests and argument errors\n")
		g.p("// surface as *cliargs.ExitError after printing to the usual\n")
		g.p("// streams.")
	} else {
		g.p(" Argument errors surface as *cliargs.SyntaxError.")
	}
	g.p("\n")
	g.p("func New%sFromArgs(args []string) (*%s, error) {\n", name, name)
	g.p("\tparsed, err := %s.Parse(args, %s())\n", cliPkg, g.tablesFunc(c))
	g.p("\tif err != nil {\n")
	if cmd.ProvideHelp {
		g.p("\t\tvar syntax *%s.SyntaxError\n", cliPkg)
		errorsPkg := g.qualifyImport("errors", "errors")
		g.p("\t\tif %s.As(err, &syntax) {\n", errorsPkg)
		g.p("\t\t\t%s.Fprintln(%s.Stderr, syntax.Message)\n", fmtPkg, osPkg)
		g.p("\t\t\t%s.Fprint(%s.Stderr, %s())\n", fmtPkg, osPkg, g.usageFunc(c))
		g.p("\t\t\treturn nil, &%s.ExitError{Status: 1}\n", cliPkg)
		g.p("\t\t}\n")
	}
	g.p("\t\treturn nil, err\n")
	g.p("\t}\n")
	if cmd.ProvideHelp {
		g.p("\tif len(parsed.Flags[%q]) > 0 {\n", helpFlagID)
		g.p("\t\t%s.Fprint(%s.Stdout, %s())\n", fmtPkg, osPkg, g.helpFunc(c))
		g.p("\t\treturn nil, &%s.ExitError{Status: 0}\n", cliPkg)
		g.p("\t}\n")
	}
	if cmd.ProvideVersion {
		g.p("\tif len(parsed.Flags[%q]) > 0 {\n", versionFlagID)
		g.p("\t\t%s.Fprint(%s.Stdout, %s())\n", fmtPkg, osPkg, g.versionFunc(c))
		g.p("\t\treturn nil, &%s.ExitError{Status: 0}\n", cliPkg)
		g.p("\t}\n")
	}
	for _, p := range params {
		if !p.metadata.Required {
			continue
		}
		switch k := p.key.(type) {
		case OptionKey:
			g.p("\tif len(parsed.Options[%q]) == 0 {\n", optionID(k))
			g.genMissingRequired(p, cliPkg, fmtPkg, osPkg, c)
			g.p("\t}\n")
		case FlagKey:
			g.p("\tif len(parsed.Flags[%q]) == 0 {\n", flagID(k))
			g.genMissingRequired(p, cliPkg, fmtPkg, osPkg, c)
			g.p("\t}\n")
		case PositionalKey:
			g.p("\tif len(parsed.Args) <= %d {\n", k.Index)
			g.genMissingRequired(p, cliPkg, fmtPkg, osPkg, c)
			g.p("\t}\n")
		}
	}
	if !tailIsList {
		g.p("\tif len(parsed.Args) > %d {\n", posCount)
		g.p("\t\t%s.Fprintf(%s.Stderr, \"Unexpected positional argument %%s\\n\", parsed.Args[%d])\n", fmtPkg, osPkg, posCount)
		g.p("\t\t%s.Fprint(%s.Stderr, %s())\n", fmtPkg, osPkg, g.usageFunc(c))
		g.p("\t\treturn nil, &%s.ExitError{Status: 1}\n", cliPkg)
		g.p("\t}\n")
	}
	g.p("\treturn &%s{parsed: parsed}, nil\n", name)
	g.p("}\n\n")

	for _, p := range params {
		for _, rep := range p.reps {
			g.genCliProvider(name, p, rep)
		}
	}
}

func (g *gen) genMissingRequired(p *resolvedParam, cliPkg, fmtPkg, osPkg string, c *component) {
	g.p("\t\t%s.Fprintf(%s.Stderr, \"Missing required %s %%s\\n\", %q)\n", fmtPkg, osPkg, kindLabel(p.key), p.key.DisplayName())
	g.p("\t\t%s.Fprint(%s.Stderr, %s())\n", fmtPkg, osPkg, g.usageFunc(c))
	g.p("\t\treturn nil, &%s.ExitError{Status: 1}\n", cliPkg)
}

func (g *gen) tablesFunc(c *component) string { return "rapier" + c.name + "CliTables" }

func (g *gen) usageFunc(c *component) string { return "rapier" + c.name + "CliUsage" }

func (g *gen) helpFunc(c *component) string { return "rapier" + c.name + "CliHelp" }

func (g *gen) versionFunc(c *component) string { return "rapier" + c.name + "CliVersion" }

// genCliTables emits the tokenizer-table helper. Entries are written
// sorted by name so regeneration is byte-stable.
func (g *gen) genCliTables(c *component, params []*resolvedParam, cliPkg string) {
	type flagEntry struct {
		name  string
		id    string
		value bool
	}
	var optShorts, optLongs [][2]string
	var flagShorts, flagLongs []flagEntry
	for _, p := range params {
		switch k := p.key.(type) {
		case OptionKey:
			id := optionID(k)
			if k.Short != "" {
				optShorts = append(optShorts, [2]string{k.Short, id})
			}
			if k.Long != "" {
				optLongs = append(optLongs, [2]string{k.Long, id})
			}
		case FlagKey:
			id := flagID(k)
			if k.PosShort != "" {
				flagShorts = append(flagShorts, flagEntry{k.PosShort, id, true})
			}
			if k.NegShort != "" {
				flagShorts = append(flagShorts, flagEntry{k.NegShort, id, false})
			}
			if k.PosLong != "" {
				flagLongs = append(flagLongs, flagEntry{k.PosLong, id, true})
			}
			if k.NegLong != "" {
				flagLongs = append(flagLongs, flagEntry{k.NegLong, id, false})
			}
		}
	}
	if c.command.ProvideHelp {
		flagShorts = append(flagShorts, flagEntry{"h", helpFlagID, true})
		flagLongs = append(flagLongs, flagEntry{"help", helpFlagID, true})
	}
	if c.command.ProvideVersion {
		flagShorts = append(flagShorts, flagEntry{"V", versionFlagID, true})
		flagLongs = append(flagLongs, flagEntry{"version", versionFlagID, true})
	}
	sort.Slice(optShorts, func(i, j int) bool { return optShorts[i][0] < optShorts[j][0] })
	sort.Slice(optLongs, func(i, j int) bool { return optLongs[i][0] < optLongs[j][0] })
	sort.Slice(flagShorts, func(i, j int) bool { return flagShorts[i].name < flagShorts[j].name })
	sort.Slice(flagLongs, func(i, j int) bool { return flagLongs[i].name < flagLongs[j].name })

	g.p("func %s() %s.Tables {\n", g.tablesFunc(c), cliPkg)
	g.p("\treturn %s.Tables{\n", cliPkg)
	g.p("\t\tOptionShorts: map[string]string{\n")
	for _, e := range optShorts {
		g.p("\t\t\t%q: %q,\n", e[0], e[1])
	}
	g.p("\t\t},\n")
	g.p("\t\tOptionLongs: map[string]string{\n")
	for _, e := range optLongs {
		g.p("\t\t\t%q: %q,\n", e[0], e[1])
	}
	g.p("\t\t},\n")
	g.p("\t\tFlagShorts: map[string]%s.FlagRef{\n", cliPkg)
	for _, e := range flagShorts {
		g.p("\t\t\t%q: {ID: %q, Value: %t},\n", e.name, e.id, e.value)
	}
	g.p("\t\t},\n")
	g.p("\t\tFlagLongs: map[string]%s.FlagRef{\n", cliPkg)
	for _, e := range flagLongs {
		g.p("\t\t\t%q: {ID: %q, Value: %t},\n", e.name, e.id, e.value)
	}
	g.p("\t\t},\n")
	g.p("\t}\n")
	g.p("}\n\n")
}

// genCliHelp emits the usage and help helpers. The synopsis and entry
// list are computed at generation time; layout is the help renderer's
// concern.
func (g *gen) genCliHelp(c *component, params []*resolvedParam, cliPkg string) {
	cmd := c.command
	synopsis := cliSynopsis(cmd, params)
	usage := cmd.Name
	if synopsis != "" {
		usage += " " + synopsis
	}

	g.p("func %s() string {\n", g.usageFunc(c))
	g.p("\treturn \"Usage: \" + %q + \"\\n\"\n", usage)
	g.p("}\n\n")

	g.p("func %s() string {\n", g.helpFunc(c))
	g.p("\tinfo := %s.HelpInfo{\n", cliPkg)
	g.p("\t\tName: %q,\n", cmd.Name)
	if cmd.Version != "" {
		g.p("\t\tVersion: %q,\n", cmd.Version)
	}
	if cmd.Description != "" {
		g.p("\t\tDescription: %q,\n", cmd.Description)
	}
	g.p("\t\tSynopsis: %q,\n", synopsis)
	g.p("\t\tEntries: []%s.HelpEntry{\n", cliPkg)
	for _, p := range params {
		syntax, desc := helpEntry(p)
		g.p("\t\t\t{Syntax: %q, Description: %q},\n", syntax, desc)
	}
	if cmd.ProvideHelp {
		g.p("\t\t\t{Syntax: \"-h, --help\", Description: \"Print this help message and exit\"},\n")
	}
	if cmd.ProvideVersion {
		g.p("\t\t\t{Syntax: \"-V, --version\", Description: \"Print the version and exit\"},\n")
	}
	g.p("\t\t},\n")
	g.p("\t}\n")
	g.p("\treturn info.Help()\n")
	g.p("}\n\n")

	if cmd.ProvideVersion {
		g.p("func %s() string {\n", g.versionFunc(c))
		if cmd.Version != "" {
			g.p("\treturn %s.HelpInfo{Name: %q, Version: %q}.VersionMessage()\n", cliPkg, cmd.Name, cmd.Version)
		} else {
			g.p("\treturn %s.HelpInfo{Name: %q}.VersionMessage()\n", cliPkg, cmd.Name)
		}
		g.p("}\n\n")
	}
}

// cliSynopsis builds the options-and-positionals summary that follows
// the command name in the usage line.
func cliSynopsis(cmd *CommandMetadata, params []*resolvedParam) string {
	var parts []string
	hasNamed := cmd.ProvideHelp || cmd.ProvideVersion
	var positionals []*resolvedParam
	for _, p := range params {
		switch p.key.(type) {
		case OptionKey, FlagKey:
			hasNamed = true
		case PositionalKey:
			positionals = append(positionals, p)
		}
	}
	if hasNamed {
		parts = append(parts, "[OPTION...]")
	}
	sort.Slice(positionals, func(i, j int) bool {
		return positionals[i].key.(PositionalKey).Index < positionals[j].key.(PositionalKey).Index
	})
	for _, p := range positionals {
		name := p.metadata.HelpName
		switch {
		case p.metadata.List && p.metadata.Required:
			parts = append(parts, "<"+name+"...>")
		case p.metadata.List:
			parts = append(parts, "["+name+"...]")
		case p.metadata.Required:
			parts = append(parts, "<"+name+">")
		default:
			parts = append(parts, "["+name+"]")
		}
	}
	return strings.Join(parts, " ")
}

// helpEntry renders one parameter's syntax column and description.
func helpEntry(p *resolvedParam) (syntax, desc string) {
	placeholder := "<" + p.metadata.HelpName + ">"
	switch k := p.key.(type) {
	case OptionKey:
		var names []string
		if k.Short != "" {
			names = append(names, "-"+k.Short)
		}
		if k.Long != "" {
			names = append(names, "--"+k.Long)
		}
		syntax = strings.Join(names, ", ") + " " + placeholder
	case FlagKey:
		var names []string
		for _, n := range []string{k.PosShort, k.NegShort} {
			if n != "" {
				names = append(names, "-"+n)
			}
		}
		for _, n := range []string{k.PosLong, k.NegLong} {
			if n != "" {
				names = append(names, "--"+n)
			}
		}
		syntax = strings.Join(names, ", ")
	case PositionalKey:
		syntax = placeholder
	}
	desc = p.metadata.HelpDescription
	if def, ok := p.keyDefault(); ok {
		if desc != "" {
			desc += " "
		}
		desc += fmt.Sprintf("(default: %s)", def)
	}
	return syntax, desc
}

// genCliProvider emits one provider method reading the parsed
// argument vector.
func (g *gen) genCliProvider(moduleName string, p *resolvedParam, rep representation) {
	kind := kindLabel(p.key)
	display := p.key.DisplayName()
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

	isFlag := false
	switch k := p.key.(type) {
	case OptionKey:
		g.p("\tvs := m.parsed.Options[%q]\n", optionID(k))
	case FlagKey:
		isFlag = true
		g.p("\tvs := m.parsed.Flags[%q]\n", flagID(k))
	case PositionalKey:
		if rep.list {
			g.p("\tvar vs []string\n")
			g.p("\tif len(m.parsed.Args) > %d {\n", k.Index)
			g.p("\t\tvs = m.parsed.Args[%d:]\n", k.Index)
			g.p("\t}\n")
		} else {
			g.p("\tvar vs []string\n")
			g.p("\tif len(m.parsed.Args) > %d {\n", k.Index)
			g.p("\t\tvs = m.parsed.Args[%d : %d]\n", k.Index, k.Index+1)
			g.p("\t}\n")
		}
	}

	g.p("\tif len(vs) == 0 {\n")
	switch {
	case hasDef:
		if isFlag {
			g.p("\t\tvs = []bool{%s}\n", def)
		} else {
			g.p("\t\tvs = []string{%q}\n", def)
		}
	case required:
		runtimePkg := g.qualifyImport("rapier", runtimeImportPath)
		g.p("\t\treturn zero, &%s.UnsetError{Kind: %q, Key: %q}\n", runtimePkg, kind, display)
	default:
		if fallible {
			g.p("\t\treturn nil, nil\n")
		} else {
			g.p("\t\treturn nil\n")
		}
	}
	g.p("\t}\n")

	if rep.list {
		g.genConvert(rep.conv, "out", "vs", kind, display)
		if fallible {
			g.p("\treturn out, nil\n")
		} else {
			g.p("\treturn out\n")
		}
	} else {
		// Scalar reading of a repeatable value: last occurrence wins.
		g.p("\tv := vs[len(vs)-1]\n")
		g.genConvert(rep.conv, "out", "v", kind, display)
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
