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
)

// Names the generated CLI module claims for itself when help and
// version messages are enabled.
const (
	reservedHelpShort    = "h"
	reservedHelpLong     = "help"
	reservedVersionShort = "V"
	reservedVersionLong  = "version"
)

// validateCli runs the cross-key checks over a component's resolved
// command-line parameters: positional layout, name uniqueness, and
// reserved-name collisions. All diagnostics accumulate; the caller
// aborts generation for the component only after every check has run.
func validateCli(cmd *CommandMetadata, params []*resolvedParam, note func(*InjectionSite, error) error) []error {
	ec := new(errorCollector)

	notep := func(p *resolvedParam, err error) {
		if len(p.sites) > 0 {
			ec.add(note(p.sites[0].site, err))
			return
		}
		ec.add(err)
	}

	// Positional layout. Indices must be contiguous from zero, no
	// required parameter may follow an optional one, and a list
	// parameter must be last.
	var positionals []*resolvedParam
	for _, p := range params {
		if _, ok := p.key.(PositionalKey); ok {
			positionals = append(positionals, p)
		}
	}
	sort.Slice(positionals, func(i, j int) bool {
		return positionals[i].key.(PositionalKey).Index < positionals[j].key.(PositionalKey).Index
	})
	seenOptional := false
	for i, p := range positionals {
		k := p.key.(PositionalKey)
		if k.Index != i {
			notep(p, fmt.Errorf("positional parameters must be contiguous from 0, but index %d is missing", i))
			break
		}
		if p.metadata.Required && seenOptional {
			notep(p, fmt.Errorf("required positional parameter %s follows an optional positional parameter", p.key.DisplayName()))
		}
		if !p.metadata.Required {
			seenOptional = true
		}
		if p.metadata.List && i != len(positionals)-1 {
			notep(p, fmt.Errorf("list positional parameter %s must be the last positional parameter", p.key.DisplayName()))
		}
	}

	// Name uniqueness across all options and flags, counting each of
	// a flag's four name slots.
	shorts := make(map[string]*resolvedParam)
	longs := make(map[string]*resolvedParam)
	claim := func(index map[string]*resolvedParam, dash, name string, p *resolvedParam) {
		if name == "" {
			return
		}
		if prev, ok := index[name]; ok && prev != p {
			notep(p, fmt.Errorf("name %s%s is claimed by both parameter %s and parameter %s", dash, name, prev.key.DisplayName(), p.key.DisplayName()))
			return
		}
		index[name] = p
	}
	for _, p := range params {
		switch k := p.key.(type) {
		case OptionKey:
			claim(shorts, "-", k.Short, p)
			claim(longs, "--", k.Long, p)
		case FlagKey:
			claim(shorts, "-", k.PosShort, p)
			claim(longs, "--", k.PosLong, p)
			claim(shorts, "-", k.NegShort, p)
			claim(longs, "--", k.NegLong, p)
		}
	}

	// Reserved names. Help and version default on, so -h/--help and
	// -V/--version are off limits unless the command disables them.
	if cmd != nil && cmd.ProvideHelp {
		if p, ok := shorts[reservedHelpShort]; ok {
			notep(p, fmt.Errorf("name -%s is reserved for the help message", reservedHelpShort))
		}
		if p, ok := longs[reservedHelpLong]; ok {
			notep(p, fmt.Errorf("name --%s is reserved for the help message", reservedHelpLong))
		}
	}
	if cmd != nil && cmd.ProvideVersion {
		if p, ok := shorts[reservedVersionShort]; ok {
			notep(p, fmt.Errorf("name -%s is reserved for the version message", reservedVersionShort))
		}
		if p, ok := longs[reservedVersionLong]; ok {
			notep(p, fmt.Errorf("name --%s is reserved for the version message", reservedVersionLong))
		}
	}

	return ec.errors
}
