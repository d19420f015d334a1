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
	"strconv"
	"unicode/utf8"
)

// Kind identifies a configuration source.
type Kind int

const (
	KindCli Kind = iota
	KindEnv
	KindSsm
)

func (k Kind) String() string {
	switch k {
	case KindCli:
		return "cli"
	case KindEnv:
		return "env"
	case KindSsm:
		return "ssm"
	default:
		return "unknown"
	}
}

// label is the kind's user-facing noun, used in diagnostics and in
// generated runtime errors.
func (k Kind) label() string {
	switch k {
	case KindCli:
		return "command-line parameter"
	case KindEnv:
		return "environment variable"
	case KindSsm:
		return "AWS SSM parameter"
	default:
		return "parameter"
	}
}

// A ParameterKey is the canonical identity of one external
// configuration item. Implementations are comparable value types so
// they can key maps; sortKey gives a total order within a kind so
// generated code and diagnostics are stable across runs.
type ParameterKey interface {
	Kind() Kind
	// DisplayName is the user-facing identity used in diagnostics,
	// e.g. "TIMEOUT" or "-a / --alpha".
	DisplayName() string
	sortKey() string
}

// EnvKey identifies an environment variable. The default value is
// part of the identity: the same variable with different defaults is
// two distinct keys.
type EnvKey struct {
	Name       string
	Default    string
	HasDefault bool
}

func (k EnvKey) Kind() Kind          { return KindEnv }
func (k EnvKey) DisplayName() string { return k.Name }
func (k EnvKey) sortKey() string {
	if k.HasDefault {
		return k.Name + "\x00" + k.Default
	}
	return k.Name
}

// SsmKey identifies an AWS SSM parameter by path, with the default
// value part of the identity like EnvKey.
type SsmKey struct {
	Path       string
	Default    string
	HasDefault bool
}

func (k SsmKey) Kind() Kind          { return KindSsm }
func (k SsmKey) DisplayName() string { return k.Path }
func (k SsmKey) sortKey() string {
	if k.HasDefault {
		return k.Path + "\x00" + k.Default
	}
	return k.Path
}

// OptionKey identifies a command-line option parameter. At least one
// of Short and Long is set. Default values are resolved per use and
// are not part of the identity.
type OptionKey struct {
	Short string
	Long  string
}

func (k OptionKey) Kind() Kind { return KindCli }

func (k OptionKey) DisplayName() string {
	switch {
	case k.Short != "" && k.Long != "":
		return "-" + k.Short + " / --" + k.Long
	case k.Long != "":
		return "--" + k.Long
	default:
		return "-" + k.Short
	}
}

func (k OptionKey) sortKey() string {
	return "1\x00" + k.Long + "\x00" + k.Short
}

// FlagKey identifies a command-line flag parameter by its positive
// and negative names. At least one name is set.
type FlagKey struct {
	PosShort string
	PosLong  string
	NegShort string
	NegLong  string
}

func (k FlagKey) Kind() Kind { return KindCli }

func (k FlagKey) DisplayName() string {
	names := ""
	add := func(n string) {
		if n == "" {
			return
		}
		if names != "" {
			names += " / "
		}
		names += n
	}
	if k.PosShort != "" {
		add("-" + k.PosShort)
	}
	if k.PosLong != "" {
		add("--" + k.PosLong)
	}
	if k.NegShort != "" {
		add("-" + k.NegShort)
	}
	if k.NegLong != "" {
		add("--" + k.NegLong)
	}
	return names
}

func (k FlagKey) sortKey() string {
	return "2\x00" + k.PosLong + "\x00" + k.PosShort + "\x00" + k.NegLong + "\x00" + k.NegShort
}

// PositionalKey identifies a positional command-line parameter.
type PositionalKey struct {
	Index int
}

func (k PositionalKey) Kind() Kind          { return KindCli }
func (k PositionalKey) DisplayName() string { return "<" + strconv.Itoa(k.Index) + ">" }
func (k PositionalKey) sortKey() string     { return fmt.Sprintf("0\x00%09d", k.Index) }

// ParameterMetadata holds the resolved, conflict-free facts about one
// ParameterKey. Exactly one exists per key after resolution.
type ParameterMetadata struct {
	Required        bool
	List            bool
	HelpName        string
	HelpDescription string
}

// CommandMetadata describes a CLI component's command.
type CommandMetadata struct {
	Name        string
	Version     string
	Description string

	// ProvideHelp and ProvideVersion control synthesis of the
	// standard -h/--help and -V/--version flags.
	ProvideHelp    bool
	ProvideVersion bool
}

// siteAttrs are the per-use attributes of a qualifier that do not
// participate in key identity: CLI default values and help text.
type siteAttrs struct {
	defaultValue string
	hasDefault   bool
	helpName     string
	helpDesc     string
}

// qualifierKinds is the set of directive kinds that mark injection
// sites.
var qualifierKinds = map[string]bool{
	"env":        true,
	"ssm":        true,
	"option":     true,
	"flag":       true,
	"positional": true,
}

// extractKey maps a site's qualifier directive to its ParameterKey,
// enforcing kind-specific syntax rules. Violations are descriptive,
// user-facing errors.
func extractKey(site *InjectionSite) (ParameterKey, siteAttrs, error) {
	d := site.Qualifier
	pa, err := d.parseArgs()
	if err != nil {
		return nil, siteAttrs{}, err
	}
	var attrs siteAttrs
	attrs.helpName, _ = pa.take("name")
	attrs.helpDesc, _ = pa.take("help")
	switch d.kind {
	case "env":
		if len(pa.bare) != 1 || pa.bare[0] == "" {
			return nil, siteAttrs{}, fmt.Errorf("rapier:env requires exactly one variable name")
		}
		key := EnvKey{Name: pa.bare[0]}
		key.Default, key.HasDefault = pa.take("default")
		return key, attrs, pa.finish(d)
	case "ssm":
		if len(pa.bare) != 1 || pa.bare[0] == "" {
			return nil, siteAttrs{}, fmt.Errorf("rapier:ssm requires exactly one parameter path")
		}
		key := SsmKey{Path: pa.bare[0]}
		key.Default, key.HasDefault = pa.take("default")
		return key, attrs, pa.finish(d)
	case "option":
		if len(pa.bare) != 0 {
			return nil, siteAttrs{}, fmt.Errorf("rapier:option takes only key=value attributes")
		}
		key := OptionKey{}
		key.Short, _ = pa.take("short")
		key.Long, _ = pa.take("long")
		attrs.defaultValue, attrs.hasDefault = pa.take("default")
		if key.Short == "" && key.Long == "" {
			return nil, siteAttrs{}, fmt.Errorf("rapier:option requires a short or long name")
		}
		if key.Short != "" {
			if err := validShortName(key.Short); err != nil {
				return nil, siteAttrs{}, err
			}
		}
		if key.Long != "" {
			if err := validLongName(key.Long); err != nil {
				return nil, siteAttrs{}, err
			}
		}
		return key, attrs, pa.finish(d)
	case "flag":
		if len(pa.bare) != 0 {
			return nil, siteAttrs{}, fmt.Errorf("rapier:flag takes only key=value attributes")
		}
		key := FlagKey{}
		key.PosShort, _ = pa.take("short")
		key.PosLong, _ = pa.take("long")
		key.NegShort, _ = pa.take("noshort")
		key.NegLong, _ = pa.take("nolong")
		attrs.defaultValue, attrs.hasDefault = pa.take("default")
		if key.PosShort == "" && key.PosLong == "" && key.NegShort == "" && key.NegLong == "" {
			return nil, siteAttrs{}, fmt.Errorf("rapier:flag requires at least one name")
		}
		for _, s := range []string{key.PosShort, key.NegShort} {
			if s != "" {
				if err := validShortName(s); err != nil {
					return nil, siteAttrs{}, err
				}
			}
		}
		for _, l := range []string{key.PosLong, key.NegLong} {
			if l != "" {
				if err := validLongName(l); err != nil {
					return nil, siteAttrs{}, err
				}
			}
		}
		return key, attrs, pa.finish(d)
	case "positional":
		if len(pa.bare) != 1 {
			return nil, siteAttrs{}, fmt.Errorf("rapier:positional requires exactly one index")
		}
		index, err := strconv.Atoi(pa.bare[0])
		if err != nil || index < 0 {
			return nil, siteAttrs{}, fmt.Errorf("rapier:positional index must be a non-negative integer, got %q", pa.bare[0])
		}
		attrs.defaultValue, attrs.hasDefault = pa.take("default")
		return PositionalKey{Index: index}, attrs, pa.finish(d)
	default:
		return nil, siteAttrs{}, fmt.Errorf("rapier:%s is not a parameter qualifier", d.kind)
	}
}

func validShortName(s string) error {
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || !isNameRune(r) {
		return fmt.Errorf("short name %q must be a single letter or digit", s)
	}
	return nil
}

func validLongName(s string) error {
	if len(s) < 2 {
		return fmt.Errorf("long name %q must be at least two characters", s)
	}
	for i, r := range s {
		if isNameRune(r) {
			continue
		}
		if r == '-' && i > 0 && i < len(s)-1 {
			continue
		}
		return fmt.Errorf("long name %q contains invalid character %q", s, r)
	}
	return nil
}

func isNameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// A qualifiedSite pairs a site with its extracted per-use attributes.
type qualifiedSite struct {
	site  *InjectionSite
	attrs siteAttrs
}

// A siteGroup is the multimap entry for one ParameterKey.
type siteGroup struct {
	key   ParameterKey
	sites []qualifiedSite
}

// groupSites extracts keys for all sites and groups them by key, per
// kind, in deterministic order. Extraction failures become positioned
// diagnostics; the affected sites are dropped and grouping continues.
func groupSites(sites []*InjectionSite, note func(*InjectionSite, error) error) (map[Kind][]siteGroup, []error) {
	ec := new(errorCollector)
	index := make(map[ParameterKey]*siteGroup)
	var order []ParameterKey
	for _, site := range sites {
		key, attrs, err := extractKey(site)
		if err != nil {
			ec.add(note(site, err))
			continue
		}
		g := index[key]
		if g == nil {
			g = &siteGroup{key: key}
			index[key] = g
			order = append(order, key)
		}
		g.sites = append(g.sites, qualifiedSite{site: site, attrs: attrs})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].Kind() != order[j].Kind() {
			return order[i].Kind() < order[j].Kind()
		}
		return order[i].sortKey() < order[j].sortKey()
	})
	byKind := make(map[Kind][]siteGroup)
	for _, key := range order {
		byKind[key.Kind()] = append(byKind[key.Kind()], *index[key])
	}
	return byKind, ec.errors
}
