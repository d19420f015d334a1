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
	"go/types"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func qualifiedTestSite(kind, line string) *InjectionSite {
	return &InjectionSite{
		Type:      types.Typ[types.String],
		Qualifier: directive{kind: kind, line: line},
	}
}

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		line      string
		wantKey   ParameterKey
		wantAttrs siteAttrs
		wantErr   bool
	}{
		{
			name:    "Env",
			kind:    "env",
			line:    "DATABASE_URL",
			wantKey: EnvKey{Name: "DATABASE_URL"},
		},
		{
			name:    "EnvWithDefault",
			kind:    "env",
			line:    "TIMEOUT default=30",
			wantKey: EnvKey{Name: "TIMEOUT", Default: "30", HasDefault: true},
		},
		{
			name:      "EnvWithHelp",
			kind:      "env",
			line:      `TIMEOUT name=timeout help="time to wait"`,
			wantKey:   EnvKey{Name: "TIMEOUT"},
			wantAttrs: siteAttrs{helpName: "timeout", helpDesc: "time to wait"},
		},
		{
			name:    "EnvMissingName",
			kind:    "env",
			line:    "",
			wantErr: true,
		},
		{
			name:    "EnvTwoNames",
			kind:    "env",
			line:    "FOO BAR",
			wantErr: true,
		},
		{
			name:    "Ssm",
			kind:    "ssm",
			line:    "/app/db/url",
			wantKey: SsmKey{Path: "/app/db/url"},
		},
		{
			name:    "SsmWithDefault",
			kind:    "ssm",
			line:    "/app/timeout default=30",
			wantKey: SsmKey{Path: "/app/timeout", Default: "30", HasDefault: true},
		},
		{
			name:    "OptionShortAndLong",
			kind:    "option",
			line:    "short=a long=alpha",
			wantKey: OptionKey{Short: "a", Long: "alpha"},
		},
		{
			name:    "OptionLongOnly",
			kind:    "option",
			line:    "long=alpha",
			wantKey: OptionKey{Long: "alpha"},
		},
		{
			name:      "OptionWithDefault",
			kind:      "option",
			line:      "long=alpha default=1",
			wantKey:   OptionKey{Long: "alpha"},
			wantAttrs: siteAttrs{defaultValue: "1", hasDefault: true},
		},
		{
			name:    "OptionNoNames",
			kind:    "option",
			line:    "",
			wantErr: true,
		},
		{
			name:    "OptionBareToken",
			kind:    "option",
			line:    "alpha",
			wantErr: true,
		},
		{
			name:    "OptionBadShortName",
			kind:    "option",
			line:    "short=ab",
			wantErr: true,
		},
		{
			name:    "OptionBadLongName",
			kind:    "option",
			line:    "long=a",
			wantErr: true,
		},
		{
			name:    "OptionLongNameBadRune",
			kind:    "option",
			line:    "long=al_pha",
			wantErr: true,
		},
		{
			name:    "OptionLongNameEdgeHyphen",
			kind:    "option",
			line:    "long=-alpha",
			wantErr: true,
		},
		{
			name:    "FlagAllNames",
			kind:    "flag",
			line:    "short=v long=verbose noshort=q nolong=no-verbose",
			wantKey: FlagKey{PosShort: "v", PosLong: "verbose", NegShort: "q", NegLong: "no-verbose"},
		},
		{
			name:    "FlagLongOnly",
			kind:    "flag",
			line:    "long=verbose",
			wantKey: FlagKey{PosLong: "verbose"},
		},
		{
			name:    "FlagNoNames",
			kind:    "flag",
			line:    "",
			wantErr: true,
		},
		{
			name:    "Positional",
			kind:    "positional",
			line:    "0",
			wantKey: PositionalKey{Index: 0},
		},
		{
			name:      "PositionalWithDefault",
			kind:      "positional",
			line:      "1 default=out.txt",
			wantKey:   PositionalKey{Index: 1},
			wantAttrs: siteAttrs{defaultValue: "out.txt", hasDefault: true},
		},
		{
			name:    "PositionalNegative",
			kind:    "positional",
			line:    "-1",
			wantErr: true,
		},
		{
			name:    "PositionalNotANumber",
			kind:    "positional",
			line:    "first",
			wantErr: true,
		},
		{
			name:    "UnknownAttribute",
			kind:    "env",
			line:    "FOO bogus=1",
			wantErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			key, attrs, err := extractKey(qualifiedTestSite(test.kind, test.line))
			if test.wantErr {
				if err == nil {
					t.Fatalf("extractKey succeeded with key %v; want error", key)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.wantKey, key); diff != "" {
				t.Errorf("key mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.wantAttrs, attrs, cmp.AllowUnexported(siteAttrs{})); diff != "" {
				t.Errorf("attrs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeyDisplayNames(t *testing.T) {
	tests := []struct {
		key  ParameterKey
		want string
	}{
		{EnvKey{Name: "TIMEOUT"}, "TIMEOUT"},
		{SsmKey{Path: "/app/db/url"}, "/app/db/url"},
		{OptionKey{Short: "a", Long: "alpha"}, "-a / --alpha"},
		{OptionKey{Long: "alpha"}, "--alpha"},
		{OptionKey{Short: "a"}, "-a"},
		{PositionalKey{Index: 2}, "<2>"},
	}
	for _, test := range tests {
		if got := test.key.DisplayName(); got != test.want {
			t.Errorf("DisplayName(%#v) = %q; want %q", test.key, got, test.want)
		}
	}
}

func TestGroupSites(t *testing.T) {
	note := func(_ *InjectionSite, err error) error { return err }

	sites := []*InjectionSite{
		qualifiedTestSite("option", "long=beta"),
		qualifiedTestSite("env", "TIMEOUT"),
		qualifiedTestSite("option", "long=alpha"),
		qualifiedTestSite("env", "TIMEOUT"),
		qualifiedTestSite("positional", "0"),
		qualifiedTestSite("ssm", "/app/db/url"),
		qualifiedTestSite("flag", "long=verbose"),
	}
	byKind, errs := groupSites(sites, note)
	if len(errs) > 0 {
		t.Fatalf("groupSites: %v", errs)
	}

	if got := len(byKind[KindEnv]); got != 1 {
		t.Errorf("env groups = %d; want 1", got)
	}
	if got := len(byKind[KindEnv][0].sites); got != 2 {
		t.Errorf("TIMEOUT sites = %d; want 2", got)
	}
	if got := len(byKind[KindSsm]); got != 1 {
		t.Errorf("ssm groups = %d; want 1", got)
	}

	// CLI ordering is deterministic: positionals by index, then
	// options, then flags.
	var order []string
	for _, g := range byKind[KindCli] {
		order = append(order, g.key.DisplayName())
	}
	want := []string{"<0>", "--alpha", "--beta", "--verbose"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("cli group order mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupSitesDistinctDefaultsAreDistinctKeys(t *testing.T) {
	note := func(_ *InjectionSite, err error) error { return err }
	sites := []*InjectionSite{
		qualifiedTestSite("env", "TIMEOUT default=30"),
		qualifiedTestSite("env", "TIMEOUT default=60"),
		qualifiedTestSite("env", "TIMEOUT"),
	}
	byKind, errs := groupSites(sites, note)
	if len(errs) > 0 {
		t.Fatalf("groupSites: %v", errs)
	}
	if got := len(byKind[KindEnv]); got != 3 {
		t.Errorf("env groups = %d; want 3 (default participates in identity)", got)
	}
}

func TestGroupSitesReportsBadKeys(t *testing.T) {
	note := func(_ *InjectionSite, err error) error { return err }
	sites := []*InjectionSite{
		qualifiedTestSite("env", ""),
		qualifiedTestSite("env", "GOOD"),
	}
	byKind, errs := groupSites(sites, note)
	if len(errs) != 1 {
		t.Fatalf("errs = %v; want exactly one", errs)
	}
	if got := len(byKind[KindEnv]); got != 1 {
		t.Errorf("env groups = %d; want 1 (bad site dropped, good site kept)", got)
	}
}
