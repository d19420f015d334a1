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
	"strings"
	"testing"
)

func param(key ParameterKey, required, list bool) *resolvedParam {
	return &resolvedParam{
		key:      key,
		sites:    []qualifiedSite{{site: &InjectionSite{}}},
		metadata: ParameterMetadata{Required: required, List: list},
	}
}

func testCommand() *CommandMetadata {
	return &CommandMetadata{Name: "mytool", ProvideHelp: true, ProvideVersion: true}
}

func runValidate(cmd *CommandMetadata, params ...*resolvedParam) []error {
	note := func(_ *InjectionSite, err error) error { return err }
	return validateCli(cmd, params, note)
}

func assertDiagnostic(t *testing.T, errs []error, fragment string) {
	t.Helper()
	for _, err := range errs {
		if strings.Contains(err.Error(), fragment) {
			return
		}
	}
	t.Errorf("no diagnostic containing %q in %v", fragment, errs)
}

func TestValidateCliClean(t *testing.T) {
	errs := runValidate(testCommand(),
		param(PositionalKey{Index: 0}, true, false),
		param(PositionalKey{Index: 1}, false, true),
		param(OptionKey{Short: "a", Long: "alpha"}, true, false),
		param(FlagKey{PosShort: "v", PosLong: "verbose", NegLong: "no-verbose"}, false, false),
	)
	if len(errs) > 0 {
		t.Errorf("validateCli = %v; want no diagnostics", errs)
	}
}

func TestValidateCliPositionalGap(t *testing.T) {
	errs := runValidate(testCommand(),
		param(PositionalKey{Index: 0}, true, false),
		param(PositionalKey{Index: 2}, true, false),
	)
	assertDiagnostic(t, errs, "contiguous")
}

func TestValidateCliRequiredAfterOptional(t *testing.T) {
	errs := runValidate(testCommand(),
		param(PositionalKey{Index: 0}, false, false),
		param(PositionalKey{Index: 1}, true, false),
	)
	assertDiagnostic(t, errs, "follows an optional")
}

func TestValidateCliListPositionalNotLast(t *testing.T) {
	errs := runValidate(testCommand(),
		param(PositionalKey{Index: 0}, true, true),
		param(PositionalKey{Index: 1}, true, false),
	)
	assertDiagnostic(t, errs, "must be the last")
}

func TestValidateCliDuplicateShortName(t *testing.T) {
	errs := runValidate(testCommand(),
		param(OptionKey{Short: "a"}, true, false),
		param(FlagKey{PosShort: "a"}, false, false),
	)
	assertDiagnostic(t, errs, "-a is claimed by both")
}

func TestValidateCliDuplicateLongName(t *testing.T) {
	errs := runValidate(testCommand(),
		param(OptionKey{Long: "alpha"}, true, false),
		param(FlagKey{NegLong: "alpha"}, false, false),
	)
	assertDiagnostic(t, errs, "--alpha is claimed by both")
}

func TestValidateCliSameKeyMayReuseItsNames(t *testing.T) {
	// One flag claiming four distinct names is not a collision.
	errs := runValidate(testCommand(),
		param(FlagKey{PosShort: "v", PosLong: "verbose", NegShort: "q", NegLong: "quiet"}, false, false),
	)
	if len(errs) > 0 {
		t.Errorf("validateCli = %v; want no diagnostics", errs)
	}
}

func TestValidateCliReservedNames(t *testing.T) {
	errs := runValidate(testCommand(),
		param(OptionKey{Short: "h"}, false, false),
		param(FlagKey{PosLong: "version"}, false, false),
	)
	assertDiagnostic(t, errs, "-h is reserved")
	assertDiagnostic(t, errs, "--version is reserved")
}

func TestValidateCliReservedNamesReleasedWhenDisabled(t *testing.T) {
	cmd := &CommandMetadata{Name: "mytool"}
	errs := runValidate(cmd,
		param(OptionKey{Short: "h", Long: "help"}, false, false),
		param(FlagKey{PosShort: "V", PosLong: "version"}, false, false),
	)
	if len(errs) > 0 {
		t.Errorf("validateCli = %v; want no diagnostics with help and version disabled", errs)
	}
}

func TestValidateCliAccumulatesDiagnostics(t *testing.T) {
	errs := runValidate(testCommand(),
		param(PositionalKey{Index: 1}, true, false),
		param(OptionKey{Short: "h"}, false, false),
		param(OptionKey{Long: "alpha"}, true, false),
		param(FlagKey{PosLong: "alpha"}, false, false),
	)
	if len(errs) < 3 {
		t.Errorf("errs = %v; want all three diagnostics in one pass", errs)
	}
}
