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
	"go/ast"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func commentGroup(lines ...string) *ast.CommentGroup {
	cg := new(ast.CommentGroup)
	for _, l := range lines {
		cg.List = append(cg.List, &ast.Comment{Text: "// " + l})
	}
	return cg
}

func TestExtractDirectives(t *testing.T) {
	tests := []struct {
		name string
		cg   *ast.CommentGroup
		want []directive
	}{
		{
			name: "Nil",
			cg:   nil,
			want: nil,
		},
		{
			name: "NoDirectives",
			cg:   commentGroup("Timeout is how long to wait."),
			want: nil,
		},
		{
			name: "Bare",
			cg:   commentGroup("rapier:component"),
			want: []directive{{kind: "component"}},
		},
		{
			name: "WithLine",
			cg:   commentGroup("rapier:env TIMEOUT default=30"),
			want: []directive{{kind: "env", line: "TIMEOUT default=30"}},
		},
		{
			name: "MixedWithProse",
			cg: commentGroup(
				"Timeout is how long to wait.",
				"rapier:env TIMEOUT",
			),
			want: []directive{{kind: "env", line: "TIMEOUT"}},
		},
		{
			name: "Multiple",
			cg: commentGroup(
				"rapier:component",
				"rapier:include DbModule",
			),
			want: []directive{
				{kind: "component"},
				{kind: "include", line: "DbModule"},
			},
		},
		{
			name: "MidLineIgnored",
			cg:   commentGroup("see rapier:env for details"),
			want: nil,
		},
		{
			// The canonical form has no space after the slashes, so
			// CommentGroup.Text drops it as a comment directive. The
			// extractor must not depend on Text.
			name: "NoSpaceAfterSlashes",
			cg: &ast.CommentGroup{List: []*ast.Comment{
				{Text: "// Config holds settings."},
				{Text: "//rapier:component"},
				{Text: "//rapier:include DbModule"},
			}},
			want: []directive{
				{kind: "component"},
				{kind: "include", line: "DbModule"},
			},
		},
		{
			name: "BlockComment",
			cg: &ast.CommentGroup{List: []*ast.Comment{
				{Text: "/*\nrapier:env TIMEOUT\n*/"},
			}},
			want: []directive{{kind: "env", line: "TIMEOUT"}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := extractDirectives(nil, test.cg)
			diff := cmp.Diff(test.want, got,
				cmp.AllowUnexported(directive{}),
				cmpopts.IgnoreFields(directive{}, "pos"))
			if diff != "" {
				t.Errorf("extractDirectives mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDirectiveArgs(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "Empty",
			line: "",
			want: nil,
		},
		{
			name: "Plain",
			line: "TIMEOUT default=30",
			want: []string{"TIMEOUT", "default=30"},
		},
		{
			name: "ExtraSpaces",
			line: "  a   b  ",
			want: []string{"a", "b"},
		},
		{
			name: "QuotedValue",
			line: `help="time to wait" name=timeout`,
			want: []string{`help="time to wait"`, "name=timeout"},
		},
		{
			name: "QuotedWithEscape",
			line: `help="say \"hi\""`,
			want: []string{`help="say \"hi\""`},
		},
		{
			name: "WholeTokenQuoted",
			line: `"two words"`,
			want: []string{`"two words"`},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			d := directive{kind: "env", line: test.line}
			if diff := cmp.Diff(test.want, d.args()); diff != "" {
				t.Errorf("args() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	d := directive{kind: "env", line: `TIMEOUT default=30 help="time to wait"`}
	pa, err := d.parseArgs()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"TIMEOUT"}, pa.bare); diff != "" {
		t.Errorf("bare mismatch (-want +got):\n%s", diff)
	}
	if v, ok := pa.take("default"); !ok || v != "30" {
		t.Errorf("take(default) = %q, %t; want 30, true", v, ok)
	}
	if v, ok := pa.take("help"); !ok || v != "time to wait" {
		t.Errorf("take(help) = %q, %t; want unquoted text, true", v, ok)
	}
	if err := pa.finish(d); err != nil {
		t.Errorf("finish after taking everything: %v", err)
	}
}

func TestParseArgsDuplicateAttribute(t *testing.T) {
	d := directive{kind: "env", line: "TIMEOUT default=1 default=2"}
	if _, err := d.parseArgs(); err == nil {
		t.Error("parseArgs accepted a duplicate attribute")
	}
}

func TestFinishUnknownAttribute(t *testing.T) {
	d := directive{kind: "env", line: "TIMEOUT bogus=1"}
	pa, err := d.parseArgs()
	if err != nil {
		t.Fatal(err)
	}
	err = pa.finish(d)
	if err == nil {
		t.Fatal("finish accepted an unknown attribute")
	}
	if got, want := err.Error(), `rapier:env: unknown attribute "bogus"`; got != want {
		t.Errorf("finish error = %q; want %q", got, want)
	}
}

func TestParseSymbolRef(t *testing.T) {
	tests := []struct {
		ref     string
		want    symref
		wantErr bool
	}{
		{ref: "DbModule", want: symref{name: "DbModule"}},
		{ref: "config.DbModule", want: symref{pkgName: "config", name: "DbModule"}},
		{ref: `"example.com/app/config".DbModule`, want: symref{importPath: "example.com/app/config", name: "DbModule"}},
		{ref: "", wantErr: true},
		{ref: "config.", wantErr: true},
		{ref: `"unterminated.Db`, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.ref, func(t *testing.T) {
			got, err := parseSymbolRef(test.ref)
			if test.wantErr {
				if err == nil {
					t.Fatalf("parseSymbolRef(%q) succeeded; want error", test.ref)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSymbolRef(%q): %v", test.ref, err)
			}
			if diff := cmp.Diff(test.want, got, cmp.AllowUnexported(symref{})); diff != "" {
				t.Errorf("parseSymbolRef(%q) mismatch (-want +got):\n%s", test.ref, diff)
			}
		})
	}
}
