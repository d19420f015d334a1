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
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// A directive is a parsed rapier comment, e.g.
// "rapier:env TIMEOUT default=30000".
type directive struct {
	pos  token.Pos
	kind string
	line string
}

func (d directive) isValid() bool {
	return d.kind != ""
}

// extractDirectives appends the directives found in a comment group.
// Comments are scanned raw rather than through CommentGroup.Text,
// which strips directive-shaped lines like //rapier:component.
func extractDirectives(d []directive, cg *ast.CommentGroup) []directive {
	const prefix = "rapier:"
	if cg == nil {
		return d
	}
	for _, c := range cg.List {
		text := c.Text
		switch {
		case strings.HasPrefix(text, "//"):
			text = text[2:]
		case strings.HasPrefix(text, "/*"):
			text = strings.TrimSuffix(text[2:], "*/")
		}
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, prefix) {
				// Directives start a line.
				continue
			}
			line = line[len(prefix):]
			if i := strings.IndexByte(line, ' '); i != -1 {
				d = append(d, directive{
					kind: line[:i],
					line: strings.TrimSpace(line[i+1:]),
					pos:  c.Pos(),
				})
			} else {
				d = append(d, directive{
					kind: line,
					pos:  c.Pos(),
				})
			}
		}
	}
	return d
}

// args splits the directive line into tokens. Tokens may contain
// double-quoted sections with backslash escapes.
func (d directive) args() []string {
	var args []string
	start := -1
	state := 0 // 0 = boundary, 1 = in token, 2 = in quote, 3 = quote backslash
	for i, r := range d.line {
		switch state {
		case 0:
			// Argument boundary
			switch {
			case r == '"':
				start = i
				state = 2
			case !unicode.IsSpace(r):
				start = i
				state = 1
			}
		case 1:
			// In token
			switch {
			case unicode.IsSpace(r):
				args = append(args, d.line[start:i])
				start = -1
				state = 0
			case r == '"':
				state = 2
			}
		case 2:
			// In quotes
			switch {
			case r == '"':
				state = 1
			case r == '\\':
				state = 3
			}
		case 3:
			// Quote backslash. Consumes one character and jumps back
			// into the "in quote" state.
			state = 2
		default:
			panic("unreachable")
		}
	}
	if start != -1 {
		args = append(args, d.line[start:])
	}
	return args
}

// directiveArgs is a directive line split into positional tokens and
// key=value attributes.
type directiveArgs struct {
	bare []string
	kv   map[string]string
}

// parseArgs interprets the directive's tokens. A token containing '='
// is a key=value attribute; its value is unquoted if quoted. Repeated
// attribute keys are an error.
func (d directive) parseArgs() (directiveArgs, error) {
	pa := directiveArgs{kv: make(map[string]string)}
	for _, tok := range d.args() {
		i := strings.IndexByte(tok, '=')
		if i == -1 {
			pa.bare = append(pa.bare, unquoteToken(tok))
			continue
		}
		k, v := tok[:i], unquoteToken(tok[i+1:])
		if k == "" {
			return directiveArgs{}, fmt.Errorf("rapier:%s: empty attribute name in %q", d.kind, tok)
		}
		if _, dup := pa.kv[k]; dup {
			return directiveArgs{}, fmt.Errorf("rapier:%s: duplicate attribute %q", d.kind, k)
		}
		pa.kv[k] = v
	}
	return pa, nil
}

func unquoteToken(tok string) string {
	if strings.HasPrefix(tok, `"`) && strings.HasSuffix(tok, `"`) && len(tok) >= 2 {
		if u, err := strconv.Unquote(tok); err == nil {
			return u
		}
	}
	return tok
}

// take removes and returns the named attribute.
func (pa directiveArgs) take(name string) (string, bool) {
	v, ok := pa.kv[name]
	if ok {
		delete(pa.kv, name)
	}
	return v, ok
}

// finish reports an error if any attribute was not consumed.
func (pa directiveArgs) finish(d directive) error {
	if len(pa.kv) == 0 {
		return nil
	}
	var names []string
	for k := range pa.kv {
		names = append(names, k)
	}
	// Deterministic message for tests and users alike.
	sort.Strings(names)
	return fmt.Errorf("rapier:%s: unknown attribute %q", d.kind, names[0])
}

// A symref is a parsed reference to a named type: "Name",
// "pkg.Name", or "\"import/path\".Name".
type symref struct {
	importPath string // empty means the declaring package
	pkgName    string // local package identifier, if used
	name       string
}

func parseSymbolRef(ref string) (symref, error) {
	i := strings.LastIndexByte(ref, '.')
	if i == -1 {
		if ref == "" {
			return symref{}, fmt.Errorf("empty symbol reference")
		}
		return symref{name: ref}, nil
	}
	imp, name := ref[:i], ref[i+1:]
	if name == "" {
		return symref{}, fmt.Errorf("parse symbol reference %q: missing name", ref)
	}
	if strings.HasPrefix(imp, `"`) {
		path, err := strconv.Unquote(imp)
		if err != nil {
			return symref{}, fmt.Errorf("parse symbol reference %q: bad import path", ref)
		}
		return symref{importPath: path, name: name}, nil
	}
	return symref{pkgName: imp, name: name}, nil
}

func (ref symref) String() string {
	switch {
	case ref.importPath != "":
		return strconv.Quote(ref.importPath) + "." + ref.name
	case ref.pkgName != "":
		return ref.pkgName + "." + ref.name
	default:
		return ref.name
	}
}
