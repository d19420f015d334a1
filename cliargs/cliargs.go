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

// Package cliargs is the low-level command-line tokenizer used by
// rapier-generated CLI modules. It has a deliberately small, fixed
// contract: given the raw arguments and name-to-identity lookup tables
// for options and flags, it returns the positional arguments plus
// multimaps of option values and flag values, or a *SyntaxError.
package cliargs

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// A SyntaxError reports malformed user input: an unrecognized
// parameter name, or an option with no value.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string { return e.Message }

func syntaxErrorf(format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{Message: fmt.Sprintf(format, args...)}
}

// An ExitError is returned by generated CLI module constructors in
// place of a process exit, carrying the intended exit status. This
// lets tests assert on exit behavior without terminating the test
// process. Use Exit in a real main to honor it.
type ExitError struct {
	Status int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Status) }

// Exit terminates the process according to err: an *ExitError exits
// with its carried status, any other non-nil error prints to stderr
// and exits 1, and nil returns.
func Exit(err error) {
	if err == nil {
		return
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		os.Exit(ee.Status)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

// A FlagRef identifies the parameter a flag name binds to and the
// boolean value an occurrence of that name records. Negative names
// (e.g. --no-verbose) carry Value false.
type FlagRef struct {
	ID    string
	Value bool
}

// Tables holds the four name-to-identity lookup tables consulted
// during tokenization. Short names are single characters without the
// leading "-"; long names omit the leading "--".
type Tables struct {
	OptionShorts map[string]string
	OptionLongs  map[string]string
	FlagShorts   map[string]FlagRef
	FlagLongs    map[string]FlagRef
}

// Parsed is the result of a successful Parse. Options and Flags are
// keyed by parameter identity, not by name, so a parameter reachable
// under several names accumulates into one entry.
type Parsed struct {
	// Args holds the positional arguments in order.
	Args []string

	// Options maps option identity to the values given, in order.
	Options map[string][]string

	// Flags maps flag identity to the boolean occurrences, in order.
	Flags map[string][]bool
}

// Parse tokenizes raw command-line arguments against the given lookup
// tables. A literal "--" ends parameter parsing; everything after it
// is positional. Long options accept both "--name value" and
// "--name=value". Short flags may be bundled ("-vv"); a short option
// inside a bundle consumes the rest of the token as its value, or the
// next argument if the token is exhausted.
func Parse(args []string, t Tables) (*Parsed, error) {
	p := &Parsed{
		Options: make(map[string][]string),
		Flags:   make(map[string][]bool),
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			p.Args = append(p.Args, args[i+1:]...)
			return p, nil
		case strings.HasPrefix(arg, "--"):
			name := arg[2:]
			value := ""
			hasValue := false
			if j := strings.IndexByte(name, '='); j != -1 {
				name, value = name[:j], name[j+1:]
				hasValue = true
			}
			if id, ok := t.OptionLongs[name]; ok {
				if !hasValue {
					if i+1 >= len(args) {
						return nil, syntaxErrorf("option --%s requires a value", name)
					}
					i++
					value = args[i]
				}
				p.Options[id] = append(p.Options[id], value)
				continue
			}
			if ref, ok := t.FlagLongs[name]; ok {
				if hasValue {
					return nil, syntaxErrorf("flag --%s does not take a value", name)
				}
				p.Flags[ref.ID] = append(p.Flags[ref.ID], ref.Value)
				continue
			}
			return nil, syntaxErrorf("unrecognized parameter --%s", name)
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			rest := arg[1:]
			for len(rest) > 0 {
				name := rest[:1]
				rest = rest[1:]
				if ref, ok := t.FlagShorts[name]; ok {
					p.Flags[ref.ID] = append(p.Flags[ref.ID], ref.Value)
					continue
				}
				id, ok := t.OptionShorts[name]
				if !ok {
					return nil, syntaxErrorf("unrecognized parameter -%s", name)
				}
				value := rest
				if value == "" {
					if i+1 >= len(args) {
						return nil, syntaxErrorf("option -%s requires a value", name)
					}
					i++
					value = args[i]
				}
				p.Options[id] = append(p.Options[id], value)
				rest = ""
			}
		default:
			p.Args = append(p.Args, arg)
		}
	}
	return p, nil
}
