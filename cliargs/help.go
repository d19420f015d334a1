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

package cliargs

import (
	"strings"
)

// Fixed help layout: two-space indent, sixteen-column name field, a
// two-space gutter, and descriptions wrapped at sixty columns.
const (
	helpIndent    = 2
	helpNameWidth = 16
	helpGutter    = 2
	helpWrapWidth = 60
)

// A HelpEntry is one parameter line in the generated help text.
type HelpEntry struct {
	// Syntax is the rendered name column, e.g. "-a, --alpha <alpha>".
	Syntax string

	// Description is the free-form help text; it may be empty.
	Description string
}

// HelpInfo carries the command metadata a generated CLI module embeds
// for its standard help and version messages.
type HelpInfo struct {
	Name        string
	Version     string
	Description string

	// Synopsis is the one-line argument summary following the command
	// name in the usage line, e.g. "[options] <input>".
	Synopsis string

	Entries []HelpEntry
}

// Help renders the standard help message.
func (h HelpInfo) Help() string {
	sb := new(strings.Builder)
	sb.WriteString("Usage: ")
	sb.WriteString(h.Name)
	if h.Synopsis != "" {
		sb.WriteString(" ")
		sb.WriteString(h.Synopsis)
	}
	sb.WriteString("\n")
	if h.Description != "" {
		sb.WriteString("\n")
		for _, line := range wrap(h.Description, helpWrapWidth) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	if len(h.Entries) > 0 {
		sb.WriteString("\nParameters:\n")
		for _, e := range h.Entries {
			writeEntry(sb, e)
		}
	}
	return sb.String()
}

// VersionMessage renders the standard version message.
func (h HelpInfo) VersionMessage() string {
	if h.Version == "" {
		return h.Name + "\n"
	}
	return h.Name + " " + h.Version + "\n"
}

func writeEntry(sb *strings.Builder, e HelpEntry) {
	indent := strings.Repeat(" ", helpIndent)
	gutter := strings.Repeat(" ", helpGutter)
	contIndent := strings.Repeat(" ", helpIndent+helpNameWidth+helpGutter)
	lines := wrap(e.Description, helpWrapWidth)
	sb.WriteString(indent)
	sb.WriteString(e.Syntax)
	if len(lines) == 0 {
		sb.WriteString("\n")
		return
	}
	if len(e.Syntax) > helpNameWidth {
		// Name column overflows: start the description on its own line.
		sb.WriteString("\n")
		for _, line := range lines {
			sb.WriteString(contIndent)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		return
	}
	sb.WriteString(strings.Repeat(" ", helpNameWidth-len(e.Syntax)))
	sb.WriteString(gutter)
	sb.WriteString(lines[0])
	sb.WriteString("\n")
	for _, line := range lines[1:] {
		sb.WriteString(contIndent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

// wrap breaks s into lines no wider than width, splitting on spaces.
// A single word longer than width occupies its own line unsplit.
func wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	curr := words[0]
	for _, w := range words[1:] {
		if len(curr)+1+len(w) > width {
			lines = append(lines, curr)
			curr = w
			continue
		}
		curr += " " + w
	}
	return append(lines, curr)
}
