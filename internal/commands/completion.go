// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// maxFileCompletions caps path candidates from a single directory.
const maxFileCompletions = 20

// Completion is one tab completion candidate.
type Completion struct {
	Value       string // inserted text
	Display     string // shown in the candidate list
	Description string
	Score       int
}

// Completer completes command names and file arguments.
type Completer struct {
	registry *Registry

	// FilesFn, when set, replaces directory listing for file arguments.
	FilesFn func(prefix string) []string
}

func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns candidates for input[:cursorPos], best first. A
// negative or out of range cursorPos means the end of input. Chat
// messages get none.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos >= 0 && cursorPos < len(input) {
		input = input[:cursorPos]
	}
	input = strings.TrimLeft(input, " \t")
	if !IsCommand(input) {
		return nil
	}

	tokens := tokenize(input)
	argStart := strings.HasSuffix(input, " ")
	switch {
	case len(tokens) == 0:
		return c.names("")
	case len(tokens) == 1 && !argStart:
		return c.names(tokens[0])
	}

	cmd := c.registry.Get(strings.ToLower(tokens[0]))
	if cmd == nil {
		return nil
	}
	idx, partial := len(tokens)-1, ""
	if !argStart {
		idx--
		partial = tokens[len(tokens)-1]
	}
	if idx >= len(cmd.Args) || cmd.Args[idx].Type != ArgTypeFile {
		return nil
	}
	if c.FilesFn != nil {
		return matching(c.FilesFn(partial), partial)
	}
	return listDir(partial)
}

// Line adapts Complete to liner: each candidate is the whole replacement line.
func (c *Completer) Line(line string) []string {
	var head string
	if i := strings.LastIndexAny(line, " \t"); i >= 0 {
		head = line[:i+1]
	}
	var lines []string
	for _, comp := range c.Complete(line, len(line)) {
		lines = append(lines, head+comp.Value)
	}
	return lines
}

// names completes command names. Aliases only join in once the user has
// typed past the bare slash.
func (c *Completer) names(partial string) []Completion {
	partial = strings.ToLower(partial)
	withAliases := partial != "" && partial != "/"

	var out []Completion
	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(cmd.Name, partial) {
			out = append(out, Completion{cmd.Name, cmd.Name, cmd.Description, score(cmd.Name, partial)})
		}
		if !withAliases {
			continue
		}
		for _, a := range cmd.Aliases {
			if strings.HasPrefix(a, partial) {
				out = append(out, Completion{a, a + " -> " + cmd.Name, cmd.Description, score(a, partial) - 10})
			}
		}
	}
	rank(out)
	return out
}

func matching(values []string, partial string) []Completion {
	var out []Completion
	for _, v := range values {
		if hasPrefixFold(v, partial) {
			out = append(out, Completion{Value: v, Display: v, Score: score(v, partial)})
		}
	}
	rank(out)
	return out
}

// listDir completes partial against the directory it names. Dot files are
// skipped unless partial's last element starts with a dot.
func listDir(partial string) []Completion {
	dir, prefix := filepath.Dir(partial), filepath.Base(partial)
	if partial == "" || strings.HasSuffix(partial, string(os.PathSeparator)) {
		dir, prefix = cmp.Or(partial, "."), ""
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	keepDir := dir != "." || strings.HasPrefix(partial, ".")
	var out []Completion
	for _, e := range entries {
		name := e.Name()
		if !hasPrefixFold(name, prefix) || (strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".")) {
			continue
		}
		comp := Completion{Value: name, Display: name, Description: "file", Score: score(name, prefix)}
		if keepDir {
			comp.Value = filepath.Join(dir, name)
		}
		if e.IsDir() {
			comp.Value += string(os.PathSeparator)
			comp.Description = "directory"
			comp.Score += 5
		}
		out = append(out, comp)
	}
	rank(out)
	if len(out) > maxFileCompletions {
		out = out[:maxFileCompletions]
	}
	return out
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

// score favors exact matches, then short prefix matches.
func score(value, partial string) int {
	value, partial = strings.ToLower(value), strings.ToLower(partial)
	if value == partial {
		return 200
	}
	s := 100 - len(value)/2
	if strings.HasPrefix(value, partial) {
		s += 70 - len(value)
	}
	return s
}

// rank orders by score, then value.
func rank(cs []Completion) {
	slices.SortFunc(cs, func(a, b Completion) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Value, b.Value))
	})
}
