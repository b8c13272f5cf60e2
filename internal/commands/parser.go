// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseResult is one parsed input line.
type ParseResult struct {
	IsCommand   bool     // line starts with /
	Command     *Command // nil when CommandName is unknown
	CommandName string   // lower cased first token
	Args        []string // tokens after the name, quotes removed
	RawArgs     string   // text after the name, untouched
}

// Err reports an unknown command or a missing required argument.
func (r ParseResult) Err() error {
	switch {
	case !r.IsCommand:
		return nil
	case r.Command == nil:
		return fmt.Errorf("unknown command %s (try /help)", r.CommandName)
	}
	for i, arg := range r.Command.Args {
		if arg.Required && i >= len(r.Args) {
			return fmt.Errorf("%s: missing %s (usage: %s)", r.Command.Name, arg.Name, r.Command.Usage)
		}
	}
	return nil
}

// Arg returns argument i, or "" when absent.
func (r ParseResult) Arg(i int) string {
	if i >= 0 && i < len(r.Args) {
		return r.Args[i]
	}
	return ""
}

// Parser turns input lines into ParseResults.
type Parser struct {
	registry *Registry
}

func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse splits a command line. Anything not starting with / is a chat
// message and yields a zero ParseResult.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	if !IsCommand(input) {
		return ParseResult{}
	}

	res := ParseResult{IsCommand: true}
	tokens := tokenize(input)
	if len(tokens) == 0 {
		return res
	}
	res.CommandName = strings.ToLower(tokens[0])
	res.Command = p.registry.Get(res.CommandName)
	if len(tokens) > 1 {
		res.Args = tokens[1:]
		if _, rest, ok := strings.Cut(input, tokens[0]); ok {
			res.RawArgs = strings.TrimSpace(rest)
		}
	}
	return res
}

// IsCommand reports whether input is a slash command rather than a message.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// tokenize splits on unquoted whitespace. Single and double quotes group,
// and inside quotes a backslash escapes a quote or another backslash.
func tokenize(input string) []string {
	var (
		tokens []string
		tok    strings.Builder
		quote  rune // open quote, 0 outside quotes
	)
	flush := func() {
		if tok.Len() > 0 {
			tokens = append(tokens, tok.String())
			tok.Reset()
		}
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case quote == 0 && (c == '"' || c == '\''):
			quote = c
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0 && c == '\\' && i+1 < len(runes) && strings.ContainsRune(`"'\`, runes[i+1]):
			i++
			tok.WriteRune(runes[i])
		case quote == 0 && unicode.IsSpace(c):
			flush()
		default:
			tok.WriteRune(c)
		}
	}
	flush()
	return tokens
}
