// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the TUI and the
// REPL.
//
// The registry only describes commands; each front end dispatches on
// Command.Name and performs the action with its own display.
//
// # Key Types
//
//   - Registry: the built-in commands, looked up by name or alias
//   - ParseResult: parsed command with name and arguments
//   - Completer: tab completion for command names and file arguments
//
// # Built-in Commands
//
//   - /help, /quit, /clear, /copy, /export, /whoami, /health, /logout
//
// # Usage
//
//	registry := commands.NewRegistry()
//	result := commands.NewParser(registry).Parse(input)
//	if result.IsCommand && result.Command != nil {
//	    switch result.Command.Name { ... }
//	}
//
// Get completions:
//
//	completions := commands.NewCompleter(registry).Complete("/ex", 3)
//	// Returns ["/export", "/exit"]
package commands
