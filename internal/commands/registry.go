// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"cmp"
	"slices"
)

// Command names. The front ends switch on these after Parse.
const (
	Help   = "/help"
	Quit   = "/quit"
	Clear  = "/clear"
	Copy   = "/copy"
	Export = "/export"
	WhoAmI = "/whoami"
	Health = "/health"
	Logout = "/logout"
)

// Command is one slash command as shown in help and completion.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string // "/export [file]"; empty means just Name
	Args        []ArgDef
	Hidden      bool
	Category    string
}

// ArgDef describes one positional argument.
type ArgDef struct {
	Name        string
	Required    bool
	Type        ArgType
	Description string
}

// ArgType selects argument completion.
type ArgType int

const (
	ArgTypeString ArgType = iota // no completion
	ArgTypeFile                  // path completion
)

// Registry resolves names and aliases to commands.
type Registry struct {
	byName map[string]*Command
}

// NewRegistry returns a registry holding the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Command)}
	for _, cmd := range builtins() {
		r.Register(cmd)
	}
	return r
}

// Register adds cmd under its name and every alias. A later registration
// wins over an earlier one with the same key.
func (r *Registry) Register(cmd *Command) {
	r.byName[cmd.Name] = cmd
	for _, a := range cmd.Aliases {
		r.byName[a] = cmd
	}
}

// Get looks up a command by name or alias; nil when unknown.
func (r *Registry) Get(name string) *Command {
	return r.byName[name]
}

// All returns each command once, ordered by name.
func (r *Registry) All() []*Command {
	var cmds []*Command
	for key, cmd := range r.byName {
		if key == cmd.Name {
			cmds = append(cmds, cmd)
		}
	}
	slices.SortFunc(cmds, func(a, b *Command) int { return cmp.Compare(a.Name, b.Name) })
	return cmds
}

// ByCategory groups the visible commands. Commands without a category
// land in "General".
func (r *Registry) ByCategory() map[string][]*Command {
	groups := make(map[string][]*Command)
	for _, cmd := range r.All() {
		if cmd.Hidden {
			continue
		}
		cat := cmp.Or(cmd.Category, "General")
		groups[cat] = append(groups[cat], cmd)
	}
	return groups
}

func builtins() []*Command {
	const (
		general = "General"
		convo   = "Conversation"
		session = "Session"
	)
	return []*Command{
		{Name: Help, Aliases: []string{"/h", "/?"}, Description: "Show available commands", Category: general},
		{Name: Quit, Aliases: []string{"/q", "/exit"}, Description: "Exit zhai", Category: general},

		{Name: Clear, Aliases: []string{"/cls"}, Description: "Clear the transcript", Category: convo},
		{Name: Copy, Aliases: []string{"/c"}, Description: "Copy the last reply to the clipboard", Category: convo},
		{
			Name:        Export,
			Aliases:     []string{"/e"},
			Description: "Write the transcript to a file (.html, .md or .json)",
			Usage:       "/export [file]",
			Args: []ArgDef{
				{Name: "file", Type: ArgTypeFile, Description: "Output path; the extension picks the format"},
			},
			Category: convo,
		},

		{Name: WhoAmI, Description: "Show the logged in user", Category: session},
		{Name: Health, Description: "Check that the assistant backend is up", Category: session},
		{Name: Logout, Description: "Cancel any reply in progress and log out", Category: session},
	}
}
