// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the zhai command line.
//
// The command tree is built with cobra. Running zhai with no subcommand
// starts the front end chosen by ui.mode: the Bubble Tea interface from
// package ui/chat, or the line based REPL in this package. Both drive the
// same controller and session store, wired by App.wire from the loaded
// configuration.
//
// # Commands
//
//	zhai                 start the configured front end
//	zhai tui             full screen interface
//	zhai chat            line based chat (liner input, typewriter output)
//	zhai login [name]    log in and persist the session
//	zhai logout          clear the persisted session
//	zhai whoami          show the persisted session
//	zhai ask <message>   one exchange, animated, --plain or --json
//	zhai health          GET /health
//	zhai doctor          check config, backend, storage and fallback
//	zhai config show     effective configuration, secrets redacted
//	zhai config path     configuration file location
//	zhai config init     write the defaults to the configuration file
//
// # Global Flags
//
//	-c, --config FILE    configuration file (default ~/.zhai/config.toml)
//	--url URL            backend base URL
//	--strict             show errors instead of fallback replies
//	--log-level LEVEL    debug, info, warn or error
//	--log-file FILE      append logs to FILE
//	--json               JSON envelope output where supported
//
// # Exit Codes
//
//	0  success
//	1  general error
//	2  usage error, or a terminal is required
//	3  invalid configuration
//	4  login rejected or not logged in
//	5  backend unreachable or non-success HTTP status
//	6  backend answered with an error record
package cli
