// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the header and status bar of the zhai TUI.

Both are plain structs with a View method; the chat model owns them and
updates their fields before rendering.

# Core Components

Header (header.go) - Brand, logged in user and backend health.
StatusBar (statusbar.go) - Request state of the current exchange, a
transient notice and key hints.

# Usage

	header := components.NewHeader(theme)
	header.User = "alice"
	header.Health = components.HealthUp
	header.SetWidth(width)
	s := header.View()
*/
package components
