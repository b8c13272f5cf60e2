// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the zhai front ends.
//
// All colors use Lip Gloss AdaptiveColor for automatic light/dark
// detection; the [ui] theme setting can force either.
//
// # Key Types
//
//   - Theme: every style the TUI and the REPL draw with
//   - SpinnerConfig: frames for the typing placeholder
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	fmt.Println(theme.BotLabel.Render("翟助手") + " " + theme.BotText.Render(reply))
package styles
