// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typewriter reveals a reply into a display target one unit at a
// time, with a trailing cursor marker, on a fixed cadence.
//
// The animation is an explicit state machine driven by Step. Nothing in the
// Animator sleeps or owns a goroutine; a driver decides when the next step
// happens. Run drives an Animator with a Clock, and each step is scheduled
// only after the previous one has returned, so steps never overlap.
//
// # Key Types
//
//   - Animator: Idle -> Revealing -> Done | Cancelled
//   - Target: where visible text goes (a transcript entry, a terminal line)
//   - Clock: schedules the next step (RealClock, ManualClock, or a UI loop)
//
// A unit is a grapheme cluster, so combining marks and emoji sequences are
// revealed whole.
//
// # Usage
//
//	a := typewriter.Animate(target, reply, 30*time.Millisecond, typewriter.RealClock())
//	<-a.Done()
//
// Tests use ManualClock to drive the animation synchronously:
//
//	clock := typewriter.NewManualClock()
//	a := typewriter.Animate(target, "hi", 0, clock)
//	clock.RunAll()
package typewriter
