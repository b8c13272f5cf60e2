// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller turns a submitted line of input into one rendered
// exchange: the user's message, a typing placeholder, and one animated
// bot reply.
//
// The controller depends only on small interfaces. A front end supplies a
// Renderer; the chat client is a Sender; the session store is Sessions.
// Tests drive it with a recording Renderer and no terminal at all.
//
// # Key Types
//
//   - Controller: one conversation, at most one request in flight
//   - Renderer: display capability (append, typing placeholder, reveal)
//   - Reveal: handle on a running reveal animation
//   - Role: who a rendered message belongs to
//
// # Usage
//
//	ctl := controller.New(renderer, client, sessions, controller.Options{
//	    Fallback: responder,
//	})
//	go func() {
//	    if err := ctl.Submit(ctx, input); errors.Is(err, controller.ErrBusy) {
//	        // tell the user to wait
//	    }
//	}()
//
// Submit blocks until the reveal finishes, so front ends call it off
// their UI thread.
package controller
