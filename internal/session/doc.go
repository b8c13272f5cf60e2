// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the logged-in identity of the zhai client.
//
// A Session is either complete (user name, user id and token all present)
// or absent. Store is the only writer: it validates usernames, asks the
// backend to authenticate, persists the result under the authToken and
// userInfo keys, and restores it on the next start.
//
// # Key Types
//
//   - Session: {UserName, UserID, Token}
//   - Store: login, logout, restore and current session
//   - Authenticator: the remote login call, satisfied by *chatapi.Client
//   - LoginRejectedError: a login the user can correct
//   - CorruptStateError: persisted data that could not form a Session
//
// # Usage
//
//	store := session.NewStore(kv, client, session.Options{})
//	if sess, ok := store.Restore(ctx); ok {
//	    fmt.Println("welcome back", sess.UserName)
//	}
//	sess, err := store.Login(ctx, "Alice")
//	var rejected *session.LoginRejectedError
//	if errors.As(err, &rejected) {
//	    fmt.Println(rejected.Reason)
//	}
//
// Restore fails closed: anything that does not decode into a complete
// Session matching the stored token is cleared and reported as logged out.
package session
