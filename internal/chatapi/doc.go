// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi is the HTTP client for the zhai assistant backend.
//
// # Endpoints
//
//	GET  /health      {"status":"healthy","service":"..."}
//	POST /api/login   {"username"} -> {"success","user_name","user_id","token","message"}
//	POST /api/chat    Authorization: Bearer <token>, {"message"} -> NDJSON stream
//
// # Chat Exchange
//
// Send drives one exchange through these states:
//
//	Idle -> Requesting -> Streaming -> Answered | Errored | Exhausted
//	        Requesting -> Failed
//	        Streaming  -> Failed   (connection lost mid-stream)
//
// Consumption stops at the first terminal record. An "answer" record
// resolves Send with its response. An "error" record fails Send with a
// RemoteError. Records of any other type are ignored. A stream that ends
// with neither is Exhausted and resolves with NoValidReply, unless the
// client is configured with EndOfStreamFail.
//
// # Error Handling
//
// Every error is a *ClientError. Callers classify with IsNetworkFailure,
// IsRemoteError, IsLoginRejected and IsUnauthorized:
//
//	reply, err := client.Send(ctx, "hello", token)
//	if chatapi.IsRemoteError(err) {
//	    // the server said no
//	}
//
// Missing tokens fail fast without touching the network.
package chatapi
