// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the Chimera Protocol backend.
//
// Every endpoint answers with the envelope {ok, data, error}. The client
// unwraps data into typed records and normalizes every failure into *Error,
// whatever its origin: a transport failure, a non-2xx status, an ok:false
// envelope, or a field-keyed validation object.
//
// # Key Types
//
//   - Client: Authenticated JSON client with retry and client-side rate limiting
//   - Error: Normalized failure with a Kind, HTTP status and display message
//   - ErrorKind: Transport, Status, Envelope or Validation
//
// # Usage
//
//	client := api.New(api.DefaultBaseURL, api.WithTimeout(30*time.Second))
//	auth, err := client.Login(ctx, email, password)
//	if err != nil {
//	    return err
//	}
//	client.SetToken(auth.Token)
//	convs, err := client.ListConversations(ctx, workspaceID)
//
// # Retries
//
// GET, PUT and DELETE are retried with exponential backoff on transport
// errors, 5xx and 429. POST is never retried, so sending a message cannot
// produce a duplicate.
package api
