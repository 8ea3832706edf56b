// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides local key/value persistence for the Chimera client.
//
// The client keeps very little on disk: the session tokens, the signed-in
// user, the active workspace and a few preferences. Everything else is a cache
// of server state and is refetched on start.
//
// # Backends
//
//   - sqlite: single-table store in a pure Go SQLite database (default)
//   - bolt: single-bucket BoltDB file
//
// # Sealing
//
// Sealed wraps any Store so values are encrypted at rest with
// ChaCha20-Poly1305 under a key derived from a passphrase with PBKDF2.
//
// # Usage
//
//	st, err := storage.Open(storage.DriverSQLite, path)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//	if err := st.Put("active_workspace", []byte(id)); err != nil {
//	    return err
//	}
package storage
