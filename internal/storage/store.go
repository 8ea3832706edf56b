// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported backend drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Well-known keys.
const (
	KeyAuthToken       = "auth_token"
	KeyRefreshToken    = "refresh_token"
	KeyUser            = "user"
	KeyActiveWorkspace = "active_workspace"
	KeyAutoStore       = "auto_store"
)

var (
	// ErrNotFound is returned by Get when the key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Store is a small persistent key/value store. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns the keys starting with prefix, sorted.
	Keys(prefix string) ([]string, error)
	// Close releases the underlying database.
	Close() error
}

// Open opens the store for driver at path, creating parent directories.
func Open(driver, path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		return OpenSQLite(path)
	case DriverBolt:
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// DefaultPath returns the default database path for driver under dir.
func DefaultPath(dir, driver string) string {
	if driver == DriverBolt {
		return filepath.Join(dir, "state.bolt")
	}
	return filepath.Join(dir, "state.db")
}

// =============================================================================
// JSON HELPERS
// =============================================================================

// GetJSON decodes the value for key into v.
func GetJSON(s Store, key string, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and stores it under key.
func PutJSON(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Put(key, data)
}

// GetString returns the value for key as a string, or "" when missing.
func GetString(s Store, key string) (string, error) {
	data, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeleteAll removes every key given, stopping at the first error.
func DeleteAll(s Store, keys ...string) error {
	for _, k := range keys {
		if err := s.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
