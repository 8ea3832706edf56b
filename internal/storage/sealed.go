// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size of the salt for key derivation (32 bytes).
	SaltSize = 32

	// PBKDF2Iterations is the number of iterations for PBKDF2 key derivation.
	PBKDF2Iterations = 600000

	// saltKey is where the salt lives inside the wrapped store. It is stored in the clear.
	saltKey = "_seal/salt"

	// sealedPrefix marks a sealed value (format: SEAL1|nonce|ciphertext|tag).
	sealedPrefix = "SEAL1"
)

var (
	// ErrInvalidCiphertext indicates a stored value is not a sealed value.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	// ErrWrongPassphrase indicates the value could not be authenticated.
	ErrWrongPassphrase = errors.New("cannot decrypt value: wrong passphrase or corrupted data")
)

// =============================================================================
// SEALER
// =============================================================================

// Sealer encrypts and decrypts values with XChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

// DeriveKey derives an encryption key from a passphrase and salt using PBKDF2-SHA-256.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, chacha20poly1305.KeySize, sha256.New)
}

// NewSealer returns a sealer for a 32-byte key.
func NewSealer(key []byte) (*Sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext. The key name is bound as associated data so a value
// cannot be moved to another key.
func (s *Sealer) Seal(key string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := append([]byte(sealedPrefix), s.aead.Seal(nonce, nonce, plaintext, []byte(key))...)
	return out, nil
}

// Open decrypts a value produced by Seal for the same key.
func (s *Sealer) Open(key string, sealed []byte) ([]byte, error) {
	if !strings.HasPrefix(string(sealed), sealedPrefix) {
		return nil, ErrInvalidCiphertext
	}
	body := sealed[len(sealedPrefix):]
	if len(body) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	nonce, ciphertext := body[:s.aead.NonceSize()], body[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}

// =============================================================================
// SEALED STORE
// =============================================================================

// SealedStore encrypts values before handing them to the wrapped store.
type SealedStore struct {
	inner  Store
	sealer *Sealer
}

// Sealed wraps inner with a sealer derived from passphrase. The salt is
// generated on first use and kept in inner.
func Sealed(inner Store, passphrase string) (*SealedStore, error) {
	salt, err := inner.Get(saltKey)
	if errors.Is(err, ErrNotFound) {
		salt = make([]byte, SaltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		if err := inner.Put(saltKey, salt); err != nil {
			return nil, fmt.Errorf("failed to save salt: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	sealer, err := NewSealer(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, sealer: sealer}, nil
}

// Get implements Store.
func (s *SealedStore) Get(key string) ([]byte, error) {
	data, err := s.inner.Get(key)
	if err != nil {
		return nil, err
	}
	return s.sealer.Open(key, data)
}

// Put implements Store.
func (s *SealedStore) Put(key string, value []byte) error {
	sealed, err := s.sealer.Seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Put(key, sealed)
}

// Delete implements Store.
func (s *SealedStore) Delete(key string) error {
	return s.inner.Delete(key)
}

// Keys implements Store. The salt entry is hidden.
func (s *SealedStore) Keys(prefix string) ([]string, error) {
	keys, err := s.inner.Keys(prefix)
	if err != nil {
		return nil, err
	}
	out := keys[:0]
	for _, k := range keys {
		if k != saltKey {
			out = append(out, k)
		}
	}
	return out, nil
}

// Close implements Store.
func (s *SealedStore) Close() error {
	return s.inner.Close()
}
