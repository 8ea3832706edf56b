// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/session"
)

// AuthStore signs the user in and out. It keeps the API client's bearer token
// in step with the session.
type AuthStore struct {
	notifier

	api     AuthAPI
	session *session.Manager
	log     *logrus.Entry

	mu     sync.Mutex
	resets []Resetter
}

// NewAuthStore creates an auth store over sess.
func NewAuthStore(client AuthAPI, sess *session.Manager, opts ...Option) *AuthStore {
	o := buildOptions("auth", opts)
	return &AuthStore{api: client, session: sess, log: o.log}
}

// OnLogout registers stores to reset when the user logs out.
func (s *AuthStore) OnLogout(stores ...Resetter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = append(s.resets, stores...)
}

func (s *AuthStore) begin(res *model.AuthResult) (*model.User, error) {
	if err := s.session.Begin(res); err != nil {
		return nil, err
	}
	s.api.SetToken(res.Token)
	s.log.WithField("user", res.User.Email).Info("signed in")
	s.changed()
	return s.session.User(), nil
}

// Login signs in with email and password.
func (s *AuthStore) Login(ctx context.Context, email, password string) (*model.User, error) {
	res, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.log.WithError(err).Warn("login failed")
		return nil, err
	}
	return s.begin(res)
}

// Register creates an account and signs in.
func (s *AuthStore) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	res, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		s.log.WithError(err).Warn("registration failed")
		return nil, err
	}
	return s.begin(res)
}

// Logout ends the session locally even when the server call fails, and
// resets every registered store.
func (s *AuthStore) Logout(ctx context.Context) error {
	if s.session.Token() != "" {
		if err := s.api.Logout(ctx); err != nil {
			s.log.WithError(err).Warn("server logout failed")
		}
	}
	s.api.SetToken("")
	err := s.session.End()

	s.mu.Lock()
	resets := append([]Resetter(nil), s.resets...)
	s.mu.Unlock()
	for _, r := range resets {
		r.Reset()
	}

	s.log.Info("signed out")
	s.changed()
	return err
}

// Restore loads a persisted session and hands its token to the API client.
func (s *AuthStore) Restore() (bool, error) {
	ok, err := s.session.Restore()
	if err != nil || !ok {
		return false, err
	}
	s.api.SetToken(s.session.Token())
	s.changed()
	return true, nil
}

// RefreshIfNeeded exchanges the refresh token when the access token expires
// within skew. It reports whether a refresh happened.
func (s *AuthStore) RefreshIfNeeded(ctx context.Context, skew time.Duration) (bool, error) {
	refresh := s.session.RefreshToken()
	if refresh == "" || !s.session.NeedsRefresh(skew) {
		return false, nil
	}
	token, err := s.api.RefreshToken(ctx, refresh)
	if err != nil {
		s.log.WithError(err).Warn("token refresh failed")
		return false, err
	}
	if err := s.session.SetToken(token); err != nil {
		return false, err
	}
	s.api.SetToken(token)
	s.log.Debug("access token refreshed")
	s.changed()
	return true, nil
}

// IsAuthenticated reports whether the user is signed in.
func (s *AuthStore) IsAuthenticated() bool {
	return s.session.IsAuthenticated()
}

// User returns the signed-in user, or nil.
func (s *AuthStore) User() *model.User {
	return s.session.User()
}

// Session returns the underlying session manager.
func (s *AuthStore) Session() *session.Manager {
	return s.session
}
