// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvery_RunsOnSchedule(t *testing.T) {
	s := New(nil)
	var runs atomic.Int32
	require.NoError(t, s.Every("invitations", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer s.Stop(context.Background())

	next, ok := s.Next("invitations")
	require.True(t, ok)
	require.False(t, next.IsZero())

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestEvery_Validation(t *testing.T) {
	s := New(nil)
	noop := func(context.Context) error { return nil }

	require.Error(t, s.Every("bad", 0, noop))
	require.NoError(t, s.Every("team", 8*time.Second, noop))
	require.ErrorIs(t, s.Every("team", time.Second, noop), ErrDuplicateJob)
	require.Equal(t, []string{"team"}, s.Names())

	require.NoError(t, s.Remove("team"))
	require.ErrorIs(t, s.Remove("team"), ErrUnknownJob)
	require.ErrorIs(t, s.Trigger("team"), ErrUnknownJob)
	require.Empty(t, s.Names())
}

func TestTrigger_SkipsWhileRunning(t *testing.T) {
	s := New(nil)
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var runs atomic.Int32

	require.NoError(t, s.Every("slow", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}))

	go func() { _ = s.Trigger("slow") }()
	<-started

	require.NoError(t, s.Trigger("slow"))
	require.EqualValues(t, 1, runs.Load())
	close(release)
}

func TestTrigger_RecoversPanicsAndErrors(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Every("boom", time.Hour, func(ctx context.Context) error {
		panic("kaboom")
	}))
	require.NoError(t, s.Every("fail", time.Hour, func(ctx context.Context) error {
		return errors.New("HTTP 500: Internal Server Error")
	}))

	require.NotPanics(t, func() { _ = s.Trigger("boom") })
	require.NoError(t, s.Trigger("fail"))
}

func TestStop_CancelsJobContext(t *testing.T) {
	s := New(nil)
	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, s.Every("wait", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))
	s.Start()

	done := make(chan struct{})
	go func() {
		_ = s.Trigger("wait")
		close(done)
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	<-done
	require.True(t, cancelled.Load())
}
