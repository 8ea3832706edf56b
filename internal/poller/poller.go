// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package poller keeps an open conversation in sync with the server.
//
// A Poller calls Refresh on a fixed interval for as long as its enabling
// condition holds. Cancelling the context stops the loop and aborts the
// request in flight.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/logging"
)

// DefaultInterval is the time between refreshes.
const DefaultInterval = 3 * time.Second

// ErrConditionLapsed is returned by Run when the enabling condition stops holding.
var ErrConditionLapsed = errors.New("poll condition no longer holds")

// Refresher reconciles one conversation with the server.
type Refresher interface {
	Refresh(ctx context.Context, conversationID string) error
}

// Condition reports whether polling should continue for the conversation.
type Condition func(conversationID string) bool

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the time between refreshes.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithCondition sets the enabling condition. It is checked before the first
// tick and before every refresh.
func WithCondition(c Condition) Option {
	return func(p *Poller) { p.cond = c }
}

// WithLogger sets the log entry refresh failures are written to.
func WithLogger(log *logrus.Entry) Option {
	return func(p *Poller) { p.log = log }
}

// Poller periodically refreshes a conversation.
type Poller struct {
	refresher Refresher
	interval  time.Duration
	cond      Condition
	log       *logrus.Entry
}

// New creates a poller over r.
func New(r Refresher, opts ...Option) *Poller {
	p := &Poller{
		refresher: r,
		interval:  DefaultInterval,
		cond:      func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logging.Component(logging.Discard(), "poller")
	}
	return p
}

// Interval returns the configured refresh interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run refreshes conversationID every interval until ctx is done or the
// condition lapses. Refresh errors are logged and otherwise ignored.
func (p *Poller) Run(ctx context.Context, conversationID string) error {
	if !p.cond(conversationID) {
		return ErrConditionLapsed
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := p.log.WithField("conversation", conversationID)
	log.Debug("polling started")
	defer log.Debug("polling stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !p.cond(conversationID) {
			return ErrConditionLapsed
		}
		if err := p.refresher.Refresh(ctx, conversationID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Debug("refresh failed")
		}
	}
}

// Start runs the poller in a goroutine. When the condition lapses the
// goroutine stays alive, checks the condition once per interval and resumes
// refreshing as soon as it holds again (a conversation that was reopened, a
// session that signed back in). The returned function cancels it and waits
// for the loop to exit; it is safe to call more than once.
func (p *Poller) Start(ctx context.Context, conversationID string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log := p.log.WithField("conversation", conversationID)
		for {
			err := p.Run(ctx, conversationID)
			if !errors.Is(err, ErrConditionLapsed) {
				return
			}
			log.Debug("poll condition lapsed, waiting for it to hold again")
			if !p.waitForCondition(ctx, conversationID) {
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// waitForCondition blocks until the condition holds again (true) or ctx is
// done (false).
func (p *Poller) waitForCondition(ctx context.Context, conversationID string) bool {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		if p.cond(conversationID) {
			return true
		}
	}
}
