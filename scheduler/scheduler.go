// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/campus-vote/status"
)

// Reconciler is the pass the scheduler drives
type Reconciler interface {
	Reconcile(ctx context.Context) ([]status.Transition, error)
}

// Notifier receives the transitions persisted by one pass. It is only
// called when the pass changed something.
type Notifier interface {
	Notify(ctx context.Context, transitions []status.Transition)
}

// LogNotifier writes one log line per transition
type LogNotifier struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (n LogNotifier) Notify(ctx context.Context, transitions []status.Transition) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	for _, t := range transitions {
		logger.InfoContext(ctx, "election status changed",
			"election_id", t.ElectionID,
			"title", t.Title,
			"from", t.From,
			"to", t.To,
			"when", humanize.RelTime(t.At, now(), "ago", "from now"),
		)
	}
}

// Scheduler runs reconcile passes on a ticker. Manual runs go through the
// same singleflight group, so two passes never overlap within the process.
type Scheduler struct {
	reconciler Reconciler
	notifier   Notifier
	interval   time.Duration
	group      singleflight.Group
}

// New creates a scheduler. interval <= 0 disables the ticker; Reconcile
// still works on demand.
func New(r Reconciler, n Notifier, interval time.Duration) *Scheduler {
	return &Scheduler{reconciler: r, notifier: n, interval: interval}
}

// Reconcile runs one pass, or waits for the one already in flight and
// returns its result
func (s *Scheduler) Reconcile(ctx context.Context) ([]status.Transition, error) {
	// Joined callers share this pass; it outlives the caller that started it.
	passCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do("reconcile", func() (interface{}, error) {
		start := time.Now()
		transitions, err := s.reconciler.Reconcile(passCtx)
		if err != nil {
			return nil, err
		}
		slog.Debug("reconcile pass finished", "transitions", len(transitions), "duration_ms", time.Since(start).Milliseconds())
		if len(transitions) > 0 && s.notifier != nil {
			s.notifier.Notify(passCtx, transitions)
		}
		return transitions, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("joined in-flight reconcile")
	}
	return v.([]status.Transition), nil
}

// Run reconciles once immediately and then every interval until ctx is
// done. Failed passes are logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		slog.Info("scheduled reconcile disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	slog.Info("reconcile scheduler started", "interval", s.interval)

	for {
		if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
			slog.Error("scheduled reconcile failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("reconcile scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
