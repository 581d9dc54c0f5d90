// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package scheduler drives status reconciliation on a fixed cadence.

	sched := scheduler.New(reconciler, scheduler.LogNotifier{}, cfg.ReconcileInterval)
	go sched.Run(ctx)

Run reconciles once at startup and then on every tick. The admin endpoint
calls sched.Reconcile, which shares a singleflight group with the ticker:
a manual request arriving mid-pass waits for that pass and returns its
transitions instead of starting another.

Reconciliation itself stays idempotent and lock-free; the scheduler only
decides when it runs and who hears about the result.
*/
package scheduler
