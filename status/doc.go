// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package status derives and persists election lifecycle status.

# Lifecycle

	draft → pending → upcoming → ongoing → completed

Only ongoing elections accept ballots. Completed is terminal.

# Computing

Compute is pure. Election windows are civil dates and times interpreted in
the fixed UTC+8 zone (CivilZone), never the process time zone:

	w := status.Window{DateFrom: "2025-01-10", DateTo: "2025-01-10", StartTime: "08:00", EndTime: "17:00"}
	status.Compute(w, false, now) // upcoming, ongoing or completed

Rules, first match wins:

  - needs approval → pending
  - any window field missing or unparsable → draft
  - now before start → upcoming
  - now after end → completed
  - otherwise → ongoing (both bounds inclusive)

Initial applies the same rules but lets a privileged creator skip the
approval queue. Stored rows are always evaluated through Initial.

# Persisting

Reconciler.Reconcile recomputes every non-completed election in one
transaction and writes forward moves only. Backward results (e.g. a window
moved into the future) are left for Reconciler.Correct. Running it twice at
the same instant is a no-op. Approve clears the approval requirement.
Inspect reads stored and computed status without writing.

Scheduling is not this package's job; see package scheduler.
*/
package status
