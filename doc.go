// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the campus-vote API server.

campus-vote is the core of a campus election system: election status,
precinct (computer lab) gating, envelope-encrypted ballots, atomic
one-ballot-per-student submission, and verifiable receipts.

# Starting the Server

Configuration comes from flags, the environment, or a .env file:

	DATABASE_URL=postgres://... ADMIN_KEY=... BALLOT_MASTER_KEY=... BLIND_SECRET=... go run .

Or with flags:

	go run . -p 3318 -t sqlite -d "file:campus-vote.db" -reconcile 30s

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL URL or SQLite DSN
  - ADMIN_KEY: secret for X-Admin-Key
  - BALLOT_MASTER_KEY: at least 32 bytes; wraps per-ballot data keys
  - BLIND_SECRET: keys blinded voter IDs

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_TYPE (-t): postgres or sqlite (default: postgres)
  - RECONCILE_INTERVAL (-reconcile): status cadence, 0 disables (default: 1m)
  - LOG_LEVEL (-log-level), LOG_FILE (-log-file)

# Architecture

  - status: election status computation and reconciliation
  - precinct: address normalization and the lab gate
  - sealer: AES-256-GCM payloads with wrapped data keys
  - voting: submission transaction, receipts, roster
  - scheduler: reconcile cadence and transition notifications
  - handlers, router, middleware: HTTP surface
  - auth: tokens, blinded IDs, admin key checks
  - db, cliparse, logger, apperr, models: supporting packages

See package documentation for each component.
*/
package main
