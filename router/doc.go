// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the campus-vote API.

# Route Registration

NewRouter builds the core services from Deps and returns a configured
http.ServeMux:

	mux := router.NewRouter(router.Deps{
		DB:         conn,
		Sealer:     s,
		Reconciler: reconciler,
		Runner:     sched,
	}, cfg)

# Endpoints

Health:

	GET /health

Voting (student, X-Student-ID):

	POST /elections/{id}/ballots     - Submit a ballot
	GET  /elections/{id}/receipt     - Decrypted receipt (?token= optional)
	GET  /elections/{id}/eligibility - Roster standing and precinct
	GET  /elections/{id}/location    - Precinct gate decision for this address

Status (public):

	GET /elections/{id}/status - Stored and computed status

Administration (requires X-Admin-Key):

	POST /elections/reconcile      - Reconcile every non-terminal election
	POST /elections/{id}/approve   - Clear needs_approval
	POST /elections/{id}/correct   - Persist computed status in any direction
	PUT  /elections/{id}/roster    - Rebuild the roster before voting starts
*/
package router
