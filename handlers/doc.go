// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the campus-vote API.

# Handler Types

  - VotingHandler: ballot submission, receipts, eligibility and location checks
  - ElectionHandler: approval, reconcile, status and roster administration

Handlers hold the core services, not a database handle:

	votingHandler := handlers.NewVotingHandler(gate, submitter, receipts, roster)

# Voting Flow

Students are identified by X-Student-ID, set by the upstream auth layer:

	GET  /elections/{id}/eligibility → CheckEligibility
	GET  /elections/{id}/location    → CheckLocation (reports the gate decision)
	POST /elections/{id}/ballots     → SubmitBallot (201, or 200 with the committed token)
	GET  /elections/{id}/receipt     → GetReceipt (?token= optional)

SubmitBallot checks that the election is open, then enforces the precinct
gate on the client address, then runs the submission transaction.

# Error Mapping

Typed failures from the core map to status codes in one place:

	validation                  → 400
	eligibility                 → 403 (already_voted 409 with vote_token, receipt_not_found 404)
	state                       → 409 (election_not_found 404)
	storage, integrity, conflict → 500 with a generic message
*/
package handlers
