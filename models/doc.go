// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Submissions

Ballot bodies are parsed once, at the boundary, into a closed sum type:

	switch sub := models.ParseSubmission(body).(type) {
	case models.WellFormed:
		// sub.Selections: []Selection{position_id, candidate_ids}
	case models.Malformed:
		// sub.Reason explains the first structural problem
	}

Structural rules: selections non-empty, ids non-empty strings or integers,
no duplicate positions, no duplicate candidates within a position, at least
one candidate overall. Ballot membership and max_choices are checked later,
inside the submission transaction.

# Domain Types

  - Election: window, cached status, approval state
  - EligibleVoter: roster snapshot row
  - Position, Candidate: ballot structure
  - LabAddress: authorized precinct address record

# Sealed Payloads

  - BallotPayload: the full selection set stored in encrypted_ballots
  - VotePayload: one selection stored in a votes row

# Response Types

  - SubmitBallotResponse: vote_token, message
  - Receipt: decrypted selections plus verification_code
  - EligibilityResponse, LocationResponse, StatusResponse, ReconcileResponse
  - ApproveRequest, ReplaceRosterRequest, ReplaceRosterResponse
  - ErrorResponse: error, code, message, vote_token (already voted)
*/
package models
