// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting runs ballot submission and receipt reconstruction.

# Submission

Submitter.Submit is one transaction. Preconditions are checked in order and
each failure returns an *apperr.Error with nothing written:

  - election exists, is not pending approval, and is ongoing right now
  - student is on the roster
  - student has not voted (apperr.AlreadyVoted carries the existing token)
  - submission is models.WellFormed
  - every position is on this election's ballot
  - every candidate runs for the position it was submitted under
  - no position exceeds max_choices

Then, still inside the transaction: the roster row is flipped with
has_voted = FALSE in the WHERE clause, the whole ballot is sealed once into
encrypted_ballots, and each selected candidate is sealed into its own votes
row. All rows share one vote token and one blinded voter ID.

# Races

Storage decides who wins. A submission that flips zero rows, or hits a
unique constraint on encrypted_ballots (election_id, blinded_voter_id) or
votes, rolls back and returns the winner's token with Recovered set:

	res, err := submitter.Submit(ctx, electionID, studentID, sub)
	// res.Recovered: another request already committed res.VoteToken

# Receipts

Receipts.GetReceipt decrypts encrypted_ballots first. If that row is missing
or fails authentication it falls back to the votes rows, dropping (and
counting) any row that fails to decrypt or whose payload disagrees with its
plaintext position_id/candidate_id. VerificationCode is SHA-256 over the
token, election and student; anyone can recompute it.

# Roster

Roster.Replace rebuilds a roster wholesale and refuses once anyone has
voted. Roster.CheckEligibility reports roster membership, voted state and
the assigned precinct.

Logs carry election_id, student_id and vote_token. Ballot content is never
logged.
*/
package voting
