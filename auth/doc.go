// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token and identifier derivation for ballot submissions.

# Vote Tokens

One vote token correlates every row written by a single submission:

	token, err := auth.GenerateVoteToken(time.Now())

The format is VT-<base36 unix millis>-<22 base62 chars> (128 random bits).
Randomness makes collisions negligible, but the encrypted_ballots primary key
remains the authority on uniqueness.

# Blinded Voter IDs

Ballot rows carry an election-scoped HMAC of the student id instead of the id
itself:

	blinded := auth.BlindVoterID(studentID, electionID, secret)

Deterministic for the same (student, election) pair, unrelated across
elections, and not invertible without the server secret.

# Receipt Verification

	code := auth.VerificationCode(token, electionID, studentID)

A SHA-256 over the length-prefixed triple. Anyone holding the three values can
recompute it; no key is involved.

# Admin Keys

Administrative routes compare the X-Admin-Key header with the configured key:

	err := auth.ValidateAdminKey(provided, cfg.AdminKey)

# IDs and IP Hashing

	id := auth.NewRowID()            // UUIDv7 for immutable rows
	hex, err := auth.GenerateID(16)  // 32 hex characters
	hash := auth.HashIP(addr, salt)  // 16 hex chars, for logs
*/
package auth
