// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections, schema creation and driver error decoding.

# Drivers

Two database types are supported behind database/sql:

  - postgres: github.com/lib/pq (production)
  - sqlite: modernc.org/sqlite (single-node deployments and tests)

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

All queries in the repository use $N placeholders, which both drivers accept.

# Schema Creation

	if err := db.CreateSchema(ctx, conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - elections: window, cached status, approval state
  - eligible_voters: roster snapshot with has_voted
  - laboratory_precincts, laboratory_ip_addresses: authorized addresses
  - election_precinct_programs: program -> precinct per election
  - ballots, positions, candidates: ballot structure
  - encrypted_ballots: one sealed ballot per submission
  - votes: one sealed row per selected candidate

# Relationships

	elections 1──* eligible_voters
	elections 1──1 ballots 1──* positions 1──* candidates
	elections 1──* election_precinct_programs
	laboratory_precincts 1──* laboratory_ip_addresses
	encrypted_ballots 1──* votes (by vote_token)

encrypted_ballots and votes never cascade: they are the audit trail.

# Uniqueness

Duplicate prevention relies on constraints, not application locks:

  - votes (election_id, student_id, position_id, candidate_id)
  - encrypted_ballots (election_id, blinded_voter_id)

IsUniqueViolation recognizes violations from either driver:

	if db.IsUniqueViolation(err) { ... }
*/
package db
