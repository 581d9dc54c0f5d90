// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL is restricted to what PostgreSQL and SQLite both accept.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Tables lists every table in dependency order (parents first)
var Tables = []string{
	"elections",
	"eligible_voters",
	"laboratory_precincts",
	"laboratory_ip_addresses",
	"election_precinct_programs",
	"ballots",
	"positions",
	"candidates",
	"encrypted_ballots",
	"votes",
}

const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS elections (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date_from TEXT,
    date_to TEXT,
    start_time TEXT,
    end_time TEXT,
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'pending', 'upcoming', 'ongoing', 'completed')),
    needs_approval BOOLEAN NOT NULL DEFAULT FALSE,
    approved_by TEXT,
    approved_at TIMESTAMP,
    created_by TEXT,
    created_by_privileged BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_elections_status ON elections(status);

-- Roster snapshot, one row per (election, student)
CREATE TABLE IF NOT EXISTS eligible_voters (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES elections(id),
    student_id TEXT NOT NULL,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE,
    voted_at TIMESTAMP,
    course_name TEXT,
    year_level TEXT,
    gender TEXT,
    precinct TEXT,
    UNIQUE (election_id, student_id)
);

-- Precincts and their authorized addresses
CREATE TABLE IF NOT EXISTS laboratory_precincts (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS laboratory_ip_addresses (
    id TEXT PRIMARY KEY,
    laboratory_precinct_id TEXT NOT NULL REFERENCES laboratory_precincts(id) ON DELETE CASCADE,
    ip_address TEXT,
    ip_type TEXT NOT NULL DEFAULT 'single' CHECK (ip_type IN ('single', 'range', 'subnet')),
    ip_range_start TEXT,
    ip_range_end TEXT,
    subnet_mask TEXT,
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_lab_ip_precinct ON laboratory_ip_addresses(laboratory_precinct_id);

-- Per-election precinct -> program mapping; a program has at most one precinct
CREATE TABLE IF NOT EXISTS election_precinct_programs (
    election_id TEXT NOT NULL REFERENCES elections(id) ON DELETE CASCADE,
    precinct TEXT NOT NULL,
    program TEXT NOT NULL,
    PRIMARY KEY (election_id, program)
);

-- Ballot structure
CREATE TABLE IF NOT EXISTS ballots (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL UNIQUE REFERENCES elections(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS positions (
    id TEXT PRIMARY KEY,
    ballot_id TEXT NOT NULL REFERENCES ballots(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    max_choices INTEGER NOT NULL DEFAULT 1 CHECK (max_choices >= 1),
    sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_positions_ballot ON positions(ballot_id);

CREATE TABLE IF NOT EXISTS candidates (
    id TEXT PRIMARY KEY,
    position_id TEXT NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
    name TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_position ON candidates(position_id);

-- Submissions (immutable, never deleted)
CREATE TABLE IF NOT EXISTS encrypted_ballots (
    vote_token TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES elections(id),
    blinded_voter_id TEXT NOT NULL,
    encrypted_data TEXT NOT NULL,
    encryption_iv TEXT NOT NULL,
    encryption_tag TEXT NOT NULL,
    encryption_key TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (election_id, blinded_voter_id)
);

CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    election_id TEXT NOT NULL REFERENCES elections(id),
    student_id TEXT NOT NULL,
    position_id TEXT NOT NULL REFERENCES positions(id),
    candidate_id TEXT NOT NULL REFERENCES candidates(id),
    vote_token TEXT NOT NULL REFERENCES encrypted_ballots(vote_token),
    blinded_voter_id TEXT NOT NULL,
    encrypted_vote TEXT NOT NULL,
    encryption_iv TEXT NOT NULL,
    encryption_tag TEXT NOT NULL,
    encryption_key TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (election_id, student_id, position_id, candidate_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_token ON votes(vote_token);
CREATE INDEX IF NOT EXISTS idx_votes_student ON votes(election_id, student_id);
`
