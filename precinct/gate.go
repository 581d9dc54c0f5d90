// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package precinct

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/danielhkuo/campus-vote/apperr"
	"github.com/danielhkuo/campus-vote/auth"
	"github.com/danielhkuo/campus-vote/models"
)

// Decision codes
const (
	CodeNoAssignment = "no_assignment"
	CodeMatched      = "matched"
	CodeMismatch     = "mismatch"
	CodeLookupFailed = "lookup_failed"
)

// Assignment is the precinct a student must vote from in one election.
// Assigned is false when no restriction applies.
type Assignment struct {
	Assigned bool
	Precinct string
	Program  string
}

type Decision struct {
	Allowed  bool
	Code     string
	Precinct string
	Message  string
}

// Err converts a denial into a typed eligibility error. Allowed decisions
// return nil.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Code == CodeLookupFailed:
		return apperr.Eligibility(apperr.CodePrecinctLookup, d.Message)
	default:
		return apperr.Eligibility(apperr.CodePrecinctMismatch, d.Message)
	}
}

// Gate answers "may this student vote from this address?" from storage only
type Gate struct {
	db      *sql.DB
	addrKey string
}

func NewGate(db *sql.DB) *Gate {
	return &Gate{db: db}
}

// addressLogLabel separates the mismatch-log key from every other use of
// the server secret
const addressLogLabel = "precinct-address-log"

// WithAddressKey keys the address hashes written to mismatch logs with a
// key derived from secret
func (g *Gate) WithAddressKey(secret string) *Gate {
	g.addrKey = auth.DeriveKey(secret, addressLogLabel)
	return g
}

// ResolveAssignment finds the student's precinct for one election. The
// program comes from the roster snapshot, so a student can map to different
// precincts in different elections. No roster row, no program, or no
// mapping all mean open mode.
func (g *Gate) ResolveAssignment(ctx context.Context, studentID, electionID string) (Assignment, error) {
	var course sql.NullString
	err := g.db.QueryRowContext(ctx, `
		SELECT course_name FROM eligible_voters
		WHERE election_id = $1 AND student_id = $2
	`, electionID, studentID).Scan(&course)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, nil
	}
	if err != nil {
		return Assignment{}, fmt.Errorf("failed to load roster program: %w", err)
	}

	program := strings.TrimSpace(course.String)
	if program == "" {
		return Assignment{}, nil
	}

	var name string
	err = g.db.QueryRowContext(ctx, `
		SELECT precinct FROM election_precinct_programs
		WHERE election_id = $1 AND LOWER(TRIM(program)) = LOWER($2)
	`, electionID, program).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{Program: program}, nil
	}
	if err != nil {
		return Assignment{}, fmt.Errorf("failed to load precinct mapping: %w", err)
	}

	return Assignment{Assigned: true, Precinct: name, Program: program}, nil
}

// Addresses returns the active authorized addresses of a precinct
func (g *Gate) Addresses(ctx context.Context, precinctName string) ([]models.LabAddress, error) {
	var recs []models.LabAddress
	err := sqlscan.Select(ctx, g.db, &recs, `
		SELECT a.id, a.ip_address, a.ip_type, a.ip_range_start, a.ip_range_end, a.subnet_mask, a.is_active
		FROM laboratory_ip_addresses a
		JOIN laboratory_precincts p ON p.id = a.laboratory_precinct_id
		WHERE p.name = $1 AND a.is_active = TRUE
	`, precinctName)
	if err != nil {
		return nil, fmt.Errorf("failed to load precinct addresses: %w", err)
	}
	return recs, nil
}

// ValidateAddress decides whether clientAddr may submit for the student.
// Missing assignments fail open; lookup errors fail closed.
func (g *Gate) ValidateAddress(ctx context.Context, studentID, electionID, clientAddr string) Decision {
	a, err := g.ResolveAssignment(ctx, studentID, electionID)
	if err != nil {
		slog.Error("precinct lookup failed", "election_id", electionID, "student_id", studentID, "error", err)
		return Decision{Code: CodeLookupFailed, Message: "unable to verify your voting location, please try again"}
	}
	if !a.Assigned {
		return Decision{Allowed: true, Code: CodeNoAssignment}
	}

	recs, err := g.Addresses(ctx, a.Precinct)
	if err != nil {
		slog.Error("precinct lookup failed", "election_id", electionID, "student_id", studentID,
			"precinct", a.Precinct, "error", err)
		return Decision{Code: CodeLookupFailed, Precinct: a.Precinct,
			Message: "unable to verify your voting location, please try again"}
	}

	for _, rec := range recs {
		if Matches(rec, clientAddr) {
			return Decision{Allowed: true, Code: CodeMatched, Precinct: a.Precinct}
		}
	}

	slog.Info("precinct mismatch", "election_id", electionID, "student_id", studentID,
		"precinct", a.Precinct, "address_hash", auth.HashIP(Normalize(clientAddr), g.addrKey))
	return Decision{
		Code:     CodeMismatch,
		Precinct: a.Precinct,
		Message:  fmt.Sprintf("you must vote from your assigned precinct: %s", a.Precinct),
	}
}
