// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/danielhkuo/campus-vote/apperr"
	"github.com/danielhkuo/campus-vote/auth"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/precinct"
)

// CodeRosterLocked is returned when a roster rebuild would erase voting history
const CodeRosterLocked = "roster_locked"

// Eligibility is a student's standing in one election
type Eligibility struct {
	Eligible bool
	HasVoted bool
	Precinct string
}

// Roster reads and rebuilds an election's roster snapshot
type Roster struct {
	db   *sql.DB
	gate *precinct.Gate
}

func NewRoster(conn *sql.DB, gate *precinct.Gate) *Roster {
	return &Roster{db: conn, gate: gate}
}

// CheckEligibility reports whether the student is on the roster, whether
// they already voted, and which precinct they are assigned to (if any).
func (r *Roster) CheckEligibility(ctx context.Context, electionID, studentID string) (Eligibility, error) {
	if _, err := loadElection(ctx, r.db, electionID); err != nil {
		return Eligibility{}, err
	}

	var hasVoted bool
	err := r.db.QueryRowContext(ctx, `
		SELECT has_voted FROM eligible_voters
		WHERE election_id = $1 AND student_id = $2
	`, electionID, studentID).Scan(&hasVoted)
	if errors.Is(err, sql.ErrNoRows) {
		return Eligibility{}, nil
	}
	if err != nil {
		return Eligibility{}, apperr.Storage("load roster row", err)
	}

	out := Eligibility{Eligible: true, HasVoted: hasVoted}
	if r.gate != nil {
		a, err := r.gate.ResolveAssignment(ctx, studentID, electionID)
		if err != nil {
			return Eligibility{}, apperr.Storage("resolve precinct", err)
		}
		out.Precinct = a.Precinct
	}
	return out, nil
}

// Replace rebuilds the roster wholesale in one transaction. It refuses once
// anyone has voted, since voted flags are history.
func (r *Roster) Replace(ctx context.Context, electionID string, voters []models.EligibleVoter) (int, error) {
	seen := make(map[string]bool, len(voters))
	for _, v := range voters {
		id := strings.TrimSpace(v.StudentID)
		if id == "" {
			return 0, apperr.Validation(apperr.CodeMalformed, "student_id cannot be empty")
		}
		if seen[id] {
			return 0, apperr.Validation(apperr.CodeMalformed, "duplicate student_id: "+id)
		}
		seen[id] = true
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("begin roster rebuild", err)
	}
	defer tx.Rollback()

	if _, err := loadElection(ctx, tx, electionID); err != nil {
		return 0, err
	}

	var voted int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM eligible_voters WHERE election_id = $1 AND has_voted = TRUE
	`, electionID).Scan(&voted)
	if err != nil {
		return 0, apperr.Storage("count voted roster rows", err)
	}
	if voted > 0 {
		return 0, apperr.State(CodeRosterLocked, "roster cannot be rebuilt after voting has started")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM eligible_voters WHERE election_id = $1`, electionID); err != nil {
		return 0, apperr.Storage("clear roster", err)
	}

	for _, v := range voters {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO eligible_voters (id, election_id, student_id, course_name, year_level, gender, precinct)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, auth.NewRowID(), electionID, strings.TrimSpace(v.StudentID), v.CourseName, v.YearLevel, v.Gender, v.Precinct)
		if err != nil {
			return 0, apperr.Storage("insert roster row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage("commit roster rebuild", err)
	}

	slog.Info("roster rebuilt", "election_id", electionID, "voters", len(voters))
	return len(voters), nil
}
