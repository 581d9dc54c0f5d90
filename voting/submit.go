// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/campus-vote/apperr"
	"github.com/danielhkuo/campus-vote/auth"
	"github.com/danielhkuo/campus-vote/db"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/sealer"
	"github.com/danielhkuo/campus-vote/status"
)

// errLostRace marks a submission that found the student already flipped
// by a concurrent winner
var errLostRace = errors.New("voted flag already set by a concurrent submission")

// SubmitResult is a committed ballot's token. Recovered is true when this
// call lost a race and VoteToken belongs to the concurrent winner.
type SubmitResult struct {
	VoteToken string
	Recovered bool
}

// Submitter runs the ballot submission transaction
type Submitter struct {
	db          *sql.DB
	sealer      *sealer.Sealer
	blindSecret string
	now         func() time.Time

	// beforeFlip runs inside the transaction just before the voted flag is
	// flipped. Nil outside tests.
	beforeFlip func(ctx context.Context, tx *sql.Tx) error
}

// NewSubmitter creates a submitter. now defaults to time.Now.
func NewSubmitter(conn *sql.DB, s *sealer.Sealer, blindSecret string, now func() time.Time) *Submitter {
	if now == nil {
		now = time.Now
	}
	return &Submitter{db: conn, sealer: s, blindSecret: blindSecret, now: now}
}

// Submit validates and stores one student's ballot atomically. Every
// precondition failure returns an *apperr.Error and leaves no rows behind.
func (s *Submitter) Submit(ctx context.Context, electionID, studentID string, sub models.Submission) (SubmitResult, error) {
	now := s.now()
	blindedID := auth.BlindVoterID(studentID, electionID, s.blindSecret)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SubmitResult{}, s.storageFailure("begin submission", err, electionID, studentID, "")
	}
	defer tx.Rollback()

	// (a) election is votable and the student is on its roster
	election, err := loadElection(ctx, tx, electionID)
	if err != nil {
		return SubmitResult{}, s.logUnexpected(err, electionID, studentID, "")
	}
	if err := checkVotable(election, now); err != nil {
		return SubmitResult{}, err
	}

	var hasVoted bool
	err = tx.QueryRowContext(ctx, `
		SELECT has_voted FROM eligible_voters
		WHERE election_id = $1 AND student_id = $2
	`, electionID, studentID).Scan(&hasVoted)
	if errors.Is(err, sql.ErrNoRows) {
		return SubmitResult{}, apperr.Eligibility(apperr.CodeNotOnRoster, "you are not on the roster for this election")
	}
	if err != nil {
		return SubmitResult{}, s.storageFailure("load roster row", err, electionID, studentID, "")
	}

	// (b) not already voted; the conditional flip below re-checks this
	if hasVoted {
		token, err := committedToken(ctx, tx, electionID, studentID, blindedID)
		if err != nil {
			slog.Warn("failed to look up existing vote token", "election_id", electionID,
				"student_id", studentID, "error", err)
		}
		return SubmitResult{}, apperr.AlreadyVoted(token)
	}

	// (c) well-formed
	var ballot models.WellFormed
	switch v := sub.(type) {
	case models.WellFormed:
		ballot = v
	case models.Malformed:
		return SubmitResult{}, apperr.Validation(apperr.CodeMalformed, v.Reason)
	default:
		return SubmitResult{}, apperr.Validation(apperr.CodeMalformed, "missing ballot selections")
	}

	// (d)-(f) ballot membership and max_choices
	structure, err := loadBallot(ctx, tx, electionID)
	if err != nil {
		return SubmitResult{}, s.logUnexpected(err, electionID, studentID, "")
	}
	if err := structure.validate(ballot.Selections); err != nil {
		return SubmitResult{}, err
	}

	token, err := auth.GenerateVoteToken(now)
	if err != nil {
		return SubmitResult{}, s.storageFailure("generate vote token", err, electionID, studentID, "")
	}

	if s.beforeFlip != nil {
		if err := s.beforeFlip(ctx, tx); err != nil {
			return SubmitResult{}, s.storageFailure("flip voted flag", err, electionID, studentID, token)
		}
	}

	// Flip first so a concurrent loser blocks here (or sees zero rows)
	// before it writes anything
	res, err := tx.ExecContext(ctx, `
		UPDATE eligible_voters SET has_voted = TRUE, voted_at = $1
		WHERE election_id = $2 AND student_id = $3 AND has_voted = FALSE
	`, now.UTC(), electionID, studentID)
	if err != nil {
		return SubmitResult{}, s.storageFailure("flip voted flag", err, electionID, studentID, token)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return SubmitResult{}, s.storageFailure("flip voted flag", err, electionID, studentID, token)
	}
	if n == 0 {
		tx.Rollback()
		return s.recoverRace(ctx, electionID, studentID, blindedID, errLostRace)
	}

	if err := s.persist(ctx, tx, electionID, studentID, token, blindedID, ballot, now); err != nil {
		if db.IsUniqueViolation(err) {
			tx.Rollback()
			return s.recoverRace(ctx, electionID, studentID, blindedID, err)
		}
		return SubmitResult{}, s.logUnexpected(err, electionID, studentID, token)
	}

	if err := tx.Commit(); err != nil {
		if db.IsUniqueViolation(err) {
			return s.recoverRace(ctx, electionID, studentID, blindedID, err)
		}
		return SubmitResult{}, s.storageFailure("commit submission", err, electionID, studentID, token)
	}

	slog.Info("ballot submitted", "election_id", electionID, "vote_token", token,
		"positions", len(ballot.Selections), "selections", ballot.CandidateCount())
	return SubmitResult{VoteToken: token}, nil
}

// CheckOpen reports whether the election currently accepts ballots, with
// the same errors Submit would return. Callers use it to reject closed
// elections before running checks that depend on the student.
func (s *Submitter) CheckOpen(ctx context.Context, electionID string) error {
	election, err := loadElection(ctx, s.db, electionID)
	if err != nil {
		return s.logUnexpected(err, electionID, "", "")
	}
	return checkVotable(election, s.now())
}

func checkVotable(e models.Election, now time.Time) error {
	if e.NeedsApproval && !e.CreatedByPrivileged {
		return apperr.State(apperr.CodePendingApproval, "election is pending approval")
	}
	if status.Status(e.Status).Terminal() {
		return apperr.State(apperr.CodeNotVotable, "election has ended")
	}

	switch computed := e.StatusAt(now); computed {
	case status.Ongoing:
		return nil
	case status.Upcoming:
		return apperr.State(apperr.CodeNotVotable, "election has not started yet")
	case status.Completed:
		return apperr.State(apperr.CodeNotVotable, "election has ended")
	default:
		return apperr.State(apperr.CodeNotVotable, fmt.Sprintf("election is %s", computed))
	}
}

// persist writes the sealed ballot and one sealed vote row per selected
// candidate. Unique violations are returned unwrapped for race detection.
func (s *Submitter) persist(ctx context.Context, tx *sql.Tx, electionID, studentID, token, blindedID string,
	ballot models.WellFormed, now time.Time) error {
	env, err := s.sealer.Seal(models.BallotPayload{
		ElectionID:  electionID,
		VoteToken:   token,
		Selections:  ballot.Selections,
		SubmittedAt: now.UTC(),
	})
	if err != nil {
		return apperr.Storage("seal ballot", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO encrypted_ballots
			(vote_token, election_id, blinded_voter_id, encrypted_data, encryption_iv, encryption_tag, encryption_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, token, electionID, blindedID, env.Ciphertext, env.IV, env.AuthTag, env.Key, now.UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return err
		}
		return apperr.Storage("insert encrypted ballot", err)
	}

	for _, sel := range ballot.Selections {
		for _, candidateID := range sel.CandidateIDs {
			env, err := s.sealer.Seal(models.VotePayload{
				ElectionID:  electionID,
				VoteToken:   token,
				PositionID:  sel.PositionID,
				CandidateID: candidateID,
			})
			if err != nil {
				return apperr.Storage("seal vote", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO votes
					(id, election_id, student_id, position_id, candidate_id, vote_token, blinded_voter_id,
					 encrypted_vote, encryption_iv, encryption_tag, encryption_key, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			`, auth.NewRowID(), electionID, studentID, sel.PositionID, candidateID, token, blindedID,
				env.Ciphertext, env.IV, env.AuthTag, env.Key, now.UTC())
			if err != nil {
				if db.IsUniqueViolation(err) {
					return err
				}
				return apperr.Storage("insert vote", err)
			}
		}
	}
	return nil
}

// recoverRace answers a lost race with the winner's token. The transaction
// must already be rolled back.
func (s *Submitter) recoverRace(ctx context.Context, electionID, studentID, blindedID string, cause error) (SubmitResult, error) {
	token, err := committedToken(ctx, s.db, electionID, studentID, blindedID)
	if err != nil || token == "" {
		conflict := apperr.Conflict("concurrent submission could not be resolved", cause)
		slog.Error("lost submission race without a committed token", "election_id", electionID,
			"student_id", studentID, "cause", cause, "error", err)
		return SubmitResult{}, conflict
	}

	slog.Info("concurrent submission recovered", "election_id", electionID, "student_id", studentID,
		"vote_token", token, "cause", cause)
	return SubmitResult{VoteToken: token, Recovered: true}, nil
}

func (s *Submitter) storageFailure(msg string, err error, electionID, studentID, token string) error {
	return s.logUnexpected(apperr.Storage(msg, err), electionID, studentID, token)
}

// logUnexpected logs storage and integrity failures with identifiers only,
// never ballot content
func (s *Submitter) logUnexpected(err error, electionID, studentID, token string) error {
	if apperr.Unexpected(err) {
		slog.Error("ballot submission failed", "election_id", electionID, "student_id", studentID,
			"vote_token", token, "error", err)
	}
	return err
}
