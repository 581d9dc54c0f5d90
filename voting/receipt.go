// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/danielhkuo/campus-vote/apperr"
	"github.com/danielhkuo/campus-vote/auth"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/sealer"
)

// Receipts rebuilds a student's ballot from its sealed rows
type Receipts struct {
	db          *sql.DB
	sealer      *sealer.Sealer
	blindSecret string
}

func NewReceipts(conn *sql.DB, s *sealer.Sealer, blindSecret string) *Receipts {
	return &Receipts{db: conn, sealer: s, blindSecret: blindSecret}
}

type sealedBallot struct {
	EncryptedData string `db:"encrypted_data"`
	IV            string `db:"encryption_iv"`
	Tag           string `db:"encryption_tag"`
	Key           string `db:"encryption_key"`
}

type sealedVote struct {
	ID            string `db:"id"`
	PositionID    string `db:"position_id"`
	CandidateID   string `db:"candidate_id"`
	EncryptedVote string `db:"encrypted_vote"`
	IV            string `db:"encryption_iv"`
	Tag           string `db:"encryption_tag"`
	Key           string `db:"encryption_key"`
}

var errBallotMismatch = errors.New("decrypted ballot belongs to another election or token")

// GetReceipt decrypts the student's ballot. An empty token resolves to the
// student's own submission. If the whole-ballot row is missing or fails to
// decrypt, the receipt is rebuilt from the individual vote rows and any row
// that fails its cross-check is dropped and counted.
func (r *Receipts) GetReceipt(ctx context.Context, electionID, studentID, token string) (models.Receipt, error) {
	election, err := loadElection(ctx, r.db, electionID)
	if err != nil {
		return models.Receipt{}, err
	}

	blindedID := auth.BlindVoterID(studentID, electionID, r.blindSecret)
	token, err = r.resolveToken(ctx, electionID, studentID, blindedID, strings.TrimSpace(token))
	if err != nil {
		return models.Receipt{}, err
	}

	structure, err := loadBallot(ctx, r.db, electionID)
	if err != nil {
		return models.Receipt{}, err
	}

	receipt := models.Receipt{
		VoteToken:        token,
		ElectionID:       electionID,
		ElectionTitle:    election.Title,
		VerificationCode: auth.VerificationCode(token, electionID, studentID),
	}

	payload, err := r.openBallot(ctx, electionID, token)
	if err == nil {
		submittedAt := payload.SubmittedAt
		receipt.Selections = structure.render(payload.Selections)
		receipt.SubmittedAt = &submittedAt
		receipt.Source = models.ReceiptFromBallot
		return receipt, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("encrypted ballot missing, rebuilding receipt from votes",
			"election_id", electionID, "student_id", studentID, "vote_token", token)
	} else if apperr.KindOf(err) == apperr.KindIntegrity {
		slog.Error("encrypted ballot failed integrity check, rebuilding receipt from votes",
			"election_id", electionID, "student_id", studentID, "vote_token", token, "error", err)
	} else {
		return models.Receipt{}, err
	}

	selections, dropped, err := r.openVotes(ctx, electionID, studentID, token)
	if err != nil {
		return models.Receipt{}, err
	}
	if len(selections) == 0 && dropped == 0 {
		return models.Receipt{}, apperr.Eligibility(apperr.CodeReceiptNotFound, "receipt not found")
	}

	receipt.Selections = structure.render(selections)
	receipt.Source = models.ReceiptFromVotes
	receipt.Dropped = dropped
	return receipt, nil
}

// resolveToken returns the student's token, or checks that a given token
// is theirs. Someone else's token is indistinguishable from a missing one.
func (r *Receipts) resolveToken(ctx context.Context, electionID, studentID, blindedID, token string) (string, error) {
	notFound := apperr.Eligibility(apperr.CodeReceiptNotFound, "receipt not found")

	if token == "" {
		own, err := committedToken(ctx, r.db, electionID, studentID, blindedID)
		if err != nil {
			return "", apperr.Storage("resolve vote token", err)
		}
		if own == "" {
			return "", notFound
		}
		return own, nil
	}

	if _, err := auth.ParseVoteToken(token); err != nil {
		return "", notFound
	}

	var owned bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM encrypted_ballots
			WHERE vote_token = $1 AND election_id = $2 AND blinded_voter_id = $3
		) OR EXISTS(
			SELECT 1 FROM votes
			WHERE vote_token = $1 AND election_id = $2 AND student_id = $4
		)
	`, token, electionID, blindedID, studentID).Scan(&owned)
	if err != nil {
		return "", apperr.Storage("verify vote token", err)
	}
	if !owned {
		return "", notFound
	}
	return token, nil
}

func (r *Receipts) openBallot(ctx context.Context, electionID, token string) (models.BallotPayload, error) {
	var row sealedBallot
	err := sqlscan.Get(ctx, r.db, &row, `
		SELECT encrypted_data, encryption_iv, encryption_tag, encryption_key
		FROM encrypted_ballots
		WHERE vote_token = $1 AND election_id = $2
	`, token, electionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BallotPayload{}, sql.ErrNoRows
	}
	if err != nil {
		return models.BallotPayload{}, apperr.Storage("load encrypted ballot", err)
	}

	var payload models.BallotPayload
	env := sealer.Envelope{Ciphertext: row.EncryptedData, IV: row.IV, AuthTag: row.Tag, Key: row.Key}
	if err := r.sealer.Open(env, &payload); err != nil {
		return models.BallotPayload{}, apperr.Integrity("decrypt ballot", err)
	}
	if payload.ElectionID != electionID || payload.VoteToken != token {
		return models.BallotPayload{}, apperr.Integrity("decrypt ballot", errBallotMismatch)
	}
	return payload, nil
}

// openVotes decrypts each vote row of the token. A row that fails to
// decrypt, or whose payload disagrees with its plaintext columns, is
// dropped.
func (r *Receipts) openVotes(ctx context.Context, electionID, studentID, token string) ([]models.Selection, int, error) {
	var rows []sealedVote
	err := sqlscan.Select(ctx, r.db, &rows, `
		SELECT id, position_id, candidate_id, encrypted_vote, encryption_iv, encryption_tag, encryption_key
		FROM votes
		WHERE vote_token = $1 AND election_id = $2 AND student_id = $3
		ORDER BY id
	`, token, electionID, studentID)
	if err != nil {
		return nil, 0, apperr.Storage("load votes", err)
	}

	var selections []models.Selection
	index := make(map[string]int)
	dropped := 0
	for _, row := range rows {
		var v models.VotePayload
		env := sealer.Envelope{Ciphertext: row.EncryptedVote, IV: row.IV, AuthTag: row.Tag, Key: row.Key}
		if err := r.sealer.Open(env, &v); err != nil {
			dropped++
			slog.Error("vote row failed integrity check", "election_id", electionID, "student_id", studentID,
				"vote_token", token, "vote_id", row.ID, "error", err)
			continue
		}
		if v.ElectionID != electionID || v.VoteToken != token ||
			v.PositionID != row.PositionID || v.CandidateID != row.CandidateID {
			dropped++
			slog.Error("vote row does not match its columns", "election_id", electionID, "student_id", studentID,
				"vote_token", token, "vote_id", row.ID)
			continue
		}

		i, ok := index[v.PositionID]
		if !ok {
			i = len(selections)
			index[v.PositionID] = i
			selections = append(selections, models.Selection{PositionID: v.PositionID})
		}
		selections[i].CandidateIDs = append(selections[i].CandidateIDs, v.CandidateID)
	}
	return selections, dropped, nil
}
