// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/danielhkuo/campus-vote/apperr"
	"github.com/danielhkuo/campus-vote/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	sqlscan.Querier
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadElection(ctx context.Context, q querier, electionID string) (models.Election, error) {
	var e models.Election
	err := sqlscan.Get(ctx, q, &e, `
		SELECT id, title, date_from, date_to, start_time, end_time, status, needs_approval, created_by_privileged
		FROM elections WHERE id = $1
	`, electionID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, apperr.State(apperr.CodeElectionNotFound, "election not found")
	}
	if err != nil {
		return models.Election{}, apperr.Storage("load election", err)
	}
	return e, nil
}

// ballotStructure is an election's positions and candidates keyed by ID
type ballotStructure struct {
	positions  map[string]models.Position
	candidates map[string]models.Candidate
	order      []string
}

func loadBallot(ctx context.Context, q querier, electionID string) (ballotStructure, error) {
	var positions []models.Position
	err := sqlscan.Select(ctx, q, &positions, `
		SELECT p.id, p.name, p.max_choices, p.sort_order
		FROM positions p
		JOIN ballots b ON b.id = p.ballot_id
		WHERE b.election_id = $1
		ORDER BY p.sort_order, p.id
	`, electionID)
	if err != nil {
		return ballotStructure{}, apperr.Storage("load positions", err)
	}

	var candidates []models.Candidate
	err = sqlscan.Select(ctx, q, &candidates, `
		SELECT c.id, c.position_id, c.name
		FROM candidates c
		JOIN positions p ON p.id = c.position_id
		JOIN ballots b ON b.id = p.ballot_id
		WHERE b.election_id = $1
	`, electionID)
	if err != nil {
		return ballotStructure{}, apperr.Storage("load candidates", err)
	}

	bs := ballotStructure{
		positions:  make(map[string]models.Position, len(positions)),
		candidates: make(map[string]models.Candidate, len(candidates)),
		order:      make([]string, 0, len(positions)),
	}
	for _, p := range positions {
		bs.positions[p.ID] = p
		bs.order = append(bs.order, p.ID)
	}
	for _, c := range candidates {
		bs.candidates[c.ID] = c
	}
	return bs, nil
}

// validate applies the ballot membership and max_choices rules. A position
// may appear once and a candidate once per ballot, so the per-entry
// max_choices count is the per-position count.
func (bs ballotStructure) validate(selections []models.Selection) error {
	seenPositions := make(map[string]bool, len(selections))
	seenCandidates := make(map[string]bool)
	for _, s := range selections {
		p, ok := bs.positions[s.PositionID]
		if !ok {
			return apperr.Validation(apperr.CodeUnknownPosition,
				fmt.Sprintf("position %s is not on this election's ballot", s.PositionID))
		}
		if seenPositions[p.ID] {
			return apperr.Validation(apperr.CodeMalformed,
				fmt.Sprintf("%s appears more than once", p.Name))
		}
		seenPositions[p.ID] = true
		for _, cid := range s.CandidateIDs {
			c, ok := bs.candidates[cid]
			if !ok || c.PositionID != p.ID {
				return apperr.Validation(apperr.CodeUnknownCandidate,
					fmt.Sprintf("candidate %s is not running for %s", cid, p.Name))
			}
			if seenCandidates[cid] {
				return apperr.Validation(apperr.CodeMalformed,
					fmt.Sprintf("candidate %s is selected more than once", c.Name))
			}
			seenCandidates[cid] = true
		}
		if len(s.CandidateIDs) > p.MaxChoices {
			return apperr.Validation(apperr.CodeTooManyChoices,
				fmt.Sprintf("%s allows at most %d choice(s), got %d", p.Name, p.MaxChoices, len(s.CandidateIDs)))
		}
	}
	return nil
}

// render turns selections into receipt rows in ballot order. IDs that are
// no longer on the ballot are shown by ID.
func (bs ballotStructure) render(selections []models.Selection) []models.ReceiptSelection {
	rank := make(map[string]int, len(bs.order))
	for i, id := range bs.order {
		rank[id] = i
	}

	sorted := append([]models.Selection(nil), selections...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, ok := rank[sorted[i].PositionID]
		if !ok {
			ri = len(rank)
		}
		rj, ok := rank[sorted[j].PositionID]
		if !ok {
			rj = len(rank)
		}
		return ri < rj
	})

	out := make([]models.ReceiptSelection, 0, len(sorted))
	for _, s := range sorted {
		rs := models.ReceiptSelection{
			PositionID:   s.PositionID,
			PositionName: s.PositionID,
			Candidates:   make([]models.ReceiptCandidate, 0, len(s.CandidateIDs)),
		}
		if p, ok := bs.positions[s.PositionID]; ok {
			rs.PositionName = p.Name
		}
		for _, cid := range s.CandidateIDs {
			rc := models.ReceiptCandidate{ID: cid, Name: cid}
			if c, ok := bs.candidates[cid]; ok {
				rc.Name = c.Name
			}
			rs.Candidates = append(rs.Candidates, rc)
		}
		out = append(out, rs)
	}
	return out
}

// committedToken finds the token of a student's existing submission, first
// by blinded ID, then through the votes rows. Empty means none.
func committedToken(ctx context.Context, q querier, electionID, studentID, blindedID string) (string, error) {
	var token string
	err := q.QueryRowContext(ctx, `
		SELECT vote_token FROM encrypted_ballots
		WHERE election_id = $1 AND blinded_voter_id = $2
	`, electionID, blindedID).Scan(&token)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up ballot token: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT vote_token FROM votes
		WHERE election_id = $1 AND student_id = $2
		LIMIT 1
	`, electionID, studentID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up vote token: %w", err)
	}
	return token, nil
}
