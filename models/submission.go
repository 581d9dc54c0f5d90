// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Shape limits for a single submission
const (
	MaxPositions           = 100
	MaxCandidatesPerChoice = 100
)

// Selection is the candidates chosen for one position. An empty
// CandidateIDs list records an abstention for that position.
type Selection struct {
	PositionID   string   `json:"position_id"`
	CandidateIDs []string `json:"candidate_ids"`
}

// Submission is a ballot request after boundary validation: either
// WellFormed or Malformed. Domain code never sees raw request bodies.
type Submission interface {
	submission()
}

type WellFormed struct {
	Selections []Selection
}

type Malformed struct {
	Reason string
}

func (WellFormed) submission() {}
func (Malformed) submission()  {}

// CandidateCount is the number of individual candidate selections
func (w WellFormed) CandidateCount() int {
	n := 0
	for _, s := range w.Selections {
		n += len(s.CandidateIDs)
	}
	return n
}

type rawSubmission struct {
	Selections *[]rawSelection `json:"selections"`
}

type rawSelection struct {
	PositionID   json.RawMessage   `json:"position_id"`
	CandidateIDs []json.RawMessage `json:"candidate_ids"`
}

// ParseSubmission validates a request body once, at the boundary
func ParseSubmission(body []byte) Submission {
	var raw rawSubmission
	if err := json.Unmarshal(body, &raw); err != nil {
		return Malformed{Reason: "request body must be a JSON object with a selections array"}
	}
	if raw.Selections == nil {
		return Malformed{Reason: "selections is required"}
	}

	selections := make([]Selection, 0, len(*raw.Selections))
	for i, rs := range *raw.Selections {
		positionID, ok := idString(rs.PositionID)
		if !ok {
			return Malformed{Reason: fmt.Sprintf("selections[%d].position_id must be a non-empty string or integer", i)}
		}
		if rs.CandidateIDs == nil {
			return Malformed{Reason: fmt.Sprintf("selections[%d].candidate_ids must be an array", i)}
		}
		ids := make([]string, 0, len(rs.CandidateIDs))
		for j, rc := range rs.CandidateIDs {
			id, ok := idString(rc)
			if !ok {
				return Malformed{Reason: fmt.Sprintf("selections[%d].candidate_ids[%d] must be a non-empty string or integer", i, j)}
			}
			ids = append(ids, id)
		}
		selections = append(selections, Selection{PositionID: positionID, CandidateIDs: ids})
	}

	return NewSubmission(selections)
}

// NewSubmission checks the structural rules shared by every entry point:
// non-empty, no duplicate positions, no duplicate candidates per position,
// at least one candidate overall.
func NewSubmission(selections []Selection) Submission {
	if len(selections) == 0 {
		return Malformed{Reason: "selections cannot be empty"}
	}
	if len(selections) > MaxPositions {
		return Malformed{Reason: fmt.Sprintf("at most %d positions per ballot", MaxPositions)}
	}

	seenPositions := make(map[string]bool, len(selections))
	total := 0
	out := make([]Selection, 0, len(selections))
	for _, s := range selections {
		pid := strings.TrimSpace(s.PositionID)
		if pid == "" {
			return Malformed{Reason: "position_id cannot be empty"}
		}
		if seenPositions[pid] {
			return Malformed{Reason: "duplicate position_id: " + pid}
		}
		seenPositions[pid] = true

		if len(s.CandidateIDs) > MaxCandidatesPerChoice {
			return Malformed{Reason: "too many candidate_ids for position " + pid}
		}

		seenCandidates := make(map[string]bool, len(s.CandidateIDs))
		ids := make([]string, 0, len(s.CandidateIDs))
		for _, c := range s.CandidateIDs {
			cid := strings.TrimSpace(c)
			if cid == "" {
				return Malformed{Reason: "candidate_id cannot be empty"}
			}
			if seenCandidates[cid] {
				return Malformed{Reason: "duplicate candidate_id " + cid + " for position " + pid}
			}
			seenCandidates[cid] = true
			ids = append(ids, cid)
		}
		total += len(ids)
		out = append(out, Selection{PositionID: pid, CandidateIDs: ids})
	}

	if total == 0 {
		return Malformed{Reason: "at least one candidate must be selected"}
	}
	return WellFormed{Selections: out}
}

// idString accepts "abc" or 42 and rejects everything else
func idString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	default:
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatInt(n, 10), true
	}
}
