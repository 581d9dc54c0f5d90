// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseSubmission(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason string // empty means well-formed
		want       []Selection
	}{
		{
			name: "single position",
			body: `{"selections":[{"position_id":"p1","candidate_ids":["c1"]}]}`,
			want: []Selection{{PositionID: "p1", CandidateIDs: []string{"c1"}}},
		},
		{
			name: "integer ids",
			body: `{"selections":[{"position_id":7,"candidate_ids":[12,13]}]}`,
			want: []Selection{{PositionID: "7", CandidateIDs: []string{"12", "13"}}},
		},
		{
			name: "abstain on one position",
			body: `{"selections":[{"position_id":"p1","candidate_ids":["c1"]},{"position_id":"p2","candidate_ids":[]}]}`,
			want: []Selection{
				{PositionID: "p1", CandidateIDs: []string{"c1"}},
				{PositionID: "p2", CandidateIDs: []string{}},
			},
		},
		{
			name: "trims whitespace",
			body: `{"selections":[{"position_id":" p1 ","candidate_ids":[" c1"]}]}`,
			want: []Selection{{PositionID: "p1", CandidateIDs: []string{"c1"}}},
		},
		{name: "not json", body: `selections=p1`, wantReason: "JSON object"},
		{name: "array body", body: `[]`, wantReason: "JSON object"},
		{name: "missing selections", body: `{}`, wantReason: "selections is required"},
		{name: "null selections", body: `{"selections":null}`, wantReason: "selections is required"},
		{name: "empty selections", body: `{"selections":[]}`, wantReason: "cannot be empty"},
		{name: "missing position", body: `{"selections":[{"candidate_ids":["c1"]}]}`, wantReason: "position_id"},
		{name: "float position", body: `{"selections":[{"position_id":1.5,"candidate_ids":["c1"]}]}`, wantReason: "position_id"},
		{name: "blank position", body: `{"selections":[{"position_id":"  ","candidate_ids":["c1"]}]}`, wantReason: "position_id"},
		{name: "missing candidates", body: `{"selections":[{"position_id":"p1"}]}`, wantReason: "must be an array"},
		{name: "object candidate", body: `{"selections":[{"position_id":"p1","candidate_ids":[{"id":"c1"}]}]}`, wantReason: "candidate_ids[0]"},
		{name: "duplicate position", body: `{"selections":[{"position_id":"p1","candidate_ids":["c1"]},{"position_id":"p1","candidate_ids":["c2"]}]}`, wantReason: "duplicate position_id"},
		{name: "duplicate candidate", body: `{"selections":[{"position_id":"p1","candidate_ids":["c1","c1"]}]}`, wantReason: "duplicate candidate_id"},
		{name: "all abstain", body: `{"selections":[{"position_id":"p1","candidate_ids":[]}]}`, wantReason: "at least one candidate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSubmission([]byte(tt.body))

			switch sub := got.(type) {
			case WellFormed:
				if tt.wantReason != "" {
					t.Fatalf("Expected Malformed(%q), got WellFormed %+v", tt.wantReason, sub)
				}
				if !reflect.DeepEqual(sub.Selections, tt.want) {
					t.Errorf("Selections = %+v, want %+v", sub.Selections, tt.want)
				}
			case Malformed:
				if tt.wantReason == "" {
					t.Fatalf("Expected WellFormed, got Malformed(%q)", sub.Reason)
				}
				if !strings.Contains(sub.Reason, tt.wantReason) {
					t.Errorf("Reason = %q, want it to contain %q", sub.Reason, tt.wantReason)
				}
			default:
				t.Fatalf("unexpected submission type %T", got)
			}
		})
	}
}

func TestNewSubmission_Limits(t *testing.T) {
	many := make([]Selection, MaxPositions+1)
	for i := range many {
		many[i] = Selection{PositionID: strings.Repeat("p", i+1), CandidateIDs: []string{"c"}}
	}
	if _, ok := NewSubmission(many).(Malformed); !ok {
		t.Error("Expected too many positions to be malformed")
	}

	ids := make([]string, MaxCandidatesPerChoice+1)
	for i := range ids {
		ids[i] = strings.Repeat("c", i+1)
	}
	if _, ok := NewSubmission([]Selection{{PositionID: "p1", CandidateIDs: ids}}).(Malformed); !ok {
		t.Error("Expected too many candidates to be malformed")
	}
}

func TestWellFormed_CandidateCount(t *testing.T) {
	w := WellFormed{Selections: []Selection{
		{PositionID: "p1", CandidateIDs: []string{"a"}},
		{PositionID: "p2", CandidateIDs: []string{"b", "c"}},
		{PositionID: "p3", CandidateIDs: []string{}},
	}}
	if got := w.CandidateCount(); got != 3 {
		t.Errorf("CandidateCount() = %d, want 3", got)
	}
}
