// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"time"

	"github.com/danielhkuo/campus-vote/status"
)

// Address record types
const (
	IPTypeSingle = "single"
	IPTypeRange  = "range"
	IPTypeSubnet = "subnet"
)

// Receipt sources
const (
	ReceiptFromBallot = "ballot"
	ReceiptFromVotes  = "votes"
)

// Domain types

type Election struct {
	ID                  string  `json:"id" db:"id"`
	Title               string  `json:"title" db:"title"`
	DateFrom            *string `json:"date_from,omitempty" db:"date_from"`
	DateTo              *string `json:"date_to,omitempty" db:"date_to"`
	StartTime           *string `json:"start_time,omitempty" db:"start_time"`
	EndTime             *string `json:"end_time,omitempty" db:"end_time"`
	Status              string  `json:"status" db:"status"`
	NeedsApproval       bool    `json:"needs_approval" db:"needs_approval"`
	ApprovedBy          *string `json:"approved_by,omitempty" db:"approved_by"`
	CreatedBy           *string `json:"created_by,omitempty" db:"created_by"`
	CreatedByPrivileged bool    `json:"-" db:"created_by_privileged"`
}

// Window returns the election's civil window for status computation
func (e Election) Window() status.Window {
	return status.Window{
		DateFrom:  deref(e.DateFrom),
		DateTo:    deref(e.DateTo),
		StartTime: deref(e.StartTime),
		EndTime:   deref(e.EndTime),
	}
}

// StatusAt is the status the election's window implies at now
func (e Election) StatusAt(now time.Time) status.Status {
	return status.Initial(e.Window(), e.NeedsApproval, e.CreatedByPrivileged, now)
}

// EligibleVoter is a roster row. Demographics are a snapshot taken when the
// roster was built, not a live join.
type EligibleVoter struct {
	ID         string  `json:"id" db:"id"`
	ElectionID string  `json:"election_id" db:"election_id"`
	StudentID  string  `json:"student_id" db:"student_id"`
	HasVoted   bool    `json:"has_voted" db:"has_voted"`
	CourseName *string `json:"course_name,omitempty" db:"course_name"`
	YearLevel  *string `json:"year_level,omitempty" db:"year_level"`
	Gender     *string `json:"gender,omitempty" db:"gender"`
	Precinct   *string `json:"precinct,omitempty" db:"precinct"`
}

type Position struct {
	ID         string `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	MaxChoices int    `json:"max_choices" db:"max_choices"`
	SortOrder  int    `json:"sort_order" db:"sort_order"`
}

type Candidate struct {
	ID         string `json:"id" db:"id"`
	PositionID string `json:"position_id" db:"position_id"`
	Name       string `json:"name" db:"name"`
}

type LabAddress struct {
	ID         string  `db:"id"`
	IPAddress  *string `db:"ip_address"`
	IPType     string  `db:"ip_type"`
	RangeStart *string `db:"ip_range_start"`
	RangeEnd   *string `db:"ip_range_end"`
	SubnetMask *string `db:"subnet_mask"`
	IsActive   bool    `db:"is_active"`
}

// Sealed payloads. Field order is the serialization order.

// BallotPayload is the whole selection set sealed into encrypted_ballots
type BallotPayload struct {
	ElectionID  string      `json:"election_id"`
	VoteToken   string      `json:"vote_token"`
	Selections  []Selection `json:"selections"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// VotePayload is one candidate selection sealed into a votes row
type VotePayload struct {
	ElectionID  string `json:"election_id"`
	VoteToken   string `json:"vote_token"`
	PositionID  string `json:"position_id"`
	CandidateID string `json:"candidate_id"`
}

// Receipt types

type ReceiptCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ReceiptSelection struct {
	PositionID   string             `json:"position_id"`
	PositionName string             `json:"position_name"`
	Candidates   []ReceiptCandidate `json:"candidates"`
}

type Receipt struct {
	VoteToken        string             `json:"vote_token"`
	ElectionID       string             `json:"election_id"`
	ElectionTitle    string             `json:"election_title"`
	Selections       []ReceiptSelection `json:"selections"`
	SubmittedAt      *time.Time         `json:"submitted_at,omitempty"`
	Source           string             `json:"source"`
	Dropped          int                `json:"dropped,omitempty"`
	VerificationCode string             `json:"verification_code"`
}

// Response types

type SubmitBallotResponse struct {
	VoteToken string `json:"vote_token"`
	Message   string `json:"message"`
}

type EligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	HasVoted bool   `json:"has_voted"`
	Precinct string `json:"precinct,omitempty"`
}

type LocationResponse struct {
	Allowed  bool   `json:"allowed"`
	Code     string `json:"code"`
	Precinct string `json:"precinct,omitempty"`
	Message  string `json:"message,omitempty"`
}

type StatusResponse struct {
	ElectionID string `json:"election_id"`
	Stored     string `json:"stored_status"`
	Computed   string `json:"computed_status"`
	Votable    bool   `json:"votable"`
}

type TransitionResponse struct {
	ElectionID string    `json:"election_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	At         time.Time `json:"at"`
}

type ReconcileResponse struct {
	Transitions []TransitionResponse `json:"transitions"`
}

type ApproveRequest struct {
	ApproverID string `json:"approver_id"`
}

type ReplaceRosterRequest struct {
	Voters []EligibleVoter `json:"voters"`
}

type ReplaceRosterResponse struct {
	ElectionID string `json:"election_id"`
	Count      int    `json:"count"`
}

// Error response

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	VoteToken string `json:"vote_token,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
