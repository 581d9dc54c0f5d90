// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package apperr defines the typed failures returned by the election core.
//
// Every precondition failure is converted to an *Error before any row is
// written. Only KindStorage and KindIntegrity represent unexpected failures;
// the rest carry a user-facing reason.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindEligibility Kind = "eligibility"
	KindIntegrity   Kind = "integrity"
	KindState       Kind = "state"
	KindConflict    Kind = "concurrency_conflict"
	KindStorage     Kind = "storage"
)

// Stable machine-readable codes.
const (
	CodeMalformed        = "malformed_submission"
	CodeUnknownPosition  = "unknown_position"
	CodeUnknownCandidate = "unknown_candidate"
	CodeTooManyChoices   = "too_many_choices"
	CodeNotOnRoster      = "not_on_roster"
	CodeAlreadyVoted     = "already_voted"
	CodePrecinctMismatch = "precinct_mismatch"
	CodePrecinctLookup   = "precinct_lookup_failed"
	CodeElectionNotFound = "election_not_found"
	CodeNotVotable       = "election_not_votable"
	CodePendingApproval  = "pending_approval"
	CodeReceiptNotFound  = "receipt_not_found"
	CodeTampered         = "tampered"
	CodeLostRace         = "lost_race"
	CodeStorage          = "storage_failure"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Token is set when the failure refers to an existing ballot
	// (already voted, lost race).
	Token string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and code, so sentinel-style comparisons
// like errors.Is(err, apperr.AlreadyVoted("")) work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Eligibility(code, message string) *Error {
	return &Error{Kind: KindEligibility, Code: code, Message: message}
}

func State(code, message string) *Error {
	return &Error{Kind: KindState, Code: code, Message: message}
}

func Integrity(message string, err error) *Error {
	return &Error{Kind: KindIntegrity, Code: CodeTampered, Message: message, Err: err}
}

func Storage(message string, err error) *Error {
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: message, Err: err}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Code: CodeLostRace, Message: message, Err: err}
}

// AlreadyVoted reports a student who already has a committed ballot.
// token may be empty when the ballot rows could not be located.
func AlreadyVoted(token string) *Error {
	return &Error{
		Kind:    KindEligibility,
		Code:    CodeAlreadyVoted,
		Message: "you have already voted in this election",
		Token:   token,
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindStorage
// for anything untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Unexpected reports whether err must be logged as an operational failure.
func Unexpected(err error) bool {
	switch KindOf(err) {
	case KindStorage, KindIntegrity:
		return true
	}
	return false
}
