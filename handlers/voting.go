// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/precinct"
	"github.com/danielhkuo/campus-vote/voting"
)

// maxBallotBytes bounds a submission body
const maxBallotBytes = 64 << 10

type VotingHandler struct {
	gate      *precinct.Gate
	submitter *voting.Submitter
	receipts  *voting.Receipts
	roster    *voting.Roster
}

func NewVotingHandler(gate *precinct.Gate, submitter *voting.Submitter, receipts *voting.Receipts, roster *voting.Roster) *VotingHandler {
	return &VotingHandler{gate: gate, submitter: submitter, receipts: receipts, roster: roster}
}

// SubmitBallot handles POST /elections/{id}/ballots
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if electionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "election id is required")
		return
	}
	studentID, ok := requireStudent(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBallotBytes))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Status, then location, then the roster and ballot checks in Submit
	if err := h.submitter.CheckOpen(r.Context(), electionID); err != nil {
		writeError(w, r, err)
		return
	}

	decision := h.gate.ValidateAddress(r.Context(), studentID, electionID, middleware.GetClientIP(r))
	if err := decision.Err(); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.submitter.Submit(r.Context(), electionID, studentID, models.ParseSubmission(body))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if res.Recovered {
		slog.Info("returned committed ballot", "election_id", electionID, "student_id", studentID, "vote_token", res.VoteToken)
		middleware.JSONResponse(w, http.StatusOK, models.SubmitBallotResponse{
			VoteToken: res.VoteToken,
			Message:   "Your ballot was already recorded",
		})
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		VoteToken: res.VoteToken,
		Message:   "Ballot submitted",
	})
}

// GetReceipt handles GET /elections/{id}/receipt?token=
func (h *VotingHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	studentID, ok := requireStudent(w, r)
	if !ok {
		return
	}

	receipt, err := h.receipts.GetReceipt(r.Context(), r.PathValue("id"), studentID, r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, receipt)
}

// CheckEligibility handles GET /elections/{id}/eligibility
func (h *VotingHandler) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	studentID, ok := requireStudent(w, r)
	if !ok {
		return
	}

	el, err := h.roster.CheckEligibility(r.Context(), r.PathValue("id"), studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.EligibilityResponse{
		Eligible: el.Eligible,
		HasVoted: el.HasVoted,
		Precinct: el.Precinct,
	})
}

// CheckLocation handles GET /elections/{id}/location. The decision is
// reported, not enforced, so a denial is still 200.
func (h *VotingHandler) CheckLocation(w http.ResponseWriter, r *http.Request) {
	studentID, ok := requireStudent(w, r)
	if !ok {
		return
	}

	d := h.gate.ValidateAddress(r.Context(), studentID, r.PathValue("id"), middleware.GetClientIP(r))
	middleware.JSONResponse(w, http.StatusOK, models.LocationResponse{
		Allowed:  d.Allowed,
		Code:     d.Code,
		Precinct: d.Precinct,
		Message:  d.Message,
	})
}
