// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/models"
	"github.com/danielhkuo/campus-vote/status"
	"github.com/danielhkuo/campus-vote/voting"
)

// ReconcileRunner runs one reconcile pass. The scheduler implements it so a
// manual run and a tick never overlap; tests pass the reconciler directly.
type ReconcileRunner interface {
	Reconcile(ctx context.Context) ([]status.Transition, error)
}

type ElectionHandler struct {
	reconciler *status.Reconciler
	runner     ReconcileRunner
	roster     *voting.Roster
}

// NewElectionHandler wires the admin endpoints. A nil runner uses the
// reconciler itself.
func NewElectionHandler(reconciler *status.Reconciler, runner ReconcileRunner, roster *voting.Roster) *ElectionHandler {
	if runner == nil {
		runner = reconciler
	}
	return &ElectionHandler{reconciler: reconciler, runner: runner, roster: roster}
}

func transitionResponse(t status.Transition) models.TransitionResponse {
	return models.TransitionResponse{
		ElectionID: t.ElectionID,
		From:       string(t.From),
		To:         string(t.To),
		At:         t.At,
	}
}

// Approve handles POST /elections/{id}/approve (admin)
func (h *ElectionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req models.ApproveRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	t, err := h.reconciler.Approve(r.Context(), r.PathValue("id"), req.ApproverID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, transitionResponse(t))
}

// Reconcile handles POST /elections/reconcile (admin)
func (h *ElectionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	transitions, err := h.runner.Reconcile(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := models.ReconcileResponse{Transitions: make([]models.TransitionResponse, 0, len(transitions))}
	for _, t := range transitions {
		resp.Transitions = append(resp.Transitions, transitionResponse(t))
	}
	slog.Info("manual reconcile", "transitions", len(transitions))
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Correct handles POST /elections/{id}/correct (admin). Unlike Reconcile it
// may move an election backwards.
func (h *ElectionHandler) Correct(w http.ResponseWriter, r *http.Request) {
	t, err := h.reconciler.Correct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, transitionResponse(t))
}

// GetStatus handles GET /elections/{id}/status
func (h *ElectionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reconciler.Inspect(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.StatusResponse{
		ElectionID: snap.ElectionID,
		Stored:     string(snap.Stored),
		Computed:   string(snap.Computed),
		Votable:    snap.Computed.Votable(),
	})
}

// ReplaceRoster handles PUT /elections/{id}/roster (admin)
func (h *ElectionHandler) ReplaceRoster(w http.ResponseWriter, r *http.Request) {
	var req models.ReplaceRosterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	electionID := r.PathValue("id")
	n, err := h.roster.Replace(r.Context(), electionID, req.Voters)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ReplaceRosterResponse{ElectionID: electionID, Count: n})
}
