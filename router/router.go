// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/danielhkuo/campus-vote/cliparse"
	"github.com/danielhkuo/campus-vote/handlers"
	"github.com/danielhkuo/campus-vote/middleware"
	"github.com/danielhkuo/campus-vote/precinct"
	"github.com/danielhkuo/campus-vote/sealer"
	"github.com/danielhkuo/campus-vote/status"
	"github.com/danielhkuo/campus-vote/voting"
)

// Deps are the long-lived services the routes share
type Deps struct {
	DB         *sql.DB
	Sealer     *sealer.Sealer
	Reconciler *status.Reconciler
	// Runner serializes manual reconciles with scheduled ones; nil uses
	// Reconciler directly
	Runner handlers.ReconcileRunner
	// Now is the submission clock; nil means time.Now
	Now func() time.Time
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	now := deps.Now
	if now == nil {
		now = time.Now
	}
	reconciler := deps.Reconciler
	if reconciler == nil {
		reconciler = status.NewReconciler(deps.DB, now)
	}

	// Initialize services and handlers
	gate := precinct.NewGate(deps.DB).WithAddressKey(cfg.BlindSecret)
	roster := voting.NewRoster(deps.DB, gate)
	votingHandler := handlers.NewVotingHandler(gate,
		voting.NewSubmitter(deps.DB, deps.Sealer, cfg.BlindSecret, now),
		voting.NewReceipts(deps.DB, deps.Sealer, cfg.BlindSecret),
		roster,
	)
	electionHandler := handlers.NewElectionHandler(reconciler, deps.Runner, roster)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminKey, h))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voting (student, X-Student-ID)
	mux.HandleFunc("POST /elections/{id}/ballots", middleware.WithLogging(votingHandler.SubmitBallot))
	mux.HandleFunc("GET /elections/{id}/receipt", middleware.WithLogging(votingHandler.GetReceipt))
	mux.HandleFunc("GET /elections/{id}/eligibility", middleware.WithLogging(votingHandler.CheckEligibility))
	mux.HandleFunc("GET /elections/{id}/location", middleware.WithLogging(votingHandler.CheckLocation))

	// Election status (public)
	mux.HandleFunc("GET /elections/{id}/status", middleware.WithLogging(electionHandler.GetStatus))

	// Administration (X-Admin-Key)
	mux.HandleFunc("POST /elections/reconcile", admin(electionHandler.Reconcile))
	mux.HandleFunc("POST /elections/{id}/approve", admin(electionHandler.Approve))
	mux.HandleFunc("POST /elections/{id}/correct", admin(electionHandler.Correct))
	mux.HandleFunc("PUT /elections/{id}/roster", admin(electionHandler.ReplaceRoster))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("campus-vote API v1"))
	})

	return mux
}
