// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start at debug and completion (status, duration_ms) at info.

# Identity

Students are authenticated upstream; the handlers only read X-Student-ID
through StudentID. Admin routes are wrapped with RequireAdmin, which
compares X-Admin-Key in constant time:

	mux.HandleFunc("POST /elections/reconcile",
		middleware.WithLogging(middleware.RequireAdmin(cfg.AdminKey, h.Reconcile)))

# CORS

Allows GET, POST, PUT, DELETE, OPTIONS with headers Content-Type,
Authorization, X-Admin-Key and X-Student-ID.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.CodedErrorResponse(w, http.StatusConflict, "already_voted", "you have already voted", token)

# Client IP Extraction

GetClientIP prefers the first X-Forwarded-For entry, then X-Real-IP, then
the RemoteAddr host. The precinct gate trusts this value, so deployments
must sit behind a proxy that overwrites those headers.
*/
package middleware
