// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/campus-vote/apperr"
	"github.com/danielhkuo/campus-vote/middleware"
)

// statusFor maps a typed failure to its HTTP status
func statusFor(e *apperr.Error) int {
	switch e.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindEligibility:
		switch e.Code {
		case apperr.CodeAlreadyVoted:
			return http.StatusConflict
		case apperr.CodeReceiptNotFound:
			return http.StatusNotFound
		}
		return http.StatusForbidden
	case apperr.KindState:
		if e.Code == apperr.CodeElectionNotFound {
			return http.StatusNotFound
		}
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders err. Storage, integrity and conflict failures get a
// generic message; their detail stays in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		slog.Error("unhandled error", "path", r.URL.Path, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal error")
		return
	}

	code := statusFor(e)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "kind", e.Kind, "code", e.Code, "error", err)
		middleware.CodedErrorResponse(w, code, e.Code, "Internal error", "")
		return
	}
	middleware.CodedErrorResponse(w, code, e.Code, e.Message, e.Token)
}

// requireStudent reads X-Student-ID, writing 401 when it is missing
func requireStudent(w http.ResponseWriter, r *http.Request) (string, bool) {
	studentID := middleware.StudentID(r)
	if studentID == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, middleware.HeaderStudentID+" header required")
		return "", false
	}
	return studentID, true
}
