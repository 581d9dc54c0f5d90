// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package status

import (
	"strings"
	"time"
)

type Status string

const (
	Draft     Status = "draft"
	Pending   Status = "pending"
	Upcoming  Status = "upcoming"
	Ongoing   Status = "ongoing"
	Completed Status = "completed"
)

// CivilZone is the fixed UTC+8 reference for every election window.
// The process time zone is never consulted.
var CivilZone = time.FixedZone("UTC+8", 8*60*60)

const (
	dateLayout = "2006-01-02"
)

var timeLayouts = []string{"15:04:05", "15:04"}

// Window is the civil date/time range of an election as stored.
// Empty strings mean the field is missing.
type Window struct {
	DateFrom  string
	DateTo    string
	StartTime string
	EndTime   string
}

// Bounds returns the start and end instants in CivilZone. ok is false when
// any field is missing or unparsable.
func (w Window) Bounds() (start, end time.Time, ok bool) {
	start, ok = civilInstant(w.DateFrom, w.StartTime)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok = civilInstant(w.DateTo, w.EndTime)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func civilInstant(date, clock string) (time.Time, bool) {
	date, clock = strings.TrimSpace(date), strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	// Some drivers hand back full timestamps for DATE columns
	if len(date) > len(dateLayout) {
		date = date[:len(dateLayout)]
	}
	d, err := time.ParseInLocation(dateLayout, date, CivilZone)
	if err != nil {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		c, err := time.ParseInLocation(layout, clock, CivilZone)
		if err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, CivilZone), true
		}
	}
	return time.Time{}, false
}

// Compute derives an election's status from its window and approval state.
// It is pure: the same inputs always produce the same status.
func Compute(w Window, needsApproval bool, now time.Time) Status {
	if needsApproval {
		return Pending
	}
	start, end, ok := w.Bounds()
	if !ok {
		return Draft
	}
	switch {
	case now.Before(start):
		return Upcoming
	case now.After(end):
		return Completed
	default:
		return Ongoing
	}
}

// Initial is the status assigned at creation. A privileged creator skips
// the approval queue and gets the time-derived status immediately.
func Initial(w Window, needsApproval, privileged bool, now time.Time) Status {
	if privileged {
		needsApproval = false
	}
	return Compute(w, needsApproval, now)
}

// Rank orders statuses along the forward lifecycle.
func (s Status) Rank() int {
	switch s {
	case Draft:
		return 0
	case Pending:
		return 1
	case Upcoming:
		return 2
	case Ongoing:
		return 3
	case Completed:
		return 4
	}
	return -1
}

func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Votable reports whether ballots may be submitted.
func (s Status) Votable() bool {
	return s == Ongoing
}

func (s Status) Terminal() bool {
	return s == Completed
}

// Forward reports whether moving from s to next follows the lifecycle.
func (s Status) Forward(next Status) bool {
	return next.Rank() > s.Rank()
}
