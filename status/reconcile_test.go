// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package status

import (
	"context"
	"errors"
	"testing"

	"github.com/danielhkuo/campus-vote/apperr"
	"github.com/danielhkuo/campus-vote/testutil"
)

func ptr(s string) *string { return &s }

func TestReconcile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	// testutil.TestNow is 09:00 on 2025-01-10
	starting := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "upcoming"})
	finished := testutil.CreateTestElection(t, db, testutil.ElectionOpts{
		Status: "ongoing", DateFrom: ptr("2025-01-09"), DateTo: ptr("2025-01-09"),
	})
	awaiting := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "pending", NeedsApproval: true})
	rescheduled := testutil.CreateTestElection(t, db, testutil.ElectionOpts{
		Status: "ongoing", DateFrom: ptr("2025-01-11"), DateTo: ptr("2025-01-11"),
	})
	closed := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "completed"})
	unscheduled := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "draft", NoWindow: true})

	r := NewReconciler(db, testutil.FixedClock(testutil.TestNow()))

	transitions, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	got := make(map[string]Transition)
	for _, tr := range transitions {
		got[tr.ElectionID] = tr
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 transitions, got %d: %+v", len(got), transitions)
	}
	if tr := got[starting]; tr.From != Upcoming || tr.To != Ongoing {
		t.Errorf("starting election transition = %+v, want upcoming -> ongoing", tr)
	}
	if tr := got[finished]; tr.From != Ongoing || tr.To != Completed {
		t.Errorf("finished election transition = %+v, want ongoing -> completed", tr)
	}

	want := map[string]string{
		starting:    "ongoing",
		finished:    "completed",
		awaiting:    "pending",
		rescheduled: "ongoing", // backwards move left for correction
		closed:      "completed",
		unscheduled: "draft",
	}
	for id, status := range want {
		if s := testutil.ElectionStatus(t, db, id); s != status {
			t.Errorf("election %s status = %s, want %s", id, s, status)
		}
	}

	// Second run at the same instant changes nothing
	again, err := r.Reconcile(ctx)
	if err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("Expected idempotent second run, got %+v", again)
	}
}

func TestReconcile_RollsBackOnFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	first := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "upcoming"})
	second := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "upcoming"})

	// Make the update of one election fail partway through the run
	_, err := db.Exec(`
		CREATE TRIGGER reject_status BEFORE UPDATE OF status ON elections
		WHEN NEW.id = '` + second + `'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END;
	`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	r := NewReconciler(db, testutil.FixedClock(testutil.TestNow()))
	if _, err := r.Reconcile(ctx); err == nil {
		t.Fatal("Expected Reconcile to fail")
	} else if apperr.KindOf(err) != apperr.KindStorage {
		t.Errorf("KindOf(err) = %v, want storage", apperr.KindOf(err))
	}

	for _, id := range []string{first, second} {
		if s := testutil.ElectionStatus(t, db, id); s != "upcoming" {
			t.Errorf("election %s status = %s, want upcoming after rollback", id, s)
		}
	}
}

func TestApprove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	id := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "pending", NeedsApproval: true})
	r := NewReconciler(db, testutil.FixedClock(testutil.TestNow()))

	tr, err := r.Approve(ctx, id, "admin-1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if tr.From != Pending || tr.To != Ongoing {
		t.Errorf("Approve() transition = %+v, want pending -> ongoing", tr)
	}
	if s := testutil.ElectionStatus(t, db, id); s != "ongoing" {
		t.Errorf("stored status = %s, want ongoing", s)
	}

	var approvedBy string
	var needsApproval bool
	err = db.QueryRow(`SELECT approved_by, needs_approval FROM elections WHERE id = $1`, id).Scan(&approvedBy, &needsApproval)
	if err != nil {
		t.Fatal(err)
	}
	if approvedBy != "admin-1" || needsApproval {
		t.Errorf("approved_by = %q, needs_approval = %v", approvedBy, needsApproval)
	}

	// Approving again is a no-op
	tr, err = r.Approve(ctx, id, "admin-2")
	if err != nil {
		t.Fatalf("second Approve() error = %v", err)
	}
	if tr.Changed() {
		t.Errorf("second Approve() changed status: %+v", tr)
	}
}

func TestApprove_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	id := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "pending", NeedsApproval: true})
	r := NewReconciler(db, testutil.FixedClock(testutil.TestNow()))

	tests := []struct {
		name       string
		electionID string
		approver   string
		want       error
	}{
		{"missing approver", id, "", &apperr.Error{Kind: apperr.KindValidation}},
		{"unknown election", "nope", "admin-1", &apperr.Error{Kind: apperr.KindState, Code: apperr.CodeElectionNotFound}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Approve(ctx, tt.electionID, tt.approver)
			if !errors.Is(err, tt.want) {
				t.Errorf("Approve() error = %v, want %v", err, tt.want)
			}
		})
	}

	if s := testutil.ElectionStatus(t, db, id); s != "pending" {
		t.Errorf("status = %s, want pending after failed approvals", s)
	}
}

func TestCorrect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	id := testutil.CreateTestElection(t, db, testutil.ElectionOpts{
		Status: "ongoing", DateFrom: ptr("2025-01-11"), DateTo: ptr("2025-01-11"),
	})
	r := NewReconciler(db, testutil.FixedClock(testutil.TestNow()))

	tr, err := r.Correct(ctx, id)
	if err != nil {
		t.Fatalf("Correct() error = %v", err)
	}
	if tr.From != Ongoing || tr.To != Upcoming {
		t.Errorf("Correct() = %+v, want ongoing -> upcoming", tr)
	}
	if s := testutil.ElectionStatus(t, db, id); s != "upcoming" {
		t.Errorf("stored status = %s, want upcoming", s)
	}

	if _, err := r.Correct(ctx, "nope"); apperr.CodeOf(err) != apperr.CodeElectionNotFound {
		t.Errorf("Correct(unknown) error = %v, want election_not_found", err)
	}
}

func TestInspect(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	id := testutil.CreateTestElection(t, db, testutil.ElectionOpts{Status: "upcoming"})
	r := NewReconciler(db, testutil.FixedClock(testutil.TestNow()))

	snap, err := r.Inspect(ctx, id)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if snap.Stored != Upcoming || snap.Computed != Ongoing {
		t.Errorf("Inspect() = %+v, want stored upcoming computed ongoing", snap)
	}
	if got := testutil.ElectionStatus(t, db, id); got != "upcoming" {
		t.Errorf("Inspect wrote status %q", got)
	}

	_, err = r.Inspect(ctx, "missing")
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindState, Code: apperr.CodeElectionNotFound}) {
		t.Errorf("Inspect(missing) error = %v", err)
	}
}

func TestReconcile_PrivilegedCreatorSkipsApproval(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	id := testutil.CreateTestElection(t, db, testutil.ElectionOpts{
		Status: "pending", NeedsApproval: true, Privileged: true,
	})
	r := NewReconciler(db, testutil.FixedClock(testutil.TestNow()))

	if _, err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if got := testutil.ElectionStatus(t, db, id); got != "ongoing" {
		t.Errorf("status = %s, want ongoing", got)
	}
}
