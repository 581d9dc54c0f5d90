// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielhkuo/campus-vote/status"
	"github.com/danielhkuo/campus-vote/testutil"
)

type fakeReconciler struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	result  []status.Transition
	err     error
}

func (f *fakeReconciler) Reconcile(ctx context.Context) ([]status.Transition, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.result, f.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]status.Transition
}

func (n *recordingNotifier) Notify(ctx context.Context, transitions []status.Transition) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, transitions)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func transition(id string, from, to status.Status) status.Transition {
	return status.Transition{ElectionID: id, Title: "Student Council 2025", From: from, To: to, At: testutil.TestNow()}
}

func TestReconcile_NotifiesOnlyOnChange(t *testing.T) {
	tests := []struct {
		name       string
		result     []status.Transition
		err        error
		wantNotify int
		wantErr    bool
	}{
		{"transitions", []status.Transition{transition("e1", status.Upcoming, status.Ongoing)}, nil, 1, false},
		{"nothing changed", nil, nil, 0, false},
		{"failed pass", nil, errors.New("database is locked"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReconciler{result: tt.result, err: tt.err}
			n := &recordingNotifier{}
			s := New(r, n, 0)

			got, err := s.Reconcile(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reconcile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.result) {
				t.Errorf("Reconcile() returned %d transitions, want %d", len(got), len(tt.result))
			}
			if n.count() != tt.wantNotify {
				t.Errorf("Notify called %d times, want %d", n.count(), tt.wantNotify)
			}
		})
	}
}

func TestReconcile_JoinsInFlightPass(t *testing.T) {
	r := &fakeReconciler{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
		result:  []status.Transition{transition("e1", status.Upcoming, status.Ongoing)},
	}
	s := New(r, nil, 0)

	var wg sync.WaitGroup
	results := make([]int, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		ts, _ := s.Reconcile(context.Background())
		results[0] = len(ts)
	}()
	<-r.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		ts, _ := s.Reconcile(context.Background())
		results[1] = len(ts)
	}()
	// Give the second caller time to join before the first finishes
	time.Sleep(50 * time.Millisecond)
	close(r.release)
	wg.Wait()

	if calls := r.calls.Load(); calls != 1 {
		t.Errorf("Expected 1 reconcile pass, got %d", calls)
	}
	if results[0] != 1 || results[1] != 1 {
		t.Errorf("Both callers should see the shared result, got %v", results)
	}
}

func TestReconcile_StarterCancelDoesNotFailJoinedCaller(t *testing.T) {
	r := &fakeReconciler{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
		result:  []status.Transition{transition("e1", status.Upcoming, status.Ongoing)},
	}
	n := &recordingNotifier{}
	s := New(r, n, 0)

	// The first caller gives up while its pass is still running
	starterCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var starterErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, starterErr = s.Reconcile(starterCtx)
	}()
	<-r.started

	var joined []status.Transition
	var joinedErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		joined, joinedErr = s.Reconcile(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(r.release)
	wg.Wait()

	if joinedErr != nil {
		t.Fatalf("joined caller got error %v", joinedErr)
	}
	if len(joined) != 1 {
		t.Errorf("joined caller got %d transitions, want 1", len(joined))
	}
	if starterErr != nil {
		t.Errorf("starting caller got error %v", starterErr)
	}
	if n.count() != 1 {
		t.Errorf("Notify called %d times, want 1", n.count())
	}
}

func TestRun(t *testing.T) {
	r := &fakeReconciler{}
	s := New(r, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for r.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("Expected at least 3 passes, got %d", r.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_Disabled(t *testing.T) {
	r := &fakeReconciler{}
	s := New(r, nil, 0)

	s.Run(context.Background())

	if calls := r.calls.Load(); calls != 0 {
		t.Errorf("Disabled scheduler ran %d passes", calls)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{
		Logger: slog.New(slog.NewTextHandler(&buf, nil)),
		Now:    testutil.FixedClock(testutil.TestNow().Add(2 * time.Hour)),
	}

	n.Notify(context.Background(), []status.Transition{
		transition("e1", status.Upcoming, status.Ongoing),
		transition("e2", status.Ongoing, status.Completed),
	})

	out := buf.String()
	if got := strings.Count(out, "election status changed"); got != 2 {
		t.Errorf("Expected 2 log lines, got %d: %s", got, out)
	}
	for _, want := range []string{"election_id=e1", "from=upcoming", "to=completed", `when="2 hours ago"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output: %s", want, out)
		}
	}
}
