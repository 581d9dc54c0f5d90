// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package status

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/danielhkuo/campus-vote/apperr"
)

// Transition is one persisted status change, handed to the notification
// layer as a plain record.
type Transition struct {
	ElectionID string
	Title      string
	From       Status
	To         Status
	At         time.Time
}

// Changed reports whether the transition moved the election at all
func (t Transition) Changed() bool {
	return t.From != t.To
}

type electionRow struct {
	ID            string  `db:"id"`
	Title         string  `db:"title"`
	DateFrom      *string `db:"date_from"`
	DateTo        *string `db:"date_to"`
	StartTime     *string `db:"start_time"`
	EndTime       *string `db:"end_time"`
	Status        string  `db:"status"`
	NeedsApproval bool    `db:"needs_approval"`
	Privileged    bool    `db:"created_by_privileged"`
}

func (r electionRow) window() Window {
	return Window{
		DateFrom:  deref(r.DateFrom),
		DateTo:    deref(r.DateTo),
		StartTime: deref(r.StartTime),
		EndTime:   deref(r.EndTime),
	}
}

// compute is the status the row should hold at now
func (r electionRow) compute(now time.Time) Status {
	return Initial(r.window(), r.NeedsApproval, r.Privileged, now)
}

const selectElection = `
	SELECT id, title, date_from, date_to, start_time, end_time, status, needs_approval, created_by_privileged
	FROM elections
`

// Reconciler persists computed statuses. It holds no state between runs;
// overlapping runs only duplicate work because every update is guarded by
// the status it read.
type Reconciler struct {
	db  *sql.DB
	now func() time.Time
}

// NewReconciler creates a reconciler. now defaults to time.Now.
func NewReconciler(db *sql.DB, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{db: db, now: now}
}

// Reconcile recomputes every non-terminal election inside one transaction
// and persists forward moves only. Any failure rolls back the whole run.
func (r *Reconciler) Reconcile(ctx context.Context) ([]Transition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Storage("begin reconcile", err)
	}
	defer tx.Rollback()

	var rows []electionRow
	err = sqlscan.Select(ctx, tx, &rows, selectElection+`WHERE status <> $1 ORDER BY id`, string(Completed))
	if err != nil {
		return nil, apperr.Storage("load elections", err)
	}

	now := r.now()
	transitions := []Transition{}
	for _, row := range rows {
		current := Status(row.Status)
		next := row.compute(now)
		if next == current {
			continue
		}
		if !current.Forward(next) {
			slog.Debug("skipping backward status change",
				"election_id", row.ID, "from", current, "to", next)
			continue
		}

		updated, err := updateStatus(ctx, tx, row.ID, current, next, now)
		if err != nil {
			return nil, err
		}
		if !updated {
			continue
		}
		transitions = append(transitions, Transition{
			ElectionID: row.ID,
			Title:      row.Title,
			From:       current,
			To:         next,
			At:         now,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Storage("commit reconcile", err)
	}

	for _, t := range transitions {
		slog.Info("election status changed", "election_id", t.ElectionID, "from", t.From, "to", t.To)
	}
	return transitions, nil
}

// Approve clears the approval requirement and persists the status the
// window now implies. Approving an already-approved election is a no-op.
func (r *Reconciler) Approve(ctx context.Context, electionID, approverID string) (Transition, error) {
	if approverID == "" {
		return Transition{}, apperr.Validation(apperr.CodeMalformed, "approver_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Transition{}, apperr.Storage("begin approve", err)
	}
	defer tx.Rollback()

	row, err := loadElection(ctx, tx, electionID)
	if err != nil {
		return Transition{}, err
	}

	now := r.now()
	current := Status(row.Status)
	if !row.NeedsApproval {
		return Transition{ElectionID: row.ID, Title: row.Title, From: current, To: current, At: now}, nil
	}

	next := Compute(row.window(), false, now)
	_, err = tx.ExecContext(ctx, `
		UPDATE elections
		SET needs_approval = FALSE, approved_by = $1, approved_at = $2, status = $3, updated_at = $2
		WHERE id = $4
	`, approverID, now.UTC(), string(next), row.ID)
	if err != nil {
		return Transition{}, apperr.Storage("approve election", err)
	}

	if err := tx.Commit(); err != nil {
		return Transition{}, apperr.Storage("commit approve", err)
	}

	slog.Info("election approved", "election_id", row.ID, "approved_by", approverID, "from", current, "to", next)
	return Transition{ElectionID: row.ID, Title: row.Title, From: current, To: next, At: now}, nil
}

// Correct is the administrative path: it persists the computed status even
// when that moves the election backwards (e.g. after its window was edited).
func (r *Reconciler) Correct(ctx context.Context, electionID string) (Transition, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Transition{}, apperr.Storage("begin correct", err)
	}
	defer tx.Rollback()

	row, err := loadElection(ctx, tx, electionID)
	if err != nil {
		return Transition{}, err
	}

	now := r.now()
	current := Status(row.Status)
	next := row.compute(now)
	t := Transition{ElectionID: row.ID, Title: row.Title, From: current, To: next, At: now}
	if next == current {
		return t, nil
	}

	if _, err := updateStatus(ctx, tx, row.ID, current, next, now); err != nil {
		return Transition{}, err
	}
	if err := tx.Commit(); err != nil {
		return Transition{}, apperr.Storage("commit correct", err)
	}

	slog.Warn("election status corrected", "election_id", row.ID, "from", current, "to", next)
	return t, nil
}

func loadElection(ctx context.Context, q sqlscan.Querier, electionID string) (electionRow, error) {
	var row electionRow
	err := sqlscan.Get(ctx, q, &row, selectElection+`WHERE id = $1`, electionID)
	if errors.Is(err, sql.ErrNoRows) {
		return electionRow{}, apperr.State(apperr.CodeElectionNotFound, "election not found")
	}
	if err != nil {
		return electionRow{}, apperr.Storage("load election", err)
	}
	return row, nil
}

// Snapshot is an election's stored status next to the one computed now
type Snapshot struct {
	ElectionID string
	Stored     Status
	Computed   Status
}

// Inspect reads one election without writing anything
func (r *Reconciler) Inspect(ctx context.Context, electionID string) (Snapshot, error) {
	row, err := loadElection(ctx, r.db, electionID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ElectionID: row.ID,
		Stored:     Status(row.Status),
		Computed:   row.compute(r.now()),
	}, nil
}

// updateStatus writes next only if the row still holds from
func updateStatus(ctx context.Context, tx *sql.Tx, id string, from, next Status, now time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE elections SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, string(next), now.UTC(), id, string(from))
	if err != nil {
		return false, apperr.Storage("update election status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Storage("update election status", err)
	}
	return n == 1, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
