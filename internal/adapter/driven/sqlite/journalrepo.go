package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CheckRunJournal = (*JournalRepo)(nil)

// JournalRepo is the SQLite implementation of the CheckRunJournal port interface.
// Entries recorded without an InvocationID get the repo's own, which is
// generated once per JournalRepo.
type JournalRepo struct {
	db           *DB
	invocationID string
	now          func() time.Time
}

// NewJournalRepo creates a new JournalRepo backed by the given DB.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db, invocationID: uuid.NewString(), now: time.Now}
}

// InvocationID returns the ID stamped on entries recorded through this repo.
func (r *JournalRepo) InvocationID() string {
	return r.invocationID
}

// Record appends entry to the journal.
func (r *JournalRepo) Record(ctx context.Context, entry model.JournalEntry) error {
	recordedAt := entry.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = r.now()
	}
	invocationID := entry.InvocationID
	if invocationID == "" {
		invocationID = r.invocationID
	}

	const query = `
		INSERT INTO checkrun_events (invocation_id, owner, repo, ref, check_run_name, check_run_id, event, conclusion, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Writer.ExecContext(ctx, query,
		invocationID, entry.Owner, entry.Repo, entry.Ref, entry.CheckRunName, entry.CheckRunID,
		string(entry.Event), entry.Conclusion, recordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record %s event for %s/%s: %w", entry.Event, entry.Owner, entry.Repo, err)
	}
	return nil
}

// ListForRef returns all entries for owner/repo@ref in insertion order.
func (r *JournalRepo) ListForRef(ctx context.Context, owner, repo, ref string) ([]model.JournalEntry, error) {
	const query = `
		SELECT id, invocation_id, owner, repo, ref, check_run_name, check_run_id, event, conclusion, recorded_at
		FROM checkrun_events
		WHERE owner = ? AND repo = ? AND ref = ?
		ORDER BY id
	`
	rows, err := r.db.Reader.QueryContext(ctx, query, owner, repo, ref)
	if err != nil {
		return nil, fmt.Errorf("list events for %s/%s@%s: %w", owner, repo, ref, err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		var event string
		var recordedAt string
		if err := rows.Scan(&e.ID, &e.InvocationID, &e.Owner, &e.Repo, &e.Ref, &e.CheckRunName, &e.CheckRunID, &event, &e.Conclusion, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Event = model.JournalEvent(event)
		e.RecordedAt, err = parseTime(recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at for event %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if entries == nil {
		entries = []model.JournalEntry{}
	}
	return entries, nil
}

// parseTime parses a time string from SQLite, trying the formats the driver
// and the journal have been known to produce.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
