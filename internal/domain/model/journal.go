package model

import "time"

// JournalEvent identifies what happened to a check run during reconciliation.
type JournalEvent string

const (
	JournalEventCreated        JournalEvent = "created"
	JournalEventReused         JournalEvent = "reused"
	JournalEventReopened       JournalEvent = "reopened"
	JournalEventUpdated        JournalEvent = "updated"
	JournalEventCompleted      JournalEvent = "completed"
	JournalEventTokenRefreshed JournalEvent = "token_refreshed"
)

// JournalEntry is one row of the reconciliation activity log.
type JournalEntry struct {
	ID           int64
	InvocationID string // Groups the entries written by one process.
	Owner        string
	Repo         string
	Ref          string
	CheckRunName string
	CheckRunID   int64 // Zero for events not tied to a check run.
	Event        JournalEvent
	Conclusion   string
	RecordedAt   time.Time
}
