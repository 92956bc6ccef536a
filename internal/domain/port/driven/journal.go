package driven

import (
	"context"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
)

// CheckRunJournal defines the driven port for the append-only reconciliation log.
type CheckRunJournal interface {
	// Record appends entry. RecordedAt is assigned by the store when zero.
	Record(ctx context.Context, entry model.JournalEntry) error

	// ListForRef returns all entries for owner/repo@ref in insertion order.
	ListForRef(ctx context.Context, owner, repo, ref string) ([]model.JournalEntry, error)
}
