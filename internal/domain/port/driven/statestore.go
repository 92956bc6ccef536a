package driven

import "github.com/ericfisherdev/checkrunsync/internal/domain/model"

// StateStore defines the driven port for persisting the check run working state.
type StateStore interface {
	// Load returns the persisted state, or an empty state if none exists yet.
	Load() (*model.CheckRunState, error)

	// Save overwrites the persisted state with state.
	Save(state *model.CheckRunState) error
}
