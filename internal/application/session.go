package application

import (
	"fmt"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// OpenState loads the persisted state (or starts an empty one), reconciles
// the caller's owner/repo with it, and writes the result back.
//
// Owner and repo are set at most once per state: an empty argument keeps the
// recorded value, a recorded value is adopted when nothing was recorded yet,
// and a different non-empty value fails with an IdentityMismatchError.
func OpenState(store driven.StateStore, owner, repo string) (*model.CheckRunState, error) {
	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	if err := adoptIdentity("owner", &state.Owner, owner); err != nil {
		return nil, err
	}
	if err := adoptIdentity("repo", &state.Repo, repo); err != nil {
		return nil, err
	}

	if err := store.Save(state); err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return state, nil
}

func adoptIdentity(field string, recorded *string, supplied string) error {
	switch {
	case *recorded == "":
		*recorded = supplied
	case supplied != "" && supplied != *recorded:
		return &IdentityMismatchError{Field: field, Expected: *recorded, Got: supplied}
	}
	return nil
}
