package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// TokenRefreshMargin is the minimum remaining lifetime for a cached
// installation token to be reused.
const TokenRefreshMargin = 5 * time.Minute

// TokenManager keeps the installation access token in a CheckRunState fresh.
type TokenManager struct {
	auth    driven.InstallationAuthenticator
	store   driven.StateStore
	secrets driven.SecretSink     // Optional.
	journal driven.CheckRunJournal // Optional.
	now     func() time.Time
}

// NewTokenManager creates a TokenManager. secrets and journal may be nil.
func NewTokenManager(
	auth driven.InstallationAuthenticator,
	store driven.StateStore,
	secrets driven.SecretSink,
	journal driven.CheckRunJournal,
) *TokenManager {
	return &TokenManager{
		auth:    auth,
		store:   store,
		secrets: secrets,
		journal: journal,
		now:     time.Now,
	}
}

// EnsureFresh refreshes state's token unless it is valid for more than
// TokenRefreshMargin. On refresh the new token is handed to the secret sink,
// stored together with its expiry, and the state is persisted.
//
// Errors from the authenticator are returned as is.
func (m *TokenManager) EnsureFresh(ctx context.Context, state *model.CheckRunState) error {
	if !state.ExpiresAt.IsZero() && state.ExpiresAt.Sub(m.now()) > TokenRefreshMargin {
		return nil
	}
	if state.Owner == "" || state.Repo == "" {
		return ErrRepositoryUnknown
	}

	installationID, err := m.auth.FindInstallationID(ctx, state.Owner, state.Repo)
	if err != nil {
		return err
	}

	token, err := m.auth.CreateInstallationToken(ctx, installationID)
	if err != nil {
		return err
	}

	if m.secrets != nil {
		m.secrets.AddSecret(token.Token)
	}

	state.AccessToken = token.Token
	state.ExpiresAt = token.ExpiresAt
	if err := m.store.Save(state); err != nil {
		return fmt.Errorf("save refreshed token: %w", err)
	}

	slog.Info("installation token refreshed",
		"owner", state.Owner,
		"repo", state.Repo,
		"installation_id", installationID,
		"expires_at", token.ExpiresAt,
	)

	recordEvent(ctx, m.journal, model.JournalEntry{
		Owner: state.Owner,
		Repo:  state.Repo,
		Event: model.JournalEventTokenRefreshed,
	})
	return nil
}

// recordEvent appends entry to journal when one is configured. The journal is
// an audit aid, so failures are logged rather than returned.
func recordEvent(ctx context.Context, journal driven.CheckRunJournal, entry model.JournalEntry) {
	if journal == nil {
		return
	}
	if err := journal.Record(ctx, entry); err != nil {
		slog.Warn("journal record failed", "event", entry.Event, "owner", entry.Owner, "repo", entry.Repo, "error", err)
	}
}
