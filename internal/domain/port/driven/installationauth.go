package driven

import (
	"context"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
)

// InstallationAuthenticator defines the driven port for GitHub App
// authentication. Implementations authenticate as the App itself (JWT).
type InstallationAuthenticator interface {
	// FindInstallationID resolves the App installation covering owner/repo.
	FindInstallationID(ctx context.Context, owner, repo string) (int64, error)

	// CreateInstallationToken mints a fresh installation access token.
	CreateInstallationToken(ctx context.Context, installationID int64) (model.InstallationToken, error)
}
