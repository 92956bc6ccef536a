package driven

import (
	"context"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
)

// CreateCheckRunRequest is the input to CheckRunClient.CreateCheckRun.
type CreateCheckRunRequest struct {
	Name       string
	HeadSHA    string
	Status     model.CheckRunStatus
	DetailsURL string
	Output     model.CheckRunOutput
}

// UpdateCheckRunRequest is the input to CheckRunClient.UpdateCheckRun.
// Zero-valued optional fields are not sent.
type UpdateCheckRunRequest struct {
	Name       string                // Required by the API; resent unchanged.
	Status     model.CheckRunStatus  // Optional.
	Conclusion string                // Optional; requires Status "completed".
	DetailsURL string                // Optional.
	Output     *model.CheckRunOutput // Optional.
}

// CheckRunClient defines the driven port for the GitHub Checks API, acting with
// an installation access token.
type CheckRunClient interface {
	// ListCheckRunsForRef returns every check run attached to ref, in API order.
	ListCheckRunsForRef(ctx context.Context, owner, repo, ref string) ([]model.CheckRun, error)

	// GetCheckRun returns a single check run.
	GetCheckRun(ctx context.Context, owner, repo string, id int64) (model.CheckRun, error)

	// CreateCheckRun creates a check run and returns its ID.
	CreateCheckRun(ctx context.Context, owner, repo string, req CreateCheckRunRequest) (int64, error)

	// UpdateCheckRun patches an existing check run.
	UpdateCheckRun(ctx context.Context, owner, repo string, id int64, req UpdateCheckRunRequest) error
}

// CheckRunClientFactory builds a CheckRunClient authenticated with token.
type CheckRunClientFactory func(token string) CheckRunClient
