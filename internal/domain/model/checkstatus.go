package model

// CheckRunStatus is the lifecycle status GitHub reports for a check run.
type CheckRunStatus string

const (
	CheckRunStatusQueued     CheckRunStatus = "queued"
	CheckRunStatusInProgress CheckRunStatus = "in_progress"
	CheckRunStatusCompleted  CheckRunStatus = "completed"
)

// CheckRun represents a check run as returned by the GitHub Checks API.
type CheckRun struct {
	ID         int64          // GitHub check run ID.
	Name       string         // Check run name (e.g., "build", "tag-git").
	Status     CheckRunStatus // queued, in_progress, completed.
	Conclusion string         // Empty while the run is open.
	DetailsURL string         // URL to the integrator's details page.
	Output     CheckRunOutput
}

// IsOpen reports whether the run has not reached a conclusion yet.
func (c CheckRun) IsOpen() bool {
	return c.Conclusion == ""
}

// CheckRunOutput is the displayed content of a check run.
type CheckRunOutput struct {
	Title   string
	Summary string
	Text    string
}
