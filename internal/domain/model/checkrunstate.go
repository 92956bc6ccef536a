package model

import "time"

// CheckRunState is the working state carried between pipeline steps. It is
// persisted as JSON and the field names are part of the on-disk format.
type CheckRunState struct {
	Owner        string    `json:"owner,omitempty"`
	Repo         string    `json:"repo,omitempty"`
	AccessToken  string    `json:"accessToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
	ID           *int64    `json:"id,omitempty"`
	Ref          string    `json:"ref,omitempty"`
	CheckRunName string    `json:"checkRunName,omitempty"`
	Title        string    `json:"title,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Text         string    `json:"text,omitempty"`
	DetailsURL   string    `json:"detailsURL,omitempty"`
	Conclusion   string    `json:"conclusion,omitempty"`
}

// HasCheckRun reports whether a remote check run has been adopted.
func (s *CheckRunState) HasCheckRun() bool {
	return s.ID != nil
}

// IsCompleted reports whether the adopted check run has been concluded.
func (s *CheckRunState) IsCompleted() bool {
	return s.ID != nil && s.Conclusion != ""
}

// InstallationToken is a short-lived GitHub App installation access token.
type InstallationToken struct {
	Token     string
	ExpiresAt time.Time
}
