package main

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
)

const redacted = "[redacted]"

// stateView is the YAML rendering of a CheckRunState.
type stateView struct {
	Owner        string        `yaml:"owner,omitempty"`
	Repo         string        `yaml:"repo,omitempty"`
	AccessToken  string        `yaml:"accessToken,omitempty"`
	ExpiresAt    string        `yaml:"expiresAt,omitempty"`
	ID           *int64        `yaml:"id,omitempty"`
	Ref          string        `yaml:"ref,omitempty"`
	CheckRunName string        `yaml:"checkRunName,omitempty"`
	Title        string        `yaml:"title,omitempty"`
	Summary      string        `yaml:"summary,omitempty"`
	Text         string        `yaml:"text,omitempty"`
	DetailsURL   string        `yaml:"detailsURL,omitempty"`
	Conclusion   string        `yaml:"conclusion,omitempty"`
	Journal      []journalView `yaml:"journal,omitempty"`
}

type journalView struct {
	RecordedAt   string `yaml:"recordedAt"`
	InvocationID string `yaml:"invocationId,omitempty"`
	Event        string `yaml:"event"`
	CheckRunName string `yaml:"checkRunName,omitempty"`
	CheckRunID   int64  `yaml:"checkRunId,omitempty"`
	Conclusion   string `yaml:"conclusion,omitempty"`
}

func newStateView(s *model.CheckRunState) *stateView {
	v := &stateView{
		Owner:        s.Owner,
		Repo:         s.Repo,
		ID:           s.ID,
		Ref:          s.Ref,
		CheckRunName: s.CheckRunName,
		Title:        s.Title,
		Summary:      s.Summary,
		Text:         s.Text,
		DetailsURL:   s.DetailsURL,
		Conclusion:   s.Conclusion,
	}
	if s.AccessToken != "" {
		v.AccessToken = redacted
	}
	if !s.ExpiresAt.IsZero() {
		v.ExpiresAt = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return v
}

func (v *stateView) addJournal(entries []model.JournalEntry) {
	for _, e := range entries {
		v.Journal = append(v.Journal, journalView{
			RecordedAt:   e.RecordedAt.UTC().Format(time.RFC3339),
			InvocationID: e.InvocationID,
			Event:        string(e.Event),
			CheckRunName: e.CheckRunName,
			CheckRunID:   e.CheckRunID,
			Conclusion:   e.Conclusion,
		})
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
