package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// GetRequest is the input to CheckRunService.Get.
type GetRequest struct {
	Ref          string
	CheckRunName string
	Title        string
	Summary      string
	Text         string
	DetailsURL   string
}

// UpdateRequest is the input to CheckRunService.Update. Empty fields are left
// unchanged on the remote check run.
type UpdateRequest struct {
	AppendText string
	Conclusion string
	Title      string
	Summary    string
}

// CheckRunService reconciles a CheckRunState with its remote check run.
// It holds no per-run state of its own; every call takes the state by pointer,
// mutates it and writes it through the StateStore before returning.
type CheckRunService struct {
	tokens  *TokenManager
	clients *CheckRunClientProvider
	store   driven.StateStore
	journal driven.CheckRunJournal // Optional.
}

// NewCheckRunService creates a CheckRunService. journal may be nil.
func NewCheckRunService(
	tokens *TokenManager,
	clients *CheckRunClientProvider,
	store driven.StateStore,
	journal driven.CheckRunJournal,
) *CheckRunService {
	return &CheckRunService{
		tokens:  tokens,
		clients: clients,
		store:   store,
		journal: journal,
	}
}

// Get finds the open check run named req.CheckRunName on req.Ref, or creates
// one, and adopts it into state. A queued run is moved to in_progress.
// Completed runs with the same name are never reused.
func (s *CheckRunService) Get(ctx context.Context, state *model.CheckRunState, req GetRequest) error {
	if err := s.tokens.EnsureFresh(ctx, state); err != nil {
		return err
	}
	client := s.clients.ForToken(state.AccessToken)

	runs, err := client.ListCheckRunsForRef(ctx, state.Owner, state.Repo, req.Ref)
	if err != nil {
		return err
	}

	var id int64
	event := model.JournalEventCreated

	if existing, ok := firstOpenRun(runs, req.CheckRunName); ok {
		id = existing.ID
		event = model.JournalEventReused

		if existing.Status != model.CheckRunStatusInProgress {
			err := client.UpdateCheckRun(ctx, state.Owner, state.Repo, id, driven.UpdateCheckRunRequest{
				Name:       existing.Name,
				Status:     model.CheckRunStatusInProgress,
				DetailsURL: req.DetailsURL,
				Output: &model.CheckRunOutput{
					Title:   firstNonEmpty(req.Title, existing.Output.Title),
					Summary: firstNonEmpty(req.Summary, existing.Output.Summary),
					Text:    firstNonEmpty(req.Text, existing.Output.Text),
				},
			})
			if err != nil {
				return err
			}
			event = model.JournalEventReopened
		}

		slog.Info("reusing existing check run",
			"owner", state.Owner,
			"repo", state.Repo,
			"ref", req.Ref,
			"name", req.CheckRunName,
			"id", id,
			"previous_status", existing.Status,
		)
	} else {
		id, err = client.CreateCheckRun(ctx, state.Owner, state.Repo, driven.CreateCheckRunRequest{
			Name:       req.CheckRunName,
			HeadSHA:    req.Ref,
			Status:     model.CheckRunStatusInProgress,
			DetailsURL: req.DetailsURL,
			Output: model.CheckRunOutput{
				Title:   req.Title,
				Summary: req.Summary,
				Text:    req.Text,
			},
		})
		if err != nil {
			return err
		}

		slog.Info("created check run",
			"owner", state.Owner,
			"repo", state.Repo,
			"ref", req.Ref,
			"name", req.CheckRunName,
			"id", id,
		)
	}

	state.ID = &id
	state.Ref = req.Ref
	state.CheckRunName = req.CheckRunName
	state.Title = req.Title
	state.Summary = req.Summary
	state.Text = req.Text
	state.DetailsURL = req.DetailsURL
	state.Conclusion = "" // The adopted run is open.
	if err := s.store.Save(state); err != nil {
		return fmt.Errorf("save state after get: %w", err)
	}

	recordEvent(ctx, s.journal, model.JournalEntry{
		Owner:        state.Owner,
		Repo:         state.Repo,
		Ref:          state.Ref,
		CheckRunName: state.CheckRunName,
		CheckRunID:   id,
		Event:        event,
	})
	return nil
}

// Update appends req.AppendText to the adopted check run's text, overwrites
// title and summary when given, and completes the run when req.Conclusion is
// set. Updating an already completed run is allowed.
func (s *CheckRunService) Update(ctx context.Context, state *model.CheckRunState, req UpdateRequest) error {
	if !state.HasCheckRun() {
		return ErrCheckRunNotStarted
	}
	id := *state.ID

	if err := s.tokens.EnsureFresh(ctx, state); err != nil {
		return err
	}
	client := s.clients.ForToken(state.AccessToken)

	current, err := client.GetCheckRun(ctx, state.Owner, state.Repo, id)
	if err != nil {
		return err
	}

	output := mergeOutput(current.Output, req)

	patch := driven.UpdateCheckRunRequest{
		Name:   firstNonEmpty(current.Name, state.CheckRunName),
		Output: &output,
	}
	if req.Conclusion != "" {
		patch.Status = model.CheckRunStatusCompleted
		patch.Conclusion = req.Conclusion
	}

	if err := client.UpdateCheckRun(ctx, state.Owner, state.Repo, id, patch); err != nil {
		return err
	}

	state.Title = output.Title
	state.Summary = output.Summary
	state.Text = output.Text
	state.Conclusion = req.Conclusion
	if err := s.store.Save(state); err != nil {
		return fmt.Errorf("save state after update: %w", err)
	}

	event := model.JournalEventUpdated
	if req.Conclusion != "" {
		event = model.JournalEventCompleted
	}

	slog.Info("updated check run",
		"owner", state.Owner,
		"repo", state.Repo,
		"id", id,
		"appended_bytes", len(req.AppendText),
		"conclusion", req.Conclusion,
	)

	recordEvent(ctx, s.journal, model.JournalEntry{
		Owner:        state.Owner,
		Repo:         state.Repo,
		Ref:          state.Ref,
		CheckRunName: state.CheckRunName,
		CheckRunID:   id,
		Event:        event,
		Conclusion:   req.Conclusion,
	})
	return nil
}

// firstOpenRun returns the first run in API order named name that has no
// conclusion yet.
func firstOpenRun(runs []model.CheckRun, name string) (model.CheckRun, bool) {
	for _, run := range runs {
		if run.Name == name && run.IsOpen() {
			return run, true
		}
	}
	return model.CheckRun{}, false
}

// mergeOutput applies an update request to the current output block.
func mergeOutput(current model.CheckRunOutput, req UpdateRequest) model.CheckRunOutput {
	merged := current
	if req.Title != "" {
		merged.Title = req.Title
	}
	if req.Summary != "" {
		merged.Summary = req.Summary
	}
	if req.AppendText != "" {
		if merged.Text == "" {
			merged.Text = req.AppendText
		} else {
			merged.Text += "\n" + req.AppendText
		}
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
