package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// memStore is an in-memory StateStore that keeps a copy of every save.
type memStore struct {
	saved   []model.CheckRunState
	loadErr error
	initial *model.CheckRunState
}

func (m *memStore) Load() (*model.CheckRunState, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if len(m.saved) > 0 {
		s := m.saved[len(m.saved)-1]
		return &s, nil
	}
	if m.initial != nil {
		s := *m.initial
		return &s, nil
	}
	return &model.CheckRunState{}, nil
}

func (m *memStore) Save(state *model.CheckRunState) error {
	m.saved = append(m.saved, *state)
	return nil
}

// last returns the most recently saved state.
func (m *memStore) last() model.CheckRunState {
	return m.saved[len(m.saved)-1]
}

// fakeAuth is an InstallationAuthenticator handing out numbered tokens.
type fakeAuth struct {
	findCalls   int
	createCalls int
	expiresAt   time.Time
	findErr     error
	createErr   error
}

func (f *fakeAuth) FindInstallationID(_ context.Context, _, _ string) (int64, error) {
	f.findCalls++
	if f.findErr != nil {
		return 0, f.findErr
	}
	return 4242, nil
}

func (f *fakeAuth) CreateInstallationToken(_ context.Context, _ int64) (model.InstallationToken, error) {
	f.createCalls++
	if f.createErr != nil {
		return model.InstallationToken{}, f.createErr
	}
	return model.InstallationToken{
		Token:     fmt.Sprintf("ghs_token_%d", f.createCalls),
		ExpiresAt: f.expiresAt,
	}, nil
}

type updateCall struct {
	ID  int64
	Req driven.UpdateCheckRunRequest
}

// fakeChecks simulates the check runs of a single ref on GitHub.
type fakeChecks struct {
	runs    []model.CheckRun
	nextID  int64
	creates []driven.CreateCheckRunRequest
	updates []updateCall
	gets    int
	lists   int
	listErr error
}

func (f *fakeChecks) ListCheckRunsForRef(_ context.Context, _, _, _ string) ([]model.CheckRun, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.CheckRun, len(f.runs))
	copy(out, f.runs)
	return out, nil
}

func (f *fakeChecks) GetCheckRun(_ context.Context, _, _ string, id int64) (model.CheckRun, error) {
	f.gets++
	for _, run := range f.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return model.CheckRun{}, &driven.APIError{StatusCode: 404, Body: `{"message":"Not Found"}`}
}

func (f *fakeChecks) CreateCheckRun(_ context.Context, _, _ string, req driven.CreateCheckRunRequest) (int64, error) {
	f.creates = append(f.creates, req)
	f.nextID++
	f.runs = append(f.runs, model.CheckRun{
		ID:         f.nextID,
		Name:       req.Name,
		Status:     req.Status,
		DetailsURL: req.DetailsURL,
		Output:     req.Output,
	})
	return f.nextID, nil
}

func (f *fakeChecks) UpdateCheckRun(_ context.Context, _, _ string, id int64, req driven.UpdateCheckRunRequest) error {
	f.updates = append(f.updates, updateCall{ID: id, Req: req})
	for i := range f.runs {
		if f.runs[i].ID != id {
			continue
		}
		if req.Status != "" {
			f.runs[i].Status = req.Status
		}
		if req.Conclusion != "" {
			f.runs[i].Conclusion = req.Conclusion
		}
		if req.DetailsURL != "" {
			f.runs[i].DetailsURL = req.DetailsURL
		}
		if req.Output != nil {
			f.runs[i].Output = *req.Output
		}
		return nil
	}
	return errors.New("no such check run")
}

// statusUpdates returns the updates that changed the status.
func (f *fakeChecks) statusUpdates() []updateCall {
	var out []updateCall
	for _, u := range f.updates {
		if u.Req.Status != "" {
			out = append(out, u)
		}
	}
	return out
}

// memJournal records journal entries in memory.
type memJournal struct {
	entries []model.JournalEntry
}

func (j *memJournal) Record(_ context.Context, entry model.JournalEntry) error {
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memJournal) ListForRef(_ context.Context, owner, repo, ref string) ([]model.JournalEntry, error) {
	var out []model.JournalEntry
	for _, e := range j.entries {
		if e.Owner == owner && e.Repo == repo && e.Ref == ref {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *memJournal) events() []model.JournalEvent {
	out := make([]model.JournalEvent, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Event)
	}
	return out
}
