package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// serviceFixture wires a CheckRunService to in-memory fakes.
type serviceFixture struct {
	svc     *CheckRunService
	auth    *fakeAuth
	checks  *fakeChecks
	store   *memStore
	journal *memJournal
	tokens  []string // Tokens the client provider was asked for.
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		auth:    &fakeAuth{expiresAt: testNow.Add(time.Hour)},
		checks:  &fakeChecks{nextID: 100},
		store:   &memStore{},
		journal: &memJournal{},
	}
	tokens := newTestTokenManager(f.auth, f.store, nil, f.journal)
	clients := NewCheckRunClientProvider(func(token string) driven.CheckRunClient {
		f.tokens = append(f.tokens, token)
		return f.checks
	})
	f.svc = NewCheckRunService(tokens, clients, f.store, f.journal)
	return f
}

func newState() *model.CheckRunState {
	return &model.CheckRunState{Owner: "git-for-windows", Repo: "git"}
}

var buildRequest = GetRequest{
	Ref:          "abc123",
	CheckRunName: "build",
	Title:        "Build",
	Summary:      "Building",
	Text:         "",
	DetailsURL:   "https://example.com/run/1",
}

func TestGet_CreatesCheckRunWhenNoneExists(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()

	require.NoError(t, f.svc.Get(context.Background(), state, buildRequest))

	require.Len(t, f.checks.creates, 1)
	created := f.checks.creates[0]
	assert.Equal(t, "build", created.Name)
	assert.Equal(t, "abc123", created.HeadSHA)
	assert.Equal(t, model.CheckRunStatusInProgress, created.Status)
	assert.Equal(t, "https://example.com/run/1", created.DetailsURL)
	assert.Equal(t, model.CheckRunOutput{Title: "Build", Summary: "Building"}, created.Output)

	require.NotNil(t, state.ID)
	assert.Equal(t, int64(101), *state.ID)
	assert.Equal(t, "abc123", state.Ref)
	assert.Equal(t, "build", state.CheckRunName)
	assert.Equal(t, "Build", state.Title)
	assert.Equal(t, "https://example.com/run/1", state.DetailsURL)

	// The final save carries the adopted run.
	saved := f.store.last()
	require.NotNil(t, saved.ID)
	assert.Equal(t, int64(101), *saved.ID)
	assert.Equal(t, "ghs_token_1", saved.AccessToken)

	assert.Equal(t, []string{"ghs_token_1"}, f.tokens)
	assert.Equal(t, []model.JournalEvent{model.JournalEventTokenRefreshed, model.JournalEventCreated}, f.journal.events())
}

func TestGet_IsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()

	require.NoError(t, f.svc.Get(context.Background(), state, buildRequest))
	firstID := *state.ID

	require.NoError(t, f.svc.Get(context.Background(), state, buildRequest))

	assert.Equal(t, firstID, *state.ID)
	assert.Len(t, f.checks.creates, 1)
	assert.Empty(t, f.checks.updates, "an in-progress run must not be patched")
	// The token is still valid, so only one refresh happened.
	assert.Equal(t, 1, f.auth.createCalls)
}

func TestGet_EscalatesQueuedRunToInProgress(t *testing.T) {
	f := newServiceFixture(t)
	f.checks.runs = []model.CheckRun{
		{
			ID:     7,
			Name:   "build",
			Status: model.CheckRunStatusQueued,
			Output: model.CheckRunOutput{Title: "Old title", Summary: "Old summary", Text: "Old text"},
		},
	}
	state := newState()

	req := buildRequest
	req.Title = "New title"
	require.NoError(t, f.svc.Get(context.Background(), state, req))

	assert.Empty(t, f.checks.creates)
	require.Len(t, f.checks.updates, 1)
	patch := f.checks.updates[0]
	assert.Equal(t, int64(7), patch.ID)
	assert.Equal(t, "build", patch.Req.Name)
	assert.Equal(t, model.CheckRunStatusInProgress, patch.Req.Status)
	assert.Empty(t, patch.Req.Conclusion)
	assert.Equal(t, "https://example.com/run/1", patch.Req.DetailsURL)
	assert.Equal(t, &model.CheckRunOutput{Title: "New title", Summary: "Building", Text: "Old text"}, patch.Req.Output)

	assert.Equal(t, int64(7), *state.ID)
	assert.Contains(t, f.journal.events(), model.JournalEventReopened)
}

func TestGet_ReusesInProgressRunWithoutPatch(t *testing.T) {
	f := newServiceFixture(t)
	f.checks.runs = []model.CheckRun{
		{ID: 7, Name: "build", Status: model.CheckRunStatusInProgress},
	}
	state := newState()

	require.NoError(t, f.svc.Get(context.Background(), state, buildRequest))

	assert.Empty(t, f.checks.creates)
	assert.Empty(t, f.checks.statusUpdates())
	assert.Equal(t, int64(7), *state.ID)
	assert.Contains(t, f.journal.events(), model.JournalEventReused)
}

func TestGet_SkipsCompletedAndDifferentlyNamedRuns(t *testing.T) {
	f := newServiceFixture(t)
	f.checks.runs = []model.CheckRun{
		{ID: 1, Name: "build", Status: model.CheckRunStatusCompleted, Conclusion: "success"},
		{ID: 2, Name: "lint", Status: model.CheckRunStatusInProgress},
		{ID: 3, Name: "build", Status: model.CheckRunStatusInProgress},
		{ID: 4, Name: "build", Status: model.CheckRunStatusQueued},
	}
	state := newState()

	require.NoError(t, f.svc.Get(context.Background(), state, buildRequest))

	// The first open run with the right name wins; API order is authoritative.
	assert.Equal(t, int64(3), *state.ID)
	assert.Empty(t, f.checks.creates)
	assert.Empty(t, f.checks.updates)
}

func TestGet_CreatesWhenOnlyCompletedRunsExist(t *testing.T) {
	f := newServiceFixture(t)
	f.checks.runs = []model.CheckRun{
		{ID: 1, Name: "build", Status: model.CheckRunStatusCompleted, Conclusion: "failure"},
	}
	state := newState()

	require.NoError(t, f.svc.Get(context.Background(), state, buildRequest))

	require.Len(t, f.checks.creates, 1)
	assert.Equal(t, int64(101), *state.ID)
}

func TestGet_ClearsStaleConclusion(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()
	state.Conclusion = "success"

	require.NoError(t, f.svc.Get(context.Background(), state, buildRequest))

	assert.Empty(t, state.Conclusion)
	assert.False(t, state.IsCompleted())
}

func TestGet_ListErrorLeavesStateUnadopted(t *testing.T) {
	f := newServiceFixture(t)
	f.checks.listErr = &driven.APIError{StatusCode: 500, Body: "oops"}
	state := newState()

	err := f.svc.Get(context.Background(), state, buildRequest)

	var apiErr *driven.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Nil(t, state.ID)
}

func TestUpdate_RequiresGet(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()

	err := f.svc.Update(context.Background(), state, UpdateRequest{AppendText: "line1"})

	assert.ErrorIs(t, err, ErrCheckRunNotStarted)
	assert.Zero(t, f.auth.findCalls)
	assert.Zero(t, f.auth.createCalls)
	assert.Zero(t, f.checks.lists)
	assert.Zero(t, f.checks.gets)
	assert.Empty(t, f.checks.updates)
	assert.Empty(t, f.tokens)
	assert.Empty(t, f.store.saved)
}

func TestUpdate_AccumulatesText(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()
	ctx := context.Background()
	require.NoError(t, f.svc.Get(ctx, state, buildRequest))

	require.NoError(t, f.svc.Update(ctx, state, UpdateRequest{AppendText: "line1"}))
	require.NoError(t, f.svc.Update(ctx, state, UpdateRequest{AppendText: "line2"}))

	assert.Equal(t, "line1\nline2", state.Text)
	assert.Equal(t, "line1\nline2", f.checks.runs[0].Output.Text)
	assert.Equal(t, "line1\nline2", f.store.last().Text)

	for _, u := range f.checks.updates {
		assert.Empty(t, u.Req.Status, "updates without conclusion must not send a status")
		assert.Equal(t, "build", u.Req.Name)
	}
	assert.Equal(t, model.CheckRunStatusInProgress, f.checks.runs[0].Status)
}

func TestUpdate_OverwritesTitleAndSummaryOnlyWhenGiven(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()
	ctx := context.Background()
	require.NoError(t, f.svc.Get(ctx, state, buildRequest))

	require.NoError(t, f.svc.Update(ctx, state, UpdateRequest{Summary: "Halfway"}))

	out := f.checks.runs[0].Output
	assert.Equal(t, "Build", out.Title)
	assert.Equal(t, "Halfway", out.Summary)
	assert.Empty(t, out.Text)
	assert.Equal(t, "Halfway", state.Summary)
}

func TestUpdate_WithConclusionCompletesRun(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()
	ctx := context.Background()
	require.NoError(t, f.svc.Get(ctx, state, buildRequest))

	require.NoError(t, f.svc.Update(ctx, state, UpdateRequest{AppendText: "done", Conclusion: "success", Title: "Built"}))

	last := f.checks.updates[len(f.checks.updates)-1]
	assert.Equal(t, model.CheckRunStatusCompleted, last.Req.Status)
	assert.Equal(t, "success", last.Req.Conclusion)
	assert.Equal(t, &model.CheckRunOutput{Title: "Built", Summary: "Building", Text: "done"}, last.Req.Output)

	assert.Equal(t, "success", state.Conclusion)
	assert.True(t, state.IsCompleted())
	assert.Equal(t, "success", f.store.last().Conclusion)
	assert.Equal(t, model.JournalEventCompleted, f.journal.events()[len(f.journal.events())-1])
}

func TestUpdate_AllowedAfterCompletion(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()
	ctx := context.Background()
	require.NoError(t, f.svc.Get(ctx, state, buildRequest))
	require.NoError(t, f.svc.Update(ctx, state, UpdateRequest{Conclusion: "failure"}))

	require.NoError(t, f.svc.Update(ctx, state, UpdateRequest{AppendText: "post-mortem"}))

	assert.Equal(t, "post-mortem", state.Text)
	assert.Empty(t, state.Conclusion)
	assert.Equal(t, "failure", f.checks.runs[0].Conclusion)
}

func TestUpdate_RefreshesExpiringToken(t *testing.T) {
	f := newServiceFixture(t)
	state := newState()
	ctx := context.Background()
	require.NoError(t, f.svc.Get(ctx, state, buildRequest))

	state.ExpiresAt = testNow.Add(time.Minute)
	require.NoError(t, f.svc.Update(ctx, state, UpdateRequest{AppendText: "x"}))

	assert.Equal(t, 2, f.auth.createCalls)
	assert.Equal(t, "ghs_token_2", state.AccessToken)
	assert.Equal(t, []string{"ghs_token_1", "ghs_token_2"}, f.tokens)
}

func TestMergeOutput(t *testing.T) {
	current := model.CheckRunOutput{Title: "t", Summary: "s", Text: "a"}

	tests := []struct {
		name    string
		current model.CheckRunOutput
		req     UpdateRequest
		want    model.CheckRunOutput
	}{
		{name: "nothing to change", current: current, req: UpdateRequest{}, want: current},
		{name: "append to existing text", current: current, req: UpdateRequest{AppendText: "b"}, want: model.CheckRunOutput{Title: "t", Summary: "s", Text: "a\nb"}},
		{name: "append to empty text", current: model.CheckRunOutput{}, req: UpdateRequest{AppendText: "b"}, want: model.CheckRunOutput{Text: "b"}},
		{name: "overwrite title and summary", current: current, req: UpdateRequest{Title: "T", Summary: "S"}, want: model.CheckRunOutput{Title: "T", Summary: "S", Text: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeOutput(tt.current, tt.req))
		})
	}
}
