// Package github implements the CheckRunClient and InstallationAuthenticator
// ports using the go-github library.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CheckRunClient = (*Client)(nil)

// Client implements the driven.CheckRunClient port with an installation token.
type Client struct {
	gh *gh.Client
}

// NewClient creates a Checks API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. revalidation (every GET is checked against the server, see revalidatingTransport)
//  3. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  4. go-github (GitHub REST API client with installation token auth)
//
// baseURL selects a GitHub Enterprise Server REST endpoint; empty means api.github.com.
func NewClient(token, baseURL string) (*Client, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(&revalidatingTransport{base: cacheTransport})
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	if err := setBaseURL(client, baseURL); err != nil {
		return nil, err
	}
	return &Client{gh: client}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if err := setBaseURL(client, baseURL); err != nil {
		return nil, err
	}
	return &Client{gh: client}, nil
}

// NewClientFactory returns a driven.CheckRunClientFactory producing clients for
// baseURL. Construction errors are impossible once baseURL has been validated,
// so the factory validates it eagerly.
func NewClientFactory(baseURL string) (driven.CheckRunClientFactory, error) {
	if _, err := NewClient("", baseURL); err != nil {
		return nil, err
	}
	return func(token string) driven.CheckRunClient {
		client, _ := NewClient(token, baseURL)
		return client
	}, nil
}

// ListCheckRunsForRef retrieves all check runs for the given ref.
// It handles pagination automatically and keeps the order the API returns.
func (c *Client) ListCheckRunsForRef(ctx context.Context, owner, repo, ref string) ([]model.CheckRun, error) {
	opts := &gh.ListCheckRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allRuns []model.CheckRun

	for {
		result, resp, err := c.gh.Checks.ListCheckRunsForRef(ctx, owner, repo, ref, opts)
		if err != nil {
			return nil, fmt.Errorf("listing check runs for %s/%s@%s (page %d): %w", owner, repo, ref, opts.Page, apiError(resp, err))
		}

		logRateLimit(resp, owner+"/"+repo+"/check-runs", opts.Page, len(result.CheckRuns))

		for _, cr := range result.CheckRuns {
			allRuns = append(allRuns, mapCheckRun(cr))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if allRuns == nil {
		allRuns = []model.CheckRun{}
	}

	return allRuns, nil
}

// GetCheckRun fetches a single check run by ID.
func (c *Client) GetCheckRun(ctx context.Context, owner, repo string, id int64) (model.CheckRun, error) {
	cr, resp, err := c.gh.Checks.GetCheckRun(ctx, owner, repo, id)
	if err != nil {
		return model.CheckRun{}, fmt.Errorf("fetching check run %d in %s/%s: %w", id, owner, repo, apiError(resp, err))
	}

	logRateLimit(resp, owner+"/"+repo+"/check-run", 0, 1)

	return mapCheckRun(cr), nil
}

// CreateCheckRun creates a check run and returns the ID GitHub assigned to it.
func (c *Client) CreateCheckRun(ctx context.Context, owner, repo string, req driven.CreateCheckRunRequest) (int64, error) {
	opts := gh.CreateCheckRunOptions{
		Name:       req.Name,
		HeadSHA:    req.HeadSHA,
		DetailsURL: optional(req.DetailsURL),
		Status:     optional(string(req.Status)),
		Output:     mapOutput(&req.Output),
	}

	cr, resp, err := c.gh.Checks.CreateCheckRun(ctx, owner, repo, opts)
	if err != nil {
		return 0, fmt.Errorf("creating check run %q in %s/%s: %w", req.Name, owner, repo, apiError(resp, err))
	}

	logRateLimit(resp, owner+"/"+repo+"/check-runs", 0, 1)

	if cr.GetID() == 0 {
		return 0, unhandledResponse(cr)
	}
	return cr.GetID(), nil
}

// UpdateCheckRun patches a check run. Only non-empty request fields are sent,
// except the name which the API requires on every update.
func (c *Client) UpdateCheckRun(ctx context.Context, owner, repo string, id int64, req driven.UpdateCheckRunRequest) error {
	opts := gh.UpdateCheckRunOptions{
		Name:       req.Name,
		DetailsURL: optional(req.DetailsURL),
		Status:     optional(string(req.Status)),
		Conclusion: optional(req.Conclusion),
		Output:     mapOutput(req.Output),
	}

	_, resp, err := c.gh.Checks.UpdateCheckRun(ctx, owner, repo, id, opts)
	if err != nil {
		return fmt.Errorf("updating check run %d in %s/%s: %w", id, owner, repo, apiError(resp, err))
	}

	logRateLimit(resp, owner+"/"+repo+"/check-run", 0, 1)

	return nil
}

// revalidatingTransport makes httpcache revalidate every GET with
// If-None-Match instead of serving it from memory for the max-age GitHub
// sends. Writes do not evict cached reads.
type revalidatingTransport struct {
	base http.RoundTripper
}

func (t *revalidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.Header.Get("Cache-Control") != "" {
		return t.base.RoundTrip(req)
	}
	revalidate := req.Clone(req.Context())
	revalidate.Header.Set("Cache-Control", "max-age=0")
	return t.base.RoundTrip(revalidate)
}

// mapCheckRun converts a go-github CheckRun to a domain model CheckRun.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapCheckRun(cr *gh.CheckRun) model.CheckRun {
	return model.CheckRun{
		ID:         cr.GetID(),
		Name:       cr.GetName(),
		Status:     model.CheckRunStatus(cr.GetStatus()),
		Conclusion: cr.GetConclusion(),
		DetailsURL: cr.GetDetailsURL(),
		Output: model.CheckRunOutput{
			Title:   cr.GetOutput().GetTitle(),
			Summary: cr.GetOutput().GetSummary(),
			Text:    cr.GetOutput().GetText(),
		},
	}
}

// mapOutput converts a domain output block; nil or all-empty yields nil so
// that no output object is sent.
func mapOutput(out *model.CheckRunOutput) *gh.CheckRunOutput {
	if out == nil || (out.Title == "" && out.Summary == "" && out.Text == "") {
		return nil
	}
	return &gh.CheckRunOutput{
		Title:   optional(out.Title),
		Summary: optional(out.Summary),
		Text:    optional(out.Text),
	}
}

// optional returns nil for the empty string so the field is omitted from the request.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return gh.Ptr(s)
}

// apiError converts a go-github failure carrying an HTTP response into a
// driven.APIError. Transport-level errors are returned unchanged.
func apiError(resp *gh.Response, err error) error {
	if resp == nil || resp.Response == nil || resp.StatusCode < 300 {
		return err
	}

	body := err.Error()
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		if encoded, marshalErr := json.Marshal(ghErr); marshalErr == nil {
			body = string(encoded)
		}
	}

	return &driven.APIError{StatusCode: resp.StatusCode, Body: body, Err: err}
}

// unhandledResponse reports a successful response that lacks required fields.
func unhandledResponse(payload any) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		encoded = []byte(fmt.Sprintf("%+v", payload))
	}
	return &driven.UnhandledResponseError{Payload: string(encoded)}
}

// setBaseURL points client at baseURL when one is given.
func setBaseURL(client *gh.Client, baseURL string) error {
	if baseURL == "" {
		return nil
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u
	return nil
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
