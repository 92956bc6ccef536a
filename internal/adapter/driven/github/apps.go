package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v82/github"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.InstallationAuthenticator = (*AppAuthenticator)(nil)

const (
	// jwtBackdate absorbs clock drift between the runner and GitHub.
	jwtBackdate = 60 * time.Second
	// jwtLifetime stays below GitHub's ten minute maximum.
	jwtLifetime = 9 * time.Minute
)

// AppAuthenticator implements driven.InstallationAuthenticator by calling the
// GitHub Apps API with a JWT signed by the App's private key.
type AppAuthenticator struct {
	gh *gh.Client
}

// NewAppAuthenticator creates an AppAuthenticator for the given App. Every
// request carries a freshly signed JWT. baseURL selects a GitHub Enterprise
// Server REST endpoint; empty means api.github.com.
func NewAppAuthenticator(appID int64, key *rsa.PrivateKey, baseURL string) (*AppAuthenticator, error) {
	transport := &appTransport{
		base:  http.DefaultTransport,
		appID: appID,
		key:   key,
		now:   time.Now,
	}
	httpClient := github_ratelimit.NewClient(transport)
	httpClient.Timeout = 30 * time.Second

	return NewAppAuthenticatorWithHTTPClient(httpClient, baseURL)
}

// NewAppAuthenticatorWithHTTPClient creates an AppAuthenticator using
// httpClient as is. This constructor is intended for testing.
func NewAppAuthenticatorWithHTTPClient(httpClient *http.Client, baseURL string) (*AppAuthenticator, error) {
	client := gh.NewClient(httpClient)
	if err := setBaseURL(client, baseURL); err != nil {
		return nil, err
	}
	return &AppAuthenticator{gh: client}, nil
}

// FindInstallationID resolves the installation of the App on owner/repo.
func (a *AppAuthenticator) FindInstallationID(ctx context.Context, owner, repo string) (int64, error) {
	installation, resp, err := a.gh.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err != nil {
		return 0, fmt.Errorf("finding app installation for %s/%s: %w", owner, repo, apiError(resp, err))
	}

	logRateLimit(resp, owner+"/"+repo+"/installation", 0, 1)

	if installation.GetID() == 0 {
		return 0, unhandledResponse(installation)
	}
	return installation.GetID(), nil
}

// CreateInstallationToken mints an installation access token.
func (a *AppAuthenticator) CreateInstallationToken(ctx context.Context, installationID int64) (model.InstallationToken, error) {
	token, resp, err := a.gh.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return model.InstallationToken{}, fmt.Errorf("creating access token for installation %d: %w", installationID, apiError(resp, err))
	}

	logRateLimit(resp, "installations/access_tokens", 0, 1)

	if token.GetToken() == "" {
		return model.InstallationToken{}, unhandledResponse(token)
	}

	return model.InstallationToken{
		Token:     token.GetToken(),
		ExpiresAt: token.GetExpiresAt().Time,
	}, nil
}

// SignAppJWT returns an RS256 JWT identifying the App, valid from
// now-jwtBackdate until now+jwtLifetime.
func SignAppJWT(appID int64, key *rsa.PrivateKey, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-jwtBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing app jwt: %w", err)
	}
	return signed, nil
}

// appTransport authenticates each request as the App.
type appTransport struct {
	base  http.RoundTripper
	appID int64
	key   *rsa.PrivateKey
	now   func() time.Time
}

func (t *appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	signed, err := SignAppJWT(t.appID, t.key, t.now())
	if err != nil {
		return nil, err
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+signed)
	return t.base.RoundTrip(authed)
}
