// Package config loads application configuration from environment variables.
package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// StateFileName is the state file created in the temp directory when
// CHECKRUN_STATE_PATH is not set.
const StateFileName = "check-run.state"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AppID       int64
	PrivateKey  *rsa.PrivateKey
	Owner       string
	Repo        string
	StatePath   string
	JournalPath string
	APIURL      string
	MaskSecrets bool
}

// HasJournal returns true when an activity journal path is configured.
func (c *Config) HasJournal() bool {
	return c.JournalPath != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// Required: CHECKRUN_APP_ID and one of CHECKRUN_PRIVATE_KEY (PEM text) or
// CHECKRUN_PRIVATE_KEY_PATH. CHECKRUN_OWNER and CHECKRUN_REPO default to the
// halves of GITHUB_REPOSITORY. Optional variables with defaults:
// CHECKRUN_STATE_PATH ($RUNNER_TEMP, $TEMP or /tmp joined with check-run.state),
// CHECKRUN_JOURNAL_PATH (disabled), CHECKRUN_API_URL (api.github.com),
// CHECKRUN_MASK_SECRETS (true).
func Load() (*Config, error) {
	v, ok := os.LookupEnv("CHECKRUN_APP_ID")
	if !ok || v == "" {
		return nil, errors.New("CHECKRUN_APP_ID is required")
	}
	appID, err := strconv.ParseInt(v, 10, 64)
	if err != nil || appID <= 0 {
		return nil, fmt.Errorf("CHECKRUN_APP_ID has invalid value %q", v)
	}

	key, err := loadPrivateKey()
	if err != nil {
		return nil, err
	}

	owner, repo, err := loadRepository()
	if err != nil {
		return nil, err
	}

	maskSecrets := true
	if v, ok := os.LookupEnv("CHECKRUN_MASK_SECRETS"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("CHECKRUN_MASK_SECRETS has invalid boolean %q: %w", v, err)
		}
		maskSecrets = parsed
	}

	return &Config{
		AppID:       appID,
		PrivateKey:  key,
		Owner:       owner,
		Repo:        repo,
		StatePath:   statePath(),
		JournalPath: os.Getenv("CHECKRUN_JOURNAL_PATH"),
		APIURL:      os.Getenv("CHECKRUN_API_URL"),
		MaskSecrets: maskSecrets,
	}, nil
}

func loadPrivateKey() (*rsa.PrivateKey, error) {
	pem := os.Getenv("CHECKRUN_PRIVATE_KEY")
	source := "CHECKRUN_PRIVATE_KEY"

	if pem == "" {
		path := os.Getenv("CHECKRUN_PRIVATE_KEY_PATH")
		if path == "" {
			return nil, errors.New("one of CHECKRUN_PRIVATE_KEY or CHECKRUN_PRIVATE_KEY_PATH is required")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read CHECKRUN_PRIVATE_KEY_PATH: %w", err)
		}
		pem = string(data)
		source = "CHECKRUN_PRIVATE_KEY_PATH"
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("%s is not a PEM encoded RSA private key: %w", source, err)
	}
	return key, nil
}

// loadRepository resolves the owner and repository. Either may stay empty;
// the state file then supplies them.
func loadRepository() (string, string, error) {
	owner := os.Getenv("CHECKRUN_OWNER")
	repo := os.Getenv("CHECKRUN_REPO")

	if v := os.Getenv("GITHUB_REPOSITORY"); v != "" && (owner == "" || repo == "") {
		o, r, ok := strings.Cut(v, "/")
		if !ok || o == "" || r == "" {
			return "", "", fmt.Errorf("GITHUB_REPOSITORY has invalid value %q, want owner/repo", v)
		}
		if owner == "" {
			owner = o
		}
		if repo == "" {
			repo = r
		}
	}
	return owner, repo, nil
}

func statePath() string {
	if v := os.Getenv("CHECKRUN_STATE_PATH"); v != "" {
		return v
	}
	for _, key := range []string{"RUNNER_TEMP", "TEMP"} {
		if dir := os.Getenv(key); dir != "" {
			return filepath.Join(dir, StateFileName)
		}
	}
	return filepath.Join("/tmp", StateFileName)
}
