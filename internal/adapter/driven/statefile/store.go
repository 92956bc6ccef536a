package statefile

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/checkrunsync/internal/domain/model"
	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StateStore = (*Store)(nil)

// Store is the file implementation of the StateStore port.
//
// The state is JSON-encoded and the resulting string is handed to Encrypt,
// which encodes it again. The file therefore holds a JSON string literal whose
// content is the state document, and Load has to decode twice.
type Store struct {
	path string
	key  *rsa.PrivateKey
}

// NewStore creates a Store writing to path. The public half used for
// encryption is derived from key.
func NewStore(path string, key *rsa.PrivateKey) *Store {
	return &Store{path: path, key: key}
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Load reads and decrypts the state file. A missing file yields an empty state.
func (s *Store) Load() (*model.CheckRunState, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &model.CheckRunState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file %s: %w", s.path, err)
	}

	var document string
	if err := Decrypt(string(raw), s.key, &document); err != nil {
		return nil, fmt.Errorf("decrypt state file %s: %w", s.path, err)
	}

	var state model.CheckRunState
	if err := json.Unmarshal([]byte(document), &state); err != nil {
		return nil, fmt.Errorf("parse state document %s: %w", s.path, err)
	}
	return &state, nil
}

// Save encrypts state and atomically replaces the state file.
func (s *Store) Save(state *model.CheckRunState) error {
	document, err := marshalCanonical(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	ciphertext, err := Encrypt(string(document), &s.key.PublicKey)
	if err != nil {
		return fmt.Errorf("encrypt state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := atomic.WriteFile(s.path, strings.NewReader(ciphertext)); err != nil {
		return fmt.Errorf("write state file %s: %w", s.path, err)
	}
	return nil
}
