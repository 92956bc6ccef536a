// Package actions implements driven ports on top of GitHub Actions workflow commands.
package actions

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretSink = (*Masker)(nil)

// commandEscaper escapes workflow command data so multi-line values stay on one line.
var commandEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// Masker registers secrets with the Actions runner by emitting
// "::add-mask::" commands, after which the runner redacts them from logs.
type Masker struct {
	mu sync.Mutex
	w  io.Writer
}

// NewMasker creates a Masker writing workflow commands to w (normally stdout).
func NewMasker(w io.Writer) *Masker {
	return &Masker{w: w}
}

// AddSecret masks value. Empty values are ignored.
func (m *Masker) AddSecret(value string) {
	if value == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, "::add-mask::%s\n", commandEscaper.Replace(value))
}
