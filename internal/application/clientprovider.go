package application

import (
	"sync"

	"github.com/ericfisherdev/checkrunsync/internal/domain/port/driven"
)

// CheckRunClientProvider hands out a driven.CheckRunClient authenticated with
// the current installation token. It holds a mutex-protected reference to the
// client built for the last token seen and rebuilds it only when the token
// changes, so a refreshed token takes effect on the next call.
type CheckRunClientProvider struct {
	mu      sync.RWMutex
	factory driven.CheckRunClientFactory
	client  driven.CheckRunClient
	token   string
}

// NewCheckRunClientProvider creates a provider that builds clients with factory.
func NewCheckRunClientProvider(factory driven.CheckRunClientFactory) *CheckRunClientProvider {
	return &CheckRunClientProvider{factory: factory}
}

// ForToken returns a client authenticated with token, reusing the cached
// client when token is unchanged.
func (p *CheckRunClientProvider) ForToken(token string) driven.CheckRunClient {
	p.mu.RLock()
	if p.client != nil && p.token == token {
		client := p.client
		p.mu.RUnlock()
		return client
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	// Another caller may have swapped in a client for this token meanwhile.
	if p.client != nil && p.token == token {
		return p.client
	}
	p.client = p.factory(token)
	p.token = token
	return p.client
}
