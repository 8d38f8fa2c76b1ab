// Package mock provides a test double for the recognizer.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/verdex/pkg/provider/recognizer"
)

// Provider is a mock implementation of recognizer.Provider.
type Provider struct {
	mu sync.Mutex

	// Candidates is returned from every Recognize call.
	Candidates []recognizer.Candidate

	// Err, if non-nil, is returned as the error from Recognize.
	Err error

	// Texts records every input passed to Recognize in order.
	Texts []string
}

// Recognize records the call and returns the configured candidates or error.
func (p *Provider) Recognize(ctx context.Context, text string) ([]recognizer.Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Texts = append(p.Texts, text)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Candidates, nil
}

// CallCount returns the number of Recognize invocations so far. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Texts)
}

var _ recognizer.Provider = (*Provider)(nil)
