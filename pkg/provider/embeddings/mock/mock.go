// Package mock provides a test double for the embeddings.Provider interface.
//
// Use Provider to return deterministic embedding vectors without a live model
// and to verify which texts were submitted for embedding.
//
// Example:
//
//	p := &mock.Provider{
//	    EmbedFunc: func(text string) []float32 {
//	        if strings.Contains(text, "license") {
//	            return []float32{1, 0, 0}
//	        }
//	        return []float32{0, 1, 0}
//	    },
//	    DimensionsValue: 3,
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/verdex/pkg/provider/embeddings"
)

// EmbedCall records a single invocation of Embed or one element of an
// EmbedBatch invocation.
type EmbedCall struct {
	// Ctx is the context passed to the call.
	Ctx context.Context
	// Text is the string submitted for embedding.
	Text string
	// Batch is true when the text arrived via EmbedBatch.
	Batch bool
}

// Provider is a mock implementation of embeddings.Provider.
type Provider struct {
	mu sync.Mutex

	// EmbedFunc maps a text to its vector. When nil, EmbedResult is returned
	// for every text.
	EmbedFunc func(text string) []float32

	// EmbedResult is the fallback vector returned when EmbedFunc is nil.
	EmbedResult []float32

	// EmbedErr, if non-nil, is returned from Embed and EmbedBatch.
	EmbedErr error

	// DimensionsValue is returned by Dimensions.
	DimensionsValue int

	// ModelIDValue is returned by ModelID. Defaults to "mock-embed".
	ModelIDValue string

	// Calls records every embedded text in submission order.
	Calls []EmbedCall
}

// Embed records the call and returns the configured vector or error.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, EmbedCall{Ctx: ctx, Text: text})
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.vectorFor(text), nil
}

// EmbedBatch records one call per text and returns the configured vectors.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range texts {
		p.Calls = append(p.Calls, EmbedCall{Ctx: ctx, Text: t, Batch: true})
	}
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	result := make([][]float32, len(texts))
	for i, t := range texts {
		result[i] = p.vectorFor(t)
	}
	return result, nil
}

// Dimensions returns DimensionsValue.
func (p *Provider) Dimensions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DimensionsValue
}

// ModelID returns ModelIDValue, defaulting to "mock-embed".
func (p *Provider) ModelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ModelIDValue == "" {
		return "mock-embed"
	}
	return p.ModelIDValue
}

// CallCount returns the number of texts embedded so far. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// vectorFor must be called with p.mu held.
func (p *Provider) vectorFor(text string) []float32 {
	if p.EmbedFunc != nil {
		return p.EmbedFunc(text)
	}
	return p.EmbedResult
}

var _ embeddings.Provider = (*Provider)(nil)
