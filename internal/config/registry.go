package config

import (
	"errors"
	"fmt"
	"sync"

	anyllm "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/verdex/pkg/provider/embeddings"
	embollama "github.com/MrWong99/verdex/pkg/provider/embeddings/ollama"
	embopenai "github.com/MrWong99/verdex/pkg/provider/embeddings/openai"
	"github.com/MrWong99/verdex/pkg/provider/recognizer"
	recllm "github.com/MrWong99/verdex/pkg/provider/recognizer/llm"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	embeddings map[string]func(ProviderEntry) (embeddings.Provider, error)
	recognizer map[string]func(ProviderEntry) (recognizer.Provider, error)
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		embeddings: make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
		recognizer: make(map[string]func(ProviderEntry) (recognizer.Provider, error)),
	}
}

// DefaultRegistry returns a [Registry] with all built-in providers
// registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterEmbeddings("openai", func(e ProviderEntry) (embeddings.Provider, error) {
		var opts []embopenai.Option
		if e.BaseURL != "" {
			opts = append(opts, embopenai.WithBaseURL(e.BaseURL))
		}
		return embopenai.New(e.APIKey, e.Model, opts...)
	})
	r.RegisterEmbeddings("ollama", func(e ProviderEntry) (embeddings.Provider, error) {
		return embollama.New(e.BaseURL, e.Model)
	})

	for _, name := range []string{"openai", "anthropic", "gemini", "ollama"} {
		r.RegisterRecognizer(name, func(e ProviderEntry) (recognizer.Provider, error) {
			var opts []anyllm.Option
			if e.APIKey != "" {
				opts = append(opts, anyllm.WithAPIKey(e.APIKey))
			}
			if e.BaseURL != "" {
				opts = append(opts, anyllm.WithBaseURL(e.BaseURL))
			}
			return recllm.New(e.Name, e.Model, opts...)
		})
	}

	return r
}

// RegisterEmbeddings registers an embeddings provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterEmbeddings(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[name] = factory
}

// RegisterRecognizer registers a recognizer provider factory under name.
func (r *Registry) RegisterRecognizer(name string, factory func(ProviderEntry) (recognizer.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizer[name] = factory
}

// CreateEmbeddings instantiates an embeddings provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateEmbeddings(entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embeddings[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embeddings/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateRecognizer instantiates a recognizer provider using the factory
// registered under entry.Name.
func (r *Registry) CreateRecognizer(entry ProviderEntry) (recognizer.Provider, error) {
	r.mu.RLock()
	factory, ok := r.recognizer[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: recognizer/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
