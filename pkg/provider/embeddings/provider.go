// Package embeddings defines the Provider interface for text-embedding
// backends.
//
// The verdex comparator scores semantic similarity between a transcript
// excerpt and authoritative statute text by embedding both and taking the
// cosine of the vectors. The Provider abstraction keeps the engine
// polymorphic over anything that maps text to a fixed-length vector with
// cosine-comparable semantics — a hosted API, a local model server, or a
// test double.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by a single Provider instance share the same length
// (Dimensions). Vectors from different Provider instances must not be mixed
// in one similarity computation unless the caller has verified both use the
// same model and space — the comparator relies on this when reusing statute
// embeddings cached by the gateway.
type Provider interface {
	// Embed computes the embedding vector for a single text string. Returns a
	// float32 slice of length Dimensions() or an error if the request fails
	// or ctx is cancelled. Text is passed through verbatim.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes embeddings for several strings in one provider
	// call; the i-th result corresponds to texts[i]. On error the whole
	// result is nil — partial batches are never returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed vector length produced by this provider,
	// constant for the lifetime of the instance.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, used for
	// logging and to detect model mismatches against cached vectors.
	ModelID() string
}
