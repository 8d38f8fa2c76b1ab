// Package recognizer defines the Provider interface for statistical citation
// span recognition.
//
// The deterministic pattern matcher in the extractor catches well-formed
// numeric citations; a recognizer backend covers loose spoken phrasing such
// as "under the statute on burglary, section 32B". The engine treats the
// recognizer as an optional, replaceable capability — anything that produces
// candidate spans from text — so the concrete model is an injected dependency
// rather than a hard-wired implementation detail.
//
// Implementations must be safe for concurrent use.
package recognizer

import "context"

// Candidate is one proposed statute mention inside the analysed text.
type Candidate struct {
	// Text is the verbatim slice of the input covering the mention.
	Text string

	// Start and End delimit Text inside the input (half-open byte range).
	Start int
	End   int

	// StatuteID is the chapter[.section] numeral the recognizer read out of
	// the mention, before normalization. May be empty when the recognizer
	// spotted a mention but could not pin a numeral; such candidates are
	// discarded by the extractor.
	StatuteID string

	// Confidence is the recognizer's own confidence in [0, 1].
	Confidence float64
}

// Provider is the abstraction over any span-recognition backend.
type Provider interface {
	// Recognize scans text and returns candidate statute mentions. An empty
	// result with nil error means the text contains no recognisable loose
	// mentions. Implementations must honour ctx cancellation.
	Recognize(ctx context.Context, text string) ([]Candidate, error)
}
