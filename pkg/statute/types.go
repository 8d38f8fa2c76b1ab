// Package statute defines the shared domain types of the verdex statute
// cross-reference and verification engine.
//
// The lifecycle of these types follows the verification data flow: a
// transcript pass produces immutable [Reference] values, the source gateway
// resolves each distinct normalized id into a [StatuteRecord], the comparator
// derives [ComparisonResult] values per mention, and the classifier folds
// everything into one [Verdict] per distinct id. [Result] is the outward
// per-reference record handed to the report and UI collaborators.
package statute

import "time"

// Span is a half-open byte range [Start, End) into the transcript text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Layer identifies which extraction stage produced a Reference.
type Layer string

const (
	// LayerPattern marks references found by the deterministic citation
	// pattern matcher. These carry high confidence.
	LayerPattern Layer = "pattern"

	// LayerPhonetic marks references found via phonetic cue-word matching,
	// typically recovering speech-to-text mis-transcriptions such as
	// "statue 456.013".
	LayerPhonetic Layer = "phonetic"

	// LayerRecognizer marks references proposed by the statistical span
	// recognizer for loosely phrased mentions. These carry the recognizer's
	// own, usually lower, confidence.
	LayerRecognizer Layer = "recognizer"
)

// Reference is a single detected statute mention inside a transcript.
// References are created by the extractor and immutable thereafter.
//
// Several references may normalize to the same NormalizedID; the orchestrator
// groups them for lookup while every span is retained for highlighting.
type Reference struct {
	// Raw is the exact transcript text that matched (e.g. "Section 456.013").
	Raw string `json:"raw"`

	// NormalizedID is the canonical chapter[.section] key derived from Raw
	// (e.g. "456.013"). Used for cache lookup and deduplication.
	NormalizedID string `json:"normalized_id"`

	// Span locates Raw inside the transcript.
	Span Span `json:"span"`

	// Confidence is the extraction confidence in [0, 1]. References below the
	// configured minimum are still emitted — the classifier turns them into
	// unresolved verdicts rather than the extractor silently dropping them.
	Confidence float64 `json:"confidence"`

	// Layer records the extraction stage that produced this reference.
	Layer Layer `json:"layer"`
}

// Origin describes where a StatuteRecord came from.
type Origin string

const (
	// OriginLive means the record was fetched from the authoritative source
	// during this resolution.
	OriginLive Origin = "live"

	// OriginCache means the record was served from a valid cache entry.
	OriginCache Origin = "cache"

	// OriginStale means the cache entry had expired and a live refresh
	// failed, so the stale text was served in preference to failing outright.
	OriginStale Origin = "stale"
)

// StatuteRecord is the canonical text of one statute as retrieved from the
// authoritative source. Records are owned by the gateway and shared read-only
// with the comparator and classifier; a cache refresh replaces the whole
// record or leaves the previous one untouched, never a partial update.
type StatuteRecord struct {
	// NormalizedID is the canonical chapter[.section] key.
	NormalizedID string `json:"normalized_id"`

	// Title is the statute heading as published by the source.
	Title string `json:"title"`

	// FullText is the whitespace-normalised statute body.
	FullText string `json:"full_text"`

	// SourceURL is the authoritative document location the text came from.
	SourceURL string `json:"source_url"`

	// FetchedAt is when the text was last retrieved live.
	FetchedAt time.Time `json:"fetched_at"`

	// Origin reports how this particular copy was obtained.
	Origin Origin `json:"origin"`

	// Embedding is the statute text's embedding vector when one has been
	// computed (at fetch time or by a previous comparison). May be nil; the
	// comparator embeds FullText on demand when it is.
	Embedding []float32 `json:"-"`
}

// ComparisonResult is the scored outcome of comparing one transcript excerpt
// against a statute's canonical text. It is derived per verification run and
// never cached — the excerpt varies per occurrence even when the statute
// text does not.
type ComparisonResult struct {
	// NormalizedID identifies the statute compared against.
	NormalizedID string `json:"normalized_id"`

	// Score is the similarity in [0, 1]. Raw embedding cosine similarity in
	// [-1, 1] is mapped via (cos+1)/2; this normalization is fixed so that
	// configured thresholds remain stable.
	Score float64 `json:"similarity_score"`

	// TranscriptExcerpt is the context window around the mention that was
	// embedded.
	TranscriptExcerpt string `json:"transcript_excerpt"`

	// StatuteExcerpt is a short leading slice of the canonical text, carried
	// for display.
	StatuteExcerpt string `json:"statute_excerpt"`

	// Method names how the score was produced ("embedding-cosine", or
	// "empty-input" for the degenerate zero score).
	Method string `json:"method"`
}

// Status is the final classification of one distinct statute reference.
type Status string

const (
	// StatusMatched means a completed comparison scored at or above the match
	// threshold.
	StatusMatched Status = "matched"

	// StatusDiscrepant means a completed comparison scored below the match
	// threshold. Requires canonical text to have been available.
	StatusDiscrepant Status = "discrepant"

	// StatusUnresolved means no decision could be made: the source could not
	// supply text, or extraction confidence was below the configured minimum.
	StatusUnresolved Status = "unresolved"
)

// Verdict is the per-reference decision. Reasons is always non-empty when
// Status is unresolved or discrepant.
type Verdict struct {
	NormalizedID string   `json:"normalized_id"`
	Status       Status   `json:"status"`
	Score        float64  `json:"similarity_score"`
	Reasons      []string `json:"reasons,omitempty"`
}

// Mention is one raw occurrence of a statute reference, kept for transcript
// highlighting.
type Mention struct {
	Text       string  `json:"text"`
	Span       Span    `json:"span"`
	Confidence float64 `json:"confidence"`
}

// Result is the outward per-reference record consumed by the report and UI
// layers. One Result is produced per distinct normalized id, aggregating all
// of its mentions.
type Result struct {
	NormalizedID   string    `json:"normalized_id"`
	Mentions       []Mention `json:"raw_mentions"`
	Verdict        Verdict   `json:"verdict"`
	CanonicalTitle string    `json:"canonical_title,omitempty"`
	CanonicalURL   string    `json:"canonical_url,omitempty"`
	Origin         Origin    `json:"origin,omitempty"`
	CachedAt       time.Time `json:"cached_at,omitzero"`
}
