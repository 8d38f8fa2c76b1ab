// Package classify turns resolution and comparison outcomes into verdicts.
//
// The classifier is pure decision logic: it performs no I/O, so every rule in
// the decision table is directly testable.
package classify

import (
	"errors"
	"fmt"

	"github.com/MrWong99/verdex/internal/gateway"
	"github.com/MrWong99/verdex/pkg/statute"
)

// Thresholds holds the tunable decision boundaries.
type Thresholds struct {
	// MinConfidence is the extraction confidence below which a reference is
	// never trusted enough for a matched/discrepant call, regardless of how
	// the comparison scored. Default: 0.5.
	MinConfidence float64

	// MatchThreshold is the similarity score at or above which a comparison
	// counts as matched. The boundary is inclusive. Default: 0.75.
	MatchThreshold float64
}

// DefaultThresholds returns the standard decision boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinConfidence:  0.5,
		MatchThreshold: 0.75,
	}
}

// Classifier maps (extraction confidence, resolution outcome, similarity
// score) triples to verdicts. Safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

// New creates a [Classifier]. Zero-valued threshold fields get defaults.
func New(t Thresholds) *Classifier {
	def := DefaultThresholds()
	if t.MinConfidence <= 0 {
		t.MinConfidence = def.MinConfidence
	}
	if t.MatchThreshold <= 0 {
		t.MatchThreshold = def.MatchThreshold
	}
	return &Classifier{thresholds: t}
}

// Thresholds returns the classifier's decision boundaries.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Classify produces the verdict for one statute id.
//
// confidence is the strongest extraction confidence among the id's mentions.
// resolveErr is the gateway failure, nil when statute text was obtained
// (possibly stale). cmp is the comparison result, meaningful only when
// resolveErr is nil.
//
// Decision order: extraction confidence is checked first — a low-confidence
// reference stays unresolved even when statute text was fetched and scored,
// because the comparison may be against text the speaker never meant. Then
// resolution failures yield unresolved with the failure kind as the reason.
// Only a confidently extracted, successfully resolved reference gets a
// matched or discrepant call from its score.
func (c *Classifier) Classify(confidence float64, resolveErr error, cmp statute.ComparisonResult) statute.Verdict {
	v := statute.Verdict{NormalizedID: cmp.NormalizedID}

	if confidence < c.thresholds.MinConfidence {
		v.Status = statute.StatusUnresolved
		v.Reasons = append(v.Reasons, fmt.Sprintf(
			"extraction confidence %.2f below minimum %.2f",
			confidence, c.thresholds.MinConfidence))
		if resolveErr != nil {
			v.Reasons = append(v.Reasons, resolveReason(resolveErr))
		}
		return v
	}

	if resolveErr != nil {
		v.Status = statute.StatusUnresolved
		v.Reasons = append(v.Reasons, resolveReason(resolveErr))
		return v
	}

	v.Score = cmp.Score
	if cmp.Score >= c.thresholds.MatchThreshold {
		v.Status = statute.StatusMatched
		return v
	}

	v.Status = statute.StatusDiscrepant
	v.Reasons = append(v.Reasons, fmt.Sprintf(
		"similarity %.2f below match threshold %.2f",
		cmp.Score, c.thresholds.MatchThreshold))
	return v
}

// resolveReason renders a gateway failure as a human-readable verdict reason.
func resolveReason(err error) string {
	var rerr *gateway.ResolveError
	if errors.As(err, &rerr) {
		switch rerr.Kind {
		case gateway.KindNotFound:
			return "statute not found at authoritative source"
		case gateway.KindParseError:
			return "authoritative source returned an unrecognizable document"
		default:
			return "authoritative source unreachable"
		}
	}
	return "statute text unavailable: " + err.Error()
}
