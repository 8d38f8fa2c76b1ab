package extract

import (
	"regexp"
	"strings"

	"github.com/MrWong99/verdex/pkg/statute"
)

// citationPattern pairs a compiled citation surface form with the confidence
// assigned to its matches. Capture group 1 is always the statute numeral.
type citationPattern struct {
	re         *regexp.Regexp
	confidence float64
}

// numeral is the statute-id core: digits, optional letter suffix, optional
// .section or -part tail (e.g. "123", "32B", "456.013", "123-45").
const numeral = `(\d+[A-Za-z]?(?:\.\d+)?(?:-\d+)?)`

// citationPatterns lists the recognised citation surface forms. Fully
// qualified forms ("section 456.013", "Florida Statute 456.013") score
// highest; chapter-only mentions are inherently more ambiguous. More specific
// forms come first so the overlap dedupe in matchPatterns keeps them over
// their abbreviated substrings ("F.S. 316.193" also contains "S. 316.193").
var citationPatterns = []citationPattern{
	{regexp.MustCompile(`(?i)\bsection\s+` + numeral), 0.95},
	{regexp.MustCompile(`(?i)\bflorida\s+statutes?\s+` + numeral), 0.95},
	{regexp.MustCompile(`(?i)\bfla\.\s+stat\.\s+§?\s*` + numeral), 0.90},
	{regexp.MustCompile(`(?i)\b` + numeral + `\s+F\.S\.`), 0.90},
	{regexp.MustCompile(`(?i)\bF\.S\.\s+§?\s*` + numeral), 0.90},
	{regexp.MustCompile(`(?i)\bs\.\s+` + numeral), 0.90},
	{regexp.MustCompile(`(?i)\bchapter\s+(\d+[A-Za-z]?)\b`), 0.80},
}

// idShape validates a cleaned-up candidate numeral before it becomes a
// normalized id.
var idShape = regexp.MustCompile(`^\d+[A-Za-z]?(?:\.\d+)?(?:-\d+)?$`)

// NormalizeID derives the canonical chapter[.section] key from a raw numeral:
// surrounding punctuation and internal spaces are stripped and a chapter
// letter suffix is uppercased ("32b" → "32B"). Returns "" when the remainder
// does not look like a statute numeral; callers skip such candidates.
func NormalizeID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, ".,;:!?\"'()§")
	s = strings.ReplaceAll(s, " ", "")
	if !idShape.MatchString(s) {
		return ""
	}
	return strings.ToUpper(s)
}

// matchPatterns runs the deterministic citation pass over text. Patterns are
// tried in confidence order; a later pattern's match that overlaps an
// already-accepted span is dropped ("F.S. § 316.193" matches two surface
// forms but yields one reference).
func matchPatterns(text string) []statute.Reference {
	var refs []statute.Reference
	for _, p := range citationPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			// m[2]:m[3] is the numeral capture group.
			id := NormalizeID(text[m[2]:m[3]])
			if id == "" {
				continue
			}
			if overlapsAny(refs, statute.Span{Start: m[0], End: m[1]}) {
				continue
			}
			refs = append(refs, statute.Reference{
				Raw:          text[m[0]:m[1]],
				NormalizedID: id,
				Span:         statute.Span{Start: m[0], End: m[1]},
				Confidence:   p.confidence,
				Layer:        statute.LayerPattern,
			})
		}
	}
	return refs
}
