package extract

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/verdex/pkg/statute"
)

// Speech-to-text output regularly mangles the citation cue word while leaving
// the numeral intact ("in violation of statue 456.013"). The phonetic pass
// recovers those mentions: a token that sounds like a cue word (Double
// Metaphone code overlap) and resembles it by Jaro-Winkler, immediately
// followed by a statute numeral, yields a medium-confidence reference.

// cueWords are the citation cue words the phonetic pass listens for.
var cueWords = []string{"section", "statute", "statutes", "chapter"}

// cueCodes holds the Double Metaphone codes of all cue words, computed once.
var cueCodes = func() []string {
	var codes []string
	for _, w := range cueWords {
		p, s := matchr.DoubleMetaphone(w)
		if p != "" {
			codes = append(codes, p)
		}
		if s != "" && s != p {
			codes = append(codes, s)
		}
	}
	return codes
}()

// phoneticConfidence scales the Jaro-Winkler score into the confidence band
// reserved for phonetically recovered mentions, below the deterministic
// pattern band.
func phoneticConfidence(jw float64) float64 {
	return 0.75 * jw
}

// token is a word with its location in the source text.
type token struct {
	text       string
	start, end int
}

// tokenize splits text on whitespace, keeping byte offsets.
func tokenize(text string) []token {
	var toks []token
	start := -1
	for i, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if start >= 0 {
				toks = append(toks, token{text: text[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: text[start:], start: start, end: len(text)})
	}
	return toks
}

// isCueWord reports whether lower is one of the exact cue words; those are
// already covered by the pattern pass.
func isCueWord(lower string) bool {
	for _, w := range cueWords {
		if lower == w {
			return true
		}
	}
	return false
}

// matchPhonetic runs the phonetic cue pass. jwThreshold is the minimum
// Jaro-Winkler similarity against the best cue word.
func matchPhonetic(text string, jwThreshold float64) []statute.Reference {
	toks := tokenize(text)

	var refs []statute.Reference
	for i := 0; i+1 < len(toks); i++ {
		word := strings.ToLower(strings.Trim(toks[i].text, ".,;:!?\"'()"))
		if word == "" || isCueWord(word) {
			continue
		}

		p, s := matchr.DoubleMetaphone(word)
		if !codeOverlaps(p, s) {
			continue
		}

		best := 0.0
		for _, cue := range cueWords {
			if jw := matchr.JaroWinkler(word, cue, false); jw > best {
				best = jw
			}
		}
		if best < jwThreshold {
			continue
		}

		id := NormalizeID(toks[i+1].text)
		if id == "" {
			continue
		}

		refs = append(refs, statute.Reference{
			Raw:          text[toks[i].start:toks[i+1].end],
			NormalizedID: id,
			Span:         statute.Span{Start: toks[i].start, End: toks[i+1].end},
			Confidence:   phoneticConfidence(best),
			Layer:        statute.LayerPhonetic,
		})
	}
	return refs
}

// codeOverlaps reports whether either Double Metaphone code relates to a cue
// word's code. A dropped trailing consonant shortens the code ("statue" is
// STT against statute's STTT), so a prefix relation counts as overlap.
func codeOverlaps(primary, secondary string) bool {
	for _, cue := range cueCodes {
		for _, code := range []string{primary, secondary} {
			if code == "" {
				continue
			}
			if strings.HasPrefix(cue, code) || strings.HasPrefix(code, cue) {
				return true
			}
		}
	}
	return false
}
