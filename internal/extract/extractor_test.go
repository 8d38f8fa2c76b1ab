package extract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/verdex/internal/extract"
	"github.com/MrWong99/verdex/pkg/provider/recognizer"
	recmock "github.com/MrWong99/verdex/pkg/provider/recognizer/mock"
	"github.com/MrWong99/verdex/pkg/statute"
)

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain section", "456.013", "456.013"},
		{"chapter only", "316", "316"},
		{"letter suffix uppercased", "32b", "32B"},
		{"trailing punctuation stripped", "456.013,", "456.013"},
		{"section sign stripped", "§316.193", "316.193"},
		{"internal space removed", "456 .013", "456.013"},
		{"hyphenated part", "121-70", "121-70"},
		{"words rejected", "burglary", ""},
		{"trailing dot only numeral", "456.", "456"},
		{"empty", "", ""},
		{"double dot rejected", "456.013.5", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extract.NormalizeID(tt.in); got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtract_PatternForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		wantID  string
		minConf float64
	}{
		{"section keyword", "as stated in Section 456.013 of the code", "456.013", 0.95},
		{"florida statutes", "under Florida Statutes 316.193 the defendant", "316.193", 0.95},
		{"abbreviated s dot", "pursuant to s. 120.54 we proceed", "120.54", 0.90},
		{"trailing fs", "the charge under 316.193 F.S. stands", "316.193", 0.90},
		{"fla stat with sign", "see Fla. Stat. § 775.089 for restitution", "775.089", 0.90},
		{"fs prefix", "citing F.S. § 948.03 conditions", "948.03", 0.90},
		{"chapter only", "all of Chapter 456 applies here", "456", 0.80},
		{"chapter letter suffix", "discussed in section 32B earlier", "32B", 0.95},
	}

	ex := extract.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			refs, err := ex.Extract(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if len(refs) != 1 {
				t.Fatalf("got %d references, want 1: %+v", len(refs), refs)
			}
			r := refs[0]
			if r.NormalizedID != tt.wantID {
				t.Errorf("NormalizedID = %q, want %q", r.NormalizedID, tt.wantID)
			}
			if r.Confidence < tt.minConf {
				t.Errorf("Confidence = %.2f, want >= %.2f", r.Confidence, tt.minConf)
			}
			if r.Layer != statute.LayerPattern {
				t.Errorf("Layer = %q, want %q", r.Layer, statute.LayerPattern)
			}
			if got := tt.text[r.Span.Start:r.Span.End]; got != r.Raw {
				t.Errorf("Span slice = %q, Raw = %q; must agree", got, r.Raw)
			}
		})
	}
}

func TestExtract_OrderedBySpanStart(t *testing.T) {
	t.Parallel()

	text := "First Section 456.013, then chapter 316, and finally s. 775.089 closes it."
	refs, err := extract.New().Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("got %d references, want 3: %+v", len(refs), refs)
	}
	wantOrder := []string{"456.013", "316", "775.089"}
	for i, want := range wantOrder {
		if refs[i].NormalizedID != want {
			t.Errorf("refs[%d].NormalizedID = %q, want %q", i, refs[i].NormalizedID, want)
		}
	}
	for i := 1; i < len(refs); i++ {
		if refs[i].Span.Start < refs[i-1].Span.Start {
			t.Errorf("references out of order at %d: %+v", i, refs)
		}
	}
}

func TestExtract_OverlappingSurfaceFormsYieldOneReference(t *testing.T) {
	t.Parallel()

	// "F.S. 316.193" satisfies both the F.S.-prefix and the "s." forms.
	refs, err := extract.New().Extract(context.Background(), "charged under F.S. 316.193 today")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d references, want 1: %+v", len(refs), refs)
	}
	if refs[0].NormalizedID != "316.193" {
		t.Errorf("NormalizedID = %q, want 316.193", refs[0].NormalizedID)
	}
}

func TestExtract_PhoneticMistranscription(t *testing.T) {
	t.Parallel()

	text := "the defendant violated statue 456.013 knowingly"
	refs, err := extract.New().Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d references, want 1: %+v", len(refs), refs)
	}
	r := refs[0]
	if r.NormalizedID != "456.013" {
		t.Errorf("NormalizedID = %q, want 456.013", r.NormalizedID)
	}
	if r.Layer != statute.LayerPhonetic {
		t.Errorf("Layer = %q, want %q", r.Layer, statute.LayerPhonetic)
	}
	if r.Confidence >= 0.95 {
		t.Errorf("Confidence = %.2f; phonetic recovery must score below the pattern band", r.Confidence)
	}
	if !strings.Contains(r.Raw, "statue") {
		t.Errorf("Raw = %q, want the mis-transcribed cue word included", r.Raw)
	}
}

func TestExtract_WithoutPhonetic(t *testing.T) {
	t.Parallel()

	refs, err := extract.New(extract.WithoutPhonetic()).
		Extract(context.Background(), "violated statue 456.013 knowingly")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("got %d references, want 0 with phonetic pass disabled: %+v", len(refs), refs)
	}
}

func TestExtract_MalformedNumeralSkipsCandidateOnly(t *testing.T) {
	t.Parallel()

	// The first recognizer candidate has an unusable id; the second is fine.
	text := "the burglary statute and the fraud law"
	rec := &recmock.Provider{
		Candidates: []recognizer.Candidate{
			{Text: "the burglary statute", Start: 0, End: 20, StatuteID: "burglary", Confidence: 0.6},
			{Text: "the fraud law", Start: 25, End: 38, StatuteID: "817", Confidence: 0.6},
		},
	}
	refs, err := extract.New(extract.WithRecognizer(rec)).
		Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var ids []string
	for _, r := range refs {
		ids = append(ids, r.NormalizedID)
	}
	for _, id := range ids {
		if id == "" {
			t.Fatalf("malformed candidate leaked into output: %v", ids)
		}
	}
	found := false
	for _, r := range refs {
		if r.NormalizedID == "817" && r.Layer == statute.LayerRecognizer {
			found = true
		}
	}
	if !found {
		t.Errorf("valid recognizer candidate missing from output: %+v", refs)
	}
}

func TestExtract_RecognizerFailureIsContained(t *testing.T) {
	t.Parallel()

	rec := &recmock.Provider{Err: errors.New("model offline")}
	refs, err := extract.New(extract.WithRecognizer(rec)).
		Extract(context.Background(), "pursuant to Section 456.013 we proceed")
	if err != nil {
		t.Fatalf("Extract must contain recognizer failures, got: %v", err)
	}
	if len(refs) != 1 || refs[0].NormalizedID != "456.013" {
		t.Fatalf("deterministic layers lost on recognizer failure: %+v", refs)
	}
}

func TestExtract_StrongerLayerWinsOverlap(t *testing.T) {
	t.Parallel()

	// Recognizer proposes a span overlapping a pattern match; pattern wins.
	rec := &recmock.Provider{
		Candidates: []recognizer.Candidate{
			{Text: "Section 456.013", Start: 12, End: 27, StatuteID: "456.013", Confidence: 0.4},
		},
	}
	text := "pursuant to Section 456.013 we proceed"
	refs, err := extract.New(extract.WithRecognizer(rec)).Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d references, want 1: %+v", len(refs), refs)
	}
	if refs[0].Layer != statute.LayerPattern {
		t.Errorf("Layer = %q, want pattern layer to win the overlap", refs[0].Layer)
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := extract.New().Extract(ctx, "Section 456.013"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestExtract_EmptyTranscript(t *testing.T) {
	t.Parallel()

	refs, err := extract.New().Extract(context.Background(), "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("got %d references from empty transcript, want 0", len(refs))
	}
}
