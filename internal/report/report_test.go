package report_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/verdex/internal/report"
	"github.com/MrWong99/verdex/pkg/statute"
)

func result(id string, status statute.Status, mentions ...statute.Mention) statute.Result {
	return statute.Result{
		NormalizedID: id,
		Mentions:     mentions,
		Verdict:      statute.Verdict{NormalizedID: id, Status: status},
	}
}

func TestBuild_Tallies(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	r := report.Build([]statute.Result{
		result("456.013", statute.StatusMatched),
		result("316.193", statute.StatusMatched),
		result("817", statute.StatusDiscrepant),
		result("999.999", statute.StatusUnresolved),
	}, now)

	want := report.Summary{Total: 4, Matched: 2, Discrepant: 1, Unresolved: 1}
	if r.Summary != want {
		t.Errorf("Summary = %+v, want %+v", r.Summary, want)
	}
	if !r.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v", r.GeneratedAt)
	}
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	r := report.Build(nil, time.Now())
	if r.Summary != (report.Summary{}) {
		t.Errorf("Summary = %+v, want zero", r.Summary)
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	r := report.Build([]statute.Result{result("456.013", statute.StatusMatched)},
		time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	var sb strings.Builder
	if err := r.WriteJSON(&sb); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded report.Report
	if err := json.Unmarshal([]byte(sb.String()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Summary.Total != 1 || decoded.Results[0].NormalizedID != "456.013" {
		t.Errorf("decoded = %+v", decoded)
	}
	if !strings.Contains(sb.String(), "\n  ") {
		t.Error("output should be indented")
	}
}

func TestHighlight_WrapsMentions(t *testing.T) {
	t.Parallel()

	transcript := "Charged under Section 316.193 this morning."
	res := result("316.193", statute.StatusMatched, statute.Mention{
		Text: "Section 316.193",
		Span: statute.Span{Start: 14, End: 29},
	})

	got := report.Highlight(transcript, []statute.Result{res})
	want := `Charged under <span class="statute-reference" data-statute-id="316.193" data-status="matched">Section 316.193</span> this morning.`
	if got != want {
		t.Errorf("Highlight =\n%s\nwant\n%s", got, want)
	}
}

func TestHighlight_EscapesTranscriptText(t *testing.T) {
	t.Parallel()

	transcript := `He said "a < b" & cited s. 456.013 twice.`
	res := result("456.013", statute.StatusDiscrepant, statute.Mention{
		Text: "s. 456.013",
		Span: statute.Span{Start: 24, End: 34},
	})

	got := report.Highlight(transcript, []statute.Result{res})
	if strings.Contains(got, `"a < b"`) {
		t.Errorf("transcript not escaped: %s", got)
	}
	if !strings.Contains(got, "&lt; b&#34;") {
		t.Errorf("expected escaped quote and angle bracket: %s", got)
	}
	if !strings.Contains(got, `data-status="discrepant"`) {
		t.Errorf("missing status attribute: %s", got)
	}
}

func TestHighlight_MultipleMentionsInOrder(t *testing.T) {
	t.Parallel()

	transcript := "See s. 316.193 and also Section 456.013 today."
	results := []statute.Result{
		// Results deliberately out of span order.
		result("456.013", statute.StatusMatched, statute.Mention{
			Text: "Section 456.013", Span: statute.Span{Start: 24, End: 39},
		}),
		result("316.193", statute.StatusUnresolved, statute.Mention{
			Text: "s. 316.193", Span: statute.Span{Start: 4, End: 14},
		}),
	}

	got := report.Highlight(transcript, results)
	first := strings.Index(got, `data-statute-id="316.193"`)
	second := strings.Index(got, `data-statute-id="456.013"`)
	if first < 0 || second < 0 || first > second {
		t.Errorf("mentions not emitted in transcript order: %s", got)
	}
	if strings.Count(got, "</span>") != 2 {
		t.Errorf("want 2 closed spans: %s", got)
	}
}

func TestHighlight_SkipsInvalidSpans(t *testing.T) {
	t.Parallel()

	transcript := "Short transcript."
	results := []statute.Result{
		result("1.01", statute.StatusMatched,
			statute.Mention{Text: "x", Span: statute.Span{Start: -1, End: 3}},
			statute.Mention{Text: "x", Span: statute.Span{Start: 5, End: 500}},
			statute.Mention{Text: "x", Span: statute.Span{Start: 8, End: 8}},
		),
	}

	got := report.Highlight(transcript, results)
	if got != "Short transcript." {
		t.Errorf("invalid spans must be skipped, got %s", got)
	}
}

func TestHighlight_NoResultsEscapesOnly(t *testing.T) {
	t.Parallel()

	got := report.Highlight("a < b", nil)
	if got != "a &lt; b" {
		t.Errorf("got %q", got)
	}
}
