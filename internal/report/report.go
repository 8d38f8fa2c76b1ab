// Package report renders verification results for humans and downstream
// tooling: a JSON report and an annotated-transcript HTML fragment with every
// verified mention wrapped in a marker span.
package report

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/MrWong99/verdex/pkg/statute"
)

// Summary is the verdict tally of one verification run.
type Summary struct {
	Total      int `json:"total"`
	Matched    int `json:"matched"`
	Discrepant int `json:"discrepant"`
	Unresolved int `json:"unresolved"`
}

// Report is the serializable output of one verification run.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     Summary          `json:"summary"`
	Results     []statute.Result `json:"results"`
}

// Build assembles a [Report] from pipeline results.
func Build(results []statute.Result, generatedAt time.Time) Report {
	r := Report{
		GeneratedAt: generatedAt,
		Results:     results,
		Summary:     Summary{Total: len(results)},
	}
	for _, res := range results {
		switch res.Verdict.Status {
		case statute.StatusMatched:
			r.Summary.Matched++
		case statute.StatusDiscrepant:
			r.Summary.Discrepant++
		default:
			r.Summary.Unresolved++
		}
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// annotation is one mention span to wrap in the highlighted transcript.
type annotation struct {
	span   statute.Span
	id     string
	status statute.Status
}

// Highlight returns the transcript as an HTML fragment with each verified
// mention wrapped in
//
//	<span class="statute-reference" data-statute-id="..." data-status="...">
//
// Transcript text is HTML-escaped; mention spans never overlap, so a single
// forward pass suffices. Spans falling outside the transcript bounds are
// skipped rather than corrupting the output.
func Highlight(transcript string, results []statute.Result) string {
	var anns []annotation
	for _, res := range results {
		for _, m := range res.Mentions {
			if m.Span.Start < 0 || m.Span.End > len(transcript) || m.Span.Start >= m.Span.End {
				continue
			}
			anns = append(anns, annotation{span: m.Span, id: res.NormalizedID, status: res.Verdict.Status})
		}
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].span.Start < anns[j].span.Start })

	var sb strings.Builder
	pos := 0
	for _, a := range anns {
		if a.span.Start < pos {
			continue
		}
		sb.WriteString(html.EscapeString(transcript[pos:a.span.Start]))
		fmt.Fprintf(&sb, `<span class="statute-reference" data-statute-id="%s" data-status="%s">`,
			html.EscapeString(a.id), a.status)
		sb.WriteString(html.EscapeString(transcript[a.span.Start:a.span.End]))
		sb.WriteString("</span>")
		pos = a.span.End
	}
	sb.WriteString(html.EscapeString(transcript[pos:]))
	return sb.String()
}
