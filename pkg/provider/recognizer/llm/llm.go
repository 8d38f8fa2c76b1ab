// Package llm provides a recognizer backend that prompts a chat model to
// locate loosely phrased statute mentions.
//
// It is built on github.com/mozilla-ai/any-llm-go, a unified multi-provider
// interface, so the same backend works against OpenAI, Anthropic, Gemini, or
// a local Ollama instance.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/verdex/pkg/provider/recognizer"
)

const systemPrompt = `You identify references to statutes in transcripts of spoken legal proceedings.
Find every phrase that refers to a statute, law section, or chapter, including
indirect phrasing like "the statute on burglary, section 32B". Respond with a
JSON array only. Each element: {"text": "<verbatim phrase>", "statute_id":
"<chapter or chapter.section numeral, e.g. 456.013 or 32B>", "confidence":
<0.0-1.0>}. Use an empty array when there are none. Do not invent numerals.`

var _ recognizer.Provider = (*Recognizer)(nil)

// Recognizer implements recognizer.Provider by asking a chat model to list
// statute mentions as JSON and locating each returned phrase in the input.
type Recognizer struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Recognizer backed by the given LLM provider.
//
// providerName is one of "openai", "anthropic", "gemini", "ollama". opts are
// any-llm-go options such as anyllmlib.WithAPIKey; without an API key option
// the backend falls back to its usual environment variable.
func New(providerName, model string, opts ...anyllmlib.Option) (*Recognizer, error) {
	if providerName == "" {
		return nil, fmt.Errorf("llm recognizer: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llm recognizer: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm recognizer: create %q backend: %w", providerName, err)
	}
	return &Recognizer{backend: backend, model: model}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama", providerName)
	}
}

// mention is the JSON element shape the model is asked to produce.
type mention struct {
	Text       string  `json:"text"`
	StatuteID  string  `json:"statute_id"`
	Confidence float64 `json:"confidence"`
}

// Recognize implements recognizer.Provider.
//
// Model output that cannot be parsed as the requested JSON array is treated
// as an error; phrases the model reports but that cannot be located verbatim
// in the input are skipped, since a span the caller cannot highlight is
// useless downstream.
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]recognizer.Candidate, error) {
	temp := 0.0
	resp, err := r.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: r.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, fmt.Errorf("llm recognizer: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm recognizer: empty choices in response")
	}

	mentions, err := parseMentions(resp.Choices[0].Message.ContentString())
	if err != nil {
		return nil, fmt.Errorf("llm recognizer: %w", err)
	}

	var out []recognizer.Candidate
	searchFrom := 0
	for _, m := range mentions {
		if m.Text == "" {
			continue
		}
		// Locate the phrase verbatim, scanning forward so repeated phrases
		// map to successive occurrences.
		idx := strings.Index(text[searchFrom:], m.Text)
		if idx < 0 {
			idx = strings.Index(text, m.Text)
			if idx < 0 {
				continue
			}
		} else {
			idx += searchFrom
		}
		conf := m.Confidence
		if conf <= 0 || conf > 1 {
			conf = 0.5
		}
		out = append(out, recognizer.Candidate{
			Text:       m.Text,
			Start:      idx,
			End:        idx + len(m.Text),
			StatuteID:  m.StatuteID,
			Confidence: conf,
		})
		searchFrom = idx + len(m.Text)
	}
	return out, nil
}

// parseMentions decodes the model reply, tolerating markdown code fences that
// some models wrap around JSON despite instructions.
func parseMentions(reply string) ([]mention, error) {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	var mentions []mention
	if err := json.Unmarshal([]byte(s), &mentions); err != nil {
		return nil, fmt.Errorf("parse reply as JSON array: %w", err)
	}
	return mentions, nil
}
