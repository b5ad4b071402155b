// Package extract produces the short list of salient search terms that
// focuses the grounded judgment query.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/vaibhavmahiwal/medverify/internal/llmjson"
	"github.com/vaibhavmahiwal/medverify/pkg/anthropic"
)

// MaxTerms caps the search-term list to keep the downstream query focused.
const MaxTerms = 5

// FallbackTerm is returned as a one-element sequence when neither the model
// nor the heuristic can produce any terms. Extraction never fails outright.
const FallbackTerm = "medical claim"

// Extractor returns up to MaxTerms salient terms for text, in order.
// Implementations must return a non-empty slice and never an error.
type Extractor interface {
	Extract(ctx context.Context, text string) []string
}

const extractSystemPrompt = `Extract the key medical terms from the given text that are most useful as web search keywords: conditions, substances, treatments, organizations, and population groups. Respond with ONLY a JSON array of at most 5 short strings, most important first.`

// stopwords are generic claim-framing words that add noise to search queries.
var stopwords = map[string]bool{
	"user": true, "text": true, "article": true, "post": true,
	"claim": true, "cure": true, "cures": true, "remedy": true,
	"fast": true, "proven": true, "type": true, "this": true,
	"that": true, "with": true, "from": true, "have": true,
	"been": true, "will": true, "your": true, "according": true,
	"study": true, "studies": true, "research": true,
}

// LLMExtractor asks a small model for search terms and falls back to a
// token heuristic when the model is unavailable.
type LLMExtractor struct {
	client anthropic.Client
	model  string
}

// NewLLMExtractor creates an extractor backed by the given model. A nil
// client skips the model entirely and always uses the heuristic.
func NewLLMExtractor(client anthropic.Client, extractModel string) *LLMExtractor {
	return &LLMExtractor{client: client, model: extractModel}
}

// Extract returns up to MaxTerms terms for text. Model failures degrade to
// the heuristic extractor; an empty heuristic result degrades to the
// fallback marker. The returned slice is never empty.
func (e *LLMExtractor) Extract(ctx context.Context, text string) []string {
	if e.client != nil {
		if terms := e.extractWithModel(ctx, text); len(terms) > 0 {
			return terms
		}
	}

	if terms := HeuristicTerms(text); len(terms) > 0 {
		return terms
	}
	return []string{FallbackTerm}
}

func (e *LLMExtractor) extractWithModel(ctx context.Context, text string) []string {
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: 128,
		System:    extractSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Text: %s", text)},
		},
	})
	if err != nil {
		zap.L().Warn("extract: term model unavailable, using heuristic", zap.Error(err))
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(llmjson.Array(resp.Text())), &raw); err != nil {
		zap.L().Warn("extract: term response not parseable, using heuristic",
			zap.String("response", resp.Text()),
			zap.Error(err),
		)
		return nil
	}

	return cleanTerms(raw)
}

// cleanTerms trims, drops empties and stopwords, dedupes case-insensitively,
// and caps the list at MaxTerms while preserving order.
func cleanTerms(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if stopwords[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if len(out) == MaxTerms {
			break
		}
	}
	return out
}

// HeuristicTerms extracts terms without a model: capitalized words and
// longer tokens, stopword-filtered, deduplicated, capped at MaxTerms.
func HeuristicTerms(text string) []string {
	var candidates []string
	for _, field := range strings.Fields(text) {
		tok := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(tok) <= 3 {
			continue
		}
		runes := []rune(tok)
		if unicode.IsUpper(runes[0]) || len(tok) >= 6 {
			candidates = append(candidates, tok)
		}
	}
	return cleanTerms(candidates)
}
