// Package verdict runs the grounded judgment: a search-grounded language
// model classifies the claim strictly from retrieved evidence and returns a
// structured verdict.
package verdict

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vaibhavmahiwal/medverify/internal/llmjson"
	"github.com/vaibhavmahiwal/medverify/internal/model"
	"github.com/vaibhavmahiwal/medverify/pkg/gemini"
)

const systemInstruction = "You are an expert medical misinformation classifier. " +
	"Analyze the user's claim against the current scientific consensus using Google Search to look up the provided query. " +
	"You MUST use a precise query. DO NOT use your internal knowledge. " +
	"You MUST respond with a JSON object that adheres strictly to the provided schema. " +
	"Classify the claim based ONLY on the search results."

// verdictSchema is the fixed structured-output contract. All four fields
// are required; schema violations map to the Error sentinel, never a crash.
var verdictSchema = &gemini.Schema{
	Type: "OBJECT",
	Properties: map[string]*gemini.Schema{
		"verdict": {
			Type:        "STRING",
			Description: "The classification: 'Contradicted', 'Supported', or 'Unsupported/Neutral'.",
		},
		"trusted_source": {
			Type:        "STRING",
			Description: "The name of the most credible source found (e.g., 'NIH', 'WHO').",
		},
		"reasoning": {
			Type:        "STRING",
			Description: "A concise, one-sentence summary of the evidence found.",
		},
		"score_base": {
			Type:        "INTEGER",
			Description: "A base score from 10 (False) to 90 (True) before source trust is applied.",
		},
	},
	Required: []string{"verdict", "trusted_source", "reasoning", "score_base"},
}

// Engine submits grounded judgment queries. A single attempt per claim: the
// call is not retried so a slow provider cannot stack latency, and every
// failure is converted into the Error sentinel rather than propagated.
type Engine struct {
	client gemini.Client
	model  string
}

// NewEngine creates a grounded verdict engine over the given Gemini client.
func NewEngine(client gemini.Client, judgeModel string) *Engine {
	return &Engine{client: client, model: judgeModel}
}

// Judge classifies claim using live search grounding, focused by the
// extracted search terms when present. It never returns an error: failures
// surface as a Verdict with the ERROR label, cited source "API Failure",
// and base score 0.
func (e *Engine) Judge(ctx context.Context, claim string, searchTerms []string) model.Verdict {
	query := buildQuery(claim, searchTerms)

	resp, err := e.client.GenerateContent(ctx, gemini.GenerateRequest{
		Model: e.model,
		Contents: []gemini.Content{
			{Role: "user", Parts: []gemini.Part{{Text: query}}},
		},
		SystemInstruction: &gemini.Content{
			Parts: []gemini.Part{{Text: systemInstruction}},
		},
		Tools: []gemini.Tool{{GoogleSearch: &gemini.GoogleSearch{}}},
		GenerationConfig: &gemini.GenerationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   verdictSchema,
		},
	})
	if err != nil {
		zap.L().Error("verdict: grounded judgment call failed", zap.Error(err))
		return errorVerdict(fmt.Sprintf("Gemini API call failed: %v", err))
	}

	text := resp.Text()
	if text == "" {
		zap.L().Error("verdict: empty model response")
		return errorVerdict("Gemini returned no candidates")
	}

	v, err := parseVerdict(text)
	if err != nil {
		zap.L().Error("verdict: response violated schema",
			zap.String("response", text),
			zap.Error(err),
		)
		return errorVerdict(fmt.Sprintf("response violated verdict schema: %v", err))
	}

	zap.L().Info("verdict: grounded judgment complete",
		zap.String("label", string(v.Label)),
		zap.String("cited_source", v.CitedSource),
		zap.Int("base_score", v.BaseScore),
		zap.Int("total_tokens", resp.UsageMetadata.TotalTokenCount),
	)
	return v
}

// buildQuery embeds the claim and, when terms exist, an explicit focus
// directive joining all terms with a logical AND.
func buildQuery(claim string, terms []string) string {
	if len(terms) == 0 {
		return fmt.Sprintf("Verify claim: %s.", claim)
	}
	return fmt.Sprintf("Verify claim: %s. Focus search terms: %s", claim, strings.Join(terms, " AND "))
}

func parseVerdict(text string) (model.Verdict, error) {
	var v model.Verdict
	if err := json.Unmarshal([]byte(llmjson.Object(text)), &v); err != nil {
		return model.Verdict{}, err
	}

	if !v.Label.Valid() {
		return model.Verdict{}, fmt.Errorf("unknown verdict label %q", v.Label)
	}
	if v.BaseScore < 0 || v.BaseScore > 90 {
		return model.Verdict{}, fmt.Errorf("base score %d outside [0,90]", v.BaseScore)
	}
	return v, nil
}

func errorVerdict(detail string) model.Verdict {
	return model.Verdict{
		Label:       model.VerdictError,
		CitedSource: "API Failure",
		Rationale:   detail,
		BaseScore:   0,
	}
}
