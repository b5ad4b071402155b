package trust

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/vaibhavmahiwal/medverify/internal/llmjson"
	"github.com/vaibhavmahiwal/medverify/internal/model"
	"github.com/vaibhavmahiwal/medverify/pkg/anthropic"
)

const styleSystemPrompt = `Analyze the given medical claim text for sensationalism, urgency, or clickbait language. Assign a score from 0 (neutral/scientific) to 10 (extreme hype/misleading). Respond with ONLY a JSON object: {"sensationalism_score": <0-10>}`

// maxStylePenalty caps the trust deduction for the most sensational text.
const maxStylePenalty = 0.4

// StyleEstimator rates free-text input for hype language and converts the
// rating into a trust penalty in [0, 0.4].
type StyleEstimator struct {
	client anthropic.Client
	model  string
}

// NewStyleEstimator creates an estimator backed by the given judge model.
func NewStyleEstimator(client anthropic.Client, judgeModel string) *StyleEstimator {
	return &StyleEstimator{client: client, model: judgeModel}
}

// Estimate returns the sensationalism penalty for text. Any failure is
// non-fatal: the judge being unreachable, a malformed response, or an
// out-of-range score all yield penalty 0.0 so the caller keeps neutral trust.
func (e *StyleEstimator) Estimate(ctx context.Context, text string) float64 {
	if e.client == nil {
		return 0.0
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: 64,
		System:    styleSystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf("Text: %s", text)},
		},
	})
	if err != nil {
		zap.L().Warn("trust: style judgment failed, using zero penalty", zap.Error(err))
		return 0.0
	}

	var parsed struct {
		SensationalismScore int `json:"sensationalism_score"`
	}
	if err := json.Unmarshal([]byte(llmjson.Object(resp.Text())), &parsed); err != nil {
		zap.L().Warn("trust: style response not parseable, using zero penalty",
			zap.String("response", resp.Text()),
			zap.Error(err),
		)
		return 0.0
	}

	if parsed.SensationalismScore < 0 || parsed.SensationalismScore > 10 {
		zap.L().Warn("trust: sensationalism score out of range, using zero penalty",
			zap.Int("score", parsed.SensationalismScore),
		)
		return 0.0
	}

	return float64(parsed.SensationalismScore) / 10 * maxStylePenalty
}

// SignalFromPenalty converts a style penalty into the trust signal consumed
// by the pipeline: neutral trust minus the penalty, floored so some baseline
// trust is always retained.
func SignalFromPenalty(penalty float64) model.TrustSignal {
	signal := float64(model.TrustNeutral) - penalty
	if signal < float64(model.TrustFloor) {
		signal = float64(model.TrustFloor)
	}
	return model.TrustSignal(signal)
}
