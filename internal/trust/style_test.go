package trust

import (
	"context"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhavmahiwal/medverify/internal/model"
	"github.com/vaibhavmahiwal/medverify/pkg/anthropic"
)

// fakeJudge returns a canned response or error for every CreateMessage call.
type fakeJudge struct {
	text string
	err  error

	lastReq anthropic.MessageRequest
}

func (f *fakeJudge) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
	}, nil
}

func TestEstimatePenaltyScale(t *testing.T) {
	// penalty == (s/10)*0.4 for every score the judge can return.
	for s := 0; s <= 10; s++ {
		judge := &fakeJudge{text: fmt.Sprintf(`{"sensationalism_score": %d}`, s)}
		e := NewStyleEstimator(judge, "claude-haiku-4-5-20251001")

		penalty := e.Estimate(context.Background(), "some claim text")
		assert.InDelta(t, float64(s)/10*0.4, penalty, 1e-9, "score %d", s)
		assert.GreaterOrEqual(t, penalty, 0.0)
		assert.LessOrEqual(t, penalty, 0.4)
	}
}

func TestEstimateMonotonic(t *testing.T) {
	prev := -1.0
	for s := 0; s <= 10; s++ {
		judge := &fakeJudge{text: fmt.Sprintf(`{"sensationalism_score": %d}`, s)}
		e := NewStyleEstimator(judge, "m")
		penalty := e.Estimate(context.Background(), "text")
		assert.GreaterOrEqual(t, penalty, prev)
		prev = penalty
	}
}

func TestEstimateFailuresReturnZeroPenalty(t *testing.T) {
	tests := []struct {
		name  string
		judge *fakeJudge
	}{
		{"call_error", &fakeJudge{err: eris.New("api timeout")}},
		{"malformed_json", &fakeJudge{text: "not json at all"}},
		{"wrong_schema", &fakeJudge{text: `{"something_else": 3}`}},
		{"out_of_range_high", &fakeJudge{text: `{"sensationalism_score": 42}`}},
		{"out_of_range_negative", &fakeJudge{text: `{"sensationalism_score": -1}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewStyleEstimator(tt.judge, "m")
			assert.Equal(t, 0.0, e.Estimate(context.Background(), "text"))
		})
	}

	// wrong_schema note: a missing field decodes to 0, which maps to
	// penalty 0.0 anyway, keeping the failure policy consistent.
}

func TestEstimateNilClient(t *testing.T) {
	e := NewStyleEstimator(nil, "m")
	assert.Equal(t, 0.0, e.Estimate(context.Background(), "text"))
}

func TestEstimateHandlesFencedResponse(t *testing.T) {
	judge := &fakeJudge{text: "```json\n{\"sensationalism_score\": 5}\n```"}
	e := NewStyleEstimator(judge, "m")
	assert.InDelta(t, 0.2, e.Estimate(context.Background(), "text"), 1e-9)
}

func TestEstimateSendsClaimText(t *testing.T) {
	judge := &fakeJudge{text: `{"sensationalism_score": 0}`}
	e := NewStyleEstimator(judge, "judge-model")
	e.Estimate(context.Background(), "turmeric cures cancer")

	require.Len(t, judge.lastReq.Messages, 1)
	assert.Contains(t, judge.lastReq.Messages[0].Content, "turmeric cures cancer")
	assert.Equal(t, "judge-model", judge.lastReq.Model)
	assert.NotEmpty(t, judge.lastReq.System)
}

func TestSignalFromPenalty(t *testing.T) {
	tests := []struct {
		penalty float64
		want    model.TrustSignal
	}{
		{0.0, 0.5},
		{0.2, model.TrustSignal(0.3)},
		{0.4, model.TrustFloor},
		{0.39, model.TrustSignal(0.11)},
	}
	for _, tt := range tests {
		assert.InDelta(t, float64(tt.want), float64(SignalFromPenalty(tt.penalty)), 1e-9)
	}
}

func TestSignalFromPenaltyNeverBelowFloor(t *testing.T) {
	for p := 0.0; p <= 0.4; p += 0.01 {
		sig := SignalFromPenalty(p)
		assert.GreaterOrEqual(t, float64(sig), float64(model.TrustFloor))
	}
}
