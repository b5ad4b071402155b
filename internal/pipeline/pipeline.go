// Package pipeline orchestrates the claim verification stages: input
// classification, content fetch, trust rating, term extraction, grounded
// judgment, and scoring. Every stage degrades rather than aborts, so Run
// always produces a complete result.
package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vaibhavmahiwal/medverify/internal/fetch"
	"github.com/vaibhavmahiwal/medverify/internal/model"
	"github.com/vaibhavmahiwal/medverify/internal/scoring"
	"github.com/vaibhavmahiwal/medverify/internal/store"
	"github.com/vaibhavmahiwal/medverify/internal/trust"
)

// Diagnostic notes attached to every result.
const (
	diagnosticNote      = "Full pipeline executed with stability fallbacks."
	diagnosticNoteError = "Grounded judgment failed; result not persisted."
)

// SourceRater maps a domain to a trust signal.
type SourceRater interface {
	Rate(domain string) model.TrustSignal
}

// StyleJudge estimates a sensationalism penalty for free-text input.
type StyleJudge interface {
	Estimate(ctx context.Context, text string) float64
}

// TermExtractor produces focus search terms for a claim text.
type TermExtractor interface {
	Extract(ctx context.Context, text string) []string
}

// Judge renders a grounded verdict for a claim.
type Judge interface {
	Judge(ctx context.Context, claim string, searchTerms []string) model.Verdict
}

// Pipeline runs a claim through every verification stage.
type Pipeline struct {
	sources   SourceRater
	style     StyleJudge
	fetcher   fetch.Fetcher
	extractor TermExtractor
	judge     Judge
	store     store.ResultStore
}

// New creates a Pipeline. The store may be nil, in which case results are
// returned but not persisted.
func New(
	sources SourceRater,
	style StyleJudge,
	fetcher fetch.Fetcher,
	extractor TermExtractor,
	judge Judge,
	st store.ResultStore,
) *Pipeline {
	return &Pipeline{
		sources:   sources,
		style:     style,
		fetcher:   fetcher,
		extractor: extractor,
		judge:     judge,
		store:     st,
	}
}

// Run verifies a single claim, given either a URL or free text. It never
// returns an error: fetch and extraction failures degrade locally, and a
// failed judgment surfaces as an ERROR-labeled result.
func (p *Pipeline) Run(ctx context.Context, rawInput string) *model.CredibilityResult {
	log := zap.L().With(zap.Int("input_len", len(rawInput)))

	sourceOrigin := model.OriginUserText
	trustSignal := model.TrustNeutral
	text := rawInput

	if strings.HasPrefix(rawInput, "http") {
		log.Info("pipeline: verifying URL input")

		fetched := p.fetcher.Fetch(ctx, rawInput)
		if fetch.IsFailure(fetched) {
			// Analyze the URL string itself rather than aborting.
			log.Warn("pipeline: fetch failed, analyzing raw URL string",
				zap.String("detail", fetched))
			text = rawInput
		} else {
			text = fetched
		}

		sourceOrigin = rawInput
		trustSignal = p.sources.Rate(DomainOf(rawInput))
	} else {
		log.Info("pipeline: verifying text input")

		penalty := p.style.Estimate(ctx, rawInput)
		trustSignal = trust.SignalFromPenalty(penalty)
	}

	searchTerms := p.extractor.Extract(ctx, text)
	verdict := p.judge.Judge(ctx, text, searchTerms)
	score := scoring.Score(verdict, trustSignal)

	result := &model.CredibilityResult{
		Score:           score,
		Label:           verdict.Label,
		CitedSource:     verdict.CitedSource,
		Rationale:       verdict.Rationale,
		SourceOrigin:    sourceOrigin,
		ClaimsProcessed: 1,
		ExtractedTerms:  searchTerms,
		DiagnosticNote:  diagnosticNote,
	}
	if verdict.IsError() {
		result.DiagnosticNote = diagnosticNoteError
	}

	p.persist(ctx, result)

	log.Info("pipeline: claim verified",
		zap.String("judgment", string(result.Label)),
		zap.Int("score", result.Score),
		zap.Float64("trust", float64(trustSignal)),
	)
	return result
}

// persist saves the result unless the judgment never completed. Storage
// failures are logged and swallowed; the verdict has already been computed.
func (p *Pipeline) persist(ctx context.Context, result *model.CredibilityResult) {
	if p.store == nil {
		return
	}
	if result.Label == model.VerdictError {
		zap.L().Warn("pipeline: skipping save, judgment failed")
		return
	}
	if err := p.store.Save(ctx, model.RecordFromResult(result)); err != nil {
		zap.L().Warn("pipeline: failed to save result", zap.Error(err))
	}
}

// DomainOf extracts the host portion of a URL string: the substring
// between the scheme separator and the next slash. Inputs without both
// separators come back unchanged.
func DomainOf(rawURL string) string {
	_, rest, found := strings.Cut(rawURL, "//")
	if !found {
		return rawURL
	}
	domain, _, found := strings.Cut(rest, "/")
	if !found {
		return rawURL
	}
	return domain
}
