package model

import "time"

// VerdictLabel classifies a medical claim against retrieved evidence.
type VerdictLabel string

const (
	// VerdictSupported means current evidence backs the claim.
	VerdictSupported VerdictLabel = "Supported"
	// VerdictContradicted means current evidence refutes the claim.
	VerdictContradicted VerdictLabel = "Contradicted"
	// VerdictUnsupported means no decisive evidence was found either way.
	VerdictUnsupported VerdictLabel = "Unsupported/Neutral"
	// VerdictError marks a judgment that never completed (API or schema
	// failure). Downstream code must branch on the label, never on the score.
	VerdictError VerdictLabel = "ERROR"
)

// AllVerdictLabels returns every label the grounded judge may emit.
// VerdictError is excluded: it is produced locally, never by the model.
func AllVerdictLabels() []VerdictLabel {
	return []VerdictLabel{VerdictSupported, VerdictContradicted, VerdictUnsupported}
}

// Valid reports whether l is a label the grounded judge is allowed to emit.
func (l VerdictLabel) Valid() bool {
	for _, v := range AllVerdictLabels() {
		if l == v {
			return true
		}
	}
	return false
}

// TrustSignal is a confidence score in [0,1] for the source or register of
// an input: 0.9 authoritative domain, 0.5 unknown, 0.2 known-unreliable,
// 0.1 floor for heavily sensational text.
type TrustSignal float64

const (
	// TrustAuthoritative is assigned to curated high-authority domains.
	TrustAuthoritative TrustSignal = 0.9
	// TrustNeutral is the default for unknown domains and plain text.
	TrustNeutral TrustSignal = 0.5
	// TrustUnreliable is assigned to curated low-authority domains.
	TrustUnreliable TrustSignal = 0.2
	// TrustFloor is the minimum signal after any style penalty.
	TrustFloor TrustSignal = 0.1
)

// Verdict is the structured output of the grounded judgment call.
// It is built once and never mutated; BaseScore is meaningful only together
// with the Label that produced it.
type Verdict struct {
	Label       VerdictLabel `json:"verdict"`
	CitedSource string       `json:"trusted_source"`
	Rationale   string       `json:"reasoning"`
	BaseScore   int          `json:"score_base"`
}

// IsError reports whether the judgment failed rather than classified.
func (v Verdict) IsError() bool {
	return v.Label == VerdictError
}

// Origin tags for inputs that did not arrive as a URL.
const (
	// OriginUserText marks free-text input whose trust came from the
	// linguistic style assessment rather than a source domain.
	OriginUserText = "User-submitted Text (Linguistically Assessed)"
)

// CredibilityResult is the externally visible unit produced by the pipeline.
type CredibilityResult struct {
	Score           int          `json:"credibility_score"`
	Label           VerdictLabel `json:"llm_judgment"`
	CitedSource     string       `json:"trusted_reference"`
	Rationale       string       `json:"reasoning"`
	SourceOrigin    string       `json:"source_origin"`
	ClaimsProcessed int          `json:"claims_processed"`
	ExtractedTerms  []string     `json:"extracted_terms"`
	DiagnosticNote  string       `json:"debug_message"`
}

// ClaimRecord is the persisted form of a CredibilityResult. The store
// assigns Timestamp on save; the internal row id is never exposed.
type ClaimRecord struct {
	Timestamp      time.Time    `json:"timestamp"`
	SourceOrigin   string       `json:"original_input"`
	Score          int          `json:"credibility_score"`
	Label          VerdictLabel `json:"llm_judgment"`
	CitedSource    string       `json:"trusted_reference"`
	Rationale      string       `json:"reasoning"`
	ExtractedTerms []string     `json:"extracted_terms"`
	DiagnosticNote string       `json:"debug_message"`
}

// RecordFromResult maps a pipeline result onto its persisted shape.
func RecordFromResult(r *CredibilityResult) ClaimRecord {
	return ClaimRecord{
		SourceOrigin:   r.SourceOrigin,
		Score:          r.Score,
		Label:          r.Label,
		CitedSource:    r.CitedSource,
		Rationale:      r.Rationale,
		ExtractedTerms: r.ExtractedTerms,
		DiagnosticNote: r.DiagnosticNote,
	}
}
