// Package scoring blends the grounded verdict's base score with the source
// trust signal into the final 0-100 credibility score.
package scoring

import (
	"math"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

// contradictionWeight scales how hard low trust discounts a Contradicted
// verdict: penalty = (1 - trust) * contradictionWeight.
const contradictionWeight = 40.0

// contradictedFloor keeps contradicted scores on a meaningful scale even
// when the source is maximally untrusted.
const contradictedFloor = 10.0

// Score combines a verdict with the trust signal. Only the Contradicted
// branch is trust-modulated: discounting supporting evidence from low-trust
// sources as well would double-penalize them. Error verdicts pass their
// zero base through; callers interpret those via the label, not the score.
// Pure function: identical inputs always yield identical output.
func Score(v model.Verdict, trust model.TrustSignal) int {
	raw := float64(v.BaseScore)

	if v.Label == model.VerdictContradicted {
		penalty := (1 - float64(trust)) * contradictionWeight
		raw = math.Max(contradictedFloor, raw-penalty)
	}

	final := math.Round(raw)
	if final < 0 {
		final = 0
	}
	if final > 100 {
		final = 100
	}
	return int(final)
}
