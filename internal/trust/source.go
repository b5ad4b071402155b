// Package trust derives the [0,1] trust signal for a claim's source: either
// rule-based domain rating for URLs, or an LLM style assessment for free text.
package trust

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

// defaultHighAuthority matches government health agencies, major medical
// journals and databases, and .gov/.edu suffixes.
var defaultHighAuthority = []string{
	"nih.gov",
	"who.int",
	"cdc.gov",
	"mayoclinic.org",
	"pubmed",
	"nejm",
	"thelancet",
	"cochrane",
	".gov",
	".edu",
}

// defaultLowAuthority matches major social platforms and generic
// remedy-blog name fragments.
var defaultLowAuthority = []string{
	"facebook",
	"twitter",
	"instagram",
	"tiktok",
	"blogspot",
	"remedies-today",
	"home-remedies",
	"natural-cure",
	"naturalcure",
}

// PatternSet holds the curated domain fragments for one authority tier.
type PatternSet struct {
	HighAuthority []string `yaml:"high_authority"`
	LowAuthority  []string `yaml:"low_authority"`
}

// SourceRater maps a domain string to a trust signal using ordered
// pattern rules. High-authority patterns win over low-authority ones.
type SourceRater struct {
	high []string
	low  []string
}

// NewSourceRater creates a rater with the built-in pattern sets.
func NewSourceRater() *SourceRater {
	return &SourceRater{high: defaultHighAuthority, low: defaultLowAuthority}
}

// NewSourceRaterFromFile loads pattern sets from a YAML file. Either list
// may be omitted, in which case the built-in set is kept.
func NewSourceRaterFromFile(path string) (*SourceRater, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "trust: read pattern file %s", path)
	}

	var ps PatternSet
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, eris.Wrapf(err, "trust: parse pattern file %s", path)
	}

	r := NewSourceRater()
	if len(ps.HighAuthority) > 0 {
		r.high = ps.HighAuthority
	}
	if len(ps.LowAuthority) > 0 {
		r.low = ps.LowAuthority
	}
	return r, nil
}

// Rate assigns a trust signal to a source domain. Matching is
// case-insensitive substring matching; first matching tier wins and the
// rater always returns a value.
func (r *SourceRater) Rate(domain string) model.TrustSignal {
	d := strings.ToLower(domain)

	for _, p := range r.high {
		if strings.Contains(d, p) {
			return model.TrustAuthoritative
		}
	}
	for _, p := range r.low {
		if strings.Contains(d, p) {
			return model.TrustUnreliable
		}
	}
	return model.TrustNeutral
}
