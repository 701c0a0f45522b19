package judge

import (
	"strings"

	"github.com/outpost-labs/swarmgate/internal/config"
)

// SafetyStatus is the outcome of the content safety filter.
type SafetyStatus string

const (
	// SafetySafe means no filter matched.
	SafetySafe SafetyStatus = "safe"

	// SafetyUnsafe means a banned keyword matched; the content must not be
	// published.
	SafetyUnsafe SafetyStatus = "unsafe"

	// SafetyNeedsReview means an auto-escalate pattern or sensitive topic
	// matched; a human should look before anything is published.
	SafetyNeedsReview SafetyStatus = "needs_review"
)

// Score maps the status to its contribution to the confidence score.
func (s SafetyStatus) Score() float64 {
	switch s {
	case SafetySafe:
		return 1.0
	case SafetyNeedsReview:
		return 0.6
	default:
		return 0.0
	}
}

// SafetyFilter runs ordered substring checks against content. Matching is
// case-insensitive. Filter classes are evaluated in fixed severity order:
// banned keywords, then auto-escalate patterns, then sensitive topics; the
// first match wins.
type SafetyFilter struct {
	banned    []string
	escalate  []string
	sensitive []string
}

// NewSafetyFilter builds a filter from the configured term lists.
func NewSafetyFilter(cfg config.Safety) *SafetyFilter {
	return &SafetyFilter{
		banned:    lowerAll(cfg.BannedKeywords),
		escalate:  lowerAll(cfg.AutoEscalatePatterns),
		sensitive: lowerAll(cfg.SensitiveTopics),
	}
}

// Check classifies content and returns the matched term, if any.
func (f *SafetyFilter) Check(content string) (SafetyStatus, string) {
	lower := strings.ToLower(content)

	for _, term := range f.banned {
		if strings.Contains(lower, term) {
			return SafetyUnsafe, term
		}
	}
	for _, term := range f.escalate {
		if strings.Contains(lower, term) {
			return SafetyNeedsReview, term
		}
	}
	for _, term := range f.sensitive {
		if strings.Contains(lower, term) {
			return SafetyNeedsReview, term
		}
	}
	return SafetySafe, ""
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		out = append(out, strings.ToLower(t))
	}
	return out
}
