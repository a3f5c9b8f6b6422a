package ethics

import (
	"strings"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region keywords

var harmKeywords = []string{
	"delete permanently",
	"corrupt data",
	"lock out",
	"disable safety",
}

var privacyViolations = []string{
	"share personal data",
	"expose credentials",
	"log passwords",
}

var autonomyViolations = []string{
	"force action",
	"override choice",
	"bypass confirmation",
}

var reversibleKeywords = []string{
	"backup",
	"temporary",
	"draft",
	"preview",
}

// #endregion keywords

// #region defaults

// DefaultConstraints returns the built-in constraint set in evaluation order.
func DefaultConstraints() []Constraint {
	return []Constraint{
		{
			ID:          "no-harm",
			Name:        "No Harm Principle",
			Description: "Plans must not cause physical or psychological harm",
			Severity:    SeverityCritical,
			Rule:        reasoningExcludes(harmKeywords),
		},
		{
			ID:          "privacy",
			Name:        "Privacy Protection",
			Description: "Plans must protect user privacy and data",
			Severity:    SeverityCritical,
			Rule:        reasoningExcludes(privacyViolations),
		},
		{
			ID:          "transparency",
			Name:        "Transparency Requirement",
			Description: "Plans should be explainable and transparent",
			Severity:    SeverityHigh,
			Rule: PredicateFunc(func(p plan.CandidatePlan) bool {
				return len(p.Reasoning) > 20
			}),
		},
		{
			ID:          "proportionality",
			Name:        "Proportionality Principle",
			Description: "Plan complexity must match problem scale",
			Severity:    SeverityHigh,
			Rule: PredicateFunc(func(p plan.CandidatePlan) bool {
				return len(p.ToolCalls) <= 5
			}),
		},
		{
			ID:          "reversibility",
			Name:        "Reversibility Preference",
			Description: "Prefer reversible actions over permanent ones",
			Severity:    SeverityMedium,
			// Preferred, not required. Diagnose surfaces MentionsReversible instead.
			Rule: PredicateFunc(func(plan.CandidatePlan) bool { return true }),
		},
		{
			ID:          "autonomy",
			Name:        "User Autonomy",
			Description: "Plans should respect and enhance user autonomy",
			Severity:    SeverityHigh,
			Rule:        reasoningExcludes(autonomyViolations),
		},
	}
}

// MentionsReversible reports whether the plan's reasoning names a reversible approach.
func MentionsReversible(p plan.CandidatePlan) bool {
	return containsAny(strings.ToLower(p.Reasoning), reversibleKeywords)
}

// #endregion defaults

// #region helpers

func reasoningExcludes(phrases []string) PredicateFunc {
	return func(p plan.CandidatePlan) bool {
		return !containsAny(strings.ToLower(p.Reasoning), phrases)
	}
}

func containsAny(lower string, phrases []string) bool {
	for _, ph := range phrases {
		if strings.Contains(lower, ph) {
			return true
		}
	}
	return false
}

// #endregion helpers
