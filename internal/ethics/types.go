package ethics

import (
	"fmt"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region severity
// Severity ranks how strongly a constraint gates admissibility.
type Severity string

const (
	SeverityCritical Severity = "critical" // any failure vetoes the plan
	SeverityHigh     Severity = "high"     // at most one failure tolerated
	SeverityMedium   Severity = "medium"   // advisory only
	SeverityLow      Severity = "low"      // advisory only
)

// ParseSeverity validates a severity label.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// #endregion severity

// #region rule
// RulePredicate decides whether a plan satisfies a constraint.
type RulePredicate interface {
	Check(p plan.CandidatePlan) (bool, error)
}

// PredicateFunc adapts a pure function to RulePredicate.
type PredicateFunc func(p plan.CandidatePlan) bool

// Check implements RulePredicate.
func (f PredicateFunc) Check(p plan.CandidatePlan) (bool, error) {
	return f(p), nil
}

// #endregion rule

// #region constraint
// Constraint is a named, severity-tagged predicate over candidate plans.
type Constraint struct {
	ID          string
	Name        string
	Description string
	Severity    Severity
	Rule        RulePredicate
}

// #endregion constraint

// #region verdict
// Finding records one constraint that did not pass, or an advisory note.
type Finding struct {
	ConstraintID string   `json:"constraintId"`
	Severity     Severity `json:"severity"`
	Reason       string   `json:"reason"`
}

// Verdict is the council's judgement of a single plan, or of a collapse.
type Verdict struct {
	Admissible bool      `json:"admissible"`
	Critical   []Finding `json:"critical,omitempty"`   // failed critical constraints
	High       []Finding `json:"high,omitempty"`       // failed high constraints
	Advisories []Finding `json:"advisories,omitempty"` // medium/low failures and informational signals; never gating
	Fallback   bool      `json:"fallback"`             // set by Collapse when no plan was admissible
	Passed     int       `json:"passed"`               // constraints passed, all severities
	Total      int       `json:"total"`
}

// #endregion verdict
