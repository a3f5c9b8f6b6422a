package ethics

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// ErrNoCandidates is returned by Collapse when given nothing to choose from.
var ErrNoCandidates = errors.New("no candidate plans to collapse")

// #region council
// Council validates plans against constraints and collapses a superposition
// into a single plan. The constraint list is append-only.
type Council struct {
	mu          sync.RWMutex
	constraints []Constraint
	logger      *zap.Logger
}

// NewCouncil creates a council seeded with DefaultConstraints followed by extra.
// logger may be nil.
func NewCouncil(logger *zap.Logger, extra ...Constraint) *Council {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Council{logger: logger}
	c.constraints = append(DefaultConstraints(), extra...)
	return c
}

// AddConstraint appends a constraint. It takes part in every later evaluation.
func (c *Council) AddConstraint(con Constraint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constraints = append(c.constraints, con)
}

// Constraints returns a copy of the active constraints.
func (c *Council) Constraints() []Constraint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Constraint, len(c.constraints))
	copy(out, c.constraints)
	return out
}

// #endregion council

// #region diagnose
// Diagnose evaluates every constraint against p. Critical failures veto; more
// than one high failure vetoes; medium and low results are recorded as
// advisories only.
func (c *Council) Diagnose(p plan.CandidatePlan) (Verdict, error) {
	return evaluate(c.Constraints(), p)
}

func evaluate(constraints []Constraint, p plan.CandidatePlan) (Verdict, error) {
	v := Verdict{Total: len(constraints)}
	for _, con := range constraints {
		ok, err := con.Rule.Check(p)
		if err != nil {
			return Verdict{}, fmt.Errorf("constraint %s: %w", con.ID, err)
		}
		if ok {
			v.Passed++
			continue
		}
		f := Finding{
			ConstraintID: con.ID,
			Severity:     con.Severity,
			Reason:       fmt.Sprintf("failed %s constraint: %s", con.Severity, con.Name),
		}
		switch con.Severity {
		case SeverityCritical:
			v.Critical = append(v.Critical, f)
		case SeverityHigh:
			v.High = append(v.High, f)
		default:
			v.Advisories = append(v.Advisories, f)
		}
	}

	if MentionsReversible(p) {
		v.Advisories = append(v.Advisories, Finding{
			ConstraintID: "reversibility",
			Severity:     SeverityMedium,
			Reason:       "plan mentions a reversible approach",
		})
	}

	v.Admissible = len(v.Critical) == 0 && len(v.High) <= 1
	return v, nil
}

// #endregion diagnose

// #region collapse
// Collapse selects the admissible plan with the strictly highest score; on ties
// the earlier plan wins. When nothing is admissible it falls back to the
// highest-scoring plan of the unfiltered input and marks the verdict.
func (c *Council) Collapse(plans []plan.CandidatePlan) (plan.CandidatePlan, Verdict, error) {
	if len(plans) == 0 {
		return plan.CandidatePlan{}, Verdict{}, ErrNoCandidates
	}

	constraints := c.Constraints()
	verdicts := make([]Verdict, len(plans))
	best := -1
	for i, p := range plans {
		v, err := evaluate(constraints, p)
		if err != nil {
			return plan.CandidatePlan{}, Verdict{}, fmt.Errorf("evaluate plan %s: %w", p.PlanID, err)
		}
		verdicts[i] = v
		for _, f := range v.Critical {
			c.logger.Debug("plan failed critical constraint",
				zap.String("plan_id", p.PlanID), zap.String("constraint", f.ConstraintID))
		}
		if !v.Admissible {
			continue
		}
		if best < 0 || p.Score > plans[best].Score {
			best = i
		}
	}

	if best >= 0 {
		return plans[best], verdicts[best], nil
	}

	best = 0
	for i := 1; i < len(plans); i++ {
		if plans[i].Score > plans[best].Score {
			best = i
		}
	}
	v := verdicts[best]
	v.Fallback = true
	c.logger.Warn("no ethically valid plans found, returning highest-scored plan anyway",
		zap.String("plan_id", plans[best].PlanID),
		zap.Int("candidates", len(plans)),
		zap.Float64("score", plans[best].Score),
	)
	return plans[best], v, nil
}

// #endregion collapse

// #region explain
// Explain summarizes how many constraints the plan passes, across all
// severities. A constraint whose rule errors counts as not passed.
func (c *Council) Explain(p plan.CandidatePlan) string {
	constraints := c.Constraints()
	passed := 0
	for _, con := range constraints {
		if ok, err := con.Rule.Check(p); err == nil && ok {
			passed++
		}
	}
	return fmt.Sprintf("Plan selected based on ethical validation. Passed %d/%d constraints with score %.1f%%",
		passed, len(constraints), p.Score*100)
}

// #endregion explain
