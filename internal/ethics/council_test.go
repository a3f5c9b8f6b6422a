package ethics

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

const cleanReasoning = "Strategy: Conservative. Approach: Take a cautious approach"

func makePlan(id string, score float64, reasoning string, tools int) plan.CandidatePlan {
	p := plan.CandidatePlan{PlanID: id, Score: score, Reasoning: reasoning, EthicalApproval: true}
	for i := 0; i < tools; i++ {
		p.ToolCalls = append(p.ToolCalls, plan.ToolInvocation{Name: "ActionTool"})
	}
	return p
}

func TestDiagnose(t *testing.T) {
	c := NewCouncil(nil)
	tests := []struct {
		name           string
		plan           plan.CandidatePlan
		wantAdmissible bool
		wantCritical   []string
		wantHigh       []string
	}{
		{"clean", makePlan("a", 0.5, cleanReasoning, 1), true, nil, nil},
		{"harm", makePlan("b", 0.5, "We will DELETE PERMANENTLY the archive", 1), false, []string{"no-harm"}, nil},
		{"privacy", makePlan("c", 0.5, "first we expose credentials to the team", 1), false, []string{"privacy"}, nil},
		{"harm-and-privacy", makePlan("d", 0.5, "corrupt data then log passwords", 1), false, []string{"no-harm", "privacy"}, nil},
		{"one-high-tolerated", makePlan("e", 0.5, "short", 1), true, nil, []string{"transparency"}},
		{"two-high-veto", makePlan("f", 0.5, "force action", 6), false, nil, []string{"transparency", "proportionality", "autonomy"}},
		{"autonomy-only", makePlan("g", 0.5, cleanReasoning+" and bypass confirmation", 2), true, nil, []string{"autonomy"}},
		{"proportionality-boundary", makePlan("h", 0.5, cleanReasoning, 5), true, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Diagnose(tt.plan)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdmissible, v.Admissible)
			assert.Equal(t, tt.wantCritical, findingIDs(v.Critical))
			assert.Equal(t, tt.wantHigh, findingIDs(v.High))
			assert.Equal(t, 6, v.Total)
		})
	}
}

func findingIDs(fs []Finding) []string {
	var ids []string
	for _, f := range fs {
		ids = append(ids, f.ConstraintID)
	}
	return ids
}

func TestDiagnose_ReversibilityIsAdvisory(t *testing.T) {
	c := NewCouncil(nil)
	v, err := c.Diagnose(makePlan("a", 0.5, cleanReasoning+" with a backup first", 1))
	require.NoError(t, err)
	assert.True(t, v.Admissible)
	require.Len(t, v.Advisories, 1)
	assert.Equal(t, "reversibility", v.Advisories[0].ConstraintID)
	assert.Equal(t, 6, v.Passed)
}

func TestDiagnose_MediumAndLowNeverGate(t *testing.T) {
	c := NewCouncil(nil,
		Constraint{ID: "m", Severity: SeverityMedium, Rule: PredicateFunc(func(plan.CandidatePlan) bool { return false })},
		Constraint{ID: "l", Severity: SeverityLow, Rule: PredicateFunc(func(plan.CandidatePlan) bool { return false })},
	)
	v, err := c.Diagnose(makePlan("a", 0.5, cleanReasoning, 1))
	require.NoError(t, err)
	assert.True(t, v.Admissible)
	assert.Equal(t, []string{"m", "l"}, findingIDs(v.Advisories))
}

func TestCollapse_PicksHighestAdmissible(t *testing.T) {
	c := NewCouncil(nil)
	plans := []plan.CandidatePlan{
		makePlan("harmful", 0.99, "lock out the user", 1),
		makePlan("ok-low", 0.40, cleanReasoning, 1),
		makePlan("ok-high", 0.70, cleanReasoning, 1),
	}
	got, v, err := c.Collapse(plans)
	require.NoError(t, err)
	assert.Equal(t, "ok-high", got.PlanID)
	assert.False(t, v.Fallback)
	assert.True(t, v.Admissible)
	assert.Empty(t, v.Critical)
}

func TestCollapse_TiesKeepFirst(t *testing.T) {
	c := NewCouncil(nil)
	plans := []plan.CandidatePlan{
		makePlan("first", 0.8, cleanReasoning, 1),
		makePlan("second", 0.8, cleanReasoning, 1),
	}
	got, _, err := c.Collapse(plans)
	require.NoError(t, err)
	assert.Equal(t, "first", got.PlanID)
}

func TestCollapse_FallbackIsReported(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := NewCouncil(zap.New(core))

	plans := []plan.CandidatePlan{
		makePlan("a", 0.3, "we will delete permanently", 1),
		makePlan("b", 0.9, "we will delete permanently", 1),
		makePlan("c", 0.9, "we will delete permanently", 1),
	}
	got, v, err := c.Collapse(plans)
	require.NoError(t, err)
	assert.Equal(t, "b", got.PlanID)
	assert.True(t, v.Fallback)
	assert.False(t, v.Admissible)
	assert.Equal(t, 1, logs.FilterMessageSnippet("no ethically valid plans").Len())
}

func TestCollapse_DoesNotRewriteEthicalApproval(t *testing.T) {
	c := NewCouncil(nil)
	got, v, err := c.Collapse([]plan.CandidatePlan{makePlan("a", 0.5, "disable safety", 1)})
	require.NoError(t, err)
	assert.True(t, v.Fallback)
	assert.True(t, got.EthicalApproval)
}

func TestCollapse_Empty(t *testing.T) {
	_, _, err := NewCouncil(nil).Collapse(nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

type failingRule struct{}

func (failingRule) Check(plan.CandidatePlan) (bool, error) { return false, errors.New("boom") }

func TestCollapse_RuleErrorPropagates(t *testing.T) {
	c := NewCouncil(nil, Constraint{ID: "broken", Severity: SeverityLow, Rule: failingRule{}})
	_, _, err := c.Collapse([]plan.CandidatePlan{makePlan("a", 0.5, cleanReasoning, 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestAddConstraint_AppliesToLaterCollapses(t *testing.T) {
	c := NewCouncil(nil)
	plans := []plan.CandidatePlan{
		makePlan("analyzer", 0.9, cleanReasoning, 1),
		makePlan("plain", 0.6, cleanReasoning+" plain", 1),
	}
	got, _, err := c.Collapse(plans)
	require.NoError(t, err)
	assert.Equal(t, "analyzer", got.PlanID)

	c.AddConstraint(Constraint{
		ID:       "must-be-plain",
		Severity: SeverityCritical,
		Rule: PredicateFunc(func(p plan.CandidatePlan) bool {
			return strings.Contains(p.Reasoning, "plain")
		}),
	})
	got, _, err = c.Collapse(plans)
	require.NoError(t, err)
	assert.Equal(t, "plain", got.PlanID)
	assert.Len(t, c.Constraints(), 7)
}

func TestExplain(t *testing.T) {
	c := NewCouncil(nil)
	p := makePlan("a", 0.8734, "short", 1)
	first := c.Explain(p)
	assert.Equal(t, "Plan selected based on ethical validation. Passed 5/6 constraints with score 87.3%", first)
	assert.Equal(t, first, c.Explain(p))
}

func TestExplain_CountsAdvisoryConstraints(t *testing.T) {
	c := NewCouncil(nil, Constraint{ID: "low", Severity: SeverityLow, Rule: PredicateFunc(func(plan.CandidatePlan) bool { return false })})
	got := c.Explain(makePlan("a", 0.5, cleanReasoning, 1))
	assert.Contains(t, got, "Passed 6/7 constraints")
	assert.Contains(t, got, "50.0%")
}

func TestCouncil_ConcurrentAddAndCollapse(t *testing.T) {
	c := NewCouncil(nil)
	plans := []plan.CandidatePlan{makePlan("a", 0.5, cleanReasoning, 1)}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.AddConstraint(Constraint{ID: "noop", Severity: SeverityLow, Rule: PredicateFunc(func(plan.CandidatePlan) bool { return true })})
		}()
		go func() {
			defer wg.Done()
			_, _, err := c.Collapse(plans)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, c.Constraints(), 14)
}

func TestParseSeverity(t *testing.T) {
	for _, s := range []string{"critical", "high", "medium", "low"} {
		_, err := ParseSeverity(s)
		assert.NoError(t, err)
	}
	_, err := ParseSeverity("severe")
	assert.Error(t, err)
}
