package ethics

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region script-rule

var scriptFileOptions = &syntax.FileOptions{}

// maxScriptSteps bounds a single rule evaluation.
const maxScriptSteps = 10000

// ScriptRule is a RulePredicate written as a Starlark boolean expression.
// The expression sees reasoning (str), tool_count (int), tool_names (list of
// str) and score (float).
type ScriptRule struct {
	name string
	expr string
}

// NewScriptRule parses expr once to reject syntax errors early.
func NewScriptRule(name, expr string) (*ScriptRule, error) {
	if _, err := scriptFileOptions.ParseExpr(name, expr, 0); err != nil {
		return nil, fmt.Errorf("parse rule %s: %w", name, err)
	}
	return &ScriptRule{name: name, expr: expr}, nil
}

// Check implements RulePredicate. A non-bool result is an error.
func (r *ScriptRule) Check(p plan.CandidatePlan) (bool, error) {
	names := make([]starlark.Value, len(p.ToolCalls))
	for i, n := range p.ToolNames() {
		names[i] = starlark.String(n)
	}
	env := starlark.StringDict{
		"reasoning":  starlark.String(p.Reasoning),
		"tool_count": starlark.MakeInt(len(p.ToolCalls)),
		"tool_names": starlark.NewList(names),
		"score":      starlark.Float(p.Score),
	}

	thread := &starlark.Thread{Name: "rule:" + r.name}
	thread.SetMaxExecutionSteps(maxScriptSteps)

	v, err := starlark.EvalOptions(scriptFileOptions, thread, r.name, r.expr, env)
	if err != nil {
		return false, fmt.Errorf("eval rule %s: %w", r.name, err)
	}
	b, ok := v.(starlark.Bool)
	if !ok {
		return false, fmt.Errorf("rule %s returned %s, want bool", r.name, v.Type())
	}
	return bool(b), nil
}

// #endregion script-rule

// #region script-constraint

// ScriptSpec is the declarative form of a script constraint, as loaded from config.
type ScriptSpec struct {
	ID          string
	Name        string
	Description string
	Severity    string
	Expr        string
}

// NewScriptConstraint compiles a ScriptSpec into a Constraint.
func NewScriptConstraint(spec ScriptSpec) (Constraint, error) {
	sev, err := ParseSeverity(spec.Severity)
	if err != nil {
		return Constraint{}, fmt.Errorf("constraint %s: %w", spec.ID, err)
	}
	rule, err := NewScriptRule(spec.ID, spec.Expr)
	if err != nil {
		return Constraint{}, err
	}
	name := spec.Name
	if name == "" {
		name = spec.ID
	}
	return Constraint{
		ID:          spec.ID,
		Name:        name,
		Description: spec.Description,
		Severity:    sev,
		Rule:        rule,
	}, nil
}

// #endregion script-constraint
