package plan

import (
	"encoding/json"
	"fmt"
	"maps"
)

// #region affective-state

// AffectiveState is the simulated emotional state of the user for one request.
type AffectiveState struct {
	Valence float64 `json:"valence"` // -1 to 1 (negative to positive)
	Arousal float64 `json:"arousal"` // 0 to 1 (calm to excited)
	Trust   float64 `json:"trust"`   // 0 to 1 (low to high)
}

// Validate reports the first component outside its range.
func (s AffectiveState) Validate() error {
	if s.Valence < -1 || s.Valence > 1 {
		return fmt.Errorf("valence %.3f outside [-1, 1]", s.Valence)
	}
	if s.Arousal < 0 || s.Arousal > 1 {
		return fmt.Errorf("arousal %.3f outside [0, 1]", s.Arousal)
	}
	if s.Trust < 0 || s.Trust > 1 {
		return fmt.Errorf("trust %.3f outside [0, 1]", s.Trust)
	}
	return nil
}

// Clamp returns a copy with every component forced into range.
func (s AffectiveState) Clamp() AffectiveState {
	return AffectiveState{
		Valence: Clamp(s.Valence, -1, 1),
		Arousal: Clamp(s.Arousal, 0, 1),
		Trust:   Clamp(s.Trust, 0, 1),
	}
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion affective-state

// #region tool-invocation

// ToolInvocation is a synthetic tool call attached to a candidate plan.
type ToolInvocation struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Parameters     map[string]any `json:"parameters"`
	ExpectedOutput string         `json:"expectedOutput"`
}

// #endregion tool-invocation

// #region candidate-plan

// CandidatePlan is one option produced during superposition.
// EthicalApproval is set at generation time and is not rewritten by the
// constraint filter.
type CandidatePlan struct {
	PlanID          string           `json:"planId"`
	Score           float64          `json:"score"`
	ToolCalls       []ToolInvocation `json:"toolCalls"`
	Reasoning       string           `json:"reasoning"`
	EthicalApproval bool             `json:"ethicalApproval"`
}

// Clone deep-copies the plan so later stages can rewrite the score freely.
func (p CandidatePlan) Clone() CandidatePlan {
	out := p
	if p.ToolCalls != nil {
		out.ToolCalls = make([]ToolInvocation, len(p.ToolCalls))
		for i, tc := range p.ToolCalls {
			tc.Parameters = maps.Clone(tc.Parameters)
			out.ToolCalls[i] = tc
		}
	}
	return out
}

// ToolNames returns the tool names in call order.
func (p CandidatePlan) ToolNames() []string {
	names := make([]string, len(p.ToolCalls))
	for i, tc := range p.ToolCalls {
		names[i] = tc.Name
	}
	return names
}

// #endregion candidate-plan

// #region request-response

// PlanningRequest is the single input to a planning cycle.
type PlanningRequest struct {
	UserIntent     string         `json:"userIntent"`
	Context        string         `json:"context"`
	AffectiveState AffectiveState `json:"affectiveState"`
	Timestamp      string         `json:"timestamp"` // ISO-8601
}

// ExecutionStatus is the outcome label of a planning cycle.
type ExecutionStatus string

const (
	StatusReady ExecutionStatus = "ready"
	StatusError ExecutionStatus = "error"
)

// PlanningResponse is the stored result of a planning cycle.
type PlanningResponse struct {
	RequestID       string          `json:"requestId"`
	SelectedPlan    CandidatePlan   `json:"selectedPlan"`
	AllPlans        []CandidatePlan `json:"allPlans"`
	ExecutionStatus ExecutionStatus `json:"executionStatus"`
}

// MarshalJSON keeps allPlans an array even when no candidates survived.
func (r PlanningResponse) MarshalJSON() ([]byte, error) {
	type alias PlanningResponse
	a := alias(r)
	if a.AllPlans == nil {
		a.AllPlans = []CandidatePlan{}
	}
	return json.Marshal(a)
}

// Clone deep-copies the response, including every candidate's tool calls.
func (r PlanningResponse) Clone() PlanningResponse {
	out := r
	out.SelectedPlan = r.SelectedPlan.Clone()
	if r.AllPlans != nil {
		out.AllPlans = make([]CandidatePlan, len(r.AllPlans))
		for i, p := range r.AllPlans {
			out.AllPlans[i] = p.Clone()
		}
	}
	return out
}

// #endregion request-response

// #region outcome

// Outcome is the user-reported result of executing a plan.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
)

// ParseOutcome validates a raw outcome label.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeSuccess, OutcomePartial, OutcomeFailure:
		return o, nil
	}
	return "", fmt.Errorf("unknown outcome %q", s)
}

// #endregion outcome
