package transport

import (
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region messages
// Plan takes plan.PlanningRequest and returns plan.PlanningResponse;
// RecordFeedback takes orchestrator.Feedback; Status returns
// orchestrator.SystemStatus. The remaining methods use the wrappers below.

// ExecutePlanRequest names the plan to execute, either inline or by the id of
// a stored selection. Plan wins when both are set.
type ExecutePlanRequest struct {
	Plan   *plan.CandidatePlan `json:"plan,omitempty"`
	PlanID string              `json:"planId,omitempty"`
}

// FeedbackResponse reports whether the request id was known.
type FeedbackResponse struct {
	Recorded bool `json:"recorded"`
}

// StatusRequest is the empty Status input.
type StatusRequest struct{}

// HistoryRequest asks for the most recent Limit responses. Zero returns
// none; a negative limit uses the server default.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse lists stored responses, oldest first.
type HistoryResponse struct {
	Responses []plan.PlanningResponse `json:"responses"`
}

// ExplainRequest carries the plan to explain.
type ExplainRequest struct {
	Plan plan.CandidatePlan `json:"plan"`
}

// ExplainResponse is the council's explanation.
type ExplainResponse struct {
	Explanation string `json:"explanation"`
}
// #endregion messages
