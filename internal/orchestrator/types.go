package orchestrator

// #region imports
import (
	"context"
	"time"

	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #endregion

// #region execution

// ToolResult is the simulated result of one tool invocation.
type ToolResult struct {
	Tool   string `json:"tool"`
	Status string `json:"status"`
	Output string `json:"output"`
}

// ExecutionResult reports a simulated plan execution, keyed by tool invocation id.
type ExecutionResult struct {
	Success   bool                  `json:"success"`
	Results   map[string]ToolResult `json:"results"`
	Timestamp string                `json:"timestamp"`
}

// #endregion

// #region feedback

// Feedback is what a caller reports after acting on a plan.
type Feedback struct {
	RequestID string               `json:"requestId"`
	Outcome   plan.Outcome         `json:"outcome"`
	Comment   string               `json:"userFeedback,omitempty"`
	NewState  *plan.AffectiveState `json:"newAffectiveState,omitempty"`
}

// FeedbackRecord is the observed form of Feedback handed to the Recorder.
type FeedbackRecord struct {
	RequestID string
	PlanID    string
	Strategy  string
	Outcome   plan.Outcome
	Comment   string
	Delta     *float64 // affective delta; nil when no new state was reported
	CreatedAt time.Time
}

// #endregion

// #region status

// SystemStatus summarizes the orchestrator for dashboards.
type SystemStatus struct {
	TotalRequests     int    `json:"totalRequests"`
	ConstraintsActive int    `json:"constraintsActive"`
	Uptime            string `json:"uptime"`
}

// #endregion

// #region interfaces

// Recorder receives every stored response and feedback record, e.g. to
// persist them. Errors are logged by the orchestrator and never surface to
// planning callers.
type Recorder interface {
	RecordResponse(ctx context.Context, req plan.PlanningRequest, resp plan.PlanningResponse, verdict ethics.Verdict) error
	RecordFeedback(ctx context.Context, rec FeedbackRecord) error
}

// #endregion
