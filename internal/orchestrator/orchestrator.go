package orchestrator

// #region imports
import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/or4cl3-ai-1/Chatron9/internal/affect"
	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/generator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #endregion

// DefaultFanOut is the number of candidates generated per request.
const DefaultFanOut = 5

// DefaultHistoryLimit is used by History when limit < 0.
const DefaultHistoryLimit = 10

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// #region options

// Options wires an Orchestrator. Zero fields take defaults.
type Options struct {
	Generator       *generator.Generator
	Scorer          *affect.Scorer
	Council         *ethics.Council
	Recorder        Recorder // optional
	Logger          *zap.Logger
	FanOut          int
	HistoryCapacity int
	Now             func() time.Time
	NewID           func() string
}

// #endregion

// #region orchestrator-struct

// Orchestrator runs the planning cycle: generate, score, sort, collapse.
// It is safe for concurrent use.
type Orchestrator struct {
	generator *generator.Generator
	scorer    *affect.Scorer
	council   *ethics.Council
	recorder  Recorder
	logger    *zap.Logger
	fanOut    int
	history   *responseLog
	now       func() time.Time
	newID     func() string
}

// #endregion

// #region constructor

// NewOrchestrator creates a fully wired orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		generator: opts.Generator,
		scorer:    opts.Scorer,
		council:   opts.Council,
		recorder:  opts.Recorder,
		logger:    opts.Logger,
		fanOut:    opts.FanOut,
		history:   newResponseLog(opts.HistoryCapacity),
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.generator == nil {
		o.generator = generator.New()
	}
	if o.scorer == nil {
		o.scorer = affect.NewScorer(nil)
	}
	if o.council == nil {
		o.council = ethics.NewCouncil(o.logger.Named("ethics"))
	}
	if o.fanOut <= 0 {
		o.fanOut = DefaultFanOut
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

// Council exposes the constraint council so hosts can add constraints at runtime.
func (o *Orchestrator) Council() *ethics.Council {
	return o.council
}

// #endregion

// #region plan

// Plan runs one planning cycle. It never fails: any error or panic inside the
// cycle produces the emergency response with status "error".
func (o *Orchestrator) Plan(ctx context.Context, req plan.PlanningRequest) plan.PlanningResponse {
	requestID := "req-" + o.newID()

	resp, verdict, err := o.runCycle(req, requestID)
	if err != nil {
		o.logger.Error("planning failed, returning emergency plan",
			zap.String("request_id", requestID), zap.Error(err))
		return plan.PlanningResponse{
			RequestID:       requestID,
			SelectedPlan:    EmergencyPlan(),
			AllPlans:        []plan.CandidatePlan{},
			ExecutionStatus: plan.StatusError,
		}
	}

	o.history.put(historyEntry{request: req, response: resp.Clone(), verdict: verdict})

	if o.recorder != nil {
		o.record(requestID, "failed to record response", func() error {
			return o.recorder.RecordResponse(ctx, req, resp.Clone(), verdict)
		})
	}

	o.logger.Info("plan selected",
		zap.String("request_id", requestID),
		zap.String("plan_id", resp.SelectedPlan.PlanID),
		zap.Float64("score", resp.SelectedPlan.Score),
		zap.Bool("fallback", verdict.Fallback),
		zap.Int("candidates", len(resp.AllPlans)),
	)
	return resp
}

func (o *Orchestrator) runCycle(req plan.PlanningRequest, requestID string) (resp plan.PlanningResponse, verdict ethics.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("planning panic: %v", r)
		}
	}()

	fused := FuseInputs(req)
	o.logger.Debug("context fusion", zap.String("request_id", requestID), zap.String("fused", fused))

	candidates := o.generator.Generate(req.UserIntent, fused, o.fanOut)
	scored := o.scorer.Score(candidates, req.AffectiveState)
	slices.SortStableFunc(scored, func(a, b plan.CandidatePlan) int {
		return cmp.Compare(b.Score, a.Score)
	})

	selected, verdict, err := o.council.Collapse(scored)
	if err != nil {
		return plan.PlanningResponse{}, ethics.Verdict{}, fmt.Errorf("collapse: %w", err)
	}

	return plan.PlanningResponse{
		RequestID:       requestID,
		SelectedPlan:    selected,
		AllPlans:        scored,
		ExecutionStatus: plan.StatusReady,
	}, verdict, nil
}

// FuseInputs renders the descriptive context-fusion summary for a request.
func FuseInputs(req plan.PlanningRequest) string {
	s := req.AffectiveState
	return fmt.Sprintf("[CONTEXT FUSION]\nUser Intent: %s\nProject Context: %s\nAffective State: Valence=%.2f, Arousal=%.2f, Trust=%.2f\nTemporal Anchor: %s",
		req.UserIntent, req.Context, s.Valence, s.Arousal, s.Trust, req.Timestamp)
}

// EmergencyPlan is the plan returned when a planning cycle fails.
func EmergencyPlan() plan.CandidatePlan {
	return plan.CandidatePlan{
		PlanID: "emergency-plan",
		Score:  0.5,
		ToolCalls: []plan.ToolInvocation{{
			ID:             "emergency-1",
			Name:           "LogError",
			Description:    "Log the error for review",
			Parameters:     map[string]any{"reason": "planning_failure"},
			ExpectedOutput: "Error logged",
		}},
		Reasoning:       "Emergency fallback plan: log error and wait for user guidance",
		EthicalApproval: true,
	}
}

// #endregion

// #region execute

// ExecutePlan simulates running every tool invocation of p. No external calls
// are made and the result always reports success.
func (o *Orchestrator) ExecutePlan(p plan.CandidatePlan) ExecutionResult {
	results := make(map[string]ToolResult, len(p.ToolCalls))
	for _, tc := range p.ToolCalls {
		results[tc.ID] = ToolResult{
			Tool:   tc.Name,
			Status: "executed",
			Output: fmt.Sprintf("[Simulated output from %s]", tc.Name),
		}
	}
	return ExecutionResult{
		Success:   true,
		Results:   results,
		Timestamp: o.now().UTC().Format(timestampLayout),
	}
}

// ExecuteByPlanID executes the selected plan of the most recent stored
// response whose selection has planID.
func (o *Orchestrator) ExecuteByPlanID(planID string) (ExecutionResult, bool) {
	e, ok := o.history.find(func(e historyEntry) bool {
		return e.response.SelectedPlan.PlanID == planID
	})
	if !ok {
		o.logger.Warn("no stored plan found", zap.String("plan_id", planID))
		return ExecutionResult{}, false
	}
	return o.ExecutePlan(e.response.SelectedPlan), true
}

// #endregion

// #region feedback

// RecordFeedback observes feedback for a stored response. It reports false
// when the request id is unknown. History and scoring are never modified.
func (o *Orchestrator) RecordFeedback(ctx context.Context, fb Feedback) bool {
	e, ok := o.history.get(fb.RequestID)
	if !ok {
		o.logger.Warn("no request found for feedback", zap.String("request_id", fb.RequestID))
		return false
	}

	selected := e.response.SelectedPlan
	rec := FeedbackRecord{
		RequestID: fb.RequestID,
		PlanID:    selected.PlanID,
		Outcome:   fb.Outcome,
		Comment:   fb.Comment,
		CreatedAt: o.now(),
	}
	if s, ok := generator.StrategyOf(selected); ok {
		rec.Strategy = s.Name
	}
	if fb.NewState != nil {
		d := affect.AffectiveDelta(e.request.AffectiveState, *fb.NewState, fb.Outcome)
		rec.Delta = &d
	}

	fields := []zap.Field{
		zap.String("request_id", fb.RequestID),
		zap.String("outcome", string(fb.Outcome)),
		zap.String("strategy", rec.Strategy),
	}
	if fb.Comment != "" {
		fields = append(fields, zap.String("comment", fb.Comment))
	}
	if rec.Delta != nil {
		fields = append(fields, zap.Float64("affective_delta", *rec.Delta))
	}
	o.logger.Info("feedback recorded", fields...)

	if o.recorder != nil {
		o.record(fb.RequestID, "failed to record feedback", func() error {
			return o.recorder.RecordFeedback(ctx, rec)
		})
	}
	return true
}

// record runs one recorder call. Errors and panics are logged under msg and
// never reach the caller.
func (o *Orchestrator) record(requestID, msg string, call func() error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error(msg, zap.String("request_id", requestID), zap.Any("panic", r))
		}
	}()
	if err := call(); err != nil {
		o.logger.Warn(msg, zap.String("request_id", requestID), zap.Error(err))
	}
}

// #endregion

// #region queries

// SystemStatus reports retained history size and active constraint count.
func (o *Orchestrator) SystemStatus() SystemStatus {
	return SystemStatus{
		TotalRequests:     o.history.len(),
		ConstraintsActive: len(o.council.Constraints()),
		Uptime:            "running",
	}
}

// History returns copies of the most recent limit responses, oldest first.
// A negative limit means DefaultHistoryLimit; zero returns none.
func (o *Orchestrator) History(limit int) []plan.PlanningResponse {
	if limit < 0 {
		limit = DefaultHistoryLimit
	}
	entries := o.history.recent(limit)
	out := make([]plan.PlanningResponse, len(entries))
	for i, e := range entries {
		out[i] = e.response.Clone()
	}
	return out
}

// Explain delegates to the council.
func (o *Orchestrator) Explain(p plan.CandidatePlan) string {
	return o.council.Explain(p)
}

// #endregion
