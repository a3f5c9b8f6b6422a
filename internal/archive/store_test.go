package archive

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/generator"
	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region helpers
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResponse(id string, score float64) (plan.PlanningRequest, plan.PlanningResponse) {
	req := plan.PlanningRequest{
		UserIntent:     "analyze the dataset",
		Context:        "archive test",
		AffectiveState: plan.AffectiveState{Valence: -0.1, Arousal: 0.4, Trust: 0.6},
		Timestamp:      "2025-05-01T10:00:00Z",
	}
	selected := plan.CandidatePlan{
		PlanID: "plan-" + id + "-0",
		Score:  score,
		ToolCalls: []plan.ToolInvocation{{
			ID:             "tool-" + id + "-1",
			Name:           "AnalyzerTool",
			Description:    "Analyzes data and provides insights",
			Parameters:     map[string]any{"intent": req.UserIntent, "strategy": "Conservative"},
			ExpectedOutput: "Analysis results with key findings",
		}},
		Reasoning:       "Strategy: Conservative. Approach: Take a cautious approach with extensive validation and checkpoints",
		EthicalApproval: true,
	}
	return req, plan.PlanningResponse{
		RequestID:       "req-" + id,
		SelectedPlan:    selected,
		AllPlans:        []plan.CandidatePlan{selected},
		ExecutionStatus: plan.StatusReady,
	}
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

// #endregion helpers

// #region record-and-get
func TestRecordResponse_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req, resp := sampleResponse("a", 0.81)

	require.NoError(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{Admissible: true, Passed: 6, Total: 6}))

	got, err := s.Get(ctx, "req-a")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(req, got.Request))
	assert.Empty(t, cmp.Diff(resp, got.Response, cmpopts.EquateEmpty()))
	assert.False(t, got.Fallback)
	assert.False(t, got.CreatedAt.IsZero())

	var decision, trigger string
	require.NoError(t, s.DB().QueryRow(
		"SELECT decision, trigger_type FROM provenance_log WHERE request_id = ?", "req-a",
	).Scan(&decision, &trigger))
	assert.Equal(t, "ready", decision)
	assert.Equal(t, "plan", trigger)
}

func TestRecordResponse_FallbackDecision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req, resp := sampleResponse("f", 0.9)

	require.NoError(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{Fallback: true}))

	got, err := s.Get(ctx, "req-f")
	require.NoError(t, err)
	assert.True(t, got.Fallback)

	var decision string
	require.NoError(t, s.DB().QueryRow("SELECT decision FROM provenance_log").Scan(&decision))
	assert.Equal(t, "fallback", decision)
}

func TestRecordResponse_DuplicateIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req, resp := sampleResponse("dup", 0.5)
	require.NoError(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{}))
	assert.Error(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{}))
	assert.Equal(t, 1, countRows(t, s, "provenance_log"))
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "req-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// #endregion record-and-get

// #region recent-and-prune
func TestRecent_OldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		req, resp := sampleResponse(fmt.Sprint(i), 0.5)
		require.NoError(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{}))
	}

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "req-3", got[0].RequestID)
	assert.Equal(t, "req-4", got[1].RequestID)
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		req, resp := sampleResponse(fmt.Sprint(i), 0.5)
		require.NoError(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{}))
	}
	require.NoError(t, s.RecordFeedback(ctx, orchestrator.FeedbackRecord{
		RequestID: "req-0", PlanID: "plan-0-0", Outcome: plan.OutcomeSuccess,
	}))

	assert.Equal(t, 6, countRows(t, s, "provenance_log"))

	n, err := s.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Prune(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 3, countRows(t, s, "responses"))
	assert.Equal(t, 0, countRows(t, s, "feedback"))
	assert.Equal(t, 3, countRows(t, s, "provenance_log"))

	var orphans int
	require.NoError(t, s.db.QueryRow(
		`SELECT COUNT(*) FROM provenance_log WHERE request_id NOT IN (SELECT request_id FROM responses)`,
	).Scan(&orphans))
	assert.Zero(t, orphans)

	_, err = s.Get(ctx, "req-0")
	assert.ErrorIs(t, err, ErrNotFound)
}

// #endregion recent-and-prune

// #region feedback
func TestRecordFeedback_RequiresArchivedResponse(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordFeedback(context.Background(), orchestrator.FeedbackRecord{
		RequestID: "req-ghost", PlanID: "plan-x", Outcome: plan.OutcomeFailure,
	})
	assert.Error(t, err)
}

func TestOutcomeStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	req, resp := sampleResponse("s", 0.7)
	require.NoError(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{}))

	d1, d2 := 0.4, -0.2
	records := []orchestrator.FeedbackRecord{
		{Strategy: "Conservative", Outcome: plan.OutcomeSuccess, Delta: &d1},
		{Strategy: "Conservative", Outcome: plan.OutcomeFailure, Delta: &d2},
		{Strategy: "Conservative", Outcome: plan.OutcomePartial},
		{Strategy: "Collaborative", Outcome: plan.OutcomeSuccess},
	}
	for _, r := range records {
		r.RequestID = "req-s"
		r.PlanID = "plan-s-0"
		r.CreatedAt = now
		require.NoError(t, s.RecordFeedback(ctx, r))
	}

	stats, err := s.OutcomeStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "Collaborative", stats[0].Strategy)
	assert.Equal(t, 1, stats[0].Success)
	assert.Nil(t, stats[0].MeanDelta)
	assert.InDelta(t, 1.0, stats[0].Weighted, 1e-9)

	c := stats[1]
	assert.Equal(t, "Conservative", c.Strategy)
	assert.Equal(t, 3, c.Total())
	assert.Equal(t, [3]int{1, 1, 1}, [3]int{c.Success, c.Partial, c.Failure})
	require.NotNil(t, c.MeanDelta)
	assert.InDelta(t, 0.1, *c.MeanDelta, 1e-9)
	assert.InDelta(t, 0.5, c.Weighted, 1e-9)

	assert.Equal(t, 1+4, countRows(t, s, "provenance_log"))
}

func TestOutcomeStats_DecayFavorsRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	req, resp := sampleResponse("d", 0.7)
	require.NoError(t, s.RecordResponse(ctx, req, resp, ethics.Verdict{}))
	require.NoError(t, s.RecordFeedback(ctx, orchestrator.FeedbackRecord{
		RequestID: "req-d", PlanID: "p", Strategy: "Direct Execution",
		Outcome: plan.OutcomeFailure, CreatedAt: now.Add(-30 * 24 * time.Hour),
	}))
	require.NoError(t, s.RecordFeedback(ctx, orchestrator.FeedbackRecord{
		RequestID: "req-d", PlanID: "p", Strategy: "Direct Execution",
		Outcome: plan.OutcomeSuccess, CreatedAt: now,
	}))

	stats, err := s.OutcomeStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Greater(t, stats[0].Weighted, 0.9)
}

// #endregion feedback

// #region recorder
func TestStore_AsOrchestratorRecorder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	o := orchestrator.NewOrchestrator(orchestrator.Options{
		Generator: generator.New(generator.WithSource(generator.NewSeededSource(3))),
		Recorder:  s,
	})

	resp := o.Plan(ctx, plan.PlanningRequest{UserIntent: "create a report", Timestamp: "2025-05-01T10:00:00Z"})
	require.Equal(t, plan.StatusReady, resp.ExecutionStatus)
	post := plan.AffectiveState{Valence: 0.5, Arousal: 0.5, Trust: 0.5}
	require.True(t, o.RecordFeedback(ctx, orchestrator.Feedback{RequestID: resp.RequestID, Outcome: plan.OutcomeSuccess, NewState: &post}))

	got, err := s.Get(ctx, resp.RequestID)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(resp, got.Response, cmpopts.EquateEmpty()))

	stats, err := s.OutcomeStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Success)
	require.NotNil(t, stats[0].MeanDelta)
	assert.InDelta(t, 0.8, *stats[0].MeanDelta, 1e-9)
}

// #endregion recorder
