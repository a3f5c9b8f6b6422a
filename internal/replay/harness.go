package replay

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/generator"
	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region types

// Config controls a replay run.
type Config struct {
	Seed        uint64
	FanOut      int
	Constraints []ethics.Constraint // added after the defaults
	Logger      *zap.Logger
}

// Result is the outcome of replaying one request.
type Result struct {
	ID       string
	Response plan.PlanningResponse
	Fallback bool
	Strategy string // selected strategy name, empty for emergency plans
}

// Summary aggregates a replay run.
type Summary struct {
	Total     int     `json:"total"`
	Ready     int     `json:"ready"`
	Errors    int     `json:"errors"`
	Fallbacks int     `json:"fallbacks"`
	MeanScore float64 `json:"mean_score"` // over ready responses
}

// Mismatch describes a result that disagrees with its expectation.
type Mismatch struct {
	ID    string
	Field string
	Want  string
	Got   string
}

// String renders the mismatch on one line.
func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s want %s, got %s", m.ID, m.Field, m.Want, m.Got)
}

// #endregion types

// #region verdict-capture

// verdictCapture is an orchestrator.Recorder that remembers fallback flags.
type verdictCapture struct {
	mu       sync.Mutex
	fallback map[string]bool
}

func (v *verdictCapture) RecordResponse(_ context.Context, _ plan.PlanningRequest, resp plan.PlanningResponse, verdict ethics.Verdict) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fallback[resp.RequestID] = verdict.Fallback
	return nil
}

func (v *verdictCapture) RecordFeedback(context.Context, orchestrator.FeedbackRecord) error {
	return nil
}

// #endregion verdict-capture

// #region replay

// Replay runs requests in order through a fresh orchestrator seeded with
// cfg.Seed. Ids are sequential, so the same fixture and seed always produce
// identical responses.
func Replay(ctx context.Context, requests []FixtureRequest, cfg Config) []Result {
	var n int
	nextID := func() string {
		n++
		return fmt.Sprintf("replay-%06d", n)
	}

	capture := &verdictCapture{fallback: make(map[string]bool)}
	orch := orchestrator.NewOrchestrator(orchestrator.Options{
		Generator: generator.New(
			generator.WithSource(generator.NewSeededSource(cfg.Seed)),
			generator.WithIDFunc(nextID),
		),
		Council:         ethics.NewCouncil(cfg.Logger, cfg.Constraints...),
		Recorder:        capture,
		Logger:          cfg.Logger,
		FanOut:          cfg.FanOut,
		HistoryCapacity: max(len(requests), 1),
		NewID:           nextID,
	})

	results := make([]Result, 0, len(requests))
	for _, r := range requests {
		resp := orch.Plan(ctx, r.PlanningRequest)
		res := Result{
			ID:       r.ID,
			Response: resp,
			Fallback: capture.fallback[resp.RequestID],
		}
		if resp.ExecutionStatus == plan.StatusReady {
			if s, ok := generator.StrategyOf(resp.SelectedPlan); ok {
				res.Strategy = s.Name
			}
		}
		results = append(results, res)
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	var scoreSum float64
	for _, r := range results {
		switch r.Response.ExecutionStatus {
		case plan.StatusReady:
			s.Ready++
			scoreSum += r.Response.SelectedPlan.Score
		case plan.StatusError:
			s.Errors++
		}
		if r.Fallback {
			s.Fallbacks++
		}
	}
	if s.Ready > 0 {
		s.MeanScore = scoreSum / float64(s.Ready)
	}
	return s
}

// Verify compares results against expectations by id. Expectations for ids
// that were not replayed are reported as missing.
func Verify(results []Result, expected []FixtureExpectedResult) []Mismatch {
	byID := make(map[string]Result, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}

	var out []Mismatch
	for _, e := range expected {
		r, ok := byID[e.ID]
		if !ok {
			out = append(out, Mismatch{ID: e.ID, Field: "result", Want: "present", Got: "missing"})
			continue
		}
		if e.Status != "" && string(r.Response.ExecutionStatus) != e.Status {
			out = append(out, Mismatch{ID: e.ID, Field: "status", Want: e.Status, Got: string(r.Response.ExecutionStatus)})
		}
		if e.Strategy != "" && r.Strategy != e.Strategy {
			out = append(out, Mismatch{ID: e.ID, Field: "strategy", Want: e.Strategy, Got: r.Strategy})
		}
		if e.Fallback != nil && r.Fallback != *e.Fallback {
			out = append(out, Mismatch{ID: e.ID, Field: "fallback", Want: fmt.Sprint(*e.Fallback), Got: fmt.Sprint(r.Fallback)})
		}
	}
	return out
}

// #endregion replay
