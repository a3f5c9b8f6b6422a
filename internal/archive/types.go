package archive

import (
	"errors"
	"time"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// ErrNotFound is returned by Get when no response is archived under the id.
var ErrNotFound = errors.New("response not found")

// #region record
// Record is one archived planning cycle.
type Record struct {
	RequestID string
	Request   plan.PlanningRequest
	Response  plan.PlanningResponse
	Fallback  bool
	CreatedAt time.Time
}
// #endregion record

// #region stats
// StrategyStats aggregates feedback for one strategy. Weighted is a
// decay-weighted success rate in [0,1] (success 1, partial 0.5, failure 0)
// with a seven-day half-life.
type StrategyStats struct {
	Strategy  string
	Success   int
	Partial   int
	Failure   int
	MeanDelta *float64 // nil when no feedback carried an affective delta
	Weighted  float64
}

// Total is the number of feedback rows behind the stats.
func (s StrategyStats) Total() int {
	return s.Success + s.Partial + s.Failure
}
// #endregion stats
