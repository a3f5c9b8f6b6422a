package affect

// #region imports
import (
	"math"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #endregion

// #region scorer

// Scorer re-weights candidate plans against the user's affective state.
type Scorer struct {
	features FeatureExtractor
}

// NewScorer creates a Scorer. A nil extractor falls back to KeywordFeatures.
func NewScorer(fe FeatureExtractor) *Scorer {
	if fe == nil {
		fe = KeywordFeatures{}
	}
	return &Scorer{features: fe}
}

// #endregion

// #region score

// Score returns copies of plans with each score rewritten. The input slice and
// its plans are left untouched.
func (s *Scorer) Score(plans []plan.CandidatePlan, state plan.AffectiveState) []plan.CandidatePlan {
	out := make([]plan.CandidatePlan, len(plans))
	for i, p := range plans {
		c := p.Clone()
		c.Score = s.alignedScore(p, state)
		out[i] = c
	}
	return out
}

// alignedScore multiplies adjustments into the plan's existing score, so the
// generator's initial draw carries through.
func (s *Scorer) alignedScore(p plan.CandidatePlan, state plan.AffectiveState) float64 {
	f := s.features.Extract(p)
	score := p.Score

	// Arousal match
	arousalMatch := 1 - math.Abs(state.Arousal-f.Arousal)
	score *= 0.8 + arousalMatch*0.4

	// Negative valence prefers uplifting plans, positive prefers action
	if state.Valence < 0 {
		score *= 0.8 + f.Positivity*0.4
	} else {
		score *= 0.8 + f.ActionLevel*0.2
	}

	// Low trust prefers transparent plans, high trust tolerates complexity
	if state.Trust < 0.5 {
		score *= 0.8 + f.Transparency*0.4
	} else {
		score *= 0.9 + math.Min(f.Complexity*0.2, 0.1)
	}

	return plan.Clamp(score, 0, 1)
}

// #endregion

// #region affective-delta

// AffectiveDelta measures the valence shift across a plan execution, biased by
// the reported outcome. Intended for feedback and learning hooks.
func AffectiveDelta(pre, post plan.AffectiveState, outcome plan.Outcome) float64 {
	delta := post.Valence - pre.Valence
	switch outcome {
	case plan.OutcomeSuccess:
		delta += 0.3
	case plan.OutcomeFailure:
		delta -= 0.3
	}
	return delta
}

// #endregion
