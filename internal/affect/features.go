package affect

// #region imports
import (
	"strings"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #endregion

// #region keywords

var positivePhrases = []string{
	"improve", "enhance", "create", "build",
	"optimize", "generate", "collaborate", "iterative",
}

var actionPhrases = []string{
	"direct", "immediate", "execute", "proceed", "action",
}

var transparentStrategies = []string{
	"direct", "verification", "conservative",
}

// maxTools is the tool count at which a plan reads as fully aroused.
const maxTools = 5

// #endregion

// #region features

// Features are the per-plan signals the scorer consumes. All but Complexity
// are normalized to [0, 1].
type Features struct {
	Arousal      float64
	Positivity   float64
	ActionLevel  float64
	Transparency float64
	Complexity   float64
}

// FeatureExtractor derives Features from a plan alone.
type FeatureExtractor interface {
	Extract(p plan.CandidatePlan) Features
}

// #endregion

// #region keyword-features

// KeywordFeatures estimates features via keyword heuristics on the reasoning
// text and tool counts. No model call.
type KeywordFeatures struct{}

// Extract implements FeatureExtractor.
func (KeywordFeatures) Extract(p plan.CandidatePlan) Features {
	lower := strings.ToLower(p.Reasoning)
	toolCount := len(p.ToolCalls)

	transparency := 0.4
	if countMatches(lower, transparentStrategies) > 0 {
		transparency = 0.8
	}

	return Features{
		Arousal:      min(1, float64(toolCount)/maxTools),
		Positivity:   min(1, float64(countMatches(lower, positivePhrases))/3),
		ActionLevel:  min(1, float64(countMatches(lower, actionPhrases))/2),
		Transparency: transparency,
		Complexity:   float64(toolCount*distinctToolNames(p)) / 10,
	}
}

func countMatches(lower string, phrases []string) int {
	n := 0
	for _, ph := range phrases {
		if strings.Contains(lower, ph) {
			n++
		}
	}
	return n
}

func distinctToolNames(p plan.CandidatePlan) int {
	seen := make(map[string]struct{}, len(p.ToolCalls))
	for _, tc := range p.ToolCalls {
		seen[tc.Name] = struct{}{}
	}
	return len(seen)
}

// #endregion
