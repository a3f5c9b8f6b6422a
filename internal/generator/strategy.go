package generator

import (
	"strings"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region strategy-id

// StrategyID identifies a planning strategy.
type StrategyID string

const (
	StrategyDirect        StrategyID = "direct_execution"
	StrategyVerification  StrategyID = "verification_first"
	StrategyCollaborative StrategyID = "collaborative"
	StrategyConservative  StrategyID = "conservative"
	StrategyIterative     StrategyID = "iterative_refinement"
)

// #endregion strategy-id

// #region strategy-definitions

// Strategy is a named approach a candidate plan is built around.
type Strategy struct {
	ID          StrategyID
	Name        string
	Description string
}

// Strategies is the fixed, ordered strategy list. Generation walks it from the front.
var Strategies = []Strategy{
	{
		ID:          StrategyDirect,
		Name:        "Direct Execution",
		Description: "Immediately execute the requested action with minimal intermediaries",
	},
	{
		ID:          StrategyVerification,
		Name:        "Verification First",
		Description: "Verify context and gather additional information before execution",
	},
	{
		ID:          StrategyCollaborative,
		Name:        "Collaborative",
		Description: "Break down the task into smaller collaborative steps with feedback loops",
	},
	{
		ID:          StrategyConservative,
		Name:        "Conservative",
		Description: "Take a cautious approach with extensive validation and checkpoints",
	},
	{
		ID:          StrategyIterative,
		Name:        "Iterative Refinement",
		Description: "Generate initial solution, then iteratively improve based on feedback",
	},
}

// #endregion strategy-definitions

// #region lookup

// StrategyByName returns the strategy whose display name matches, if any.
func StrategyByName(name string) (Strategy, bool) {
	for _, s := range Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// StrategyOf recovers the strategy a generated plan was built around from its
// reasoning text.
func StrategyOf(p plan.CandidatePlan) (Strategy, bool) {
	rest, ok := strings.CutPrefix(p.Reasoning, "Strategy: ")
	if !ok {
		return Strategy{}, false
	}
	name, _, ok := strings.Cut(rest, ". Approach: ")
	if !ok {
		return Strategy{}, false
	}
	return StrategyByName(name)
}

// reasoningFor renders the reasoning text every candidate carries.
func reasoningFor(s Strategy) string {
	return "Strategy: " + s.Name + ". Approach: " + s.Description
}

// #endregion lookup
