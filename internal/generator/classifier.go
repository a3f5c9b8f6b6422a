package generator

import "strings"

// #region tool-kind

// ToolKind is one family of synthetic tool selected from the intent.
type ToolKind struct {
	Name           string
	Description    string
	ExpectedOutput string
	idSuffix       string
}

var (
	AnalyzerTool = ToolKind{
		Name:           "AnalyzerTool",
		Description:    "Analyze the provided content or data",
		ExpectedOutput: "Detailed analysis results",
		idSuffix:       "1",
	}
	GeneratorTool = ToolKind{
		Name:           "GeneratorTool",
		Description:    "Generate content or solutions",
		ExpectedOutput: "Generated content",
		idSuffix:       "2",
	}
	RetrieverTool = ToolKind{
		Name:           "RetrieverTool",
		Description:    "Retrieve information from external sources",
		ExpectedOutput: "Retrieved information",
		idSuffix:       "3",
	}
	// ActionTool is the generic fallback when no keyword group matches.
	ActionTool = ToolKind{
		Name:           "ActionTool",
		Description:    "Execute the requested action",
		ExpectedOutput: "Action execution result",
		idSuffix:       "base",
	}
)

// #endregion tool-kind

// #region keywords

// keywordGroups is evaluated in order; every matching group contributes a tool.
var keywordGroups = []struct {
	keywords []string
	tool     ToolKind
}{
	{[]string{"analyze"}, AnalyzerTool},
	{[]string{"generate", "create"}, GeneratorTool},
	{[]string{"fetch", "retrieve"}, RetrieverTool},
}

// #endregion keywords

// #region classifier

// IntentClassifier maps an intent to the tool families a plan should invoke.
// Implementations must return at least one kind.
type IntentClassifier interface {
	Classify(intent string) []ToolKind
}

// KeywordClassifier selects tools by substring matching on the raw intent.
// Matching is case-sensitive and inclusive across groups. No model call.
type KeywordClassifier struct{}

// Classify implements IntentClassifier.
func (KeywordClassifier) Classify(intent string) []ToolKind {
	var kinds []ToolKind
	for _, g := range keywordGroups {
		for _, kw := range g.keywords {
			if strings.Contains(intent, kw) {
				kinds = append(kinds, g.tool)
				break
			}
		}
	}
	if len(kinds) == 0 {
		kinds = append(kinds, ActionTool)
	}
	return kinds
}

// #endregion classifier
