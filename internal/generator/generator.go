package generator

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region source

// Source supplies uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

// lockedSource serializes access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NewSeededSource returns a reproducible source.
func NewSeededSource(seed uint64) Source {
	return &lockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// globalSource draws from the runtime-seeded package generator.
type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// #endregion source

// #region generator

// Generator produces candidate plans (the superposition) for an intent.
type Generator struct {
	source     Source
	classifier IntentClassifier
	newID      func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithSource injects the randomness used for initial scores.
func WithSource(src Source) Option {
	return func(g *Generator) { g.source = src }
}

// WithClassifier swaps the intent classifier.
func WithClassifier(c IntentClassifier) Option {
	return func(g *Generator) { g.classifier = c }
}

// WithIDFunc overrides id generation. Used by replay to keep output stable.
func WithIDFunc(fn func() string) Option {
	return func(g *Generator) { g.newID = fn }
}

// New creates a Generator. Defaults: unseeded source, keyword classifier, uuid ids.
func New(opts ...Option) *Generator {
	g := &Generator{
		source:     globalSource{},
		classifier: KeywordClassifier{},
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// #endregion generator

// #region generate

// Generate builds up to count candidates, one per strategy in list order.
// count beyond the strategy list is truncated; count <= 0 yields no candidates.
// context is accepted for interface parity and does not influence selection.
func (g *Generator) Generate(intent, context string, count int) []plan.CandidatePlan {
	n := min(max(count, 0), len(Strategies))
	batch := g.newID()

	plans := make([]plan.CandidatePlan, 0, n)
	for i := 0; i < n; i++ {
		s := Strategies[i]
		plans = append(plans, plan.CandidatePlan{
			PlanID:          fmt.Sprintf("plan-%s-%d", batch, i),
			Score:           0.5 + g.source.Float64()*0.5,
			ToolCalls:       g.synthesizeToolCalls(intent, s),
			Reasoning:       reasoningFor(s),
			EthicalApproval: true,
		})
	}
	return plans
}

// #endregion generate

// #region synthesize

func (g *Generator) synthesizeToolCalls(intent string, s Strategy) []plan.ToolInvocation {
	kinds := g.classifier.Classify(intent)
	if len(kinds) == 0 {
		kinds = []ToolKind{ActionTool}
	}

	id := g.newID()
	calls := make([]plan.ToolInvocation, 0, len(kinds))
	for _, k := range kinds {
		suffix := k.idSuffix
		if suffix == "" {
			suffix = k.Name
		}
		calls = append(calls, plan.ToolInvocation{
			ID:          fmt.Sprintf("tool-%s-%s", id, suffix),
			Name:        k.Name,
			Description: k.Description,
			Parameters: map[string]any{
				"intent":   intent,
				"strategy": s.Name,
			},
			ExpectedOutput: k.ExpectedOutput,
		})
	}
	return calls
}

// #endregion synthesize
