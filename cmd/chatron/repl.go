package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region repl-cmd
func newReplCmd(root *rootOptions) *cobra.Command {
	var state plan.AffectiveState
	var projectContext string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive planning loop, one intent per line",
		Long: `Interactive planning loop. Each line is planned as an intent, except:
  mood <valence> <arousal> <trust>    change the affective state
  feedback <outcome> [comment]        report success|partial|failure for the last plan
  status                              show system status
  history [n]                         show the last n requests
  quit | exit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := state.Validate(); err != nil {
				return err
			}
			orch, cleanup, err := root.buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			s := &replSession{orch: orch, state: state, context: projectContext, out: cmd.OutOrStdout()}
			return s.run(cmd.Context(), cmd.InOrStdin())
		},
	}
	addStateFlags(cmd, &state)
	cmd.Flags().StringVar(&projectContext, "context", "", "project context for every request")
	return cmd
}

// #endregion repl-cmd

// #region repl-session
type replSession struct {
	orch    *orchestrator.Orchestrator
	state   plan.AffectiveState
	context string
	out     io.Writer
	last    string // request id of the last plan
}

func (s *replSession) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "Chatron ready. Type an intent (or 'quit' to exit):")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := s.handle(ctx, line); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (s *replSession) handle(ctx context.Context, line string) error {
	word, rest, _ := strings.Cut(line, " ")
	switch word {
	case "mood":
		return s.setMood(strings.Fields(rest))
	case "feedback":
		return s.feedback(ctx, rest)
	case "status":
		st := s.orch.SystemStatus()
		fmt.Fprintf(s.out, "requests=%d constraints=%d uptime=%s\n", st.TotalRequests, st.ConstraintsActive, st.Uptime)
		return nil
	case "history":
		n := orchestrator.DefaultHistoryLimit
		if rest != "" {
			v, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			n = v
		}
		for _, r := range s.orch.History(n) {
			fmt.Fprintf(s.out, "%s  %-5s  %s  %.3f\n", r.RequestID, r.ExecutionStatus, r.SelectedPlan.PlanID, r.SelectedPlan.Score)
		}
		return nil
	}

	resp := s.orch.Plan(ctx, plan.PlanningRequest{
		UserIntent:     line,
		Context:        s.context,
		AffectiveState: s.state,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
	if resp.ExecutionStatus == plan.StatusReady {
		s.last = resp.RequestID
	}
	fmt.Fprintln(s.out)
	printPlanOutput(s.out, planOutput{Response: resp, Explanation: s.orch.Explain(resp.SelectedPlan)})
	fmt.Fprintln(s.out)
	return nil
}

func (s *replSession) setMood(fields []string) error {
	if len(fields) != 3 {
		return fmt.Errorf("usage: mood <valence> <arousal> <trust>")
	}
	var vals [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("mood: %w", err)
		}
		vals[i] = v
	}
	next := plan.AffectiveState{Valence: vals[0], Arousal: vals[1], Trust: vals[2]}
	if err := next.Validate(); err != nil {
		return err
	}
	s.state = next
	fmt.Fprintf(s.out, "mood set: valence=%.2f arousal=%.2f trust=%.2f\n", next.Valence, next.Arousal, next.Trust)
	return nil
}

func (s *replSession) feedback(ctx context.Context, rest string) error {
	if s.last == "" {
		return fmt.Errorf("no plan to give feedback on")
	}
	label, comment, _ := strings.Cut(strings.TrimSpace(rest), " ")
	outcome, err := plan.ParseOutcome(label)
	if err != nil {
		return err
	}
	state := s.state
	if !s.orch.RecordFeedback(ctx, orchestrator.Feedback{
		RequestID: s.last,
		Outcome:   outcome,
		Comment:   strings.TrimSpace(comment),
		NewState:  &state,
	}) {
		return fmt.Errorf("request %s is no longer in history", s.last)
	}
	fmt.Fprintf(s.out, "feedback recorded for %s: %s\n", s.last, outcome)
	return nil
}

// #endregion repl-session
