package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/or4cl3-ai-1/Chatron9/internal/generator"
	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region plan-cmd
type planFlags struct {
	context string
	state   plan.AffectiveState
	jsonOut bool
	execute bool
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	f := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan <intent>",
		Short: "Run one planning cycle and print the selected plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.state.Validate(); err != nil {
				return err
			}
			orch, cleanup, err := root.buildOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			req := plan.PlanningRequest{
				UserIntent:     strings.Join(args, " "),
				Context:        f.context,
				AffectiveState: f.state,
				Timestamp:      time.Now().UTC().Format(time.RFC3339),
			}
			resp := orch.Plan(cmd.Context(), req)

			out := planOutput{
				Response:    resp,
				Explanation: orch.Explain(resp.SelectedPlan),
			}
			if f.execute && resp.ExecutionStatus == plan.StatusReady {
				res := orch.ExecutePlan(resp.SelectedPlan)
				out.Execution = &res
			}

			w := cmd.OutOrStdout()
			if f.jsonOut {
				return writeJSON(w, out)
			}
			printPlanOutput(w, out)
			return nil
		},
	}
	addStateFlags(cmd, &f.state)
	cmd.Flags().StringVar(&f.context, "context", "", "project context for the request")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "output as JSON instead of text")
	cmd.Flags().BoolVar(&f.execute, "execute", false, "simulate execution of the selected plan")
	return cmd
}

func addStateFlags(cmd *cobra.Command, s *plan.AffectiveState) {
	cmd.Flags().Float64Var(&s.Valence, "valence", 0, "user valence in [-1, 1]")
	cmd.Flags().Float64Var(&s.Arousal, "arousal", 0.5, "user arousal in [0, 1]")
	cmd.Flags().Float64Var(&s.Trust, "trust", 0.5, "user trust in [0, 1]")
}

// #endregion plan-cmd

// #region render
type planOutput struct {
	Response    plan.PlanningResponse         `json:"response"`
	Explanation string                        `json:"explanation"`
	Execution   *orchestrator.ExecutionResult `json:"execution,omitempty"`
}

func printPlanOutput(w io.Writer, out planOutput) {
	resp := out.Response
	sel := resp.SelectedPlan
	fmt.Fprintf(w, "request   %s\n", resp.RequestID)
	fmt.Fprintf(w, "status    %s\n", resp.ExecutionStatus)
	fmt.Fprintf(w, "selected  %s (score %.3f)\n", sel.PlanID, sel.Score)
	fmt.Fprintf(w, "  %s\n", sel.Reasoning)
	for _, tc := range sel.ToolCalls {
		fmt.Fprintf(w, "  - %s [%s]: %s -> %s\n", tc.Name, tc.ID, tc.Description, tc.ExpectedOutput)
	}
	fmt.Fprintf(w, "%s\n", out.Explanation)

	if len(resp.AllPlans) > 0 {
		fmt.Fprintln(w, "candidates:")
		for i, p := range resp.AllPlans {
			name := "?"
			if s, ok := generator.StrategyOf(p); ok {
				name = s.Name
			}
			marker := " "
			if p.PlanID == sel.PlanID {
				marker = "*"
			}
			fmt.Fprintf(w, " %s%d. %-22s %.3f  %s\n", marker, i+1, name, p.Score, p.PlanID)
		}
	}

	if out.Execution != nil {
		fmt.Fprintf(w, "executed at %s (success=%v)\n", out.Execution.Timestamp, out.Execution.Success)
		for _, tc := range sel.ToolCalls {
			if r, ok := out.Execution.Results[tc.ID]; ok {
				fmt.Fprintf(w, "  %s: %s %s\n", r.Tool, r.Status, r.Output)
			}
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion render
