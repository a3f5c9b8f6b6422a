package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/or4cl3-ai-1/Chatron9/internal/replay"
)

// #region replay-cmd
func newReplayCmd(root *rootOptions) *cobra.Command {
	var (
		seed    uint64
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "replay <fixture>",
		Short: "Replay recorded requests deterministically and check expectations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := replay.LoadFixture(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				f.Seed = seed
			}
			constraints, err := root.cfg.BuildConstraints()
			if err != nil {
				return err
			}

			results := replay.Replay(cmd.Context(), f.Requests, replay.Config{
				Seed:        f.Seed,
				FanOut:      root.cfg.Planner.FanOut,
				Constraints: constraints,
				Logger:      root.logger.Named("replay"),
			})
			summary := replay.Summarize(results)
			mismatches := replay.Verify(results, f.ExpectedResults)

			w := cmd.OutOrStdout()
			if jsonOut {
				if err := writeJSON(w, replayReport(f, results, summary, mismatches)); err != nil {
					return err
				}
			} else {
				printReplay(w, f, results, summary, mismatches)
			}
			if len(mismatches) > 0 {
				return fmt.Errorf("%d expectation(s) not met", len(mismatches))
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override the fixture seed")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

// #endregion replay-cmd

// #region report
type replayRow struct {
	ID        string  `json:"id"`
	RequestID string  `json:"request_id"`
	Status    string  `json:"status"`
	PlanID    string  `json:"plan_id"`
	Strategy  string  `json:"strategy,omitempty"`
	Score     float64 `json:"score"`
	Fallback  bool    `json:"fallback"`
}

type replayOutput struct {
	Description string         `json:"description,omitempty"`
	Seed        uint64         `json:"seed"`
	Results     []replayRow    `json:"results"`
	Summary     replay.Summary `json:"summary"`
	Mismatches  []string       `json:"mismatches,omitempty"`
}

func replayReport(f *replay.Fixture, results []replay.Result, summary replay.Summary, mismatches []replay.Mismatch) replayOutput {
	out := replayOutput{Description: f.Description, Seed: f.Seed, Summary: summary}
	for _, r := range results {
		out.Results = append(out.Results, replayRow{
			ID:        r.ID,
			RequestID: r.Response.RequestID,
			Status:    string(r.Response.ExecutionStatus),
			PlanID:    r.Response.SelectedPlan.PlanID,
			Strategy:  r.Strategy,
			Score:     r.Response.SelectedPlan.Score,
			Fallback:  r.Fallback,
		})
	}
	for _, m := range mismatches {
		out.Mismatches = append(out.Mismatches, m.String())
	}
	return out
}

func printReplay(w io.Writer, f *replay.Fixture, results []replay.Result, summary replay.Summary, mismatches []replay.Mismatch) {
	if f.Description != "" {
		fmt.Fprintf(w, "%s\n", f.Description)
	}
	fmt.Fprintf(w, "seed %d, %d request(s)\n\n", f.Seed, len(results))
	for _, r := range results {
		flag := ""
		if r.Fallback {
			flag = " (fallback)"
		}
		fmt.Fprintf(w, "  %-20s %-6s %-22s %.3f%s\n", r.ID, r.Response.ExecutionStatus, r.Strategy, r.Response.SelectedPlan.Score, flag)
	}
	fmt.Fprintf(w, "\ntotal=%d ready=%d errors=%d fallbacks=%d mean_score=%.3f\n",
		summary.Total, summary.Ready, summary.Errors, summary.Fallbacks, summary.MeanScore)
	for _, m := range mismatches {
		fmt.Fprintf(w, "MISMATCH %s\n", m)
	}
}

// #endregion report
