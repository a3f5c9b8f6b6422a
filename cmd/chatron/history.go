package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/or4cl3-ai-1/Chatron9/internal/archive"
	"github.com/or4cl3-ai-1/Chatron9/internal/generator"
)

// #region history-cmd
func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		dbPath  string
		last    int
		request string
		stats   bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect archived planning responses and feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dbPath == "" {
				dbPath = root.cfg.Archive.Path
			}
			store, err := archive.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open archive %s: %w", dbPath, err)
			}
			defer store.Close()

			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			switch {
			case request != "":
				rec, err := store.Get(ctx, request)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(w, historyRowFor(rec))
				}
				printPlanOutput(w, planOutput{Response: rec.Response, Explanation: fmt.Sprintf("fallback=%v archived=%s", rec.Fallback, rec.CreatedAt.Format("2006-01-02 15:04:05"))})
				return nil
			case stats:
				st, err := store.OutcomeStats(ctx)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(w, st)
				}
				printStats(w, st)
				return nil
			}

			recs, err := store.Recent(ctx, last)
			if err != nil {
				return err
			}
			rows := make([]historyRow, len(recs))
			for i, rec := range recs {
				rows[i] = historyRowFor(rec)
			}
			if jsonOut {
				return writeJSON(w, rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no archived requests found")
				return nil
			}
			printHistory(w, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "archive database (default archive.path from config)")
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent requests")
	cmd.Flags().StringVar(&request, "request", "", "show one archived request in detail")
	cmd.Flags().BoolVar(&stats, "stats", false, "show feedback outcome stats per strategy")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion history-cmd

// #region rows
type historyRow struct {
	RequestID  string  `json:"request_id"`
	Intent     string  `json:"intent"`
	Status     string  `json:"status"`
	PlanID     string  `json:"plan_id"`
	Strategy   string  `json:"strategy,omitempty"`
	Score      float64 `json:"score"`
	Fallback   bool    `json:"fallback"`
	Candidates int     `json:"candidates"`
	CreatedAt  string  `json:"created_at"`
}

func historyRowFor(rec archive.Record) historyRow {
	row := historyRow{
		RequestID:  rec.RequestID,
		Intent:     rec.Request.UserIntent,
		Status:     string(rec.Response.ExecutionStatus),
		PlanID:     rec.Response.SelectedPlan.PlanID,
		Score:      rec.Response.SelectedPlan.Score,
		Fallback:   rec.Fallback,
		Candidates: len(rec.Response.AllPlans),
		CreatedAt:  rec.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if s, ok := generator.StrategyOf(rec.Response.SelectedPlan); ok {
		row.Strategy = s.Name
	}
	return row
}

func printHistory(w io.Writer, rows []historyRow) {
	fmt.Fprintf(w, "%-44s  %-19s  %-6s  %-22s  %6s  %s\n", "REQUEST", "CREATED", "STATUS", "STRATEGY", "SCORE", "INTENT")
	for _, r := range rows {
		status := r.Status
		if r.Fallback {
			status += "*"
		}
		fmt.Fprintf(w, "%-44s  %-19s  %-6s  %-22s  %6.3f  %s\n", r.RequestID, r.CreatedAt, status, r.Strategy, r.Score, truncate(r.Intent, 40))
	}
}

func printStats(w io.Writer, stats []archive.StrategyStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "no feedback recorded")
		return
	}
	fmt.Fprintf(w, "%-22s  %7s  %7s  %7s  %8s  %10s\n", "STRATEGY", "SUCCESS", "PARTIAL", "FAILURE", "WEIGHTED", "MEAN DELTA")
	for _, s := range stats {
		delta := "-"
		if s.MeanDelta != nil {
			delta = fmt.Sprintf("%+.3f", *s.MeanDelta)
		}
		name := s.Strategy
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(w, "%-22s  %7d  %7d  %7d  %8.3f  %10s\n", name, s.Success, s.Partial, s.Failure, s.Weighted, delta)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// #endregion rows
