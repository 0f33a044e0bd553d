package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/state"
)

type reportOptions struct {
	stateDir   string
	jsonOutput bool
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show a run's report, or list all runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			stateDir := opts.stateDir
			if stateDir == "" {
				stateDir = cfg.Run.StateDir
			}
			store := state.NewStore(stateDir)

			if len(args) == 0 {
				return listRuns(cmd, store)
			}
			return showRun(cmd, store, args[0], opts.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&opts.stateDir, "state-dir", "", "run store location (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the raw report")
	return cmd
}

func listRuns(cmd *cobra.Command, store *state.Store) error {
	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}
	for _, runID := range runs {
		report, err := store.LoadReport(runID)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  (unreadable: %v)\n", runID, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s  %2d iterations  %s\n",
			runID, report.Outcome, report.Iterations, report.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showRun(cmd *cobra.Command, store *state.Store, runID string, jsonOutput bool) error {
	report, err := store.LoadReport(runID)
	if err != nil {
		return err
	}
	if jsonOutput {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	printReport(cmd, report, store)
	return nil
}

func printReport(cmd *cobra.Command, report *state.Report, store *state.Store) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %s\n", report.RunID, report.Outcome)
	fmt.Fprintf(out, "task: %s\n", report.Task)
	fmt.Fprintf(out, "iterations: %d\n", report.Iterations)
	if report.Claim != nil {
		fmt.Fprintf(out, "claim: %s\n", report.Claim.Summary)
	}
	if report.Judge != nil {
		if report.Judge.Reason != "" {
			fmt.Fprintf(out, "verdict: %s\n", report.Judge.Reason)
		}
		for _, issue := range report.Judge.Issues {
			fmt.Fprintf(out, "  issue: %s\n", issue)
		}
		if report.Judge.Note != "" {
			fmt.Fprintf(out, "note: %s\n", report.Judge.Note)
		}
	}
	if report.Error != "" {
		fmt.Fprintf(out, "error: %s\n", report.Error)
	}
	fmt.Fprintf(out, "artifacts: %s\n", store.RunDir(report.RunID))
}
