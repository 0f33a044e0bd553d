package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/thruflo/drover/internal/budget"
	"github.com/thruflo/drover/internal/config"
	"github.com/thruflo/drover/internal/judge"
	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/loop"
	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
	"github.com/thruflo/drover/internal/state"
	"github.com/thruflo/drover/internal/stream"
	"github.com/thruflo/drover/internal/tools"
)

// HeadlessResult is the machine-readable run summary printed with --json.
type HeadlessResult struct {
	RunID          string  `json:"run_id"`
	Outcome        string  `json:"outcome"`
	Iterations     int     `json:"iterations"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	ReportPath     string  `json:"report_path"`
	EventLog       string  `json:"event_log"`
	Error          string  `json:"error,omitempty"`
}

type runOptions struct {
	taskFile      string
	sandboxName   string
	maxIterations int
	jsonOutput    bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run the agent loop against the sandbox until the task is done",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := resolveTask(args, opts.taskFile)
			if err != nil {
				return err
			}
			return runTask(cmd, root, opts, task)
		},
	}

	cmd.Flags().StringVar(&opts.taskFile, "task-file", "", "read the task from a file instead of the argument")
	cmd.Flags().StringVar(&opts.sandboxName, "sandbox", "", "sandbox name (overrides config)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "iteration cap (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print a machine-readable result")
	return cmd
}

func resolveTask(args []string, taskFile string) (string, error) {
	if taskFile != "" {
		data, err := os.ReadFile(taskFile)
		if err != nil {
			return "", fmt.Errorf("reading task file: %w", err)
		}
		task := strings.TrimSpace(string(data))
		if task == "" {
			return "", fmt.Errorf("task file %s is empty", taskFile)
		}
		return task, nil
	}
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0]), nil
	}
	return "", fmt.Errorf("a task is required: pass it as an argument or via --task-file")
}

func runTask(cmd *cobra.Command, root *rootOptions, opts *runOptions, task string) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	if !root.verbose {
		logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}
	if opts.sandboxName != "" {
		cfg.Sandbox.Name = opts.sandboxName
	}
	if opts.maxIterations > 0 {
		cfg.Run.MaxIterations = opts.maxIterations
	}
	if cfg.Sandbox.Name == "" {
		return fmt.Errorf("a sandbox name is required: set sandbox.name or pass --sandbox")
	}

	env, err := config.LoadEnvFile(root.envPath)
	if err != nil {
		return err
	}
	spritesToken := credential(env, "SPRITES_TOKEN")
	if spritesToken == "" {
		return fmt.Errorf("SPRITES_TOKEN is not set (env or %s)", root.envPath)
	}
	apiKey := credential(env, "ANTHROPIC_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set (env or %s)", root.envPath)
	}

	sb := sandbox.NewSpriteClient(spritesToken, cfg.Sandbox.Name, cfg.Sandbox.BaseURL)
	client, err := model.NewAnthropicClient(apiKey, model.AnthropicConfig{
		Model:     cfg.Model.Name,
		MaxTokens: int64(cfg.Model.MaxTokens),
		BaseURL:   cfg.Model.BaseURL,
	})
	if err != nil {
		return err
	}

	toolOpts := tools.DefaultOptions()
	toolOpts.WorkDir = cfg.Sandbox.WorkDir

	claims := tools.NewClaimRecorder()
	toolbox := tools.WorkerToolbox(sb, claims, toolOpts)

	evaluator := judge.New(client, sb, judge.Config{
		StepBudget:     cfg.Judge.StepBudget,
		DefaultApprove: cfg.Judge.DefaultApprove,
	}, toolOpts)

	store := state.NewStore(cfg.Run.StateDir)
	syncer := state.NewSyncManager(store, sb, cfg.Sandbox.WorkDir)

	runID := uuid.NewString()
	events, err := stream.NewFileStore(store.EventLogPath(runID))
	if err != nil {
		return err
	}
	defer events.Close()

	controller := loop.NewController(client, toolbox, claims, evaluator, syncer, events,
		budget.Config{
			TokenBudget:  cfg.Budget.TokenBudget,
			RecentWindow: cfg.Budget.RecentWindow,
			DigestChars:  cfg.Budget.DigestChars,
		},
		loop.Config{
			RunID:         runID,
			MaxIterations: cfg.Run.MaxIterations,
			StepLimit:     cfg.Run.StepLimit,
			SyncTimeout:   time.Duration(cfg.Run.SyncTimeoutSeconds) * time.Second,
		})

	report, runErr := controller.Run(cmd.Context(), task)

	if opts.jsonOutput {
		result := HeadlessResult{
			RunID:          report.RunID,
			Outcome:        report.Outcome,
			Iterations:     report.Iterations,
			ElapsedSeconds: report.FinishedAt.Sub(report.StartedAt).Seconds(),
			ReportPath:     filepath.Join(store.RunDir(report.RunID), "report.json"),
			EventLog:       events.Path(),
			Error:          report.Error,
		}
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	} else {
		printReport(cmd, report, store)
	}

	if runErr != nil {
		return runErr
	}
	if report.Outcome != state.OutcomeApproved {
		return fmt.Errorf("run finished %s after %d iterations", report.Outcome, report.Iterations)
	}
	return nil
}

func credential(env map[string]string, key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return env[key]
}
