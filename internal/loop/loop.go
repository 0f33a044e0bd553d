package loop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/thruflo/drover/internal/budget"
	"github.com/thruflo/drover/internal/judge"
	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/state"
	"github.com/thruflo/drover/internal/stream"
	"github.com/thruflo/drover/internal/tools"
)

// State is where the controller is in a run.
type State int

const (
	StateRunning State = iota
	StateAwaitingJudge
	StateApproved
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateAwaitingJudge:
		return "awaiting_judge"
	case StateApproved:
		return "approved"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Evaluator reviews a completion claim and always renders a verdict.
type Evaluator interface {
	Evaluate(ctx context.Context, task string, claim *tools.Claim) *judge.Verdict
}

// Syncer persists the run's results. It is invoked exactly once per run,
// however the run ends.
type Syncer interface {
	Sync(ctx context.Context, report *state.Report, touched []string) error
}

// Config tunes the controller.
type Config struct {
	// RunID identifies the run. Generated when empty.
	RunID string

	// MaxIterations caps worker iterations, judge feedback rounds included.
	MaxIterations int

	// StepLimit caps the worker's internal tool-use rounds per iteration.
	StepLimit int

	// SyncTimeout bounds the final sync. The sync runs on its own context
	// so an aborted run still gets its results out.
	SyncTimeout time.Duration
}

// DefaultConfig returns the standard controller settings.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 10,
		StepLimit:     30,
		SyncTimeout:   60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxIterations == 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.StepLimit == 0 {
		c.StepLimit = d.StepLimit
	}
	if c.SyncTimeout == 0 {
		c.SyncTimeout = d.SyncTimeout
	}
	return c
}

// Controller runs the worker/judge loop for a single task.
type Controller struct {
	runID     string
	worker    model.Client
	toolbox   []model.Tool
	claims    *tools.ClaimRecorder
	evaluator Evaluator
	syncer    Syncer
	events    stream.Publisher
	tracker   *budget.Tracker
	cfg       Config

	st State
}

// NewController wires a controller. The toolbox must include the
// mark_complete tool bound to claims, or the run can never finish
// approved.
func NewController(
	worker model.Client,
	toolbox []model.Tool,
	claims *tools.ClaimRecorder,
	evaluator Evaluator,
	syncer Syncer,
	events stream.Publisher,
	budgetCfg budget.Config,
	cfg Config,
) *Controller {
	if events == nil {
		events = stream.NopPublisher{}
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Controller{
		runID:     runID,
		worker:    worker,
		toolbox:   toolbox,
		claims:    claims,
		evaluator: evaluator,
		syncer:    syncer,
		events:    events,
		tracker:   budget.NewTracker(budgetCfg),
		cfg:       cfg.withDefaults(),
	}
}

// RunID returns the run's identifier.
func (c *Controller) RunID() string {
	return c.runID
}

// State returns where the controller currently is.
func (c *Controller) State() State {
	return c.st
}

const workerPrompt = `You are an autonomous software developer working inside a sandbox.

Complete the task below using the tools available. Work in small verified
steps: read before you edit, run the relevant checks after changes, and
start the dev server and probe it when the task is user-facing.

When you believe the task is done and verified, call mark_complete with a
summary of what you did and how you checked it. A reviewer will verify your
claim; if it is rejected you will get the reviewer's findings and should
address them before claiming again.`

// Run executes the loop until approval, exhaustion or failure. The report
// is always synced before Run returns, on a fresh context so cancellation
// of ctx cannot lose results.
func (c *Controller) Run(ctx context.Context, task string) (report *state.Report, err error) {
	report = &state.Report{
		RunID:     c.runID,
		Task:      task,
		Outcome:   state.OutcomeFailed,
		StartedAt: time.Now().UTC(),
	}
	var touched []string

	defer func() {
		report.FinishedAt = time.Now().UTC()
		c.events.Publish(stream.EventRunFinished, map[string]string{
			"run_id":  c.runID,
			"outcome": report.Outcome,
		})
		if c.syncer == nil {
			return
		}
		syncCtx, cancel := context.WithTimeout(context.Background(), c.cfg.SyncTimeout)
		defer cancel()
		if syncErr := c.syncer.Sync(syncCtx, report, touched); syncErr != nil {
			logging.Error("result sync failed", "run_id", c.runID, "error", syncErr.Error())
			if err == nil {
				err = fmt.Errorf("syncing results: %w", syncErr)
			}
		}
	}()

	c.st = StateRunning
	c.events.Publish(stream.EventRunStarted, map[string]string{"run_id": c.runID, "task": task})
	logging.Info("run started", "run_id", c.runID, "max_iterations", fmt.Sprintf("%d", c.cfg.MaxIterations))

	feedback := ""
	for i := 1; i <= c.cfg.MaxIterations; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.st = StateFailed
			report.Error = ctxErr.Error()
			return report, ctxErr
		}

		report.Iterations = i
		c.events.Publish(stream.EventIterationStarted, map[string]int{"index": i})
		logging.Info("iteration started", "index", fmt.Sprintf("%d", i))

		resp, genErr := c.worker.Generate(ctx, model.Request{
			System:    workerPrompt,
			Messages:  []model.Message{{Role: model.RoleUser, Content: c.buildPrompt(task, feedback)}},
			Tools:     c.toolbox,
			StepLimit: c.cfg.StepLimit,
		})
		if genErr != nil {
			c.st = StateFailed
			report.Error = genErr.Error()
			logging.Error("worker failed", "index", fmt.Sprintf("%d", i), "error", genErr.Error())
			return report, fmt.Errorf("iteration %d: %w", i, genErr)
		}
		feedback = ""

		touched = append(touched, touchedFiles(resp)...)
		c.tracker.Observe(iterationRecord(i, resp))
		c.events.Publish(stream.EventIterationFinished, map[string]interface{}{
			"index":       i,
			"stop_reason": resp.StopReason,
			"tool_calls":  countToolCalls(resp),
		})

		claim := c.claims.Take()
		if claim == nil {
			continue
		}

		c.st = StateAwaitingJudge
		c.events.Publish(stream.EventClaimFiled, claim)
		logging.Info("claim filed", "claim_id", claim.ID, "index", fmt.Sprintf("%d", i))

		verdict := c.evaluator.Evaluate(ctx, task, claim)
		c.events.Publish(stream.EventJudgeVerdict, verdict)

		if verdict.Approved {
			c.st = StateApproved
			report.Outcome = state.OutcomeApproved
			report.Claim = claim
			report.Judge = judgeSummary(verdict)
			logging.Info("run approved", "run_id", c.runID, "iterations", fmt.Sprintf("%d", i))
			return report, nil
		}

		c.st = StateRunning
		report.Judge = judgeSummary(verdict)
		feedback = verdict.Feedback()
		c.tracker.Observe(budget.Record{
			Index:  i,
			Digest: "completion claim rejected: " + verdict.Reason,
			Detail: feedback,
		})
	}

	c.st = StateExhausted
	report.Outcome = state.OutcomeExhausted
	logging.Warn("run exhausted", "run_id", c.runID, "iterations", fmt.Sprintf("%d", c.cfg.MaxIterations))
	return report, nil
}

// buildPrompt composes the worker's user message: the task, the budgeted
// history, and any pending judge feedback.
func (c *Controller) buildPrompt(task, feedback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n", task)

	digest, recent := c.tracker.Compose()
	if len(digest) > 0 {
		b.WriteString("\nEarlier progress (condensed):\n")
		for _, line := range digest {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	if len(recent) > 0 {
		b.WriteString("\nRecent iterations:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "--- iteration %d ---\n%s\n", r.Index, r.Detail)
		}
	}
	if feedback != "" {
		fmt.Fprintf(&b, "\nReviewer feedback:\n%s\n", feedback)
	}
	return b.String()
}

// iterationRecord condenses a worker response for the budgeter. The digest
// must stand alone once the detail is gone, so it carries the files touched,
// the commands run and how the tools fared, not just the commentary.
func iterationRecord(index int, resp *model.Response) budget.Record {
	var files, commands []string
	failures := 0
	for _, step := range resp.Steps {
		for _, call := range step.ToolCalls {
			if mutatingTools[call.Name] {
				if p := gjson.GetBytes(call.Input, "path"); p.Exists() {
					files = append(files, p.String())
				}
			}
			if call.Name == "run_command" {
				if c := gjson.GetBytes(call.Input, "command"); c.Exists() {
					commands = append(commands, c.String())
				}
			}
		}
		for _, result := range step.ToolResults {
			if result.IsError {
				failures++
			}
		}
	}

	var parts []string
	if t := firstLine(resp.Text); t != "" {
		parts = append(parts, t)
	}
	if len(files) > 0 {
		parts = append(parts, "touched "+strings.Join(dedupeStrings(files), ", "))
	}
	if len(commands) > 0 {
		parts = append(parts, "ran "+strings.Join(commands, "; "))
	}
	if failures > 0 {
		parts = append(parts, fmt.Sprintf("%d tool failures", failures))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d tool calls, no commentary", countToolCalls(resp)))
	}
	digest := strings.Join(parts, " | ")

	var detail strings.Builder
	if resp.Text != "" {
		detail.WriteString(resp.Text)
		detail.WriteString("\n")
	}
	for _, step := range resp.Steps {
		for _, call := range step.ToolCalls {
			fmt.Fprintf(&detail, "-> %s\n", call.Name)
		}
		for _, result := range step.ToolResults {
			status := "ok"
			if result.IsError {
				status = "failed"
			}
			fmt.Fprintf(&detail, "<- %s %s: %s\n", result.Name, status, firstLine(result.Output))
		}
	}
	return budget.Record{Index: index, Digest: digest, Detail: strings.TrimSpace(detail.String())}
}

var mutatingTools = map[string]bool{
	"write_file":  true,
	"edit_file":   true,
	"delete_file": true,
}

// touchedFiles pulls the paths the worker mutated this iteration, for the
// final sync. Deleted files are included; the sync skips what is gone.
func touchedFiles(resp *model.Response) []string {
	var paths []string
	for _, step := range resp.Steps {
		for _, call := range step.ToolCalls {
			if !mutatingTools[call.Name] {
				continue
			}
			if p := gjson.GetBytes(call.Input, "path"); p.Exists() {
				paths = append(paths, p.String())
			}
		}
	}
	return paths
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func countToolCalls(resp *model.Response) int {
	n := 0
	for _, step := range resp.Steps {
		n += len(step.ToolCalls)
	}
	return n
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func judgeSummary(v *judge.Verdict) *state.JudgeSummary {
	return &state.JudgeSummary{
		Approved: v.Approved,
		Reason:   v.Reason,
		Issues:   v.Issues,
		Note:     v.Note,
	}
}
