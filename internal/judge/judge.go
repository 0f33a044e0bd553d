// Package judge reviews completion claims. The judge is its own agent with
// a read-and-verify toolbox: it can inspect files, run commands and probe
// the running app, but it cannot modify the project. Its decision arrives
// through one of two verdict tools; everything else it says is commentary.
package judge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
	"github.com/thruflo/drover/internal/tools"
)

// Verdict is the judge's decision on a claim.
type Verdict struct {
	Approved    bool     `json:"approved"`
	Reason      string   `json:"reason,omitempty"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Note is set when the verdict was defaulted rather than rendered, and
	// says why.
	Note string `json:"note,omitempty"`
}

// Feedback renders the verdict as guidance for the worker's next attempt.
func (v *Verdict) Feedback() string {
	var b strings.Builder
	b.WriteString("Your completion claim was reviewed and not approved.\n")
	if v.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", v.Reason)
	}
	if len(v.Issues) > 0 {
		b.WriteString("Issues found:\n")
		for _, issue := range v.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	if len(v.Suggestions) > 0 {
		b.WriteString("Suggestions:\n")
		for _, s := range v.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	b.WriteString("Address the issues, then call mark_complete again.")
	return b.String()
}

// Config tunes the judge.
type Config struct {
	// StepBudget caps the judge's internal tool-use rounds.
	StepBudget int

	// DefaultApprove decides the verdict when the judge errors out or ends
	// without rendering one.
	DefaultApprove bool
}

// DefaultConfig returns the standard judge settings: a modest step budget
// and approval on judge failure, on the grounds that a broken reviewer
// should not hold finished work hostage.
func DefaultConfig() Config {
	return Config{StepBudget: 15, DefaultApprove: true}
}

// Judge evaluates completion claims against the live sandbox.
type Judge struct {
	client   model.Client
	sandbox  sandbox.Client
	cfg      Config
	toolOpts tools.Options
}

// New returns a Judge. A zero StepBudget falls back to the default.
func New(client model.Client, sb sandbox.Client, cfg Config, toolOpts tools.Options) *Judge {
	if cfg.StepBudget == 0 {
		cfg.StepBudget = DefaultConfig().StepBudget
	}
	return &Judge{client: client, sandbox: sb, cfg: cfg, toolOpts: toolOpts}
}

const systemPrompt = `You are a strict but fair reviewer of completed coding work.

A worker claims the task below is done. Verify the claim against the actual
project state: read the files it says it changed, run the relevant checks,
start the dev server and probe it if the task is user-facing. Judge what is
actually there, not what the summary says.

You MUST finish by calling exactly one of the verdict tools:
- approve: the work fulfils the task
- request_changes: it does not; list the concrete issues

Do not approve work you could not verify.`

// Evaluate reviews a claim and always returns a verdict. A judge that
// errors or fails to render one yields the configured default, with a Note
// saying so.
func (j *Judge) Evaluate(ctx context.Context, task string, claim *tools.Claim) *Verdict {
	rec := &verdictRecorder{}
	toolbox := append(
		tools.InspectionToolbox(j.sandbox, j.toolOpts),
		newApproveTool(rec),
		newRequestChangesTool(rec),
	)

	resp, err := j.client.Generate(ctx, model.Request{
		System: systemPrompt,
		Messages: []model.Message{
			{Role: model.RoleUser, Content: reviewPrompt(task, claim)},
		},
		Tools:     toolbox,
		StepLimit: j.cfg.StepBudget,
	})
	if err != nil {
		logging.Warn("judge failed", "error", err.Error())
		return j.defaulted(fmt.Sprintf("review failed: %v", err))
	}

	verdict := rec.take()
	if verdict == nil {
		logging.Warn("judge rendered no verdict", "stop_reason", resp.StopReason)
		return j.defaulted("reviewer finished without rendering a verdict")
	}
	logging.Info("verdict rendered", "approved", fmt.Sprintf("%t", verdict.Approved))
	return verdict
}

func (j *Judge) defaulted(note string) *Verdict {
	v := &Verdict{Approved: j.cfg.DefaultApprove, Note: note}
	if !v.Approved {
		v.Reason = note
	}
	return v
}

func reviewPrompt(task string, claim *tools.Claim) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task:\n%s\n\n", task)
	fmt.Fprintf(&b, "The worker claims this is complete.\nSummary: %s\n", claim.Summary)
	if len(claim.ModifiedFiles) > 0 {
		fmt.Fprintf(&b, "Files it reports touching:\n")
		for _, f := range claim.ModifiedFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	b.WriteString("\nVerify the claim and render your verdict.")
	return b.String()
}

type verdictRecorder struct {
	mu      sync.Mutex
	verdict *Verdict
}

func (r *verdictRecorder) record(v Verdict) {
	r.mu.Lock()
	r.verdict = &v
	r.mu.Unlock()
}

func (r *verdictRecorder) take() *Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.verdict
	r.verdict = nil
	return v
}

type approveInput struct {
	Reason string `json:"reason" jsonschema_description:"Why the work fulfils the task, citing what was verified."`
}

type requestChangesInput struct {
	Reason      string   `json:"reason" jsonschema_description:"Why the work does not fulfil the task."`
	Issues      []string `json:"issues" jsonschema_description:"Concrete problems found during verification."`
	Suggestions []string `json:"suggestions,omitempty" jsonschema_description:"Optional hints for fixing the issues."`
}

func newApproveTool(rec *verdictRecorder) model.Tool {
	return tools.New("approve",
		"Approve the claim: the work fulfils the task.",
		func(ctx context.Context, input approveInput) tools.Result {
			rec.record(Verdict{Approved: true, Reason: input.Reason})
			return tools.Success("verdict recorded: approved")
		})
}

func newRequestChangesTool(rec *verdictRecorder) model.Tool {
	return tools.New("request_changes",
		"Reject the claim and send the worker back with concrete issues.",
		func(ctx context.Context, input requestChangesInput) tools.Result {
			if len(input.Issues) == 0 && input.Reason == "" {
				return tools.Failure("a rejection needs a reason or at least one issue")
			}
			rec.record(Verdict{
				Approved:    false,
				Reason:      input.Reason,
				Issues:      input.Issues,
				Suggestions: input.Suggestions,
			})
			return tools.Success("verdict recorded: changes requested")
		})
}
