package judge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/thruflo/drover/internal/model"
	"github.com/thruflo/drover/internal/sandbox"
	"github.com/thruflo/drover/internal/tools"
)

func testClaim() *tools.Claim {
	return &tools.Claim{
		ID:            "claim-1",
		Summary:       "built the counter and verified it increments",
		ModifiedFiles: []string{"src/Counter.jsx"},
	}
}

func TestEvaluateApproves(t *testing.T) {
	client := model.NewScriptedClient(
		model.ScriptedTurn{Calls: []model.ScriptedCall{{
			Tool:  "approve",
			Input: `{"reason": "counter renders and increments"}`,
		}}},
	)
	j := New(client, sandbox.NewMockClient(), Config{}, tools.Options{})

	verdict := j.Evaluate(context.Background(), "build a counter", testClaim())
	if !verdict.Approved {
		t.Fatalf("verdict = %+v", verdict)
	}
	if verdict.Reason != "counter renders and increments" {
		t.Errorf("reason = %q", verdict.Reason)
	}
	if verdict.Note != "" {
		t.Errorf("a rendered verdict carries no note: %q", verdict.Note)
	}
}

func TestEvaluateRequestsChanges(t *testing.T) {
	client := model.NewScriptedClient(
		model.ScriptedTurn{Calls: []model.ScriptedCall{{
			Tool:  "request_changes",
			Input: `{"reason": "the counter never increments", "issues": ["onClick handler missing", "no state hook"], "suggestions": ["wire useState into Counter"]}`,
		}}},
	)
	j := New(client, sandbox.NewMockClient(), Config{}, tools.Options{})

	verdict := j.Evaluate(context.Background(), "build a counter", testClaim())
	if verdict.Approved {
		t.Fatalf("verdict = %+v", verdict)
	}
	if len(verdict.Issues) != 2 {
		t.Errorf("issues = %v", verdict.Issues)
	}

	feedback := verdict.Feedback()
	for _, want := range []string{"not approved", "onClick handler missing", "mark_complete"} {
		if !strings.Contains(feedback, want) {
			t.Errorf("feedback missing %q:\n%s", want, feedback)
		}
	}
}

func TestEvaluateNoVerdictDefaultsToApprove(t *testing.T) {
	client := model.NewScriptedClient(
		model.ScriptedTurn{Text: "looks plausible but I ran out of things to check"},
	)
	j := New(client, sandbox.NewMockClient(), Config{DefaultApprove: true}, tools.Options{})

	verdict := j.Evaluate(context.Background(), "build a counter", testClaim())
	if !verdict.Approved {
		t.Fatalf("verdict = %+v", verdict)
	}
	if verdict.Note == "" {
		t.Error("a defaulted verdict must say why")
	}
}

func TestEvaluateNoVerdictCanDefaultToReject(t *testing.T) {
	client := model.NewScriptedClient(
		model.ScriptedTurn{Text: "no verdict from me"},
	)
	j := New(client, sandbox.NewMockClient(), Config{DefaultApprove: false}, tools.Options{})

	verdict := j.Evaluate(context.Background(), "build a counter", testClaim())
	if verdict.Approved {
		t.Fatalf("verdict = %+v", verdict)
	}
	if verdict.Note == "" || verdict.Reason == "" {
		t.Errorf("a defaulted rejection carries a note and reason: %+v", verdict)
	}
}

func TestEvaluateErrorDefaults(t *testing.T) {
	client := model.NewScriptedClient(
		model.ScriptedTurn{Err: errors.New("model unavailable")},
	)
	j := New(client, sandbox.NewMockClient(), Config{DefaultApprove: true}, tools.Options{})

	verdict := j.Evaluate(context.Background(), "build a counter", testClaim())
	if !verdict.Approved {
		t.Fatalf("verdict = %+v", verdict)
	}
	if !strings.Contains(verdict.Note, "model unavailable") {
		t.Errorf("note should carry the failure: %q", verdict.Note)
	}
}

func TestEvaluateInspectsBeforeVerdict(t *testing.T) {
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/src/Counter.jsx", []byte("export function Counter() {}"))

	client := model.NewScriptedClient(
		model.ScriptedTurn{Calls: []model.ScriptedCall{
			{Tool: "read_file", Input: `{"path": "src/Counter.jsx"}`},
			{Tool: "approve", Input: `{"reason": "component exists"}`},
		}},
	)
	j := New(client, mock, Config{}, tools.Options{})

	verdict := j.Evaluate(context.Background(), "build a counter", testClaim())
	if !verdict.Approved {
		t.Fatalf("verdict = %+v", verdict)
	}
	if len(mock.ReadCalls()) == 0 {
		t.Error("the inspection tools must hit the sandbox")
	}
}

func TestRejectionWithoutIssuesIsPushedBack(t *testing.T) {
	rec := &verdictRecorder{}
	tool := newRequestChangesTool(rec)

	out := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if !out.IsError {
		t.Fatal("an empty rejection must be refused")
	}
	if rec.take() != nil {
		t.Error("no verdict should be recorded for a refused rejection")
	}
}

func TestReviewPromptCarriesClaim(t *testing.T) {
	prompt := reviewPrompt("build a counter", testClaim())
	for _, want := range []string{"build a counter", "verified it increments", "src/Counter.jsx"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
