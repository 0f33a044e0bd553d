package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thruflo/drover/internal/sandbox"
)

func TestSaveAndLoadReport(t *testing.T) {
	store := NewStore(t.TempDir())
	report := &Report{
		RunID:      "run-1",
		Task:       "build a todo app",
		Outcome:    OutcomeApproved,
		Iterations: 4,
		Judge:      &JudgeSummary{Approved: true, Reason: "works as described"},
		StartedAt:  time.Now().UTC().Add(-time.Minute),
		FinishedAt: time.Now().UTC(),
	}

	if err := store.SaveReport(report); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	loaded, err := store.LoadReport("run-1")
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if loaded.Outcome != OutcomeApproved || loaded.Iterations != 4 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Judge == nil || !loaded.Judge.Approved {
		t.Errorf("judge summary lost: %+v", loaded.Judge)
	}
}

func TestSaveReportOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())
	report := &Report{RunID: "run-1", Outcome: OutcomeFailed}
	if err := store.SaveReport(report); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	report.Outcome = OutcomeApproved
	if err := store.SaveReport(report); err != nil {
		t.Fatalf("second SaveReport: %v", err)
	}

	loaded, err := store.LoadReport("run-1")
	if err != nil {
		t.Fatalf("LoadReport: %v", err)
	}
	if loaded.Outcome != OutcomeApproved {
		t.Errorf("outcome = %q", loaded.Outcome)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(store.RunDir("run-1"))
	if len(entries) != 1 {
		t.Errorf("run dir should contain only report.json, got %d entries", len(entries))
	}
}

func TestListRuns(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, id := range []string{"run-b", "run-a"} {
		if err := store.SaveReport(&Report{RunID: id, Outcome: OutcomeFailed}); err != nil {
			t.Fatalf("SaveReport(%s): %v", id, err)
		}
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0] != "run-a" || runs[1] != "run-b" {
		t.Errorf("runs = %v", runs)
	}
}

func TestListRunsEmptyStore(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs = %v", runs)
	}
}

func TestSyncPullsTouchedFiles(t *testing.T) {
	store := NewStore(t.TempDir())
	mock := sandbox.NewMockClient()
	mock.SetFile("/app/src/app.js", []byte("export default function App() {}"))
	mock.SetFile("/app/package.json", []byte(`{"name": "app"}`))

	m := NewSyncManager(store, mock, "/app")
	report := &Report{RunID: "run-1", Outcome: OutcomeApproved}
	touched := []string{"src/app.js", "package.json", "src/app.js", "deleted-later.js"}

	if err := m.Sync(context.Background(), report, touched); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(store.RunDir("run-1"), "files", "src", "app.js"))
	if err != nil {
		t.Fatalf("synced file missing: %v", err)
	}
	if string(got) != "export default function App() {}" {
		t.Errorf("content = %q", got)
	}

	// The vanished file is skipped, not an error.
	if _, err := os.Stat(filepath.Join(store.RunDir("run-1"), "files", "deleted-later.js")); !os.IsNotExist(err) {
		t.Error("a vanished file must not appear in the store")
	}

	if report.SyncedAt.IsZero() {
		t.Error("sync must stamp the report")
	}
	if _, err := store.LoadReport("run-1"); err != nil {
		t.Errorf("report must be written by sync: %v", err)
	}
}

func TestSyncPullsAbsolutePaths(t *testing.T) {
	store := NewStore(t.TempDir())
	mock := sandbox.NewMockClient()
	mock.SetFile("/tmp/notes.txt", []byte("scratch"))

	m := NewSyncManager(store, mock, "/app")
	report := &Report{RunID: "run-1", Outcome: OutcomeApproved}

	// An absolute touched path addresses the sandbox directly, not workDir.
	if err := m.Sync(context.Background(), report, []string{"/tmp/notes.txt"}); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(store.RunDir("run-1"), "files", "tmp", "notes.txt"))
	if err != nil {
		t.Fatalf("synced file missing: %v", err)
	}
	if string(got) != "scratch" {
		t.Errorf("content = %q", got)
	}
}
