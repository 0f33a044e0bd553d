// Package state persists run results on the local machine. The sandbox is
// ephemeral; anything worth keeping is pulled out before it disappears and
// written under the store's root, one directory per run.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/thruflo/drover/internal/tools"
)

// Run outcomes recorded in a report.
const (
	OutcomeApproved  = "approved"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
)

// JudgeSummary captures the final verdict in a report.
type JudgeSummary struct {
	Approved bool     `json:"approved"`
	Reason   string   `json:"reason,omitempty"`
	Issues   []string `json:"issues,omitempty"`
	Note     string   `json:"note,omitempty"`
}

// Report is the durable record of a run.
type Report struct {
	RunID      string        `json:"run_id"`
	Task       string        `json:"task"`
	Outcome    string        `json:"outcome"`
	Iterations int           `json:"iterations"`
	Claim      *tools.Claim  `json:"claim,omitempty"`
	Judge      *JudgeSummary `json:"judge,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	SyncedAt   time.Time     `json:"synced_at"`
}

// Store lays runs out under root as <root>/<run-id>/ with report.json and a
// files/ tree of synced artifacts.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root. Nothing is created until the
// first write.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// RunDir returns the directory for a run.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

// SaveReport writes the run report atomically: the JSON goes to a temp file
// in the run directory, then renames over report.json.
func (s *Store) SaveReport(report *Report) error {
	dir := s.RunDir(report.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "report-*.json")
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing report: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, "report.json")); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing report: %w", err)
	}
	return nil
}

// LoadReport reads a run's report.
func (s *Store) LoadReport(runID string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), "report.json"))
	if err != nil {
		return nil, fmt.Errorf("reading report for %s: %w", runID, err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report for %s: %w", runID, err)
	}
	return &report, nil
}

// SaveFile stores a synced artifact under the run's files/ tree.
func (s *Store) SaveFile(runID, relPath string, content []byte) error {
	target := filepath.Join(s.RunDir(runID), "files", filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relPath, err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", relPath, err)
	}
	return nil
}

// EventLogPath returns where the run's event log lives.
func (s *Store) EventLogPath(runID string) string {
	return filepath.Join(s.RunDir(runID), "events.ndjson")
}

// ListRuns returns the run ids present in the store, sorted.
func (s *Store) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	var runs []string
	for _, e := range entries {
		if e.IsDir() {
			runs = append(runs, e.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}
