package state

import (
	"context"
	"errors"
	"path"
	"strconv"
	"time"

	"github.com/thruflo/drover/internal/logging"
	"github.com/thruflo/drover/internal/sandbox"
)

// SyncManager copies run artifacts out of the sandbox into the store. File
// pulls are best-effort; only a failure to persist the report itself fails
// the sync.
type SyncManager struct {
	store   *Store
	client  sandbox.Client
	workDir string
}

// NewSyncManager returns a SyncManager pulling from workDir in the sandbox.
func NewSyncManager(store *Store, client sandbox.Client, workDir string) *SyncManager {
	return &SyncManager{store: store, client: client, workDir: workDir}
}

// Sync pulls the touched files out of the sandbox and writes the report.
// Files that vanished from the sandbox are skipped; unreadable files are
// logged and skipped. The report is written last so it reflects the sync.
func (m *SyncManager) Sync(ctx context.Context, report *Report, touched []string) error {
	pulled := 0
	for _, relPath := range dedupe(touched) {
		data, err := m.client.ReadFile(ctx, m.resolve(relPath))
		if errors.Is(err, sandbox.ErrNotFound) {
			logging.Debug("skipping vanished file", "path", relPath)
			continue
		}
		if err != nil {
			logging.Warn("file pull failed", "path", relPath, "error", err.Error())
			continue
		}
		if err := m.store.SaveFile(report.RunID, relPath, data); err != nil {
			logging.Warn("file save failed", "path", relPath, "error", err.Error())
			continue
		}
		pulled++
	}

	report.SyncedAt = time.Now().UTC()
	if err := m.store.SaveReport(report); err != nil {
		return err
	}
	logging.Info("run synced", "run_id", report.RunID, "outcome", report.Outcome, "files", strconv.Itoa(pulled))
	return nil
}

// resolve maps a touched path to its sandbox location. Absolute paths are
// used as-is, matching how the file tools address the sandbox; anything
// else is taken relative to the working directory.
func (m *SyncManager) resolve(p string) string {
	if path.IsAbs(p) {
		return p
	}
	return path.Join(m.workDir, p)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	var out []string
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
