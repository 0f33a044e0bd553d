package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thruflo/drover/internal/model"
)

// Claim is a completion claim the worker files when it believes the task is
// done. Filing one hands the run to the judge; it is a claim, not a verdict.
type Claim struct {
	ID            string    `json:"id"`
	Summary       string    `json:"summary"`
	ModifiedFiles []string  `json:"modified_files"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClaimRecorder holds at most one pending claim. Take hands the claim to the
// controller and clears it, so a rejected claim cannot be re-judged without
// the worker filing a fresh one.
type ClaimRecorder struct {
	mu      sync.Mutex
	pending *Claim
}

// NewClaimRecorder returns an empty recorder.
func NewClaimRecorder() *ClaimRecorder {
	return &ClaimRecorder{}
}

// Record files a claim, replacing any pending one.
func (r *ClaimRecorder) Record(summary string, modifiedFiles []string) Claim {
	claim := Claim{
		ID:            uuid.NewString(),
		Summary:       summary,
		ModifiedFiles: modifiedFiles,
		CreatedAt:     time.Now().UTC(),
	}
	r.mu.Lock()
	r.pending = &claim
	r.mu.Unlock()
	return claim
}

// Take returns the pending claim and clears it, or nil if none is pending.
func (r *ClaimRecorder) Take() *Claim {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim := r.pending
	r.pending = nil
	return claim
}

// Pending reports whether a claim is waiting to be taken.
func (r *ClaimRecorder) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

type markCompleteInput struct {
	Summary       string   `json:"summary" jsonschema_description:"What was accomplished and how it was verified."`
	ModifiedFiles []string `json:"modified_files,omitempty" jsonschema_description:"Files created or changed during the work."`
}

// NewMarkCompleteTool files a completion claim with the recorder.
func NewMarkCompleteTool(rec *ClaimRecorder) model.Tool {
	return New("mark_complete",
		"Declare the task complete. A reviewer checks the work before the run is approved.",
		func(ctx context.Context, input markCompleteInput) Result {
			if strings.TrimSpace(input.Summary) == "" {
				return Failure("summary is required: describe what was done and how it was verified")
			}
			claim := rec.Record(input.Summary, input.ModifiedFiles)
			return Success(fmt.Sprintf("completion recorded (%s)\nmodified files: %s",
				claim.ID, strings.Join(claim.ModifiedFiles, ", ")))
		})
}
