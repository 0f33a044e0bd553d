// Package budget keeps the conversation sent to the model inside a token
// ceiling. Recent iterations travel verbatim; older ones are folded into a
// one-line-per-iteration decision log, and the oldest digest lines are
// dropped outright if the log itself outgrows the ceiling.
package budget

import (
	"fmt"
	"sync"

	"github.com/thruflo/drover/internal/logging"
)

// Config tunes the budgeter. Zero values fall back to defaults.
type Config struct {
	// TokenBudget is the ceiling for the composed history, in estimated
	// tokens.
	TokenBudget int

	// RecentWindow is how many trailing iterations are kept verbatim.
	RecentWindow int

	// DigestChars caps each decision-log line, in characters.
	DigestChars int
}

// DefaultConfig returns the standard budget settings.
func DefaultConfig() Config {
	return Config{
		TokenBudget:  60000,
		RecentWindow: 3,
		DigestChars:  300,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TokenBudget == 0 {
		c.TokenBudget = d.TokenBudget
	}
	if c.RecentWindow == 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.DigestChars == 0 {
		c.DigestChars = d.DigestChars
	}
	return c
}

// EstimateTokens approximates the token count of s. Four characters per
// token is close enough for budgeting; exactness is not required, only
// monotonicity.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// Record is one iteration's history as the budgeter sees it.
type Record struct {
	// Index is the iteration's 1-based position in the run.
	Index int

	// Digest is a one-line account of what the iteration did.
	Digest string

	// Detail is the full narrative, kept only while the record is inside
	// the recent window.
	Detail string
}

// Tracker accumulates iteration records and composes them into a bounded
// history. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	records []Record
	dropped int
}

// NewTracker returns a Tracker with the given config.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg.withDefaults()}
}

// Observe appends an iteration record.
func (t *Tracker) Observe(r Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(r.Digest) > t.cfg.DigestChars {
		r.Digest = r.Digest[:t.cfg.DigestChars] + "..."
	}
	t.records = append(t.records, r)
}

// Compose returns the decision log and the recent records. The trailing
// RecentWindow records are always returned verbatim; only what is already
// summarized is fitted to the token budget, by shedding the oldest digest
// lines. The window itself may push usage past the budget.
func (t *Tracker) Compose() (digest []string, recent []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	split := len(t.records) - t.cfg.RecentWindow
	if split < 0 {
		split = 0
	}
	for _, r := range t.records[:split] {
		digest = append(digest, digestLine(r))
	}
	recent = append(recent, t.records[split:]...)

	droppedNow := 0
	freed := 0
	for len(digest) > 0 && t.usage(digest, recent) > t.cfg.TokenBudget {
		freed += EstimateTokens(digest[0])
		digest = digest[1:]
		droppedNow++
	}
	if droppedNow > 0 {
		t.dropped += droppedNow
		logging.Info("history compacted",
			"dropped", fmt.Sprintf("%d", droppedNow),
			"dropped_total", fmt.Sprintf("%d", t.dropped),
			"tokens_recovered", fmt.Sprintf("%d", freed),
		)
	}
	return digest, recent
}

// Dropped reports how many digest lines have been shed over the run.
func (t *Tracker) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Len reports how many records have been observed.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

func (t *Tracker) usage(digest []string, recent []Record) int {
	total := 0
	for _, d := range digest {
		total += EstimateTokens(d)
	}
	for _, r := range recent {
		total += EstimateTokens(r.Detail)
	}
	return total
}

func digestLine(r Record) string {
	return fmt.Sprintf("iteration %d: %s", r.Index, r.Digest)
}
