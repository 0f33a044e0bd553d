// Package stream records run events as an append-only NDJSON log. The log
// is the run's observable history; readers can tail the file or load it
// after the fact to reconstruct what happened.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/thruflo/drover/internal/logging"
)

// Event types emitted over a run.
const (
	EventRunStarted        = "run.started"
	EventIterationStarted  = "iteration.started"
	EventIterationFinished = "iteration.finished"
	EventClaimFiled        = "claim.filed"
	EventJudgeVerdict      = "judge.verdict"
	EventRunFinished       = "run.finished"
)

// Event is one line of the run log. Seq is assigned at append time and is
// strictly increasing within a store.
type Event struct {
	Seq  int64           `json:"seq"`
	Type string          `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Publisher accepts run events. Implementations must not block the run;
// publishing failures are logged, never surfaced.
type Publisher interface {
	Publish(eventType string, data interface{})
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) Publish(string, interface{}) {}

// FileStore appends events to an NDJSON file. Safe for concurrent use.
type FileStore struct {
	mu   sync.Mutex
	f    *os.File
	path string
	seq  int64
}

// NewFileStore opens (or creates) the log at path, creating parent
// directories. An existing log is appended to with the sequence resumed.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	seq, err := lastSeq(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	return &FileStore{f: f, path: path, seq: seq}, nil
}

// Publish appends an event. Marshal and write failures are logged and
// swallowed so a full disk cannot kill a run.
func (s *FileStore) Publish(eventType string, data interface{}) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			logging.Warn("event payload not serializable", "type", eventType, "error", err.Error())
		} else {
			raw = b
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event := Event{Seq: s.seq, Type: eventType, Time: time.Now().UTC(), Data: raw}
	line, err := json.Marshal(event)
	if err != nil {
		logging.Warn("event not serializable", "type", eventType, "error", err.Error())
		return
	}
	if _, err := s.f.Write(append(line, '\n')); err != nil {
		logging.Warn("event log write failed", "type", eventType, "error", err.Error())
	}
}

// Path returns the log file's location.
func (s *FileStore) Path() string {
	return s.path
}

// Close flushes and closes the log.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// ReadAll loads every event from the log at path. Lines that fail to parse
// are skipped with a warning rather than failing the read.
func ReadAll(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			logging.Warn("skipping malformed event line", "error", err.Error())
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("reading event log: %w", err)
	}
	return events, nil
}

func lastSeq(path string) (int64, error) {
	events, err := ReadAll(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		// An unreadable existing log is surfaced; silently restarting the
		// sequence would corrupt ordering for readers.
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	return events[len(events)-1].Seq, nil
}
