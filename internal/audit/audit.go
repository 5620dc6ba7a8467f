// Package audit provides structured event logging for deployment runs.
// Events are stored as JSON Lines (JSONL) files, one per run.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/agent-deploy/internal/logging"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

// EventType classifies a run event.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunFinish    EventType = "run_finish"
	EventTargetStart  EventType = "target_start"
	EventStageStart   EventType = "stage_start"
	EventStageSuccess EventType = "stage_success"
	EventStageFailure EventType = "stage_failure"
	EventTargetFinish EventType = "target_finish"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Type      EventType `json:"event"`
	Target    string    `json:"target,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	State     string    `json:"state,omitempty"`
	Details   string    `json:"detail,omitempty"`
}

// Logger writes and reads audit events of one run.
// Events are stored in {dir}/{run-id}.jsonl.
type Logger struct {
	dir   string
	runID string
	mu    sync.Mutex
}

// NewLogger creates a new audit logger for runID rooted at dir.
func NewLogger(dir, runID string) (*Logger, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	return &Logger{dir: dir, runID: runID}, nil
}

// RunID returns the run the logger writes for.
func (l *Logger) RunID() string {
	return l.runID
}

// Path returns the path to the JSONL event log of the run.
func (l *Logger) Path() string {
	return filepath.Join(l.dir, l.runID+".jsonl")
}

// Log appends an event to the run's audit log. Safe for concurrent use.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(l.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent is a convenience method that creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, target, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Target:    target,
		Details:   details,
	})
}

// Observe records a pipeline event. Write failures are logged, never
// propagated: an unwritable audit log must not fail a deployment.
func (l *Logger) Observe(ev pipeline.Event) {
	event := Event{
		Timestamp: ev.Time,
		Target:    ev.Target,
		Stage:     string(ev.Stage),
		State:     string(ev.State),
	}
	switch ev.Kind {
	case pipeline.EventTargetStarted:
		event.Type = EventTargetStart
	case pipeline.EventStageStarted:
		event.Type = EventStageStart
	case pipeline.EventStageSucceeded:
		event.Type = EventStageSuccess
		event.Details = "duration=" + ev.Duration.String()
	case pipeline.EventStageFailed:
		event.Type = EventStageFailure
		if ev.Err != nil {
			event.Details = ev.Err.Error()
		}
	case pipeline.EventTargetFinished:
		event.Type = EventTargetFinish
		event.Details = "duration=" + ev.Duration.String()
	default:
		return
	}

	if err := l.Log(event); err != nil {
		logging.Warn("failed to write audit event", "run_id", l.runID, "error", err)
	}
}

// Events reads all events of the run in the order they were written.
func (l *Logger) Events() ([]Event, error) {
	return ReadEvents(l.Path())
}

// ReadEvents reads an audit log file.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Remove deletes the run's audit log.
func (l *Logger) Remove() error {
	if err := os.Remove(l.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
