package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

// EventKind identifies a pipeline transition.
type EventKind string

const (
	EventTargetStarted  EventKind = "target_started"
	EventStageStarted   EventKind = "stage_started"
	EventStageSucceeded EventKind = "stage_succeeded"
	EventStageFailed    EventKind = "stage_failed"
	EventTargetFinished EventKind = "target_finished"
)

// Event describes one transition of one target.
type Event struct {
	Kind     EventKind
	Target   string
	Stage    Stage
	State    State
	Err      error
	Duration time.Duration
	Time     time.Time
}

// Observer receives pipeline events. Targets run concurrently, so
// implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observers fans an event out to each non-nil observer in order.
type Observers []Observer

func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ev)
		}
	}
}

// LogObserver logs stage transitions.
type LogObserver struct {
	Logger *slog.Logger
}

func (l LogObserver) Observe(ev Event) {
	if l.Logger == nil {
		return
	}
	attrs := []any{"target", ev.Target}
	if ev.Stage != "" {
		attrs = append(attrs, "stage", ev.Stage)
	}
	switch ev.Kind {
	case EventStageStarted:
		l.Logger.Debug("stage started", attrs...)
	case EventStageSucceeded:
		l.Logger.Info("stage succeeded", append(attrs, "state", ev.State, "duration", ev.Duration)...)
	case EventStageFailed:
		l.Logger.Error("stage failed", append(attrs, "error", ev.Err, "duration", ev.Duration)...)
	case EventTargetFinished:
		l.Logger.Debug("target finished", append(attrs, "state", ev.State, "duration", ev.Duration)...)
	}
}

// Recorder is an Observer that keeps every event, for tests and reports.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ForTarget returns the recorded events of one target.
func (r *Recorder) ForTarget(name string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Target == name {
			out = append(out, ev)
		}
	}
	return out
}
