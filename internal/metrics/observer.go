package metrics

import (
	"errors"

	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

// Observer feeds pipeline events into a Recorder.
type Observer struct {
	Recorder Recorder
}

// NewObserver returns a pipeline observer recording into r.
func NewObserver(r Recorder) *Observer {
	if r == nil {
		r = NoopRecorder{}
	}
	return &Observer{Recorder: r}
}

func (o *Observer) Observe(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventStageSucceeded:
		o.Recorder.ObserveStageDuration(string(ev.Stage), ev.Duration)
		o.Recorder.IncStageResult(string(ev.Stage), ResultSuccess)
	case pipeline.EventStageFailed:
		o.Recorder.ObserveStageDuration(string(ev.Stage), ev.Duration)
		result := ResultFailed
		if errors.Is(ev.Err, pipeline.ErrTimeout) {
			result = ResultTimeout
		}
		o.Recorder.IncStageResult(string(ev.Stage), result)
	case pipeline.EventTargetFinished:
		outcome := "succeeded"
		if ev.State == pipeline.StateFailed {
			outcome = "failed(" + string(ev.Stage) + ")"
		}
		o.Recorder.IncTargetOutcome(outcome)
	}
}
