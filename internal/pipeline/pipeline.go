package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firefly-engineering/agent-deploy/internal/patch"
)

// ErrTimeout marks a stage that ran past the per-stage deadline.
var ErrTimeout = errors.New("timeout")

// StageError records which stage failed a target and why.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Job is the working set one target's steps share while its pipeline runs.
type Job struct {
	Target     Target
	Directives []patch.Directive

	// ConfigChanged is set by the configure step when it rewrote the file.
	ConfigChanged bool
}

// Step performs one stage for a target.
type Step interface {
	Stage() Stage
	Run(ctx context.Context, job *Job) error
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	Name Stage
	Fn   func(ctx context.Context, job *Job) error
}

func (s StepFunc) Stage() Stage { return s.Name }

func (s StepFunc) Run(ctx context.Context, job *Job) error { return s.Fn(ctx, job) }

// Pipeline runs an ordered list of steps for one target at a time. It holds
// no per-target state and is safe to share between goroutines as long as
// its steps and observer are.
type Pipeline struct {
	Steps []Step

	// StageTimeout bounds each stage; zero means no limit.
	StageTimeout time.Duration

	Observer Observer

	// Now is used for timestamps and durations; defaults to time.Now.
	Now func() time.Time
}

// New returns a pipeline over steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{Steps: steps}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) notify(ev Event) {
	if p.Observer != nil {
		p.Observer.Observe(ev)
	}
}

// Run drives target through every step in order and stops at the first
// failure. It never returns an error of its own: the outcome, failed or
// not, is the returned Result.
func (p *Pipeline) Run(ctx context.Context, target Target, directives []patch.Directive) Result {
	job := &Job{Target: target, Directives: directives}
	start := p.now()
	state := StatePending

	p.notify(Event{Kind: EventTargetStarted, Target: target.Name, State: state, Time: start})

	finish := func(res Result) Result {
		res.Target = target.Name
		res.ConfigChanged = job.ConfigChanged
		res.Duration = p.now().Sub(start)
		p.notify(Event{
			Kind:     EventTargetFinished,
			Target:   target.Name,
			Stage:    res.FailedStage,
			State:    res.State,
			Err:      res.Err,
			Duration: res.Duration,
			Time:     p.now(),
		})
		return res
	}

	for _, step := range p.Steps {
		stage := step.Stage()
		if err := ctx.Err(); err != nil {
			return finish(Result{State: StateFailed, FailedStage: stage, Err: &StageError{Stage: stage, Err: err}})
		}

		stageStart := p.now()
		p.notify(Event{Kind: EventStageStarted, Target: target.Name, Stage: stage, State: state, Time: stageStart})

		err := p.runStep(ctx, step, job)
		elapsed := p.now().Sub(stageStart)
		if err != nil {
			serr := &StageError{Stage: stage, Err: err}
			p.notify(Event{
				Kind:     EventStageFailed,
				Target:   target.Name,
				Stage:    stage,
				State:    StateFailed,
				Err:      serr,
				Duration: elapsed,
				Time:     p.now(),
			})
			return finish(Result{State: StateFailed, FailedStage: stage, Err: serr})
		}

		state = stage.Reached()
		p.notify(Event{
			Kind:     EventStageSucceeded,
			Target:   target.Name,
			Stage:    stage,
			State:    state,
			Duration: elapsed,
			Time:     p.now(),
		})
	}

	return finish(Result{State: state})
}

func (p *Pipeline) runStep(ctx context.Context, step Step, job *Job) error {
	if p.StageTimeout <= 0 {
		return step.Run(ctx, job)
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.StageTimeout)
	defer cancel()

	err := step.Run(stageCtx, job)
	if err != nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w after %s: %v", ErrTimeout, p.StageTimeout, err)
	}
	return err
}
