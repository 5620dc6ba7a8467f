// Package fleet runs the provisioning pipeline across many targets at once.
package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/firefly-engineering/agent-deploy/internal/logging"
	"github.com/firefly-engineering/agent-deploy/internal/patch"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

// NewRunID returns a fresh identifier for one deployment run.
func NewRunID() string {
	return uuid.NewString()
}

// Orchestrator fans a pipeline out over targets.
type Orchestrator struct {
	Pipeline *pipeline.Pipeline

	// Limit caps how many targets run at once; 0 runs all of them together.
	Limit int

	// RunID labels the run; one is generated when empty.
	RunID string
}

// New returns an orchestrator running p with at most limit targets in flight.
func New(p *pipeline.Pipeline, limit int) *Orchestrator {
	return &Orchestrator{Pipeline: p, Limit: limit}
}

// DuplicateTargetError is returned when two targets share a name.
type DuplicateTargetError struct {
	Name string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("duplicate target %q", e.Name)
}

// Run provisions every target and waits for all of them. A failing target
// never stops the others; its failure is recorded in the report. The only
// errors returned are for input that prevents starting at all.
func (o *Orchestrator) Run(ctx context.Context, targets []pipeline.Target, directives []patch.Directive) (*Report, error) {
	if o.Pipeline == nil {
		return nil, fmt.Errorf("orchestrator has no pipeline")
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.Name == "" {
			return nil, fmt.Errorf("target with empty name")
		}
		if seen[t.Name] {
			return nil, &DuplicateTargetError{Name: t.Name}
		}
		seen[t.Name] = true
	}

	runID := o.RunID
	if runID == "" {
		runID = NewRunID()
	}
	report := &Report{
		RunID:   runID,
		Started: time.Now(),
		Results: make([]pipeline.Result, len(targets)),
	}

	logging.Info("deployment started", "run_id", runID, "targets", len(targets), "fanout", o.Limit)

	var g errgroup.Group
	if o.Limit > 0 {
		g.SetLimit(o.Limit)
	}
	for i, t := range targets {
		g.Go(func() error {
			// Each goroutine owns one slot of Results.
			report.Results[i] = o.Pipeline.Run(ctx, t, directives)
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.Started)
	s := report.Summary()
	logging.Info("deployment finished", "run_id", runID, "succeeded", s.Succeeded, "failed", len(s.Failures), "duration", report.Duration)
	return report, nil
}
