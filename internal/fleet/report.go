package fleet

import (
	"sort"
	"time"

	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

// Report collects the results of one run in target input order.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Results  []pipeline.Result
}

// Failed reports whether any target failed.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if !res.Succeeded() {
			return true
		}
	}
	return false
}

// Result returns the result for the named target.
func (r *Report) Result(name string) (pipeline.Result, bool) {
	for _, res := range r.Results {
		if res.Target == name {
			return res, true
		}
	}
	return pipeline.Result{}, false
}

// StageCount is the number of targets that failed at one stage.
type StageCount struct {
	Stage pipeline.Stage
	Count int
}

// Failure is one failed target.
type Failure struct {
	Target string
	Stage  pipeline.Stage
	Cause  string
}

// Summary is the deterministic digest of a run: failures are grouped in
// stage order and listed by target name.
type Summary struct {
	Total     int
	Succeeded int
	Changed   int
	ByStage   []StageCount
	Failures  []Failure
}

// Summary builds the run summary.
func (r *Report) Summary() Summary {
	s := Summary{Total: len(r.Results)}
	counts := make(map[pipeline.Stage]int)

	for _, res := range r.Results {
		if res.ConfigChanged {
			s.Changed++
		}
		if res.Succeeded() {
			s.Succeeded++
			continue
		}
		counts[res.FailedStage]++
		s.Failures = append(s.Failures, Failure{
			Target: res.Target,
			Stage:  res.FailedStage,
			Cause:  res.Cause(),
		})
	}

	for _, st := range pipeline.Stages() {
		if n := counts[st]; n > 0 {
			s.ByStage = append(s.ByStage, StageCount{Stage: st, Count: n})
			delete(counts, st)
		}
	}
	// Stages outside the standard four, from custom pipelines.
	var extra []pipeline.Stage
	for st := range counts {
		extra = append(extra, st)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, st := range extra {
		s.ByStage = append(s.ByStage, StageCount{Stage: st, Count: counts[st]})
	}

	sort.Slice(s.Failures, func(i, j int) bool {
		return s.Failures[i].Target < s.Failures[j].Target
	})
	return s
}
