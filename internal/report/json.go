package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/firefly-engineering/agent-deploy/internal/fleet"
)

// Document is the JSON form of a run report.
type Document struct {
	RunID           string         `json:"run_id"`
	Started         time.Time      `json:"started,omitzero"`
	DurationSeconds float64        `json:"duration_seconds"`
	Total           int            `json:"total"`
	Succeeded       int            `json:"succeeded"`
	Changed         int            `json:"changed"`
	FailedByStage   []StageCount   `json:"failed_by_stage"`
	Targets         []TargetResult `json:"targets"`
	Failures        []Failure      `json:"failures"`
}

// StageCount is the number of targets that failed at a stage.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// TargetResult is one target's outcome.
type TargetResult struct {
	Target          string  `json:"target"`
	State           string  `json:"state"`
	Outcome         string  `json:"outcome"`
	FailedStage     string  `json:"failed_stage,omitempty"`
	Cause           string  `json:"cause,omitempty"`
	ConfigChanged   bool    `json:"config_changed"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Failure is one failed target in the sorted failure list.
type Failure struct {
	Target string `json:"target"`
	Stage  string `json:"stage"`
	Cause  string `json:"cause"`
}

// NewDocument converts a report into its JSON form.
func NewDocument(rep *fleet.Report) Document {
	s := rep.Summary()
	doc := Document{
		RunID:           rep.RunID,
		Started:         rep.Started,
		DurationSeconds: rep.Duration.Seconds(),
		Total:           s.Total,
		Succeeded:       s.Succeeded,
		Changed:         s.Changed,
		FailedByStage:   make([]StageCount, 0, len(s.ByStage)),
		Targets:         make([]TargetResult, 0, len(rep.Results)),
		Failures:        make([]Failure, 0, len(s.Failures)),
	}
	for _, c := range s.ByStage {
		doc.FailedByStage = append(doc.FailedByStage, StageCount{Stage: string(c.Stage), Count: c.Count})
	}
	for _, res := range rep.Results {
		doc.Targets = append(doc.Targets, TargetResult{
			Target:          res.Target,
			State:           string(res.State),
			Outcome:         res.Outcome(),
			FailedStage:     string(res.FailedStage),
			Cause:           res.Cause(),
			ConfigChanged:   res.ConfigChanged,
			DurationSeconds: res.Duration.Seconds(),
		})
	}
	for _, f := range s.Failures {
		doc.Failures = append(doc.Failures, Failure{Target: f.Target, Stage: string(f.Stage), Cause: f.Cause})
	}
	return doc
}

// JSON writes rep to w as an indented JSON document.
func JSON(w io.Writer, rep *fleet.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(rep))
}
