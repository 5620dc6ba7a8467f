package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/agent-deploy/internal/app"
	"github.com/firefly-engineering/agent-deploy/internal/audit"
	"github.com/firefly-engineering/agent-deploy/internal/errors"
	"github.com/firefly-engineering/agent-deploy/internal/fleet"
	"github.com/firefly-engineering/agent-deploy/internal/logging"
	"github.com/firefly-engineering/agent-deploy/internal/metrics"
	"github.com/firefly-engineering/agent-deploy/internal/patch"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
	"github.com/firefly-engineering/agent-deploy/internal/provision"
	"github.com/firefly-engineering/agent-deploy/internal/report"
	"github.com/firefly-engineering/agent-deploy/internal/tui"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Sync, install, configure and launch the agent on every target",
	Long: `Deploy runs the four stages on every target of the inventory, in
parallel across targets and bounded by the fan-out limit.

A target stops at its first failed stage; other targets carry on. The
command exits non-zero when any target failed.`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

var (
	deployInventory    string
	deployLimit        []string
	deployFanout       int
	deployStageTimeout time.Duration
	deployOutput       string
	deployMetricsFile  string
	deployAuditDir     string
	deployProgress     bool
)

func init() {
	deployCmd.Flags().StringVarP(&deployInventory, "inventory", "i", "inventory.toml", "Inventory file")
	deployCmd.Flags().StringSliceVar(&deployLimit, "limit", nil, "Only deploy to these targets (comma-separated)")
	deployCmd.Flags().IntVar(&deployFanout, "fanout", 0, "Maximum targets deployed at once, 0 for no limit (overrides the inventory)")
	deployCmd.Flags().DurationVar(&deployStageTimeout, "stage-timeout", 0, "Per-stage timeout (overrides the inventory)")
	deployCmd.Flags().StringVarP(&deployOutput, "output", "o", outputText, "Report format: text or json")
	deployCmd.Flags().StringVar(&deployMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile-collector file")
	deployCmd.Flags().StringVar(&deployAuditDir, "audit-dir", "", "Append run events to <dir>/<run-id>.jsonl")
	deployCmd.Flags().BoolVar(&deployProgress, "progress", false, "Show live per-target progress")
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	if err := checkOutputFormat(deployOutput); err != nil {
		return err
	}
	if deployFanout < 0 {
		return errors.ValidationError(fmt.Sprintf("--fanout must not be negative (got %d)", deployFanout))
	}

	inv, targets, err := loadTargets(deployInventory, deployLimit)
	if err != nil {
		return err
	}

	fanout := inv.Fanout
	if cmd.Flags().Changed("fanout") {
		fanout = deployFanout
	}
	timeout, err := inv.Timeout()
	if err != nil {
		return errors.InventoryError("invalid inventory", err)
	}
	if cmd.Flags().Changed("stage-timeout") {
		timeout = deployStageTimeout
	}

	a := app.Default
	runID := fleet.NewRunID()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if deployMetricsFile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		recorder = prom
	}

	observers := pipeline.Observers{
		pipeline.LogObserver{Logger: logging.With("run_id", runID)},
		metrics.NewObserver(recorder),
	}

	var auditLog *audit.Logger
	if deployAuditDir != "" {
		auditLog, err = audit.NewLogger(deployAuditDir, runID)
		if err != nil {
			return err
		}
		if err := auditLog.LogEvent(audit.EventRunStart, "", fmt.Sprintf("inventory=%s targets=%d", deployInventory, len(targets))); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		observers = append(observers, auditLog)
	}

	p := pipeline.New(provision.Steps(a.Executor)...)
	p.StageTimeout = timeout

	orch := fleet.New(p, fanout)
	orch.RunID = runID

	run := func(ctx context.Context, progress pipeline.Observer) (*fleet.Report, error) {
		p.Observer = append(observers, progress)
		return orch.Run(ctx, targets, patch.DefaultDirectives())
	}

	logging.Debug("deploying", "run_id", runID, "targets", len(targets), "fanout", fanout, "stage_timeout", timeout)

	var rep *fleet.Report
	if deployProgress {
		rep, err = tui.RunProgress(cmd.Context(), a.Stderr, targetNames(targets), run)
	} else {
		rep, err = run(cmd.Context(), nil)
	}
	if err != nil {
		return err
	}

	recordRun(recorder, rep)

	if auditLog != nil {
		s := rep.Summary()
		details := fmt.Sprintf("succeeded=%d failed=%d changed=%d", s.Succeeded, s.Total-s.Succeeded, s.Changed)
		if err := auditLog.LogEvent(audit.EventRunFinish, "", details); err != nil {
			logWarning("Failed to write audit log: %v", err)
		}
	}

	if prom != nil {
		if err := prom.WriteTextfile(deployMetricsFile); err != nil {
			logWarning("Failed to write metrics file: %v", err)
		}
	}

	if deployOutput == outputJSON {
		err = report.JSON(stdout(), rep)
	} else {
		err = report.Text(stdout(), rep)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if rep.Failed() {
		s := rep.Summary()
		return errors.DeployFailed(s.Total-s.Succeeded, s.Total)
	}
	return nil
}

// recordRun records the run-level metrics that no single event carries.
func recordRun(r metrics.Recorder, rep *fleet.Report) {
	r.ObserveRunDuration(rep.Duration)
	for _, res := range rep.Results {
		if res.ConfigChanged {
			r.IncConfigChanged()
		}
	}
}
