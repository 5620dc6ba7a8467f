package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/agent-deploy/internal/audit"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log <run-id>",
	Short: "Display the audit trail of a deployment run",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditLog,
}

var (
	auditLogDir  string
	auditLogJSON bool
)

func init() {
	auditLogCmd.Flags().StringVar(&auditLogDir, "audit-dir", "", "Directory deploy --audit-dir wrote to (required)")
	auditLogCmd.Flags().BoolVar(&auditLogJSON, "json-lines", false, "Output events as JSON lines")
	_ = auditLogCmd.MarkFlagRequired("audit-dir")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	runID := args[0]

	auditLogger, err := audit.NewLogger(auditLogDir, runID)
	if err != nil {
		return err
	}
	events, err := auditLogger.Events()
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for run %s", runID)
		return nil
	}

	out := stdout()
	for _, e := range events {
		if auditLogJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		subject := e.Target
		if e.Stage != "" {
			subject += " " + e.Stage
		}
		if e.Details != "" {
			fmt.Fprintf(out, "[%s] %-13s %s (%s)\n", ts, e.Type, subject, e.Details)
		} else {
			fmt.Fprintf(out, "[%s] %-13s %s\n", ts, e.Type, subject)
		}
	}

	return nil
}
