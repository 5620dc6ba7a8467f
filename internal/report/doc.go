// Package report renders the outcome of a deployment run.
//
// Text renders a per-target table followed by the failure summary, styled
// with lipgloss when the writer is a terminal and plain otherwise:
//
//	report.Text(os.Stdout, rep)
//
// JSON writes the same content as a single machine-readable document:
//
//	report.JSON(os.Stdout, rep)
//
// Both renderings are deterministic for a given report. Targets appear in
// inventory order; failures are grouped by stage in pipeline order and
// listed by target name.
package report
