package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/agent-deploy/internal/patch"
)

var directivesCmd = &cobra.Command{
	Use:   "directives",
	Short: "List the configuration directives in application order",
	Args:  cobra.NoArgs,
	RunE:  runDirectives,
}

var directivesOutput string

func init() {
	directivesCmd.Flags().StringVarP(&directivesOutput, "output", "o", outputText, "Output format: text or json")
	rootCmd.AddCommand(directivesCmd)
}

type directiveJSON struct {
	Section  string `json:"section"`
	Option   string `json:"option"`
	Template string `json:"template"`
}

func runDirectives(cmd *cobra.Command, args []string) error {
	if err := checkOutputFormat(directivesOutput); err != nil {
		return err
	}

	directives := patch.DefaultDirectives()

	if directivesOutput == outputJSON {
		out := make([]directiveJSON, len(directives))
		for i, d := range directives {
			out[i] = directiveJSON{Section: d.Section, Option: d.Option, Template: d.Template}
		}
		enc := json.NewEncoder(stdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	rows := make([][]string, len(directives))
	for i, d := range directives {
		rows[i] = []string{d.Section, d.Option, d.Template}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SECTION", "OPTION", "TEMPLATE").
		Rows(rows...)

	_, err := fmt.Fprintln(stdout(), t.Render())
	return err
}
