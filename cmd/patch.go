package cmd

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/agent-deploy/internal/app"
	"github.com/firefly-engineering/agent-deploy/internal/errors"
	"github.com/firefly-engineering/agent-deploy/internal/inifile"
	"github.com/firefly-engineering/agent-deploy/internal/patch"
	"github.com/firefly-engineering/agent-deploy/internal/provision"
	"github.com/firefly-engineering/agent-deploy/internal/transport"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Apply the directive list to a local configuration file",
	Long: `Patch runs the configuration patcher on a local file and prints the
result, or rewrites the file with --in-place.

Variables resolve, first hit wins, from --set, the environment
(AGENT_DEPLOY_VAR_<NAME>), --vars files (later files win) and --env-file.
A missing file is patched as an empty document.`,
	Args: cobra.NoArgs,
	RunE: runPatch,
}

var (
	patchFile    string
	patchVars    []string
	patchEnvFile string
	patchSet     []string
	patchInPlace bool
)

func init() {
	patchCmd.Flags().StringVarP(&patchFile, "file", "f", "", "Configuration file to patch (required)")
	patchCmd.Flags().StringArrayVar(&patchVars, "vars", nil, "YAML variables file (repeatable)")
	patchCmd.Flags().StringVar(&patchEnvFile, "env-file", "", "Dotenv variables file")
	patchCmd.Flags().StringArrayVar(&patchSet, "set", nil, "Set a variable: name=value (repeatable)")
	patchCmd.Flags().BoolVar(&patchInPlace, "in-place", false, "Rewrite the file instead of printing the result")
	_ = patchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(patchCmd)
}

func runPatch(cmd *cobra.Command, args []string) error {
	resolver, err := patchResolver()
	if err != nil {
		return err
	}

	a := app.Default
	file := transport.NewLocal(false, a.Executor, a.FS)

	current, err := file.ReadFile(cmd.Context(), patchFile)
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", patchFile, err)
	}

	doc, err := inifile.Parse(string(current))
	if err != nil {
		return errors.MalformedDocument(patchFile, err)
	}

	patched, err := patch.Apply(doc, patch.DefaultDirectives(), resolver)
	if err != nil {
		if stderrors.Is(err, vars.ErrUndefined) {
			return errors.UndefinedVariable(err)
		}
		return err
	}

	out := patched.Bytes()
	if !patchInPlace {
		_, err := stdout().Write(out)
		return err
	}

	if string(out) == string(current) {
		logInfo("%s is up to date", patchFile)
		return nil
	}
	if err := file.WriteFile(cmd.Context(), patchFile, out, provision.ConfigPerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", patchFile, err)
	}
	logSuccess("Patched %d options in %s", len(patched.Changes()), patchFile)
	return nil
}

// patchResolver builds the variable chain of the patch command.
func patchResolver() (vars.Resolver, error) {
	set := vars.Map{}
	for _, kv := range patchSet {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, errors.ValidationError(fmt.Sprintf("invalid --set %q (expected name=value)", kv))
		}
		set[name] = value
	}

	files := vars.Map{}
	for _, path := range patchVars {
		m, err := vars.LoadYAMLFile(path)
		if err != nil {
			return nil, err
		}
		files = files.Merge(m)
	}

	envFile := vars.Map{}
	if patchEnvFile != "" {
		m, err := vars.LoadEnvFile(patchEnvFile)
		if err != nil {
			return nil, err
		}
		envFile = m
	}

	return vars.Chain{set, app.Default.Env, files, envFile}, nil
}
