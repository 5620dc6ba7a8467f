package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/agent-deploy/internal/inifile"
	"github.com/firefly-engineering/agent-deploy/internal/logging"
	"github.com/firefly-engineering/agent-deploy/internal/patch"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
	"github.com/firefly-engineering/agent-deploy/internal/system"
)

// DefaultInstallCommand builds and installs the agent from its source tree.
var DefaultInstallCommand = []string{"python3", "setup.py", "install"}

// ConfigPerm is the mode of a configuration file the stage creates.
const ConfigPerm fs.FileMode = 0640

// Steps returns the four stages in order. exec runs rsync on the control host.
func Steps(exec system.CommandExecutor) []pipeline.Step {
	return []pipeline.Step{
		&Sync{Executor: exec},
		&Install{},
		&Configure{},
		&Launch{},
	}
}

// Sync mirrors the source tree into the target's destination directory.
type Sync struct {
	Executor system.CommandExecutor
}

func (s *Sync) Stage() pipeline.Stage { return pipeline.StageSync }

func (s *Sync) Run(ctx context.Context, job *pipeline.Job) error {
	t := job.Target
	if t.SourceDir == "" || t.DestDir == "" {
		return errors.New("source and destination directories are required")
	}

	if _, err := t.Conn.Run(ctx, "mkdir -p "+shellquote.Join(t.DestDir)); err != nil {
		return fmt.Errorf("prepare %s: %w", t.DestDir, err)
	}

	exec := s.Executor
	if exec == nil {
		exec = system.DefaultExecutor()
	}

	name, args := RsyncCommand(t)
	logging.ForTarget(t.Name).Debug("syncing source tree", "source", t.SourceDir, "dest", t.DestDir)
	out, err := exec.Execute(ctx, name, args...)
	if err != nil {
		return system.NewCommandError("rsync", out, err)
	}
	return nil
}

// RsyncCommand returns the command that mirrors t.SourceDir into t.DestDir,
// deleting files the source no longer has.
func RsyncCommand(t pipeline.Target) (string, []string) {
	dest, rsh := t.Conn.RsyncDestination(strings.TrimSuffix(t.DestDir, "/") + "/")

	args := []string{"-a", "--delete"}
	if rsh != "" {
		args = append(args, "-e", rsh)
		if t.Conn.Become() {
			args = append(args, "--rsync-path", "sudo -n rsync")
		}
	}
	args = append(args, strings.TrimSuffix(t.SourceDir, "/")+"/", dest)

	if rsh == "" && t.Conn.Become() {
		return "sudo", append([]string{"-n", "rsync"}, args...)
	}
	return "rsync", args
}

// Install runs the install command inside the destination directory.
type Install struct{}

func (i *Install) Stage() pipeline.Stage { return pipeline.StageInstall }

func (i *Install) Run(ctx context.Context, job *pipeline.Job) error {
	t := job.Target
	_, err := t.Conn.Run(ctx, InstallScript(t))
	return err
}

// InstallScript returns the shell script the install stage runs.
func InstallScript(t pipeline.Target) string {
	cmd := t.InstallCommand
	if len(cmd) == 0 {
		cmd = DefaultInstallCommand
	}
	return "cd " + shellquote.Join(t.DestDir) + " && " + shellquote.Join(cmd...)
}

// Configure patches the target's configuration file. The file is written
// back only when the patched bytes differ from what is there.
type Configure struct{}

func (c *Configure) Stage() pipeline.Stage { return pipeline.StageConfigure }

func (c *Configure) Run(ctx context.Context, job *pipeline.Job) error {
	t := job.Target
	if t.ConfigPath == "" {
		return errors.New("configuration path is required")
	}

	current, err := t.Conn.ReadFile(ctx, t.ConfigPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", t.ConfigPath, err)
	}

	out, changes, err := PatchBytes(current, job.Directives, t)
	if err != nil {
		return err
	}
	if bytes.Equal(out, current) {
		logging.ForTarget(t.Name).Debug("configuration unchanged", "path", t.ConfigPath)
		return nil
	}

	if err := t.Conn.WriteFile(ctx, t.ConfigPath, out, ConfigPerm); err != nil {
		return fmt.Errorf("write %s: %w", t.ConfigPath, err)
	}
	job.ConfigChanged = true
	logging.ForTarget(t.Name).Info("configuration updated", "path", t.ConfigPath, "options", len(changes))
	return nil
}

// PatchBytes parses current, applies directives with t's resolver and
// returns the serialized result plus the options the patch touched.
func PatchBytes(current []byte, directives []patch.Directive, t pipeline.Target) ([]byte, []inifile.Change, error) {
	doc, err := inifile.Parse(string(current))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", t.ConfigPath, err)
	}
	if t.Resolver == nil {
		return nil, nil, errors.New("no variable resolver configured")
	}
	patched, err := patch.Apply(doc, directives, t.Resolver)
	if err != nil {
		return nil, nil, err
	}
	return patched.Bytes(), patched.Changes(), nil
}
