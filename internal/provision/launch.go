package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/agent-deploy/internal/logging"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
)

// Launch defaults.
const (
	DefaultBinary  = "neutron-nsxv3-agent"
	DefaultSession = "neutron-nsxv3-agent"

	// UnitDir is where the systemd launcher installs its unit.
	UnitDir = "/etc/systemd/system"
)

// Launch starts the agent detached from the deployment. Nothing watches the
// process once it is running.
type Launch struct{}

func (l *Launch) Stage() pipeline.Stage { return pipeline.StageLaunch }

func (l *Launch) Run(ctx context.Context, job *pipeline.Job) error {
	t := job.Target
	switch t.Launch.Launcher {
	case pipeline.LauncherScreen, "":
		_, err := t.Conn.Run(ctx, ScreenScript(t))
		return err
	case pipeline.LauncherSystemd:
		return launchSystemd(ctx, t)
	default:
		return fmt.Errorf("unknown launcher %q", t.Launch.Launcher)
	}
}

// AgentArgs returns the agent command line: the binary followed by both
// configuration files.
func AgentArgs(t pipeline.Target) []string {
	bin := t.Launch.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	args := []string{bin, "--config-file", t.ConfigPath}
	if t.SystemConfigPath != "" {
		args = append(args, "--config-file", t.SystemConfigPath)
	}
	return args
}

func sessionName(t pipeline.Target) string {
	if t.Launch.Session != "" {
		return t.Launch.Session
	}
	return DefaultSession
}

// ScreenScript quits any previous session of the same name and starts a new
// detached one running the agent.
func ScreenScript(t pipeline.Target) string {
	session := shellquote.Join(sessionName(t))
	return fmt.Sprintf("screen -S %s -X quit >/dev/null 2>&1; screen -dmS %s %s",
		session, session, shellquote.Join(AgentArgs(t)...))
}

// UnitName returns the systemd unit the agent runs as.
func UnitName(t pipeline.Target) string {
	name := sessionName(t)
	if !strings.HasSuffix(name, ".service") {
		name += ".service"
	}
	return name
}

// UnitOptions describes the agent's systemd service.
func UnitOptions(t pipeline.Target) []*unit.UnitOption {
	args := AgentArgs(t)
	if !path.IsAbs(args[0]) {
		args = append([]string{"/usr/bin/env"}, args...)
	}
	return []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", "Neutron NSX-T agent"),
		unit.NewUnitOption("Unit", "After", "network-online.target"),
		unit.NewUnitOption("Unit", "Wants", "network-online.target"),
		unit.NewUnitOption("Service", "Type", "simple"),
		unit.NewUnitOption("Service", "ExecStart", shellquote.Join(args...)),
		unit.NewUnitOption("Service", "Restart", "no"),
		unit.NewUnitOption("Install", "WantedBy", "multi-user.target"),
	}
}

// RenderUnit serializes the agent's unit file.
func RenderUnit(t pipeline.Target) ([]byte, error) {
	return io.ReadAll(unit.Serialize(UnitOptions(t)))
}

func launchSystemd(ctx context.Context, t pipeline.Target) error {
	name := UnitName(t)
	unitPath := path.Join(UnitDir, name)

	want, err := RenderUnit(t)
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	have, err := t.Conn.ReadFile(ctx, unitPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", unitPath, err)
	}

	script := "systemctl restart " + shellquote.Join(name)
	if !bytes.Equal(have, want) {
		if err := t.Conn.WriteFile(ctx, unitPath, want, 0644); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
		logging.ForTarget(t.Name).Debug("unit file installed", "unit", name)
		script = "systemctl daemon-reload && " + script
	}

	_, err = t.Conn.Run(ctx, script)
	return err
}
