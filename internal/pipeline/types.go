package pipeline

import (
	"errors"
	"time"

	"github.com/firefly-engineering/agent-deploy/internal/transport"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

// Stage names one provisioning step.
type Stage string

const (
	StageSync      Stage = "sync"
	StageInstall   Stage = "install"
	StageConfigure Stage = "configure"
	StageLaunch    Stage = "launch"
)

// Stages lists the stages in execution order.
func Stages() []Stage {
	return []Stage{StageSync, StageInstall, StageConfigure, StageLaunch}
}

// Reached returns the state a target is in once the stage succeeded.
func (s Stage) Reached() State {
	switch s {
	case StageSync:
		return StateSynced
	case StageInstall:
		return StateInstalled
	case StageConfigure:
		return StateConfigured
	case StageLaunch:
		return StateLaunched
	}
	return StatePending
}

// Index returns the position of s in Stages, or -1.
func (s Stage) Index() int {
	for i, st := range Stages() {
		if st == s {
			return i
		}
	}
	return -1
}

// State is a target's position in the pipeline.
type State string

const (
	StatePending    State = "pending"
	StateSynced     State = "synced"
	StateInstalled  State = "installed"
	StateConfigured State = "configured"
	StateLaunched   State = "launched"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateLaunched || s == StateFailed
}

// Launcher names how the agent daemon is started.
type Launcher string

const (
	LauncherScreen  Launcher = "screen"
	LauncherSystemd Launcher = "systemd"
)

// LaunchSpec describes how to start the agent on a target.
type LaunchSpec struct {
	Launcher Launcher

	// Binary is the agent executable, a name on PATH or an absolute path.
	Binary string

	// Session is the screen session name or the systemd unit name.
	Session string
}

// Target is one host to provision.
type Target struct {
	Name string
	Conn transport.Conn

	// SourceDir is the local source tree staged onto the target.
	SourceDir string
	// DestDir is where the tree lands on the target.
	DestDir string

	// ConfigPath is the configuration file the patch engine rewrites.
	ConfigPath string
	// SystemConfigPath is passed to the agent alongside ConfigPath.
	SystemConfigPath string

	// InstallCommand runs inside DestDir.
	InstallCommand []string

	Launch   LaunchSpec
	Resolver vars.Resolver
}

// Result is the outcome of one target's pipeline.
type Result struct {
	Target        string
	State         State
	FailedStage   Stage
	Err           error
	ConfigChanged bool
	Duration      time.Duration
}

// Succeeded reports whether every stage completed.
func (r Result) Succeeded() bool {
	return r.State == StateLaunched
}

// Cause returns a short description of the failure, "timeout" for stages
// that ran out of time and "" for successful targets.
func (r Result) Cause() string {
	if r.Err == nil {
		return ""
	}
	if errors.Is(r.Err, ErrTimeout) {
		return ErrTimeout.Error()
	}
	var serr *StageError
	if errors.As(r.Err, &serr) {
		return serr.Err.Error()
	}
	return r.Err.Error()
}

// Outcome is Result.State as a label: "succeeded" or "failed(<stage>)".
func (r Result) Outcome() string {
	if r.Succeeded() {
		return "succeeded"
	}
	if r.State == StateFailed {
		return "failed(" + string(r.FailedStage) + ")"
	}
	return string(r.State)
}
