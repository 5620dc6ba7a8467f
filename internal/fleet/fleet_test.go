package fleet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firefly-engineering/agent-deploy/internal/patch"
	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
	"github.com/firefly-engineering/agent-deploy/internal/provision"
	"github.com/firefly-engineering/agent-deploy/internal/system"
	"github.com/firefly-engineering/agent-deploy/internal/transport"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

func resolver() vars.Map {
	m := vars.Map{}
	for _, name := range patch.Variables(patch.DefaultDirectives()) {
		m[name] = name + "-value"
	}
	return m
}

type host struct {
	exec *system.MockExecutor
	fs   *system.MockFS
}

func newHost() host {
	return host{exec: system.NewMockExecutor(), fs: system.NewMockFS()}
}

func (h host) target(name string) pipeline.Target {
	return pipeline.Target{
		Name:             name,
		Conn:             transport.NewLocal(false, h.exec, h.fs),
		SourceDir:        "/src/networking-nsxv3",
		DestDir:          "/opt/" + name,
		ConfigPath:       "/etc/" + name + "/ml2_conf.ini",
		SystemConfigPath: "/etc/neutron/neutron.conf",
		Resolver:         resolver(),
	}
}

func TestThreeTargetsSecondInstallFails(t *testing.T) {
	h1, h2, h3 := newHost(), newHost(), newHost()
	h2.exec.Handler = func(cmd system.MockCommand) system.MockResponse {
		if strings.Contains(cmd.Line(), "setup.py install") {
			return system.MockResponse{
				Output: []byte("error: invalid command 'install'"),
				Err:    &system.CommandError{Command: "sh", ExitCode: 1},
			}
		}
		return system.MockResponse{}
	}

	p := pipeline.New(provision.Steps(system.NewMockExecutor())...)
	o := New(p, 0)

	targets := []pipeline.Target{h1.target("node1"), h2.target("node2"), h3.target("node3")}
	report, err := o.Run(context.Background(), targets, patch.DefaultDirectives())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.Equal(t, "node1", report.Results[0].Target)
	assert.Equal(t, "node2", report.Results[1].Target)
	assert.Equal(t, "node3", report.Results[2].Target)

	assert.True(t, report.Results[0].Succeeded())
	assert.True(t, report.Results[2].Succeeded())

	r2, ok := report.Result("node2")
	require.True(t, ok)
	assert.Equal(t, pipeline.StateFailed, r2.State)
	assert.Equal(t, pipeline.StageInstall, r2.FailedStage)
	assert.Equal(t, "failed(install)", r2.Outcome())
	assert.Contains(t, r2.Cause(), "exit status 1")

	assert.True(t, report.Failed())

	// Target 2 never reached Configure, so its file was not written.
	_, written := h2.fs.GetFile("/etc/node2/ml2_conf.ini")
	assert.False(t, written)
	_, written = h1.fs.GetFile("/etc/node1/ml2_conf.ini")
	assert.True(t, written)

	s := report.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 2, s.Changed)
	assert.Equal(t, []StageCount{{Stage: pipeline.StageInstall, Count: 1}}, s.ByStage)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "node2", s.Failures[0].Target)
	assert.Equal(t, pipeline.StageInstall, s.Failures[0].Stage)
}

func TestRunRejectsDuplicateTargets(t *testing.T) {
	var ran atomic.Int32
	p := pipeline.New(pipeline.StepFunc{Name: pipeline.StageSync, Fn: func(ctx context.Context, job *pipeline.Job) error {
		ran.Add(1)
		return nil
	}})

	_, err := New(p, 0).Run(context.Background(), []pipeline.Target{{Name: "a"}, {Name: "b"}, {Name: "a"}}, nil)
	require.Error(t, err)

	var dup *DuplicateTargetError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "a", dup.Name)
	assert.Zero(t, ran.Load(), "no stage should run")
}

func TestRunRejectsEmptyName(t *testing.T) {
	_, err := New(pipeline.New(), 0).Run(context.Background(), []pipeline.Target{{Name: ""}}, nil)
	assert.Error(t, err)
}

func TestRunWithoutPipeline(t *testing.T) {
	_, err := (&Orchestrator{}).Run(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestFanoutLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	step := pipeline.StepFunc{Name: pipeline.StageSync, Fn: func(ctx context.Context, job *pipeline.Job) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}}

	var targets []pipeline.Target
	for i := 0; i < 8; i++ {
		targets = append(targets, pipeline.Target{Name: fmt.Sprintf("node%d", i)})
	}

	_, err := New(pipeline.New(step), 2).Run(context.Background(), targets, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestFanoutUnlimitedRunsAllTogether(t *testing.T) {
	const n = 5
	var wg sync.WaitGroup
	wg.Add(n)
	step := pipeline.StepFunc{Name: pipeline.StageSync, Fn: func(ctx context.Context, job *pipeline.Job) error {
		// Every target must be running at once for this barrier to open.
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("targets did not run concurrently")
		}
	}}

	var targets []pipeline.Target
	for i := 0; i < n; i++ {
		targets = append(targets, pipeline.Target{Name: fmt.Sprintf("node%d", i)})
	}

	report, err := New(pipeline.New(step), 0).Run(context.Background(), targets, nil)
	require.NoError(t, err)
	for _, res := range report.Results {
		assert.NoError(t, res.Err, res.Target)
	}
}

func TestRunIDGenerated(t *testing.T) {
	report, err := New(pipeline.New(), 0).Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, report.RunID, 36)

	o := New(pipeline.New(), 0)
	o.RunID = "fixed"
	report, err = o.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", report.RunID)
	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestSummaryDeterministic(t *testing.T) {
	report := &Report{Results: []pipeline.Result{
		{Target: "zeta", State: pipeline.StateFailed, FailedStage: pipeline.StageLaunch, Err: errors.New("screen missing")},
		{Target: "alpha", State: pipeline.StateLaunched},
		{Target: "mid", State: pipeline.StateFailed, FailedStage: pipeline.StageSync, Err: &pipeline.StageError{Stage: pipeline.StageSync, Err: pipeline.ErrTimeout}},
		{Target: "beta", State: pipeline.StateFailed, FailedStage: pipeline.StageLaunch, Err: errors.New("exit status 1")},
	}}

	s := report.Summary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, []StageCount{
		{Stage: pipeline.StageSync, Count: 1},
		{Stage: pipeline.StageLaunch, Count: 2},
	}, s.ByStage)
	assert.Equal(t, []Failure{
		{Target: "beta", Stage: pipeline.StageLaunch, Cause: "exit status 1"},
		{Target: "mid", Stage: pipeline.StageSync, Cause: "timeout"},
		{Target: "zeta", Stage: pipeline.StageLaunch, Cause: "screen missing"},
	}, s.Failures)

	assert.Equal(t, s, report.Summary())
}

func TestReportAllSucceeded(t *testing.T) {
	report := &Report{Results: []pipeline.Result{{Target: "a", State: pipeline.StateLaunched}}}
	assert.False(t, report.Failed())
	_, ok := report.Result("missing")
	assert.False(t, ok)
}
