package inventory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
	"github.com/firefly-engineering/agent-deploy/internal/ssh"
	"github.com/firefly-engineering/agent-deploy/internal/system"
	"github.com/firefly-engineering/agent-deploy/internal/transport"
	"github.com/firefly-engineering/agent-deploy/internal/vars"
)

// Sources are the variable sources shared by every target of an inventory.
type Sources struct {
	Global  vars.Map
	Files   vars.Map
	EnvFile vars.Map
	Env     vars.Resolver
}

// LoadSources reads the inventory's vars files and env file. env is the
// process environment resolver; nil skips the environment.
func (inv *Inventory) LoadSources(env vars.Resolver) (*Sources, error) {
	global, err := toVarMap(inv.Vars)
	if err != nil {
		return nil, fmt.Errorf("vars: %w", err)
	}
	src := &Sources{Global: global, Files: vars.Map{}, EnvFile: vars.Map{}, Env: env}

	for _, f := range inv.VarsFiles {
		p, err := inv.Resolve(f)
		if err != nil {
			return nil, fmt.Errorf("vars file %s: %w", f, err)
		}
		m, err := vars.LoadYAMLFile(p)
		if err != nil {
			return nil, err
		}
		// Later files override earlier ones.
		src.Files = src.Files.Merge(m)
	}

	if inv.EnvFile != "" {
		p, err := inv.Resolve(inv.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("env file %s: %w", inv.EnvFile, err)
		}
		if src.EnvFile, err = vars.LoadEnvFile(p); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// For returns the resolver of one host. The first source that defines a
// variable wins: host vars, environment, inventory vars, vars files, env file.
func (s *Sources) For(h Host) (vars.Resolver, error) {
	hostVars, err := toVarMap(h.Vars)
	if err != nil {
		return nil, fmt.Errorf("target %s vars: %w", h.Name, err)
	}
	chain := vars.Chain{hostVars}
	if s.Env != nil {
		chain = append(chain, s.Env)
	}
	return append(chain, s.Global, s.Files, s.EnvFile), nil
}

// BuildOptions supplies the collaborators targets are wired to.
type BuildOptions struct {
	Executor system.CommandExecutor
	FS       system.FileSystem
	Sources  *Sources
}

// BuildTargets turns resolved hosts into pipeline targets.
func (inv *Inventory) BuildTargets(hosts []Host, opts BuildOptions) ([]pipeline.Target, error) {
	if opts.Sources == nil {
		return nil, fmt.Errorf("no variable sources")
	}

	targets := make([]pipeline.Target, 0, len(hosts))
	for _, h := range hosts {
		t, err := inv.target(h, opts)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", h.Name, err)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func (inv *Inventory) target(h Host, opts BuildOptions) (pipeline.Target, error) {
	source, err := inv.Resolve(h.Source)
	if err != nil {
		return pipeline.Target{}, fmt.Errorf("source: %w", err)
	}

	resolver, err := opts.Sources.For(h)
	if err != nil {
		return pipeline.Target{}, err
	}

	var conn transport.Conn
	kind, err := transport.ParseKind(h.Transport)
	if err != nil {
		return pipeline.Target{}, err
	}
	switch kind {
	case transport.KindLocal:
		conn = transport.NewLocal(h.BecomeRoot(), opts.Executor, opts.FS)
	default:
		identity, err := inv.Resolve(h.IdentityFile)
		if err != nil {
			return pipeline.Target{}, fmt.Errorf("identity_file: %w", err)
		}
		o := ssh.DefaultOptions(h.Host).WithUser(h.User).WithPort(h.Port).WithIdentity(identity)
		o.StrictHostKeyCheck = h.StrictHostKeyChecking()
		o.KnownHostsFile = h.KnownHostsFile
		conn = transport.NewSSH(o, h.BecomeRoot(), opts.Executor)
	}

	return pipeline.Target{
		Name:             h.Name,
		Conn:             conn,
		SourceDir:        source,
		DestDir:          h.Dest,
		ConfigPath:       h.ConfigPath,
		SystemConfigPath: h.SystemConfigPath,
		InstallCommand:   h.InstallCommand,
		Launch: pipeline.LaunchSpec{
			Launcher: pipeline.Launcher(h.Launcher),
			Binary:   h.AgentBinary,
			Session:  h.Session,
		},
		Resolver: resolver,
	}, nil
}

// toVarMap stringifies a TOML vars table. Arrays are joined with commas,
// the list syntax the agent's options use.
func toVarMap(in map[string]any) (vars.Map, error) {
	out := make(vars.Map, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, err := varString(in[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}

func varString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if _, nested := item.([]any); nested {
				return "", fmt.Errorf("nested arrays are not supported")
			}
			s, err := varString(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}
