package inventory

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/agent-deploy/internal/pipeline"
	"github.com/firefly-engineering/agent-deploy/internal/transport"
)

// targetNameRegex validates target names.
// Names must start with a letter or digit, followed by letters, digits, dots,
// underscores, or hyphens. Maximum length is 63 characters.
var targetNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,62}$`)

// ValidateTargetName checks if a target name is valid.
func ValidateTargetName(name string) error {
	if name == "" {
		return fmt.Errorf("target name cannot be empty")
	}
	if !targetNameRegex.MatchString(name) {
		return fmt.Errorf("invalid target name %q: must start with a letter or digit, contain only letters, digits, dots, underscores, or hyphens, and be at most 63 characters", name)
	}
	return nil
}

// Defaults applied when neither the target nor [defaults] set a field.
const (
	DefaultDest             = "/opt/networking-nsxv3"
	DefaultConfigPath       = "/etc/neutron/plugins/ml2/ml2_conf.ini"
	DefaultSystemConfigPath = "/etc/neutron/neutron.conf"
	DefaultAgentBinary      = "neutron-nsxv3-agent"
)

// Inventory is the deployment description read from a TOML file.
type Inventory struct {
	Fanout       int            `toml:"fanout"`
	StageTimeout string         `toml:"stage_timeout"`
	VarsFiles    []string       `toml:"vars_files"`
	EnvFile      string         `toml:"env_file"`
	Defaults     Host           `toml:"defaults"`
	Vars         map[string]any `toml:"vars"`
	Targets      []Host         `toml:"targets"`

	// Dir is the directory relative paths are resolved in.
	Dir string `toml:"-"`
}

// Host describes one target. Unset fields inherit from [defaults].
type Host struct {
	Name             string         `toml:"name"`
	Host             string         `toml:"host"`
	Transport        string         `toml:"transport"`
	User             string         `toml:"user"`
	Port             int            `toml:"port"`
	IdentityFile     string         `toml:"identity_file"`
	StrictHostKeys   *bool          `toml:"strict_host_keys"`
	KnownHostsFile   string         `toml:"known_hosts_file"`
	Become           *bool          `toml:"become"`
	Source           string         `toml:"source"`
	Dest             string         `toml:"dest"`
	ConfigPath       string         `toml:"config_path"`
	SystemConfigPath string         `toml:"system_config_path"`
	InstallCommand   []string       `toml:"install_command"`
	AgentBinary      string         `toml:"agent_binary"`
	Launcher         string         `toml:"launcher"`
	Session          string         `toml:"session"`
	Vars             map[string]any `toml:"vars"`
}

// Load reads, resolves and validates the inventory at path.
func Load(path string) (*Inventory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid inventory path: %w", err)
	}

	var inv Inventory
	md, err := toml.DecodeFile(abs, &inv)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}

	inv.Dir = filepath.Dir(abs)
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid inventory: %w", err)
	}
	return &inv, nil
}

// Parse decodes inventory text; relative paths resolve inside dir.
func Parse(data, dir string) (*Inventory, error) {
	var inv Inventory
	md, err := toml.Decode(data, &inv)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}

	inv.Dir = dir
	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid inventory: %w", err)
	}
	return &inv, nil
}

// checkUndecoded rejects keys the inventory does not know, which are
// almost always typos.
func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown inventory keys: %s", strings.Join(keys, ", "))
}

// Validate checks the inventory and every resolved target.
func (inv *Inventory) Validate() error {
	if inv.Fanout < 0 {
		return fmt.Errorf("fanout must not be negative (got %d)", inv.Fanout)
	}
	if _, err := inv.Timeout(); err != nil {
		return err
	}
	if len(inv.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}

	seen := make(map[string]bool, len(inv.Targets))
	for _, h := range inv.Hosts() {
		if err := h.Validate(); err != nil {
			if h.Name == "" {
				return err
			}
			return fmt.Errorf("target %s: %w", h.Name, err)
		}
		if seen[h.Name] {
			return fmt.Errorf("duplicate target %q", h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}

// Timeout returns the per-stage timeout, zero when unset.
func (inv *Inventory) Timeout() (time.Duration, error) {
	if inv.StageTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(inv.StageTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid stage_timeout %q: %w", inv.StageTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("stage_timeout must not be negative (got %s)", inv.StageTimeout)
	}
	return d, nil
}

// Hosts returns every target with defaults applied, in file order.
func (inv *Inventory) Hosts() []Host {
	out := make([]Host, len(inv.Targets))
	for i, t := range inv.Targets {
		out[i] = t.inherit(inv.Defaults)
	}
	return out
}

// Select returns the resolved hosts named in names, in file order. An empty
// names selects every host.
func (inv *Inventory) Select(names []string) ([]Host, error) {
	hosts := inv.Hosts()
	if len(names) == 0 {
		return hosts, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Host
	for _, h := range hosts {
		if want[h.Name] {
			out = append(out, h)
			delete(want, h.Name)
		}
	}
	if len(want) > 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown targets: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

// Resolve turns a path from the inventory into one usable on the control
// host. Relative paths are joined inside the inventory directory and cannot
// climb out of it.
func (inv *Inventory) Resolve(p string) (string, error) {
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	return securejoin.SecureJoin(inv.Dir, p)
}

// inherit fills unset fields of h from d.
func (h Host) inherit(d Host) Host {
	if h.Transport == "" {
		h.Transport = d.Transport
	}
	if h.User == "" {
		h.User = d.User
	}
	if h.Port == 0 {
		h.Port = d.Port
	}
	if h.IdentityFile == "" {
		h.IdentityFile = d.IdentityFile
	}
	if h.StrictHostKeys == nil {
		h.StrictHostKeys = d.StrictHostKeys
	}
	if h.KnownHostsFile == "" {
		h.KnownHostsFile = d.KnownHostsFile
	}
	if h.Become == nil {
		h.Become = d.Become
	}
	if h.Source == "" {
		h.Source = d.Source
	}
	if h.Dest == "" {
		h.Dest = firstNonEmpty(d.Dest, DefaultDest)
	}
	if h.ConfigPath == "" {
		h.ConfigPath = firstNonEmpty(d.ConfigPath, DefaultConfigPath)
	}
	if h.SystemConfigPath == "" {
		h.SystemConfigPath = firstNonEmpty(d.SystemConfigPath, DefaultSystemConfigPath)
	}
	if len(h.InstallCommand) == 0 {
		h.InstallCommand = d.InstallCommand
	}
	if h.AgentBinary == "" {
		h.AgentBinary = firstNonEmpty(d.AgentBinary, DefaultAgentBinary)
	}
	if h.Launcher == "" {
		h.Launcher = firstNonEmpty(d.Launcher, string(pipeline.LauncherScreen))
	}
	if h.Session == "" {
		h.Session = d.Session
	}
	if h.Host == "" && h.Transport != string(transport.KindLocal) {
		h.Host = h.Name
	}
	return h
}

// Validate checks a resolved host.
func (h Host) Validate() error {
	if err := ValidateTargetName(h.Name); err != nil {
		return err
	}
	kind, err := transport.ParseKind(h.Transport)
	if err != nil {
		return err
	}
	if kind == transport.KindSSH && h.Host == "" {
		return fmt.Errorf("host is required for ssh targets")
	}
	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535 (got %d)", h.Port)
	}
	if h.Source == "" {
		return fmt.Errorf("source is required")
	}
	for field, p := range map[string]string{
		"dest":               h.Dest,
		"config_path":        h.ConfigPath,
		"system_config_path": h.SystemConfigPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must be an absolute path (got %q)", field, p)
		}
	}
	switch pipeline.Launcher(h.Launcher) {
	case pipeline.LauncherScreen, pipeline.LauncherSystemd:
	default:
		return fmt.Errorf("invalid launcher: %s (must be screen or systemd)", h.Launcher)
	}
	return nil
}

// BecomeRoot reports whether the host's work runs through sudo. It defaults
// to true because installing and writing under /etc need root.
func (h Host) BecomeRoot() bool {
	return h.Become == nil || *h.Become
}

// StrictHostKeyChecking reports whether ssh verifies host keys, true unless
// turned off.
func (h Host) StrictHostKeyChecking() bool {
	return h.StrictHostKeys == nil || *h.StrictHostKeys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
