// Package transport reaches a deployment target: it runs shell scripts there
// and reads or replaces files. Remote targets are driven through the ssh
// command line, local targets through the host's own shell and filesystem.
package transport

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/agent-deploy/internal/ssh"
	"github.com/firefly-engineering/agent-deploy/internal/system"
)

// Kind selects how a target is reached.
type Kind string

const (
	KindSSH   Kind = "ssh"
	KindLocal Kind = "local"
)

// ParseKind validates a transport name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSSH, KindLocal:
		return Kind(s), nil
	case "":
		return KindSSH, nil
	}
	return "", fmt.Errorf("unknown transport %q (want ssh or local)", s)
}

// notFoundStatus is the exit status the read script uses for a missing file.
const notFoundStatus = 66

// Conn runs work on a single target.
type Conn interface {
	// String describes the target for logs, e.g. "root@10.0.0.11".
	String() string

	// Run executes a POSIX shell script on the target and returns its
	// combined output. A failed script yields a *system.CommandError.
	Run(ctx context.Context, script string) ([]byte, error)

	// ReadFile returns the contents of path, or an error satisfying
	// errors.Is(err, fs.ErrNotExist) when the file is absent.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile replaces path atomically with data, creating parent
	// directories as needed.
	WriteFile(ctx context.Context, path string, data []byte, perm fs.FileMode) error

	// RsyncDestination returns the rsync destination for path and the
	// remote shell rsync should use, empty for local targets.
	RsyncDestination(path string) (dest string, rsh string)

	// Become reports whether work runs through sudo.
	Become() bool
}

// SSH reaches a remote target through the ssh command line.
type SSH struct {
	Options  ssh.Options
	Sudo     bool
	Executor system.CommandExecutor
}

// NewSSH returns a Conn for a remote target.
func NewSSH(opts ssh.Options, become bool, exec system.CommandExecutor) *SSH {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &SSH{Options: opts, Sudo: become, Executor: exec}
}

func (c *SSH) String() string { return c.Options.Destination() }

func (c *SSH) Become() bool { return c.Sudo }

func (c *SSH) Run(ctx context.Context, script string) ([]byte, error) {
	args := c.Options.BuildArgs(privileged(script, c.Sudo))
	out, err := c.Executor.Execute(ctx, "ssh", args...)
	if err != nil {
		return out, system.NewCommandError(script, out, err)
	}
	return out, nil
}

// ReadFile returns the file as printed on stdout. Stderr from ssh, sudo or
// login scripts never becomes part of the data.
func (c *SSH) ReadFile(ctx context.Context, p string) ([]byte, error) {
	args := c.Options.BuildArgs(privileged(readScript(p), c.Sudo))
	return readOutput(ctx, c.Executor, p, "ssh", args...)
}

func (c *SSH) WriteFile(ctx context.Context, p string, data []byte, perm fs.FileMode) error {
	script := writeScript(p, perm)
	args := c.Options.BuildArgs(privileged(script, c.Sudo))
	out, err := c.Executor.ExecuteWithStdin(ctx, string(data), "ssh", args...)
	if err != nil {
		return system.NewCommandError("write "+p, out, err)
	}
	return nil
}

func (c *SSH) RsyncDestination(p string) (string, string) {
	return c.Options.Destination() + ":" + p, c.Options.RemoteShell()
}

// Local runs work on the control host itself.
type Local struct {
	Sudo     bool
	Executor system.CommandExecutor
	FS       system.FileSystem
}

// NewLocal returns a Conn for the control host.
func NewLocal(become bool, exec system.CommandExecutor, fsys system.FileSystem) *Local {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	return &Local{Sudo: become, Executor: exec, FS: fsys}
}

func (c *Local) String() string { return "local" }

func (c *Local) Become() bool { return c.Sudo }

func (c *Local) Run(ctx context.Context, script string) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if c.Sudo {
		out, err = c.Executor.Execute(ctx, "sudo", "-n", "sh", "-c", script)
	} else {
		out, err = c.Executor.Execute(ctx, "sh", "-c", script)
	}
	if err != nil {
		return out, system.NewCommandError(script, out, err)
	}
	return out, nil
}

// ReadFile reads p directly, or through sudo when the target becomes root.
func (c *Local) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if c.Sudo {
		return readOutput(ctx, c.Executor, p, "sudo", "-n", "sh", "-c", readScript(p))
	}
	return c.FS.ReadFile(p)
}

// WriteFile writes a sibling temp file and renames it over p. An existing
// file keeps its mode. With sudo the write runs as root and also keeps the
// file's owner.
func (c *Local) WriteFile(ctx context.Context, p string, data []byte, perm fs.FileMode) error {
	if c.Sudo {
		out, err := c.Executor.ExecuteWithStdin(ctx, string(data), "sudo", "-n", "sh", "-c", writeScript(p, perm))
		if err != nil {
			return system.NewCommandError("write "+p, out, err)
		}
		return nil
	}

	if info, err := c.FS.Stat(p); err == nil && info.Mode().IsRegular() {
		perm = info.Mode().Perm()
	}
	if err := c.FS.MkdirAll(path.Dir(p), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	tmp := tempName(p)
	if err := c.FS.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := c.FS.Rename(tmp, p); err != nil {
		_ = c.FS.Remove(tmp)
		return fmt.Errorf("replace %s: %w", p, err)
	}
	return nil
}

func (c *Local) RsyncDestination(p string) (string, string) {
	return p, ""
}

// readOutput runs a read script and maps its missing-file status.
func readOutput(ctx context.Context, exec system.CommandExecutor, p, name string, args ...string) ([]byte, error) {
	out, stderr, err := exec.Output(ctx, name, args...)
	if err != nil {
		if system.ExitCode(err) == notFoundStatus {
			return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
		}
		return nil, system.NewCommandError("read "+p, stderr, err)
	}
	return out, nil
}

func tempName(p string) string {
	return path.Join(path.Dir(p), "."+path.Base(p)+".agent-deploy.tmp")
}

func privileged(script string, sudo bool) string {
	if !sudo {
		return script
	}
	return shellquote.Join("sudo", "-n", "sh", "-c", script)
}

func readScript(p string) string {
	q := shellquote.Join(p)
	return fmt.Sprintf("test -e %s || exit %d; cat %s", q, notFoundStatus, q)
}

// writeScript replaces p with stdin through a temp file. An existing file
// keeps its mode and, where the caller may change it, its owner; a new file
// gets perm.
func writeScript(p string, perm fs.FileMode) string {
	dir := shellquote.Join(path.Dir(p))
	dst := shellquote.Join(p)
	tmp := shellquote.Join(tempName(p))
	return fmt.Sprintf("mkdir -p %s && cat > %s && "+
		"if test -f %s; then chmod --reference=%s %s && { chown --reference=%s %s 2>/dev/null || true; }; else chmod %o %s; fi && "+
		"mv -f %s %s",
		dir, tmp,
		dst, dst, tmp, dst, tmp, perm.Perm(), tmp,
		tmp, dst)
}
