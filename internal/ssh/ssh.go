// Package ssh builds ssh command lines for reaching deployment targets.
// Commands are executed through system.CommandExecutor by the transport
// package, so nothing here talks to the network.
package ssh

import (
	"fmt"

	shellquote "github.com/kballard/go-shellquote"
)

// Default SSH configuration values.
const (
	DefaultUser           = "root"
	DefaultPort           = 22
	DefaultConnectTimeout = 10
)

// Options configures SSH connection parameters.
type Options struct {
	Host               string
	User               string
	Port               int
	IdentityFile       string
	StrictHostKeyCheck bool
	KnownHostsFile     string
	ConnectTimeout     int
	BatchMode          bool
	RequestTTY         bool
}

// DefaultOptions returns Options suited to unattended deployments: batch
// mode, host keys checked against the user's known_hosts.
func DefaultOptions(host string) Options {
	return Options{
		Host:               host,
		User:               DefaultUser,
		Port:               DefaultPort,
		StrictHostKeyCheck: true,
		ConnectTimeout:     DefaultConnectTimeout,
		BatchMode:          true,
	}
}

// WithUser returns a copy with the login user set.
func (o Options) WithUser(user string) Options {
	if user != "" {
		o.User = user
	}
	return o
}

// WithPort returns a copy with the port set.
func (o Options) WithPort(port int) Options {
	if port > 0 {
		o.Port = port
	}
	return o
}

// WithIdentity returns a copy using the given private key.
func (o Options) WithIdentity(path string) Options {
	o.IdentityFile = path
	return o
}

// WithBatchMode returns a copy with batch mode enabled.
func (o Options) WithBatchMode() Options {
	o.BatchMode = true
	return o
}

// WithTTY returns a copy with TTY requested.
func (o Options) WithTTY() Options {
	o.RequestTTY = true
	return o
}

// WithTimeout returns a copy with the specified connect timeout.
func (o Options) WithTimeout(seconds int) Options {
	o.ConnectTimeout = seconds
	return o
}

// BaseArgs returns the common SSH arguments (options only, no user@host).
func (o Options) BaseArgs() []string {
	var args []string

	if o.Port > 0 && o.Port != DefaultPort {
		args = append(args, "-p", fmt.Sprintf("%d", o.Port))
	}

	if o.IdentityFile != "" {
		args = append(args, "-i", o.IdentityFile)
	}

	if !o.StrictHostKeyCheck {
		args = append(args, "-o", "StrictHostKeyChecking=no")
	}

	if o.KnownHostsFile != "" {
		args = append(args, "-o", fmt.Sprintf("UserKnownHostsFile=%s", o.KnownHostsFile))
	}

	// Remote output is captured as data, so keep ssh's own chatter out of it.
	args = append(args, "-o", "LogLevel=ERROR")

	if o.BatchMode {
		args = append(args, "-o", "BatchMode=yes")
	}

	if o.ConnectTimeout > 0 {
		args = append(args, "-o", fmt.Sprintf("ConnectTimeout=%d", o.ConnectTimeout))
	}

	if o.RequestTTY {
		args = append(args, "-t")
	}

	return args
}

// Destination returns the user@host string.
func (o Options) Destination() string {
	if o.User == "" {
		return o.Host
	}
	return fmt.Sprintf("%s@%s", o.User, o.Host)
}

// BuildArgs returns complete SSH arguments for executing a command.
func (o Options) BuildArgs(command ...string) []string {
	args := o.BaseArgs()
	args = append(args, o.Destination())
	args = append(args, command...)
	return args
}

// RemoteShell returns the ssh invocation as one shell word list, the form
// rsync expects for its -e flag.
func (o Options) RemoteShell() string {
	return shellquote.Join(append([]string{"ssh"}, o.BaseArgs()...)...)
}
