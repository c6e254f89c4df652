// Package execute runs external commands on behalf of the provisioning
// pipeline. Commands are typed program/argument specifications, never
// interpolated shell strings. In dry-run mode every mutating invocation
// is replaced by a logged announcement.
package execute

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/deskforge/deskforge/pkg/telemetry"
)

// Command is a typed specification of an external command invocation.
type Command struct {
	// Program is the executable name or path.
	Program string

	// Args are passed verbatim, one argument per element.
	Args []string

	// RunAs, when set, runs the command via sudo -u as that user.
	// Used for probes and installs that must happen under the real,
	// unprivileged invoking user (AUR helpers refuse to run as root).
	RunAs string
}

// New builds a Command from a program and its arguments.
func New(program string, args ...string) Command {
	return Command{Program: program, Args: args}
}

// AsUser returns a copy of the command that runs as the given user.
func (c Command) AsUser(user string) Command {
	c.RunAs = user
	return c
}

// String renders the command for logs.
func (c Command) String() string {
	parts := append([]string{c.Program}, c.Args...)
	if c.RunAs != "" {
		parts = append([]string{"sudo", "-u", c.RunAs, "--"}, parts...)
	}
	return strings.Join(parts, " ")
}

// Runner is the process-invocation abstraction the pipeline components
// depend on. The reconciler, configurator and finalizer are all tested
// against fake runners.
type Runner interface {
	// Run executes a mutating command, or announces it in dry-run.
	Run(ctx context.Context, cmd Command) error

	// Output executes a read-only query command and returns captured
	// stdout. Queries are never suppressed; callers decide whether a
	// query is meaningful under dry-run.
	Output(ctx context.Context, cmd Command) (string, error)

	// RunRetry executes a mutating command under a bounded retry policy.
	RunRetry(ctx context.Context, cmd Command, policy RetryPolicy) error

	// DryRun reports whether the runner is simulating.
	DryRun() bool
}

// Executor is the live Runner implementation.
type Executor struct {
	log    *telemetry.Logger
	dryRun bool

	// sleep is replaced in tests to avoid real retry delays.
	sleep func(time.Duration)
}

// NewExecutor creates an executor. With dryRun set, Run and RunRetry log
// the command with a dry-run marker and report success without side
// effects.
func NewExecutor(log *telemetry.Logger, dryRun bool) *Executor {
	return &Executor{
		log:    log.Component("execute"),
		dryRun: dryRun,
		sleep:  time.Sleep,
	}
}

// DryRun reports whether the executor is simulating.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// Run executes a mutating command. In dry-run the command is announced
// and nil is returned.
func (e *Executor) Run(ctx context.Context, cmd Command) error {
	if e.dryRun {
		e.log.DryRunf("would run: %s", cmd)
		return nil
	}

	e.log.Debugf("running: %s", cmd)

	var stderr bytes.Buffer
	proc := e.build(ctx, cmd)
	proc.Stderr = &stderr

	if err := proc.Run(); err != nil {
		return commandError(cmd, err, stderr.String())
	}
	return nil
}

// Output executes a read-only command and returns its captured stdout.
func (e *Executor) Output(ctx context.Context, cmd Command) (string, error) {
	var stdout, stderr bytes.Buffer
	proc := e.build(ctx, cmd)
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	if err := proc.Run(); err != nil {
		return "", commandError(cmd, err, stderr.String())
	}
	return stdout.String(), nil
}

func (e *Executor) build(ctx context.Context, cmd Command) *exec.Cmd {
	if cmd.RunAs != "" {
		args := append([]string{"-u", cmd.RunAs, "--", cmd.Program}, cmd.Args...)
		return exec.CommandContext(ctx, "sudo", args...)
	}
	return exec.CommandContext(ctx, cmd.Program, cmd.Args...)
}

// commandError wraps a process failure with the command line and a trimmed
// stderr tail, which is usually the only useful diagnostic from package
// managers.
func commandError(cmd Command, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) > 512 {
		stderr = stderr[len(stderr)-512:]
	}
	if stderr != "" {
		return fmt.Errorf("%s: %w: %s", cmd.Program, err, stderr)
	}
	return fmt.Errorf("%s: %w", cmd.Program, err)
}
