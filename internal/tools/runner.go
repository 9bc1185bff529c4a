package tools

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one host process invocation.
type Command struct {
	Name string
	Args []string
	// Env entries are appended to the parent environment (KEY=VALUE).
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line for trace output.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\n'\"$") {
			arg = shellQuote(arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// CommandRunner abstracts host command execution for tool engines.
//
// Run blocks until the process exits and returns its exit status. A process
// that ran and exited non-zero reports its status with a nil error; err is
// reserved for commands that could not be started or waited on.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (r ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode(), nil
	}

	exitCode := 1
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return exitCode, err
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
