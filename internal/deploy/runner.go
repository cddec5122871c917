package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is a single external program invocation
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command the way it would be typed in a shell
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// execRunner runs commands as child processes, streaming their output
type execRunner struct {
	stdout io.Writer
	stderr io.Writer
}

// NewExecRunner creates a Runner backed by os/exec
func NewExecRunner(stdout, stderr io.Writer) *execRunner {
	return &execRunner{stdout: stdout, stderr: stderr}
}

// Run starts the command and waits for it to finish
func (r *execRunner) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)
	c.Stdout = r.stdout
	c.Stderr = r.stderr

	if err := c.Run(); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return nil
}
