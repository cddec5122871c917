// Package deploy pulls the latest source, rebuilds the containers and restarts them.
// Every step runs only if the previous one succeeded.
package deploy

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

// Step is a named command of a deployment
type Step struct {
	Name    string
	Command Command
}

// StepError reports which step of a deployment failed
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Options configure a Deployer
type Options struct {
	EnvFile string
	Dir     string
	DryRun  bool
	Out     io.Writer
}

// Deployer runs deployment steps through a Runner
type Deployer struct {
	runner Runner
	opts   Options
	logger *zap.Logger
}

// NewDeployer creates a new deployer
func NewDeployer(runner Runner, opts Options, logger *zap.Logger) *Deployer {
	if opts.EnvFile == "" {
		opts.EnvFile = ".env"
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Deployer{
		runner: runner,
		opts:   opts,
		logger: logger,
	}
}

// Deploy pulls, builds, restarts, then prints status and recent logs
func (d *Deployer) Deploy(ctx context.Context) error {
	return d.execute(ctx, DeploySteps)
}

// Status prints the state of the services
func (d *Deployer) Status(ctx context.Context) error {
	return d.execute(ctx, func(s *Settings, dir string) []Step {
		return []Step{statusStep(s, dir)}
	})
}

// Logs prints the most recent log lines of the services
func (d *Deployer) Logs(ctx context.Context) error {
	return d.execute(ctx, func(s *Settings, dir string) []Step {
		return []Step{logsStep(s, dir)}
	})
}

func (d *Deployer) execute(ctx context.Context, plan func(*Settings, string) []Step) error {
	settings, err := LoadSettings(d.envFilePath())
	if err != nil {
		return err
	}

	steps := plan(settings, d.opts.Dir)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Step: step.Name, Err: err}
		}

		fmt.Fprintf(d.opts.Out, "==> [%d/%d] %s: %s\n", i+1, len(steps), step.Name, step.Command)
		if d.opts.DryRun {
			continue
		}

		d.logger.Info("running deploy step", zap.String("step", step.Name), zap.String("command", step.Command.String()))
		if err := d.runner.Run(ctx, step.Command); err != nil {
			d.logger.Error("deploy step failed", zap.String("step", step.Name), zap.Error(err))
			return &StepError{Step: step.Name, Err: err}
		}
	}

	return nil
}

func (d *Deployer) envFilePath() string {
	if d.opts.Dir == "" || filepath.IsAbs(d.opts.EnvFile) {
		return d.opts.EnvFile
	}
	return filepath.Join(d.opts.Dir, d.opts.EnvFile)
}

// DeploySteps returns the full deployment sequence
func DeploySteps(s *Settings, dir string) []Step {
	return []Step{
		{
			Name:    "pull",
			Command: Command{Name: "git", Args: []string{"pull", s.GitRemote, s.GitBranch}, Dir: dir},
		},
		composeStep("build", s, dir, append([]string{"build"}, s.Services...)...),
		composeStep("restart", s, dir, append([]string{"up", "-d"}, s.Services...)...),
		statusStep(s, dir),
		logsStep(s, dir),
	}
}

func statusStep(s *Settings, dir string) Step {
	return composeStep("status", s, dir, "ps")
}

func logsStep(s *Settings, dir string) Step {
	args := append([]string{"logs", "--tail", strconv.Itoa(s.LogTail)}, s.Services...)
	return composeStep("logs", s, dir, args...)
}

func composeStep(name string, s *Settings, dir string, args ...string) Step {
	base := []string{"compose", "-f", s.ComposeFile}
	if s.ProjectName != "" {
		base = append(base, "-p", s.ProjectName)
	}
	return Step{
		Name: name,
		Command: Command{
			Name: "docker",
			Args: append(base, args...),
			Dir:  dir,
			Env:  s.Environ(),
		},
	}
}
