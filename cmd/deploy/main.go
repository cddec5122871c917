package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tradejournal/backend/internal/deploy"
	"github.com/tradejournal/backend/libs/logger"
)

type rootOptions struct {
	envFile  string
	dir      string
	dryRun   bool
	logLevel string
}

// newRootCmd builds the deploy command tree around a runner
func newRootCmd(runner deploy.Runner) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the trade journal containers",
		Long: `Pull the latest source, rebuild the containers and restart them.

Settings are read from the env file (default .env). Each step runs only
if the previous one succeeded; a missing env file aborts before any command.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(opts.logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to the env file")
	rootCmd.PersistentFlags().StringVarP(&opts.dir, "dir", "C", "", "Project directory (default: current)")
	rootCmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Print the steps without running them")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	deployer := func(cmd *cobra.Command) *deploy.Deployer {
		return deploy.NewDeployer(runner, deploy.Options{
			EnvFile: opts.envFile,
			Dir:     opts.dir,
			DryRun:  opts.dryRun,
			Out:     cmd.OutOrStdout(),
		}, logger.Logger)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Pull, rebuild, restart, then show status and logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deployer(cmd).Deploy(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deployment complete")
			return nil
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the state of the services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deployer(cmd).Status(cmd.Context())
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines of the services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deployer(cmd).Logs(cmd.Context())
		},
	})

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(deploy.NewExecRunner(os.Stdout, os.Stderr))
	err := cmd.ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		stop()
		os.Exit(1)
	}
}
