package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/beacon/internal/app"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "beacon: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	if errors.Is(err, app.ErrLocationFailed) {
		return 2
	}
	return 1
}

// rootFlags are shared by the TUI and the locate subcommand.
type rootFlags struct {
	configPath    string
	provider      string
	maxRetries    int
	metricsAddr   string
	locateOnStart bool
}

func (f *rootFlags) options(cmd *cobra.Command) app.Options {
	opts := app.Options{
		ConfigPath:    f.configPath,
		Provider:      f.provider,
		MetricsAddr:   f.metricsAddr,
		LocateOnStart: f.locateOnStart,
	}
	if cmd.Flags().Changed("max-retries") {
		retries := f.maxRetries
		opts.MaxRetries = &retries
	}
	return opts
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "beacon",
		Short: "Find this machine on a map, with bounded retries",
		Long: `Beacon asks a location provider for this machine's position and shows it
on a terminal map. Failed attempts are retried after a fixed delay until the
retry budget runs out.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), flags.options(cmd))
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file path (default ~/.config/beacon/config.toml)")
	pf.StringVar(&flags.provider, "provider", "", "location provider: ipgeo or static")
	pf.IntVar(&flags.maxRetries, "max-retries", 0, "automatic retries after the first attempt")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&flags.locateOnStart, "locate", false, "request a location as soon as the UI starts")

	cmd.AddCommand(newLocateCommand(flags))
	return cmd
}

func newLocateCommand(flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Run one acquisition cycle and print the position",
		Long: `Run one acquisition cycle without the UI. On success the position is
printed as "lat,lng" and the exit code is 0. When every attempt fails the
last error is printed and the exit code is 2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Locate(cmd.Context(), app.LocateOptions{
				Options: flags.options(cmd),
				JSON:    asJSON,
				Stdout:  cmd.OutOrStdout(),
				Stderr:  cmd.ErrOrStderr(),
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
