package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/gmail-inbox-status/internal/config"
	"github.com/teemow/gmail-inbox-status/internal/instrumentation"
	"github.com/teemow/gmail-inbox-status/internal/logging"
)

// version will be set by main
var version = "dev"

// SetVersion sets the version reported by --version
func SetVersion(v string) {
	version = v
}

// Execute is the main entry point for the CLI application. It exits the
// process with the command's exit code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr, newServices)
	stop()
	os.Exit(code)
}

// execute runs the root command with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, build servicesFactory) int {
	exitCode := 0
	rootCmd := newRootCmd(stdout, stderr, build, &exitCode)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return exitCode
}

func newRootCmd(stdout, stderr io.Writer, build servicesFactory, exitCode *int) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "gmail-inbox-status",
		Short: "Prints the number of messages in a Gmail inbox",
		Long: `gmail-inbox-status prints the number of threads in your Gmail inbox.

The first run for an account opens a browser to authorize read-only access.
The resulting token is stored and reused on later runs.

With --check-empty nothing is printed; the exit code is 0 if the inbox is
empty and 1 otherwise, which makes the command usable in shell conditions:

  gmail-inbox-status --check-empty --unread || echo "You have mail"

The count is Gmail's result size estimate and may be approximate for large
inboxes.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := logging.New(stderr, cfg.LogLevel)
			slog.SetDefault(logger)

			instCfg := cfg.Instrumentation
			instCfg.ServiceVersion = version
			provider, err := instrumentation.NewProvider(cmd.Context(), instCfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := provider.Shutdown(context.WithoutCancel(cmd.Context())); err != nil {
					logger.Warn("failed to flush telemetry", logging.Err(err))
				}
			}()

			svc := build(cfg, logger, provider.Metrics())
			code, err := run(cmd.Context(), opts, svc, stdout, stderr)
			if err != nil {
				return err
			}
			*exitCode = code
			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(`{{printf "gmail-inbox-status version %s\n" .Version}}`)

	cmd.Flags().StringVarP(&opts.account, "account", "a", defaultAccount, "An identifier for the account you want to check")
	cmd.Flags().BoolVarP(&opts.unread, "unread", "u", false, "Only count unread messages")
	cmd.Flags().BoolVarP(&opts.checkEmpty, "check-empty", "c", false, "Do not output anything, only exit successfully if empty")

	return cmd
}
