package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"salesreport/internal/config"
	"salesreport/internal/errors"
	"salesreport/internal/infrastructure"
	"salesreport/internal/pipeline"
)

type cliOptions struct {
	envFile    string
	configFile string
	overrides  config.Overrides
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return errors.ExitCode(err)
	}
	return errors.ExitOK
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Generate the daily sales report workbook from a CSV extract",
		Long: `Load a sales CSV extract, clean it, aggregate it into the configured
reports and write one Excel workbook with a sheet per report.

Settings come from defaults, an optional YAML file (--config or
REPORT_CONFIG_FILE), the environment (a .env file is loaded first) and
finally the flags below, each overriding the previous one.

Exit codes: 0 success, 2 configuration, 3 input, 4 transformation,
5 output, 1 anything else.`,
		Version:       config.AppVersion,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, cmd.ErrOrStderr())
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.NewConfigError("invalid command line", err)
	})

	flags := cmd.Flags()
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default .env, skipped when absent)")
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.overrides.SalesDataFile, "input", "", "sales data CSV file (overrides SALES_DATA_FILE)")
	flags.StringVar(&opts.overrides.ReportDir, "output-dir", "", "report output directory (overrides OUTPUT_REPORT_DIR)")
	flags.StringVar(&opts.overrides.ReportDate, "report-date", "", "date stamped into the file name, YYYY-MM-DD (overrides REPORT_DATE)")
	flags.StringVar(&opts.overrides.LogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	return cmd
}

func runReport(ctx context.Context, opts *cliOptions, stderr io.Writer) error {
	cfg, err := config.Load(config.LoadOptions{
		EnvFile:    opts.envFile,
		ConfigFile: opts.configFile,
		Overrides:  opts.overrides,
	})
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return errors.NewConfigError("failed to initialize logger", err)
	}
	defer func() {
		if err := infrastructure.CloseLogFile(); err != nil {
			fmt.Fprintf(stderr, "failed to close log file: %v\n", err)
		}
	}()

	tracing, err := infrastructure.InitializeTracing(cfg.Tracing, logger)
	if err != nil {
		return errors.NewConfigError("failed to initialize tracing", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", slog.String("error", err.Error()))
		}
	}()

	ctx = infrastructure.WithRunID(ctx, infrastructure.GenerateRunID())
	logger.InfoContext(ctx, "Sales report automation starting",
		slog.String("version", config.AppVersion))

	p := pipeline.New(cfg, logger, pipeline.WithTracer(tracing.Tracer()))
	res, err := p.Run(ctx)
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Sales report run failed",
			slog.String("error_type", string(errors.TypeOf(err))),
			slog.Int("exit_code", errors.ExitCode(err)))
		return err
	}

	logger.InfoContext(ctx, "Sales report saved", slog.String("path", res.OutputPath))
	return nil
}
