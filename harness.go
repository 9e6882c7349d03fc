// Package harness is a test-execution engine: it runs an enumerated list of
// test descriptors under an in-process or isolated-subprocess strategy,
// contains failures so one crashing test cannot corrupt the run, and
// aggregates completion events into a deterministic report. The hosting test
// binary calls Main from its entry point; Main also implements the hidden
// isolation mode the subprocess strategy relies on.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/erikdesjardins/testharness/exitcodes"
	"github.com/erikdesjardins/testharness/flags"
	"github.com/erikdesjardins/testharness/registry"
	"github.com/erikdesjardins/testharness/reporting"
	"github.com/erikdesjardins/testharness/runner"
	"github.com/erikdesjardins/testharness/service"
	"github.com/erikdesjardins/testharness/types"
)

// Run executes the given tests under cfg and returns the aggregated report.
// Errors are runtime errors (bad configuration, harness-internal bugs);
// failing tests are reported through the report, not through the error.
func Run(ctx context.Context, cfg *Config, tests []types.Test) (*runner.Report, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.New()
	}

	if cfg.Manifest != "" {
		reg, err := registry.NewRegistry(registry.Config{
			Log:          logger,
			ManifestFile: cfg.Manifest,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create registry: %w", err)
		}
		tests, err = reg.Apply(tests)
		if err != nil {
			return nil, fmt.Errorf("failed to apply manifest: %w", err)
		}
	}

	r, err := runner.New(runner.Config{
		Strategy:           cfg.Strategy,
		ConcurrencyDefault: cfg.ConcurrencyDefault,
		Workers:            cfg.Workers,
		CaptureOutput:      cfg.CaptureOutput,
		Timeout:            cfg.Timeout,
		ReportTiming:       cfg.ReportTiming,
		IncludeIgnored:     cfg.IncludeIgnored,
		Log:                logger,
	}, tests)
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	return r.Run(ctx)
}

// Main is the entry point a hosting test binary calls from its main
// function. It parses flags, runs the tests and exits with Success,
// TestFailure or RuntimeErr. It never returns.
func Main(appName string, tests []types.Test) {
	app := NewApp(appName, tests)
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
	os.Exit(exitcodes.Success)
}

// NewApp builds the cli application wrapping the engine. Exposed separately
// from Main so callers can embed the harness in a larger command.
func NewApp(appName string, tests []types.Test) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "test harness"
	app.Description = fmt.Sprintf("%s runs %d registered tests", appName, len(tests))
	app.Flags = flags.Flags
	app.Action = func(ctx *cli.Context) error {
		logger, err := setupLogging(ctx)
		if err != nil {
			return NewRuntimeError(err)
		}

		// Isolation mode: the subprocess strategy re-invokes this same
		// executable restricted to one named test.
		if name := ctx.String(flags.IsolatedRun.Name); name != "" {
			return runIsolated(name, tests)
		}

		cfg, err := NewConfig(ctx, logger)
		if err != nil {
			return NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
		}

		if cfg.MetricsAddr != "" {
			svc := service.New(cfg.MetricsAddr, logger)
			svc.Start(ctx.Context)
			defer svc.Shutdown()
		}

		report, err := Run(ctx.Context, cfg, tests)
		if err != nil {
			return NewRuntimeError(err)
		}

		formatter := NewConsoleResultFormatter(logger)
		if err := formatter.FormatResults(report); err != nil {
			logger.Error("Failed to format results", "error", err)
		}
		fmt.Println(report.String())

		if cfg.OutputDir != "" {
			if err := reporting.WriteAll(cfg.OutputDir, report); err != nil {
				return NewRuntimeError(fmt.Errorf("failed to write report files: %w", err))
			}
			logger.Info("Report files written", "dir", cfg.OutputDir, "run_id", report.RunID)
		}

		if report.Failed() {
			return NewTestFailureError(fmt.Sprintf("%d of %d tests did not pass",
				report.Stats.Failed+report.Stats.TimedOut, report.Stats.Total))
		}
		return nil
	}
	return app
}

// runIsolated executes a single named test and exits following the
// expected-panic exit code convention.
func runIsolated(name string, tests []types.Test) error {
	for _, test := range tests {
		if test.Desc.Name != name {
			continue
		}
		if code := runner.RunIsolated(test); code != exitcodes.Success {
			return cli.Exit("", code)
		}
		return nil
	}
	return NewRuntimeError(fmt.Errorf("isolated-run: unknown test %q", name))
}

// setupLogging configures the root logger from the log.level flag.
func setupLogging(ctx *cli.Context) (log.Logger, error) {
	lvl, err := log.LvlFromString(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger, nil
}
