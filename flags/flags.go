package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "TESTHARNESS"

func prefixEnvVar(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Strategy = &cli.StringFlag{
		Name:    "strategy",
		Value:   "in-process",
		EnvVars: prefixEnvVar("STRATEGY"),
		Usage:   "Execution strategy for the run: 'in-process' or 'subprocess'",
	}
	Concurrent = &cli.BoolFlag{
		Name:    "concurrent",
		Value:   true,
		EnvVars: prefixEnvVar("CONCURRENT"),
		Usage:   "Run tests concurrently by default (benchmarks always run synchronously)",
	}
	Workers = &cli.IntFlag{
		Name:    "workers",
		Value:   0,
		EnvVars: prefixEnvVar("WORKERS"),
		Usage:   "Number of concurrent test workers (0 = number of CPUs)",
	}
	CaptureOutput = &cli.BoolFlag{
		Name:    "capture-output",
		Value:   true,
		EnvVars: prefixEnvVar("CAPTURE_OUTPUT"),
		Usage:   "Capture test stdout/stderr and attach it to failing results",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   0,
		EnvVars: prefixEnvVar("TIMEOUT"),
		Usage:   "Per-test deadline for subprocess execution (e.g. '30s'). 0 disables the deadline.",
	}
	ReportTiming = &cli.BoolFlag{
		Name:    "report-timing",
		Value:   false,
		EnvVars: prefixEnvVar("REPORT_TIMING"),
		Usage:   "Record and report per-test execution times",
	}
	IncludeIgnored = &cli.BoolFlag{
		Name:    "include-ignored",
		Value:   false,
		EnvVars: prefixEnvVar("INCLUDE_IGNORED"),
		Usage:   "Run tests marked as ignored instead of skipping them",
	}
	Manifest = &cli.StringFlag{
		Name:    "manifest",
		Value:   "",
		EnvVars: prefixEnvVar("MANIFEST"),
		Usage:   "Path to a test manifest file with descriptor overrides (eg. 'tests.yaml')",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVar("LOG_LEVEL"),
		Usage:   "Log level: trace, debug, info, warn, error, crit",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "",
		EnvVars: prefixEnvVar("OUTPUT_DIR"),
		Usage:   "Directory to write per-run summary and result files under (empty disables)",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics.addr",
		Value:   "",
		EnvVars: prefixEnvVar("METRICS_ADDR"),
		Usage:   "Address to serve /metrics and /healthz on while the run is active (empty disables)",
	}

	// IsolatedRun is the internal flag implementing the subprocess
	// re-invocation protocol: the parent spawns the same executable with
	// this flag set to a single test name, and the child executes only
	// that test via the in-process path before exiting with a code
	// following the expected-panic convention.
	IsolatedRun = &cli.StringFlag{
		Name:   "isolated-run",
		Value:  "",
		Hidden: true,
		Usage:  "Internal: execute a single named test in isolation mode",
	}
)

var Flags = []cli.Flag{
	Strategy,
	Concurrent,
	Workers,
	CaptureOutput,
	Timeout,
	ReportTiming,
	IncludeIgnored,
	Manifest,
	OutputDir,
	LogLevel,
	MetricsAddr,
	IsolatedRun,
}

// CheckRequired validates flag combinations that cannot be expressed through
// urfave/cli constraints alone.
func CheckRequired(ctx *cli.Context) error {
	if ctx.Int(Workers.Name) < 0 {
		return fmt.Errorf("flag %s cannot be negative", Workers.Name)
	}
	if ctx.Duration(Timeout.Name) < 0 {
		return fmt.Errorf("flag %s cannot be negative", Timeout.Name)
	}
	return nil
}
