package harness

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/erikdesjardins/testharness/flags"
	"github.com/erikdesjardins/testharness/types"
)

// Config holds the run configuration
type Config struct {
	Strategy           types.RunStrategy
	ConcurrencyDefault types.Concurrency
	Workers            int           // Number of concurrent test workers (0 = number of CPUs)
	CaptureOutput      bool          // Capture test stdout/stderr into results
	Timeout            time.Duration // Per-test deadline for subprocess execution (0 = none)
	ReportTiming       bool          // Record per-test execution times
	IncludeIgnored     bool          // Run ignored tests instead of skipping them
	Manifest           string        // Optional manifest file with descriptor overrides
	OutputDir          string        // Optional directory for per-run report files
	MetricsAddr        string        // Optional address for the metrics/healthz server
	Log                log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	strategy, err := types.ParseRunStrategy(ctx.String(flags.Strategy.Name))
	if err != nil {
		return nil, err
	}

	concurrencyDefault := types.ConcurrencyNo
	if ctx.Bool(flags.Concurrent.Name) {
		concurrencyDefault = types.ConcurrencyYes
	}

	return &Config{
		Strategy:           strategy,
		ConcurrencyDefault: concurrencyDefault,
		Workers:            ctx.Int(flags.Workers.Name),
		CaptureOutput:      ctx.Bool(flags.CaptureOutput.Name),
		Timeout:            ctx.Duration(flags.Timeout.Name),
		ReportTiming:       ctx.Bool(flags.ReportTiming.Name),
		IncludeIgnored:     ctx.Bool(flags.IncludeIgnored.Name),
		Manifest:           ctx.String(flags.Manifest.Name),
		OutputDir:          ctx.String(flags.OutputDir.Name),
		MetricsAddr:        ctx.String(flags.MetricsAddr.Name),
		Log:                logger,
	}, nil
}
