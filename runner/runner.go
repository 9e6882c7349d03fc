package runner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/erikdesjardins/testharness/metrics"
	"github.com/erikdesjardins/testharness/types"
)

// Config holds configuration for creating a new runner
type Config struct {
	Strategy           types.RunStrategy
	ConcurrencyDefault types.Concurrency
	Workers            int  // number of pooled workers; 0 = number of CPUs
	CaptureOutput      bool // redirect test stdout/stderr into the result
	Timeout            time.Duration
	ReportTiming       bool
	IncludeIgnored     bool   // run ignored tests instead of skipping them
	Binary             string // executable for subprocess isolation; defaults to the current one
	Log                log.Logger
}

// Runner drives one run over an ordered list of tests.
type Runner struct {
	cfg    Config
	tests  []types.Test
	caps   platformCaps
	log    log.Logger
	tracer trace.Tracer

	inProcess  *inProcessExecutor
	subprocess *subprocessExecutor

	runID string
}

// New creates a runner and validates the configuration against the submitted
// tests. An illegal combination, such as a dynamic-closure test under the
// subprocess strategy, is rejected here as a configuration error: it must
// never be downgraded to a single test's failed result.
func New(cfg Config, tests []types.Test) (*Runner, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Strategy == "" {
		cfg.Strategy = types.StrategyInProcess
	}
	if cfg.ConcurrencyDefault == "" {
		cfg.ConcurrencyDefault = types.ConcurrencyYes
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	caps := detectPlatformCaps()

	seen := make(map[string]struct{}, len(tests))
	for _, test := range tests {
		if test.Desc.Name == "" {
			return nil, fmt.Errorf("test descriptor with empty name")
		}
		if _, dup := seen[test.Desc.Name]; dup {
			return nil, fmt.Errorf("duplicate test name %q", test.Desc.Name)
		}
		seen[test.Desc.Name] = struct{}{}

		if err := test.Fn.Validate(test.Desc.Kind); err != nil {
			return nil, fmt.Errorf("test %q: %w", test.Desc.Name, err)
		}
		switch test.Desc.Concurrency {
		case "", types.ConcurrencyYes, types.ConcurrencyNo:
		default:
			return nil, fmt.Errorf("test %q: unknown concurrency %q", test.Desc.Name, test.Desc.Concurrency)
		}
		if _, err := selectPath(cfg.Strategy, cfg.ConcurrencyDefault, test.Desc, caps); err != nil {
			return nil, err
		}
	}

	r := &Runner{
		cfg:       cfg,
		tests:     tests,
		caps:      caps,
		log:       cfg.Log,
		tracer:    otel.Tracer("test runner"),
		inProcess: newInProcessExecutor(cfg.CaptureOutput, cfg.ReportTiming, cfg.Log),
	}

	if cfg.Strategy == types.StrategySubprocess && caps.supportsSubprocess {
		sub, err := newSubprocessExecutor(cfg.Binary, cfg.Timeout, cfg.ReportTiming, cfg.Log)
		if err != nil {
			return nil, err
		}
		r.subprocess = sub
	}
	return r, nil
}

// workItem is one dispatched descriptor with its chosen execution path.
type workItem struct {
	index int
	test  types.Test
	path  executionPath
}

// Run executes every submitted test and returns the aggregated report. For
// every descriptor exactly one completion event reaches the monitor, even
// when a test hangs forever in subprocess mode; this is the liveness
// guarantee the engine exists to provide.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.runID = uuid.New().String()
	start := time.Now()
	r.log.Debug("Starting test run", "run_id", r.runID, "tests", len(r.tests),
		"strategy", r.cfg.Strategy, "concurrency_default", r.cfg.ConcurrencyDefault, "workers", r.cfg.Workers)

	mon := newMonitor(len(r.tests), r.log)

	// Pooled workers for concurrently dispatched tests. The pool is bounded
	// as a resource-control refinement; the single-event-per-descriptor
	// guarantee does not depend on pool size.
	workCh := make(chan workItem)
	var wg sync.WaitGroup
	if r.caps.supportsConcurrentExecution {
		for i := 0; i < r.cfg.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for item := range workCh {
					r.executeOne(ctx, item, mon)
				}
			}()
		}
	}

	for i, test := range r.tests {
		if test.Desc.Ignore && !r.cfg.IncludeIgnored {
			// Ignored descriptors never invoke their function.
			r.emit(mon, types.MonitorEvent{Index: i, Result: &types.TestResult{
				Descriptor: test.Desc,
				Status:     types.TestStatusIgnored,
			}})
			continue
		}

		path, err := selectPath(r.cfg.Strategy, r.cfg.ConcurrencyDefault, test.Desc, r.caps)
		if err != nil {
			// Already rejected in New; reaching this is a harness bug.
			return nil, err
		}

		item := workItem{index: i, test: test, path: path}
		if path.concurrent {
			workCh <- item
		} else {
			// Synchronous tests run immediately on the calling
			// goroutine before the next descriptor is considered.
			r.executeOne(ctx, item, mon)
		}
	}
	close(workCh)
	wg.Wait()

	report, err := mon.collect(start)
	if err != nil {
		return nil, err
	}
	report.RunID = r.runID

	metrics.RecordRun(r.runID, string(report.Status), report.Stats.Total,
		report.Stats.Passed, report.Stats.Failed, report.Duration)
	r.log.Info("Test run completed", "run_id", r.runID, "status", report.Status,
		"total", report.Stats.Total, "failed", report.Stats.Failed, "duration", report.Duration)
	return report, nil
}

// executeOne runs a single test on its selected path and emits exactly one
// completion event.
func (r *Runner) executeOne(ctx context.Context, item workItem, mon *monitor) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("test %s", item.test.Desc.Name))
	defer span.End()

	r.log.Debug("Running test", "test", item.test.Desc.Name, "kind", item.test.Desc.Kind,
		"strategy", item.path.strategy, "concurrent", item.path.concurrent)

	var result *types.TestResult
	switch item.path.strategy {
	case types.StrategySubprocess:
		result = r.subprocess.execute(ctx, item.test)
	default:
		result = r.inProcess.execute(item.test)
	}

	if result.Status == types.TestStatusFail && item.test.Desc.AllowFail {
		result.Status = types.TestStatusAllowedFailure
	}

	r.emit(mon, types.MonitorEvent{Index: item.index, Result: result})
}

// emit is the single place completion events leave an execution path.
func (r *Runner) emit(mon *monitor, ev types.MonitorEvent) {
	metrics.RecordTestResult(r.runID, ev.Result.Descriptor.Name,
		string(ev.Result.Descriptor.Kind), ev.Result.Status)
	mon.send(ev)
}
