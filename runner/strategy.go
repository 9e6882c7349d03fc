package runner

import (
	"fmt"
	"runtime"

	"github.com/erikdesjardins/testharness/types"
)

// executionPath is the concrete way one descriptor will be executed.
type executionPath struct {
	strategy   types.RunStrategy
	concurrent bool
}

// platformCaps describes what the current platform can do. Capabilities are
// detected once per run.
type platformCaps struct {
	// supportsConcurrentExecution is false on platforms without usable
	// threading, in which case every test is forced to synchronous
	// in-process execution.
	supportsConcurrentExecution bool
	// supportsSubprocess is false on platforms that cannot spawn
	// processes; subprocess isolation degrades to in-process there.
	supportsSubprocess bool
}

// detectPlatformCaps probes the running platform rather than assuming a
// fixed answer.
func detectPlatformCaps() platformCaps {
	switch runtime.GOOS {
	case "js", "wasip1":
		// Single-threaded wasm targets: no process spawning, and
		// goroutines cannot be scheduled onto additional threads.
		return platformCaps{}
	}
	return platformCaps{
		supportsConcurrentExecution: true,
		supportsSubprocess:          true,
	}
}

// selectPath decides the execution path for one descriptor given the
// requested run strategy and platform capabilities.
//
// Benchmarks always run synchronously in-process: measurement validity
// requires a clean single-threaded run. Dynamic closures can only run
// in-process; requesting them under the subprocess strategy is a
// configuration error, not a test failure, because a subprocess cannot
// serialize and re-invoke an arbitrary captured closure.
func selectPath(strategy types.RunStrategy, concurrencyDefault types.Concurrency, desc types.TestDescriptor, caps platformCaps) (executionPath, error) {
	switch desc.Kind {
	case types.KindBenchmark:
		return executionPath{strategy: types.StrategyInProcess}, nil
	case types.KindDynamicTest:
		if strategy == types.StrategySubprocess {
			return executionPath{}, fmt.Errorf("dynamic test %q cannot run under the subprocess strategy", desc.Name)
		}
	}

	if !caps.supportsConcurrentExecution {
		// Degraded but correct: everything runs synchronously on the
		// calling goroutine, regardless of the requested strategy.
		return executionPath{strategy: types.StrategyInProcess}, nil
	}

	concurrency := desc.Concurrency
	if concurrency == "" {
		concurrency = concurrencyDefault
	}
	path := executionPath{
		strategy:   strategy,
		concurrent: concurrency == types.ConcurrencyYes,
	}
	if strategy == types.StrategySubprocess && !caps.supportsSubprocess {
		path.strategy = types.StrategyInProcess
	}
	return path, nil
}
