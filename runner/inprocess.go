package runner

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/erikdesjardins/testharness/types"
)

// inProcessExecutor runs a test function inside the harness process,
// intercepting panics so a failing test cannot terminate the run.
type inProcessExecutor struct {
	captureOutput bool
	reportTiming  bool
	log           log.Logger
}

func newInProcessExecutor(captureOutput, reportTiming bool, logger log.Logger) *inProcessExecutor {
	return &inProcessExecutor{
		captureOutput: captureOutput,
		reportTiming:  reportTiming,
		log:           logger.New("executor", "in-process"),
	}
}

// execute runs one test and returns its result. The lifecycle order is
// fixed: interceptor install, capture install, invoke, capture release,
// interceptor release. invoke recovers any panic internally, so the release
// steps run on abnormal completion too.
func (e *inProcessExecutor) execute(test types.Test) *types.TestResult {
	guard := installInterceptor(test.Desc.Name)

	var capture *captureGuard
	if e.captureOutput {
		var err error
		capture, err = captureStdio(defaultOutputTailBytes)
		if err != nil {
			// Run uncaptured rather than failing the test.
			e.log.Warn("output capture unavailable", "test", test.Desc.Name, "err", err)
		}
	}

	inv := invoke(test.Fn)

	var output []byte
	if capture != nil {
		output = capture.Release()
	}
	recorded := guard.Release()

	result := reconcile(test.Desc, inv, recorded)
	result.Output = string(output)
	// Benchmarks always report their measured time; unit tests only when
	// timing was requested.
	if e.reportTiming || test.Desc.Kind == types.KindBenchmark {
		result.Duration = inv.elapsed
	}
	return result
}

// invocation is the raw outcome of calling a test function, before it is
// reconciled against the descriptor's expectations.
type invocation struct {
	panicked     bool
	panicMessage string
	elapsed      time.Duration
}

// invoke calls the function variant carried by fn, recovering any panic.
// Timing wraps only the call itself; for benchmarks the measurement handle's
// timed sections take precedence over wall-clock time.
func invoke(fn types.TestFn) (inv invocation) {
	start := time.Now()
	defer func() {
		if inv.elapsed == 0 {
			inv.elapsed = time.Since(start)
		}
		if r := recover(); r != nil {
			inv.panicked = true
			inv.panicMessage = panicMessage(r)
		}
	}()

	switch {
	case fn.Static != nil:
		fn.Static()
	case fn.Dynamic != nil:
		fn.Dynamic()
	case fn.Bench != nil:
		m := types.NewMeasurement()
		m.StartTimer()
		fn.Bench(m)
		m.StopTimer()
		inv.elapsed = m.Elapsed()
	}
	return inv
}

// panicMessage extracts a printable message from a recovered panic value.
func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// reconcile maps a raw invocation outcome onto a TestResult, honoring the
// descriptor's panic expectation.
func reconcile(desc types.TestDescriptor, inv invocation, recorded []error) *types.TestResult {
	result := &types.TestResult{Descriptor: desc}

	switch {
	case inv.panicked:
		msg := inv.panicMessage
		if msg == "" {
			msg = "explicit failure"
		}
		if desc.ShouldPanic.Expected {
			if desc.ShouldPanic.Matches(msg) {
				// A matching panic does not excuse failures recorded by
				// background goroutines during the run.
				if len(recorded) > 0 {
					result.Status = types.TestStatusFail
					result.Error = errors.Join(recorded...)
				} else {
					result.Status = types.TestStatusPass
				}
			} else {
				result.Status = types.TestStatusFail
				result.Error = fmt.Errorf("panic message did not match: got %q, want substring %q", msg, desc.ShouldPanic.Message)
			}
		} else {
			result.Status = types.TestStatusFail
			result.Error = errors.New(msg)
		}

	case len(recorded) > 0:
		// The function returned normally, but a failure was recorded
		// asynchronously during execution.
		result.Status = types.TestStatusFail
		result.Error = errors.Join(recorded...)

	case desc.ShouldPanic.Expected:
		result.Status = types.TestStatusFail
		result.Error = errors.New("test did not panic as expected")

	default:
		result.Status = types.TestStatusPass
	}
	return result
}
