package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/erikdesjardins/testharness/exitcodes"
	"github.com/erikdesjardins/testharness/flags"
	"github.com/erikdesjardins/testharness/types"
)

// subprocessExecutor re-invokes the current executable in isolation mode for
// a single named test. Isolation exists because some failures are not panics
// but full process aborts (stack overflow, illegal instruction, runtime
// fatal errors) that would otherwise take down the entire run.
type subprocessExecutor struct {
	binary       string
	timeout      time.Duration
	reportTiming bool
	log          log.Logger

	// cmdBuilder is injectable so tests can substitute arbitrary child
	// processes for the self re-invocation.
	cmdBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

func newSubprocessExecutor(binary string, timeout time.Duration, reportTiming bool, logger log.Logger) (*subprocessExecutor, error) {
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolving current executable: %w", err)
		}
		binary = exe
	}
	return &subprocessExecutor{
		binary:       binary,
		timeout:      timeout,
		reportTiming: reportTiming,
		log:          logger.New("executor", "subprocess"),
		cmdBuilder:   exec.CommandContext,
	}, nil
}

// execute spawns the child, waits for it to terminate or for the deadline to
// elapse, and maps its exit status onto a TestResult. A crash in the child
// never corrupts the parent: every outcome, including a hang, becomes a
// result.
func (e *subprocessExecutor) execute(ctx context.Context, test types.Test) *types.TestResult {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	output := newTailBuffer(defaultOutputTailBytes)
	cmd := e.cmdBuilder(ctx, e.binary, "--"+flags.IsolatedRun.Name, test.Desc.Name)
	cmd.Stdout = output
	cmd.Stderr = output
	// Bound the post-kill drain so pipes inherited by grandchildren cannot
	// stall the wait.
	cmd.WaitDelay = 10 * time.Second

	e.log.Debug("spawning isolated test", "test", test.Desc.Name, "binary", e.binary, "timeout", e.timeout)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	result := &types.TestResult{Descriptor: test.Desc}
	if e.reportTiming {
		result.Duration = elapsed
	}

	if ctx.Err() == context.DeadlineExceeded {
		// The child has been forcibly terminated; remaining output is
		// discarded along with the pipe.
		result.Status = types.TestStatusTimeout
		result.Error = fmt.Errorf("test timed out after %v", e.timeout)
		return result
	}

	result.Output = string(output.Bytes())
	if output.Truncated() {
		e.log.Debug("child output truncated to tail", "test", test.Desc.Name, "kept_bytes", len(result.Output))
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		// Clean exit: the child's test function returned normally.
		if test.Desc.ShouldPanic.Expected {
			result.Status = types.TestStatusFail
			result.Error = errors.New("test did not panic as expected")
		} else {
			result.Status = types.TestStatusPass
		}

	case errors.As(err, &exitErr):
		if exitErr.ExitCode() == exitcodes.PanicExpected && test.Desc.ShouldPanic.Expected {
			result.Status = types.TestStatusPass
		} else {
			result.Status = types.TestStatusFail
			result.Error = buildChildDiagnostic(exitErr, result.Output)
		}

	default:
		result.Status = types.TestStatusFail
		result.Error = fmt.Errorf("failed to run isolated test: %w", err)
	}
	return result
}

// buildChildDiagnostic combines the child's exit status with the tail of its
// captured output into a single failure reason.
func buildChildDiagnostic(exitErr *exec.ExitError, output string) error {
	reason := exitErr.String() // "exit status N" or "signal: ..."
	if trimmed := strings.TrimSpace(output); trimmed != "" {
		return fmt.Errorf("%s\n%s", reason, trimmed)
	}
	return errors.New(reason)
}

// RunIsolated is the child half of the re-invocation protocol. It executes a
// single test via the in-process path and returns the exit code the parent
// expects: Success on normal return, PanicExpected when a panic matched the
// descriptor's expectation, TestFailure otherwise. Output is left on the
// inherited stdout/stderr, which the parent owns through pipes.
func RunIsolated(test types.Test) int {
	guard := installInterceptor(test.Desc.Name)
	inv := invoke(test.Fn)
	recorded := guard.Release()

	if inv.panicked {
		msg := inv.panicMessage
		if msg == "" {
			msg = "explicit failure"
		}
		if test.Desc.ShouldPanic.Matches(msg) {
			if len(recorded) > 0 {
				fmt.Fprintf(os.Stderr, "failure: %v\n", errors.Join(recorded...))
				return exitcodes.TestFailure
			}
			return exitcodes.PanicExpected
		}
		fmt.Fprintf(os.Stderr, "panic: %s\n", msg)
		return exitcodes.TestFailure
	}
	if len(recorded) > 0 {
		fmt.Fprintf(os.Stderr, "failure: %v\n", errors.Join(recorded...))
		return exitcodes.TestFailure
	}
	return exitcodes.Success
}
