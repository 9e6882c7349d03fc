package types

import (
	"time"
)

// TestStatus represents the possible outcomes of a test execution
type TestStatus string

const (
	TestStatusPass           TestStatus = "pass"
	TestStatusFail           TestStatus = "fail"
	TestStatusIgnored        TestStatus = "ignored"
	TestStatusAllowedFailure TestStatus = "allowed_failure"
	TestStatusTimeout        TestStatus = "timeout"
)

// Failing reports whether the status should fail the overall run. Allowed
// failures and ignored tests do not affect the run's exit code.
func (s TestStatus) Failing() bool {
	return s == TestStatusFail || s == TestStatusTimeout
}

// RunStrategy selects how tests are executed for an entire run
type RunStrategy string

const (
	StrategyInProcess  RunStrategy = "in-process"
	StrategySubprocess RunStrategy = "subprocess"
)

// ParseRunStrategy converts a flag value into a RunStrategy.
func ParseRunStrategy(s string) (RunStrategy, error) {
	switch RunStrategy(s) {
	case StrategyInProcess:
		return StrategyInProcess, nil
	case StrategySubprocess:
		return StrategySubprocess, nil
	}
	return "", &UnknownStrategyError{Value: s}
}

// UnknownStrategyError is returned when a strategy flag value is not recognized.
type UnknownStrategyError struct {
	Value string
}

func (e *UnknownStrategyError) Error() string {
	return "unknown run strategy " + e.Value + " (expected 'in-process' or 'subprocess')"
}

// Concurrency indicates whether a test may run concurrently with others
type Concurrency string

const (
	ConcurrencyYes Concurrency = "yes"
	ConcurrencyNo  Concurrency = "no"
)

// TestResult captures the outcome of a single test run. Exactly one result
// is produced per descriptor per run.
type TestResult struct {
	Descriptor TestDescriptor
	Status     TestStatus
	Error      error
	Duration   time.Duration // execution time; set only when timing was requested
	Output     string        // captured stdout/stderr from the test
}

// MonitorEvent is the sole unit of communication from an executor to the
// result monitor. Index is the descriptor's position in the submitted list,
// which lets the monitor rebuild a stable descriptor-order report from
// events arriving in arbitrary order.
type MonitorEvent struct {
	Index  int
	Result *TestResult
}
