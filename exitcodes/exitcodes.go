// Package exitcodes defines the standard exit codes used by the harness.
package exitcodes

// Exit code constants for the harness and for the isolation re-invocation
// protocol:
//
//   - Success (0): all tests passed; in isolation mode, the test function
//     returned normally
//   - TestFailure (1): one or more tests failed or timed out; in isolation
//     mode, the test function failed
//   - RuntimeErr (2): configuration errors, panics in the harness itself, or
//     other operational failures
//   - PanicExpected (101): isolation mode only; the test panicked and the
//     panic matched the descriptor's expectation. The parent maps this back
//     to a passing result.
const (
	Success       = 0
	TestFailure   = 1
	RuntimeErr    = 2
	PanicExpected = 101
)
