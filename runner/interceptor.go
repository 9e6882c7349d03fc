package runner

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// The failure interceptor is a process-global resource: it is how a failure
// raised outside the test's own goroutine (e.g. by a goroutine the test
// spawned) gets attributed to the right execution window. Guards are keyed
// by test name, which is unique per run, so concurrently installed
// interceptors cannot leak failures into each other.

var (
	interceptorMu sync.Mutex
	interceptors  = make(map[string]*interceptorGuard)
)

// interceptorGuard is a scoped failure recorder. Install it before invoking
// a test function and release it on every exit path; Release is idempotent.
type interceptorGuard struct {
	test string

	mu       sync.Mutex
	failures []error
	released bool
}

// installInterceptor registers a failure recorder for the named test and
// returns the guard that owns it.
func installInterceptor(test string) *interceptorGuard {
	g := &interceptorGuard{test: test}
	interceptorMu.Lock()
	interceptors[test] = g
	interceptorMu.Unlock()
	return g
}

func (g *interceptorGuard) record(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		log.Warn("failure reported after interceptor release", "test", g.test, "err", err)
		return
	}
	g.failures = append(g.failures, err)
}

// Release deregisters the guard and returns every failure recorded while it
// was active. Calling Release again returns the same failures.
func (g *interceptorGuard) Release() []error {
	interceptorMu.Lock()
	if interceptors[g.test] == g {
		delete(interceptors, g.test)
	}
	interceptorMu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = true
	return g.failures
}

// ReportFailure records a failure against the named test without unwinding
// the caller. Goroutines spawned by a test use this to flag failures the
// harness would otherwise never observe; the test still fails even when its
// function returns normally.
func ReportFailure(test string, err error) {
	interceptorMu.Lock()
	g, ok := interceptors[test]
	interceptorMu.Unlock()
	if !ok {
		log.Warn("failure reported for test with no active interceptor", "test", test, "err", err)
		return
	}
	g.record(err)
}
