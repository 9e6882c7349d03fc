package types

import (
	"fmt"
	"strings"
	"sync"
)

// TestKind identifies which flavor of function a descriptor carries
type TestKind string

const (
	KindUnitTest    TestKind = "unit"
	KindBenchmark   TestKind = "bench"
	KindDynamicTest TestKind = "dynamic"
)

func (k TestKind) String() string {
	return string(k)
}

// PanicExpectation describes whether a test is expected to panic, and
// optionally which message the panic must carry. The zero value means no
// panic is expected.
type PanicExpectation struct {
	Expected bool
	Message  string // substring the panic message must contain; empty matches any panic
}

// ShouldPanic returns an expectation that the test panics with any message.
func ShouldPanic() PanicExpectation {
	return PanicExpectation{Expected: true}
}

// ShouldPanicWithMessage returns an expectation that the test panics with a
// message containing msg.
func ShouldPanicWithMessage(msg string) PanicExpectation {
	return PanicExpectation{Expected: true, Message: msg}
}

// Matches reports whether a panic carrying msg satisfies the expectation.
func (p PanicExpectation) Matches(msg string) bool {
	if !p.Expected {
		return false
	}
	if p.Message == "" {
		return true
	}
	return strings.Contains(msg, p.Message)
}

// TestDescriptor holds the identity and metadata for one test. Descriptors
// are created during collection and are read-only for the lifetime of a run;
// the engine never mutates them.
type TestDescriptor struct {
	Name        string
	Ignore      bool // skip unless explicitly forced
	ShouldPanic PanicExpectation
	AllowFail   bool // failure does not fail the overall run
	Kind        TestKind
	Concurrency Concurrency // per-test override; empty means the run's default applies
}

// TestFn is a tagged variant over the three function shapes the engine can
// execute. Exactly one field must be set, matching the descriptor's Kind:
//
//   - Static: a zero-argument function known at compile time
//   - Dynamic: a once-callable closure captured at registration time
//   - Bench: a benchmark function taking a measurement handle
//
// All three are treated uniformly as a unit of work that either completes
// normally, panics, or never returns.
type TestFn struct {
	Static  func()
	Dynamic func()
	Bench   func(*Measurement)
}

// StaticFn wraps a plain test function.
func StaticFn(fn func()) TestFn {
	return TestFn{Static: fn}
}

// DynamicFn wraps a captured closure. The closure is consumed by its first
// invocation; invoking it a second time panics.
func DynamicFn(fn func()) TestFn {
	var once sync.Once
	return TestFn{Dynamic: func() {
		ran := false
		once.Do(func() {
			ran = true
			fn()
		})
		if !ran {
			panic("dynamic test closure invoked more than once")
		}
	}}
}

// BenchFn wraps a benchmark function.
func BenchFn(fn func(*Measurement)) TestFn {
	return TestFn{Bench: fn}
}

// Validate checks that exactly one function is set and that it matches kind.
func (f TestFn) Validate(kind TestKind) error {
	set := 0
	if f.Static != nil {
		set++
	}
	if f.Dynamic != nil {
		set++
	}
	if f.Bench != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("test function must have exactly one variant set, got %d", set)
	}
	switch kind {
	case KindUnitTest:
		if f.Static == nil {
			return fmt.Errorf("kind %q requires a static function", kind)
		}
	case KindDynamicTest:
		if f.Dynamic == nil {
			return fmt.Errorf("kind %q requires a dynamic closure", kind)
		}
	case KindBenchmark:
		if f.Bench == nil {
			return fmt.Errorf("kind %q requires a benchmark function", kind)
		}
	default:
		return fmt.Errorf("unknown test kind %q", kind)
	}
	return nil
}

// Test pairs a descriptor with the function it names. The driver consumes a
// finite, ordered list of these.
type Test struct {
	Desc TestDescriptor
	Fn   TestFn
}
