// Package runner executes an enumerated list of tests and aggregates their
// results. It supports two execution strategies: in-process, where a test
// function runs inside the harness with panics intercepted, and subprocess,
// where the test binary re-invokes itself in isolation mode so a crashing
// test cannot take down the run. Completion events from concurrently running
// executors flow through a single multi-producer channel into the result
// monitor, which produces a deterministic, descriptor-ordered report.
package runner
