package types

import "time"

// Measurement is the handle passed to benchmark functions. It tracks the
// wall-clock time spent inside the timed section so setup and teardown can
// be excluded from the reported duration.
//
// Measurement methodology (iteration counts, statistical smoothing) is the
// caller's concern; the engine only records elapsed time.
type Measurement struct {
	// N is the number of iterations the benchmark body should run.
	N int

	start   time.Time
	elapsed time.Duration
	running bool
}

// NewMeasurement returns a handle with a single iteration requested.
func NewMeasurement() *Measurement {
	return &Measurement{N: 1}
}

// StartTimer begins timing. It is called automatically before the benchmark
// function runs.
func (m *Measurement) StartTimer() {
	if !m.running {
		m.start = time.Now()
		m.running = true
	}
}

// StopTimer halts timing. Benchmarks use this to exclude expensive setup.
func (m *Measurement) StopTimer() {
	if m.running {
		m.elapsed += time.Since(m.start)
		m.running = false
	}
}

// ResetTimer discards time accumulated so far. It does not stop the timer.
func (m *Measurement) ResetTimer() {
	if m.running {
		m.start = time.Now()
	}
	m.elapsed = 0
}

// Elapsed returns the time accumulated in timed sections.
func (m *Measurement) Elapsed() time.Duration {
	if m.running {
		return m.elapsed + time.Since(m.start)
	}
	return m.elapsed
}
