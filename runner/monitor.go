package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/erikdesjardins/testharness/types"
)

// ReportStats tracks result counts for a run
type ReportStats struct {
	Total           int
	Passed          int
	Failed          int
	Ignored         int
	AllowedFailures int
	TimedOut        int
	StartTime       time.Time
	EndTime         time.Time
}

// Report is the final aggregation of one run: per-test results in stable
// descriptor order plus summary counts.
type Report struct {
	RunID    string
	Results  []*types.TestResult
	Stats    ReportStats
	Status   types.TestStatus
	Duration time.Duration
}

// Failed reports whether the run should yield a nonzero exit code: true iff
// at least one result is fail or timeout. Allowed failures and ignored tests
// do not count.
func (r *Report) Failed() bool {
	return r.Status == types.TestStatusFail
}

// monitor is the single aggregation point for completion events. Executors
// are the producers; collect is the sole consumer. The channel is buffered
// to the submitted descriptor count, so a send can never block: combined
// with the executors' guaranteed single emission per descriptor, the monitor
// cannot starve.
type monitor struct {
	events   chan types.MonitorEvent
	expected int
	log      log.Logger
}

func newMonitor(expected int, logger log.Logger) *monitor {
	return &monitor{
		events:   make(chan types.MonitorEvent, expected),
		expected: expected,
		log:      logger.New("component", "monitor"),
	}
}

// send delivers one completion event. Exactly one send must happen per
// submitted descriptor; this is the executors' single externally visible
// side effect.
func (m *monitor) send(ev types.MonitorEvent) {
	m.events <- ev
}

// collect receives exactly one event per submitted descriptor, in whatever
// order they arrive, and rebuilds the descriptor-order result list. A
// duplicate or out-of-range index is a harness bug, not a test outcome, and
// aborts the run.
func (m *monitor) collect(startTime time.Time) (*Report, error) {
	report := &Report{
		Results: make([]*types.TestResult, m.expected),
		Stats:   ReportStats{StartTime: startTime},
	}

	for i := 0; i < m.expected; i++ {
		ev := <-m.events
		if ev.Index < 0 || ev.Index >= m.expected {
			return nil, fmt.Errorf("monitor received event with index %d outside submitted range [0,%d)", ev.Index, m.expected)
		}
		if report.Results[ev.Index] != nil {
			return nil, fmt.Errorf("monitor received duplicate event for %q", ev.Result.Descriptor.Name)
		}
		report.Results[ev.Index] = ev.Result
		m.log.Debug("result collected", "test", ev.Result.Descriptor.Name, "status", ev.Result.Status, "received", i+1, "expected", m.expected)
	}

	report.finalize()
	return report, nil
}

// finalize computes summary counts and the overall status from the full
// result set.
func (r *Report) finalize() {
	for _, result := range r.Results {
		r.Stats.Total++
		switch result.Status {
		case types.TestStatusPass:
			r.Stats.Passed++
		case types.TestStatusFail:
			r.Stats.Failed++
		case types.TestStatusIgnored:
			r.Stats.Ignored++
		case types.TestStatusAllowedFailure:
			r.Stats.AllowedFailures++
		case types.TestStatusTimeout:
			r.Stats.TimedOut++
		}
	}

	r.Stats.EndTime = time.Now()
	r.Duration = r.Stats.EndTime.Sub(r.Stats.StartTime)
	if r.Stats.Failed > 0 || r.Stats.TimedOut > 0 {
		r.Status = types.TestStatusFail
	} else {
		r.Status = types.TestStatusPass
	}
}

// formatDuration formats the duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// String returns a formatted string representation of the run results. Every
// test is listed in descriptor order; non-passing tests additionally carry
// their failure reason and captured output.
func (r *Report) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Test Run Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Ignored: %d, Allowed failures: %d, Timed out: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Ignored, r.Stats.AllowedFailures, r.Stats.TimedOut))

	for i, result := range r.Results {
		prefix := "├──"
		if i == len(r.Results)-1 {
			prefix = "└──"
		}
		if result.Duration > 0 {
			b.WriteString(fmt.Sprintf("%s %s (%s) [status=%s]\n", prefix, result.Descriptor.Name, formatDuration(result.Duration), result.Status))
		} else {
			b.WriteString(fmt.Sprintf("%s %s [status=%s]\n", prefix, result.Descriptor.Name, result.Status))
		}

		if result.Status == types.TestStatusPass || result.Status == types.TestStatusIgnored {
			continue
		}
		if result.Error != nil {
			b.WriteString(fmt.Sprintf("│       └── Error: %s\n", result.Error.Error()))
		}
		if output := strings.TrimSpace(result.Output); output != "" {
			b.WriteString(fmt.Sprintf("│       └── Output: %s\n", output))
		}
	}
	return b.String()
}
