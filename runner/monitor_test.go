package runner

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikdesjardins/testharness/types"
)

func resultFor(name string, status types.TestStatus) *types.TestResult {
	return &types.TestResult{
		Descriptor: types.TestDescriptor{Name: name, Kind: types.KindUnitTest},
		Status:     status,
	}
}

func TestMonitorRebuildsDescriptorOrder(t *testing.T) {
	const n = 20
	mon := newMonitor(n, log.New())

	names := make([]string, n)
	events := make([]types.MonitorEvent, n)
	for i := range events {
		names[i] = "Test" + string(rune('A'+i))
		events[i] = types.MonitorEvent{Index: i, Result: resultFor(names[i], types.TestStatusPass)}
	}
	// Deliver out of order: arrival order must not matter.
	rand.New(rand.NewSource(1)).Shuffle(n, func(i, j int) {
		events[i], events[j] = events[j], events[i]
	})
	for _, ev := range events {
		mon.send(ev)
	}

	report, err := mon.collect(time.Now())
	require.NoError(t, err)
	require.Len(t, report.Results, n)
	for i, result := range report.Results {
		assert.Equal(t, names[i], result.Descriptor.Name)
	}
}

func TestMonitorSendNeverBlocks(t *testing.T) {
	// All sends complete before the consumer starts; the channel buffer must
	// absorb one event per submitted descriptor.
	mon := newMonitor(3, log.New())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			mon.send(types.MonitorEvent{Index: i, Result: resultFor("Test", types.TestStatusPass)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sends blocked without a consumer")
	}
	_, err := mon.collect(time.Now())
	require.NoError(t, err)
}

func TestMonitorRejectsDuplicateIndex(t *testing.T) {
	mon := newMonitor(2, log.New())
	mon.send(types.MonitorEvent{Index: 0, Result: resultFor("TestA", types.TestStatusPass)})
	mon.send(types.MonitorEvent{Index: 0, Result: resultFor("TestA", types.TestStatusFail)})

	_, err := mon.collect(time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate event")
}

func TestMonitorRejectsOutOfRangeIndex(t *testing.T) {
	mon := newMonitor(1, log.New())
	mon.send(types.MonitorEvent{Index: 5, Result: resultFor("TestA", types.TestStatusPass)})

	_, err := mon.collect(time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside submitted range")
}

func TestReportFinalize(t *testing.T) {
	report := &Report{
		Results: []*types.TestResult{
			resultFor("TestPass", types.TestStatusPass),
			resultFor("TestFail", types.TestStatusFail),
			resultFor("TestIgnored", types.TestStatusIgnored),
			resultFor("TestAllowed", types.TestStatusAllowedFailure),
			resultFor("TestSlow", types.TestStatusTimeout),
		},
		Stats: ReportStats{StartTime: time.Now()},
	}
	report.finalize()

	assert.Equal(t, 5, report.Stats.Total)
	assert.Equal(t, 1, report.Stats.Passed)
	assert.Equal(t, 1, report.Stats.Failed)
	assert.Equal(t, 1, report.Stats.Ignored)
	assert.Equal(t, 1, report.Stats.AllowedFailures)
	assert.Equal(t, 1, report.Stats.TimedOut)
	assert.Equal(t, types.TestStatusFail, report.Status)
	assert.True(t, report.Failed())
}

func TestReportAllowedFailuresDoNotFailRun(t *testing.T) {
	report := &Report{
		Results: []*types.TestResult{
			resultFor("TestPass", types.TestStatusPass),
			resultFor("TestAllowed", types.TestStatusAllowedFailure),
			resultFor("TestIgnored", types.TestStatusIgnored),
		},
		Stats: ReportStats{StartTime: time.Now()},
	}
	report.finalize()

	assert.Equal(t, types.TestStatusPass, report.Status)
	assert.False(t, report.Failed())
}

func TestReportString(t *testing.T) {
	failed := resultFor("TestBroken", types.TestStatusFail)
	failed.Error = errors.New("assertion failed")
	failed.Output = "some captured output\n"

	report := &Report{
		RunID:   "test-run",
		Results: []*types.TestResult{resultFor("TestOk", types.TestStatusPass), failed},
		Stats:   ReportStats{StartTime: time.Now()},
	}
	report.finalize()

	out := report.String()
	assert.Contains(t, out, "Total: 2, Passed: 1, Failed: 1")
	assert.Contains(t, out, "├── TestOk [status=pass]")
	assert.Contains(t, out, "└── TestBroken [status=fail]")
	assert.Contains(t, out, "Error: assertion failed")
	assert.Contains(t, out, "Output: some captured output")
	// Passing tests carry no error or output lines.
	assert.NotContains(t, out, "TestOk\n│")
}
