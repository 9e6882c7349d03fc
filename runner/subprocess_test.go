package runner

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikdesjardins/testharness/types"
)

// fakeChild replaces the self re-invocation with an arbitrary shell script,
// so child behavior (clean exit, crash, hang) can be simulated without a
// real isolation-mode binary.
func fakeChild(t *testing.T, timeout time.Duration, script string) *subprocessExecutor {
	t.Helper()
	e, err := newSubprocessExecutor("/bin/sh", timeout, false, log.New())
	require.NoError(t, err)
	e.cmdBuilder = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/bin/sh", "-c", script)
	}
	return e
}

func TestSubprocessCleanExit(t *testing.T) {
	e := fakeChild(t, 0, "exit 0")
	result := e.execute(context.Background(), unitTest("TestOk", func() {}))

	assert.Equal(t, types.TestStatusPass, result.Status)
	assert.NoError(t, result.Error)
}

func TestSubprocessCleanExitButPanicExpected(t *testing.T) {
	e := fakeChild(t, 0, "exit 0")
	result := e.execute(context.Background(), types.Test{
		Desc: types.TestDescriptor{
			Name:        "TestShouldHavePanicked",
			Kind:        types.KindUnitTest,
			ShouldPanic: types.ShouldPanic(),
		},
		Fn: types.StaticFn(func() {}),
	})

	require.Equal(t, types.TestStatusFail, result.Status)
	assert.Contains(t, result.Error.Error(), "did not panic as expected")
}

func TestSubprocessAbortBecomesFailure(t *testing.T) {
	// A child that dies with a nonzero status is contained: the parent
	// maps it to a failed result instead of propagating the crash.
	e := fakeChild(t, 0, "echo 'fatal runtime error'; exit 134")
	result := e.execute(context.Background(), unitTest("TestAborts", func() {}))

	require.Equal(t, types.TestStatusFail, result.Status)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "exit status 134")
	assert.Contains(t, result.Error.Error(), "fatal runtime error")
}

func TestSubprocessExpectedPanicConvention(t *testing.T) {
	e := fakeChild(t, 0, "exit 101")

	result := e.execute(context.Background(), types.Test{
		Desc: types.TestDescriptor{
			Name:        "TestPanicsAsExpected",
			Kind:        types.KindUnitTest,
			ShouldPanic: types.ShouldPanicWithMessage("boom"),
		},
		Fn: types.StaticFn(func() { panic("boom") }),
	})
	assert.Equal(t, types.TestStatusPass, result.Status)

	// The distinguished exit code without an expectation is still a failure.
	result = e.execute(context.Background(), unitTest("TestUnexpectedCode", func() {}))
	assert.Equal(t, types.TestStatusFail, result.Status)
}

func TestSubprocessTimeout(t *testing.T) {
	e := fakeChild(t, 50*time.Millisecond, "exec sleep 30")

	start := time.Now()
	result := e.execute(context.Background(), unitTest("TestHangs", func() {}))
	elapsed := time.Since(start)

	require.Equal(t, types.TestStatusTimeout, result.Status)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "timed out")
	// execute returns only after the child has been reaped, so a prompt
	// return means the kill took effect.
	assert.Less(t, elapsed, 10*time.Second)
}

func TestSubprocessCapturesChildOutput(t *testing.T) {
	e := fakeChild(t, 0, "echo 'child stdout'; echo 'child stderr' >&2; exit 0")
	result := e.execute(context.Background(), unitTest("TestOutput", func() {}))

	assert.Equal(t, types.TestStatusPass, result.Status)
	assert.Contains(t, result.Output, "child stdout")
	assert.Contains(t, result.Output, "child stderr")
}

func TestRunIsolatedExitCodes(t *testing.T) {
	tests := []struct {
		name string
		test types.Test
		want int
	}{
		{
			name: "normal return",
			test: unitTest("TestOk", func() {}),
			want: 0,
		},
		{
			name: "failing test",
			test: unitTest("TestFails", func() { panic("nope") }),
			want: 1,
		},
		{
			name: "expected panic",
			test: types.Test{
				Desc: types.TestDescriptor{
					Name:        "TestPanics",
					Kind:        types.KindUnitTest,
					ShouldPanic: types.ShouldPanicWithMessage("boom"),
				},
				Fn: types.StaticFn(func() { panic("boom") }),
			},
			want: 101,
		},
		{
			name: "panic with wrong message",
			test: types.Test{
				Desc: types.TestDescriptor{
					Name:        "TestWrongPanic",
					Kind:        types.KindUnitTest,
					ShouldPanic: types.ShouldPanicWithMessage("boom"),
				},
				Fn: types.StaticFn(func() { panic("other") }),
			},
			want: 1,
		},
		{
			name: "expected panic with recorded async failure",
			test: types.Test{
				Desc: types.TestDescriptor{
					Name:        "TestPanicsButAsyncFails",
					Kind:        types.KindUnitTest,
					ShouldPanic: types.ShouldPanicWithMessage("boom"),
				},
				Fn: types.StaticFn(func() {
					ReportFailure("TestPanicsButAsyncFails", errors.New("background check failed"))
					panic("boom")
				}),
			},
			want: 1,
		},
		{
			name: "normal return with panic expected exits clean for parent reconciliation",
			test: types.Test{
				Desc: types.TestDescriptor{
					Name:        "TestNoPanic",
					Kind:        types.KindUnitTest,
					ShouldPanic: types.ShouldPanic(),
				},
				Fn: types.StaticFn(func() {}),
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RunIsolated(tt.test))
		})
	}
}
