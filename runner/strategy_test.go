package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikdesjardins/testharness/types"
)

func fullCaps() platformCaps {
	return platformCaps{
		supportsConcurrentExecution: true,
		supportsSubprocess:          true,
	}
}

func TestSelectPath(t *testing.T) {
	tests := []struct {
		name        string
		strategy    types.RunStrategy
		concurrency types.Concurrency
		desc        types.TestDescriptor
		caps        platformCaps
		want        executionPath
		wantErr     bool
	}{
		{
			name:        "unit test follows requested strategy and concurrency",
			strategy:    types.StrategySubprocess,
			concurrency: types.ConcurrencyYes,
			desc:        types.TestDescriptor{Name: "t", Kind: types.KindUnitTest},
			caps:        fullCaps(),
			want:        executionPath{strategy: types.StrategySubprocess, concurrent: true},
		},
		{
			name:        "unit test synchronous when concurrency default is no",
			strategy:    types.StrategyInProcess,
			concurrency: types.ConcurrencyNo,
			desc:        types.TestDescriptor{Name: "t", Kind: types.KindUnitTest},
			caps:        fullCaps(),
			want:        executionPath{strategy: types.StrategyInProcess},
		},
		{
			name:        "benchmark always synchronous in-process",
			strategy:    types.StrategySubprocess,
			concurrency: types.ConcurrencyYes,
			desc:        types.TestDescriptor{Name: "b", Kind: types.KindBenchmark},
			caps:        fullCaps(),
			want:        executionPath{strategy: types.StrategyInProcess},
		},
		{
			name:        "dynamic test allowed in-process",
			strategy:    types.StrategyInProcess,
			concurrency: types.ConcurrencyYes,
			desc:        types.TestDescriptor{Name: "d", Kind: types.KindDynamicTest},
			caps:        fullCaps(),
			want:        executionPath{strategy: types.StrategyInProcess, concurrent: true},
		},
		{
			name:        "dynamic test under subprocess is a configuration error",
			strategy:    types.StrategySubprocess,
			concurrency: types.ConcurrencyYes,
			desc:        types.TestDescriptor{Name: "d", Kind: types.KindDynamicTest},
			caps:        fullCaps(),
			wantErr:     true,
		},
		{
			name:        "descriptor override beats the run default",
			strategy:    types.StrategyInProcess,
			concurrency: types.ConcurrencyYes,
			desc:        types.TestDescriptor{Name: "t", Kind: types.KindUnitTest, Concurrency: types.ConcurrencyNo},
			caps:        fullCaps(),
			want:        executionPath{strategy: types.StrategyInProcess},
		},
		{
			name:        "no concurrency support forces synchronous in-process",
			strategy:    types.StrategySubprocess,
			concurrency: types.ConcurrencyYes,
			desc:        types.TestDescriptor{Name: "t", Kind: types.KindUnitTest},
			caps:        platformCaps{},
			want:        executionPath{strategy: types.StrategyInProcess},
		},
		{
			name:        "no subprocess support degrades to in-process",
			strategy:    types.StrategySubprocess,
			concurrency: types.ConcurrencyYes,
			desc:        types.TestDescriptor{Name: "t", Kind: types.KindUnitTest},
			caps:        platformCaps{supportsConcurrentExecution: true},
			want:        executionPath{strategy: types.StrategyInProcess, concurrent: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectPath(tt.strategy, tt.concurrency, tt.desc, tt.caps)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.desc.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectPlatformCaps(t *testing.T) {
	// The test suite itself runs on a platform with threads and processes.
	caps := detectPlatformCaps()
	assert.True(t, caps.supportsConcurrentExecution)
	assert.True(t, caps.supportsSubprocess)
}
