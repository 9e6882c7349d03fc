// Command example is a small test binary wired to the harness. It doubles as
// a manual target for the subprocess strategy: because it calls
// harness.Main, it supports the hidden isolation re-invocation mode.
package main

import (
	"fmt"
	"os"

	harness "github.com/erikdesjardins/testharness"
	"github.com/erikdesjardins/testharness/types"
)

func main() {
	captured := os.Getenv("EXAMPLE_GREETING")

	tests := []types.Test{
		{
			Desc: types.TestDescriptor{Name: "TestAddition", Kind: types.KindUnitTest},
			Fn: types.StaticFn(func() {
				if 1+1 != 2 {
					panic("arithmetic is broken")
				}
			}),
		},
		{
			Desc: types.TestDescriptor{
				Name:        "TestExpectedPanic",
				Kind:        types.KindUnitTest,
				ShouldPanic: types.ShouldPanicWithMessage("boom"),
			},
			Fn: types.StaticFn(func() {
				panic("boom")
			}),
		},
		{
			Desc: types.TestDescriptor{Name: "TestFlaky", Kind: types.KindUnitTest, AllowFail: true},
			Fn: types.StaticFn(func() {
				panic("known flake")
			}),
		},
		{
			Desc: types.TestDescriptor{Name: "TestSlow", Kind: types.KindUnitTest, Ignore: true},
			Fn: types.StaticFn(func() {
				fmt.Println("this only runs with --include-ignored")
			}),
		},
		{
			Desc: types.TestDescriptor{Name: "TestGreeting", Kind: types.KindDynamicTest},
			Fn: types.DynamicFn(func() {
				fmt.Println("greeting:", captured)
			}),
		},
		{
			Desc: types.TestDescriptor{Name: "BenchConcat", Kind: types.KindBenchmark},
			Fn: types.BenchFn(func(m *types.Measurement) {
				m.ResetTimer()
				for n := 0; n < m.N; n++ {
					s := ""
					for i := 0; i < 1000; i++ {
						s += "x"
					}
					_ = s
				}
			}),
		},
	}

	harness.Main("example", tests)
}
