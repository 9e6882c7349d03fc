// Package registry applies manifest-driven overrides to an enumerated list
// of test descriptors. Collection itself happens elsewhere; the registry
// only adjusts metadata (ignore, allow-fail, panic expectations) before a
// run starts.
package registry

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/erikdesjardins/testharness/types"
)

// Registry manages descriptor overrides loaded from a manifest file
type Registry struct {
	config    Config
	overrides map[string]TestOverride
	mu        sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log          log.Logger
	ManifestFile string
}

// Manifest is the on-disk override format.
type Manifest struct {
	Tests []TestOverride `yaml:"tests"`
}

// TestOverride adjusts one descriptor's metadata. Pointer fields distinguish
// "not set" from an explicit false.
type TestOverride struct {
	Name         string `yaml:"name"`
	Ignore       *bool  `yaml:"ignore,omitempty"`
	AllowFail    *bool  `yaml:"allow_fail,omitempty"`
	ShouldPanic  *bool  `yaml:"should_panic,omitempty"`
	PanicMessage string `yaml:"panic_message,omitempty"`
	Concurrent   *bool  `yaml:"concurrent,omitempty"`
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ManifestFile == "" {
		return nil, fmt.Errorf("manifest file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config: cfg,
	}
	if err := r.loadManifest(cfg.ManifestFile); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(overrides)", len(r.overrides))
	return r, nil
}

func (r *Registry) loadManifest(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest file %q: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse manifest file %q: %w", path, err)
	}

	overrides := make(map[string]TestOverride, len(manifest.Tests))
	for _, override := range manifest.Tests {
		if override.Name == "" {
			return fmt.Errorf("manifest entry with empty test name")
		}
		if _, dup := overrides[override.Name]; dup {
			return fmt.Errorf("manifest has duplicate entry for test %q", override.Name)
		}
		overrides[override.Name] = override
	}
	r.overrides = overrides
	return nil
}

// Apply returns a copy of tests with manifest overrides folded into the
// descriptors. Descriptors are immutable once a run starts, so overrides are
// applied up-front and the input slice is never mutated. Manifest entries
// naming unknown tests are reported, not silently dropped.
func (r *Registry) Apply(tests []types.Test) ([]types.Test, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	known := make(map[string]struct{}, len(tests))
	out := make([]types.Test, len(tests))
	for i, test := range tests {
		known[test.Desc.Name] = struct{}{}
		override, ok := r.overrides[test.Desc.Name]
		if !ok {
			out[i] = test
			continue
		}

		desc := test.Desc
		if override.Ignore != nil {
			desc.Ignore = *override.Ignore
		}
		if override.AllowFail != nil {
			desc.AllowFail = *override.AllowFail
		}
		if override.ShouldPanic != nil {
			desc.ShouldPanic = types.PanicExpectation{
				Expected: *override.ShouldPanic,
				Message:  override.PanicMessage,
			}
		}
		if override.Concurrent != nil {
			if *override.Concurrent {
				desc.Concurrency = types.ConcurrencyYes
			} else {
				desc.Concurrency = types.ConcurrencyNo
			}
		}
		r.config.Log.Debug("Applied manifest override", "test", desc.Name,
			"ignore", desc.Ignore, "allow_fail", desc.AllowFail, "should_panic", desc.ShouldPanic.Expected)
		out[i] = types.Test{Desc: desc, Fn: test.Fn}
	}

	for name := range r.overrides {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("manifest references unknown test %q", name)
		}
	}
	return out, nil
}

// Overrides returns the number of loaded manifest entries.
func (r *Registry) Overrides() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.overrides)
}
