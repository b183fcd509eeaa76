package config

import (
	"fmt"
	"time"

	"github.com/danieljhkim/subsync/internal/retry"
)

// Manifest is the desired submodule state of a repository plus the knobs
// that control how it is reached.
type Manifest struct {
	// Modules is the desired set of root submodule paths
	Modules []string `koanf:"modules" json:"modules"`

	// Optional paths join Modules only when requested
	Optional []string `koanf:"optional" json:"optional"`

	// Nested maps a root submodule path to the desired paths inside it
	Nested map[string][]string `koanf:"nested" json:"nested"`

	// Retry configures transient failure handling
	Retry RetryConfig `koanf:"retry" json:"retry"`

	// Concurrency bounds the number of concurrent git processes
	Concurrency int `koanf:"concurrency" json:"concurrency"`

	// Git is the git executable
	Git string `koanf:"git" json:"git"`
}

// RetryConfig is the serialized form of a retry.Policy.
type RetryConfig struct {
	Patterns   []string      `koanf:"patterns" json:"patterns"`
	MaxRetries int           `koanf:"max_retries" json:"max_retries"`
	Delay      time.Duration `koanf:"delay" json:"delay"`
}

// Desired returns Modules, followed by Optional when withOptional is set,
// without duplicates.
func (m *Manifest) Desired(withOptional bool) []string {
	paths := m.Modules
	if withOptional {
		paths = append(append([]string{}, m.Modules...), m.Optional...)
	}

	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// RetryPolicy compiles the retry section.
func (m *Manifest) RetryPolicy() (retry.Policy, error) {
	return retry.NewPolicy(m.Retry.Patterns, m.Retry.MaxRetries, m.Retry.Delay)
}

// Validate checks the manifest for values the engine cannot work with.
func (m *Manifest) Validate() error {
	if m.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidManifest, m.Concurrency)
	}
	if m.Git == "" {
		return fmt.Errorf("%w: git executable must not be empty", ErrInvalidManifest)
	}
	if _, err := m.RetryPolicy(); err != nil {
		return fmt.Errorf("%w: retry: %v", ErrInvalidManifest, err)
	}

	for _, p := range append(append([]string{}, m.Modules...), m.Optional...) {
		if p == "" {
			return fmt.Errorf("%w: empty module path", ErrInvalidManifest)
		}
	}
	for parent, paths := range m.Nested {
		if parent == "" || parent == "." {
			return fmt.Errorf("%w: nested parent must be a submodule path, got %q", ErrInvalidManifest, parent)
		}
		for _, p := range paths {
			if p == "" {
				return fmt.Errorf("%w: empty nested path under %s", ErrInvalidManifest, parent)
			}
		}
	}
	return nil
}
