// Package config loads the subsync manifest.
//
// The manifest names the desired submodule paths of a repository. It is
// assembled from layers, each overriding the previous one: the embedded
// defaults, a repository manifest (.subsync.toml or .subsync.yaml at the
// repository root), an explicit --config file, and SUBSYNC_* environment
// variables.
//
// Lists replace and tables merge. A manifest file that declares its own
// modules also drops the embedded optional and nested sets; one that does
// not inherits all three.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manifest file names looked up at the repository root, in order.
const (
	ManifestTOML = ".subsync.toml"
	ManifestYAML = ".subsync.yaml"
)

// Paths contains the filesystem paths subsync reads configuration from.
type Paths struct {
	// Root is the repository root
	Root string

	// TOML is the path of the TOML repository manifest
	TOML string

	// YAML is the path of the YAML repository manifest
	YAML string
}

// RepoPaths returns the manifest paths for the repository at root.
func RepoPaths(root string) *Paths {
	return &Paths{
		Root: root,
		TOML: filepath.Join(root, ManifestTOML),
		YAML: filepath.Join(root, ManifestYAML),
	}
}

// Manifest returns the first repository manifest that exists, or "" when
// there is none.
func (p *Paths) Manifest() (string, error) {
	for _, path := range []string{p.TOML, p.YAML} {
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return "", fmt.Errorf("manifest %s is a directory", path)
			}
			return path, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat manifest %s: %w", path, err)
		}
	}
	return "", nil
}
