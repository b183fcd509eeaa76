package config

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SUBSYNC_"

//go:embed defaults.toml
var defaultManifest []byte

// envKeys maps environment variables (without prefix) to manifest keys.
var envKeys = map[string]string{
	"MODULES":           "modules",
	"OPTIONAL":          "optional",
	"CONCURRENCY":       "concurrency",
	"GIT":               "git",
	"RETRY_MAX_RETRIES": "retry.max_retries",
	"RETRY_DELAY":       "retry.delay",
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// LoadOptions selects the optional manifest layers.
type LoadOptions struct {
	// Root is the repository root searched for .subsync.toml / .subsync.yaml
	Root string

	// File is an explicit manifest loaded after the repository manifest
	File string
}

// Load assembles and validates the manifest.
//
// Layers, lowest precedence first:
// 1. Embedded defaults
// 2. Repository manifest, if present
// 3. Explicit file, if given
// 4. SUBSYNC_* environment variables
//
// Maps merge key by key while lists replace wholesale. When a manifest file
// sets modules, the embedded optional and nested sets are discarded before
// merging, so a repository never inherits nested submodules it did not ask for.
func Load(opts LoadOptions) (*Manifest, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultManifest}, toml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	files := koanf.New(".")
	if opts.Root != "" {
		path, err := RepoPaths(opts.Root).Manifest()
		if err != nil {
			return nil, err
		}
		if path != "" {
			if err := loadFile(files, path); err != nil {
				return nil, fmt.Errorf("failed to load repository manifest from %s: %w", path, err)
			}
		}
	}

	if opts.File != "" {
		if err := loadFile(files, opts.File); err != nil {
			return nil, fmt.Errorf("failed to load manifest from %s: %w", opts.File, err)
		}
	}

	// the embedded optional and nested sets belong to the embedded module list
	if files.Exists("modules") {
		k.Delete("optional")
		k.Delete("nested")
	}
	if err := k.Merge(files); err != nil {
		return nil, fmt.Errorf("failed to merge manifests: %w", err)
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, EnvPrefix)]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var m Manifest
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &m,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &m, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// loadFile merges a TOML or YAML file, chosen by extension, into k.
func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser = toml.Parser()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	}
	return k.Load(file.Provider(path), parser)
}
