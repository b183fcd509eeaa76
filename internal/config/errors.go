package config

import "errors"

// ErrInvalidManifest indicates a manifest that failed validation.
var ErrInvalidManifest = errors.New("invalid manifest")
