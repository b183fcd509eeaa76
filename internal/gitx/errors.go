package gitx

import "errors"

var (
	// ErrNotInRepo indicates no enclosing git repository was found.
	ErrNotInRepo = errors.New("not in a git repository")

	// ErrUnknownSubmodule indicates a path that the scope does not declare.
	ErrUnknownSubmodule = errors.New("unknown submodule")
)
