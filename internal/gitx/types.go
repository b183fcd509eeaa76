package gitx

import (
	"path"
	"sort"
)

// Scope selects the repository a submodule query or command applies to:
// the root repository, or a submodule checked out at a path relative to the
// root that has submodules of its own.
type Scope string

// RootScope is the top-level repository.
const RootScope Scope = ""

// IsRoot reports whether s is the top-level repository.
func (s Scope) IsRoot() bool {
	return s == RootScope || s == "."
}

func (s Scope) String() string {
	if s.IsRoot() {
		return "."
	}
	return string(s)
}

// MarshalText renders the root scope as ".".
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// args prefixes git arguments with -C <scope> for non-root scopes.
func (s Scope) args(args ...string) []string {
	if s.IsRoot() {
		return args
	}
	return append([]string{"-C", string(s)}, args...)
}

// gitmodules is the path of the scope's .gitmodules relative to the root.
func (s Scope) gitmodules() string {
	if s.IsRoot() {
		return ".gitmodules"
	}
	return path.Join(string(s), ".gitmodules")
}

// Record is one line of `git submodule` status output.
type Record struct {
	// Name is the submodule path as printed by git
	Name string `json:"name"`

	// Initialized is true when git printed a describe suffix for the submodule
	Initialized bool `json:"initialized"`

	// Hash is the first token including its state prefix (-, +, U or none)
	Hash string `json:"hash"`

	// Description is the describe suffix without parentheses
	Description string `json:"description,omitempty"`
}

// PathIndex maps submodule names to their paths. It is rebuilt wholesale on
// every query and never mutated in place.
type PathIndex map[string]string

// Names returns the sorted submodule names.
func (idx PathIndex) Names() []string {
	out := make([]string, 0, len(idx))
	for name := range idx {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Paths returns the sorted submodule paths.
func (idx PathIndex) Paths() []string {
	out := make([]string, 0, len(idx))
	for _, p := range idx {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Subset returns the entries whose names are listed. Unknown names are dropped.
func (idx PathIndex) Subset(names []string) PathIndex {
	out := make(PathIndex, len(names))
	for _, name := range names {
		if p, ok := idx[name]; ok {
			out[name] = p
		}
	}
	return out
}
