package engine

// SyncRequest describes the desired submodule state of a repository.
type SyncRequest struct {
	// Modules is the desired set of root submodule paths
	Modules []string

	// Nested maps a root submodule path to the desired paths inside it.
	// An entry is only considered when its parent is in Modules.
	Nested map[string][]string
}
