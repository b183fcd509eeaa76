package planner

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/danieljhkim/subsync/internal/gitx"
)

// Changeset is the difference between the desired and the actual submodule
// state of one scope.
type Changeset struct {
	// Desired is the sorted, de-duplicated desired path list
	Desired []string `json:"desired"`

	// Available maps every declared submodule name to its path
	Available gitx.PathIndex `json:"available"`

	// Initialized maps initialized, declared submodule names to their paths
	Initialized gitx.PathIndex `json:"initialized"`

	// ToInit lists the sorted paths that need `git submodule init`
	ToInit []string `json:"to_init"`

	// ToDeinit lists the sorted paths that need `git submodule deinit`
	ToDeinit []string `json:"to_deinit"`
}

// Plan computes the changeset for desired paths against the available and
// initialized indexes:
//
//	ToInit   = desired ∩ paths(available) \ paths(initialized)
//	ToDeinit = paths(initialized) ∩ paths(available) \ desired
func Plan(desired []string, available, initialized gitx.PathIndex) *Changeset {
	want := mapset.NewThreadUnsafeSet(desired...)
	have := mapset.NewThreadUnsafeSet(available.Paths()...)
	active := mapset.NewThreadUnsafeSet(initialized.Paths()...)

	return &Changeset{
		Desired:     mapset.Sorted(want),
		Available:   available,
		Initialized: initialized,
		ToInit:      mapset.Sorted(want.Intersect(have).Difference(active)),
		ToDeinit:    mapset.Sorted(active.Intersect(have).Difference(want)),
	}
}

// InitializedPaths maps initialized submodule names to their declared paths.
// Names missing from available, such as stale config entries, are dropped.
func InitializedPaths(available gitx.PathIndex, names []string) gitx.PathIndex {
	return available.Subset(names)
}

// Converged reports whether nothing needs to be initialized or deinitialized.
func (c *Changeset) Converged() bool {
	return len(c.ToInit) == 0 && len(c.ToDeinit) == 0
}

// InitializedPaths returns the sorted initialized paths.
func (c *Changeset) InitializedPaths() []string {
	return c.Initialized.Paths()
}

// Changes returns the number of init and deinit operations.
func (c *Changeset) Changes() int {
	return len(c.ToInit) + len(c.ToDeinit)
}
