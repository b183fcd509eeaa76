// Package planner computes submodule changesets.
//
// A changeset compares the desired submodule paths of a scope with what its
// .gitmodules declares and what its local git config has initialized. The
// planner is pure: it never touches git and produces the same sorted output
// for the same input.
//
// Key rules:
//   - Only declared submodules are ever initialized or deinitialized
//   - Desired paths unknown to .gitmodules are ignored
//   - Initialized names unknown to .gitmodules are dropped
package planner
