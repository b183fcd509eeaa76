package gitx

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Fake operation names used by FakeRepo.FailOn, NoopOn and Calls.
const (
	OpInit   = "init"
	OpDeinit = "deinit"
	OpUpdate = "update"
)

// FakeCall records one state-changing call made against a FakeRepo.
type FakeCall struct {
	Op    string
	Scope Scope
	Path  string
}

type fakeScope struct {
	available   PathIndex
	initialized map[string]bool
	updated     map[string]int
}

type fakeKey struct {
	op    string
	scope Scope
	path  string
}

// FakeRepo implements SubmoduleRepo over in-memory state for testing.
// Init and Deinit flip the initialized flag of the submodule owning the
// path, the way git updates the local config. Safe for concurrent use.
type FakeRepo struct {
	mu        sync.Mutex
	scopes    map[Scope]*fakeScope
	failures  map[fakeKey]error
	noops     map[fakeKey]bool
	queryErrs map[Scope]error
	calls     []FakeCall
}

// NewFakeRepo creates an empty FakeRepo.
func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		scopes:    make(map[Scope]*fakeScope),
		failures:  make(map[fakeKey]error),
		noops:     make(map[fakeKey]bool),
		queryErrs: make(map[Scope]error),
	}
}

func (f *FakeRepo) scope(s Scope) *fakeScope {
	if s.IsRoot() {
		s = RootScope
	}
	sc, ok := f.scopes[s]
	if !ok {
		sc = &fakeScope{
			available:   PathIndex{},
			initialized: make(map[string]bool),
			updated:     make(map[string]int),
		}
		f.scopes[s] = sc
	}
	return sc
}

// AddSubmodule declares a submodule in scope.
func (f *FakeRepo) AddSubmodule(scope Scope, name, path string, initialized bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc := f.scope(scope)
	sc.available[name] = path
	if initialized {
		sc.initialized[name] = true
	}
}

// MarkInitialized records name as initialized without declaring it, like a
// stale local config entry for a submodule removed from .gitmodules.
func (f *FakeRepo) MarkInitialized(scope Scope, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scope(scope).initialized[name] = true
}

// FailOn makes op on path in scope return err.
func (f *FakeRepo) FailOn(op string, scope Scope, path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[fakeKey{op, normalize(scope), path}] = err
}

// NoopOn makes op on path in scope succeed without changing state.
func (f *FakeRepo) NoopOn(op string, scope Scope, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noops[fakeKey{op, normalize(scope), path}] = true
}

// FailQueries makes every state query against scope return err.
func (f *FakeRepo) FailQueries(scope Scope, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErrs[normalize(scope)] = err
}

func normalize(s Scope) Scope {
	if s.IsRoot() {
		return RootScope
	}
	return s
}

// Calls returns the recorded calls for op, or all calls when op is empty.
func (f *FakeRepo) Calls(op string) []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeCall
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Initialized returns the sorted initialized paths of scope.
func (f *FakeRepo) Initialized(scope Scope) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc := f.scope(scope)
	var out []string
	for name := range sc.initialized {
		if p, ok := sc.available[name]; ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// UpdateCount returns how many times path in scope was updated successfully.
func (f *FakeRepo) UpdateCount(scope Scope, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scope(scope).updated[path]
}

// AvailablePaths returns a copy of the declared submodules.
func (f *FakeRepo) AvailablePaths(ctx context.Context, scope Scope) (PathIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.queryErrs[normalize(scope)]; err != nil {
		return nil, err
	}
	out := make(PathIndex)
	for name, p := range f.scope(scope).available {
		out[name] = p
	}
	return out, nil
}

// InitializedNames returns the sorted initialized names.
func (f *FakeRepo) InitializedNames(ctx context.Context, scope Scope) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.queryErrs[normalize(scope)]; err != nil {
		return nil, err
	}
	var out []string
	for name := range f.scope(scope).initialized {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// StatusLines renders records for every declared submodule.
func (f *FakeRepo) StatusLines(ctx context.Context, scope Scope) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.queryErrs[normalize(scope)]; err != nil {
		return nil, err
	}
	sc := f.scope(scope)
	var out []Record
	for _, name := range sc.available.Names() {
		p := sc.available[name]
		if sc.initialized[name] && sc.updated[p] > 0 {
			out = append(out, Record{Name: p, Initialized: true, Hash: "0000000", Description: "heads/main"})
		} else {
			out = append(out, Record{Name: p, Hash: "-0000000"})
		}
	}
	return out, nil
}

// Init marks the submodule at path initialized.
func (f *FakeRepo) Init(ctx context.Context, scope Scope, path string) error {
	return f.mutate(OpInit, scope, path, func(sc *fakeScope, name string) {
		sc.initialized[name] = true
	})
}

// Deinit clears the initialized flag of the submodule at path.
func (f *FakeRepo) Deinit(ctx context.Context, scope Scope, path string) error {
	return f.mutate(OpDeinit, scope, path, func(sc *fakeScope, name string) {
		delete(sc.initialized, name)
		delete(sc.updated, path)
	})
}

// Update counts an update of an initialized submodule.
func (f *FakeRepo) Update(ctx context.Context, scope Scope, path string) error {
	return f.mutate(OpUpdate, scope, path, func(sc *fakeScope, name string) {
		sc.updated[path]++
	})
}

func (f *FakeRepo) mutate(op string, scope Scope, path string, apply func(*fakeScope, string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fakeKey{op, normalize(scope), path}
	f.calls = append(f.calls, FakeCall{Op: op, Scope: key.scope, Path: path})

	if err := f.failures[key]; err != nil {
		return err
	}
	if f.noops[key] {
		return nil
	}

	sc := f.scope(scope)
	for name, p := range sc.available {
		if p != path {
			continue
		}
		if op == OpUpdate && !sc.initialized[name] {
			return fmt.Errorf("submodule %s is not initialized", path)
		}
		apply(sc, name)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownSubmodule, path)
}
