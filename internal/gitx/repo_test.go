package gitx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danieljhkim/subsync/internal/clock"
	"github.com/danieljhkim/subsync/internal/execx"
	"github.com/danieljhkim/subsync/internal/retry"
)

func newTestSubmodules(t *testing.T) (*GitSubmodules, *execx.FakeRunner) {
	t.Helper()
	runner := execx.NewFakeRunner()
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	caller := retry.NewCaller(runner, clk, nil)
	return NewGitSubmodules(caller, retry.DefaultPolicy(), "", "/repo"), runner
}

func TestGitSubmodules_AvailablePaths(t *testing.T) {
	g, runner := newTestSubmodules(t)
	runner.On("git config -f .gitmodules --get-regexp path", execx.Result{
		Stdout: "submodule.external/fmt.path external/fmt\nsubmodule.external/boost.path external/boost\n",
	})
	runner.On("git config -f external/boost/.gitmodules --get-regexp path", execx.Result{
		Stdout: "submodule.libs/core.path libs/core\n",
	})

	root, err := g.AvailablePaths(context.Background(), RootScope)
	if err != nil {
		t.Fatalf("AvailablePaths(root) error = %v", err)
	}
	if diff := cmp.Diff(PathIndex{"external/fmt": "external/fmt", "external/boost": "external/boost"}, root); diff != "" {
		t.Errorf("root mismatch (-want +got):\n%s", diff)
	}

	nested, err := g.AvailablePaths(context.Background(), Scope("external/boost"))
	if err != nil {
		t.Fatalf("AvailablePaths(nested) error = %v", err)
	}
	if diff := cmp.Diff(PathIndex{"libs/core": "libs/core"}, nested); diff != "" {
		t.Errorf("nested mismatch (-want +got):\n%s", diff)
	}

	for _, c := range runner.Calls() {
		if c.Dir != "/repo" {
			t.Errorf("command %q ran in %q, want /repo", c.String(), c.Dir)
		}
		if !c.Quiet {
			t.Errorf("config query %q should be quiet", c.String())
		}
	}
}

func TestGitSubmodules_NoMatchesIsEmpty(t *testing.T) {
	g, runner := newTestSubmodules(t)
	runner.On("git config -f .gitmodules --get-regexp path", execx.Result{Status: 1})
	runner.On("git config --local --get-regexp (active|url)", execx.Result{Status: 1})

	idx, err := g.AvailablePaths(context.Background(), RootScope)
	if err != nil {
		t.Fatalf("AvailablePaths() error = %v", err)
	}
	if len(idx) != 0 {
		t.Errorf("expected empty index, got %v", idx)
	}

	names, err := g.InitializedNames(context.Background(), RootScope)
	if err != nil {
		t.Fatalf("InitializedNames() error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no initialized names, got %v", names)
	}
}

func TestGitSubmodules_QueryFailure(t *testing.T) {
	g, runner := newTestSubmodules(t)
	runner.On("git config -f .gitmodules --get-regexp path", execx.Result{Status: 3, Stderr: "fatal: bad config line 1"})

	_, err := g.AvailablePaths(context.Background(), RootScope)
	if !errors.Is(err, execx.ErrCommandFailed) {
		t.Fatalf("expected command failure, got %v", err)
	}
}

func TestGitSubmodules_InitializedNames(t *testing.T) {
	g, runner := newTestSubmodules(t)
	runner.On("git -C external/boost config --local --get-regexp (active|url)", execx.Result{Stdout: `remote.origin.url https://github.com/boostorg/boost.git
submodule.libs/core.active true
submodule.libs/core.url https://github.com/boostorg/core.git
submodule.libs/any.active false
submodule.libs/any.url https://github.com/boostorg/any.git
submodule.libs/mp11.url https://github.com/boostorg/mp11.git
`})

	names, err := g.InitializedNames(context.Background(), Scope("external/boost"))
	if err != nil {
		t.Fatalf("InitializedNames() error = %v", err)
	}
	if diff := cmp.Diff([]string{"libs/core", "libs/mp11"}, names); diff != "" {
		t.Errorf("InitializedNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestGitSubmodules_StatusLines(t *testing.T) {
	g, runner := newTestSubmodules(t)
	runner.On("git submodule", execx.Result{Stdout: "+abc123 foo (v1.2)\n-abc123 bar\n"})

	recs, err := g.StatusLines(context.Background(), RootScope)
	if err != nil {
		t.Fatalf("StatusLines() error = %v", err)
	}
	if len(recs) != 2 || recs[0].Name != "foo" || !recs[0].Initialized || recs[1].Name != "bar" || recs[1].Initialized {
		t.Errorf("unexpected records: %+v", recs)
	}
}

func TestGitSubmodules_Mutations(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		scope   Scope
		path    string
		cmdline string
	}{
		{
			name:    "init root",
			op:      OpInit,
			scope:   RootScope,
			path:    "external/fmt",
			cmdline: "git submodule init -- external/fmt",
		},
		{
			name:    "deinit root is forced",
			op:      OpDeinit,
			scope:   RootScope,
			path:    "external/fmt",
			cmdline: "git submodule deinit -f -- external/fmt",
		},
		{
			name:    "update is shallow",
			op:      OpUpdate,
			scope:   RootScope,
			path:    "external/fmt",
			cmdline: "git submodule update --depth 1 -- external/fmt",
		},
		{
			name:    "nested init uses -C",
			op:      OpInit,
			scope:   Scope("external/boost"),
			path:    "libs/core",
			cmdline: "git -C external/boost submodule init -- libs/core",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, runner := newTestSubmodules(t)
			ctx := context.Background()

			var err error
			switch tt.op {
			case OpInit:
				err = g.Init(ctx, tt.scope, tt.path)
			case OpDeinit:
				err = g.Deinit(ctx, tt.scope, tt.path)
			case OpUpdate:
				err = g.Update(ctx, tt.scope, tt.path)
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n := runner.CallCount(tt.cmdline); n != 1 {
				t.Errorf("expected %q once, ran %d times (calls: %v)", tt.cmdline, n, runner.Calls())
			}
		})
	}
}

func TestGitSubmodules_MutationRetriesLockRace(t *testing.T) {
	g, runner := newTestSubmodules(t)
	cmdline := "git submodule init -- external/fmt"
	runner.On(cmdline,
		execx.Result{Status: 255, Stderr: "error: could not lock config file .git/config: File exists"},
		execx.Result{},
	)

	if err := g.Init(context.Background(), RootScope, "external/fmt"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if n := runner.CallCount(cmdline); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestGitSubmodules_CustomBinary(t *testing.T) {
	runner := execx.NewFakeRunner()
	caller := retry.NewCaller(runner, clock.NewFakeClock(time.Now()), nil)
	g := NewGitSubmodules(caller, retry.DefaultPolicy(), "/opt/git/bin/git", "/repo")

	_ = g.Update(context.Background(), RootScope, "x")
	calls := runner.Calls()
	if len(calls) != 1 || calls[0].Name != "/opt/git/bin/git" {
		t.Errorf("expected custom git binary, got %+v", calls)
	}
}

func TestDiscover(t *testing.T) {
	t.Run("finds repo from root", func(t *testing.T) {
		root := t.TempDir()
		if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
			t.Fatal(err)
		}

		got, err := Discover(root)
		if err != nil {
			t.Fatalf("Discover failed: %v", err)
		}
		if got != root {
			t.Errorf("Discover returned wrong root: got %s, want %s", got, root)
		}
	})

	t.Run("finds repo from subdirectory", func(t *testing.T) {
		root := t.TempDir()
		if err := os.Mkdir(filepath.Join(root, ".git"), 0755); err != nil {
			t.Fatal(err)
		}
		sub := filepath.Join(root, "external", "boost")
		if err := os.MkdirAll(sub, 0755); err != nil {
			t.Fatal(err)
		}

		got, err := Discover(sub)
		if err != nil {
			t.Fatalf("Discover failed: %v", err)
		}
		if got != root {
			t.Errorf("Discover returned wrong root: got %s, want %s", got, root)
		}
	})

	t.Run("accepts .git file of a checked out submodule", func(t *testing.T) {
		root := t.TempDir()
		if err := os.WriteFile(filepath.Join(root, ".git"), []byte("gitdir: ../.git/modules/x\n"), 0644); err != nil {
			t.Fatal(err)
		}

		got, err := Discover(root)
		if err != nil {
			t.Fatalf("Discover failed: %v", err)
		}
		if got != root {
			t.Errorf("Discover returned wrong root: got %s, want %s", got, root)
		}
	})
}
