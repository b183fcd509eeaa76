// Package gitx wraps the git commands subsync needs for submodule
// inspection and mutation.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danieljhkim/subsync/internal/execx"
	"github.com/danieljhkim/subsync/internal/retry"
)

// DefaultGit is the git executable looked up on PATH.
const DefaultGit = "git"

// SubmoduleRepo provides submodule state queries and state-changing
// operations, each bound to an explicit scope.
type SubmoduleRepo interface {
	// AvailablePaths returns every submodule declared in the scope's .gitmodules.
	AvailablePaths(ctx context.Context, scope Scope) (PathIndex, error)

	// InitializedNames returns the sorted names of submodules active in the
	// scope's local git config.
	InitializedNames(ctx context.Context, scope Scope) ([]string, error)

	// StatusLines returns the parsed `git submodule` status of the scope.
	StatusLines(ctx context.Context, scope Scope) ([]Record, error)

	// Init registers the submodule at path in the scope's local config.
	Init(ctx context.Context, scope Scope, path string) error

	// Deinit forcibly unregisters the submodule at path.
	Deinit(ctx context.Context, scope Scope, path string) error

	// Update checks out the recorded commit of the submodule at path with depth 1.
	Update(ctx context.Context, scope Scope, path string) error
}

// GitSubmodules implements SubmoduleRepo by running git from the repository root.
type GitSubmodules struct {
	caller *retry.Caller
	policy retry.Policy
	git    string
	root   string
}

// NewGitSubmodules creates a new GitSubmodules. root is the working
// directory of every git command; an empty git falls back to DefaultGit.
func NewGitSubmodules(caller *retry.Caller, policy retry.Policy, git, root string) *GitSubmodules {
	if git == "" {
		git = DefaultGit
	}
	return &GitSubmodules{
		caller: caller,
		policy: policy,
		git:    git,
		root:   root,
	}
}

func (g *GitSubmodules) command(quiet bool, args ...string) execx.Command {
	return execx.Command{Name: g.git, Args: args, Dir: g.root, Quiet: quiet}
}

// run executes a state-changing command with retries and checked semantics.
func (g *GitSubmodules) run(ctx context.Context, cmd execx.Command) error {
	_, err := g.caller.Call(ctx, cmd, g.policy, true)
	return err
}

// query executes a read-only config query. `git config --get-regexp`
// exits 1 without output when nothing matches, which is an empty result
// rather than a failure.
func (g *GitSubmodules) query(ctx context.Context, cmd execx.Command) (string, error) {
	res, err := g.caller.Call(ctx, cmd, g.policy, true)
	if err != nil {
		var cmdErr *execx.ExternalCommandError
		if errors.As(err, &cmdErr) && cmdErr.Status == 1 && strings.TrimSpace(cmdErr.Stderr) == "" {
			return "", nil
		}
		return "", err
	}
	return res.Stdout, nil
}

// AvailablePaths reads `submodule.<name>.path` entries from .gitmodules.
func (g *GitSubmodules) AvailablePaths(ctx context.Context, scope Scope) (PathIndex, error) {
	out, err := g.query(ctx, g.command(true, "config", "-f", scope.gitmodules(), "--get-regexp", "path"))
	if err != nil {
		return nil, fmt.Errorf("failed to read available submodules of %s: %w", scope, err)
	}
	return PathIndex(ParseConfig(out, "path")), nil
}

// InitializedNames reads active and url entries from the local config.
func (g *GitSubmodules) InitializedNames(ctx context.Context, scope Scope) ([]string, error) {
	out, err := g.query(ctx, g.command(true, scope.args("config", "--local", "--get-regexp", "(active|url)")...))
	if err != nil {
		return nil, fmt.Errorf("failed to read initialized submodules of %s: %w", scope, err)
	}
	return ActiveNames(ParseConfig(out, "active"), ParseConfig(out, "url")), nil
}

// StatusLines runs `git submodule` and parses its output.
func (g *GitSubmodules) StatusLines(ctx context.Context, scope Scope) ([]Record, error) {
	res, err := g.caller.Call(ctx, g.command(false, scope.args("submodule")...), g.policy, true)
	if err != nil {
		return nil, fmt.Errorf("failed to read submodule status of %s: %w", scope, err)
	}
	return ParseStatus(res.Stdout), nil
}

// Init runs `git submodule init`.
func (g *GitSubmodules) Init(ctx context.Context, scope Scope, path string) error {
	return g.run(ctx, g.command(false, scope.args("submodule", "init", "--", path)...))
}

// Deinit runs `git submodule deinit -f`.
func (g *GitSubmodules) Deinit(ctx context.Context, scope Scope, path string) error {
	return g.run(ctx, g.command(false, scope.args("submodule", "deinit", "-f", "--", path)...))
}

// Update runs a shallow `git submodule update`.
func (g *GitSubmodules) Update(ctx context.Context, scope Scope, path string) error {
	return g.run(ctx, g.command(false, scope.args("submodule", "update", "--depth", "1", "--", path)...))
}

// Discover finds the git repository root by walking up from cwd looking for .git.
func Discover(cwd string) (string, error) {
	absPath, err := filepath.Abs(cwd)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	current := absPath
	for {
		gitDir := filepath.Join(current, ".git")
		if info, err := os.Stat(gitDir); err == nil {
			// .git can be a directory or a file (for worktrees/submodules)
			if info.IsDir() || info.Mode().IsRegular() {
				return current, nil
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotInRepo
		}
		current = parent
	}
}
