//go:build integration
// +build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danieljhkim/subsync/internal/clock"
	"github.com/danieljhkim/subsync/internal/engine"
	"github.com/danieljhkim/subsync/internal/execx"
	"github.com/danieljhkim/subsync/internal/gitx"
	"github.com/danieljhkim/subsync/internal/metrics"
	"github.com/danieljhkim/subsync/internal/retry"
)

// setupGitEnv isolates git from the user's configuration and allows local
// file:// submodule URLs. The environment is inherited by every git process
// subsync spawns.
func setupGitEnv(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, ".state"))
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_COUNT", "1")
	t.Setenv("GIT_CONFIG_KEY_0", "protocol.file.allow")
	t.Setenv("GIT_CONFIG_VALUE_0", "always")
	t.Setenv("GIT_AUTHOR_NAME", "subsync")
	t.Setenv("GIT_AUTHOR_EMAIL", "subsync@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "subsync")
	t.Setenv("GIT_COMMITTER_EMAIL", "subsync@example.com")
}

// git runs git in dir and fails the test on error.
func git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

// newRepo creates a repository at dir with one committed README.
func newRepo(t *testing.T, dir string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	git(t, dir, "init", "-q", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte(filepath.Base(dir)+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	git(t, dir, "add", "README")
	git(t, dir, "commit", "-q", "-m", "initial")
	return dir
}

// addSubmodules registers each source repository in super under its path
// and commits the result.
func addSubmodules(t *testing.T, super string, sources map[string]string) {
	t.Helper()

	for path, src := range sources {
		git(t, super, "submodule", "add", "-q", "file://"+src, path)
	}
	git(t, super, "commit", "-q", "-m", "add submodules")
}

// cloneFresh clones super without checking out submodules, so every
// submodule is declared but uninitialized.
func cloneFresh(t *testing.T, super string) string {
	t.Helper()

	dst := filepath.Join(t.TempDir(), "checkout")
	git(t, filepath.Dir(dst), "clone", "-q", "file://"+super, dst)
	return dst
}

// newEngine wires the real git stack for the repository at root.
func newEngine(root string) (*engine.Engine, *gitx.GitSubmodules, *metrics.Recorder) {
	rec := metrics.New()
	runner := execx.NewRunner(execx.DefaultConcurrency, rec)
	caller := retry.NewCaller(runner, &clock.RealClock{}, rec)
	repo := gitx.NewGitSubmodules(caller, retry.DefaultPolicy(), gitx.DefaultGit, root)
	return engine.New(repo, rec), repo, rec
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
