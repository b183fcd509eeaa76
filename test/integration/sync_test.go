//go:build integration
// +build integration

package integration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/danieljhkim/subsync/internal/engine"
	"github.com/danieljhkim/subsync/internal/gitx"
)

func TestSync_RootLifecycle(t *testing.T) {
	setupGitEnv(t)
	base := t.TempDir()

	super := newRepo(t, filepath.Join(base, "super"))
	addSubmodules(t, super, map[string]string{
		"external/fmt":  newRepo(t, filepath.Join(base, "fmt")),
		"external/zlib": newRepo(t, filepath.Join(base, "zlib")),
		"external/huge": newRepo(t, filepath.Join(base, "huge")),
	})
	root := cloneFresh(t, super)
	eng, repo, _ := newEngine(root)
	ctx := context.Background()

	req := &engine.SyncRequest{Modules: []string{"external/fmt", "external/zlib"}}
	result, err := eng.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := result.Root.Plan.ToInit; len(got) != 2 {
		t.Errorf("expected 2 submodules to init, got %v", got)
	}
	for _, p := range []string{"external/fmt/README", "external/zlib/README"} {
		if !exists(filepath.Join(root, p)) {
			t.Errorf("expected %s to be checked out", p)
		}
	}
	if exists(filepath.Join(root, "external/huge/README")) {
		t.Error("external/huge must stay uninitialized")
	}

	// second run is a no-op for init/deinit
	again, err := eng.Run(ctx, req)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if !again.Root.Plan.Converged() {
		t.Errorf("second run not converged: %+v", again.Root.Plan)
	}

	// dropping a path deinitializes it
	result, err = eng.Run(ctx, &engine.SyncRequest{Modules: []string{"external/fmt"}})
	if err != nil {
		t.Fatalf("Run after removal failed: %v", err)
	}
	if got := result.Root.Plan.ToDeinit; len(got) != 1 || got[0] != "external/zlib" {
		t.Errorf("expected external/zlib to deinit, got %v", got)
	}
	if exists(filepath.Join(root, "external/zlib/README")) {
		t.Error("external/zlib should be emptied by deinit")
	}

	names, err := repo.InitializedNames(ctx, gitx.RootScope)
	if err != nil {
		t.Fatalf("InitializedNames failed: %v", err)
	}
	if len(names) != 1 || names[0] != "external/fmt" {
		t.Errorf("initialized names = %v, want [external/fmt]", names)
	}
}

func TestSync_NestedScope(t *testing.T) {
	setupGitEnv(t)
	base := t.TempDir()

	boost := newRepo(t, filepath.Join(base, "boost"))
	addSubmodules(t, boost, map[string]string{
		"libs/core": newRepo(t, filepath.Join(base, "core")),
		"libs/any":  newRepo(t, filepath.Join(base, "any")),
	})
	super := newRepo(t, filepath.Join(base, "super"))
	addSubmodules(t, super, map[string]string{"external/boost": boost})
	root := cloneFresh(t, super)
	eng, _, _ := newEngine(root)

	result, err := eng.Run(context.Background(), &engine.SyncRequest{
		Modules: []string{"external/boost"},
		Nested:  map[string][]string{"external/boost": {"libs/core"}},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Nested) != 1 {
		t.Fatalf("expected one nested scope, got %d", len(result.Nested))
	}
	if !exists(filepath.Join(root, "external/boost/libs/core/README")) {
		t.Error("expected nested libs/core to be checked out")
	}
	if exists(filepath.Join(root, "external/boost/libs/any/README")) {
		t.Error("libs/any must stay uninitialized")
	}
}

func TestStatusAndPreview(t *testing.T) {
	setupGitEnv(t)
	base := t.TempDir()

	super := newRepo(t, filepath.Join(base, "super"))
	addSubmodules(t, super, map[string]string{
		"external/fmt": newRepo(t, filepath.Join(base, "fmt")),
	})
	root := cloneFresh(t, super)
	eng, _, _ := newEngine(root)
	ctx := context.Background()

	preview, err := eng.Preview(ctx, &engine.SyncRequest{Modules: []string{"external/fmt"}})
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if got := preview.Scopes[0].Changeset.ToInit; len(got) != 1 || got[0] != "external/fmt" {
		t.Errorf("unexpected preview: %v", got)
	}

	records, err := eng.Status(ctx, gitx.RootScope)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(records) != 1 || records[0].Initialized {
		t.Fatalf("expected one uninitialized record, got %+v", records)
	}

	if _, err := eng.Run(ctx, &engine.SyncRequest{Modules: []string{"external/fmt"}}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	records, err = eng.Status(ctx, gitx.RootScope)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(records) != 1 || !records[0].Initialized || records[0].Name != "external/fmt" {
		t.Errorf("expected external/fmt checked out, got %+v", records)
	}
}

func TestDiscover_FromSubdirectory(t *testing.T) {
	setupGitEnv(t)
	root := newRepo(t, filepath.Join(t.TempDir(), "repo"))

	got, err := gitx.Discover(filepath.Join(root, "."))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if got != root {
		t.Errorf("Discover = %s, want %s", got, root)
	}
}
