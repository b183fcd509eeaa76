// Package engine provides the core submodule reconciliation logic for subsync.
//
// The engine sits between the CLI and the git layer. For every scope it
// plans a changeset, applies init and deinit operations concurrently,
// verifies convergence by planning again and finally shallow-updates every
// initialized submodule.
//
// Key components:
//   - Engine: Main orchestrator called by the CLI
//   - Reconcile/Update/Sync: Per-scope phases
//   - Run/Preview/Status: Root and nested scope orchestration
package engine

import (
	"github.com/rs/zerolog"

	"github.com/danieljhkim/subsync/internal/gitx"
	"github.com/danieljhkim/subsync/internal/logging"
	"github.com/danieljhkim/subsync/internal/metrics"
)

// Operation names reported to metrics.
const (
	opInit   = "init"
	opDeinit = "deinit"
	opUpdate = "update"
	opVerify = "verify"
)

// Engine orchestrates all subsync operations.
// It is the main API surface called by the CLI.
type Engine struct {
	repo    gitx.SubmoduleRepo
	metrics *metrics.Recorder
	logger  zerolog.Logger
}

// New creates a new Engine with the given dependencies. rec may be nil.
func New(repo gitx.SubmoduleRepo, rec *metrics.Recorder) *Engine {
	return &Engine{
		repo:    repo,
		metrics: rec,
		logger:  logging.GetLogger("engine"),
	}
}
