package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/danieljhkim/subsync/internal/clock"
	"github.com/danieljhkim/subsync/internal/config"
	"github.com/danieljhkim/subsync/internal/engine"
	"github.com/danieljhkim/subsync/internal/execx"
	"github.com/danieljhkim/subsync/internal/gitx"
	"github.com/danieljhkim/subsync/internal/metrics"
	"github.com/danieljhkim/subsync/internal/retry"
)

// ErrFailed is returned after failures have been printed.
var ErrFailed = errors.New("subsync failed")

// app bundles what a command needs to run against one repository.
type app struct {
	engine   *engine.Engine
	manifest *config.Manifest
	metrics  *metrics.Recorder
	root     string
}

// newApp builds an app with real implementations of all dependencies.
// Tests replace it to run commands against fakes.
var newApp = func() (*app, error) {
	cwd := startDir
	if cwd == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	root, err := gitx.Discover(cwd)
	if err != nil {
		return nil, err
	}

	manifest, err := config.Load(config.LoadOptions{Root: root, File: configFile})
	if err != nil {
		return nil, err
	}
	policy, err := manifest.RetryPolicy()
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	runner := execx.NewRunner(manifest.Concurrency, rec)
	caller := retry.NewCaller(runner, &clock.RealClock{}, rec)
	repo := gitx.NewGitSubmodules(caller, policy, manifest.Git, root)

	return &app{
		engine:   engine.New(repo, rec),
		manifest: manifest,
		metrics:  rec,
		root:     root,
	}, nil
}

// request builds the sync request described by the manifest.
func (a *app) request() *engine.SyncRequest {
	return &engine.SyncRequest{
		Modules: a.manifest.Desired(withOptional),
		Nested:  a.manifest.Nested,
	}
}

// flushMetrics writes the metrics textfile when --metrics-file is set.
func (a *app) flushMetrics() {
	if metricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(metricsFile); err != nil {
		PrintWarning(fmt.Sprintf("failed to write metrics: %v", err))
	}
}

// reportFailures prints every failure contained in err on its own line
// and returns ErrFailed, or nil when err is nil.
func reportFailures(err error) error {
	failures := engine.Failures(err)
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures {
		PrintError(f.Error())
	}
	return fmt.Errorf("%w: %s", ErrFailed, PrintCount(len(failures), "failure", "failures"))
}

// formatJSON formats a value as JSON.
func formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	out, err := formatJSON(v)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
