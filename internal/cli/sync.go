package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/subsync/internal/engine"
)

// withOptional adds the manifest's optional submodules to the desired set.
var withOptional bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Initialize, deinitialize and update submodules",
	Long: `Reconcile the root submodules with the manifest, then every nested
submodule set whose parent is desired. Each initialized submodule is updated
with a shallow checkout. This is the default command.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&withOptional, "with-optional", false, "Include optional submodules")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.flushMetrics()

	result, runErr := a.engine.Run(cmd.Context(), a.request())

	if jsonOutput {
		if err := outputJSON(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else {
		printRunResult(result)
	}

	if err := reportFailures(runErr); err != nil {
		return err
	}
	if !jsonOutput {
		PrintSuccess("Submodules synchronized")
	}
	return nil
}

func printRunResult(result *engine.RunResult) {
	if result == nil || result.Root == nil {
		return
	}
	printScopeResult(result.Root)
	for _, res := range result.Nested {
		printScopeResult(res)
	}
}

func printScopeResult(res *engine.ScopeResult) {
	PrintSection(res.Scope.String())
	if res.Plan != nil {
		PrintLabelValue("Initialized", PrintCount(len(res.Plan.ToInit), "submodule", "submodules"))
		PrintLabelValue("Deinitialized", PrintCount(len(res.Plan.ToDeinit), "submodule", "submodules"))
	}
	PrintLabelValue("Updated", fmt.Sprintf("%d of %d", len(res.Updated), len(res.Initialized)))
}
