package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/subsync/internal/engine"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the changes sync would make",
	Long: `Compute the init and deinit changes for the root and every eligible nested
submodule set without changing anything. Nested sets whose parent is not
initialized yet are shown as pending.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.flushMetrics()

		preview, previewErr := a.engine.Preview(cmd.Context(), a.request())
		if preview != nil {
			if jsonOutput {
				if err := outputJSON(preview); err != nil {
					return fmt.Errorf("failed to encode plan: %w", err)
				}
			} else {
				printPreview(preview)
			}
		}
		return reportFailures(previewErr)
	},
}

func init() {
	planCmd.Flags().BoolVar(&withOptional, "with-optional", false, "Include optional submodules")
}

func printPreview(preview *engine.PreviewResult) {
	for _, s := range preview.Scopes {
		PrintSection(s.Scope.String())
		if s.Pending {
			PrintEmptyState("pending: parent is not initialized yet")
			continue
		}

		cs := s.Changeset
		PrintLabelValue("Available", PrintCount(len(cs.Available), "submodule", "submodules"))
		PrintLabelValue("Initialized", PrintCount(len(cs.Initialized), "submodule", "submodules"))
		if cs.Converged() {
			PrintEmptyState("up to date")
			continue
		}
		PrintLabelValue("To initialize", PrintCount(len(cs.ToInit), "submodule", "submodules"))
		PrintLabelValue("To de-initialize", PrintCount(len(cs.ToDeinit), "submodule", "submodules"))
		PrintChanges(cs.ToInit, cs.ToDeinit)
	}
}
