package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/subsync/internal/gitx"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show submodule status",
	Long:  `Display the checkout state of every submodule of the root repository.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.flushMetrics()

		records, err := a.engine.Status(cmd.Context(), gitx.RootScope)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(records)
		}
		printStatus(records)
		return nil
	},
}

func printStatus(records []gitx.Record) {
	if len(records) == 0 {
		PrintEmptyState("No submodules")
		return
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Name, stateOf(r), shortHash(r.Hash), r.Description})
	}
	PrintTable([]string{"PATH", "STATE", "COMMIT", "DESCRIBE"}, rows)
	fmt.Println()
	PrintInfo(PrintCount(len(records), "submodule", "submodules"))
}

// stateOf names the state encoded in the status prefix of the hash.
func stateOf(r gitx.Record) string {
	switch {
	case strings.HasPrefix(r.Hash, "-"):
		return "uninitialized"
	case strings.HasPrefix(r.Hash, "+"):
		return "modified"
	case strings.HasPrefix(r.Hash, "U"):
		return "conflict"
	case !r.Initialized:
		return "unknown"
	default:
		return "ok"
	}
}

// shortHash strips the status prefix and abbreviates the commit.
func shortHash(hash string) string {
	hash = strings.TrimLeft(hash, "-+U")
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
