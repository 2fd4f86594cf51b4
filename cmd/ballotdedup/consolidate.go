package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openballot/ballotdedup/internal/types"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Consolidate cross-source duplicate groups",
	Long: `Find every group of active records sharing a cross-source
fingerprint, select the best record in each group as master, merge the
others into it, and soft-mark them as duplicates.

Safe to run repeatedly: already-consolidated groups are skipped, and a
group whose membership grew is re-merged onto the current master.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := eng.ConsolidateAll(context.Background())
		if err != nil {
			return fmt.Errorf("consolidation failed: %w", err)
		}
		printConsolidateResult(result)
		return nil
	},
}

func printConsolidateResult(result *types.ConsolidateResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Consolidation ==="))
	fmt.Printf("  Groups processed: %s\n", green(fmt.Sprintf("%d", result.GroupsProcessed)))
	fmt.Printf("  Records merged:   %s\n", green(fmt.Sprintf("%d", result.RecordsMerged)))
	if result.GroupsFailed > 0 {
		fmt.Printf("  Groups failed:    %s\n", red(fmt.Sprintf("%d", result.GroupsFailed)))
		for _, msg := range result.Errors {
			fmt.Printf("    %s\n", msg)
		}
	}
}

func init() {
	rootCmd.AddCommand(consolidateCmd)
}
