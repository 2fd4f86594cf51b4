package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openballot/ballotdedup/internal/types"
)

var ingestConsolidate bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json>",
	Short: "Ingest raw measure records from a JSON file",
	Long: `Ingest a JSON array of raw measure records through the dedup
pipeline. Each record is fingerprinted, checked against the store at
three strictness tiers, and inserted, updated, or marked duplicate.

Rejected and failed records are reported but never abort the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		var raws []*types.RawMeasure
		if err := json.Unmarshal(data, &raws); err != nil {
			return fmt.Errorf("failed to parse %s: %w", args[0], err)
		}
		if len(raws) == 0 {
			fmt.Println("No records to ingest")
			return nil
		}

		ctx := context.Background()
		result, err := eng.IngestBatch(ctx, raws)
		if err != nil {
			return fmt.Errorf("ingest run failed: %w", err)
		}

		printBatchResult(result)

		if ingestConsolidate {
			fmt.Println()
			cres, err := eng.ConsolidateAll(ctx)
			if err != nil {
				return fmt.Errorf("consolidation failed: %w", err)
			}
			printConsolidateResult(cres)
		}
		return nil
	},
}

func printBatchResult(result *types.BatchResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Ingest Run "+result.RunID+" ==="))
	fmt.Printf("  Checked:      %d\n", result.Checked)
	fmt.Printf("  Inserted:     %s\n", green(fmt.Sprintf("%d", result.Inserted)))
	fmt.Printf("  Updated:      %s\n", green(fmt.Sprintf("%d", result.Updated)))
	fmt.Printf("  Unchanged:    %s\n", gray(fmt.Sprintf("%d", result.Unchanged)))
	fmt.Printf("  Duplicates:   %s\n", yellow(fmt.Sprintf("%d", result.Duplicates)))
	fmt.Printf("  Cross-source: %s\n", yellow(fmt.Sprintf("%d", result.CrossSource)))
	fmt.Printf("  Rejected:     %s\n", red(fmt.Sprintf("%d", result.Rejected)))
	fmt.Printf("  Failed:       %s\n", red(fmt.Sprintf("%d", result.Failed)))
	if result.Retried > 0 {
		fmt.Printf("  Retried:      %s\n", yellow(fmt.Sprintf("%d", result.Retried)))
	}
	fmt.Printf("  Duration:     %v\n", result.CompletedAt.Sub(result.StartedAt).Round(1e6))

	if len(result.Errors) > 0 {
		fmt.Printf("\n%s\n", red("Errors:"))
		for _, msg := range result.Errors {
			fmt.Printf("  %s\n", msg)
		}
	}
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestConsolidate, "consolidate", false,
		"run cross-source consolidation after the batch")
	rootCmd.AddCommand(ingestCmd)
}
