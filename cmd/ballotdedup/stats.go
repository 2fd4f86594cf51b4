package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openballot/ballotdedup/internal/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the canonical record set",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := eng.Stats(context.Background())
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Measure Statistics ==="))
		fmt.Printf("  Active measures: %d\n", stats.TotalActive)
		fmt.Printf("  With summaries:  %d\n", stats.WithSummaries)
		fmt.Printf("  With votes:      %d\n", stats.WithVotes)
		if stats.TotalActive > 0 {
			fmt.Printf("  Year range:      %d-%d\n", stats.YearMin, stats.YearMax)
		}
		fmt.Printf("  Passed:          %s\n", green(fmt.Sprintf("%d", stats.Passed)))
		fmt.Printf("  Failed:          %s\n", red(fmt.Sprintf("%d", stats.Failed)))

		if len(stats.BySource) > 0 {
			fmt.Printf("\n%s\n", yellow("By source:"))
			sources := make([]string, 0, len(stats.BySource))
			for s := range stats.BySource {
				sources = append(sources, string(s))
			}
			sort.Strings(sources)
			for _, s := range sources {
				fmt.Printf("  %-16s %d\n", s, stats.BySource[types.DataSource(s)])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
