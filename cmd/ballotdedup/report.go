package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openballot/ballotdedup/internal/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the duplicate breakdown",
	Long: `Break down soft-marked duplicates by type (within-source vs
cross-source) and by data source, plus the number of cross-source
groups still awaiting consolidation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := eng.DuplicateReport(context.Background())
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Duplicate Report ==="))
		fmt.Printf("  Total duplicates:    %d\n", report.TotalDuplicates)
		fmt.Printf("  Unconsolidated groups: %s\n",
			yellow(fmt.Sprintf("%d", report.CrossSourceGroups)))

		if len(report.ByType) > 0 {
			fmt.Printf("\n%s\n", yellow("By type:"))
			names := make([]string, 0, len(report.ByType))
			for t := range report.ByType {
				names = append(names, string(t))
			}
			sort.Strings(names)
			for _, t := range names {
				fmt.Printf("  %-16s %d\n", t, report.ByType[types.DuplicateType(t)])
			}
		}

		if len(report.BySource) > 0 {
			fmt.Printf("\n%s\n", yellow("By source:"))
			sources := make([]string, 0, len(report.BySource))
			for s := range report.BySource {
				sources = append(sources, string(s))
			}
			sort.Strings(sources)
			for _, s := range sources {
				fmt.Printf("  %-16s %d\n", s, report.BySource[types.DataSource(s)])
			}
		}

		if report.TotalDuplicates == 0 {
			fmt.Printf("\n  %s\n", gray("No duplicates recorded"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
