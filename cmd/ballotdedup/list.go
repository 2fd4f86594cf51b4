package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openballot/ballotdedup/internal/types"
)

var (
	listYearMin      int
	listYearMax      int
	listJurisdiction string
	listSource       string
	listHasVotes     bool
	listHasSummary   bool
	listContains     string
	listLimit        int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List canonical (non-duplicate) measures",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := types.MeasureFilter{
			YearMin:       listYearMin,
			YearMax:       listYearMax,
			Jurisdiction:  listJurisdiction,
			DataSource:    types.DataSource(listSource),
			HasVotes:      listHasVotes,
			HasSummary:    listHasSummary,
			TitleContains: listContains,
			Limit:         listLimit,
		}

		measures, err := eng.GetActive(context.Background(), filter)
		if err != nil {
			return err
		}
		if len(measures) == 0 {
			fmt.Println("No measures found")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, m := range measures {
			title := gray("(untitled)")
			if m.Title != nil {
				title = *m.Title
			}
			outcome := gray("—")
			if m.PassFail != nil {
				if *m.PassFail == "Pass" {
					outcome = green(*m.PassFail)
				} else {
					outcome = red(*m.PassFail)
				}
			}
			fmt.Printf("%-6d %d  %-14s %-12s %s  %s\n",
				m.ID, m.Year, m.Jurisdiction, m.DataSource, outcome, title)
			if m.PercentYes != nil {
				fmt.Printf("       %s\n",
					gray(fmt.Sprintf("yes %.2f%% / no %.2f%%", *m.PercentYes, *m.PercentNo)))
			}
			if len(m.MergedFrom) > 0 {
				fmt.Printf("       %s\n", gray(fmt.Sprintf("merged from %v", m.MergedFrom)))
			}
		}
		fmt.Printf("\n%d measures\n", len(measures))
		return nil
	},
}

func init() {
	listCmd.Flags().IntVar(&listYearMin, "year-min", 0, "minimum election year")
	listCmd.Flags().IntVar(&listYearMax, "year-max", 0, "maximum election year")
	listCmd.Flags().StringVar(&listJurisdiction, "jurisdiction", "", "jurisdiction filter")
	listCmd.Flags().StringVar(&listSource, "source", "", "data source filter")
	listCmd.Flags().BoolVar(&listHasVotes, "has-votes", false, "only measures with vote counts")
	listCmd.Flags().BoolVar(&listHasSummary, "has-summary", false, "only measures with summaries")
	listCmd.Flags().StringVar(&listContains, "title", "", "substring match on title")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "maximum rows to return (0 for all)")
	rootCmd.AddCommand(listCmd)
}
