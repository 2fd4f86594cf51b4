package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent ingest runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := eng.GetIngestRuns(context.Background(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No ingest runs recorded")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		for _, run := range runs {
			status := gray(run.Status)
			switch run.Status {
			case "success":
				status = green(run.Status)
			case "partial":
				status = yellow(run.Status)
			case "failed":
				status = red(run.Status)
			}
			fmt.Printf("%s  %s  %s\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), status, gray(run.RunID))
			fmt.Printf("  %d checked, %d inserted, %d updated, %d duplicates\n",
				run.Checked, run.Inserted, run.Updated, run.Duplicates)
			if run.Error != nil {
				fmt.Printf("  %s\n", red(*run.Error))
			}
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "maximum runs to show")
	rootCmd.AddCommand(runsCmd)
}
