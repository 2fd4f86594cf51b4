package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showHistory bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one measure in full, duplicate or not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid measure id %q", args[0])
		}

		ctx := context.Background()
		m, err := eng.GetMeasure(ctx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return fmt.Errorf("measure %d not found", id)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== Measure %d ===", m.ID)))
		fmt.Printf("  Fingerprint:  %s\n", m.ExactFingerprint)
		fmt.Printf("  Cross-source: %s\n", m.MeasureFingerprint)
		fmt.Printf("  Source:       %s\n", m.DataSource)
		fmt.Printf("  Year:         %d (%s)\n", m.Year, m.Jurisdiction)
		printOpt("Title", m.Title)
		printOpt("Question", m.BallotQuestion)
		printOpt("Description", m.Description)
		printOpt("Summary", m.SummaryText)
		printOpt("Document", m.DocumentURL)
		if m.YesVotes != nil && m.NoVotes != nil {
			fmt.Printf("  Votes:        %d yes / %d no", *m.YesVotes, *m.NoVotes)
			if m.PercentYes != nil {
				fmt.Printf(" (%.2f%% yes)", *m.PercentYes)
			}
			fmt.Println()
		}
		if m.PassFail != nil {
			fmt.Printf("  Outcome:      %s\n", *m.PassFail)
		}
		if m.IsDuplicate {
			fmt.Printf("  %s duplicate (%s) of measure %d\n",
				yellow("⚠"), m.DuplicateType, *m.MasterID)
		}
		if len(m.MergedFrom) > 0 {
			fmt.Printf("  Merged from:  %v\n", m.MergedFrom)
		}
		fmt.Printf("  %s\n", gray(fmt.Sprintf("created %s, last seen %s, %d updates",
			m.CreatedAt.Format("2006-01-02"), m.LastSeenAt.Format("2006-01-02"), m.UpdateCount)))

		if showHistory {
			changes, err := eng.GetChanges(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("\n%s\n", yellow("Change history:"))
			if len(changes) == 0 {
				fmt.Printf("  %s\n", gray("no recorded changes"))
			}
			for _, c := range changes {
				oldVal := "(null)"
				if c.OldValue != nil {
					oldVal = *c.OldValue
				}
				newVal := "(null)"
				if c.NewValue != nil {
					newVal = *c.NewValue
				}
				fmt.Printf("  %s %s: %s → %s %s\n",
					c.ChangedAt.Format("2006-01-02 15:04"), c.Field,
					gray(truncate(oldVal, 40)), truncate(newVal, 40),
					gray(fmt.Sprintf("[%s]", c.Source)))
			}
		}
		return nil
	},
}

func printOpt(label string, v *string) {
	if v == nil {
		return
	}
	fmt.Printf("  %-13s %s\n", label+":", truncate(*v, 100))
}

// truncate shortens s to at most n characters, cutting on rune
// boundaries so multibyte text is never split mid-sequence.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func init() {
	showCmd.Flags().BoolVar(&showHistory, "history", false, "include the journaled field changes")
	rootCmd.AddCommand(showCmd)
}
