package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <template>",
	Short: "Generate pre-defined reports",
	Long: `Generate formatted reports using pre-defined templates.

Available templates:
  daily   - Today's snapshots grouped by branch with summary stats

Examples:
  checkpoint report daily`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "daily":
		return generateDailyReport(time.Now())
	default:
		return fmt.Errorf("unknown report template: %s (available: daily)", args[0])
	}
}

func generateDailyReport(now time.Time) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	snaps, err := eng.ListAllSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	y, m, d := now.Local().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.Local)

	byBranch := make(map[string][]*models.Snapshot)
	var today []*models.Snapshot
	for _, s := range snaps {
		if s.Timestamp.Before(dayStart) {
			continue
		}
		today = append(today, s)
		byBranch[s.Namespace] = append(byBranch[s.Namespace], s)
	}

	fmt.Println(headerStyle.Render("Daily Snapshot Report"))
	fmt.Println("═════════════════════")
	fmt.Printf("%s  %s\n\n", eng.Project(), dayStart.Format("2006-01-02"))

	stats := collectStats(today)
	fmt.Printf("Snapshots today: %d\n", stats.TotalSnapshots)
	for _, t := range models.Triggers {
		if count, ok := stats.ByTrigger[string(t)]; ok {
			fmt.Printf("  %-12s %3d\n", t, count)
		}
	}
	fmt.Println()

	if len(today) == 0 {
		fmt.Println("No snapshots today")
		return nil
	}

	branches := make([]string, 0, len(byBranch))
	for b := range byBranch {
		branches = append(branches, b)
	}
	sort.Strings(branches)

	for _, b := range branches {
		fmt.Println(headerStyle.Render(b))
		touched := 0
		for _, s := range byBranch[b] {
			fc := s.FileChanges
			touched += fc.Total()
			fmt.Printf("  %s  %s  %s", s.Timestamp.Local().Format("15:04"), s.ShortID(), s.Name)
			if len(s.Tags) > 0 {
				fmt.Printf("  [%s]", strings.Join(s.Tags, ", "))
			}
			fmt.Println()
		}
		fmt.Printf("  %s\n\n", labelStyle.Render(fmt.Sprintf("%d snapshot(s), %d file change(s)", len(byBranch[b]), touched)))
	}

	return nil
}
