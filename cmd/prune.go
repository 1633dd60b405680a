package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/pders01/checkpoint/internal/config"
	"github.com/pders01/checkpoint/internal/retention"
	"github.com/spf13/cobra"
)

var (
	pruneDays   int
	pruneDryRun bool
	pruneForce  bool
	pruneSweep  bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old snapshots based on retention policy",
	Long: `Remove snapshot manifests older than the retention period, then optionally
remove content and diff objects no remaining snapshot references.

Age is taken from the manifest file's modification time. The retention policy
is configured in ~/.config/checkpoint/config.toml:
  [retention]
  days = 30
  preserve_tags = ["important", "security"]

Snapshots with preserve tags are never pruned.

Examples:
  checkpoint prune                    # Show what would be pruned
  checkpoint prune --days 7 --force   # Prune snapshots older than a week
  checkpoint prune --force --sweep    # Prune and garbage-collect objects`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().IntVar(&pruneDays, "days", 0, "Retention window in days (default: retention.days)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", true, "Show what would be pruned without deleting")
	pruneCmd.Flags().BoolVar(&pruneForce, "force", false, "Actually delete snapshots (overrides dry-run)")
	pruneCmd.Flags().BoolVar(&pruneSweep, "sweep", false, "Also remove unreferenced content and diff objects")
}

func runPrune(cmd *cobra.Command, args []string) error {
	days := pruneDays
	if days <= 0 {
		days = config.GetRetentionDays()
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}

	fmt.Printf("Retention policy: %d days\n", days)
	fmt.Printf("Preserve tags: %v\n", config.GetPreserveTags())
	fmt.Printf("Cutoff date: %s\n\n", time.Now().Add(-time.Duration(days)*24*time.Hour).Format("2006-01-02 15:04"))

	plan, err := eng.Plan(days)
	if err != nil {
		return fmt.Errorf("failed to plan cleanup: %w", err)
	}

	var toPrune, toPreserve []retention.Candidate
	for _, c := range plan {
		if c.Prune {
			toPrune = append(toPrune, c)
		} else {
			toPreserve = append(toPreserve, c)
		}
	}

	apply := pruneForce || !pruneDryRun

	if len(toPrune) == 0 {
		fmt.Println("No snapshots to prune")
	} else {
		fmt.Printf("Snapshots to prune (%d):\n\n", len(toPrune))
		for _, c := range toPrune {
			printCandidate(c)
		}
	}

	if len(toPreserve) > 0 {
		fmt.Printf("Snapshots to preserve (%d):\n\n", len(toPreserve))
		for _, c := range toPreserve {
			printCandidate(c)
		}
	}

	if apply && len(toPrune) > 0 {
		fmt.Println("Pruning snapshots...")
		removed, err := eng.Cleanup(days)
		if err != nil {
			return fmt.Errorf("failed to prune snapshots: %w", err)
		}
		fmt.Printf("✓ Pruned %d snapshot(s)\n", removed)
	}

	if pruneSweep {
		res, err := eng.Sweep(!apply)
		if err != nil {
			return fmt.Errorf("failed to sweep objects: %w", err)
		}
		printSweep(res)
	}

	if !apply {
		fmt.Println("\nThis is a dry run. Use --force to actually prune snapshots.")
	}

	return nil
}

func printCandidate(c retention.Candidate) {
	fmt.Printf("  %s  %s  %s\n", c.Snapshot.ShortID(), c.Branch, c.Snapshot.Name)
	fmt.Printf("    Age:    %s\n", formatDuration(time.Since(c.ModTime)))
	fmt.Printf("    Reason: %s\n", c.Reason)
	if len(c.Snapshot.Tags) > 0 {
		fmt.Printf("    Tags:   %s\n", strings.Join(c.Snapshot.Tags, ", "))
	}
	fmt.Println()
}

func printSweep(res *retention.SweepResult) {
	verb := "Removed"
	if res.DryRun {
		verb = "Would remove"
	}
	fmt.Printf("%s %d content object(s) and %d diff object(s)\n", verb, res.ContentRemoved, res.DiffsRemoved)
	fmt.Printf("Kept %d content object(s) and %d diff object(s)\n", res.ContentKept, res.DiffsKept)
	if len(res.SkippedBranches) > 0 {
		fmt.Printf("Skipped branches with unreadable snapshots: %s\n", strings.Join(res.SkippedBranches, ", "))
	}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days == 0 {
		return "< 1 day"
	}
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
