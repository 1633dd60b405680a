package cmd

import (
	"fmt"

	"github.com/pders01/checkpoint/internal/restore"
	"github.com/spf13/cobra"
)

var (
	restoreTarget  string
	restoreFull    bool
	restoreVerbose bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Write a snapshot back to disk",
	Long: `Restore files recorded by a snapshot.

By default only the snapshot's own changes are applied: added and modified
files are written and deleted files are removed. With --full the complete
tree as of that snapshot is written. Files already identical on disk are
left alone. Files not known to the snapshot are never touched.

Examples:
  checkpoint restore 3f2a9c1e
  checkpoint restore 3f2a --full --target /tmp/old-tree`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVarP(&restoreTarget, "target", "t", "", "Directory to restore into (default: project root)")
	restoreCmd.Flags().BoolVar(&restoreFull, "full", false, "Restore the full tree as of the snapshot")
	restoreCmd.Flags().BoolVarP(&restoreVerbose, "verbose", "v", false, "List every restored path")
}

func runRestore(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	branch := resolveBranch()
	snap, err := eng.FindSnapshot(branch, args[0])
	if err != nil {
		return err
	}

	report, err := eng.RestoreSnapshot(branch, snap.ID, restoreTarget, restoreFull)
	if report == nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	printReport(report)
	if !report.OK() {
		return fmt.Errorf("restore of %s incomplete: %w", snap.ShortID(), err)
	}

	fmt.Printf("✓ Restored snapshot %s (%s)\n", snap.ShortID(), snap.Name)
	return nil
}

func printReport(r *restore.Report) {
	fmt.Printf("Written:   %d\n", len(r.Written))
	fmt.Printf("Unchanged: %d\n", len(r.Unchanged))
	fmt.Printf("Deleted:   %d\n", len(r.Deleted))
	fmt.Printf("Skipped:   %d\n", len(r.Skipped))

	if restoreVerbose {
		for _, p := range r.Written {
			fmt.Printf("  + %s\n", p)
		}
		for _, p := range r.Deleted {
			fmt.Printf("  - %s\n", p)
		}
	}

	if len(r.Failed) > 0 {
		fmt.Printf("Failed:    %d\n", len(r.Failed))
		for _, f := range r.Failed {
			fmt.Printf("  ✗ %s: %v\n", f.Path, f.Err)
		}
	}
}
