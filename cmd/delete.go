package cmd

import (
	"fmt"

	"github.com/pders01/checkpoint/internal/config"
	"github.com/spf13/cobra"
)

var (
	deleteForce bool
	deleteSweep bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a snapshot",
	Long: `Delete one snapshot manifest. The id may be any unique prefix; without
--branch every branch is searched.

Snapshots carrying a preserve tag are refused unless --force is given.
Content objects stay on disk until a sweep removes the unreferenced ones.

Examples:
  checkpoint delete 3f2a9c1e
  checkpoint delete 3f2a --force --sweep`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Delete even if the snapshot has a preserve tag")
	deleteCmd.Flags().BoolVar(&deleteSweep, "sweep", false, "Remove objects no longer referenced afterwards")
}

func runDelete(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	snap, err := eng.FindSnapshot(branchArg, args[0])
	if err != nil {
		return err
	}

	if !deleteForce && config.ShouldPreserve(snap.Tags) {
		return fmt.Errorf("snapshot %s has a preserve tag (use --force to delete it)", snap.ShortID())
	}

	if err := eng.DeleteSnapshot(snap.ID, snap.Namespace); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	fmt.Printf("✓ Deleted snapshot %s (%s)\n", snap.ShortID(), snap.Name)

	if deleteSweep {
		res, err := eng.Sweep(false)
		if err != nil {
			return fmt.Errorf("failed to sweep objects: %w", err)
		}
		printSweep(res)
	}

	return nil
}
