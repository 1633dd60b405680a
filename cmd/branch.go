package cmd

import (
	"fmt"

	"github.com/pders01/checkpoint/internal/store"
	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch",
	Short: "Show the active snapshot branch and list known branches",
	Long: `Print the branch new snapshots are written to and every branch that
already has a namespace in the store.

The active branch is --branch, else the current git branch, else
snapshot.default_branch.`,
	Args: cobra.NoArgs,
	RunE: runBranch,
}

func init() {
	rootCmd.AddCommand(branchCmd)
}

func runBranch(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	active := store.SanitizeBranch(resolveBranch())
	fmt.Printf("Active branch: %s\n", active)

	branches, err := eng.Branches()
	if err != nil {
		return fmt.Errorf("failed to list branches: %w", err)
	}
	if len(branches) == 0 {
		fmt.Println("No branches in store yet")
		return nil
	}

	fmt.Println("\nBranches:")
	for _, b := range branches {
		marker := " "
		if b == active {
			marker = "*"
		}
		snaps, err := eng.ListSnapshots(b)
		if err != nil {
			return fmt.Errorf("failed to list snapshots of %s: %w", b, err)
		}
		fmt.Printf("  %s %-30s %d snapshot(s)\n", marker, b, len(snaps))
	}
	return nil
}
