package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import snapshot manifests from an export",
	Long: `Merge the snapshots of an export document into the store.

Snapshots whose id already exists are skipped, never overwritten. Entries
without a branch are imported into --branch, or the current branch.

Examples:
  checkpoint import backup.json
  checkpoint import snapshots.yaml --branch archive`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	res, err := eng.Import(args[0], resolveBranch())
	if err != nil {
		return err
	}

	fmt.Printf("✓ Imported %d snapshot(s), skipped %d\n", res.Imported, res.Skipped)
	return nil
}
