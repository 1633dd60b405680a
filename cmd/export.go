package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all snapshot manifests to a file",
	Long: `Write every snapshot manifest of every branch to a single document.

The document is YAML when the file ends in .yaml or .yml and JSON otherwise.
Content objects are not included.

Examples:
  checkpoint export
  checkpoint export backup.json
  checkpoint export -o snapshots.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: checkpoint-export-<date>.json)")
}

func runExport(cmd *cobra.Command, args []string) error {
	path := exportOutput
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = fmt.Sprintf("checkpoint-export-%s.json", time.Now().Format("2006-01-02"))
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}

	n, err := eng.Export(path)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Exported %d snapshot(s) to %s\n", n, path)
	return nil
}
