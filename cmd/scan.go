package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the files the next snapshot would capture",
	Long: `Walk the project with the configured ignore rules and size limit and
print every file that would be captured, without writing anything.

Examples:
  checkpoint scan
  checkpoint scan --json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
}

type scanEntry struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Text     bool   `json:"text"`
	Hash     string `json:"hash"`
}

func runScan(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	records, err := eng.Scan()
	if err != nil {
		return fmt.Errorf("failed to scan project: %w", err)
	}

	entries := make([]scanEntry, 0, len(records))
	var total int64
	for _, r := range records {
		entries = append(entries, scanEntry{
			Path:     r.Path,
			Size:     r.Size,
			MimeType: r.MimeType,
			Text:     r.IsTextFile,
			Hash:     r.Hash,
		})
		total += r.Size
	}

	if scanJSON {
		output, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	for _, e := range entries {
		kind := "text"
		if !e.Text {
			kind = "binary"
		}
		fmt.Printf("  %-6s %10s  %s\n", kind, formatBytes(e.Size), e.Path)
	}
	fmt.Printf("\n%d file(s), %s\n", len(entries), formatBytes(total))
	return nil
}
