package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/checkpoint/internal/engine"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	metaName        string
	metaDescription string
	metaTags        []string
	metaAddTags     []string
	metaRemoveTags  []string
	metaJSON        bool
	metaToon        bool
)

var metaCmd = &cobra.Command{
	Use:   "meta <id>",
	Short: "Show or edit the metadata of a snapshot",
	Long: `Display a snapshot's manifest, or update its name, description and tags.

The id may be any unique prefix. Without --branch every branch is searched.
Edits never touch the recorded file changes.

Examples:
  checkpoint meta 3f2a9c1e
  checkpoint meta 3f2a --name "green build" --add-tag important
  checkpoint meta 3f2a --tags a,b --json`,
	Args: cobra.ExactArgs(1),
	RunE: runMeta,
}

func init() {
	rootCmd.AddCommand(metaCmd)

	metaCmd.Flags().StringVar(&metaName, "name", "", "Set the snapshot name")
	metaCmd.Flags().StringVarP(&metaDescription, "message", "m", "", "Set the snapshot description")
	metaCmd.Flags().StringSliceVar(&metaTags, "tags", nil, "Replace all tags")
	metaCmd.Flags().StringSliceVar(&metaAddTags, "add-tag", nil, "Add tags")
	metaCmd.Flags().StringSliceVar(&metaRemoveTags, "remove-tag", nil, "Remove tags")
	metaCmd.Flags().BoolVar(&metaJSON, "json", false, "Output as JSON")
	metaCmd.Flags().BoolVar(&metaToon, "toon", false, "Output in LLM-friendly toon format")
}

func runMeta(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	snap, err := eng.FindSnapshot(branchArg, args[0])
	if err != nil {
		return err
	}

	upd, changed := metaUpdate(cmd, snap)
	if changed {
		snap, err = eng.UpdateMetadata(snap.Namespace, snap.ID, upd)
		if err != nil {
			return fmt.Errorf("failed to update metadata: %w", err)
		}
		if !metaJSON && !metaToon {
			fmt.Printf("✓ Updated snapshot %s\n\n", snap.ShortID())
		}
	}

	if metaJSON {
		output, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if metaToon {
		output, err := gotoon.Encode(snap)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	printMeta(snap)
	return nil
}

// metaUpdate collects the edits requested on the command line
func metaUpdate(cmd *cobra.Command, snap *models.Snapshot) (engine.MetadataUpdate, bool) {
	var upd engine.MetadataUpdate
	changed := false

	if cmd != nil && cmd.Flags().Changed("name") || metaName != "" {
		upd.Name = &metaName
		changed = true
	}
	if cmd != nil && cmd.Flags().Changed("message") || metaDescription != "" {
		upd.Description = &metaDescription
		changed = true
	}

	if metaTags != nil || len(metaAddTags) > 0 || len(metaRemoveTags) > 0 {
		tags := snap.Tags
		if metaTags != nil {
			tags = metaTags
		}
		tags = append(append([]string{}, tags...), metaAddTags...)

		remove := make(map[string]bool, len(metaRemoveTags))
		for _, t := range metaRemoveTags {
			remove[t] = true
		}
		kept := make([]string, 0, len(tags))
		for _, t := range tags {
			if !remove[t] {
				kept = append(kept, t)
			}
		}

		upd.Tags = kept
		upd.SetTags = true
		changed = true
	}

	return upd, changed
}

func printMeta(snap *models.Snapshot) {
	fc := snap.FileChanges

	fmt.Printf("Snapshot: %s\n\n", snap.ID)
	fmt.Printf("Name:        %s\n", snap.Name)
	fmt.Printf("Branch:      %s\n", snap.Namespace)
	fmt.Printf("Created:     %s\n", snap.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Trigger:     %s\n", snap.Trigger)
	if snap.GitBranch != "" {
		fmt.Printf("Git branch:  %s\n", snap.GitBranch)
	}
	fmt.Printf("Files:       %d (%s)\n", snap.Stats.FileCount, formatBytes(snap.Stats.TotalSize))
	fmt.Printf("Manifest:    %.2f KB\n", snap.SizeKB)
	fmt.Printf("Changes:     +%d ~%d -%d\n", len(fc.Added), len(fc.Modified), len(fc.Deleted))

	if len(snap.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(snap.Tags, ", "))
	}

	if snap.Description != "" {
		fmt.Printf("\nDescription:\n%s\n", snap.Description)
	}
}
