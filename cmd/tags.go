package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/checkpoint/internal/engine"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	tagsJSON   bool
	tagsToon   bool
	tagsRename string
)

var tagsCmd = &cobra.Command{
	Use:   "tags [old-tag]",
	Short: "List or manage tags",
	Long: `List all tags used across snapshots with usage counts.
Optionally rename a tag across all snapshots.

Without --branch every branch is included.

Examples:
  checkpoint tags                    # List all tags
  checkpoint tags security --rename important-security`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)

	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "Output as JSON")
	tagsCmd.Flags().BoolVar(&tagsToon, "toon", false, "Output in LLM-friendly toon format")
	tagsCmd.Flags().StringVar(&tagsRename, "rename", "", "Rename tag to new value")
}

type tagInfo struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

func runTags(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	var snaps []*models.Snapshot
	if branchArg != "" {
		snaps, err = eng.ListSnapshots(branchArg)
	} else {
		snaps, err = eng.ListAllSnapshots()
	}
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if tagsRename != "" {
		if len(args) == 0 {
			return fmt.Errorf("tag name required for --rename")
		}
		return renameTag(eng, snaps, args[0], tagsRename)
	}

	tags := countTags(snaps)
	if len(tags) == 0 && !tagsJSON && !tagsToon {
		fmt.Println("No tags found")
		return nil
	}

	if tagsJSON {
		output, err := json.MarshalIndent(tags, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if tagsToon {
		output, err := gotoon.Encode(tags)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Printf("Found %d tag(s):\n\n", len(tags))
	for _, t := range tags {
		fmt.Printf("  %-30s %3d\n", t.Tag, t.Count)
	}

	return nil
}

// countTags orders tags by usage, then name
func countTags(snaps []*models.Snapshot) []tagInfo {
	counts := make(map[string]int)
	for _, s := range snaps {
		for _, tag := range s.Tags {
			counts[tag]++
		}
	}

	tags := make([]tagInfo, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, tagInfo{Tag: tag, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count == tags[j].Count {
			return tags[i].Tag < tags[j].Tag
		}
		return tags[i].Count > tags[j].Count
	})
	return tags
}

func renameTag(eng *engine.Engine, snaps []*models.Snapshot, oldTag, newTag string) error {
	updated := 0

	for _, s := range snaps {
		if !s.HasTag(oldTag) {
			continue
		}

		tags := make([]string, len(s.Tags))
		for i, tag := range s.Tags {
			if tag == oldTag {
				tag = newTag
			}
			tags[i] = tag
		}

		if _, err := eng.UpdateMetadata(s.Namespace, s.ID, engine.MetadataUpdate{Tags: tags, SetTags: true}); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to update %s: %v\n", s.ShortID(), err)
			continue
		}
		updated++
	}

	fmt.Printf("Renamed tag '%s' → '%s' in %d snapshot(s)\n", oldTag, newTag, updated)
	return nil
}
