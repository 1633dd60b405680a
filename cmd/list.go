package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	listAll   bool
	listTag   string
	listSince string
	listLimit int
	listJSON  bool
	listToon  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots",
	Long: `List snapshots of the current branch, newest first.

Examples:
  checkpoint list
  checkpoint list --all
  checkpoint list --tag important
  checkpoint list --since 2025-10-01 --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listAll, "all", false, "List snapshots of every branch")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().StringVar(&listSince, "since", "", "Show snapshots since date (YYYY-MM-DD)")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show at most this many snapshots")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output in LLM-friendly toon format")
}

type listEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Branch    string    `json:"branch"`
	Timestamp time.Time `json:"timestamp"`
	Trigger   string    `json:"trigger"`
	Tags      []string  `json:"tags"`
	Files     int       `json:"files"`
	Added     int       `json:"added"`
	Modified  int       `json:"modified"`
	Deleted   int       `json:"deleted"`
}

func runList(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	var snaps []*models.Snapshot
	if listAll {
		snaps, err = eng.ListAllSnapshots()
	} else {
		snaps, err = eng.ListSnapshots(resolveBranch())
	}
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	var since time.Time
	if listSince != "" {
		since, err = time.ParseInLocation("2006-01-02", listSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
	}

	entries := []listEntry{}
	for _, s := range snaps {
		if listTag != "" && !s.HasTag(listTag) {
			continue
		}
		if !since.IsZero() && s.Timestamp.Before(since) {
			continue
		}
		entries = append(entries, listEntry{
			ID:        s.ID,
			Name:      s.Name,
			Branch:    s.Namespace,
			Timestamp: s.Timestamp,
			Trigger:   string(s.Trigger),
			Tags:      s.Tags,
			Files:     s.Stats.FileCount,
			Added:     len(s.FileChanges.Added),
			Modified:  len(s.FileChanges.Modified),
			Deleted:   len(s.FileChanges.Deleted),
		})
		if listLimit > 0 && len(entries) >= listLimit {
			break
		}
	}

	if listJSON {
		output, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if listToon {
		output, err := gotoon.Encode(entries)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}

	fmt.Printf("Found %d snapshot(s):\n\n", len(entries))
	for _, e := range entries {
		fmt.Printf("  %s  %s  %-10s  %s\n", shortID(e.ID), e.Timestamp.Local().Format("2006-01-02 15:04"), e.Trigger, e.Name)
		fmt.Printf("            %s  %d files  +%d ~%d -%d", e.Branch, e.Files, e.Added, e.Modified, e.Deleted)
		if len(e.Tags) > 0 {
			fmt.Printf("  [%s]", strings.Join(e.Tags, ", "))
		}
		fmt.Println()
	}

	return nil
}

func shortID(id string) string {
	s := models.Snapshot{ID: id}
	return s.ShortID()
}
