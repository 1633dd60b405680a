package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/checkpoint/internal/engine"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	statsJSON bool
	statsToon bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snapshot statistics and storage usage",
	Long: `Display statistics about the project's snapshot store including:
  - Snapshot count per branch and trigger
  - Tag usage
  - Timeline distribution
  - Bytes on disk per branch, with content and diff object counts

Examples:
  checkpoint stats
  checkpoint stats --json
  checkpoint stats --toon`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	statsCmd.Flags().BoolVar(&statsToon, "toon", false, "Output in LLM-friendly toon format")
}

type snapshotStats struct {
	TotalSnapshots int             `json:"total_snapshots"`
	ByTrigger      map[string]int  `json:"by_trigger"`
	ByTag          map[string]int  `json:"by_tag"`
	OldestSnapshot *time.Time      `json:"oldest_snapshot,omitempty"`
	NewestSnapshot *time.Time      `json:"newest_snapshot,omitempty"`
	TopTags        []tagInfo       `json:"top_tags"`
	DailyActivity  []dailyActivity `json:"daily_activity"`
	Storage        *engine.Usage   `json:"storage"`
}

type dailyActivity struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

func runStats(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	snaps, err := eng.ListAllSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	usage, err := eng.StorageUsage()
	if err != nil {
		return fmt.Errorf("failed to measure storage: %w", err)
	}

	stats := collectStats(snaps)
	stats.Storage = usage

	if statsJSON {
		output, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if statsToon {
		output, err := gotoon.Encode(stats)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Println(headerStyle.Render("Snapshot Statistics"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("%s %s\n", labelStyle.Render("Project:        "), usage.Project)
	fmt.Printf("%s %s\n", labelStyle.Render("Store:          "), usage.Root)
	fmt.Printf("%s %d\n", labelStyle.Render("Total Snapshots:"), stats.TotalSnapshots)
	if stats.OldestSnapshot != nil && stats.NewestSnapshot != nil {
		fmt.Printf("%s %s to %s\n", labelStyle.Render("Date Range:     "),
			stats.OldestSnapshot.Local().Format("2006-01-02"),
			stats.NewestSnapshot.Local().Format("2006-01-02"))
	}
	fmt.Println()

	if stats.TotalSnapshots > 0 {
		fmt.Println(headerStyle.Render("By Trigger:"))
		for _, t := range models.Triggers {
			if count, ok := stats.ByTrigger[string(t)]; ok {
				percentage := float64(count) / float64(stats.TotalSnapshots) * 100
				fmt.Printf("  %-12s %3d  (%.1f%%)\n", t, count, percentage)
			}
		}
		fmt.Println()
	}

	fmt.Println(headerStyle.Render("Storage:"))
	for _, b := range usage.Branches {
		fmt.Printf("  %-24s %4d snapshots  %5d objects  %4d diffs  %s\n",
			b.Branch, b.Snapshots, b.ContentObjects, b.DiffObjects, formatBytes(b.Bytes))
	}
	fmt.Printf("  %-24s %s\n", "total", formatBytes(usage.TotalBytes))
	fmt.Println()

	if len(stats.TopTags) > 0 {
		fmt.Println(headerStyle.Render("Top Tags:"))
		limit := min(10, len(stats.TopTags))
		for _, ts := range stats.TopTags[:limit] {
			fmt.Printf("  %-20s %3d\n", ts.Tag, ts.Count)
		}
		fmt.Println()
	}

	if len(stats.DailyActivity) > 0 {
		fmt.Println(headerStyle.Render("Recent Activity:"))
		limit := min(7, len(stats.DailyActivity))
		for _, da := range stats.DailyActivity[:limit] {
			bar := strings.Repeat("█", min(da.Count, 20))
			fmt.Printf("  %s  %3d  %s\n", da.Date, da.Count, barStyle.Render(bar))
		}
	}

	return nil
}

func collectStats(snaps []*models.Snapshot) *snapshotStats {
	stats := &snapshotStats{
		TotalSnapshots: len(snaps),
		ByTrigger:      make(map[string]int),
		ByTag:          make(map[string]int),
		TopTags:        []tagInfo{},
		DailyActivity:  []dailyActivity{},
	}

	byDate := make(map[string]int)
	for _, s := range snaps {
		if stats.OldestSnapshot == nil || s.Timestamp.Before(*stats.OldestSnapshot) {
			t := s.Timestamp
			stats.OldestSnapshot = &t
		}
		if stats.NewestSnapshot == nil || s.Timestamp.After(*stats.NewestSnapshot) {
			t := s.Timestamp
			stats.NewestSnapshot = &t
		}

		stats.ByTrigger[string(s.Trigger)]++
		for _, tag := range s.Tags {
			stats.ByTag[tag]++
		}
		byDate[s.Timestamp.Local().Format("2006-01-02")]++
	}

	stats.TopTags = countTags(snaps)

	for date, count := range byDate {
		stats.DailyActivity = append(stats.DailyActivity, dailyActivity{Date: date, Count: count})
	}
	sort.Slice(stats.DailyActivity, func(i, j int) bool {
		return stats.DailyActivity[i].Date > stats.DailyActivity[j].Date
	})

	return stats
}
