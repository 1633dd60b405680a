package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	relatedJSON  bool
	relatedToon  bool
	relatedLimit int
)

var relatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Find related snapshots",
	Long: `Find snapshots related to a given snapshot based on:
  - Files changed by both
  - Shared tags
  - Same branch

Results are ranked by relevance.

Example:
  checkpoint related 3f2a9c1e`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	rootCmd.AddCommand(relatedCmd)

	relatedCmd.Flags().BoolVar(&relatedJSON, "json", false, "Output as JSON")
	relatedCmd.Flags().BoolVar(&relatedToon, "toon", false, "Output in LLM-friendly toon format")
	relatedCmd.Flags().IntVar(&relatedLimit, "limit", 10, "Maximum number of results")
}

type relatedSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Branch string `json:"branch"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

func runRelated(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	target, err := eng.FindSnapshot(branchArg, args[0])
	if err != nil {
		return err
	}

	snaps, err := eng.ListAllSnapshots()
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	related := rankRelated(target, snaps)
	if relatedLimit > 0 && len(related) > relatedLimit {
		related = related[:relatedLimit]
	}

	if relatedJSON {
		output, err := json.MarshalIndent(related, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if relatedToon {
		output, err := gotoon.Encode(related)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	if len(related) == 0 {
		fmt.Println("No related snapshots found")
		return nil
	}

	fmt.Printf("Snapshots related to %s (%s):\n\n", target.ShortID(), target.Name)
	for i, r := range related {
		fmt.Printf("%d. %s  %s [score: %d]\n", i+1, shortID(r.ID), r.Name, r.Score)
		fmt.Printf("   Branch: %s\n", r.Branch)
		fmt.Printf("   Reason: %s\n\n", r.Reason)
	}

	return nil
}

func rankRelated(target *models.Snapshot, snaps []*models.Snapshot) []relatedSnapshot {
	targetPaths := changedPaths(target)

	related := []relatedSnapshot{}
	for _, s := range snaps {
		if s.ID == target.ID {
			continue
		}

		score := 0
		var reasons []string

		shared := 0
		for p := range changedPaths(s) {
			if targetPaths[p] {
				shared++
			}
		}
		if shared > 0 {
			score += shared * 20
			reasons = append(reasons, fmt.Sprintf("%d shared file(s)", shared))
		}

		var tags []string
		for _, tag := range s.Tags {
			if target.HasTag(tag) {
				tags = append(tags, tag)
			}
		}
		if len(tags) > 0 {
			score += len(tags) * 30
			reasons = append(reasons, fmt.Sprintf("shared tags: %s", strings.Join(tags, ", ")))
		}

		if score == 0 {
			continue
		}
		if s.Namespace == target.Namespace {
			score += 10
			reasons = append(reasons, "same branch")
		}

		related = append(related, relatedSnapshot{
			ID:     s.ID,
			Name:   s.Name,
			Branch: s.Namespace,
			Score:  score,
			Reason: strings.Join(reasons, "; "),
		})
	}

	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Score > related[j].Score
	})
	return related
}

func changedPaths(s *models.Snapshot) map[string]bool {
	fc := s.FileChanges
	paths := make(map[string]bool, fc.Total())
	for _, list := range [][]models.FileChange{fc.Added, fc.Modified, fc.Deleted} {
		for _, c := range list {
			paths[c.Path] = true
		}
	}
	return paths
}
