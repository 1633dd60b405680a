package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	searchFiles bool
	searchJSON  bool
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search snapshots by keyword",
	Long: `Search snapshot names, descriptions, tags and git branches.

With --files the paths each snapshot added, modified or deleted are searched
too. Without --branch every branch is searched.

Examples:
  checkpoint search "parser refactor"
  checkpoint search config.go --files`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolVar(&searchFiles, "files", false, "Also match changed file paths")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
}

type searchResult struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Branch    string   `json:"branch"`
	Timestamp string   `json:"timestamp"`
	Score     int      `json:"score"`
	Tags      []string `json:"tags"`
	Paths     []string `json:"paths,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	queryWords := strings.Fields(strings.ToLower(args[0]))
	if len(queryWords) == 0 {
		return fmt.Errorf("search query is empty")
	}

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

	results := []searchResult{}
	for _, s := range snaps {
		score, paths := calculateRelevance(queryWords, s, searchFiles)
		if score == 0 {
			continue
		}
		results = append(results, searchResult{
			ID:        s.ID,
			Name:      s.Name,
			Branch:    s.Namespace,
			Timestamp: s.Timestamp.Local().Format("2006-01-02 15:04"),
			Score:     score,
			Tags:      s.Tags,
			Paths:     paths,
		})
	}

	// stable keeps newest first among equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if searchLimit > 0 && len(results) > searchLimit {
		results = results[:searchLimit]
	}

	if searchJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No snapshots match the search query")
		return nil
	}

	fmt.Printf("Found %d matching snapshot(s):\n\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s  %s [score: %d]\n", i+1, shortID(r.ID), r.Name, r.Score)
		fmt.Printf("   Branch:  %s\n", r.Branch)
		fmt.Printf("   Created: %s\n", r.Timestamp)
		if len(r.Tags) > 0 {
			fmt.Printf("   Tags:    %s\n", strings.Join(r.Tags, ", "))
		}
		for _, p := range r.Paths {
			fmt.Printf("   File:    %s\n", p)
		}
		fmt.Println()
	}

	return nil
}

// calculateRelevance scores a snapshot against the query words and returns
// the changed paths that matched
func calculateRelevance(queryWords []string, s *models.Snapshot, withFiles bool) (int, []string) {
	score := 0
	searchableText := strings.ToLower(strings.Join([]string{s.Name, s.Description, s.GitBranch, strings.Join(s.Tags, " ")}, " "))
	name := strings.ToLower(s.Name)

	for _, word := range queryWords {
		score += strings.Count(searchableText, word) * 10

		if strings.Contains(name, word) {
			score += 50
		}
		for _, tag := range s.Tags {
			if strings.Contains(strings.ToLower(tag), word) {
				score += 30
			}
		}
	}

	if !withFiles {
		return score, nil
	}

	var paths []string
	fc := s.FileChanges
	for _, list := range [][]models.FileChange{fc.Added, fc.Modified, fc.Deleted} {
		for _, c := range list {
			lower := strings.ToLower(c.Path)
			for _, word := range queryWords {
				if strings.Contains(lower, word) {
					paths = append(paths, c.Path)
					score += 20
					break
				}
			}
		}
	}
	sort.Strings(paths)
	return score, paths
}
