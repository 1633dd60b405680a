package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alpkeskin/gotoon"
	"github.com/pders01/checkpoint/internal/config"
	"github.com/pders01/checkpoint/internal/engine"
	"github.com/spf13/cobra"
)

var (
	diffJSON    bool
	diffToon    bool
	diffPatch   bool
	diffNoColor bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <from-id> <to-id>",
	Short: "Compare two snapshots",
	Long: `Compare the working-tree states recorded by two snapshots of one branch
and list added, modified and deleted files.

Ids may be unique prefixes. With --patch a unified diff is printed for every
modified text file.

Examples:
  checkpoint diff 3f2a9c1e 77b0d412
  checkpoint diff 3f2a 77b0 --patch
  checkpoint diff 3f2a 77b0 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffToon, "toon", false, "Output in LLM-friendly toon format")
	diffCmd.Flags().BoolVarP(&diffPatch, "patch", "p", false, "Show unified diffs of modified text files")
	diffCmd.Flags().BoolVar(&diffNoColor, "no-color", false, "Disable syntax highlighting of patches")
}

type snapshotDiff struct {
	From           string   `json:"from"`
	To             string   `json:"to"`
	Branch         string   `json:"branch"`
	TimeDifference string   `json:"time_difference"`
	Added          []string `json:"added"`
	Modified       []string `json:"modified"`
	Deleted        []string `json:"deleted"`
	Unchanged      int      `json:"unchanged"`
	TagsAdded      []string `json:"tags_added"`
	TagsRemoved    []string `json:"tags_removed"`
	Patches        []string `json:"patches,omitempty"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	branch := resolveBranch()
	from, err := eng.FindSnapshot(branch, args[0])
	if err != nil {
		return err
	}
	to, err := eng.FindSnapshot(branch, args[1])
	if err != nil {
		return err
	}

	cmp, err := eng.Compare(branch, from.ID, to.ID)
	if err != nil {
		return fmt.Errorf("failed to compare snapshots: %w", err)
	}

	diff := summarize(branch, cmp)
	if diffPatch {
		for _, d := range cmp.Modified {
			patch, err := eng.Patch(branch, d)
			if err != nil {
				diff.Patches = append(diff.Patches, fmt.Sprintf("# %v\n", err))
				continue
			}
			diff.Patches = append(diff.Patches, patch)
		}
	}

	if diffJSON {
		output, err := json.MarshalIndent(diff, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if diffToon {
		output, err := gotoon.Encode(diff)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	fmt.Println("Snapshot Comparison")
	fmt.Println("━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("From:   %s  %s\n", cmp.From.ShortID(), cmp.From.Name)
	fmt.Printf("To:     %s  %s\n", cmp.To.ShortID(), cmp.To.Name)
	fmt.Printf("Branch: %s\n", diff.Branch)
	fmt.Printf("Time Difference: %s\n\n", diff.TimeDifference)

	printPaths("Added", "+", diff.Added)
	printPaths("Modified", "~", diff.Modified)
	printPaths("Deleted", "-", diff.Deleted)
	fmt.Printf("Unchanged: %d file(s)\n", diff.Unchanged)

	if len(diff.TagsAdded) > 0 || len(diff.TagsRemoved) > 0 {
		fmt.Println()
		if len(diff.TagsAdded) > 0 {
			fmt.Printf("Tags added:   %s\n", strings.Join(diff.TagsAdded, ", "))
		}
		if len(diff.TagsRemoved) > 0 {
			fmt.Printf("Tags removed: %s\n", strings.Join(diff.TagsRemoved, ", "))
		}
	}

	for _, patch := range diff.Patches {
		fmt.Println()
		if err := printPatch(patch); err != nil {
			return err
		}
	}

	return nil
}

// summarize flattens a comparison into its printable form
func summarize(branch string, cmp *engine.Comparison) *snapshotDiff {
	diff := &snapshotDiff{
		From:      cmp.From.ID,
		To:        cmp.To.ID,
		Branch:    branch,
		Added:     []string{},
		Modified:  []string{},
		Deleted:   []string{},
		Unchanged: cmp.Unchanged,
	}

	for _, fc := range cmp.Added {
		diff.Added = append(diff.Added, fc.Path)
	}
	for _, d := range cmp.Modified {
		diff.Modified = append(diff.Modified, d.Path)
	}
	for _, fc := range cmp.Deleted {
		diff.Deleted = append(diff.Deleted, fc.Path)
	}

	delta := cmp.To.Timestamp.Sub(cmp.From.Timestamp)
	if delta < 0 {
		diff.TimeDifference = fmt.Sprintf("%s (second snapshot is older)", formatAge(-delta))
	} else {
		diff.TimeDifference = fmt.Sprintf("%s (second snapshot is newer)", formatAge(delta))
	}

	for _, tag := range cmp.To.Tags {
		if !cmp.From.HasTag(tag) {
			diff.TagsAdded = append(diff.TagsAdded, tag)
		}
	}
	for _, tag := range cmp.From.Tags {
		if !cmp.To.HasTag(tag) {
			diff.TagsRemoved = append(diff.TagsRemoved, tag)
		}
	}

	return diff
}

func printPaths(label, mark string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Printf("%s (%d):\n", label, len(paths))
	for _, p := range paths {
		fmt.Printf("  %s %s\n", mark, p)
	}
	fmt.Println()
}

func printPatch(patch string) error {
	if diffNoColor {
		fmt.Print(patch)
		return nil
	}
	if err := quick.Highlight(os.Stdout, patch, "diff", "terminal256", config.GetTheme()); err != nil {
		return fmt.Errorf("failed to highlight patch: %w", err)
	}
	return nil
}

// formatAge renders durations below a day in hours and minutes
func formatAge(d time.Duration) string {
	if d < 24*time.Hour {
		return d.Round(time.Minute).String()
	}
	return formatDuration(d)
}
