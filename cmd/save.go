package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pders01/checkpoint/internal/engine"
	"github.com/pders01/checkpoint/internal/git"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/cobra"
)

var (
	saveName          string
	saveDescription   string
	saveTags          []string
	saveTrigger       string
	saveSkipUnchanged bool
)

var saveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Capture the working tree as a new snapshot",
	Long: `Capture the current working tree into the snapshot store.

Only files that are new or changed since the branch's previous snapshot are
stored; identical content is never written twice.

Triggers:
  manual (default), auto-time, auto-git, auto-risky, auto-error

Examples:
  checkpoint save
  checkpoint save "before refactor" --tag important
  checkpoint save --branch experiment -m "trying a new parser"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().StringVar(&saveName, "name", "", "Snapshot name (default: trigger and time)")
	saveCmd.Flags().StringVarP(&saveDescription, "message", "m", "", "Snapshot description")
	saveCmd.Flags().StringSliceVar(&saveTags, "tag", []string{}, "Add metadata tags")
	saveCmd.Flags().StringVar(&saveTrigger, "trigger", "", "Trigger: manual|auto-time|auto-git|auto-risky|auto-error")
	saveCmd.Flags().BoolVar(&saveSkipUnchanged, "skip-unchanged", false, "Do nothing when the tree matches the previous snapshot")
}

func runSave(cmd *cobra.Command, args []string) error {
	name := saveName
	if name == "" && len(args) > 0 {
		name = args[0]
	}

	trigger, err := models.ParseTrigger(saveTrigger)
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}

	branch := resolveBranch()
	gitBranch := ""
	if dir, err := os.Getwd(); err == nil && git.IsGitRepo(dir) {
		gitBranch, _ = git.CurrentBranch(dir)
	}

	snap, err := eng.CreateSnapshot(branch, engine.CreateOptions{
		Name:          name,
		Description:   saveDescription,
		Tags:          saveTags,
		Trigger:       trigger,
		GitBranch:     gitBranch,
		SkipUnchanged: saveSkipUnchanged,
	})
	if errors.Is(err, engine.ErrNoChanges) {
		fmt.Println("No changes since the last snapshot")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	printSaved(snap)
	return nil
}

func printSaved(snap *models.Snapshot) {
	fc := snap.FileChanges
	fmt.Printf("✓ Snapshot %s created: %s\n", snap.ShortID(), snap.Name)
	fmt.Printf("  Branch:  %s\n", snap.Namespace)
	fmt.Printf("  Files:   %d (%s)\n", snap.Stats.FileCount, formatBytes(snap.Stats.TotalSize))
	fmt.Printf("  Changes: +%d ~%d -%d\n", len(fc.Added), len(fc.Modified), len(fc.Deleted))
	if len(snap.Tags) > 0 {
		fmt.Printf("  Tags:    %s\n", strings.Join(snap.Tags, ", "))
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
