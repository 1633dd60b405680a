package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pders01/checkpoint/internal/config"
	"github.com/pders01/checkpoint/internal/engine"
	"github.com/pders01/checkpoint/internal/git"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Take snapshots automatically",
	Long: `Run in the foreground and take snapshots automatically:

  - every interval (trigger auto-time), skipped when nothing changed
  - whenever the git branch changes (trigger auto-git), into the new
    branch's namespace

With --branch the namespace is pinned and branch changes are only logged.
Stop with Ctrl-C.

Examples:
  checkpoint watch
  checkpoint watch --interval 2m`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Snapshot interval (default: watch.interval)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	interval := watchInterval
	if interval <= 0 {
		interval = config.GetWatchInterval()
	}
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive")
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	dir := eng.ProjectRoot()

	sess := eng.Session(resolveBranch())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var heads <-chan fsnotify.Event
	var watchErrs <-chan error
	headPath := ""
	if git.IsGitRepo(dir) {
		if headPath, err = git.HeadPath(dir); err != nil {
			return err
		}
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer watcher.Close()

		// git replaces HEAD by rename, so watch its directory
		if err := watcher.Add(filepath.Dir(headPath)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", headPath, err)
		}
		heads, watchErrs = watcher.Events, watcher.Errors
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pterm.Info.Printfln("Watching %s on branch %s every %s (Ctrl-C to stop)", dir, sess.Branch(), interval)

	w := &watchState{sess: sess, dir: dir, pinned: branchArg != ""}
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			pterm.Info.Println("Stopped watching")
			return nil

		case <-ticker.C:
			w.snapshot(models.TriggerAutoTime, "")

		case ev, ok := <-heads:
			if !ok {
				heads = nil
				continue
			}
			if filepath.Clean(ev.Name) != headPath || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			w.headChanged()

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			pterm.Warning.Printfln("watcher error: %v", err)
		}
	}
}

// watchState follows the git branch for a running watch
type watchState struct {
	sess   *engine.Session
	dir    string
	pinned bool
}

func (w *watchState) headChanged() {
	current := git.BranchOrDefault(w.dir, config.GetDefaultBranch())
	if current == w.sess.Branch() {
		return
	}
	if w.pinned {
		pterm.Info.Printfln("git branch is now %s; staying on %s", current, w.sess.Branch())
		return
	}

	w.sess.SetBranch(current)
	desc := fmt.Sprintf("switched to %s", current)
	if commit, err := git.CurrentCommit(w.dir); err == nil && len(commit) >= 8 {
		desc = fmt.Sprintf("switched to %s at %s", current, commit[:8])
	}
	w.snapshot(models.TriggerAutoGit, desc)
}

func (w *watchState) snapshot(trigger models.Trigger, desc string) {
	gitBranch := ""
	if git.IsGitRepo(w.dir) {
		gitBranch, _ = git.CurrentBranch(w.dir)
	}

	snap, err := w.sess.CreateSnapshot(engine.CreateOptions{
		Description:   desc,
		Trigger:       trigger,
		GitBranch:     gitBranch,
		SkipUnchanged: trigger == models.TriggerAutoTime,
	})
	if errors.Is(err, engine.ErrNoChanges) {
		return
	}
	if err != nil {
		pterm.Error.Printfln("snapshot failed: %v", err)
		return
	}

	fc := snap.FileChanges
	pterm.Success.Printfln("%s  %s  %s  +%d ~%d -%d", snap.ShortID(), snap.Namespace, trigger, len(fc.Added), len(fc.Modified), len(fc.Deleted))
}
