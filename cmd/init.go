package cmd

import (
	"fmt"
	"os"

	"github.com/pders01/checkpoint/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default config and the project's snapshot store",
	Long: `Write a default config file and create the storage directory for the
current project.

This command:
  - Creates ~/.config/checkpoint/config.toml if it doesn't exist
  - Creates <storage.root>/<project>/ for the working directory

An existing config file is never overwritten.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	created, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("✓ Created default config: %s\n", path)
	} else {
		fmt.Printf("Config already exists: %s\n", path)
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(eng.StorageDir(), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	fmt.Printf("✓ Snapshot store: %s\n", eng.StorageDir())
	fmt.Println("\n✓ checkpoint initialized successfully!")
	fmt.Println("  You can now use: checkpoint save")

	return nil
}
