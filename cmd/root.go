package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pders01/checkpoint/internal/config"
	"github.com/pders01/checkpoint/internal/engine"
	"github.com/pders01/checkpoint/internal/git"
	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	branchArg string
	logger    *pterm.Logger
)

var rootCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Local, content-addressed snapshots of a working tree",
	Long: `checkpoint captures the full working-tree state of a project into a local,
deduplicated snapshot store, one namespace per branch.

Snapshots can be listed, compared, restored, exported and pruned. The store is
a side channel to version control, not a replacement for it.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/checkpoint/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace|debug|info|warn|error|off")
	rootCmd.PersistentFlags().StringVarP(&branchArg, "branch", "b", "", "snapshot branch (default: current git branch)")
}

func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	if logLevel != "" {
		viper.Set("log.level", logLevel)
	}

	readErr := viper.ReadInConfig()
	logger = logging.New(config.GetLogLevel(), config.GetLogFormat())
	if readErr == nil {
		logger.Debug("using config file", logger.Args("path", viper.ConfigFileUsed()))
	}
}

// openEngine builds an engine for the working directory from the config
func openEngine() (*engine.Engine, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	return engine.New(engine.Options{
		ProjectRoot:    root,
		StorageRoot:    config.GetStorageRoot(),
		Project:        config.GetProjectName(),
		DefaultBranch:  config.GetDefaultBranch(),
		StoreDiffs:     config.GetStoreDiffs(),
		MaxFileSize:    config.GetMaxFileSize(),
		MatcherKind:    config.GetMatcher(),
		ExtraPatterns:  config.GetExtraIgnores(),
		RestoreWorkers: config.GetRestoreWorkers(),
		PreserveTags:   config.GetPreserveTags(),
		Logger:         logger,
	})
}

// resolveBranch returns --branch, the current git branch, or the default
func resolveBranch() string {
	if branchArg != "" {
		return branchArg
	}
	dir, err := os.Getwd()
	if err != nil {
		return config.GetDefaultBranch()
	}
	return git.BranchOrDefault(dir, config.GetDefaultBranch())
}

// configPath returns the config file init writes to
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
