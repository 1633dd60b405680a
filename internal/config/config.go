package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults applied before any config file or environment variable is read
var Defaults = map[string]any{
	"storage.root":            "",
	"storage.project":         "",
	"snapshot.default_branch": "main",
	"snapshot.store_diffs":    true,
	"scan.max_file_size":      int64(1 << 20),
	"scan.matcher":            "partial",
	"scan.extra_ignores":      []string{},
	"retention.days":          30,
	"retention.preserve_tags": []string{"important"},
	"restore.workers":         8,
	"watch.interval":          "10m",
	"log.level":               "warn",
	"log.format":              "colorful",
	"ui.theme":                "dracula",
}

// SetDefaults registers Defaults with viper and wires CHECKPOINT_* env vars
func SetDefaults() {
	viper.SetEnvPrefix("checkpoint")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	for key, value := range Defaults {
		viper.SetDefault(key, value)
	}
}

// Dir returns the directory holding config.toml
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "checkpoint"), nil
}

// GetStorageRoot returns the snapshot root, defaulting to ~/.checkpoint
func GetStorageRoot() string {
	if root := viper.GetString("storage.root"); root != "" {
		return expandHome(root)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".checkpoint"
	}
	return filepath.Join(home, ".checkpoint")
}

// GetProjectName returns the configured project namespace override
func GetProjectName() string {
	return viper.GetString("storage.project")
}

// GetDefaultBranch returns the branch used when none can be detected
func GetDefaultBranch() string {
	return viper.GetString("snapshot.default_branch")
}

// GetStoreDiffs reports whether diff objects are recorded for modified text files
func GetStoreDiffs() bool {
	return viper.GetBool("snapshot.store_diffs")
}

// GetMaxFileSize returns the scan size ceiling in bytes
func GetMaxFileSize() int64 {
	return viper.GetInt64("scan.max_file_size")
}

// GetMatcher returns the ignore matcher implementation name
func GetMatcher() string {
	return viper.GetString("scan.matcher")
}

// GetExtraIgnores returns additional ignore patterns from the config file
func GetExtraIgnores() []string {
	return viper.GetStringSlice("scan.extra_ignores")
}

// GetRetentionDays returns the retention period in days
func GetRetentionDays() int {
	return viper.GetInt("retention.days")
}

// GetPreserveTags returns tags that should be preserved indefinitely
func GetPreserveTags() []string {
	return viper.GetStringSlice("retention.preserve_tags")
}

// GetRestoreWorkers returns the restore worker pool size
func GetRestoreWorkers() int {
	return viper.GetInt("restore.workers")
}

// GetWatchInterval returns the auto-time snapshot interval
func GetWatchInterval() time.Duration {
	return viper.GetDuration("watch.interval")
}

// GetLogLevel returns the engine log level
func GetLogLevel() string {
	return viper.GetString("log.level")
}

// GetLogFormat returns the engine log format
func GetLogFormat() string {
	return viper.GetString("log.format")
}

// GetTheme returns the chroma style used for highlighted diffs
func GetTheme() string {
	return viper.GetString("ui.theme")
}

// ShouldPreserve checks if a snapshot with given tags should be preserved
func ShouldPreserve(tags []string) bool {
	preserveTags := GetPreserveTags()
	for _, tag := range tags {
		for _, preserveTag := range preserveTags {
			if tag == preserveTag {
				return true
			}
		}
	}
	return false
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
