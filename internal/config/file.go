package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// File mirrors config.toml. It is only used to write the default file;
// reads go through viper.
type File struct {
	Storage   StorageSection   `toml:"storage"`
	Snapshot  SnapshotSection  `toml:"snapshot"`
	Scan      ScanSection      `toml:"scan"`
	Retention RetentionSection `toml:"retention"`
	Restore   RestoreSection   `toml:"restore"`
	Watch     WatchSection     `toml:"watch"`
	Log       LogSection       `toml:"log"`
	UI        UISection        `toml:"ui"`
}

type StorageSection struct {
	Root    string `toml:"root"`
	Project string `toml:"project"`
}

type SnapshotSection struct {
	DefaultBranch string `toml:"default_branch"`
	StoreDiffs    bool   `toml:"store_diffs"`
}

type ScanSection struct {
	MaxFileSize  int64    `toml:"max_file_size"`
	Matcher      string   `toml:"matcher"`
	ExtraIgnores []string `toml:"extra_ignores"`
}

type RetentionSection struct {
	Days         int      `toml:"days"`
	PreserveTags []string `toml:"preserve_tags"`
}

type RestoreSection struct {
	Workers int `toml:"workers"`
}

type WatchSection struct {
	Interval string `toml:"interval"`
}

type LogSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type UISection struct {
	Theme string `toml:"theme"`
}

// DefaultFile returns the config written by `checkpoint init`
func DefaultFile() File {
	return File{
		Storage:   StorageSection{Root: "~/.checkpoint"},
		Snapshot:  SnapshotSection{DefaultBranch: "main", StoreDiffs: true},
		Scan:      ScanSection{MaxFileSize: 1 << 20, Matcher: "partial", ExtraIgnores: []string{}},
		Retention: RetentionSection{Days: 30, PreserveTags: []string{"important"}},
		Restore:   RestoreSection{Workers: 8},
		Watch:     WatchSection{Interval: "10m"},
		Log:       LogSection{Level: "warn", Format: "colorful"},
		UI:        UISection{Theme: "dracula"},
	}
}

// WriteDefault writes the default config to path unless it already exists.
// It reports whether a file was created.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(DefaultFile()); err != nil {
		return false, fmt.Errorf("failed to encode config file: %w", err)
	}
	return true, nil
}
