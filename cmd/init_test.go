package cmd

import (
	"os"
	"testing"
)

func TestInitCommand(t *testing.T) {
	setupProject(t)

	if err := runInit(nil, []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	eng := testEngine(t)
	if info, err := os.Stat(eng.StorageDir()); err != nil || !info.IsDir() {
		t.Errorf("storage directory was not created: %v", err)
	}
}

func TestInitKeepsExistingConfig(t *testing.T) {
	setupProject(t)

	existing := "[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(cfgFile, []byte(existing), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if err := runInit(nil, []string{}); err != nil {
		t.Fatalf("init command failed: %v", err)
	}

	content, err := os.ReadFile(cfgFile)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(content) != existing {
		t.Error("existing config was overwritten")
	}
}
