package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDataDirXDGOverride(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/sos-bot" {
		t.Errorf("expected /custom/data/sos-bot, got %s", got)
	}
}

func TestDefaultDataDirCrossPlatform(t *testing.T) {
	result := DefaultDataDir()
	if result == "" {
		t.Fatal("DefaultDataDir should not return empty string")
	}
	if !filepath.IsAbs(result) && !strings.HasPrefix(result, "./") {
		t.Errorf("expected absolute path or ./ prefix, got %s", result)
	}
}

func TestDefaultDataDirConsistency(t *testing.T) {
	if a, b := DefaultDataDir(), DefaultDataDir(); a != b {
		t.Errorf("DefaultDataDir should be consistent, got %s and %s", a, b)
	}
}

func TestIsDir(t *testing.T) {
	if !isDir(".") {
		t.Error("expected . to be a directory")
	}
	if isDir("/non/existent/path/that/does/not/exist") {
		t.Error("expected missing path to report false")
	}
}
