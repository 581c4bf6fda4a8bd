package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()
	if err := m.Load(dir, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Theta != 0.5 {
		t.Fatalf("Theta = %f, want default 0.5", cfg.Theta)
	}
	if cfg.ConsciousFragmentCap != 3 {
		t.Fatalf("ConsciousFragmentCap = %d, want default 3", cfg.ConsciousFragmentCap)
	}
}

func TestProjectOverridesUser(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeYAML(t, filepath.Join(userDir, "settings.yaml"), "theta: 0.4\n")
	projectConfigDir := filepath.Join(projectDir, ".manifold")
	if err := os.MkdirAll(projectConfigDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	writeYAML(t, filepath.Join(projectConfigDir, "settings.yaml"), "theta: 0.6\n")

	m := NewManager()
	if err := m.Load(userDir, projectDir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get().Theta; got != 0.6 {
		t.Fatalf("Theta = %f, want project override 0.6", got)
	}
}

func TestUserUsedWhenProjectUnset(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()
	writeYAML(t, filepath.Join(userDir, "settings.yaml"), "novel_interference_threshold: 0.75\n")

	m := NewManager()
	if err := m.Load(userDir, projectDir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get().NovelInterferenceThreshold; got != 0.75 {
		t.Fatalf("NovelInterferenceThreshold = %f, want 0.75", got)
	}
}

func writeYAML(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}
