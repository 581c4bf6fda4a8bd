// Package config loads the engine's tunables from YAML, merging a user-level
// file with a project-level override, and can watch both for edits.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/manifold-labs/manifold/internal/logger"
)

// Config holds every tunable the spec leaves as an engine-level default
// rather than hard-coding. Zero values mean "use the built-in default";
// after Load, Manager.Get returns every field filled with its default at
// merge time, except RNGSeed, whose default is 0.
type Config struct {
	// Thresholds
	Theta                     float64 `yaml:"theta,omitempty"`
	NovelInterferenceThreshold float64 `yaml:"novel_interference_threshold,omitempty"`

	// Kuramoto coupling split; must sum to 1 if both are set.
	CouplingConscious    float64 `yaml:"coupling_conscious,omitempty"`
	CouplingSubconscious float64 `yaml:"coupling_subconscious,omitempty"`

	// Surface/compose caps.
	ConsciousFragmentCap    int `yaml:"conscious_fragment_cap,omitempty"`
	SubconsciousFragmentCap int `yaml:"subconscious_fragment_cap,omitempty"`
	NovelLinkCap            int `yaml:"novel_link_cap,omitempty"`

	// RNG seed for new systems (0 means "pick a fresh one at startup").
	RNGSeed uint64 `yaml:"rng_seed,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
}

// Manager merges a user config with a project config (project wins),
// optionally watching both files and invoking a callback when either
// changes.
type Manager struct {
	mu            sync.RWMutex
	userConfig    *Config
	projectConfig *Config
	merged        *Config

	watcher *fsnotify.Watcher
}

func NewManager() *Manager {
	return &Manager{
		userConfig:    &Config{},
		projectConfig: &Config{},
		merged:        &Config{},
	}
}

// Load reads settings.yaml from userConfigDir and from
// projectDir/.manifold, merges them (project overrides user), and fills
// unset fields with defaults.
func (m *Manager) Load(userConfigDir, projectDir string) error {
	userPath := filepath.Join(userConfigDir, "settings.yaml")
	projectPath := filepath.Join(projectDir, ".manifold", "settings.yaml")

	if err := loadYAML(userPath, m.userConfig); err != nil {
		return err
	}
	if err := loadYAML(projectPath, m.projectConfig); err != nil {
		return err
	}

	m.mu.Lock()
	m.merge()
	m.mu.Unlock()
	return nil
}

func loadYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, out)
}

func (m *Manager) merge() {
	m.merged = &Config{
		Theta:                      firstNonZero(m.projectConfig.Theta, m.userConfig.Theta, 0.5),
		NovelInterferenceThreshold: firstNonZero(m.projectConfig.NovelInterferenceThreshold, m.userConfig.NovelInterferenceThreshold, 0.8),
		CouplingConscious:          firstNonZero(m.projectConfig.CouplingConscious, m.userConfig.CouplingConscious, 0.65),
		CouplingSubconscious:       firstNonZero(m.projectConfig.CouplingSubconscious, m.userConfig.CouplingSubconscious, 0.35),
		ConsciousFragmentCap:       firstNonZeroInt(m.projectConfig.ConsciousFragmentCap, m.userConfig.ConsciousFragmentCap, 3),
		SubconsciousFragmentCap:    firstNonZeroInt(m.projectConfig.SubconsciousFragmentCap, m.userConfig.SubconsciousFragmentCap, 5),
		NovelLinkCap:               firstNonZeroInt(m.projectConfig.NovelLinkCap, m.userConfig.NovelLinkCap, 3),
		RNGSeed:                    firstNonZeroUint(m.projectConfig.RNGSeed, m.userConfig.RNGSeed, 0),
		LogLevel:                   firstNonEmpty(m.projectConfig.LogLevel, m.userConfig.LogLevel, "info"),
	}
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values[:len(values)-1] {
		if v != 0 {
			return v
		}
	}
	return values[len(values)-1]
}

func firstNonZeroInt(values ...int) int {
	for _, v := range values[:len(values)-1] {
		if v != 0 {
			return v
		}
	}
	return values[len(values)-1]
}

func firstNonZeroUint(values ...uint64) uint64 {
	for _, v := range values[:len(values)-1] {
		if v != 0 {
			return v
		}
	}
	return values[len(values)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values[:len(values)-1] {
		if v != "" {
			return v
		}
	}
	return values[len(values)-1]
}

// Get returns the current merged config.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.merged
}

// Watch starts an fsnotify watch on both config paths (whichever exist)
// and calls onChange with the freshly reloaded config whenever either
// file is written. Callers are responsible for calling Stop when done.
func (m *Manager) Watch(userConfigDir, projectDir string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = w

	userPath := filepath.Join(userConfigDir, "settings.yaml")
	projectPath := filepath.Join(projectDir, ".manifold", "settings.yaml")
	for _, dir := range []string{filepath.Dir(userPath), filepath.Dir(projectPath)} {
		if _, err := os.Stat(dir); err == nil {
			if err := w.Add(dir); err != nil {
				logger.Warn("config watch: failed to add directory", "dir", dir, "err", err)
			}
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if event.Name != userPath && event.Name != projectPath {
					continue
				}
				if err := m.Load(userConfigDir, projectDir); err != nil {
					logger.Warn("config reload failed", "err", err)
					continue
				}
				onChange(m.Get())
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "err", err)
			}
		}
	}()
	return nil
}

// Stop closes the underlying fsnotify watcher, if Watch was called.
func (m *Manager) Stop() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Close()
}
