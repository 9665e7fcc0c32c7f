// Package policy holds configuration and the project-scoped state-directory
// layout used by every other component.
package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultIgnore covers the usual build-output and VCS noise. Config ignore
// patterns are appended to these.
var defaultIgnore = []string{".git", "node_modules", ".loomwork", "*.log", "*.tmp", "*.swp"}

// ArchiveConfig controls the FTS5-based document archive.
type ArchiveConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config holds loomwork configuration, loaded from YAML.
type Config struct {
	ProjectRoot  string   `yaml:"project_root"`
	StateDir     string   `yaml:"state_dir"` // default <project_root>/.loomwork
	LogFile      string   `yaml:"log_file"`
	EnabledTools []string `yaml:"enabled_tools"`

	IgnorePatterns []string `yaml:"ignore_patterns"`
	DebounceMs     int      `yaml:"debounce_ms"` // watcher quiet period (default 500)

	HTTPPort int            `yaml:"http_port"`
	Archive  *ArchiveConfig `yaml:"archive"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		EnabledTools: []string{"*"},
		DebounceMs:   500,
	}
}

// LoadConfig loads configuration from a YAML file on top of defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Policy resolves configured values into concrete paths and settings.
type Policy struct {
	config *Config
	mu     sync.RWMutex // protects projectRoot for dynamic updates
}

// New creates a policy over cfg.
func New(cfg *Config) *Policy {
	return &Policy{config: cfg}
}

// ProjectRoot returns the observed project root.
func (p *Policy) ProjectRoot() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.ProjectRoot
}

// SetProjectRoot changes the project root at runtime, following the
// controlling client into a different project directory.
func (p *Policy) SetProjectRoot(root string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config.ProjectRoot = root
}

// StateDir returns the project-scoped state directory. If unset it defaults
// to <project_root>/.loomwork.
func (p *Policy) StateDir() string {
	p.mu.RLock()
	sd := p.config.StateDir
	root := p.config.ProjectRoot
	p.mu.RUnlock()

	if sd == "" {
		return filepath.Join(root, ".loomwork")
	}
	if filepath.IsAbs(sd) {
		return sd
	}
	return filepath.Join(root, sd)
}

// CheckpointDir returns the directory holding snapshot files.
func (p *Policy) CheckpointDir() string {
	return filepath.Join(p.StateDir(), "checkpoints")
}

// EventLogDir returns the directory holding per-session journals.
func (p *Policy) EventLogDir() string {
	return filepath.Join(p.StateDir(), "events")
}

// ArchiveDBPath returns the path for the document-archive database.
func (p *Policy) ArchiveDBPath() string {
	return filepath.Join(p.StateDir(), "archive.db")
}

// LogFile returns the configured log file path. If unset, defaults to a log
// inside the state directory. "none" or "off" disables file logging.
func (p *Policy) LogFile() string {
	p.mu.RLock()
	lf := p.config.LogFile
	p.mu.RUnlock()

	if lf == "" {
		return filepath.Join(p.StateDir(), "loomwork.log")
	}
	return lf
}

// IgnorePatterns returns the watcher ignore patterns (defaults plus config).
func (p *Policy) IgnorePatterns() []string {
	out := append([]string(nil), defaultIgnore...)
	return append(out, p.config.IgnorePatterns...)
}

// DebounceInterval returns the watcher quiet period.
func (p *Policy) DebounceInterval() time.Duration {
	if p.config.DebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(p.config.DebounceMs) * time.Millisecond
}

// IsToolEnabled checks if a tool is enabled.
func (p *Policy) IsToolEnabled(name string) bool {
	for _, t := range p.config.EnabledTools {
		if t == "*" || t == name {
			return true
		}
	}
	return false
}

// ArchiveEnabled returns true when the document archive is configured on.
func (p *Policy) ArchiveEnabled() bool {
	return p.config.Archive != nil && p.config.Archive.Enabled
}

// HTTPPort returns the dashboard HTTP port (0 = auto-assign).
func (p *Policy) HTTPPort() int {
	return p.config.HTTPPort
}

// ValidatePath checks that a path lies within the project root and returns
// its absolute form.
func (p *Policy) ValidatePath(path string) (string, error) {
	p.mu.RLock()
	root := p.config.ProjectRoot
	p.mu.RUnlock()

	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	relPath, err := filepath.Rel(root, absPath)
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("path %s is outside project root", path)
	}
	return absPath, nil
}
