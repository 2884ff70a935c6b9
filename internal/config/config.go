package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// Variant declares one model/version under comparison.
type Variant struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Color string `toml:"color"`
	// Dir is the directory holding this variant's media files.
	Dir string `toml:"dir"`
	// Files lists extra local paths or http(s) URLs for this variant.
	Files []string `toml:"files"`
}

// Session describes the review session. It is immutable once loaded.
type Session struct {
	MediaKind string    `toml:"media_kind"`
	Blind     bool      `toml:"blind"`
	Variants  []Variant `toml:"variants"`
}

// Matching contains configuration for cross-variant file matching.
type Matching struct {
	// DuplicatePolicy decides what happens when a variant holds more than one
	// file with the same base name: "first" keeps the first file in listing
	// order, "reject" drops the base name and reports it as ambiguous.
	DuplicatePolicy  string  `toml:"duplicate_policy"`
	UnicodeNormalize bool    `toml:"unicode_normalize"`
	SuggestThreshold float64 `toml:"suggest_threshold"`
}

// Composite contains configuration for side-by-side rendering.
type Composite struct {
	FPS            int      `toml:"fps"`
	VideoFormats   []string `toml:"video_formats"`
	ImageFormat    string   `toml:"image_format"`
	LabelScale     int      `toml:"label_scale"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Export contains configuration for batch archive export.
type Export struct {
	ArtifactSuffix string `toml:"artifact_suffix"`
	ReportName     string `toml:"report_name"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for arena.
//
// Configuration sections by subsystem:
//   - Paths: scratch, log, and output directories
//   - Session: variants, media kind, blind review
//   - Matching: duplicate handling and near-miss suggestions
//   - Composite: frame rate, encoder preference, label sizing, timeout
//   - Export: archive entry naming
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Session       Session       `toml:"session"`
	Matching      Matching      `toml:"matching"`
	Composite     Composite     `toml:"composite"`
	Export        Export        `toml:"export"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("arena.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the scratch, log, and output directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for video composites.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// CompositeTimeout returns the per-composite deadline, or zero when composites
// may run indefinitely.
func (c *Config) CompositeTimeout() time.Duration {
	if c.Composite.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Composite.TimeoutSeconds) * time.Second
}

// VariantIDs returns the configured variant identifiers in session order.
func (c *Config) VariantIDs() []string {
	ids := make([]string, 0, len(c.Session.Variants))
	for _, v := range c.Session.Variants {
		ids = append(ids, v.ID)
	}
	return ids
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
