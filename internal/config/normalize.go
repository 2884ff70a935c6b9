package config

import (
	"fmt"
	"os"
	"strings"

	"arena/internal/media"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeComposite()
	c.normalizeExport()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSession() error {
	c.Session.MediaKind = strings.ToLower(strings.TrimSpace(c.Session.MediaKind))
	if c.Session.MediaKind == "" {
		c.Session.MediaKind = defaultMediaKind
	}
	for i := range c.Session.Variants {
		v := &c.Session.Variants[i]
		v.ID = strings.TrimSpace(v.ID)
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" {
			v.Name = v.ID
		}
		v.Color = strings.ToLower(strings.TrimSpace(v.Color))
		if v.Color == "" {
			v.Color = defaultVariantColorFallback
		}
		if strings.TrimSpace(v.Dir) != "" {
			dir, err := expandPath(strings.TrimSpace(v.Dir))
			if err != nil {
				return fmt.Errorf("session.variants[%d].dir: %w", i, err)
			}
			v.Dir = dir
		}
		files := make([]string, 0, len(v.Files))
		for _, name := range v.Files {
			name = strings.TrimSpace(name)
			switch {
			case name == "":
				continue
			case media.IsURL(name):
			default:
				expanded, err := expandPath(name)
				if err != nil {
					return fmt.Errorf("session.variants[%d].files: %w", i, err)
				}
				name = expanded
			}
			files = append(files, name)
		}
		v.Files = files
	}
	return nil
}

func (c *Config) normalizeMatching() {
	c.Matching.DuplicatePolicy = strings.ToLower(strings.TrimSpace(c.Matching.DuplicatePolicy))
	if c.Matching.DuplicatePolicy == "" {
		c.Matching.DuplicatePolicy = defaultDuplicatePolicy
	}
}

func (c *Config) normalizeComposite() {
	if c.Composite.FPS == 0 {
		c.Composite.FPS = defaultCompositeFPS
	}
	formats := make([]string, 0, len(c.Composite.VideoFormats))
	seen := make(map[string]struct{}, len(c.Composite.VideoFormats))
	for _, format := range c.Composite.VideoFormats {
		normalized := strings.ToLower(strings.TrimSpace(format))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		formats = append(formats, normalized)
	}
	if len(formats) == 0 {
		formats = append(formats, defaultVideoFormats...)
	}
	c.Composite.VideoFormats = formats
	c.Composite.ImageFormat = strings.ToLower(strings.TrimSpace(c.Composite.ImageFormat))
	switch c.Composite.ImageFormat {
	case "":
		c.Composite.ImageFormat = defaultImageFormat
	case "jpg":
		c.Composite.ImageFormat = "jpeg"
	}
}

func (c *Config) normalizeExport() {
	c.Export.ArtifactSuffix = strings.TrimSpace(c.Export.ArtifactSuffix)
	c.Export.ReportName = strings.TrimSpace(c.Export.ReportName)
	if c.Export.ReportName == "" {
		c.Export.ReportName = defaultReportName
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("ARENA_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
