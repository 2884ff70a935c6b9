package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateComposite(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSession() error {
	switch c.Session.MediaKind {
	case "video", "image":
	default:
		return fmt.Errorf("session.media_kind must be \"video\" or \"image\", got %q", c.Session.MediaKind)
	}
	if len(c.Session.Variants) < minVariants {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("session.variants must declare at least %d variants; edit %s (create with 'arena config init')", minVariants, defaultPath)
	}
	if len(c.Session.Variants) > maxVariants {
		return fmt.Errorf("session.variants supports at most %d variants, got %d", maxVariants, len(c.Session.Variants))
	}
	seen := make(map[string]struct{}, len(c.Session.Variants))
	for i, v := range c.Session.Variants {
		if v.ID == "" {
			return fmt.Errorf("session.variants[%d].id must be set", i)
		}
		if strings.EqualFold(v.ID, TieWinner) {
			return fmt.Errorf("session.variants[%d].id %q is reserved for tied votes", i, v.ID)
		}
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("session.variants[%d].id %q is declared more than once", i, v.ID)
		}
		seen[v.ID] = struct{}{}
		if !isHexColor(v.Color) {
			return fmt.Errorf("session.variants[%d].color must be #rrggbb, got %q", i, v.Color)
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	switch c.Matching.DuplicatePolicy {
	case "first", "reject":
	default:
		return fmt.Errorf("matching.duplicate_policy must be \"first\" or \"reject\", got %q", c.Matching.DuplicatePolicy)
	}
	if c.Matching.SuggestThreshold < 0 || c.Matching.SuggestThreshold > 1 {
		return errors.New("matching.suggest_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateComposite() error {
	if c.Composite.FPS <= 0 {
		return errors.New("composite.fps must be positive")
	}
	for i, format := range c.Composite.VideoFormats {
		ext, encoder, ok := strings.Cut(format, ":")
		if !ok || strings.TrimSpace(ext) == "" || strings.TrimSpace(encoder) == "" {
			return fmt.Errorf("composite.video_formats[%d] must look like \"ext:encoder\", got %q", i, format)
		}
	}
	switch c.Composite.ImageFormat {
	case "png", "jpeg":
	default:
		return fmt.Errorf("composite.image_format must be \"png\" or \"jpeg\", got %q", c.Composite.ImageFormat)
	}
	if c.Composite.LabelScale < 0 {
		return errors.New("composite.label_scale must be >= 0")
	}
	if c.Composite.TimeoutSeconds < 0 {
		return errors.New("composite.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateExport() error {
	if !strings.HasSuffix(strings.ToLower(c.Export.ReportName), ".xlsx") {
		return fmt.Errorf("export.report_name must end in .xlsx, got %q", c.Export.ReportName)
	}
	if strings.ContainsAny(c.Export.ArtifactSuffix, `/\`) {
		return errors.New("export.artifact_suffix must not contain path separators")
	}
	return nil
}

func isHexColor(value string) bool {
	if len(value) != variantColorHexDigits+1 || value[0] != '#' {
		return false
	}
	for _, r := range value[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
