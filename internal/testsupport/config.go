package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"arena/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and two variants, "a" and "b", each with its own media directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Session.Variants = []config.Variant{
		{ID: "a", Name: "Alpha", Color: "#1f77b4", Dir: filepath.Join(base, "variants", "a")},
		{ID: "b", Name: "Beta", Color: "#ff7f0e", Dir: filepath.Join(base, "variants", "b")},
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	for _, v := range builder.cfg.Session.Variants {
		if v.Dir == "" {
			continue
		}
		if err := os.MkdirAll(v.Dir, 0o755); err != nil {
			t.Fatalf("mkdir variant dir: %v", err)
		}
	}
	return builder.cfg
}

// WithMediaKind sets the session media kind.
func WithMediaKind(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.MediaKind = kind
	}
}

// WithBlind enables blind review.
func WithBlind() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.Blind = true
	}
}

// WithStubbedBinaries writes stub executables and prepends them to PATH.
// Each entry maps a binary name to its shell script body; an empty body
// exits 0.
func WithStubbedBinaries(scripts map[string]string) ConfigOption {
	return func(b *configBuilder) {
		StubBinaries(b.t, filepath.Join(b.baseDir, "bin"), scripts)
	}
}

// StubBinaries writes stub executables into dir and prepends dir to PATH for
// the duration of the test.
func StubBinaries(t testing.TB, dir string, scripts map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	for name, body := range scripts {
		if body == "" {
			body = "exit 0\n"
		}
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
