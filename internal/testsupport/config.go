package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ticketdesk/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose ticket tree, state, and cache live under a
// unique temp directory. Directories are created before returning.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	tree := filepath.Join(base, "tickets")
	cfgVal.Paths = config.Paths{
		BaseDir:       tree,
		IncomingDir:   filepath.Join(tree, "incoming"),
		FailedDir:     filepath.Join(tree, "incoming", "failed"),
		ProcessingDir: filepath.Join(tree, "processing"),
		ResolutionDir: filepath.Join(tree, "resolution"),
		CustomersDir:  filepath.Join(tree, "customers"),
		TemplatesDir:  filepath.Join(tree, "templates"),
		StateDir:      filepath.Join(base, "state"),
		LogDir:        filepath.Join(base, "state", "logs"),
		CacheDir:      filepath.Join(base, "cache"),
	}
	cfgVal.Vision.SystemPromptPath = filepath.Join(tree, "prompts", "edi-specialist.txt")
	cfgVal.Archive.SummaryTemplate = filepath.Join(tree, "templates", "TICKET_SUMMARY_TEMPLATE.md")
	cfgVal.Daemon.APIBind = "127.0.0.1:0"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithVisionKey sets the vision API key on the test config.
func WithVisionKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Vision.APIKey = key
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, pdftoppm and tesseract are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"pdftoppm", "tesseract"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.BaseDir)
}
