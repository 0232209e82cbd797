package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the ticket tree roots and local state directories.
// Empty subpaths are derived from BaseDir during normalization.
type Paths struct {
	BaseDir       string `toml:"base_dir"`
	IncomingDir   string `toml:"incoming_dir"`
	FailedDir     string `toml:"failed_dir"`
	ProcessingDir string `toml:"processing_dir"`
	ResolutionDir string `toml:"resolution_dir"`
	CustomersDir  string `toml:"customers_dir"`
	TemplatesDir  string `toml:"templates_dir"`
	StateDir      string `toml:"state_dir"`
	LogDir        string `toml:"log_dir"`
	CacheDir      string `toml:"cache_dir"`
}

// OCR contains configuration for the text-recognition engine.
type OCR struct {
	PdftoppmBinary  string `toml:"pdftoppm_binary"`
	TesseractBinary string `toml:"tesseract_binary"`
	Language        string `toml:"language"`
	TessdataDir     string `toml:"tessdata_dir"`
	DPI             int    `toml:"dpi"`
	PSM             int    `toml:"psm"`
	OEM             int    `toml:"oem"`
	MaxPages        int    `toml:"max_pages"`
	Preprocess      bool   `toml:"preprocess"`
	KeepPages       bool   `toml:"keep_pages"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Vision contains configuration for the multimodal analysis engine.
type Vision struct {
	APIKey                 string `toml:"api_key"`
	Model                  string `toml:"model"`
	SystemPromptPath       string `toml:"system_prompt_path"`
	PollIntervalMillis     int    `toml:"poll_interval_ms"`
	ReadyTimeoutSeconds    int    `toml:"ready_timeout_seconds"`
	ResponseTimeoutSeconds int    `toml:"response_timeout_seconds"`
}

// Intake contains configuration for the per-file intake pipeline.
type Intake struct {
	RemoveOriginal  bool    `toml:"remove_original"`
	ReviewThreshold float64 `toml:"review_threshold"`
}

// Watcher contains configuration for the incoming directory watcher.
type Watcher struct {
	StablePollMillis     int    `toml:"stable_poll_ms"`
	StableTimeoutSeconds int    `toml:"stable_timeout_seconds"`
	WorkerTimeoutSeconds int    `toml:"worker_timeout_seconds"`
	WorkerBinary         string `toml:"worker_binary"`
}

// Archive contains configuration for resolution packaging.
type Archive struct {
	DefaultInvestigator string `toml:"default_investigator"`
	SummaryTemplate     string `toml:"summary_template"`
}

// Daemon contains configuration for the watcher daemon's HTTP surface.
type Daemon struct {
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Intake         bool   `toml:"intake"`
	LowConfidence  bool   `toml:"low_confidence"`
	Failures       bool   `toml:"failures"`
	Archive        bool   `toml:"archive"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ticketdesk.
//
// Configuration sections by subsystem:
//   - Paths: ticket tree (incoming, processing, resolution, customers) and local state
//   - OCR: pdftoppm/tesseract settings and preprocessing toggle
//   - Vision: Gemini credentials, model, and readiness polling budget
//   - Intake: review threshold and original-file handling
//   - Watcher: size-stability polling and worker timeout
//   - Archive: summary template and default investigator
//   - Daemon: optional status API
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	OCR           OCR           `toml:"ocr"`
	Vision        Vision        `toml:"vision"`
	Intake        Intake        `toml:"intake"`
	Watcher       Watcher       `toml:"watcher"`
	Archive       Archive       `toml:"archive"`
	Daemon        Daemon        `toml:"daemon"`
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

	projectPath, err := filepath.Abs("ticketdesk.toml")
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

// EnsureDirectories creates the ticket tree and local state directories.
// The templates directory is left alone; a missing template is handled by the archiver.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.IncomingDir,
		c.Paths.FailedDir,
		c.Paths.ProcessingDir,
		c.Paths.ResolutionDir,
		c.Paths.CustomersDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
		c.Paths.CacheDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the SQLite ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the watcher daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "ticketdeskd.lock")
}

// OCRCacheDir returns the directory holding rendered and preprocessed page images.
func (c *Config) OCRCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "ocr")
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

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "ticketdesk")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/ticketdesk"
	}
	return filepath.Join(home, ".cache", "ticketdesk")
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

// VisionConfigured reports whether the vision engine has credentials.
func (c *Config) VisionConfigured() bool {
	return strings.TrimSpace(c.Vision.APIKey) != ""
}
