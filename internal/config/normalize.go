package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeOCR(); err != nil {
		return err
	}
	if err := c.normalizeVision(); err != nil {
		return err
	}
	if err := c.normalizeArchive(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.BaseDir) == "" || c.Paths.BaseDir == defaultBaseDir {
		if value, ok := os.LookupEnv("TICKETDESK_BASE_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.BaseDir = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir
	}
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}

	derived := []struct {
		key      string
		target   *string
		fallback string
	}{
		{"paths.incoming_dir", &c.Paths.IncomingDir, filepath.Join(c.Paths.BaseDir, defaultIncomingSubdir)},
		{"paths.processing_dir", &c.Paths.ProcessingDir, filepath.Join(c.Paths.BaseDir, defaultProcessingSubdir)},
		{"paths.resolution_dir", &c.Paths.ResolutionDir, filepath.Join(c.Paths.BaseDir, defaultResolutionSubdir)},
		{"paths.customers_dir", &c.Paths.CustomersDir, filepath.Join(c.Paths.BaseDir, defaultCustomersSubdir)},
		{"paths.templates_dir", &c.Paths.TemplatesDir, filepath.Join(c.Paths.BaseDir, defaultTemplatesSubdir)},
	}
	for _, entry := range derived {
		if err := resolveOrDefault(entry.key, entry.target, entry.fallback); err != nil {
			return err
		}
	}
	// The quarantine lives under incoming unless overridden.
	if err := resolveOrDefault("paths.failed_dir", &c.Paths.FailedDir, filepath.Join(c.Paths.IncomingDir, defaultFailedSubdir)); err != nil {
		return err
	}

	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if err := resolveOrDefault("paths.log_dir", &c.Paths.LogDir, filepath.Join(c.Paths.StateDir, defaultLogSubdir)); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func resolveOrDefault(key string, target *string, fallback string) error {
	value := strings.TrimSpace(*target)
	if value == "" {
		value = fallback
	}
	expanded, err := expandPath(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = expanded
	return nil
}

func (c *Config) normalizeOCR() error {
	c.OCR.PdftoppmBinary = strings.TrimSpace(c.OCR.PdftoppmBinary)
	if c.OCR.PdftoppmBinary == "" {
		c.OCR.PdftoppmBinary = defaultPdftoppmBinary
	}
	c.OCR.TesseractBinary = strings.TrimSpace(c.OCR.TesseractBinary)
	if c.OCR.TesseractBinary == "" {
		c.OCR.TesseractBinary = defaultTesseractBinary
	}
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
	if c.OCR.DPI <= 0 {
		c.OCR.DPI = defaultOCRDPI
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = defaultOCRTimeoutSeconds
	}
	if strings.TrimSpace(c.OCR.TessdataDir) != "" {
		var err error
		if c.OCR.TessdataDir, err = expandPath(strings.TrimSpace(c.OCR.TessdataDir)); err != nil {
			return fmt.Errorf("ocr.tessdata_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeVision() error {
	c.Vision.APIKey = strings.TrimSpace(c.Vision.APIKey)
	if c.Vision.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Vision.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Vision.APIKey = strings.TrimSpace(value)
		}
	}
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	if c.Vision.Model == "" {
		c.Vision.Model = defaultVisionModel
	}
	if c.Vision.PollIntervalMillis <= 0 {
		c.Vision.PollIntervalMillis = defaultVisionPollMillis
	}
	if c.Vision.ReadyTimeoutSeconds <= 0 {
		c.Vision.ReadyTimeoutSeconds = defaultVisionReadyTimeout
	}
	if c.Vision.ResponseTimeoutSeconds <= 0 {
		c.Vision.ResponseTimeoutSeconds = defaultVisionResponseTimeout
	}
	prompt := strings.TrimSpace(c.Vision.SystemPromptPath)
	if prompt == "" {
		prompt = filepath.Join(c.Paths.BaseDir, defaultPromptsSubdir, defaultSystemPromptFileName)
	}
	var err error
	if c.Vision.SystemPromptPath, err = expandPath(prompt); err != nil {
		return fmt.Errorf("vision.system_prompt_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeArchive() error {
	c.Archive.DefaultInvestigator = strings.TrimSpace(c.Archive.DefaultInvestigator)
	if c.Archive.DefaultInvestigator == "" {
		c.Archive.DefaultInvestigator = defaultInvestigator
	}
	template := strings.TrimSpace(c.Archive.SummaryTemplate)
	if template == "" {
		template = filepath.Join(c.Paths.TemplatesDir, defaultSummaryTemplateName)
	}
	var err error
	if c.Archive.SummaryTemplate, err = expandPath(template); err != nil {
		return fmt.Errorf("archive.summary_template: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	if c.Watcher.StablePollMillis <= 0 {
		c.Watcher.StablePollMillis = defaultStablePollMillis
	}
	if c.Watcher.StableTimeoutSeconds <= 0 {
		c.Watcher.StableTimeoutSeconds = defaultStableTimeoutSeconds
	}
	if c.Watcher.WorkerTimeoutSeconds <= 0 {
		c.Watcher.WorkerTimeoutSeconds = defaultWorkerTimeoutSeconds
	}
	c.Watcher.WorkerBinary = strings.TrimSpace(c.Watcher.WorkerBinary)
	if c.Watcher.WorkerBinary == "" {
		c.Watcher.WorkerBinary = defaultWorkerBinary
	}
	c.Daemon.APIBind = strings.TrimSpace(c.Daemon.APIBind)
	c.Daemon.APIToken = strings.TrimSpace(c.Daemon.APIToken)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
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
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
