package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		return errors.New("paths.base_dir must be set")
	}
	if c.Paths.IncomingDir == c.Paths.ProcessingDir {
		return errors.New("paths.incoming_dir and paths.processing_dir must differ")
	}
	if c.Paths.FailedDir == c.Paths.IncomingDir {
		return errors.New("paths.failed_dir must not be the incoming directory itself")
	}
	return nil
}

func (c *Config) validateOCR() error {
	if c.OCR.DPI < 72 || c.OCR.DPI > 1200 {
		return fmt.Errorf("ocr.dpi must be between 72 and 1200, got %d", c.OCR.DPI)
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return errors.New("ocr.psm must be between 0 and 13 (0 leaves the tesseract default)")
	}
	if c.OCR.OEM < 0 || c.OCR.OEM > 3 {
		return errors.New("ocr.oem must be between 0 and 3 (0 leaves the tesseract default)")
	}
	if c.OCR.MaxPages < 0 {
		return errors.New("ocr.max_pages must be >= 0")
	}
	return nil
}

func (c *Config) validateTimings() error {
	return ensurePositiveMap(map[string]int{
		"ocr.timeout_seconds":             c.OCR.TimeoutSeconds,
		"vision.poll_interval_ms":         c.Vision.PollIntervalMillis,
		"vision.ready_timeout_seconds":    c.Vision.ReadyTimeoutSeconds,
		"vision.response_timeout_seconds": c.Vision.ResponseTimeoutSeconds,
		"watcher.stable_poll_ms":          c.Watcher.StablePollMillis,
		"watcher.stable_timeout_seconds":  c.Watcher.StableTimeoutSeconds,
		"watcher.worker_timeout_seconds":  c.Watcher.WorkerTimeoutSeconds,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateIntake() error {
	if c.Intake.ReviewThreshold < 0 || c.Intake.ReviewThreshold > 1 {
		return errors.New("intake.review_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
