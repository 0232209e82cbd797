package config

const (
	defaultConfigPath             = "~/.config/ticketdesk/config.toml"
	defaultBaseDir                = "~/Documents/tickets"
	defaultStateDir               = "~/.local/share/ticketdesk"
	defaultPdftoppmBinary         = "pdftoppm"
	defaultTesseractBinary        = "tesseract"
	defaultOCRLanguage            = "eng"
	defaultOCRDPI                 = 300
	defaultOCRTimeoutSeconds      = 90
	defaultVisionModel            = "gemini-2.5-pro"
	defaultVisionPollMillis       = 1000
	defaultVisionReadyTimeout     = 120
	defaultVisionResponseTimeout  = 300
	defaultReviewThreshold        = 0.70
	defaultStablePollMillis       = 500
	defaultStableTimeoutSeconds   = 10
	defaultWorkerTimeoutSeconds   = 120
	defaultWorkerBinary           = "ticketdesk"
	defaultInvestigator           = "EDI Support Analyst"
	defaultSummaryTemplateName    = "TICKET_SUMMARY_TEMPLATE.md"
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	defaultIncomingSubdir         = "incoming"
	defaultFailedSubdir           = "failed"
	defaultProcessingSubdir       = "processing"
	defaultResolutionSubdir       = "resolution"
	defaultCustomersSubdir        = "customers"
	defaultTemplatesSubdir        = "templates"
	defaultLogSubdir              = "logs"
	defaultSystemPromptFileName   = "edi-specialist.txt"
	defaultPromptsSubdir          = "prompts"
	defaultDaemonAPIBind          = ""
	defaultNotifyLowConfidence    = true
	defaultNotifyIntakeCompletion = true
)

// Default returns a Config populated with repository defaults. Derived paths
// (incoming, processing, and so on) stay empty until normalization resolves
// them against the base directory.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir:  defaultBaseDir,
			StateDir: defaultStateDir,
			CacheDir: defaultCacheDir(),
		},
		OCR: OCR{
			PdftoppmBinary:  defaultPdftoppmBinary,
			TesseractBinary: defaultTesseractBinary,
			Language:        defaultOCRLanguage,
			DPI:             defaultOCRDPI,
			Preprocess:      true,
			TimeoutSeconds:  defaultOCRTimeoutSeconds,
		},
		Vision: Vision{
			Model:                  defaultVisionModel,
			PollIntervalMillis:     defaultVisionPollMillis,
			ReadyTimeoutSeconds:    defaultVisionReadyTimeout,
			ResponseTimeoutSeconds: defaultVisionResponseTimeout,
		},
		Intake: Intake{
			ReviewThreshold: defaultReviewThreshold,
		},
		Watcher: Watcher{
			StablePollMillis:     defaultStablePollMillis,
			StableTimeoutSeconds: defaultStableTimeoutSeconds,
			WorkerTimeoutSeconds: defaultWorkerTimeoutSeconds,
			WorkerBinary:         defaultWorkerBinary,
		},
		Archive: Archive{
			DefaultInvestigator: defaultInvestigator,
		},
		Daemon: Daemon{
			APIBind: defaultDaemonAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Intake:         defaultNotifyIntakeCompletion,
			LowConfidence:  defaultNotifyLowConfidence,
			Failures:       true,
			Archive:        true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
