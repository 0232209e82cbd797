// Package vision analyzes audio and video tickets with a remote multimodal
// model. Each extraction is a single attempt: upload, wait for the file to
// become active, stream one response, delete the upload.
package vision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"ticketdesk/internal/confidence"
	"ticketdesk/internal/config"
	"ticketdesk/internal/extraction"
	"ticketdesk/internal/logging"
	"ticketdesk/internal/services"
)

// Options configures the vision-analysis engine.
type Options struct {
	APIKey           string
	Model            string
	SystemPromptPath string
	PollInterval     time.Duration
	ReadyTimeout     time.Duration
	ResponseTimeout  time.Duration
}

// OptionsFromConfig maps the [vision] section onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIKey:           cfg.Vision.APIKey,
		Model:            cfg.Vision.Model,
		SystemPromptPath: cfg.Vision.SystemPromptPath,
		PollInterval:     time.Duration(cfg.Vision.PollIntervalMillis) * time.Millisecond,
		ReadyTimeout:     time.Duration(cfg.Vision.ReadyTimeoutSeconds) * time.Second,
		ResponseTimeout:  time.Duration(cfg.Vision.ResponseTimeoutSeconds) * time.Second,
	}
}

// Engine implements extraction.Engine over a Session.
type Engine struct {
	opts   Options
	dial   Dialer
	logger *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDialer replaces the session factory, primarily for tests.
func WithDialer(d Dialer) Option {
	return func(e *Engine) {
		if d != nil {
			e.dial = d
		}
	}
}

// New constructs a vision engine.
func New(opts Options, logger *slog.Logger, options ...Option) *Engine {
	if opts.Model == "" {
		opts.Model = "gemini-2.5-pro"
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Minute
	}
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = 5 * time.Minute
	}
	e := &Engine{opts: opts, dial: DialGemini, logger: logging.NewComponentLogger(logger, "vision")}
	for _, option := range options {
		option(e)
	}
	return e
}

// Method reports the engine kind.
func (e *Engine) Method() extraction.Method {
	return extraction.MethodVisionAnalysis
}

// Extract uploads path, waits until the backend accepts it, and streams the
// ticket analysis. An expired response budget keeps whatever text arrived.
func (e *Engine) Extract(ctx context.Context, path string) extraction.Result {
	start := time.Now()
	logger := logging.WithContext(ctx, e.logger)
	method := e.Method()

	if strings.TrimSpace(e.opts.APIKey) == "" {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "vision", "configure",
			"no API key configured (set vision.api_key or GEMINI_API_KEY)", nil))
	}
	if _, err := os.Stat(path); err != nil {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "vision", "open", "source unreadable", err))
	}

	session, err := e.dial(ctx, e.opts.APIKey)
	if err != nil {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "vision", "connect", "", err))
	}
	defer session.Close()

	file, err := session.Upload(ctx, path, MIMEType(path))
	if err != nil {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "vision", "upload", "", err))
	}
	defer e.deleteUpload(session, file, logger)
	logger.Info("file uploaded", logging.String("remote_name", file.Name), logging.String("mime_type", file.MIMEType))

	if err := e.waitActive(ctx, session, &file); err != nil {
		return extraction.Failed(method, err)
	}

	text, partial, err := e.stream(ctx, session, file, LoadSystemPrompt(e.opts.SystemPromptPath))
	if err != nil {
		return extraction.Failed(method, err)
	}
	if partial {
		logging.WarnWithContext(logger, "response budget expired; keeping partial analysis", "vision_partial_response",
			logging.Int("characters", len(text)),
			logging.Duration("budget", e.opts.ResponseTimeout),
			logging.String(logging.FieldImpact, "metadata may be incomplete"),
			logging.String(logging.FieldErrorHint, "raise vision.response_timeout_seconds for long recordings"),
		)
	}

	result := extraction.Result{
		Success:     true,
		Method:      method,
		RawResponse: text,
		Confidence:  confidence.Heuristic(text),
		Duration:    time.Since(start),
		Partial:     partial,
	}
	logger.Info("vision analysis complete",
		logging.Int("characters", len(text)),
		logging.Confidence(result.Confidence),
		logging.Bool("partial", partial),
		logging.Duration("duration", result.Duration),
	)
	return result
}

// waitActive polls the upload state until ACTIVE, FAILED, the ready timeout,
// or ctx cancellation.
func (e *Engine) waitActive(ctx context.Context, session Session, file *RemoteFile) error {
	if file.State == FileStateActive {
		return nil
	}
	if file.State == FileStateFailed {
		return services.Wrap(services.ErrEngineFailure, "vision", "wait", "backend rejected the upload", nil)
	}
	deadline := time.NewTimer(e.opts.ReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return services.Wrap(services.ErrEngineFailure, "vision", "wait", "cancelled", ctx.Err())
		case <-deadline.C:
			return services.Wrap(services.ErrEngineFailure, "vision", "wait",
				"file not ready after "+e.opts.ReadyTimeout.String(), services.ErrTimeout)
		case <-ticker.C:
			state, err := session.State(ctx, file.Name)
			if err != nil {
				return services.Wrap(services.ErrEngineFailure, "vision", "wait", "state lookup failed", err)
			}
			file.State = state
			switch state {
			case FileStateActive:
				return nil
			case FileStateFailed:
				return services.Wrap(services.ErrEngineFailure, "vision", "wait", "backend rejected the upload", nil)
			}
		}
	}
}

// stream reads the response until completion or until the response budget
// expires. partial is true when the budget cut the stream short but some text
// had arrived.
func (e *Engine) stream(ctx context.Context, session Session, file RemoteFile, system string) (string, bool, error) {
	budgetCtx, cancel := context.WithTimeout(ctx, e.opts.ResponseTimeout)
	defer cancel()

	chunks, err := session.Stream(budgetCtx, e.opts.Model, file, system, TicketQuery)
	if err != nil {
		return "", false, services.Wrap(services.ErrEngineFailure, "vision", "generate", "", err)
	}

	var b strings.Builder
	for {
		chunk, err := chunks.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if budgetCtx.Err() != nil && ctx.Err() == nil {
				if strings.TrimSpace(b.String()) == "" {
					return "", false, services.Wrap(services.ErrEngineFailure, "vision", "generate",
						"no response within "+e.opts.ResponseTimeout.String(), services.ErrTimeout)
				}
				return b.String(), true, nil
			}
			return "", false, services.Wrap(services.ErrEngineFailure, "vision", "generate", "", err)
		}
		b.WriteString(chunk)
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", false, services.Wrap(services.ErrEngineFailure, "vision", "generate", "empty response", nil)
	}
	return text, false, nil
}

func (e *Engine) deleteUpload(session Session, file RemoteFile, logger *slog.Logger) {
	if file.Name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := session.Delete(ctx, file.Name); err != nil {
		logger.Debug("uploaded file cleanup failed", logging.String("remote_name", file.Name), logging.Error(err))
	}
}
