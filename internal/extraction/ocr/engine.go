package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"ticketdesk/internal/config"
	"ticketdesk/internal/extraction"
	"ticketdesk/internal/logging"
	"ticketdesk/internal/services"
)

// Options configures the text-recognition engine.
type Options struct {
	Pdftoppm    string
	Tesseract   string
	Language    string
	TessdataDir string
	DPI         int
	PSM         int
	OEM         int
	MaxPages    int
	Preprocess  bool
	KeepPages   bool
	Timeout     time.Duration
}

// OptionsFromConfig maps the [ocr] section onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Pdftoppm:    cfg.OCR.PdftoppmBinary,
		Tesseract:   cfg.OCR.TesseractBinary,
		Language:    cfg.OCR.Language,
		TessdataDir: cfg.OCR.TessdataDir,
		DPI:         cfg.OCR.DPI,
		PSM:         cfg.OCR.PSM,
		OEM:         cfg.OCR.OEM,
		MaxPages:    cfg.OCR.MaxPages,
		Preprocess:  cfg.OCR.Preprocess,
		KeepPages:   cfg.OCR.KeepPages,
		Timeout:     time.Duration(cfg.OCR.TimeoutSeconds) * time.Second,
	}
}

// Engine recognizes text in PDFs and images with pdftoppm and tesseract.
type Engine struct {
	opts   Options
	cache  *PageCache
	runner Runner
	logger *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRunner replaces the command runner, primarily for tests.
func WithRunner(r Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

// New constructs an engine writing page images under cache.
func New(opts Options, cache *PageCache, logger *slog.Logger, options ...Option) *Engine {
	if opts.Pdftoppm == "" {
		opts.Pdftoppm = "pdftoppm"
	}
	if opts.Tesseract == "" {
		opts.Tesseract = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	logger = logging.NewComponentLogger(logger, "ocr")
	e := &Engine{opts: opts, cache: cache, runner: execRunner{logger: logger}, logger: logger}
	for _, option := range options {
		option(e)
	}
	return e
}

// Method reports the engine kind.
func (e *Engine) Method() extraction.Method {
	return extraction.MethodTextRecognition
}

// Extract renders (for PDFs), preprocesses, and recognizes every page of path.
func (e *Engine) Extract(ctx context.Context, path string) extraction.Result {
	start := time.Now()
	logger := logging.WithContext(ctx, e.logger)
	method := e.Method()

	info, err := os.Stat(path)
	if err != nil {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "ocr", "open", "source unreadable", err))
	}
	if info.Size() == 0 && !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "ocr", "open", "source is empty", nil))
	}

	workspace, err := e.cache.Workspace(path)
	if err != nil {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "ocr", "workspace", "", err))
	}
	if !e.opts.KeepPages {
		defer func() {
			if err := os.RemoveAll(workspace); err != nil {
				logger.Debug("page workspace cleanup failed", logging.String("workspace", workspace), logging.Error(err))
			}
		}()
	}

	pages := []string{path}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pages, err = e.renderPDF(ctx, path, workspace)
		if err != nil {
			return extraction.Failed(method, err)
		}
	}

	pageTexts := make([]string, 0, len(pages))
	var allLines []Line
	var failures []string
	for idx, page := range pages {
		if err := ctx.Err(); err != nil {
			return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "ocr", "recognize", "cancelled", err))
		}
		image := page
		if e.opts.Preprocess {
			image = e.preprocess(logger, page, workspace)
		}
		lines, err := e.recognize(ctx, image)
		if err != nil {
			logging.WarnWithContext(logger, "page recognition failed", "ocr_page_failed",
				logging.Int("page", idx+1),
				logging.Error(err),
				logging.String(logging.FieldImpact, "page text omitted from extraction"),
				logging.String(logging.FieldErrorHint, "verify tesseract and the language data are installed"),
			)
			failures = append(failures, fmt.Sprintf("page %d: %v", idx+1, err))
			continue
		}
		pageTexts = append(pageTexts, JoinLines(lines))
		allLines = append(allLines, lines...)
	}
	if len(pageTexts) == 0 {
		return extraction.Failed(method, services.Wrap(services.ErrEngineFailure, "ocr", "recognize",
			"recognition failed on every page: "+strings.Join(failures, "; "), nil))
	}

	text := strings.Join(pageTexts, "\n\n")
	result := extraction.Result{
		Success:    true,
		Method:     method,
		RawText:    text,
		Confidence: MeanConfidence(allLines),
		Pages:      len(pages),
		Duration:   time.Since(start),
	}
	logger.Info("text recognition complete",
		logging.Int("pages", result.Pages),
		logging.Int("characters", len(text)),
		logging.Confidence(result.Confidence),
		logging.Duration("duration", result.Duration),
	)
	return result
}

func (e *Engine) renderPDF(ctx context.Context, path, workspace string) ([]string, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(workspace, sanitizeStem(stem)+"_page")

	runCtx, cancel := e.commandContext(ctx)
	defer cancel()
	_, stderr, err := e.runner.Run(runCtx, e.opts.Pdftoppm, "-r", strconv.Itoa(e.opts.DPI), "-png", path, prefix)
	if err != nil {
		return nil, services.Wrap(services.ErrRenderFailure, "ocr", "pdftoppm", strings.TrimSpace(string(stderr)), err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, services.Wrap(services.ErrRenderFailure, "ocr", "pdftoppm", "no pages rendered", nil)
	}
	if e.opts.MaxPages > 0 && len(matches) > e.opts.MaxPages {
		matches = matches[:e.opts.MaxPages]
	}
	return matches, nil
}

func (e *Engine) preprocess(logger *slog.Logger, page, workspace string) string {
	stem := strings.TrimSuffix(filepath.Base(page), filepath.Ext(page))
	out := filepath.Join(workspace, "processed_"+sanitizeStem(stem)+".png")
	if err := PreprocessFile(page, out); err != nil {
		logging.WarnWithContext(logger, "preprocessing failed; using original image", "ocr_preprocess_fallback",
			logging.String("page", page),
			logging.Error(services.Wrap(services.ErrPreprocessing, "ocr", "preprocess", "", err)),
			logging.String(logging.FieldImpact, "recognition may be less accurate for this page"),
			logging.String(logging.FieldErrorHint, "check that the image is not truncated or corrupt"),
		)
		return page
	}
	return out
}

func (e *Engine) recognize(ctx context.Context, image string) ([]Line, error) {
	args := []string{image, "stdout", "-l", e.opts.Language}
	if e.opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.opts.PSM))
	}
	if e.opts.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.opts.OEM))
	}
	if e.opts.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.opts.TessdataDir)
	}
	args = append(args, "tsv")

	runCtx, cancel := e.commandContext(ctx)
	defer cancel()
	out, stderr, err := e.runner.Run(runCtx, e.opts.Tesseract, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrEngineFailure, "ocr", "tesseract", strings.TrimSpace(string(stderr)), err)
	}
	return ParseTSV(out), nil
}

func (e *Engine) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opts.Timeout)
}

func sanitizeStem(stem string) string {
	stem = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, stem)
	if stem == "" {
		return "page"
	}
	return stem
}
