package services

import (
	"errors"
	"fmt"
	"strings"
)

// Intake and archival taxonomy. Kind maps each marker to its stable name.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEngineFailure       = errors.New("engine failure")
	ErrRenderFailure       = errors.New("render failure")
	ErrPreprocessing       = errors.New("preprocessing failure")
	ErrParseFailure        = errors.New("parse failure")
	ErrArchiveIncomplete   = errors.New("archive structure incomplete")
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

var kindOrder = []struct {
	marker error
	name   string
}{
	{ErrUnsupportedFileType, "UnsupportedFileType"},
	{ErrRenderFailure, "RenderFailure"},
	{ErrPreprocessing, "PreprocessingFailure"},
	{ErrParseFailure, "ParseFailure"},
	{ErrArchiveIncomplete, "ArchiveStructureIncomplete"},
	{ErrEngineFailure, "EngineFailure"},
	{ErrTimeout, "Timeout"},
	{ErrConfiguration, "ConfigurationError"},
	{ErrValidation, "ValidationError"},
	{ErrNotFound, "NotFound"},
	{ErrExternalTool, "ExternalToolError"},
	{ErrTransient, "TransientFailure"},
}

// Kind returns the taxonomy name for err. Errors carrying no marker report
// "EngineFailure" since every unexpected intake failure is terminal for the
// attempt; nil reports "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range kindOrder {
		if errors.Is(err, entry.marker) {
			return entry.name
		}
	}
	return "EngineFailure"
}

// IsReviewable reports whether err reflects operator input or configuration
// rather than a backend fault.
func IsReviewable(err error) bool {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound), errors.Is(err, ErrUnsupportedFileType):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
