// Package router classifies incoming files by extension and binds each
// category to exactly one extraction method.
package router

import (
	"path/filepath"
	"strings"

	"ticketdesk/internal/extraction"
)

// Category is the media group a file belongs to.
type Category string

const (
	CategoryDocument    Category = "document"
	CategoryAudioVideo  Category = "audio_video"
	CategoryUnsupported Category = "unsupported"
)

// DocumentExtensions are handled by the text-recognition engine.
var DocumentExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".gif"}

// AudioVideoExtensions are handled by the vision-analysis engine.
var AudioVideoExtensions = []string{".mp3", ".wav", ".m4a", ".mp4", ".mov", ".avi", ".webm"}

// Route is the outcome of classifying a path.
type Route struct {
	Extension string
	Category  Category
	Method    extraction.Method
}

// Supported reports whether an engine is bound to the route.
func (r Route) Supported() bool {
	return r.Category != CategoryUnsupported
}

// Classify maps path to its category. Extension matching is case-insensitive.
func Classify(path string) Route {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case contains(DocumentExtensions, ext):
		return Route{Extension: ext, Category: CategoryDocument, Method: extraction.MethodTextRecognition}
	case contains(AudioVideoExtensions, ext):
		return Route{Extension: ext, Category: CategoryAudioVideo, Method: extraction.MethodVisionAnalysis}
	default:
		return Route{Extension: ext, Category: CategoryUnsupported}
	}
}

// IsSupported is shorthand for Classify(path).Supported().
func IsSupported(path string) bool {
	return Classify(path).Supported()
}

// SupportedTypes lists both extension groups keyed by category, in the shape
// reported back to callers of an unsupported intake.
func SupportedTypes() map[string][]string {
	return map[string][]string{
		"docs":        append([]string(nil), DocumentExtensions...),
		"audio_video": append([]string(nil), AudioVideoExtensions...),
	}
}

// UnsupportedMessage names the rejected extension and both supported groups.
func UnsupportedMessage(ext string) string {
	if ext == "" {
		ext = "(none)"
	}
	return "Unsupported file type: " + ext + ". Supported documents: " + strings.Join(DocumentExtensions, ", ") +
		"; supported audio/video: " + strings.Join(AudioVideoExtensions, ", ")
}

func contains(values []string, ext string) bool {
	for _, v := range values {
		if v == ext {
			return true
		}
	}
	return false
}
