// Package extraction defines the capability shared by the text-recognition
// and vision-analysis engines.
//
// Exactly one engine runs per intake. Callers branch on Result.Success alone;
// Err carries a services marker describing why an attempt failed.
package extraction

import (
	"context"
	"time"
)

// Method names the engine that produced a result.
type Method string

const (
	MethodTextRecognition Method = "text-recognition"
	MethodVisionAnalysis  Method = "vision-analysis"
)

// Label returns the human-readable engine name used in analysis reports.
func (m Method) Label() string {
	switch m {
	case MethodTextRecognition:
		return "OCR (Tesseract)"
	case MethodVisionAnalysis:
		return "Vision analysis (Gemini)"
	default:
		return string(m)
	}
}

// Result is the outcome of one extraction attempt.
type Result struct {
	Success     bool
	Method      Method
	RawText     string
	RawResponse string
	Confidence  float64
	Pages       int
	Duration    time.Duration
	// Partial is set when the response budget expired before streaming finished.
	Partial bool
	Err     error
}

// Text returns the content the metadata parser should read: the response for
// vision analysis, the recognized text otherwise.
func (r Result) Text() string {
	if r.RawResponse != "" {
		return r.RawResponse
	}
	return r.RawText
}

// Failed builds an unsuccessful result for method.
func Failed(method Method, err error) Result {
	return Result{Success: false, Method: method, Err: err}
}

// Engine extracts text from a single media file.
type Engine interface {
	Extract(ctx context.Context, path string) Result
	Method() Method
}
