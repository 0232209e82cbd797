package extraction

import (
	"errors"
	"testing"
)

func TestResultTextPrefersResponse(t *testing.T) {
	r := Result{RawText: "ocr", RawResponse: "analysis"}
	if r.Text() != "analysis" {
		t.Fatalf("expected response text, got %q", r.Text())
	}
	r.RawResponse = ""
	if r.Text() != "ocr" {
		t.Fatalf("expected raw text, got %q", r.Text())
	}
}

func TestFailed(t *testing.T) {
	boom := errors.New("boom")
	r := Failed(MethodVisionAnalysis, boom)
	if r.Success || r.Method != MethodVisionAnalysis || !errors.Is(r.Err, boom) {
		t.Fatalf("unexpected failed result: %+v", r)
	}
	if MethodTextRecognition.Label() != "OCR (Tesseract)" {
		t.Fatalf("unexpected label %q", MethodTextRecognition.Label())
	}
}
