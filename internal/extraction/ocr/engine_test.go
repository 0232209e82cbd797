package ocr

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ticketdesk/internal/logging"
	"ticketdesk/internal/services"
)

type fakeRunner struct {
	mu         sync.Mutex
	calls      [][]string
	pages      int
	renderErr  error
	tsvByImage func(image string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	switch name {
	case "pdftoppm":
		if f.renderErr != nil {
			return nil, []byte("Syntax Error: Couldn't read xref table"), f.renderErr
		}
		prefix := args[len(args)-1]
		for i := 1; i <= f.pages; i++ {
			if err := writePNG(prefix + "-" + string(rune('0'+i)) + ".png"); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		text, err := f.tsvByImage(args[0])
		if err != nil {
			return nil, []byte("Error in pixReadStream"), err
		}
		return []byte(text), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func writePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8)))
}

func tsvRow(line int, conf, text string) string {
	return "5\t1\t1\t1\t" + string(rune('0'+line)) + "\t1\t0\t0\t10\t10\t" + conf + "\t" + text + "\n"
}

const tsvHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n"

func newTestEngine(t *testing.T, runner Runner, preprocess, keep bool) (*Engine, string) {
	t.Helper()
	cacheDir := filepath.Join(t.TempDir(), "ocr")
	engine := New(Options{Preprocess: preprocess, KeepPages: keep}, NewPageCache(cacheDir), logging.NewNop(), WithRunner(runner))
	return engine, cacheDir
}

func TestExtractPDFJoinsPagesAndAveragesLines(t *testing.T) {
	runner := &fakeRunner{pages: 2}
	runner.tsvByImage = func(image string) (string, error) {
		if strings.Contains(filepath.Base(image), "page-1") {
			return tsvHeader + tsvRow(1, "90", "Ticket #13624970") + tsvRow(2, "80", "Company: Singtech Inc"), nil
		}
		return tsvHeader + tsvRow(1, "70", "Trading Partner: Target"), nil
	}
	engine, cacheDir := newTestEngine(t, runner, true, false)

	pdf := filepath.Join(t.TempDir(), "ticket.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := engine.Extract(context.Background(), pdf)
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Err)
	}
	want := "Ticket #13624970\nCompany: Singtech Inc\n\nTrading Partner: Target"
	if result.RawText != want {
		t.Fatalf("unexpected text %q", result.RawText)
	}
	if math.Abs(result.Confidence-0.8) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.8", result.Confidence)
	}
	if result.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", result.Pages)
	}
	for _, call := range runner.calls {
		if call[0] == "tesseract" && !strings.Contains(filepath.Base(call[1]), "processed_") {
			t.Fatalf("expected preprocessed page to be recognized, got %v", call)
		}
		if call[0] == "tesseract" && call[len(call)-1] != "tsv" {
			t.Fatalf("expected tsv output mode, got %v", call)
		}
	}
	stats, err := NewPageCache(cacheDir).Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.FileCount != 0 {
		t.Fatalf("expected page workspace cleanup, found %d files", stats.FileCount)
	}
}

func TestExtractKeepsPagesWhenConfigured(t *testing.T) {
	runner := &fakeRunner{pages: 1, tsvByImage: func(string) (string, error) { return tsvHeader + tsvRow(1, "88", "hello"), nil }}
	engine, cacheDir := newTestEngine(t, runner, false, true)

	pdf := filepath.Join(t.TempDir(), "keep.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := engine.Extract(context.Background(), pdf); !result.Success {
		t.Fatalf("extract failed: %v", result.Err)
	}
	stats, err := NewPageCache(cacheDir).Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.FileCount != 1 {
		t.Fatalf("expected rendered page kept, got %d files", stats.FileCount)
	}
	removed, err := NewPageCache(cacheDir).Clear()
	if err != nil || removed != 1 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
}

func TestExtractRenderFailure(t *testing.T) {
	runner := &fakeRunner{renderErr: errors.New("exit status 1")}
	engine, _ := newTestEngine(t, runner, true, false)

	pdf := filepath.Join(t.TempDir(), "empty.pdf")
	if err := os.WriteFile(pdf, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	result := engine.Extract(context.Background(), pdf)
	if result.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(result.Err, services.ErrRenderFailure) {
		t.Fatalf("expected render failure, got %v", result.Err)
	}
}

func TestExtractNoPagesRendered(t *testing.T) {
	runner := &fakeRunner{pages: 0}
	engine, _ := newTestEngine(t, runner, true, false)
	pdf := filepath.Join(t.TempDir(), "blank.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := engine.Extract(context.Background(), pdf); !errors.Is(result.Err, services.ErrRenderFailure) {
		t.Fatalf("expected render failure, got %v", result.Err)
	}
}

func TestExtractImageFallsBackWhenPreprocessingFails(t *testing.T) {
	var recognized string
	runner := &fakeRunner{tsvByImage: func(image string) (string, error) {
		recognized = image
		return tsvHeader + tsvRow(1, "60", "Error: 997 rejected"), nil
	}}
	engine, _ := newTestEngine(t, runner, true, false)

	img := filepath.Join(t.TempDir(), "corrupt.png")
	if err := os.WriteFile(img, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := engine.Extract(context.Background(), img)
	if !result.Success {
		t.Fatalf("expected fallback success, got %v", result.Err)
	}
	if recognized != img {
		t.Fatalf("expected original image to be recognized, got %q", recognized)
	}
}

func TestExtractEngineFailureWhenEveryPageFails(t *testing.T) {
	runner := &fakeRunner{tsvByImage: func(string) (string, error) { return "", errors.New("exit status 1") }}
	engine, _ := newTestEngine(t, runner, false, false)

	img := filepath.Join(t.TempDir(), "scan.jpg")
	if err := os.WriteFile(img, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := engine.Extract(context.Background(), img)
	if result.Success || !errors.Is(result.Err, services.ErrEngineFailure) {
		t.Fatalf("expected engine failure, got %+v", result)
	}
}

func TestExtractMissingOrEmptySource(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeRunner{}, false, false)
	dir := t.TempDir()
	if result := engine.Extract(context.Background(), filepath.Join(dir, "missing.png")); !errors.Is(result.Err, services.ErrEngineFailure) {
		t.Fatalf("expected engine failure for missing file, got %v", result.Err)
	}
	empty := filepath.Join(dir, "empty.png")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if result := engine.Extract(context.Background(), empty); !errors.Is(result.Err, services.ErrEngineFailure) {
		t.Fatalf("expected engine failure for empty file, got %v", result.Err)
	}
}
