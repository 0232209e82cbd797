package intake_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ticketdesk/internal/extraction"
	"ticketdesk/internal/intake"
	"ticketdesk/internal/ledger"
	"ticketdesk/internal/logging"
	"ticketdesk/internal/metadata"
	"ticketdesk/internal/services"
	"ticketdesk/internal/testsupport"
)

type fakeEngine struct {
	method extraction.Method
	result extraction.Result
	panic  bool
	calls  int
}

func (f *fakeEngine) Method() extraction.Method { return f.method }

func (f *fakeEngine) Extract(_ context.Context, _ string) extraction.Result {
	f.calls++
	if f.panic {
		panic("decoder exploded")
	}
	res := f.result
	res.Method = f.method
	return res
}

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

const ocrText = "Ticket #13624970\nFrom: Jane Doe\nCompany: Singtech Inc\nTrading Partner: Target\n" +
	"Transaction: 850\nSeverity: HIGH\nSubject: 850 rejected by partner"

func TestProcessWritesTicketArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	source := filepath.Join(cfg.Paths.IncomingDir, "scan.pdf")
	testsupport.WriteFile(t, source, 2048)

	engine := &fakeEngine{
		method: extraction.MethodTextRecognition,
		result: extraction.Result{Success: true, RawText: ocrText, Confidence: 0.91, Pages: 2},
	}
	pipeline := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine), intake.WithRecorder(store), intake.WithClock(clock))

	outcome := pipeline.Process(context.Background(), source)
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if outcome.TicketID != "13624970" {
		t.Fatalf("ticket id = %q", outcome.TicketID)
	}
	wantFolder := filepath.Join(cfg.Paths.ProcessingDir, "ticket_13624970")
	if outcome.TicketFolder != wantFolder {
		t.Fatalf("folder = %q, want %q", outcome.TicketFolder, wantFolder)
	}
	if outcome.ConfidenceLabel != "HIGH" || outcome.NeedsReview {
		t.Fatalf("unexpected confidence outcome: %+v", outcome)
	}

	wantName := "2025-03-14_13624970_SingtechInc_TradingPartner-Target_850.pdf"
	if _, err := os.Stat(filepath.Join(wantFolder, wantName)); err != nil {
		t.Fatalf("expected processed copy %s: %v", wantName, err)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("original should remain in incoming: %v", err)
	}
	if n := countEntries(t, cfg.Paths.ProcessingDir); n != 1 {
		t.Fatalf("expected only the ticket folder in processing, found %d entries", n)
	}

	data, err := os.ReadFile(outcome.MetadataFile)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	if err := metadata.ValidateDocument(data); err != nil {
		t.Fatalf("metadata did not validate: %v", err)
	}
	ticket, err := metadata.Load(data)
	if err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if ticket.ProcessedFile != wantName || ticket.OriginalFile != "scan.pdf" {
		t.Fatalf("unexpected file names in metadata: %+v", ticket)
	}
	if ticket.ExtractionMethod != extraction.MethodTextRecognition || ticket.Severity != metadata.SeverityHigh {
		t.Fatalf("unexpected metadata: %+v", ticket)
	}
	if ticket.Timestamp != fixedNow.Format(time.RFC3339) {
		t.Fatalf("timestamp = %q", ticket.Timestamp)
	}

	analysis, err := os.ReadFile(outcome.AnalysisFile)
	if err != nil {
		t.Fatalf("read analysis: %v", err)
	}
	for _, want := range []string{"# Preliminary Analysis - Ticket 13624970", "Singtech Inc", "Target", "0.91"} {
		if !strings.Contains(string(analysis), want) {
			t.Fatalf("analysis missing %q:\n%s", want, analysis)
		}
	}

	recent, err := store.RecentIntakes(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("RecentIntakes: %v", err)
	}
	if len(recent) != 1 || recent[0].Status != ledger.StatusSuccess || recent[0].TicketID != "13624970" {
		t.Fatalf("unexpected ledger rows: %+v", recent)
	}
	if recent[0].Confidence == nil || *recent[0].Confidence != 0.91 {
		t.Fatalf("expected recorded confidence, got %+v", recent[0].Confidence)
	}
}

func TestProcessRemovesOriginalWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Intake.RemoveOriginal = true
	source := filepath.Join(cfg.Paths.IncomingDir, "scan.png")
	testsupport.WritePNG(t, source, 40, 40)

	engine := &fakeEngine{
		method: extraction.MethodTextRecognition,
		result: extraction.Result{Success: true, RawText: ocrText, Confidence: 0.5},
	}
	outcome := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine), intake.WithClock(clock)).Process(context.Background(), source)
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if !outcome.NeedsReview || outcome.ConfidenceLabel != "LOW" {
		t.Fatalf("expected low confidence review flag, got %+v", outcome)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("expected original removed, stat err=%v", err)
	}
}

func TestProcessRejectsUnsupportedType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	source := filepath.Join(cfg.Paths.IncomingDir, "notes.xyz")
	testsupport.WriteText(t, source, "not a ticket")

	engine := &fakeEngine{method: extraction.MethodTextRecognition}
	outcome := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine), intake.WithRecorder(store)).Process(context.Background(), source)
	if outcome.Status != intake.StatusError {
		t.Fatalf("expected error status, got %q", outcome.Status)
	}
	if !strings.Contains(outcome.Message, ".xyz") || outcome.ErrorKind != "UnsupportedFileType" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(outcome.SupportedTypes["docs"]) == 0 || len(outcome.SupportedTypes["audio_video"]) == 0 {
		t.Fatalf("expected both supported groups, got %+v", outcome.SupportedTypes)
	}
	if engine.calls != 0 {
		t.Fatalf("engine must not run for unsupported files")
	}
	if n := countEntries(t, cfg.Paths.ProcessingDir); n != 0 {
		t.Fatalf("expected no ticket folder, found %d entries", n)
	}
	if n := countEntries(t, cfg.Paths.FailedDir); n != 0 {
		t.Fatalf("unsupported files are not quarantined, found %d entries", n)
	}
	recent, err := store.RecentIntakes(context.Background(), 5, "")
	if err != nil {
		t.Fatalf("RecentIntakes: %v", err)
	}
	if len(recent) != 1 || recent[0].Status != ledger.StatusUnsupported {
		t.Fatalf("unexpected ledger rows: %+v", recent)
	}
}

func TestProcessQuarantinesEngineFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "empty.pdf")
	testsupport.WriteText(t, source, "")

	cause := services.Wrap(services.ErrRenderFailure, "ocr", "render", "pdftoppm produced no pages", nil)
	engine := &fakeEngine{method: extraction.MethodTextRecognition, result: extraction.Failed(extraction.MethodTextRecognition, cause)}
	outcome := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine), intake.WithClock(clock)).Process(context.Background(), source)

	if outcome.Status != intake.StatusError || outcome.ErrorKind != "RenderFailure" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if !errors.Is(outcome.Err, services.ErrRenderFailure) {
		t.Fatalf("expected render failure, got %v", outcome.Err)
	}
	if outcome.FailedPath != filepath.Join(cfg.Paths.FailedDir, "empty.pdf") {
		t.Fatalf("failed path = %q", outcome.FailedPath)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Paths.FailedDir, "empty_error.json"))
	if err != nil {
		t.Fatalf("read error report: %v", err)
	}
	var report intake.ErrorReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode error report: %v", err)
	}
	if report.File != "empty.pdf" || report.Timestamp == "" || !strings.Contains(report.Error, "no pages") {
		t.Fatalf("unexpected report: %+v", report)
	}
	if n := countEntries(t, cfg.Paths.ProcessingDir); n != 0 {
		t.Fatalf("no ticket folder expected, found %d entries", n)
	}
}

func TestProcessLeavesNoPartialArtifactsWhenWriteFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "scan.pdf")
	testsupport.WriteFile(t, source, 2048)

	folder := filepath.Join(cfg.Paths.ProcessingDir, "ticket_13624970")
	blocker := filepath.Join(folder, "preliminary_analysis.md")
	if err := os.MkdirAll(filepath.Join(blocker, "keep"), 0o755); err != nil {
		t.Fatalf("mkdir blocker: %v", err)
	}

	engine := &fakeEngine{
		method: extraction.MethodTextRecognition,
		result: extraction.Result{Success: true, RawText: ocrText, Confidence: 0.91},
	}
	outcome := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine), intake.WithClock(clock)).Process(context.Background(), source)
	if outcome.Status != intake.StatusError {
		t.Fatalf("expected failure when the analysis cannot be written, got %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "preliminary_analysis.md") {
		t.Fatalf("message should name the analysis file, got %q", outcome.Message)
	}
	if n := countEntries(t, folder); n != 1 {
		t.Fatalf("expected ticket folder untouched, found %d entries", n)
	}
	for _, name := range []string{"metadata.json", "2025-03-14_13624970_SingtechInc_TradingPartner-Target_850.pdf"} {
		if _, err := os.Stat(filepath.Join(folder, name)); !os.IsNotExist(err) {
			t.Fatalf("expected no %s after failed intake, stat err=%v", name, err)
		}
	}
	if n := countEntries(t, cfg.Paths.ProcessingDir); n != 1 {
		t.Fatalf("expected staging folder removed, found %d entries in processing", n)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.FailedDir, "scan.pdf")); err != nil {
		t.Fatalf("expected source quarantined: %v", err)
	}
}

func TestProcessRecoversEnginePanic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "call.mp3")
	testsupport.WriteFile(t, source, 512)

	engine := &fakeEngine{method: extraction.MethodVisionAnalysis, panic: true}
	outcome := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine), intake.WithClock(clock)).Process(context.Background(), source)
	if outcome.Status != intake.StatusError || outcome.ErrorKind != "EngineFailure" {
		t.Fatalf("expected engine failure, got %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "decoder exploded") {
		t.Fatalf("message should carry panic value, got %q", outcome.Message)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.FailedDir, "call_error.json")); err != nil {
		t.Fatalf("expected error report: %v", err)
	}
}

func TestProcessParsesStructuredVisionResponse(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.IncomingDir, "call.wav")
	testsupport.WriteFile(t, source, 512)

	response := "**Ticket ID:** 55501234\n**Company:** Acme Foods\n**Trading Partner:** Kroger\n" +
		"**Severity:** LOW\n**Root Cause:** Missing ISA qualifier\n" +
		"**Recommended Next Steps:**\n1. Correct the ISA05 qualifier\n2. Resend the 810\n"
	engine := &fakeEngine{
		method: extraction.MethodVisionAnalysis,
		result: extraction.Result{Success: true, RawResponse: response, Confidence: 0.88, Partial: true},
	}
	outcome := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine), intake.WithClock(clock)).Process(context.Background(), source)
	if !outcome.Succeeded() {
		t.Fatalf("expected success, got %+v", outcome)
	}
	ticket := outcome.Ticket
	if ticket.TicketID != "55501234" || ticket.Company != "Acme Foods" || ticket.Severity != metadata.SeverityLow {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if len(ticket.RecommendedActions) != 2 || !ticket.PartialResponse {
		t.Fatalf("unexpected actions or partial flag: %+v", ticket)
	}
	if !strings.HasSuffix(ticket.ProcessedFile, ".wav") {
		t.Fatalf("processed file must keep the original extension, got %q", ticket.ProcessedFile)
	}
}

func TestProcessMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := &fakeEngine{method: extraction.MethodTextRecognition}
	outcome := intake.New(cfg, logging.NewNop(), intake.WithEngine(engine)).Process(context.Background(), filepath.Join(cfg.Paths.IncomingDir, "gone.pdf"))
	if outcome.Status != intake.StatusError || outcome.ErrorKind != "NotFound" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if n := countEntries(t, cfg.Paths.FailedDir); n != 0 {
		t.Fatalf("missing sources are not quarantined, found %d entries", n)
	}
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read %s: %v", dir, err)
	}
	return len(entries)
}
