package ocr

import (
	"math"
	"testing"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t300\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t60\t20\t96.0\tTicket\n" +
	"5\t1\t1\t1\t1\t2\t80\t10\t90\t20\t90.0\t#13624970\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t90\t20\t80.0\tCompany:\n" +
	"5\t1\t1\t1\t2\t2\t110\t40\t90\t20\t70.0\tSingtech\n" +
	"5\t1\t1\t1\t2\t3\t210\t40\t90\t20\t-1\tInc\n" +
	"5\t1\t2\t1\t1\t1\t10\t90\t90\t20\t-1\t|\n"

func TestParseTSVGroupsWordsIntoLines(t *testing.T) {
	lines := ParseTSV([]byte(sampleTSV))
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(lines), lines)
	}
	if lines[0].Text != "Ticket #13624970" || lines[1].Text != "Company: Singtech Inc" {
		t.Fatalf("unexpected line text: %q / %q", lines[0].Text, lines[1].Text)
	}
	if math.Abs(lines[0].Confidence-0.93) > 1e-9 {
		t.Fatalf("line 1 confidence = %v, want 0.93", lines[0].Confidence)
	}
	if math.Abs(lines[1].Confidence-0.75) > 1e-9 {
		t.Fatalf("line 2 confidence = %v, want 0.75", lines[1].Confidence)
	}
	if got := MeanConfidence(lines); math.Abs(got-0.84) > 1e-9 {
		t.Fatalf("mean confidence = %v, want 0.84 (unscored line excluded)", got)
	}
	if JoinLines(lines) != "Ticket #13624970\nCompany: Singtech Inc\n|" {
		t.Fatalf("unexpected joined text %q", JoinLines(lines))
	}
}

func TestParseTSVEmpty(t *testing.T) {
	if lines := ParseTSV(nil); len(lines) != 0 {
		t.Fatalf("expected no lines, got %v", lines)
	}
	if MeanConfidence(nil) != 0 {
		t.Fatal("expected zero confidence without lines")
	}
}
