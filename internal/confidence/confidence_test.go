package confidence

import (
	"math"
	"strings"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestHeuristicShortTextScoresZero(t *testing.T) {
	for _, text := range []string{"", "Ticket ID: #1", strings.Repeat("x", 49)} {
		if got := Heuristic(text); got != 0 {
			t.Fatalf("Heuristic(%q) = %v, want 0", text, got)
		}
	}
}

func TestHeuristicWeights(t *testing.T) {
	structured := "Ticket ID: #13624970\nCompany: Singtech Inc\nTrading Partner: Target\n" +
		"Transaction Type: 850 PO\nIssue Title: Missing PO acknowledgement for latest order batch"
	if len(structured) <= 100 || len(structured) > 500 {
		t.Fatalf("fixture length %d outside expected band", len(structured))
	}
	// 0.2 length + 0.15 + 0.10 + 0.10 labels + 0.1 clean
	if got := Heuristic(structured); !approx(got, 0.65) {
		t.Fatalf("structured score = %v, want 0.65", got)
	}

	withJSON := structured + "\n{\"ticket_id\": \"13624970\"}" + strings.Repeat(" detail", 70)
	if got := Heuristic(withJSON); !approx(got, 0.85) {
		t.Fatalf("json score = %v, want 0.85", got)
	}

	failing := structured + "\nThe system could not read the attachment"
	if got := Heuristic(failing); !approx(got, 0.35) {
		t.Fatalf("failure phrasing score = %v, want 0.35", got)
	}
}

func TestHeuristicIsBounded(t *testing.T) {
	texts := []string{
		strings.Repeat("error ", 20),
		strings.Repeat("Ticket ID: 1 Company: A Trading Partner: B {} ", 40),
	}
	for _, text := range texts {
		got := Heuristic(text)
		if got < 0 || got > 1 {
			t.Fatalf("score %v out of range", got)
		}
	}
}

func TestFinalizeClamps(t *testing.T) {
	if Finalize(1.4) != 1 || Finalize(-0.3) != 0 || Finalize(math.NaN()) != 0 {
		t.Fatal("expected clamping to [0,1]")
	}
	if Finalize(0.42) != 0.42 || Finalize(0.8249) != 0.8249 {
		t.Fatal("expected in-range values to pass through unrounded")
	}
}

func TestLabels(t *testing.T) {
	cases := map[float64]string{0.95: "HIGH", 0.85: "HIGH", 0.84: "MEDIUM", 0.70: "MEDIUM", 0.69: "LOW", 0: "LOW"}
	for score, want := range cases {
		if got := Label(score); got != want {
			t.Fatalf("Label(%v) = %s, want %s", score, got, want)
		}
	}
	if !NeedsReview(0.5, 0) || NeedsReview(0.75, 0.7) {
		t.Fatal("unexpected review decision")
	}
}
