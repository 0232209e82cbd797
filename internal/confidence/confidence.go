// Package confidence scores extraction output on a single [0,1] scale.
package confidence

import (
	"regexp"
	"strings"
)

// ReviewThreshold is the score below which an intake is flagged for analyst review.
const ReviewThreshold = 0.70

const (
	highThreshold = 0.85
	minTextLength = 50
)

var (
	ticketLabel  = regexp.MustCompile(`(?i)Ticket ID[:\s]+`)
	companyLabel = regexp.MustCompile(`(?i)Company[:\s]+`)
	partnerLabel = regexp.MustCompile(`(?i)Trading Partner[:\s]+`)
	failureTerms = []string{"error", "could not", "unable", "failed"}
)

// Heuristic scores a free-text analysis response by length, expected field
// labels, embedded JSON, and the absence of failure phrasing.
func Heuristic(text string) float64 {
	if len(text) < minTextLength {
		return 0
	}
	score := 0.0
	if len(text) > 100 {
		score += 0.2
	}
	if len(text) > 500 {
		score += 0.1
	}
	if ticketLabel.MatchString(text) {
		score += 0.15
	}
	if companyLabel.MatchString(text) {
		score += 0.10
	}
	if partnerLabel.MatchString(text) {
		score += 0.10
	}
	if strings.Contains(text, "{") && strings.Contains(text, "}") {
		score += 0.1
	}
	lowered := strings.ToLower(text)
	failed := false
	for _, term := range failureTerms {
		if strings.Contains(lowered, term) {
			failed = true
			break
		}
	}
	if failed {
		score -= 0.2
	} else {
		score += 0.1
	}
	return Clamp(score)
}

// Clamp bounds value to [0,1].
func Clamp(value float64) float64 {
	switch {
	case value != value, value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}

// Finalize produces the single confidence recorded for an intake. Exactly one
// engine value flows in; it is clamped, never combined.
func Finalize(value float64) float64 {
	return Clamp(value)
}

// Label buckets a score as HIGH, MEDIUM, or LOW.
func Label(score float64) string {
	switch {
	case score >= highThreshold:
		return "HIGH"
	case score >= ReviewThreshold:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// NeedsReview reports whether score falls below threshold. A non-positive
// threshold falls back to ReviewThreshold.
func NeedsReview(score, threshold float64) bool {
	if threshold <= 0 {
		threshold = ReviewThreshold
	}
	return score < threshold
}
