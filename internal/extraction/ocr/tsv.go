package ocr

import (
	"strconv"
	"strings"
)

// Line is one recognized text line with its mean word confidence in [0,1].
type Line struct {
	Text       string
	Confidence float64
	scored     bool
}

type lineKey struct {
	page, block, par, line int
}

// ParseTSV groups tesseract TSV word rows (level 5) into lines keyed by
// block, paragraph, and line number, preserving reading order. Words with a
// confidence of -1 contribute text but not confidence.
func ParseTSV(data []byte) []Line {
	rows := strings.Split(string(data), "\n")
	order := make([]lineKey, 0)
	words := make(map[lineKey][]string)
	sums := make(map[lineKey]float64)
	counts := make(map[lineKey]int)

	for i, row := range rows {
		row = strings.TrimRight(row, "\r")
		if i == 0 || row == "" {
			continue
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(strings.Join(cols[11:], "\t"))
		if text == "" {
			continue
		}
		key := lineKey{atoi(cols[1]), atoi(cols[2]), atoi(cols[3]), atoi(cols[4])}
		if _, seen := words[key]; !seen {
			order = append(order, key)
		}
		words[key] = append(words[key], text)
		conf, err := strconv.ParseFloat(strings.TrimSpace(cols[10]), 64)
		if err != nil || conf < 0 {
			continue
		}
		sums[key] += conf
		counts[key]++
	}

	lines := make([]Line, 0, len(order))
	for _, key := range order {
		line := Line{Text: strings.Join(words[key], " ")}
		if n := counts[key]; n > 0 {
			line.Confidence = sums[key] / float64(n) / 100
			line.scored = true
		}
		lines = append(lines, line)
	}
	return lines
}

// JoinLines renders lines as page text, one line per row.
func JoinLines(lines []Line) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.Text)
	}
	return strings.Join(parts, "\n")
}

// MeanConfidence averages the scored line confidences, or returns 0 when none are scored.
func MeanConfidence(lines []Line) float64 {
	var sum float64
	var n int
	for _, line := range lines {
		if !line.scored {
			continue
		}
		sum += line.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func atoi(value string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(value))
	return n
}
