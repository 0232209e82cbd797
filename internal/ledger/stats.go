package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"ticketdesk/internal/confidence"
)

// Stats summarizes the ledger.
type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[Status]int `json:"by_status"`
	MeanConfidence float64        `json:"mean_confidence"`
	LowConfidence  int            `json:"low_confidence"`
	Archived       int            `json:"archived"`
}

// SuccessRate is the percentage of intakes that succeeded, or 0 without intakes.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ByStatus[StatusSuccess]) / float64(s.Total) * 100
}

// Stats computes totals by status and confidence figures for successful intakes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{ByStatus: make(map[Status]int)}

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM intakes GROUP BY status")
	if err != nil {
		return stats, fmt.Errorf("count intakes: %w", err)
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	var mean sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		"SELECT AVG(confidence), COUNT(CASE WHEN confidence < ? THEN 1 END) FROM intakes WHERE status = ? AND confidence IS NOT NULL",
		confidence.ReviewThreshold, string(StatusSuccess),
	).Scan(&mean, &stats.LowConfidence); err != nil {
		return stats, fmt.Errorf("confidence stats: %w", err)
	}
	if mean.Valid {
		stats.MeanConfidence = mean.Float64
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM archives").Scan(&stats.Archived); err != nil {
		return stats, fmt.Errorf("count archives: %w", err)
	}
	return stats, nil
}
