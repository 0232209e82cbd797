package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Archive is one row of the archives table.
type Archive struct {
	ID             int64     `json:"id"`
	TicketID       string    `json:"ticket_id"`
	CustomerID     string    `json:"customer_id"`
	Company        string    `json:"company"`
	ResolutionType string    `json:"resolution_type"`
	Folder         string    `json:"folder"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// RecordArchive appends entry and returns its id.
func (s *Store) RecordArchive(ctx context.Context, entry Archive) (int64, error) {
	if strings.TrimSpace(entry.TicketID) == "" {
		return 0, errors.New("archive ticket id is required")
	}
	res, err := s.execWithRetry(ctx, `INSERT INTO archives (
		ticket_id, customer_id, company, resolution_type, folder, archived_at
	) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.TicketID, entry.CustomerID, entry.Company, entry.ResolutionType, entry.Folder, formatTime(entry.ArchivedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("record archive: %w", err)
	}
	return res.LastInsertId()
}

// RecentArchives lists the newest archive operations first.
func (s *Store) RecentArchives(ctx context.Context, limit int) ([]Archive, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, ticket_id, customer_id, company, resolution_type, folder, archived_at
		FROM archives ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var out []Archive
	for rows.Next() {
		var (
			entry    Archive
			archived string
		)
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.CustomerID, &entry.Company,
			&entry.ResolutionType, &entry.Folder, &archived); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		entry.ArchivedAt = parseTime(archived)
		out = append(out, entry)
	}
	return out, rows.Err()
}
