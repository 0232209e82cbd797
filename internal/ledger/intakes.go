package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of an intake attempt.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
	StatusUnsupported Status = "unsupported"
	StatusTimeout     Status = "timeout"
)

// Intake is one row of the intakes table.
type Intake struct {
	ID               int64     `json:"id"`
	RequestID        string    `json:"request_id"`
	SourcePath       string    `json:"source_path"`
	Status           Status    `json:"status"`
	ErrorKind        string    `json:"error_kind,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	TicketID         string    `json:"ticket_id,omitempty"`
	ExtractionMethod string    `json:"extraction_method,omitempty"`
	Confidence       *float64  `json:"confidence,omitempty"`
	TicketFolder     string    `json:"ticket_folder,omitempty"`
	QuarantinePath   string    `json:"quarantine_path,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}

// RecordIntake appends entry and returns its id.
func (s *Store) RecordIntake(ctx context.Context, entry Intake) (int64, error) {
	if strings.TrimSpace(entry.SourcePath) == "" {
		return 0, errors.New("intake source path is required")
	}
	if entry.Status == "" {
		return 0, errors.New("intake status is required")
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = entry.FinishedAt
	}
	var confidence sql.NullFloat64
	if entry.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *entry.Confidence, Valid: true}
	}
	res, err := s.execWithRetry(ctx, `INSERT INTO intakes (
		request_id, source_path, status, error_kind, error_message, ticket_id,
		extraction_method, confidence, ticket_folder, quarantine_path, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, entry.SourcePath, string(entry.Status), entry.ErrorKind, entry.ErrorMessage,
		entry.TicketID, entry.ExtractionMethod, confidence, entry.TicketFolder, entry.QuarantinePath,
		formatTime(entry.StartedAt), formatTime(entry.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("record intake: %w", err)
	}
	return res.LastInsertId()
}

// RecentIntakes lists the newest intakes first. A non-empty ticketID filters
// by ticket; limit <= 0 means 20.
func (s *Store) RecentIntakes(ctx context.Context, limit int, ticketID string) ([]Intake, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, request_id, source_path, status, error_kind, error_message, ticket_id,
		extraction_method, confidence, ticket_folder, quarantine_path, started_at, finished_at
		FROM intakes`
	args := []any{}
	if ticketID = strings.TrimSpace(ticketID); ticketID != "" {
		query += " WHERE ticket_id = ?"
		args = append(args, ticketID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query intakes: %w", err)
	}
	defer rows.Close()

	var out []Intake
	for rows.Next() {
		var (
			entry             Intake
			status            string
			confidence        sql.NullFloat64
			started, finished string
		)
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.SourcePath, &status, &entry.ErrorKind,
			&entry.ErrorMessage, &entry.TicketID, &entry.ExtractionMethod, &confidence,
			&entry.TicketFolder, &entry.QuarantinePath, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan intake: %w", err)
		}
		entry.Status = Status(status)
		if confidence.Valid {
			value := confidence.Float64
			entry.Confidence = &value
		}
		entry.StartedAt = parseTime(started)
		entry.FinishedAt = parseTime(finished)
		out = append(out, entry)
	}
	return out, rows.Err()
}
