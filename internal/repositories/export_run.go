package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// ErrRunNotFound is returned by [ExportRunRepository.Get] for an unknown ID.
var ErrRunNotFound = errors.New("export run not found")

const exportRunColumns = `
	id, sequence, source, format, status, list_count, task_count,
	failed_count, skipped_count, files, error_message, started_at, completed_at
`

// ExportRunRepository persists [models.ExportRun] records.
type ExportRunRepository struct {
	db *sql.DB
}

// NewExportRunRepository creates a new ExportRunRepository with the given database connection
func NewExportRunRepository(db *sql.DB) *ExportRunRepository {
	return &ExportRunRepository{db: db}
}

// Create inserts run, assigning an ID when it has none and the next sequence number.
func (r *ExportRunRepository) Create(run *models.ExportRun) error {
	if run.Source == "" || run.Format == "" || run.Status == "" {
		return fmt.Errorf("%w: export run requires source, format and status", shared.ErrInvalidInput)
	}

	sequence, err := NextSequence(r.db, "export_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	run.Sequence = sequence

	files, err := json.Marshal(nonNil(run.Files))
	if err != nil {
		return fmt.Errorf("failed to encode files: %w", err)
	}

	var errorMessage any = run.ErrorMessage
	if run.ErrorMessage == "" {
		errorMessage = nil
	}

	var completedAt any = run.CompletedAt
	if run.CompletedAt.IsZero() {
		completedAt = nil
	}

	query := `INSERT INTO export_runs (` + exportRunColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.Exec(query,
		run.ID,
		run.Sequence,
		run.Source,
		run.Format,
		run.Status,
		run.ListCount,
		run.TaskCount,
		run.FailedCount,
		run.SkippedCount,
		string(files),
		errorMessage,
		run.StartedAt,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID.
func (r *ExportRunRepository) Get(id string) (*models.ExportRun, error) {
	query := `SELECT ` + exportRunColumns + ` FROM export_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// List returns runs newest first. criteria may filter on "status", "source" and "format";
// a positive limit caps the result.
func (r *ExportRunRepository) List(criteria map[string]any, limit int) ([]*models.ExportRun, error) {
	query := `SELECT ` + exportRunColumns + ` FROM export_runs WHERE 1 = 1`
	args := []any{}

	for _, column := range []string{"status", "source", "format"} {
		if value, ok := criteria[column].(string); ok && value != "" {
			query += " AND " + column + " = ?"
			args = append(args, value)
		}
	}

	query += " ORDER BY sequence DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// RecordRun stores run. It lets the repository serve as the export engine's run recorder.
func (r *ExportRunRepository) RecordRun(run *models.ExportRun) error {
	return r.Create(run)
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.ExportRun, error) {
	var (
		run          models.ExportRun
		files        string
		errorMessage sql.NullString
		completedAt  sql.NullTime
		startedAt    time.Time
	)

	err := s.Scan(
		&run.ID, &run.Sequence, &run.Source, &run.Format, &run.Status,
		&run.ListCount, &run.TaskCount, &run.FailedCount, &run.SkippedCount,
		&files, &errorMessage, &startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export run: %w", err)
	}

	if files != "" {
		if err := json.Unmarshal([]byte(files), &run.Files); err != nil {
			return nil, fmt.Errorf("failed to decode files: %w", err)
		}
	}
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	run.StartedAt = startedAt
	if completedAt.Valid {
		run.CompletedAt = completedAt.Time
	}

	return &run, nil
}

func nonNil(files []string) []string {
	if files == nil {
		return []string{}
	}
	return files
}
