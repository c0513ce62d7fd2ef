package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/class-schedule-api/internal/models"
)

var scheduleSchema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_records (
	position INTEGER PRIMARY KEY,
	sheet TEXT NOT NULL,
	record_date TEXT NOT NULL,
	subject TEXT NOT NULL,
	teacher TEXT NOT NULL,
	record_time TEXT NOT NULL,
	audience TEXT NOT NULL,
	record_type TEXT NOT NULL DEFAULT '',
	source_file TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS processed_files (
	position INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_records_teacher ON schedule_records (teacher)`,
}

const (
	selectScheduleRecords = `SELECT sheet, record_date AS "date", subject, teacher, record_time AS "time", audience,
record_type AS "type", source_file
FROM schedule_records ORDER BY position ASC`

	selectProcessedFiles = `SELECT name FROM processed_files ORDER BY position ASC`

	insertScheduleRecord = `INSERT INTO schedule_records (position, sheet, record_date, subject, teacher, record_time, audience, record_type, source_file)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertProcessedFile = `INSERT INTO processed_files (position, name) VALUES (?, ?)`

	countScheduleRows = `SELECT (SELECT COUNT(*) FROM schedule_records) + (SELECT COUNT(*) FROM processed_files)`

	deleteScheduleRecords = `DELETE FROM schedule_records`

	deleteProcessedFiles = `DELETE FROM processed_files`
)

// SQLScheduleRepository keeps the schedule store in two tables. Row order is
// preserved through an explicit position column. It works with PostgreSQL and
// SQLite handles.
type SQLScheduleRepository struct {
	db *sqlx.DB
}

// NewSQLScheduleRepository constructs the repository.
func NewSQLScheduleRepository(db *sqlx.DB) *SQLScheduleRepository {
	return &SQLScheduleRepository{db: db}
}

// EnsureSchema creates the tables when they do not exist.
func (r *SQLScheduleRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range scheduleSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schedule schema: %w", err)
		}
	}
	return nil
}

// Load reads the whole store in ingestion order.
func (r *SQLScheduleRepository) Load(ctx context.Context) (models.ScheduleStore, error) {
	store := models.NewScheduleStore()
	if err := r.db.SelectContext(ctx, &store.ScheduleData, selectScheduleRecords); err != nil {
		return models.ScheduleStore{}, fmt.Errorf("load schedule records: %w", err)
	}
	if err := r.db.SelectContext(ctx, &store.Meta.ProcessedFiles, selectProcessedFiles); err != nil {
		return models.ScheduleStore{}, fmt.Errorf("load processed files: %w", err)
	}
	return store, nil
}

// Save replaces the persisted store in one transaction.
func (r *SQLScheduleRepository) Save(ctx context.Context, store models.ScheduleStore) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteScheduleRecords); err != nil {
		return fmt.Errorf("reset schedule records: %w", err)
	}
	if _, err = tx.ExecContext(ctx, deleteProcessedFiles); err != nil {
		return fmt.Errorf("reset processed files: %w", err)
	}

	if len(store.ScheduleData) > 0 {
		stmt, prepErr := tx.PreparexContext(ctx, tx.Rebind(insertScheduleRecord))
		if prepErr != nil {
			err = prepErr
			return fmt.Errorf("prepare schedule insert: %w", err)
		}
		defer stmt.Close()
		for i, rec := range store.ScheduleData {
			if _, err = stmt.ExecContext(ctx, i, rec.Sheet, rec.Date, rec.Subject, rec.Teacher, rec.Time, rec.Audience, rec.Type, rec.SourceFile); err != nil {
				return fmt.Errorf("insert schedule record %d: %w", i, err)
			}
		}
	}

	for i, name := range store.Meta.ProcessedFiles {
		if _, err = tx.ExecContext(ctx, tx.Rebind(insertProcessedFile), i, name); err != nil {
			return fmt.Errorf("insert processed file %s: %w", name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", err)
	}
	return nil
}

// Clear removes all rows and reports whether there were any.
func (r *SQLScheduleRepository) Clear(ctx context.Context) (removed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	if err = tx.GetContext(ctx, &count, countScheduleRows); err != nil {
		return false, fmt.Errorf("count schedule rows: %w", err)
	}
	if _, err = tx.ExecContext(ctx, deleteScheduleRecords); err != nil {
		return false, fmt.Errorf("clear schedule records: %w", err)
	}
	if _, err = tx.ExecContext(ctx, deleteProcessedFiles); err != nil {
		return false, fmt.Errorf("clear processed files: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit schedule tx: %w", err)
	}
	return count > 0, nil
}
