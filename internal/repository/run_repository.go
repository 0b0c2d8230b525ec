package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/locvowork/vacation_reports/internal/domain"
	"github.com/locvowork/vacation_reports/internal/repository/builder"
)

const (
	runsTable    = "vacation_runs"
	entriesTable = "vacation_run_entries"
)

var runColumns = []string{
	"id", "operation", "status", "processed", "errors",
	"started_at", "finished_at", "messages", "output_files",
}

const schema = `
CREATE TABLE IF NOT EXISTS vacation_runs (
	id           TEXT PRIMARY KEY,
	operation    TEXT NOT NULL,
	status       TEXT NOT NULL,
	processed    INTEGER NOT NULL DEFAULT 0,
	errors       INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL,
	finished_at  TIMESTAMPTZ,
	messages     INTEGER NOT NULL DEFAULT 0,
	output_files TEXT[] NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS vacation_run_entries (
	run_id    TEXT NOT NULL REFERENCES vacation_runs(id) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	level     TEXT NOT NULL,
	message   TEXT NOT NULL,
	logged_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS vacation_runs_started_idx ON vacation_runs (started_at DESC);
`

type RunRepository struct {
	db *sql.DB
}

// NewRunRepository stores run history in PostgreSQL.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// EnsureSchema creates the history tables when missing.
func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func upsertRunQuery(log *domain.OperationLog) (string, []interface{}) {
	rec := log.Record()
	var finished interface{}
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt
	}
	outputs := log.OutputFiles
	if outputs == nil {
		outputs = []string{}
	}
	return builder.NewSQLBuilder().
		Insert(runsTable, runColumns...).
		Values(rec.ID, rec.Operation, string(rec.Status), rec.Processed, rec.Errors,
			rec.StartedAt, finished, rec.Messages, pq.Array(outputs)).
		OnConflict("id", "status", "processed", "errors", "finished_at", "messages", "output_files").
		Build()
}

func listRunsQuery(filter domain.RunFilter) (string, []interface{}) {
	b := builder.NewSQLBuilder().
		Select("id", "operation", "status", "processed", "errors", "started_at", "COALESCE(finished_at, started_at)", "messages").
		From(runsTable).
		OrderBy("started_at DESC")
	if filter.Operation != "" {
		b.Where("operation = ?", filter.Operation)
	}
	if filter.Limit > 0 {
		b.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		b.Offset(filter.Offset)
	}
	return b.Build()
}

// Save upserts the run and replaces its entries in one transaction.
func (r *RunRepository) Save(ctx context.Context, log *domain.OperationLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query, args := upsertRunQuery(log)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run %s: %w", log.ID, err)
	}

	query, args = builder.NewSQLBuilder().Delete(entriesTable).Where("run_id = ?", log.ID).Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear entries of %s: %w", log.ID, err)
	}

	if len(log.Entries) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(entriesTable, "run_id", "seq", "level", "message", "logged_at"))
		if err != nil {
			return err
		}
		for i, e := range log.Entries {
			if _, err := stmt.ExecContext(ctx, log.ID, i+1, string(e.Level), e.Message, e.Timestamp); err != nil {
				stmt.Close()
				return fmt.Errorf("copy entry %d: %w", i+1, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flush entries: %w", err)
		}
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *RunRepository) List(ctx context.Context, filter domain.RunFilter) ([]domain.RunRecord, error) {
	query, args := listRunsQuery(filter)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.Operation, &status, &rec.Processed, &rec.Errors,
			&rec.StartedAt, &rec.FinishedAt, &rec.Messages); err != nil {
			return nil, err
		}
		rec.Status = domain.ProcessingStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
