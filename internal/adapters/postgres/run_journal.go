package postgres

import (
	"context"
	"errors"
	"fmt"
	"oikotie-parser-service/internal/contextkeys"
	"oikotie-parser-service/internal/core/domain"
	"oikotie-parser-service/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX - часть *pgxpool.Pool, которой пользуется журнал
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRunJournal реализует RunJournalPort для PostgreSQL
type PostgresRunJournal struct {
	dbPool DBTX
}

// NewPostgresRunJournal создает новый экземпляр PostgresRunJournal
func NewPostgresRunJournal(dbPool DBTX) (*PostgresRunJournal, error) {
	if dbPool == nil {
		return nil, fmt.Errorf("postgres run journal: dbPool cannot be nil")
	}
	return &PostgresRunJournal{dbPool: dbPool}, nil
}

// EnsureSchema создает таблицу журнала, если ее еще нет
func (r *PostgresRunJournal) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS oikotie_snapshot_runs (
			run_id          UUID PRIMARY KEY,
			parser_name     VARCHAR(255) NOT NULL,
			file_path       TEXT NOT NULL,
			requested_count INTEGER NOT NULL,
			collected_count INTEGER NOT NULL,
			batches         INTEGER NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL,
			finished_at     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_oikotie_snapshot_runs_parser_finished
			ON oikotie_snapshot_runs (parser_name, finished_at DESC);
	`
	if _, err := r.dbPool.Exec(ctx, query); err != nil {
		return fmt.Errorf("PostgresRunJournal: error creating schema: %w", err)
	}
	return nil
}

// LastRun возвращает самый поздний запуск парсера или nil, если запусков еще не было
func (r *PostgresRunJournal) LastRun(ctx context.Context, parserName string) (*domain.RunRecord, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresRunJournal",
		"method":    "LastRun",
	})

	query := `
		SELECT run_id, parser_name, file_path, requested_count, collected_count, batches, started_at, finished_at
		FROM oikotie_snapshot_runs
		WHERE parser_name = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var run domain.RunRecord
	err := r.dbPool.QueryRow(ctx, query, parserName).Scan(
		&run.RunID,
		&run.ParserName,
		&run.FilePath,
		&run.RequestedCount,
		&run.CollectedCount,
		&run.Batches,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			repoLogger.Debug("No previous run found", port.Fields{"parser_name": parserName})
			return nil, nil
		}
		repoLogger.Error("Error getting last run", err, port.Fields{"parser_name": parserName})
		return nil, fmt.Errorf("PostgresRunJournal: error querying last run for parser '%s': %w", parserName, err)
	}

	return &run, nil
}

// RecordRun сохраняет завершенный запуск
func (r *PostgresRunJournal) RecordRun(ctx context.Context, run domain.RunRecord) error {
	logger := contextkeys.LoggerFromContext(ctx)
	repoLogger := logger.WithFields(port.Fields{
		"component": "PostgresRunJournal",
		"method":    "RecordRun",
	})

	query := `
		INSERT INTO oikotie_snapshot_runs
			(run_id, parser_name, file_path, requested_count, collected_count, batches, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.dbPool.Exec(ctx, query,
		run.RunID,
		run.ParserName,
		run.FilePath,
		run.RequestedCount,
		run.CollectedCount,
		run.Batches,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		repoLogger.Error("Error recording run", err, port.Fields{"run_id": run.RunID.String()})
		return fmt.Errorf("PostgresRunJournal: error recording run %s: %w", run.RunID, err)
	}

	repoLogger.Debug("Run recorded", port.Fields{"run_id": run.RunID.String(), "file_path": run.FilePath})
	return nil
}
