package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/melosso/reef-sub003/internal/parse"
)

// LoadResult summarizes a completed staging load.
type LoadResult struct {
	ImportID   string        `json:"importId"`
	TotalRows  int           `json:"totalRows"`
	LoadedRows int           `json:"loadedRows"`
	ErrorRows  int           `json:"errorRows"`
	Duration   time.Duration `json:"-"`
}

const createStagingSQL = `
CREATE TABLE IF NOT EXISTS import_rows (
	import_id   UUID        NOT NULL,
	profile     TEXT        NOT NULL,
	line_number INTEGER     NOT NULL,
	columns     JSONB,
	parse_error TEXT,
	loaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertRowSQL = `
INSERT INTO import_rows (import_id, profile, line_number, columns, parse_error)
VALUES ($1, $2, $3, $4, $5)`

// Load parses the full stream and writes every row, including error rows,
// into the import_rows staging table under a fresh import id. The load
// runs in a single transaction with a savepoint per batch, so one bad
// batch does not lose the rows before it. size is the stream length in
// bytes when known, zero otherwise; it only affects progress logging.
func (s *Service) Load(ctx context.Context, profile, format string, r io.Reader, size int64, fcfg parse.FormatConfig) (*LoadResult, error) {
	if s.pool == nil {
		return nil, ErrLoadingDisabled
	}

	parser, err := parse.New(format)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.Import.Timeout)
	defer cancel()

	start := time.Now()
	importID := uuid.New()
	result := &LoadResult{ImportID: importID.String()}

	tx, err := s.pool.Begin(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback(loadCtx)

	if _, err := tx.Exec(loadCtx, createStagingSQL); err != nil {
		return nil, fmt.Errorf("ensure staging table: %w", err)
	}

	counting := parse.NewCountingReader(r, size)
	rows := parser.Parse(loadCtx, counting, fcfg)
	batch := make([]parse.Row, 0, s.cfg.Import.BatchSize)
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		result.TotalRows++
		if row.ParseError != "" {
			result.ErrorRows++
		}
		batch = append(batch, row)
		if len(batch) >= s.cfg.Import.BatchSize {
			if err := s.insertBatch(loadCtx, tx, importID, profile, batch); err != nil {
				return nil, err
			}
			result.LoadedRows += len(batch)
			batch = batch[:0]
			slog.Debug("import progress",
				"import_id", result.ImportID,
				"rows", result.TotalRows,
				"progress_pct", counting.Progress(),
			)
		}
	}
	if len(batch) > 0 {
		if err := s.insertBatch(loadCtx, tx, importID, profile, batch); err != nil {
			return nil, err
		}
		result.LoadedRows += len(batch)
	}

	if err := tx.Commit(loadCtx); err != nil {
		return nil, fmt.Errorf("commit import %s: %w", importID, err)
	}

	result.Duration = time.Since(start)
	slog.Info("import loaded",
		"import_id", result.ImportID,
		"profile", profile,
		"format", format,
		"total_rows", result.TotalRows,
		"error_rows", result.ErrorRows,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// insertBatch writes one batch inside a savepoint so a mid-batch failure
// rolls back to the last committed batch boundary before surfacing.
func (s *Service) insertBatch(ctx context.Context, tx pgx.Tx, importID uuid.UUID, profile string, batch []parse.Row) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch savepoint: %w", err)
	}
	defer sp.Rollback(ctx)

	for _, row := range batch {
		columns, parseErr, err := stagingValues(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", row.LineNumber, err)
		}
		if _, err := sp.Exec(ctx, insertRowSQL, importID, profile, row.LineNumber, columns, parseErr); err != nil {
			return fmt.Errorf("insert row %d: %w", row.LineNumber, err)
		}
	}
	return sp.Commit(ctx)
}

// stagingValues converts a row into its staging column values: the column
// map as JSONB (null for error rows) and a nullable parse error text.
func stagingValues(row parse.Row) ([]byte, pgtype.Text, error) {
	var parseErr pgtype.Text
	if row.ParseError != "" {
		parseErr = pgtype.Text{String: row.ParseError, Valid: true}
	}
	if row.Columns == nil || row.Columns.Len() == 0 {
		return nil, parseErr, nil
	}
	columns, err := json.Marshal(row.Columns)
	if err != nil {
		return nil, parseErr, err
	}
	return columns, parseErr, nil
}
