// Package ingest provides the import operations built on top of the format
// parsers: row-capped previews, snapshot comparison for delta sync, and
// loading parsed rows into the staging database.
//
// This package has no transport dependencies and is used by the web layer,
// CLI tooling, and tests alike.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/semaphore"

	"github.com/melosso/reef-sub003/internal/config"
)

// ErrTooManyImports is returned when all import slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// ErrLoadingDisabled is returned by Load when no database is configured.
var ErrLoadingDisabled = errors.New("database loading is not configured")

// Service is the entry point for import operations. A nil pool disables
// database loading; preview and compare keep working without one.
type Service struct {
	pool *pgxpool.Pool
	cfg  *config.Config
	sem  *semaphore.Weighted
}

// NewService creates a service with the configured concurrency limit.
func NewService(pool *pgxpool.Pool, cfg *config.Config) *Service {
	return &Service{
		pool: pool,
		cfg:  cfg,
		sem:  semaphore.NewWeighted(int64(cfg.Import.MaxConcurrent)),
	}
}

// acquire claims an import slot, waiting up to the configured maximum.
// The returned release function must be called exactly once.
func (s *Service) acquire(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.Import.MaxWaitTime)
	defer cancel()

	if err := s.sem.Acquire(waitCtx, 1); err != nil {
		// Distinguish caller cancellation from slot starvation.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrTooManyImports
	}
	return func() { s.sem.Release(1) }, nil
}

// elapsedMs returns wall time since start in whole milliseconds.
func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
