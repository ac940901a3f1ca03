package ingest

import (
	"context"
	"io"
	"time"

	"github.com/melosso/reef-sub003/internal/delta"
	"github.com/melosso/reef-sub003/internal/parse"
)

// CompareResult classifies the records of a current file against a
// previous one. Error rows are excluded from both snapshots and counted
// separately.
type CompareResult struct {
	Changes          delta.Changes `json:"changes"`
	PreviousRows     int           `json:"previousRows"`
	CurrentRows      int           `json:"currentRows"`
	ErrorRows        int           `json:"errorRows"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
}

// Compare parses two streams of the same format and reports which record
// keys were added, changed, or removed between them. Both streams use the
// same format configuration and key columns.
func (s *Service) Compare(ctx context.Context, format string, previous, current io.Reader, fcfg parse.FormatConfig, keyColumns []string) (*CompareResult, error) {
	parser, err := parse.New(format)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	hasher := delta.NewHasher(keyColumns)
	result := &CompareResult{}

	prev, err := snapshot(ctx, parser, previous, fcfg, hasher, &result.PreviousRows, &result.ErrorRows)
	if err != nil {
		return nil, err
	}
	cur, err := snapshot(ctx, parser, current, fcfg, hasher, &result.CurrentRows, &result.ErrorRows)
	if err != nil {
		return nil, err
	}

	result.Changes = delta.Diff(prev, cur)
	result.ProcessingTimeMs = elapsedMs(start)
	return result, nil
}

// snapshot consumes a full stream into a key-to-hash map. When the same
// key appears more than once the last occurrence wins.
func snapshot(ctx context.Context, parser parse.Parser, r io.Reader, fcfg parse.FormatConfig, hasher *delta.Hasher, dataRows, errorRows *int) (delta.Snapshot, error) {
	snap := make(delta.Snapshot)
	rows := parser.Parse(ctx, r, fcfg)
	for {
		row, err := rows.Next()
		if err == io.EOF {
			return snap, nil
		}
		if err != nil {
			return nil, err
		}
		if row.ParseError != "" {
			*errorRows++
			continue
		}
		*dataRows++
		if d, ok := hasher.Digest(row); ok && d.Key != "" {
			snap[d.Key] = d.Hash
		}
	}
}
