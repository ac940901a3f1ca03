package ingest

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/melosso/reef-sub003/internal/delta"
	"github.com/melosso/reef-sub003/internal/parse"
)

const (
	maxErrorSamples     = 20
	maxDuplicateSamples = 10
)

// PreviewSummary aggregates counts over the previewed rows.
type PreviewSummary struct {
	TotalRows       int  `json:"totalRows"`
	DataRows        int  `json:"dataRows"`
	ErrorRows       int  `json:"errorRows"`
	DuplicateInFile int  `json:"duplicateInFile"`
	Truncated       bool `json:"truncated"`
}

// RowError is a sampled parse failure from the previewed stream.
type RowError struct {
	LineNumber int    `json:"lineNumber"`
	Message    string `json:"message"`
}

// DuplicateKey reports a record key that appeared on more than one row.
type DuplicateKey struct {
	Key         string `json:"key"`
	LineNumbers []int  `json:"lineNumbers"`
}

// PreviewResult is the outcome of a row-capped preview pass.
type PreviewResult struct {
	Summary          PreviewSummary `json:"summary"`
	Rows             []parse.Row    `json:"rows"`
	Errors           []RowError     `json:"errors,omitempty"`
	Duplicates       []DuplicateKey `json:"duplicates,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// Preview parses at most the configured number of rows from r and reports
// what a full import would see: sample rows, parse failures, and record
// keys that repeat within the file. keyColumns selects the columns used
// for duplicate detection; when empty the full row content is the key.
func (s *Service) Preview(ctx context.Context, format string, r io.Reader, fcfg parse.FormatConfig, keyColumns []string) (*PreviewResult, error) {
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
	limit := s.cfg.Import.PreviewRows
	hasher := delta.NewHasher(keyColumns)
	seen := make(map[string][]int)

	result := &PreviewResult{Rows: make([]parse.Row, 0, limit)}
	rows := parser.Parse(ctx, r, fcfg)

	for {
		if result.Summary.TotalRows >= limit {
			result.Summary.Truncated = true
			break
		}
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		result.Summary.TotalRows++
		if row.ParseError != "" {
			result.Summary.ErrorRows++
			if len(result.Errors) < maxErrorSamples {
				result.Errors = append(result.Errors, RowError{
					LineNumber: row.LineNumber,
					Message:    row.ParseError,
				})
			}
			continue
		}

		result.Summary.DataRows++
		result.Rows = append(result.Rows, row)

		if d, ok := hasher.Digest(row); ok && d.Key != "" {
			seen[d.Key] = append(seen[d.Key], row.LineNumber)
		}
	}

	keys := make([]string, 0, len(seen))
	for key, lines := range seen {
		if len(lines) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		result.Summary.DuplicateInFile++
		if len(result.Duplicates) < maxDuplicateSamples {
			result.Duplicates = append(result.Duplicates, DuplicateKey{
				Key:         key,
				LineNumbers: seen[key],
			})
		}
	}

	result.ProcessingTimeMs = elapsedMs(start)
	slog.Debug("preview complete",
		"format", format,
		"total_rows", result.Summary.TotalRows,
		"error_rows", result.Summary.ErrorRows,
		"duration_ms", result.ProcessingTimeMs,
	)
	return result, nil
}
