package parse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedFormat is returned by New for format names it does not
// recognize. The failure happens at selection time, before any stream is
// touched, rather than silently defaulting to a guessed parser.
var ErrUnsupportedFormat = errors.New("unsupported format")

// RowReader is a lazy, single-pass, forward-only iterator over parsed rows.
//
// Next returns io.EOF after the last row. When the parse context is
// cancelled, Next returns the context's error and produces no further rows;
// cancellation is never reported as a row's ParseError. A RowReader is
// restartable only by re-invoking Parse on a fresh stream.
type RowReader interface {
	Next() (Row, error)
}

// Parser converts a byte stream plus a format configuration into a row
// sequence. Implementations never close the reader.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, cfg FormatConfig) RowReader
}

// Formats lists the supported format identifiers.
func Formats() []string {
	return []string{"CSV", "TSV", "JSON", "JSONL", "XML", "YAML", "YML"}
}

// New maps a case-insensitive format name to a parser.
//
// CSV and TSV share one parser (the tab delimiter comes from the config, not
// the name), as do JSON and JSONL (line-delimited mode comes from the
// config). Unrecognized names fail immediately with ErrUnsupportedFormat.
func New(format string) (Parser, error) {
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "CSV", "TSV":
		return &CSVParser{}, nil
	case "JSON", "JSONL":
		return &JSONParser{}, nil
	case "XML":
		return &XMLParser{}, nil
	case "YAML", "YML":
		return &YAMLParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// docRows backs the whole-document formats (JSON document mode, XML, YAML).
// The document parse runs lazily on the first Next call; extracted rows are
// then emitted one at a time with a cancellation check per step. A document
// that fails to parse loads as a single error row.
type docRows struct {
	ctx    context.Context
	load   func() []Row
	rows   []Row
	pos    int
	loaded bool
}

func (d *docRows) Next() (Row, error) {
	if err := d.ctx.Err(); err != nil {
		return Row{}, err
	}
	if !d.loaded {
		d.rows = d.load()
		d.loaded = true
		d.load = nil
	}
	if d.pos >= len(d.rows) {
		return Row{}, io.EOF
	}
	row := d.rows[d.pos]
	d.pos++
	return row, nil
}

// documentError is the single terminal row for inputs that cannot be parsed
// as a document of the expected shape at all.
func documentError(format string, err error) []Row {
	return []Row{errorRow(1, fmt.Sprintf("invalid %s document: %v", format, err))}
}
