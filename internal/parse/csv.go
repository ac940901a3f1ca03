package parse

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineBytes bounds a single CSV or JSONL line (1MB).
const maxLineBytes = 1024 * 1024

// CSVParser reads delimiter-separated values line by line. TSV is the same
// algorithm with '\t' configured as the delimiter.
//
// Reading is line-oriented: a quoted field cannot contain an embedded
// newline. Such a field surfaces as an unterminated-quote error row for its
// opening line, and the continuation lines parse as records of their own.
// This keeps line numbers accurate for error reporting.
type CSVParser struct{}

// Parse implements Parser.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader, cfg FormatConfig) RowReader {
	return &csvRows{ctx: ctx, cfg: cfg, src: r}
}

type csvRows struct {
	ctx     context.Context
	cfg     FormatConfig
	src     io.Reader
	scanner *bufio.Scanner
	header  []string
	line    int
	started bool
	done    bool
}

func (c *csvRows) Next() (Row, error) {
	if err := c.ctx.Err(); err != nil {
		return Row{}, err
	}
	if c.done {
		return Row{}, io.EOF
	}
	if !c.started {
		c.started = true
		if err := c.init(); err != nil {
			c.done = true
			return errorRow(1, "invalid CSV header: "+err.Error()), nil
		}
	}
	for {
		if err := c.ctx.Err(); err != nil {
			return Row{}, err
		}
		if !c.scanner.Scan() {
			c.done = true
			if err := c.scanner.Err(); err != nil {
				return errorRow(c.line+1, "read error: "+err.Error()), nil
			}
			return Row{}, io.EOF
		}
		c.line++
		line := c.scanner.Text()
		if c.cfg.TrimWhitespace {
			line = strings.TrimSpace(line)
		}
		// Empty lines produce no row, not even an error.
		if line == "" {
			continue
		}
		fields, err := splitFields(line, c.cfg.delimiter(), c.cfg.quote())
		if err != nil {
			return errorRow(c.line, err.Error()), nil
		}
		return c.buildRow(fields), nil
	}
}

// init sets up the line scanner, discards SkipRows lines, and captures the
// header row. Skipped lines are discarded unconditionally and never counted
// as data.
func (c *csvRows) init() error {
	c.scanner = bufio.NewScanner(decodeReader(c.src, c.cfg.Encoding))
	c.scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for i := 0; i < c.cfg.SkipRows; i++ {
		if !c.scanner.Scan() {
			return nil
		}
	}

	if c.cfg.HasHeader {
		if !c.scanner.Scan() {
			return nil
		}
		line := c.scanner.Text()
		if c.cfg.TrimWhitespace {
			line = strings.TrimSpace(line)
		}
		names, err := splitFields(line, c.cfg.delimiter(), c.cfg.quote())
		if err != nil {
			return err
		}
		if c.cfg.TrimWhitespace {
			for i, n := range names {
				names[i] = strings.TrimSpace(n)
			}
		}
		c.header = names
	}
	return nil
}

// buildRow maps split fields onto column names. With a header, missing
// trailing fields fill with the empty string and extra fields beyond the
// header are dropped. Without one, columns are named Col1..ColN by position.
func (c *csvRows) buildRow(fields []string) Row {
	cols := NewColumns()
	if c.header != nil {
		for i, name := range c.header {
			var field string
			if i < len(fields) {
				field = fields[i]
			}
			cols.Set(name, c.fieldValue(field))
		}
	} else {
		for i, field := range fields {
			cols.Set("Col"+strconv.Itoa(i+1), c.fieldValue(field))
		}
	}
	return Row{LineNumber: c.line, Columns: cols}
}

func (c *csvRows) fieldValue(field string) Value {
	if c.cfg.TrimWhitespace {
		field = strings.TrimSpace(field)
	}
	if c.cfg.isNullSentinel(field) {
		return Null()
	}
	return String(field)
}

// splitFields splits one logical line into fields using a character-level
// state machine with two states, inside and outside quotes.
//
// Outside quotes a quote character entering an empty field buffer starts
// quoted mode and a delimiter ends the field. Inside quotes a doubled quote
// is an escaped literal quote, a single quote exits quoted mode, and
// everything else (delimiters included) is appended verbatim. A quote still
// open at end of line is the one way splitting fails.
func splitFields(line string, delim, quote rune) ([]string, error) {
	var fields []string
	var buf strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if inQuotes {
			if ch == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					buf.WriteRune(quote)
					i++
				} else {
					inQuotes = false
				}
				continue
			}
			buf.WriteRune(ch)
			continue
		}
		switch {
		case ch == quote && buf.Len() == 0:
			inQuotes = true
		case ch == delim:
			fields = append(fields, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(ch)
		}
	}

	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted field (values cannot contain line breaks)")
	}
	fields = append(fields, buf.String())
	return fields, nil
}
