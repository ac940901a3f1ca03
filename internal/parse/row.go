package parse

import (
	"bytes"
	"encoding/json"
)

// Columns is an insertion-ordered mapping of column name to value. Column
// names are case-sensitive as produced by the source format. Setting an
// existing name overwrites the value but keeps the original position.
type Columns struct {
	names  []string
	values map[string]Value
}

// NewColumns returns an empty column map.
func NewColumns() *Columns {
	return &Columns{values: make(map[string]Value)}
}

// Set stores a value under name, appending the name on first insertion.
func (c *Columns) Set(name string, v Value) {
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = v
}

// Get returns the value for name and whether it is present.
func (c *Columns) Get(name string) (Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Names returns the column names in insertion order. The returned slice is
// shared; callers must not modify it.
func (c *Columns) Names() []string {
	if c == nil {
		return nil
	}
	return c.names
}

// Len returns the number of columns.
func (c *Columns) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// MarshalJSON implements json.Marshaler, preserving column order.
func (c *Columns) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := c.values[name].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Row is one logical record extracted from a source document.
//
// A row is either a data row (Columns populated, ParseError empty) or an
// error row (ParseError set, Columns nil); never both. Error rows are
// yielded rather than aborting the stream so that one malformed record
// does not cost the caller the rest of the file.
type Row struct {
	// LineNumber is the 1-based position of the record in the source: CSV
	// line count after header and skipped rows, JSON array index, XML node
	// index, YAML list index. Always set, even on error rows.
	LineNumber int `json:"lineNumber"`

	// Columns holds the record's values in source order. Nil on error rows.
	Columns *Columns `json:"columns,omitempty"`

	// ParseError describes why this single record could not be parsed.
	// Empty on data rows.
	ParseError string `json:"parseError,omitempty"`

	// Skipped marks a row filtered out by a downstream consumer. Parsers
	// never set it.
	Skipped bool `json:"isSkipped,omitempty"`
}

// errorRow builds a record-level or document-level error row.
func errorRow(line int, msg string) Row {
	return Row{LineNumber: line, ParseError: msg}
}
