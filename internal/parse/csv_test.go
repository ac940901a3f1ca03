package parse

import (
	"context"
	"io"
	"strings"
	"testing"
)

// collect drains a RowReader for tests.
func collect(t *testing.T, format, input string, cfg FormatConfig) []Row {
	t.Helper()
	p, err := New(format)
	if err != nil {
		t.Fatalf("New(%q): %v", format, err)
	}
	rows := p.Parse(context.Background(), strings.NewReader(input), cfg)
	var out []Row
	for {
		row, err := rows.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, row)
	}
	return out
}

func colString(t *testing.T, row Row, name string) string {
	t.Helper()
	v, ok := row.Columns.Get(name)
	if !ok {
		t.Fatalf("column %q missing (have %v)", name, row.Columns.Names())
	}
	return v.String()
}

func TestCSVRoundTrip(t *testing.T) {
	rows := collect(t, "CSV", "a,b,\"c,d\",e\nf,g,h,i", FormatConfig{})

	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := [][]string{
		{"a", "b", "c,d", "e"},
		{"f", "g", "h", "i"},
	}
	for i, row := range rows {
		if row.LineNumber != i+1 {
			t.Errorf("row %d: line = %d, want %d", i, row.LineNumber, i+1)
		}
		names := row.Columns.Names()
		if len(names) != 4 {
			t.Fatalf("row %d: got %d columns, want 4", i, len(names))
		}
		for j, name := range []string{"Col1", "Col2", "Col3", "Col4"} {
			if got := colString(t, row, name); got != want[i][j] {
				t.Errorf("row %d %s = %q, want %q", i, name, got, want[i][j])
			}
		}
	}
}

func TestCSVEscapedQuote(t *testing.T) {
	rows := collect(t, "CSV", `"she said ""hi"""`, FormatConfig{})
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if got := colString(t, rows[0], "Col1"); got != `she said "hi"` {
		t.Errorf("got %q, want %q", got, `she said "hi"`)
	}
}

func TestCSVHeader(t *testing.T) {
	tests := []struct {
		name string
		input string
		cfg  FormatConfig
		rows int
		cols map[string]string // expectations on the first row
	}{
		{
			name:  "header names columns",
			input: "id,name\n1,foo\n2,bar",
			cfg:   FormatConfig{HasHeader: true},
			rows:  2,
			cols:  map[string]string{"id": "1", "name": "foo"},
		},
		{
			name:  "skip rows before header",
			input: "junk line\nanother\nid,name\n1,foo",
			cfg:   FormatConfig{HasHeader: true, SkipRows: 2},
			rows:  1,
			cols:  map[string]string{"id": "1", "name": "foo"},
		},
		{
			name:  "missing trailing fields fill empty",
			input: "a,b,c\n1,2",
			cfg:   FormatConfig{HasHeader: true},
			rows:  1,
			cols:  map[string]string{"a": "1", "b": "2", "c": ""},
		},
		{
			name:  "tab delimiter",
			input: "x\ty\n1\t2",
			cfg:   FormatConfig{HasHeader: true, Delimiter: '\t'},
			rows:  1,
			cols:  map[string]string{"x": "1", "y": "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := collect(t, "CSV", tt.input, tt.cfg)
			if len(rows) != tt.rows {
				t.Fatalf("got %d rows, want %d", len(rows), tt.rows)
			}
			for name, want := range tt.cols {
				if got := colString(t, rows[0], name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestCSVNullSentinel(t *testing.T) {
	null := "NULL"
	rows := collect(t, "CSV", "NULL,NULLABLE,ok", FormatConfig{NullValue: &null})
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	v, _ := rows[0].Columns.Get("Col1")
	if !v.IsNull() {
		t.Errorf("Col1 = %v, want null", v)
	}
	if got := colString(t, rows[0], "Col2"); got != "NULLABLE" {
		t.Errorf("Col2 = %q, want NULLABLE (sentinel must match exactly)", got)
	}
	if got := colString(t, rows[0], "Col3"); got != "ok" {
		t.Errorf("Col3 = %q, want ok", got)
	}
}

func TestCSVTrimWhitespace(t *testing.T) {
	rows := collect(t, "CSV", "  a  ,  b  ", FormatConfig{TrimWhitespace: true})
	if got := colString(t, rows[0], "Col1"); got != "a" {
		t.Errorf("Col1 = %q, want a", got)
	}
	if got := colString(t, rows[0], "Col2"); got != "b" {
		t.Errorf("Col2 = %q, want b", got)
	}
}

func TestCSVEmptyLinesSkipped(t *testing.T) {
	rows := collect(t, "CSV", "a\n\n\nb\n", FormatConfig{})
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	// Blank lines consume line numbers but emit nothing.
	if rows[0].LineNumber != 1 || rows[1].LineNumber != 4 {
		t.Errorf("line numbers = %d,%d, want 1,4", rows[0].LineNumber, rows[1].LineNumber)
	}
}

func TestCSVErrorIsolation(t *testing.T) {
	// Line 2 has an unterminated quote; lines 1 and 3 are fine.
	input := "a,b\n\"broken,c\nd,e"
	rows := collect(t, "CSV", input, FormatConfig{})

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].ParseError != "" || rows[2].ParseError != "" {
		t.Errorf("good rows carry errors: %q, %q", rows[0].ParseError, rows[2].ParseError)
	}
	if rows[1].ParseError == "" {
		t.Error("row 2 should be an error row")
	}
	if rows[1].LineNumber != 2 {
		t.Errorf("error row line = %d, want 2", rows[1].LineNumber)
	}
	if rows[1].Columns.Len() != 0 {
		t.Error("error row must not carry columns")
	}
	if got := colString(t, rows[2], "Col1"); got != "d" {
		t.Errorf("row 3 Col1 = %q, want d", got)
	}
}

func TestCSVCancellation(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10000; i++ {
		sb.WriteString("a,b,c\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p, _ := New("CSV")
	rows := p.Parse(ctx, strings.NewReader(sb.String()), FormatConfig{})

	for i := 0; i < 5; i++ {
		if _, err := rows.Next(); err != nil {
			t.Fatalf("row %d: %v", i, err)
		}
	}
	cancel()

	row, err := rows.Next()
	if err != context.Canceled {
		t.Fatalf("Next after cancel = %v, want context.Canceled", err)
	}
	if row.ParseError != "" {
		t.Errorf("cancellation must not surface as a parse error, got %q", row.ParseError)
	}
	// The reader stays cancelled.
	if _, err := rows.Next(); err != context.Canceled {
		t.Errorf("second Next after cancel = %v, want context.Canceled", err)
	}
}

func TestSplitFieldsQuoting(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  []string
		isErr bool
	}{
		{name: "plain", line: "a,b,c", want: []string{"a", "b", "c"}},
		{name: "quoted delimiter", line: `"a,b",c`, want: []string{"a,b", "c"}},
		{name: "empty fields", line: ",,", want: []string{"", "", ""}},
		{name: "quote mid-field is literal", line: `ab"cd,e`, want: []string{`ab"cd`, "e"}},
		{name: "escaped quotes", line: `"x""y"`, want: []string{`x"y`}},
		{name: "unterminated", line: `"abc`, isErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitFields(tt.line, ',', '"')
			if tt.isErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("field %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
