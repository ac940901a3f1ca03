package parse

import "strings"

// FormatConfig controls how a stream is interpreted. It is supplied by the
// caller per parse operation and is read-only for the duration of the call.
// The zero value is usable: comma-delimited, double-quoted, UTF-8 CSV with
// no header.
type FormatConfig struct {
	// Delimiter separates CSV fields. Zero means ','. TSV profiles set '\t'
	// here; the format name never implies the delimiter.
	Delimiter rune

	// QuoteChar wraps CSV fields that contain the delimiter. Zero means '"'.
	QuoteChar rune

	// Encoding is an IANA character set name ("utf-8", "windows-1252", ...)
	// resolved to a decoder. Empty or unrecognized falls back to UTF-8.
	// A leading UTF-8 BOM is always stripped.
	Encoding string

	// HasHeader makes the first line (after SkipRows) the CSV column names.
	// Without it, columns are synthesized as Col1..ColN.
	HasHeader bool

	// SkipRows is the number of CSV lines discarded before parsing begins.
	// Skipped lines are not counted as data.
	SkipRows int

	// TrimWhitespace trims every CSV line and field before interpretation.
	TrimWhitespace bool

	// NullValue, when non-nil, is a sentinel: any CSV field exactly equal to
	// it becomes a null value instead of the literal string.
	NullValue *string

	// JSONLines selects newline-delimited-document mode for the JSON parser.
	JSONLines bool

	// DataRootPath is a dot-separated path (optionally prefixed with "$" or
	// "$.") locating the record array/object inside a larger JSON or YAML
	// document. It traverses object properties only.
	DataRootPath string

	// RecordElement is the path expression selecting XML record nodes.
	// Empty means all direct children of the document element.
	RecordElement string

	// XMLNamespace, when set, namespace-qualifies all XML path evaluation.
	// Callers supply only the URI; the prefix is fixed and internal.
	XMLNamespace string
}

func (c FormatConfig) delimiter() rune {
	if c.Delimiter == 0 {
		return ','
	}
	return c.Delimiter
}

func (c FormatConfig) quote() rune {
	if c.QuoteChar == 0 {
		return '"'
	}
	return c.QuoteChar
}

// rootPathSegments splits DataRootPath into its dot-path segments, stripping
// the optional "$" / "$." prefix. Returns nil when no navigation is needed.
func (c FormatConfig) rootPathSegments() []string {
	p := strings.TrimSpace(c.DataRootPath)
	if p == "" {
		return nil
	}
	if p == "$" {
		return nil
	}
	p = strings.TrimPrefix(p, "$.")
	p = strings.TrimPrefix(p, "$")
	if p == "" {
		return nil
	}
	return strings.Split(p, ".")
}

// isNullSentinel reports whether field matches the configured null literal.
func (c FormatConfig) isNullSentinel(field string) bool {
	return c.NullValue != nil && field == *c.NullValue
}
