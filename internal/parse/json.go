package parse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// JSONParser reads JSON in one of two modes.
//
// Document mode reads the entire stream as one JSON document, optionally
// navigates into it via DataRootPath, and requires the resolved node to be
// an array (one row per element) or a single object (exactly one row).
//
// Line-delimited mode parses each non-blank line as an independent document,
// giving per-record fault isolation that document mode cannot: a malformed
// line yields one error row and parsing continues.
type JSONParser struct{}

// Parse implements Parser.
func (p *JSONParser) Parse(ctx context.Context, r io.Reader, cfg FormatConfig) RowReader {
	if cfg.JSONLines {
		return &jsonLineRows{ctx: ctx, cfg: cfg, src: r}
	}
	return &docRows{ctx: ctx, load: func() []Row { return parseJSONDocument(r, cfg) }}
}

// --- document mode ---

func parseJSONDocument(r io.Reader, cfg FormatConfig) []Row {
	dec := json.NewDecoder(decodeReader(r, cfg.Encoding))
	dec.UseNumber()

	root, err := readJSONValue(dec)
	if err != nil {
		return documentError("JSON", err)
	}

	node := root
	for _, seg := range cfg.rootPathSegments() {
		obj, ok := node.(*jsonObject)
		if !ok {
			return documentError("JSON", fmt.Errorf("data root path %q: segment %q is not an object", cfg.DataRootPath, seg))
		}
		next, ok := obj.get(seg)
		if !ok {
			return documentError("JSON", fmt.Errorf("data root path %q: property %q not found", cfg.DataRootPath, seg))
		}
		node = next
	}

	switch n := node.(type) {
	case *jsonArray:
		rows := make([]Row, 0, len(n.elems))
		for i, elem := range n.elems {
			rows = append(rows, jsonElementRow(i+1, elem))
		}
		return rows
	case *jsonObject:
		return []Row{jsonElementRow(1, n)}
	default:
		return documentError("JSON", fmt.Errorf("data root must be an array or object"))
	}
}

// --- line-delimited mode ---

type jsonLineRows struct {
	ctx     context.Context
	cfg     FormatConfig
	src     io.Reader
	scanner *bufio.Scanner
	line    int
	done    bool
}

func (j *jsonLineRows) Next() (Row, error) {
	if err := j.ctx.Err(); err != nil {
		return Row{}, err
	}
	if j.done {
		return Row{}, io.EOF
	}
	if j.scanner == nil {
		j.scanner = bufio.NewScanner(decodeReader(j.src, j.cfg.Encoding))
		j.scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	}
	for {
		if err := j.ctx.Err(); err != nil {
			return Row{}, err
		}
		if !j.scanner.Scan() {
			j.done = true
			if err := j.scanner.Err(); err != nil {
				return errorRow(j.line+1, "read error: "+err.Error()), nil
			}
			return Row{}, io.EOF
		}
		j.line++
		line := strings.TrimSpace(j.scanner.Text())
		if line == "" {
			continue
		}
		val, err := parseJSONLine(line)
		if err != nil {
			return errorRow(j.line, "invalid JSON: "+err.Error()), nil
		}
		row := jsonElementRow(0, val)
		row.LineNumber = j.line
		return row, nil
	}
}

func parseJSONLine(line string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	val, err := readJSONValue(dec)
	if err != nil {
		return nil, err
	}
	// A line is one document; trailing tokens make it malformed.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return val, nil
}

// --- row construction ---

// jsonElementRow converts one record element into a row. Object elements map
// each property to a column. Anything else (pure scalars, arrays) wraps
// under the key "value".
func jsonElementRow(line int, elem any) Row {
	cols := NewColumns()
	if obj, ok := elem.(*jsonObject); ok {
		for i, key := range obj.keys {
			cols.Set(key, jsonColumnValue(obj.vals[i]))
		}
	} else {
		cols.Set("value", jsonColumnValue(elem))
	}
	return Row{LineNumber: line, Columns: cols}
}

// jsonColumnValue maps a decoded JSON value to a column value. Objects and
// arrays are not recursively flattened; they are re-serialized to compact
// JSON text so callers that want the nested structure can parse it later.
func jsonColumnValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case json.Number:
		return convertJSONNumber(t)
	default:
		return Raw(encodeJSON(v))
	}
}

// convertJSONNumber picks the narrowest faithful representation: exact int64
// when the value is integral and in range, then float64, then arbitrary
// precision decimal. The fallback order is load-bearing; collapsing it to a
// single numeric type silently loses precision on large integers.
func convertJSONNumber(n json.Number) Value {
	if i, err := n.Int64(); err == nil {
		return Int(i)
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
		return Float(f)
	}
	if d, err := decimal.NewFromString(n.String()); err == nil {
		return Decimal(d)
	}
	return String(n.String())
}

// --- generic decode preserving object key order ---

// jsonObject is a JSON object with source property order intact.
// encoding/json's map decoding loses key order, so documents are walked at
// the token level instead.
type jsonObject struct {
	keys []string
	vals []any
}

func (o *jsonObject) get(key string) (any, bool) {
	for i, k := range o.keys {
		if k == key {
			return o.vals[i], true
		}
	}
	return nil, false
}

type jsonArray struct {
	elems []any
}

// readJSONValue decodes the next JSON value from dec into nil, bool, string,
// json.Number, *jsonObject, or *jsonArray.
func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return jsonValueFromToken(dec, tok)
}

func jsonValueFromToken(dec *json.Decoder, tok json.Token) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &jsonObject{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is not a string")
			}
			val, err := readJSONValue(dec)
			if err != nil {
				return nil, err
			}
			obj.keys = append(obj.keys, key)
			obj.vals = append(obj.vals, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := &jsonArray{}
		for dec.More() {
			elem, err := readJSONValue(dec)
			if err != nil {
				return nil, err
			}
			arr.elems = append(arr.elems, elem)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// encodeJSON re-serializes a decoded value to compact JSON text, preserving
// object property order.
func encodeJSON(v any) string {
	var sb strings.Builder
	writeJSONValue(&sb, v)
	return sb.String()
}

func writeJSONValue(sb *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(t))
	case json.Number:
		sb.WriteString(t.String())
	case string:
		b, _ := json.Marshal(t)
		sb.Write(b)
	case *jsonObject:
		sb.WriteByte('{')
		for i, key := range t.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			b, _ := json.Marshal(key)
			sb.Write(b)
			sb.WriteByte(':')
			writeJSONValue(sb, t.vals[i])
		}
		sb.WriteByte('}')
	case *jsonArray:
		sb.WriteByte('[')
		for i, elem := range t.elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSONValue(sb, elem)
		}
		sb.WriteByte(']')
	}
}
