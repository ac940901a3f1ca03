package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

// YAMLParser reads the entire stream as one YAML document and flattens it
// structurally. Decoding is tolerant: the document is walked as a generic
// node graph, so unexpected properties are carried, not rejected.
//
// Nested maps and lists are re-serialized to JSON text (not YAML) so that
// the "nested structure as string" convention matches the other parsers.
type YAMLParser struct{}

// Parse implements Parser.
func (p *YAMLParser) Parse(ctx context.Context, r io.Reader, cfg FormatConfig) RowReader {
	return &docRows{ctx: ctx, load: func() []Row { return parseYAMLDocument(r, cfg) }}
}

func parseYAMLDocument(r io.Reader, cfg FormatConfig) []Row {
	var doc yaml.Node
	err := yaml.NewDecoder(decodeReader(r, cfg.Encoding)).Decode(&doc)
	if err == io.EOF {
		// Empty input is a legitimate no-data outcome.
		return nil
	}
	if err != nil {
		return documentError("YAML", err)
	}

	node := &doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	node = resolveYAMLAlias(node)
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		// An explicit null document also yields zero rows.
		return nil
	}

	for _, seg := range cfg.rootPathSegments() {
		if node.Kind != yaml.MappingNode {
			return documentError("YAML", fmt.Errorf("data root path %q: segment %q is not a map", cfg.DataRootPath, seg))
		}
		next, ok := yamlMappingGet(node, seg)
		if !ok {
			return documentError("YAML", fmt.Errorf("data root path %q: key %q not found", cfg.DataRootPath, seg))
		}
		node = resolveYAMLAlias(next)
	}

	switch node.Kind {
	case yaml.SequenceNode:
		rows := make([]Row, 0, len(node.Content))
		for i, elem := range node.Content {
			rows = append(rows, yamlElementRow(i+1, resolveYAMLAlias(elem)))
		}
		return rows
	case yaml.MappingNode:
		return []Row{yamlElementRow(1, node)}
	default:
		return documentError("YAML", fmt.Errorf("data root must be a list or map"))
	}
}

// yamlElementRow flattens one list element. Maps flatten one level: scalar
// values pass through, nested structures become JSON text. Non-map elements
// wrap under "value", matching the JSON parser's convention.
func yamlElementRow(index int, n *yaml.Node) Row {
	cols := NewColumns()
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			cols.Set(key, yamlColumnValue(resolveYAMLAlias(n.Content[i+1])))
		}
	} else {
		cols.Set("value", yamlColumnValue(n))
	}
	return Row{LineNumber: index, Columns: cols}
}

func yamlColumnValue(n *yaml.Node) Value {
	if n.Kind == yaml.ScalarNode {
		return yamlScalarValue(n)
	}
	return Raw(yamlToJSON(n))
}

// yamlScalarValue converts a scalar node by its resolved tag. Values the
// tag promises but the literal cannot deliver (e.g. "yes" as !!bool in some
// dialects, ".inf" floats) degrade to their string form.
func yamlScalarValue(n *yaml.Node) Value {
	switch n.Tag {
	case "!!null":
		return Null()
	case "!!bool":
		if b, err := strconv.ParseBool(n.Value); err == nil {
			return Bool(b)
		}
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return Int(i)
		}
	case "!!float":
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return Float(f)
		}
	}
	return String(n.Value)
}

func yamlMappingGet(m *yaml.Node, key string) (*yaml.Node, bool) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], true
		}
	}
	return nil, false
}

func resolveYAMLAlias(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

// yamlToJSON re-serializes a node subtree to compact JSON text, preserving
// mapping key order.
func yamlToJSON(n *yaml.Node) string {
	var sb []byte
	sb = appendYAMLJSON(sb, n)
	return string(sb)
}

func appendYAMLJSON(dst []byte, n *yaml.Node) []byte {
	n = resolveYAMLAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		dst = append(dst, '{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				dst = append(dst, ',')
			}
			key, _ := json.Marshal(n.Content[i].Value)
			dst = append(dst, key...)
			dst = append(dst, ':')
			dst = appendYAMLJSON(dst, n.Content[i+1])
		}
		return append(dst, '}')
	case yaml.SequenceNode:
		dst = append(dst, '[')
		for i, elem := range n.Content {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendYAMLJSON(dst, elem)
		}
		return append(dst, ']')
	default:
		b, err := yamlScalarValue(n).MarshalJSON()
		if err != nil {
			b, _ = json.Marshal(n.Value)
		}
		return append(dst, b...)
	}
}
