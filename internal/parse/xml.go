package parse

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// xmlNSPrefix is the prefix bound to the configured namespace URI during
// path evaluation. It is internal; callers only supply the URI.
const xmlNSPrefix = "x"

// XMLParser reads the entire stream as a single XML document and selects
// record nodes with a path expression. The whole-document read is a
// deliberate simplicity tradeoff; inputs large enough to matter arrive as
// CSV or JSONL in practice.
//
// A document that fails to parse, or a path that fails to evaluate, yields a
// single error row and ends the sequence. A valid document whose path
// matches nothing yields zero rows with no error.
type XMLParser struct{}

// Parse implements Parser.
func (p *XMLParser) Parse(ctx context.Context, r io.Reader, cfg FormatConfig) RowReader {
	return &docRows{ctx: ctx, load: func() []Row { return parseXMLDocument(r, cfg) }}
}

func parseXMLDocument(r io.Reader, cfg FormatConfig) []Row {
	doc, err := xmlquery.Parse(decodeReader(r, cfg.Encoding))
	if err != nil {
		return documentError("XML", err)
	}

	nodes, err := selectRecordNodes(doc, cfg)
	if err != nil {
		return documentError("XML", err)
	}

	rows := make([]Row, 0, len(nodes))
	for i, node := range nodes {
		rows = append(rows, xmlNodeRow(i+1, node))
	}
	return rows
}

// selectRecordNodes evaluates the record-selection path. An unset path means
// all direct children of the document element. A configured path is
// evaluated verbatim, namespace-qualified when XMLNamespace is set.
func selectRecordNodes(doc *xmlquery.Node, cfg FormatConfig) ([]*xmlquery.Node, error) {
	path := strings.TrimSpace(cfg.RecordElement)
	if path == "" {
		root := firstElementChild(doc)
		if root == nil {
			return nil, fmt.Errorf("document has no root element")
		}
		var nodes []*xmlquery.Node
		for child := root.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == xmlquery.ElementNode {
				nodes = append(nodes, child)
			}
		}
		return nodes, nil
	}

	if cfg.XMLNamespace != "" {
		expr, err := xpath.CompileWithNS(qualifyXMLPath(path), map[string]string{xmlNSPrefix: cfg.XMLNamespace})
		if err != nil {
			return nil, fmt.Errorf("record path %q: %w", cfg.RecordElement, err)
		}
		return xmlquery.QuerySelectorAll(doc, expr), nil
	}

	nodes, err := xmlquery.QueryAll(doc, path)
	if err != nil {
		return nil, fmt.Errorf("record path %q: %w", cfg.RecordElement, err)
	}
	return nodes, nil
}

// qualifyXMLPath rewrites bare element-name steps with the internal
// namespace prefix so "Records/Record" evaluates as "x:Records/x:Record".
// Steps that already carry a prefix, wildcard, attribute, or predicate
// syntax pass through untouched.
func qualifyXMLPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isBareName(part) {
			parts[i] = xmlNSPrefix + ":" + part
		}
	}
	return strings.Join(parts, "/")
}

func isBareName(s string) bool {
	if s == "" || s == "*" || s == "." || s == ".." {
		return false
	}
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-' || ch == '.':
		default:
			return false
		}
	}
	return true
}

func firstElementChild(n *xmlquery.Node) *xmlquery.Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

// xmlNodeRow flattens one matched node. Attributes become columns prefixed
// with '@'. Child elements become columns keyed by local name: a child with
// element children of its own keeps its raw outer XML as text, a leaf child
// contributes its text content. A bare node with neither attributes nor
// element children synthesizes a single "value" column from its inner text.
func xmlNodeRow(index int, n *xmlquery.Node) Row {
	cols := NewColumns()
	for _, attr := range n.Attr {
		cols.Set("@"+attr.Name.Local, String(attr.Value))
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		if hasElementChildren(child) {
			cols.Set(child.Data, Raw(child.OutputXML(true)))
		} else {
			cols.Set(child.Data, String(child.InnerText()))
		}
	}
	if cols.Len() == 0 {
		cols.Set("value", String(n.InnerText()))
	}
	return Row{LineNumber: index, Columns: cols}
}

func hasElementChildren(n *xmlquery.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}
