// Package parse converts externally supplied data files into a uniform
// sequence of typed rows.
//
// Four formats are supported: CSV/TSV, JSON/JSONL, XML, and YAML. Each has a
// different native shape (flat records, nested trees, newline-delimited
// documents); this package flattens all of them into the same row/column
// model without materializing the whole input in memory and without letting
// one malformed record abort the rest of the file.
//
// # Usage
//
// Select a parser by format name, then pull rows one at a time:
//
//	p, err := parse.New("csv")
//	if err != nil {
//	    // unrecognized format, rejected before any I/O
//	}
//	rows := p.Parse(ctx, file, parse.FormatConfig{HasHeader: true})
//	for {
//	    row, err := rows.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        // context cancellation, never malformed data
//	    }
//	    if row.ParseError != "" {
//	        // one bad record; the stream continues
//	    }
//	    // use row.Columns
//	}
//
// # Error model
//
// Failures come in three tiers:
//
//   - Record-level: one record is malformed (a CSV line that fails field
//     splitting, an invalid JSONL line). The row is yielded with ParseError
//     set and parsing continues. A 100,000-row file with 3 bad rows still
//     yields 99,997 good rows.
//   - Document-level: the input cannot be parsed as a document at all
//     (invalid XML/YAML/JSON syntax, a data root that is neither array nor
//     object). Exactly one error row is yielded and the sequence ends.
//   - Configuration: an unrecognized format name fails at [New], before any
//     stream is touched.
//
// Cancellation is distinct from all of these: it surfaces as the context's
// error from [RowReader.Next], never as a ParseError.
//
// # Ownership
//
// Parsers never close the supplied reader; stream lifetime belongs to the
// caller. Two Parse calls over two different streams are fully independent
// and may run concurrently. A single RowReader is not safe for concurrent
// consumption.
package parse
