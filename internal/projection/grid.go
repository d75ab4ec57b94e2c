package projection

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Grid is a header row followed by data rows of the same width.
type Grid struct {
	Header []string
	Rows   [][]any
}

// SentinelGrid is returned by entry points that answer a missing credential
// with an empty result instead of an error.
func SentinelGrid() *Grid {
	return &Grid{Header: []string{Empty}}
}

// Len returns the number of data rows.
func (g *Grid) Len() int {
	return len(g.Rows)
}

// MarshalJSON encodes the grid as [header, row, row, ...].
func (g *Grid) MarshalJSON() ([]byte, error) {
	out := make([][]any, 0, len(g.Rows)+1)
	header := make([]any, len(g.Header))
	for i, h := range g.Header {
		header[i] = h
	}
	out = append(out, header)
	for _, row := range g.Rows {
		out = append(out, encodeRow(row))
	}
	return json.Marshal(out)
}

func encodeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = encodeValue(v)
	}
	return out
}

// encodeValue renders dates as ISO-8601 text. json.Number already keeps the
// exact decimal digits it was decoded from.
func encodeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil {
			return nil
		}
		return encodeValue(*t)
	}
	return v
}

// Writer streams a grid as the same JSON document Grid.MarshalJSON produces,
// one row at a time.
type Writer struct {
	w       *bufio.Writer
	started bool
	closed  bool
}

// NewWriter creates a streaming grid writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header row. It must be called exactly once, first.
func (gw *Writer) WriteHeader(header []string) error {
	if gw.started {
		return fmt.Errorf("grid header already written")
	}
	gw.started = true
	if header == nil {
		header = []string{}
	}
	b, err := json.Marshal(header)
	if err != nil {
		return err
	}
	if _, err := gw.w.WriteString("["); err != nil {
		return err
	}
	_, err = gw.w.Write(b)
	return err
}

// WriteRow appends one data row.
func (gw *Writer) WriteRow(row []any) error {
	if !gw.started {
		return fmt.Errorf("grid header not written")
	}
	b, err := json.Marshal(encodeRow(row))
	if err != nil {
		return err
	}
	if _, err := gw.w.WriteString(","); err != nil {
		return err
	}
	_, err = gw.w.Write(b)
	return err
}

// WriteGrid writes a complete grid.
func (gw *Writer) WriteGrid(g *Grid) error {
	if err := gw.WriteHeader(g.Header); err != nil {
		return err
	}
	for _, row := range g.Rows {
		if err := gw.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes out what has been buffered without terminating the document.
func (gw *Writer) Flush() error {
	return gw.w.Flush()
}

// Close terminates the document and flushes it.
func (gw *Writer) Close() error {
	if gw.closed {
		return nil
	}
	gw.closed = true
	if !gw.started {
		return gw.w.Flush()
	}
	if _, err := gw.w.WriteString("]\n"); err != nil {
		return err
	}
	return gw.w.Flush()
}
