// Package pager follows a provider's opaque cursor from page to page and
// hands each page to a projection.Projector.
//
// Pages are fetched strictly one after another: a page request carries the
// cursor returned by the previous page, and the resolved header and running
// row count depend on the first page arriving first. A session ends when the
// cursor is absent, a page comes back empty, the page or row ceiling is hit,
// or a fetch fails.
package pager

import (
	"context"
	"log/slog"

	"quandlfetcher/internal/projection"
)

// NoLimit disables a ceiling in Limits.
const NoLimit = -1

// Page is one upstream page. Cursor is empty when the server reported none.
type Page struct {
	Columns []string
	Rows    [][]any
	Cursor  string
}

// PageSource fetches a page. An empty cursor requests the first page.
type PageSource interface {
	FetchPage(ctx context.Context, cursor string) (*Page, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, cursor string) (*Page, error)

// FetchPage calls f.
func (f PageSourceFunc) FetchPage(ctx context.Context, cursor string) (*Page, error) {
	return f(ctx, cursor)
}

// Limits are the session ceilings.
type Limits struct {
	// MaxPages is the number of pages fetched after the first one.
	// NoLimit follows the cursor until it runs out.
	MaxPages int
	// MaxRows caps the number of data rows emitted; 0 or NoLimit means no cap.
	MaxRows int
}

// DefaultLimits follows at most 10 cursors and does not cap rows.
func DefaultLimits() Limits {
	return Limits{MaxPages: 10, MaxRows: NoLimit}
}

// Mode selects how Run delivers rows.
type Mode int

const (
	// ModeEager collects every page before writing anything.
	ModeEager Mode = iota
	// ModeLazy writes each row as soon as its page has been projected.
	ModeLazy
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeLazy {
		return "lazy"
	}
	return "eager"
}

// Sink receives the header once and then every data row.
type Sink interface {
	WriteHeader(header []string) error
	WriteRow(row []any) error
}

// Driver runs pagination sessions against one page source.
type Driver struct {
	source    PageSource
	projector *projection.Projector
	limits    Limits
	mode      Mode
}

// NewDriver creates a driver. The projector is owned by the driver's single
// session and must not be shared.
func NewDriver(source PageSource, projector *projection.Projector, limits Limits, mode Mode) *Driver {
	return &Driver{
		source:    source,
		projector: projector,
		limits:    limits,
		mode:      mode,
	}
}

// Rows starts the session lazily: nothing is fetched until the iterator's
// Header or Next is first called.
func (d *Driver) Rows(ctx context.Context) *RowIterator {
	return newRowIterator(ctx, d.source, d.projector, d.limits)
}

// Collect runs the session to completion and returns the whole grid.
func (d *Driver) Collect(ctx context.Context) (*projection.Grid, error) {
	it := d.Rows(ctx)
	header, err := it.Header()
	if err != nil {
		return nil, err
	}
	grid := &projection.Grid{Header: header, Rows: [][]any{}}
	for {
		row, ok := it.Next()
		if !ok {
			break
		}
		grid.Rows = append(grid.Rows, row)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return grid, nil
}

// Run delivers the session to sink according to the driver's mode. In eager
// mode nothing reaches the sink unless every page was fetched.
func (d *Driver) Run(ctx context.Context, sink Sink) error {
	slog.Debug("starting pagination session", "mode", d.mode.String())
	if d.mode == ModeEager {
		grid, err := d.Collect(ctx)
		if err != nil {
			return err
		}
		if err := sink.WriteHeader(grid.Header); err != nil {
			return err
		}
		for _, row := range grid.Rows {
			if err := sink.WriteRow(row); err != nil {
				return err
			}
		}
		return nil
	}

	it := d.Rows(ctx)
	header, err := it.Header()
	if err != nil {
		return err
	}
	if err := sink.WriteHeader(header); err != nil {
		return err
	}
	for {
		row, ok := it.Next()
		if !ok {
			break
		}
		if err := sink.WriteRow(row); err != nil {
			return err
		}
	}
	return it.Err()
}
