package pager

import (
	"context"
	"fmt"
	"log/slog"

	"quandlfetcher/internal/projection"
)

// State is the position of a session in its lifecycle.
type State int

const (
	StateInit State = iota
	StateFetching
	StateProjecting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetching:
		return "fetching"
	case StateProjecting:
		return "projecting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reasons a session reaches StateDone.
const (
	ReasonEndOfData = "end of data"
	ReasonEmptyPage = "empty page"
	ReasonPageLimit = "page limit"
	ReasonRowLimit  = "row limit"
)

// RowIterator iterates over projected rows, fetching pages as needed. It
// makes a single pass; once it reports the end it stays there.
type RowIterator struct {
	ctx       context.Context
	source    PageSource
	projector *projection.Projector
	limits    Limits

	state     State
	page      *Page
	index     int // the row of page for Next to return
	pageCount int
	rowCount  int
	reason    string
	err       error
}

func newRowIterator(ctx context.Context, source PageSource, projector *projection.Projector, limits Limits) *RowIterator {
	return &RowIterator{
		ctx:       ctx,
		source:    source,
		projector: projector,
		limits:    limits,
		state:     StateInit,
	}
}

// Header fetches the first page if needed and returns the resolved header.
func (it *RowIterator) Header() ([]string, error) {
	if it.state == StateInit {
		it.fetch("")
	}
	if it.state == StateFailed {
		return nil, it.err
	}
	header, _ := it.projector.Header()
	return header, nil
}

// Next returns the next projected row. The second value is false once the
// session has ended; check Err to tell completion from failure.
func (it *RowIterator) Next() ([]any, bool) {
	for {
		switch it.state {
		case StateInit:
			it.fetch("")
		case StateProjecting:
			if it.limits.MaxRows > 0 && it.rowCount >= it.limits.MaxRows {
				it.finish(ReasonRowLimit)
				continue
			}
			if it.index < len(it.page.Rows) {
				row := it.projector.Project(it.page.Columns, it.page.Rows[it.index])
				it.index++
				it.rowCount++
				return row, true
			}
			it.advance()
		default:
			return nil, false
		}
	}
}

// Err returns the error that failed the session, if any.
func (it *RowIterator) Err() error {
	return it.err
}

// State returns the current state.
func (it *RowIterator) State() State {
	return it.state
}

// Reason returns why the session ended; empty until it is done.
func (it *RowIterator) Reason() string {
	return it.reason
}

// Pages returns the number of pages fetched so far.
func (it *RowIterator) Pages() int {
	return it.pageCount
}

// advance decides, once the current page is consumed, whether to end the
// session or fetch the page its cursor points to.
func (it *RowIterator) advance() {
	switch {
	case len(it.page.Rows) == 0:
		it.finish(ReasonEmptyPage)
	case it.page.Cursor == "":
		it.finish(ReasonEndOfData)
	case it.limits.MaxPages != NoLimit && it.pageCount-1 >= it.limits.MaxPages:
		it.finish(ReasonPageLimit)
	default:
		it.fetch(it.page.Cursor)
	}
}

func (it *RowIterator) fetch(cursor string) {
	it.state = StateFetching
	page, err := it.source.FetchPage(it.ctx, cursor)
	if err != nil {
		it.state = StateFailed
		it.page = nil
		it.err = fmt.Errorf("failed to fetch page %d: %w", it.pageCount+1, err)
		slog.Warn("pagination failed", "page", it.pageCount+1, "error", err)
		return
	}
	if page == nil {
		page = &Page{}
	}
	it.page = page
	it.index = 0
	it.pageCount++
	it.projector.Resolve(page.Columns)
	it.state = StateProjecting
	slog.Info("fetched page",
		"page", it.pageCount,
		"rows", len(page.Rows),
		"cursor", page.Cursor)
}

func (it *RowIterator) finish(reason string) {
	it.state = StateDone
	it.reason = reason
	it.page = nil
	slog.Info("pagination finished",
		"reason", reason,
		"pages", it.pageCount,
		"rows", it.rowCount)
}
