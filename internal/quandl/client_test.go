package quandl

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"quandlfetcher/internal/fetcher"
	"quandlfetcher/internal/params"
	"quandlfetcher/internal/ratelimit"
	"quandlfetcher/internal/testutil"
)

func mustRequest(t *testing.T, v Variant, input string) *params.Request {
	t.Helper()
	values, err := params.Decode([]byte(input))
	if err != nil {
		t.Fatalf("Decode() returned unexpected error: %v", err)
	}
	req, err := params.Normalize(values, v.Schema)
	if err != nil {
		t.Fatalf("Normalize() returned unexpected error: %v", err)
	}
	return req
}

func TestClient_DatatableQuery(t *testing.T) {
	c := NewClient("secret", testutil.NewMockFetcher(), nil, 0)
	req := mustRequest(t, Table, `["SHARADAR/SF3", "*", "ticker=AAPL,MSFT&investorname=VANGUARD GROUP INC"]`)

	want := url.Values{
		"ticker":         {"AAPL,MSFT"},
		"investorname":   {"VANGUARD GROUP INC"},
		"api_key":        {"secret"},
		"qopts.per_page": {"10000"},
	}
	if got := c.DatatableQuery(req, ""); !reflect.DeepEqual(got, want) {
		t.Errorf("DatatableQuery() = %v, want %v", got, want)
	}

	want.Set("qopts.cursor_id", "abc")
	if got := c.DatatableQuery(req, "abc"); !reflect.DeepEqual(got, want) {
		t.Errorf("DatatableQuery(cursor) = %v, want %v", got, want)
	}
}

func TestClient_DatasetQuery(t *testing.T) {
	c := NewClient("secret", testutil.NewMockFetcher(), nil, 0)

	req := mustRequest(t, Series, `["WIKI/AAPL", "close", 43708, "2019-09-30"]`)
	want := url.Values{
		"api_key":    {"secret"},
		"start_date": {"2019-09-01"},
		"end_date":   {"2019-09-30"},
	}
	if got := c.DatasetQuery(req); !reflect.DeepEqual(got, want) {
		t.Errorf("DatasetQuery() = %v, want %v", got, want)
	}

	req = mustRequest(t, List, `["HKEX/83079"]`)
	if got := c.DatasetQuery(req); !reflect.DeepEqual(got, url.Values{"api_key": {"secret"}}) {
		t.Errorf("DatasetQuery() without dates = %v", got)
	}
}

func TestClient_PerPage(t *testing.T) {
	tests := []struct {
		perPage int
		want    string
	}{
		{0, "10000"},
		{-5, "10000"},
		{500, "500"},
		{20000, "10000"},
	}

	req := mustRequest(t, Table, `["T"]`)
	for _, tt := range tests {
		c := NewClient("k", testutil.NewMockFetcher(), nil, tt.perPage)
		if got := c.DatatableQuery(req, "").Get("qopts.per_page"); got != tt.want {
			t.Errorf("perPage %d: qopts.per_page = %q, want %q", tt.perPage, got, tt.want)
		}
	}
}

func TestClient_Datatables(t *testing.T) {
	mock := testutil.NewMockFetcher(
		testutil.DatatablePage([]string{"Ticker", "Value"}, [][]any{{"AAPL", 1.5}}, "next-1"),
	)
	c := NewClient("k", mock, nil, 0)

	page, err := c.Datatables(mustRequest(t, Table, `["SHARADAR/SF3"]`)).FetchPage(context.Background(), "prev")
	if err != nil {
		t.Fatalf("FetchPage() returned unexpected error: %v", err)
	}
	if !reflect.DeepEqual(page.Columns, []string{"ticker", "value"}) {
		t.Errorf("Columns = %v", page.Columns)
	}
	if want := [][]any{{"AAPL", json.Number("1.5")}}; !reflect.DeepEqual(page.Rows, want) {
		t.Errorf("Rows = %#v, want %#v", page.Rows, want)
	}
	if page.Cursor != "next-1" {
		t.Errorf("Cursor = %q, want next-1", page.Cursor)
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("fetcher called %d times, want 1", len(mock.Calls))
	}
	if mock.Calls[0].Path != "/datatables/SHARADAR/SF3" {
		t.Errorf("path = %q", mock.Calls[0].Path)
	}
	if got := mock.Calls[0].Query.Get("qopts.cursor_id"); got != "prev" {
		t.Errorf("qopts.cursor_id = %q, want prev", got)
	}
}

func TestClient_Datasets(t *testing.T) {
	mock := testutil.NewMockFetcher(
		testutil.DatasetPage([]string{"Date", "Nominal Price"}, [][]any{{"2019-09-02", 12.25}}),
	)
	c := NewClient("k", mock, nil, 0)

	page, err := c.Datasets(mustRequest(t, List, `["HKEX/83079"]`)).FetchPage(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchPage() returned unexpected error: %v", err)
	}
	if !reflect.DeepEqual(page.Columns, []string{"date", "nominal price"}) {
		t.Errorf("Columns = %v", page.Columns)
	}
	if page.Cursor != "" {
		t.Errorf("Cursor = %q, want none", page.Cursor)
	}
	if mock.Calls[0].Path != "/datasets/HKEX/83079" {
		t.Errorf("path = %q", mock.Calls[0].Path)
	}
}

func TestClient_FetchErrors(t *testing.T) {
	upstream := fetcher.NewServerError(503)
	mock := &testutil.MockFetcher{
		GetFunc: func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
			return nil, upstream
		},
	}
	c := NewClient("k", mock, nil, 0)

	_, err := c.Datatables(mustRequest(t, Table, `["T"]`)).FetchPage(context.Background(), "")
	if !errors.Is(err, upstream) {
		t.Errorf("FetchPage() error = %v, want %v", err, upstream)
	}
	if !fetcher.IsUpstream(err) {
		t.Error("IsUpstream() = false")
	}

	bad := testutil.NewMockFetcher(`{"datatable": {"data": "nope"}}`)
	c = NewClient("k", bad, nil, 0)
	_, err = c.Datatables(mustRequest(t, Table, `["T"]`)).FetchPage(context.Background(), "")
	var fe *fetcher.FetchError
	if !errors.As(err, &fe) || fe.Type != fetcher.ErrorTypeValidation {
		t.Errorf("FetchPage() error = %v, want a validation error", err)
	}
}

func TestClient_RateLimited(t *testing.T) {
	mock := testutil.NewMockFetcher(testutil.DatatablePage([]string{"a"}, [][]any{{"x"}}, ""))
	c := NewClient("k", mock, ratelimit.New(0.001, 1), 0)
	source := c.Datatables(mustRequest(t, Table, `["T"]`))

	if _, err := source.FetchPage(context.Background(), ""); err != nil {
		t.Fatalf("first FetchPage() returned unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := source.FetchPage(ctx, "")
	if err == nil || !strings.Contains(err.Error(), "rate limiter") {
		t.Errorf("second FetchPage() error = %v, want a rate limiter error", err)
	}
	if len(mock.Calls) != 1 {
		t.Errorf("fetcher called %d times, want 1", len(mock.Calls))
	}
}
