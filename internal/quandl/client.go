package quandl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"quandlfetcher/internal/fetcher"
	"quandlfetcher/internal/pager"
	"quandlfetcher/internal/params"
	"quandlfetcher/internal/projection"
	"quandlfetcher/internal/ratelimit"
)

// DefaultPerPage is the largest page the datatables API returns.
const DefaultPerPage = 10000

// Upstream query parameter names.
const (
	paramAPIKey    = "api_key"
	paramStartDate = "start_date"
	paramEndDate   = "end_date"
	paramPerPage   = "qopts.per_page"
	paramCursorID  = "qopts.cursor_id"
)

// datasetResponse is the payload of the dataset and time-series endpoints
type datasetResponse struct {
	Dataset struct {
		Data        [][]any  `json:"data"`
		ColumnNames []string `json:"column_names"`
	} `json:"dataset"`
}

// datatableColumn is one entry of a datatable's column list
type datatableColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// datatableResponse is the payload of one datatables page
type datatableResponse struct {
	Datatable struct {
		Data    [][]any           `json:"data"`
		Columns []datatableColumn `json:"columns"`
	} `json:"datatable"`
	Meta struct {
		NextCursorID *string `json:"next_cursor_id"`
	} `json:"meta"`
}

// Client turns requests into upstream page fetches.
type Client struct {
	apiKey  string
	perPage int
	fetcher fetcher.Fetcher
	limiter *ratelimit.Limiter
}

// NewClient creates a provider client. A nil limiter does not pace requests;
// a non-positive perPage uses DefaultPerPage.
func NewClient(apiKey string, f fetcher.Fetcher, limiter *ratelimit.Limiter, perPage int) *Client {
	if limiter == nil {
		limiter = ratelimit.Unlimited()
	}
	if perPage <= 0 || perPage > DefaultPerPage {
		perPage = DefaultPerPage
	}
	return &Client{
		apiKey:  apiKey,
		perPage: perPage,
		fetcher: f,
		limiter: limiter,
	}
}

// DatasetQuery builds the query of a dataset or time-series request.
func (c *Client) DatasetQuery(req *params.Request) url.Values {
	q := url.Values{}
	q.Set(paramAPIKey, c.apiKey)
	if req.MinDate != nil {
		q.Set(paramStartDate, req.MinDate.String())
	}
	if req.MaxDate != nil {
		q.Set(paramEndDate, req.MaxDate.String())
	}
	return q
}

// DatatableQuery builds the query of one datatables page. An empty cursor
// requests the first page.
func (c *Client) DatatableQuery(req *params.Request, cursor string) url.Values {
	q := req.Filter.Query()
	q.Set(paramAPIKey, c.apiKey)
	q.Set(paramPerPage, strconv.Itoa(c.perPage))
	if cursor != "" {
		q.Set(paramCursorID, cursor)
	}
	return q
}

// Datasets returns the single-page source of a dataset or time series.
func (c *Client) Datasets(req *params.Request) pager.PageSource {
	return pager.PageSourceFunc(func(ctx context.Context, _ string) (*pager.Page, error) {
		if err := c.pace(ctx, ratelimit.APIDatasets); err != nil {
			return nil, err
		}
		raw, err := c.fetcher.Get(ctx, "/datasets/"+req.Name, c.DatasetQuery(req))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch dataset %s: %w", req.Name, err)
		}
		var result datasetResponse
		if err := decode(raw, &result); err != nil {
			return nil, err
		}
		return &pager.Page{
			Columns: projection.NormalizeColumns(result.Dataset.ColumnNames),
			Rows:    result.Dataset.Data,
		}, nil
	})
}

// Datatables returns the cursor-paginated source of a datatable.
func (c *Client) Datatables(req *params.Request) pager.PageSource {
	return pager.PageSourceFunc(func(ctx context.Context, cursor string) (*pager.Page, error) {
		if err := c.pace(ctx, ratelimit.APIDatatables); err != nil {
			return nil, err
		}
		raw, err := c.fetcher.Get(ctx, "/datatables/"+req.Name, c.DatatableQuery(req, cursor))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch datatable %s: %w", req.Name, err)
		}
		var result datatableResponse
		if err := decode(raw, &result); err != nil {
			return nil, err
		}
		columns := make([]string, len(result.Datatable.Columns))
		for i, col := range result.Datatable.Columns {
			columns[i] = col.Name
		}
		page := &pager.Page{
			Columns: projection.NormalizeColumns(columns),
			Rows:    result.Datatable.Data,
		}
		if result.Meta.NextCursorID != nil {
			page.Cursor = *result.Meta.NextCursorID
		}
		return page, nil
	})
}

// pace takes a request slot for api, blocking when none is free.
func (c *Client) pace(ctx context.Context, api ratelimit.API) error {
	if c.limiter.Allow(api) {
		return nil
	}
	slog.Debug("waiting for rate limiter", "api", string(api))
	if err := c.limiter.Wait(ctx, api); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// decode unmarshals a payload keeping numbers as json.Number.
func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fetcher.NewValidationError("malformed payload", err)
	}
	return nil
}
