package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"quandlfetcher/internal/fetcher"
	"quandlfetcher/internal/projection"
)

// FastRetryPolicy keeps the retry budget of the default policy with
// millisecond waits.
func FastRetryPolicy() fetcher.RetryPolicy {
	return fetcher.RetryPolicy{
		Count:       3,
		WaitTime:    time.Millisecond,
		MaxWaitTime: 5 * time.Millisecond,
	}
}

// MockFetcher is a mock implementation of the Fetcher interface for testing
type MockFetcher struct {
	GetFunc func(ctx context.Context, path string, query url.Values) (json.RawMessage, error)

	mu    sync.Mutex
	Calls []Call
}

// Call records one Get invocation.
type Call struct {
	Path  string
	Query url.Values
}

// Get implements the Fetcher interface
func (m *MockFetcher) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, Call{Path: path, Query: query})
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, path, query)
	}
	return json.RawMessage(`{}`), nil
}

// NewMockFetcher creates a mock fetcher that replays bodies in order and
// repeats the last one.
func NewMockFetcher(bodies ...string) *MockFetcher {
	m := &MockFetcher{}
	next := 0
	m.GetFunc = func(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
		if len(bodies) == 0 {
			return json.RawMessage(`{}`), nil
		}
		i := next
		if i >= len(bodies) {
			i = len(bodies) - 1
		}
		next++
		return json.RawMessage(bodies[i]), nil
	}
	return m
}

// Response is one canned reply of a PageServer.
type Response struct {
	Status int
	Body   string
}

// PageServer is an httptest server replaying canned responses in order. The
// last response repeats once the list is exhausted.
type PageServer struct {
	*httptest.Server

	mu        sync.Mutex
	responses []Response
	requests  []*http.Request
}

// NewPageServer starts a server replaying responses.
func NewPageServer(responses ...Response) *PageServer {
	s := &PageServer{responses: responses}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *PageServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	i := len(s.requests)
	s.requests = append(s.requests, r.Clone(context.Background()))
	resp := Response{Status: http.StatusOK, Body: `{}`}
	if len(s.responses) > 0 {
		if i >= len(s.responses) {
			i = len(s.responses) - 1
		}
		resp = s.responses[i]
	}
	s.mu.Unlock()

	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	w.Write([]byte(resp.Body))
}

// Requests returns the requests received so far.
func (s *PageServer) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// DatatablePage renders a datatables payload. An empty cursor is sent as null.
func DatatablePage(columns []string, rows [][]any, cursor string) string {
	type column struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	payload := struct {
		Datatable struct {
			Data    [][]any  `json:"data"`
			Columns []column `json:"columns"`
		} `json:"datatable"`
		Meta struct {
			NextCursorID *string `json:"next_cursor_id"`
		} `json:"meta"`
	}{}
	payload.Datatable.Data = rows
	if payload.Datatable.Data == nil {
		payload.Datatable.Data = [][]any{}
	}
	for _, c := range columns {
		payload.Datatable.Columns = append(payload.Datatable.Columns, column{Name: c, Type: "String"})
	}
	if cursor != "" {
		payload.Meta.NextCursorID = &cursor
	}
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// DatasetPage renders a dataset payload.
func DatasetPage(columns []string, rows [][]any) string {
	payload := map[string]any{
		"dataset": map[string]any{
			"column_names": columns,
			"data":         rows,
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// MockJob is a coordinator job with a canned outcome.
type MockJob struct {
	RunFunc func(ctx context.Context) (*projection.Grid, error)
	KeyFunc func() string
}

// Run implements coordinator.Job
func (m *MockJob) Run(ctx context.Context) (*projection.Grid, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return &projection.Grid{}, nil
}

// Key implements coordinator.Job
func (m *MockJob) Key() string {
	if m.KeyFunc != nil {
		return m.KeyFunc()
	}
	return "mock:key"
}

// NewMockJob creates a job returning grid and err.
func NewMockJob(key string, grid *projection.Grid, err error) *MockJob {
	return &MockJob{
		RunFunc: func(ctx context.Context) (*projection.Grid, error) {
			return grid, err
		},
		KeyFunc: func() string {
			return key
		},
	}
}
