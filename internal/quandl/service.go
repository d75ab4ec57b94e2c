package quandl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"quandlfetcher/internal/fetcher"
	"quandlfetcher/internal/pager"
	"quandlfetcher/internal/params"
	"quandlfetcher/internal/projection"
	"quandlfetcher/internal/ratelimit"
)

// Options configure a Service.
type Options struct {
	APIKey  string
	PerPage int
	Limits  pager.Limits
	Mode    pager.Mode
}

// Service runs entry-point invocations. Each invocation builds its own
// request, driver and projector; only the transport and rate limiter are
// shared.
type Service struct {
	client *Client
	opts   Options
}

// NewService creates a service over the given transport.
func NewService(f fetcher.Fetcher, limiter *ratelimit.Limiter, opts Options) *Service {
	return &Service{
		client: NewClient(opts.APIKey, f, limiter, opts.PerPage),
		opts:   opts,
	}
}

// Run executes one invocation of variant with the caller's raw JSON input
// and returns the complete grid.
func (s *Service) Run(ctx context.Context, v Variant, input []byte) (*projection.Grid, error) {
	driver, sentinel, err := s.prepare(v, input, pager.ModeEager)
	if err != nil {
		return nil, err
	}
	if sentinel != nil {
		return sentinel, nil
	}
	return driver.Collect(ctx)
}

// Stream executes one invocation and writes the JSON grid to w, honoring the
// configured mode.
func (s *Service) Stream(ctx context.Context, v Variant, input []byte, w io.Writer) error {
	driver, sentinel, err := s.prepare(v, input, s.opts.Mode)
	if err != nil {
		return err
	}
	gw := projection.NewWriter(w)
	if sentinel != nil {
		if err := gw.WriteGrid(sentinel); err != nil {
			return err
		}
		return gw.Close()
	}
	if err := driver.Run(ctx, gw); err != nil {
		// Rows already streamed stay visible; the document is left open.
		return errors.Join(err, gw.Flush())
	}
	return gw.Close()
}

// prepare validates everything that can be checked without the network. It
// returns either a driver or the sentinel grid.
func (s *Service) prepare(v Variant, input []byte, mode pager.Mode) (*pager.Driver, *projection.Grid, error) {
	if s.opts.APIKey == "" {
		switch v.MissingKey {
		case MissingKeySentinel:
			slog.Warn("no API key configured, returning empty result", "variant", v.Name)
			return nil, projection.SentinelGrid(), nil
		default:
			return nil, nil, &params.InvalidInputError{Field: "api_key", Reason: "no API key configured"}
		}
	}

	values, err := params.Decode(input)
	if err != nil {
		return nil, nil, err
	}
	req, err := params.Normalize(values, v.Schema)
	if err != nil {
		return nil, nil, err
	}

	var source pager.PageSource
	switch v.Endpoint {
	case EndpointDatasets:
		source = s.client.Datasets(req)
	case EndpointDatatables:
		source = s.client.Datatables(req)
	default:
		return nil, nil, fmt.Errorf("variant %s: unknown endpoint %d", v.Name, v.Endpoint)
	}

	slog.Debug("prepared request",
		"variant", v.Name,
		"name", req.Name,
		"properties", req.Properties.String(),
		"filter", req.Filter.String())

	return pager.NewDriver(source, projection.New(req.Properties), s.opts.Limits, mode), nil, nil
}
