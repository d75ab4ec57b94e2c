// Package cli wires configuration, transport and the entry-point variants
// into the quandlfetcher command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"quandlfetcher/internal/config"
	"quandlfetcher/internal/fetcher"
	"quandlfetcher/internal/pager"
	"quandlfetcher/internal/params"
	"quandlfetcher/internal/quandl"
	"quandlfetcher/internal/ratelimit"
)

// Exit statuses.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
)

// ExitCode maps an error returned by the command tree to a process status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, params.ErrInvalidInput):
		return ExitInvalidInput
	default:
		return ExitFailure
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	stream     bool
}

// NewRootCmd creates the root command with the list, series, table and batch
// subcommands.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "quandlfetcher",
		Short: "Fetch Quandl datasets, time series and datatables as JSON grids",
		Long: "quandlfetcher reads a JSON array of positional parameters and prints a JSON\n" +
			"array of arrays: the header row followed by the data rows.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd.ErrOrStderr(), opts.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./config.yaml or $HOME/.quandlfetcher/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.stream, "stream", false, "write rows as pages arrive instead of after the last page")

	for _, v := range []quandl.Variant{quandl.List, quandl.Series, quandl.Table} {
		cmd.AddCommand(newVariantCmd(opts, v))
	}
	cmd.AddCommand(newBatchCmd(opts))

	return cmd
}

var variantExamples = map[string]string{
	"list": `  quandlfetcher list '["HKEX/83079"]'
  quandlfetcher list '["HKEX/83079", "date, nominal price, high, low"]'`,
	"series": `  quandlfetcher series '["NASDAQOMX/XNDXT25", "*", "2019-09-01", "2019-09-30"]'
  echo '["NASDAQOMX/XNDXT25", "trade date, low, high"]' | quandlfetcher series`,
	"table": `  quandlfetcher table '["SHARADAR/SF3", "*", "ticker=AAPL"]'
  quandlfetcher table '["SHARADAR/SF3", "*", "ticker=AAPL,MSFT&investorname=VANGUARD GROUP INC"]'`,
}

var variantShort = map[string]string{
	"list":   "Return the contents of a dataset",
	"series": "Return a time series between two dates",
	"table":  "Return the rows of a datatable, following its cursor",
}

func newVariantCmd(opts *rootOptions, v quandl.Variant) *cobra.Command {
	return &cobra.Command{
		Use:     v.Name + " [json-params]",
		Short:   variantShort[v.Name],
		Example: variantExamples[v.Name],
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(opts.configPath)
			if err != nil {
				return err
			}
			input, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			svc := newService(cfg, opts)
			return svc.Stream(cmd.Context(), v, input, cmd.OutOrStdout())
		},
	}
}

// readInput takes the parameters from the positional argument, or from
// stdin when there is none.
func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameters from stdin: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return nil, &params.InvalidInputError{Reason: "no parameters given"}
	}
	return b, nil
}

func newService(cfg *config.Config, opts *rootOptions) *quandl.Service {
	mode := cfg.Mode()
	if opts.stream {
		mode = pager.ModeLazy
	}
	return quandl.NewService(
		fetcher.NewClient(cfg.BaseURL, cfg.RetryPolicy()),
		newLimiter(cfg),
		quandl.Options{
			APIKey:  cfg.APIKey,
			PerPage: cfg.PerPage,
			Limits:  cfg.Limits(),
			Mode:    mode,
		},
	)
}

// newLimiter paces both endpoint families at requests_per_second, with the
// datatables family overridden when configured.
func newLimiter(cfg *config.Config) *ratelimit.Limiter {
	limiter := ratelimit.New(cfg.RequestsPerSecond, 1)
	if cfg.DatatablesRequestsPerSecond > 0 {
		limiter.SetLimit(ratelimit.APIDatatables, cfg.DatatablesRequestsPerSecond)
	}
	return limiter
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
