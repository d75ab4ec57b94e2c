package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"quandlfetcher/internal/config"
	"quandlfetcher/internal/coordinator"
	"quandlfetcher/internal/quandl"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Run every query saved in the config file concurrently",
		Example: `  # config.yaml
  queries:
    - key: vanguard-aapl
      variant: table
      params: ["SHARADAR/SF3", "*", "ticker=AAPL&investorname=VANGUARD GROUP INC"]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFile(opts.configPath)
			if err != nil {
				return err
			}
			jobs, err := batchJobs(cfg, newService(cfg, opts))
			if err != nil {
				return err
			}
			results, err := coordinator.New(jobs, cmd.OutOrStdout()).Run(cmd.Context())
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if r.Error != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d queries failed", failed, len(results))
			}
			return nil
		},
	}
}

func batchJobs(cfg *config.Config, svc *quandl.Service) ([]coordinator.Job, error) {
	jobs := make([]coordinator.Job, 0, len(cfg.Queries))
	for i, q := range cfg.Queries {
		v, err := quandl.Lookup(q.Variant)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		params := q.Params
		if params == nil {
			params = []interface{}{}
		}
		input, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: failed to encode params: %w", i, err)
		}
		jobs = append(jobs, quandl.NewQuery(q.Key, v, input, svc))
	}
	return jobs, nil
}
