package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/coltab/internal/engine"
	"github.com/roach88/coltab/internal/value"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Stats bool // print adapter counters after the query
}

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Stats   any      `json:"stats,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a SQL query over the catalog's tables",
		Long: `Run a SQL query against the tables and functions of the catalog.

Arguments after the statement bind to its ? parameters. Integers and
floats are passed as numbers, anything else as text.

Examples:
  coltab query "SELECT * FROM slices WHERE id = ?" 42
  coltab query "SELECT value FROM series(1, 10, 3)"
  coltab query --format json "SELECT name, count(*) FROM slices GROUP BY name"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args[0], args[1:])
		},
	}

	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "report adapter counters")
	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, query string, args []string) error {
	f := opts.formatter(cmd)
	s, err := openSession(cmd.Context(), opts.RootOptions, f)
	if err != nil {
		return failure(f, "query", err)
	}
	defer s.Close()

	res, err := s.eng.Query(cmd.Context(), query, parseArgs(args)...)
	if err != nil {
		return failure(f, "query failed", err)
	}

	payload := QueryResult{Columns: res.Columns, Rows: driverRows(res)}
	if opts.Stats {
		stats := s.eng.Stats()
		payload.Stats = stats
		if f.Format != FormatJSON {
			fmt.Fprintf(f.GetErrWriter(), "filters=%d single_row=%d computations=%d cache_builds=%d cache_hits=%d\n",
				stats.Filters, stats.SingleRow, stats.Computations, stats.CacheBuilds, stats.CacheHits)
		}
	}
	return f.Rows(res.Columns, textRows(res.Rows), payload)
}

func textRows(rows [][]value.Value) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = v.String()
		}
	}
	return out
}

func driverRows(res *engine.Result) [][]any {
	out := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = value.ToDriver(v)
		}
	}
	return out
}
