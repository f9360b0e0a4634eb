package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <sql> [args...]",
		Short: "Show the query plan and the strategy chosen for each virtual table",
		Long: `Show SQLite's query plan for a statement. Scans of catalog tables
show the chosen strategy after the plan number, for example
"SCAN slices VIRTUAL TABLE INDEX 1:single;terms=0:eq".`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, f)
			if err != nil {
				return failure(f, "explain", err)
			}
			defer s.Close()

			plan, err := s.eng.Explain(cmd.Context(), args[0], parseArgs(args[1:])...)
			if err != nil {
				return failure(f, "explain failed", err)
			}
			rows := make([][]string, len(plan))
			for i, p := range plan {
				rows[i] = []string{strconv.Itoa(p.ID), strconv.Itoa(p.Parent), p.Detail}
			}
			return f.Rows([]string{"id", "parent", "detail"}, rows, plan)
		},
	}
}
