package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tables",
		Short:         "List the tables and functions the catalog registers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := openSession(cmd.Context(), rootOpts, f)
			if err != nil {
				return failure(f, "tables", err)
			}
			defer s.Close()

			infos := s.eng.Tables()
			rows := make([][]string, len(infos))
			for i, t := range infos {
				rows[i] = []string{t.Name, t.Source, strconv.Itoa(t.Rows), strconv.Itoa(t.Arguments), t.Schema}
			}
			return f.Rows([]string{"name", "source", "rows", "arguments", "schema"}, rows, infos)
		},
	}
}
