package cli

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/coltab/internal/config"
	"github.com/roach88/coltab/internal/sqlitevtab"
)

// RootOptions holds global flags for all commands. Config and Logger are
// set before any subcommand runs.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string

	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command for the coltab CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "coltab",
		Short: "coltab - columnar tables for SQLite",
		Long: `Serve in-memory columnar tables, store files and table functions to
SQLite as virtual tables, and query them with plain SQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "configuration", err)
			}
			opts.Config = cfg
			opts.Format = cfg.Output
			opts.Verbose = cfg.Verbose

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default coltab.yaml if present)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", config.DefaultOutput, "output format (table|text|json)")
	flags.String("catalog", config.DefaultCatalog, "directory of table definitions")
	flags.String("database", "", "store file for definitions that name none")
	flags.String("driver", sqlitevtab.DefaultBinding, "SQLite binding ("+strings.Join(sqlitevtab.Bindings(), "|")+")")
	flags.Int("cache-threshold", 10, "repeated probes before a cursor builds a sorted cache")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
