package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/coltab/internal/catalog"
	"github.com/roach88/coltab/internal/config"
	"github.com/roach88/coltab/internal/engine"
	"github.com/roach88/coltab/internal/sqlitevtab"
	"github.com/roach88/coltab/internal/status"
)

// session is an engine with the configured catalog applied.
type session struct {
	eng     *engine.Engine
	catalog *catalog.Session
}

// openSession opens an engine and applies the configured catalog. A
// missing default catalog directory leaves only the builtin functions.
func openSession(ctx context.Context, opts *RootOptions, f *OutputFormatter) (*session, error) {
	cfg := opts.Config
	binding, ok := sqlitevtab.Lookup(cfg.Driver)
	if !ok {
		return nil, NewExitError(ExitCommandError, "unknown driver "+cfg.Driver)
	}
	eng, err := engine.Open(ctx,
		engine.WithLogger(opts.Logger),
		engine.WithPlannerConfig(cfg.Planner),
		engine.WithBinding(binding))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open engine", err)
	}

	cat, errs := catalog.Load(cfg.Catalog, catalog.LoadModeFailFast)
	if len(errs) > 0 {
		if catalog.Code(errs[0]) == catalog.ErrCodeNotFound && cfg.Catalog == config.DefaultCatalog {
			f.VerboseLog("No catalog at %s, builtin functions only", cfg.Catalog)
			cat, errs = &catalog.Catalog{Builtins: true}, nil
		} else {
			eng.Close()
			return nil, WrapExitError(ExitCommandError, "load catalog", errs[0])
		}
	}
	f.VerboseLog("Loaded %d table(s) and %d function(s) from %d file(s)", len(cat.Tables), len(cat.Functions), cat.FileCount)

	cs, err := catalog.Apply(ctx, eng, cat, catalog.WithLogger(opts.Logger), catalog.WithDatabase(cfg.Database))
	if err != nil {
		eng.Close()
		return nil, WrapExitError(ExitCommandError, "apply catalog", err)
	}
	return &session{eng: eng, catalog: cs}, nil
}

func (s *session) Close() error {
	var result *multierror.Error
	if err := s.eng.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.catalog.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// parseArgs converts command-line statement arguments: integers and
// floats become numbers and everything else stays text.
func parseArgs(raw []string) []any {
	out := make([]any, len(raw))
	for i, r := range raw {
		if n, err := strconv.ParseInt(r, 10, 64); err == nil {
			out[i] = n
		} else if f, err := strconv.ParseFloat(r, 64); err == nil {
			out[i] = f
		} else {
			out[i] = r
		}
	}
	return out
}

// failure reports err through f and returns the matching exit error.
func failure(f *OutputFormatter, message string, err error) error {
	code := "E001"
	if c := status.CodeOf(err); c != "" {
		code = string(c)
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error(code, exitErr.Error(), nil)
		return exitErr
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, message, err)
}
