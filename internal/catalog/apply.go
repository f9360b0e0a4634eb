package catalog

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/coltab/internal/engine"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/store"
	"github.com/roach88/coltab/internal/table"
)

// Session is a catalog applied to an engine. It holds the store files
// the catalog's tables and functions read from.
type Session struct {
	// Registered lists table names in registration order.
	Registered []string

	stores map[string]*store.Store
	logger *slog.Logger
}

type applyOptions struct {
	logger   *slog.Logger
	database string
}

// ApplyOption configures Apply.
type ApplyOption func(*applyOptions)

// WithLogger sets the logger used while applying.
func WithLogger(l *slog.Logger) ApplyOption {
	return func(o *applyOptions) { o.logger = l }
}

// WithDatabase sets the store file used by definitions that name none.
func WithDatabase(path string) ApplyOption {
	return func(o *applyOptions) { o.database = path }
}

// Apply registers every table and function in cat with eng.
//
// Builtins come first, then static tables, store tables and functions,
// and finally runtime tables in declaration order. On error the tables
// registered so far stay registered and the session's stores are closed.
func Apply(ctx context.Context, eng *engine.Engine, cat *Catalog, opts ...ApplyOption) (*Session, error) {
	o := applyOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{stores: make(map[string]*store.Store), logger: o.logger}
	if err := s.apply(ctx, eng, cat, o); err != nil {
		if cerr := s.Close(); cerr != nil {
			err = multierror.Append(err, cerr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Session) apply(ctx context.Context, eng *engine.Engine, cat *Catalog, o applyOptions) error {
	if cat.Builtins {
		if err := eng.RegisterBuiltins(ctx); err != nil {
			return err
		}
	}

	var runtime []TableDef
	for _, def := range cat.Tables {
		switch def.Source {
		case SourceStatic:
			m, err := StaticTable(def)
			if err != nil {
				return status.Wrap(status.SchemaMismatch, err, "static table").WithTable(def.Name)
			}
			if err := eng.CreateStatic(ctx, def.Name, m); err != nil {
				return err
			}
		case SourceStore:
			m, err := s.readStore(ctx, cat, def, o.database)
			if err != nil {
				return err
			}
			if err := eng.CreateRuntime(ctx, def.Name, m); err != nil {
				return err
			}
		case SourceRuntime:
			runtime = append(runtime, def)
			continue
		default:
			return status.Errorf(status.SchemaMismatch, "unknown source %q", def.Source).WithTable(def.Name)
		}
		s.registered(def.Name, def.Source)
	}

	for _, def := range cat.Functions {
		st, err := s.open(cat, def.Database, o.database, def.Name)
		if err != nil {
			return err
		}
		fn := st.Function(def.Query, Columns(def.Columns), Columns(def.Arguments), def.Estimate)
		if err := eng.CreateFunction(ctx, def.Name, fn); err != nil {
			return err
		}
		s.registered(def.Name, "function")
	}

	for _, def := range runtime {
		err := eng.Materialize(ctx, engine.RuntimeSpec{
			Name:   def.Name,
			Query:  def.Query,
			ID:     def.ID,
			Sorted: def.Sorted,
		})
		if err != nil {
			return err
		}
		s.registered(def.Name, def.Source)
	}
	return nil
}

func (s *Session) readStore(ctx context.Context, cat *Catalog, def TableDef, fallback string) (*table.Memory, error) {
	st, err := s.open(cat, def.Database, fallback, def.Name)
	if err != nil {
		return nil, err
	}

	var m *table.Memory
	if def.From != "" {
		m, err = st.ReadTable(ctx, def.From)
	} else {
		m, err = st.Materialize(ctx, def.Query)
	}
	if err != nil {
		return nil, withTable(err, def.Name)
	}

	m, err = table.Reflag(m, def.ID, def.Sorted)
	if err != nil {
		return nil, status.Wrap(status.SchemaMismatch, err, "store table").WithTable(def.Name)
	}
	return m, nil
}

// open returns the store for path, opening it on first use. Relative
// paths in definitions resolve against the catalog directory.
func (s *Session) open(cat *Catalog, path, fallback, name string) (*store.Store, error) {
	if path == "" {
		path = fallback
	} else if !filepath.IsAbs(path) && cat.Dir != "" {
		path = filepath.Join(cat.Dir, path)
	}
	if path == "" {
		return nil, status.Errorf(status.NotFound, "no database for table and no default set").WithTable(name)
	}

	if st, ok := s.stores[path]; ok {
		return st, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, status.Wrap(status.NotFound, err, "database %s", path).WithTable(name)
	}
	s.stores[path] = st
	s.logger.Debug("opened store", "path", path)
	return st, nil
}

func (s *Session) registered(name, source string) {
	s.Registered = append(s.Registered, name)
	s.logger.Debug("catalog table registered", "table", name, "source", source)
}

// Stores returns the number of store files the session holds open.
func (s *Session) Stores() int { return len(s.stores) }

// Close closes every store the session opened. Tables registered from
// those stores stay readable; functions backed by them start failing.
func (s *Session) Close() error {
	var result *multierror.Error
	for path, st := range s.stores {
		if err := st.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		delete(s.stores, path)
	}
	return result.ErrorOrNil()
}

func withTable(err error, name string) error {
	if se, ok := err.(*status.Error); ok && se.Table == "" {
		return se.WithTable(name)
	}
	return err
}
