package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/registry"
	"github.com/roach88/coltab/internal/source"
	"github.com/roach88/coltab/internal/sqlitevtab"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
	"github.com/roach88/coltab/internal/vtab"
)

// DefaultDSN is an in-memory database private to the engine.
const DefaultDSN = ":memory:"

// Engine is one SQLite session with the virtual-table module installed.
type Engine struct {
	db         *sql.DB
	reg        *registry.Registry
	module     *vtab.Module
	moduleName string
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

type options struct {
	dsn     string
	logger  *slog.Logger
	planner planner.Config
	names   NameGenerator
	binding sqlitevtab.Binding
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger shared by the engine and its module.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPlannerConfig sets the cost model and caching configuration.
func WithPlannerConfig(cfg planner.Config) Option {
	return func(o *options) { o.planner = cfg }
}

// WithDSN opens a database file instead of a private in-memory database.
// Virtual tables are not persisted: a file reopened later will list them
// but fail to connect until they are created again in the new engine.
func WithDSN(dsn string) Option {
	return func(o *options) { o.dsn = dsn }
}

// WithBinding sets the SQLite driver binding. The default is
// sqlitevtab.Modernc.
func WithBinding(b sqlitevtab.Binding) Option {
	return func(o *options) { o.binding = b }
}

// WithNameGenerator sets how the module name is chosen.
func WithNameGenerator(g NameGenerator) Option {
	return func(o *options) { o.names = g }
}

// Open registers a fresh module and opens a connection that carries it.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	o := options{
		dsn:     DefaultDSN,
		logger:  slog.Default(),
		planner: planner.DefaultConfig(),
		names:   UUIDv7Generator{},
		binding: sqlitevtab.Modernc,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.planner.Validate(); err != nil {
		return nil, fmt.Errorf("invalid planner config: %w", err)
	}

	reg := registry.New()
	module := vtab.NewModule(reg, vtab.WithLogger(o.logger), vtab.WithConfig(o.planner))
	name := o.names.Generate()
	// Modules are installed when a connection opens, so register first.
	driverName, err := o.binding(name, module)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, o.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	o.logger.Debug("engine opened", "module", name, "driver", driverName, "dsn", o.dsn)
	return &Engine{
		db:         db,
		reg:        reg,
		module:     module,
		moduleName: name,
		logger:     o.logger,
	}, nil
}

// DB returns the underlying database for direct queries.
func (e *Engine) DB() *sql.DB { return e.db }

// ModuleName returns the name the module is registered under.
func (e *Engine) ModuleName() string { return e.moduleName }

// Stats returns the module's activity counters.
func (e *Engine) Stats() vtab.Stats { return e.module.Stats() }

// CreateStatic registers t under name.
func (e *Engine) CreateStatic(ctx context.Context, name string, t table.Table) error {
	return e.create(ctx, name, source.NewStatic(t), nil)
}

// CreateRuntime registers an intermediate result under name.
func (e *Engine) CreateRuntime(ctx context.Context, name string, t *table.Memory) error {
	return e.create(ctx, name, source.NewRuntime(t), nil)
}

// CreateFunction registers g as a table-valued function callable as
// name(arg, ...).
func (e *Engine) CreateFunction(ctx context.Context, name string, g source.Generator) error {
	f, err := source.NewTableFunction(g)
	if err != nil {
		return err
	}
	args := make([]string, 0, f.ArgumentCount())
	for _, c := range g.Arguments() {
		args = append(args, c.Name)
	}
	return e.create(ctx, name, f, args)
}

// RegisterBuiltins creates every builtin table function not yet
// registered.
func (e *Engine) RegisterBuiltins(ctx context.Context) error {
	builtins := source.Builtins()
	for _, name := range slices.Sorted(maps.Keys(builtins)) {
		if _, ok := e.reg.Find(name); ok {
			continue
		}
		if err := e.CreateFunction(ctx, name, builtins[name]); err != nil {
			return fmt.Errorf("builtin %s: %w", name, err)
		}
	}
	return nil
}

func (e *Engine) create(ctx context.Context, name string, src source.Source, args []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := e.module.Stage(name, src); err != nil {
		return err
	}

	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE %s USING %s", table.QuoteIdent(name), e.moduleName)
	if len(args) > 0 {
		stmt += "(" + strings.Join(args, ", ") + ")"
	}
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		e.module.Unstage(name)
		if typed := e.module.TakeFailure(name); typed != nil {
			return typed
		}
		return status.Wrap(status.UpstreamFailure, err, "create virtual table").WithTable(name)
	}
	e.logger.Info("table created", "table", name, "source", src.Kind(), "rows", source.EstimateRows(src))
	return nil
}

// Drop removes the table name.
func (e *Engine) Drop(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if _, ok := e.reg.Find(name); !ok {
		return status.NewNotFound(name)
	}
	if _, err := e.db.ExecContext(ctx, "DROP TABLE "+table.QuoteIdent(name)); err != nil {
		return status.Wrap(status.UpstreamFailure, err, "drop table").WithTable(name)
	}
	e.logger.Info("table dropped", "table", name)
	return nil
}

// Result holds a fully read query result.
type Result struct {
	Columns []string
	Rows    [][]value.Value
}

// Query runs a statement and reads every row.
func (e *Engine) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.query(ctx, query, args...)
}

func (e *Engine) query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	res := &Result{Columns: cols}
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(res.Rows), err)
		}
		row := make([]value.Value, len(cols))
		for i, r := range raw {
			if row[i], err = value.FromDriver(r); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", len(res.Rows), cols[i], err)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return res, nil
}

// queryError restores the code of an adapter error that reached the
// caller as SQL error text.
func queryError(err error) error {
	if code := status.CodeInMessage(err.Error()); code != "" && status.CodeOf(err) == "" {
		return status.Wrap(code, err, "query")
	}
	return fmt.Errorf("query: %w", err)
}

// Exec runs a statement that returns no rows.
func (e *Engine) Exec(ctx context.Context, stmt string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// PlanStep is one row of EXPLAIN QUERY PLAN.
type PlanStep struct {
	ID     int    `json:"id"`
	Parent int    `json:"parent"`
	Detail string `json:"detail"`
}

// Explain returns SQLite's query plan for query. Virtual-table scans show
// the chosen strategy as "VIRTUAL TABLE INDEX <num>:<strategy>".
func (e *Engine) Explain(ctx context.Context, query string, args ...any) ([]PlanStep, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	rows, err := e.db.QueryContext(ctx, "EXPLAIN QUERY PLAN "+query, args...)
	if err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	defer rows.Close()

	var steps []PlanStep
	for rows.Next() {
		var s PlanStep
		var notUsed int
		if err := rows.Scan(&s.ID, &s.Parent, &notUsed, &s.Detail); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("explain: %w", err)
	}
	return steps, nil
}

// TableInfo describes a registered table.
type TableInfo struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Schema    string `json:"schema"`
	Rows      int    `json:"rows"`
	Arguments int    `json:"arguments"`
	Refs      int    `json:"refs"`
}

// Tables lists registered tables by name. Rows is the planner's estimate
// for table functions.
func (e *Engine) Tables() []TableInfo {
	var out []TableInfo
	for _, name := range e.reg.Names() {
		h, ok := e.reg.Find(name)
		if !ok {
			continue
		}
		st, err := e.reg.Lookup(h)
		if err != nil {
			continue
		}
		out = append(out, TableInfo{
			Name:      name,
			Source:    st.Source.Kind().String(),
			Schema:    st.Schema.String(),
			Rows:      source.EstimateRows(st.Source),
			Arguments: st.ArgumentCount,
			Refs:      e.reg.Refs(h),
		})
	}
	return out
}

// Close closes the connection and clears the registry. The module name
// stays registered with the driver for the life of the process.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var result *multierror.Error
	if err := e.db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close database: %w", err))
	}
	if n := e.reg.Len(); n > 0 {
		e.logger.Debug("clearing registry", "tables", n)
	}
	e.reg.Clear()
	return result.ErrorOrNil()
}

var errClosed = errors.New("engine closed")

func (e *Engine) checkOpen() error {
	if e.closed {
		return status.Wrap(status.ProtocolViolation, errClosed, "engine used after close")
	}
	return nil
}
