package vtab

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/registry"
	"github.com/roach88/coltab/internal/source"
	"github.com/roach88/coltab/internal/status"
)

// Module creates and connects virtual tables backed by a Registry.
type Module struct {
	reg       *registry.Registry
	estimator *planner.Estimator
	cfg       planner.Config
	logger    *slog.Logger

	mu       sync.Mutex
	staged   map[string]source.Source
	failures map[string]error

	stats counters
}

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) { m.logger = l }
}

// WithConfig sets the planner and caching configuration.
func WithConfig(cfg planner.Config) Option {
	return func(m *Module) { m.cfg = cfg }
}

// NewModule returns a Module registering tables in reg.
func NewModule(reg *registry.Registry, opts ...Option) *Module {
	m := &Module{
		reg:      reg,
		cfg:      planner.DefaultConfig(),
		logger:   slog.Default(),
		staged:   make(map[string]source.Source),
		failures: make(map[string]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.estimator = planner.New(m.cfg)
	return m
}

// Registry returns the module's registry.
func (m *Module) Registry() *registry.Registry { return m.reg }

// Config returns the module's configuration.
func (m *Module) Config() planner.Config { return m.cfg }

// Stage parks src for the next Create of name. Returns AlreadyExists if
// name is staged or registered.
func (m *Module) Stage(name string, src source.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.staged[name]; ok {
		return status.NewAlreadyExists(name)
	}
	if _, ok := m.reg.Find(name); ok {
		return status.NewAlreadyExists(name)
	}
	m.staged[name] = src
	return nil
}

// Unstage drops a staged source that was never created.
func (m *Module) Unstage(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.staged, name)
}

func (m *Module) takeStaged(name string) (source.Source, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.staged[name]
	delete(m.staged, name)
	return src, ok
}

// Create registers the staged source for the table named in args and
// returns the first instance.
//
// args follow the engine convention: module name, database name, table
// name, then the declared arguments. Table functions must declare exactly
// one argument per function argument; other sources declare none. The
// staged source is consumed whether or not Create succeeds.
func (m *Module) Create(args []string) (_ *Table, err error) {
	name, declared, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	defer func() { m.recordFailure(name, err) }()
	src, ok := m.takeStaged(name)
	if !ok {
		return nil, status.Errorf(status.NotFound, "no source staged for create").WithTable(name)
	}
	if err := checkArguments(name, src, len(declared)); err != nil {
		return nil, err
	}

	h, err := m.reg.Register(name, src, len(declared))
	if err != nil {
		return nil, err
	}
	if err := m.reg.Acquire(h); err != nil {
		_ = m.reg.Unregister(h)
		return nil, err
	}
	m.logger.Debug("virtual table created",
		"table", name,
		"source", src.Kind(),
		"schema", src.Schema().String(),
		"arguments", len(declared))
	return newTable(m, h, name), nil
}

// Connect attaches a new instance to an already registered table.
func (m *Module) Connect(args []string) (_ *Table, err error) {
	name, declared, err := parseArgs(args)
	if err != nil {
		return nil, err
	}
	defer func() { m.recordFailure(name, err) }()
	h, ok := m.reg.Find(name)
	if !ok {
		return nil, status.NewNotFound(name)
	}
	st, err := m.reg.Lookup(h)
	if err != nil {
		return nil, err
	}
	if len(declared) != st.ArgumentCount {
		return nil, status.NewSchemaMismatch(name, "table was created with %d arguments, connect declares %d", st.ArgumentCount, len(declared))
	}
	if err := checkArguments(name, st.Source, len(declared)); err != nil {
		return nil, err
	}
	if err := m.reg.Acquire(h); err != nil {
		return nil, err
	}
	m.logger.Debug("virtual table connected", "table", name)
	return newTable(m, h, name), nil
}

// TakeFailure returns and forgets the last Create or Connect error for
// name. Drivers flatten callback errors to text; callers use this to
// recover the typed error.
func (m *Module) TakeFailure(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.failures[name]
	delete(m.failures, name)
	return err
}

func (m *Module) recordFailure(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, name)
		return
	}
	m.failures[name] = err
}

// Stats returns a snapshot of the module's counters.
func (m *Module) Stats() Stats {
	return m.stats.snapshot()
}

func parseArgs(args []string) (string, []string, error) {
	if len(args) < 3 {
		return "", nil, status.NewProtocolViolation("expected module, database and table names, got %d arguments", len(args))
	}
	var declared []string
	for _, a := range args[3:] {
		if a = strings.TrimSpace(a); a != "" {
			declared = append(declared, a)
		}
	}
	return args[2], declared, nil
}

func checkArguments(name string, src source.Source, declared int) error {
	if want := source.ArgumentCount(src); declared != want {
		return status.NewSchemaMismatch(name, "%s source takes %d arguments, %d declared", src.Kind(), want, declared)
	}
	return nil
}

// Stats counts adapter activity across every table of a Module.
type Stats struct {
	BestIndexCalls int64 `json:"best_index_calls"`
	Filters        int64 `json:"filters"`
	SingleRow      int64 `json:"single_row"`
	Computations   int64 `json:"computations"`
	CacheBuilds    int64 `json:"cache_builds"`
	CacheHits      int64 `json:"cache_hits"`
}

type counters struct {
	bestIndex    atomic.Int64
	filters      atomic.Int64
	singleRow    atomic.Int64
	computations atomic.Int64
	cacheBuilds  atomic.Int64
	cacheHits    atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		BestIndexCalls: c.bestIndex.Load(),
		Filters:        c.filters.Load(),
		SingleRow:      c.singleRow.Load(),
		Computations:   c.computations.Load(),
		CacheBuilds:    c.cacheBuilds.Load(),
		CacheHits:      c.cacheHits.Load(),
	}
}
