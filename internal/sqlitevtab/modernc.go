package sqlitevtab

import (
	mvtab "modernc.org/sqlite/vtab"

	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
	"github.com/roach88/coltab/internal/vtab"

	// Registers the "sqlite" driver and wires mvtab.RegisterModule.
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver the modernc binding works with.
const DriverName = "sqlite"

// Register installs m as module name on every modernc connection opened
// afterwards. Names are process-global; registering a name twice fails.
func Register(name string, m *vtab.Module) error {
	if err := mvtab.RegisterModule(nil, name, &module{m: m}); err != nil {
		return status.Wrap(status.AlreadyExists, err, "register module %q", name)
	}
	return nil
}

// Modernc is the Binding for modernc.org/sqlite.
func Modernc(moduleName string, m *vtab.Module) (string, error) {
	return DriverName, Register(moduleName, m)
}

type module struct {
	m *vtab.Module
}

var _ mvtab.Module = (*module)(nil)

func (a *module) Create(ctx mvtab.Context, args []string) (mvtab.Table, error) {
	t, err := a.m.Create(args)
	if err != nil {
		return nil, err
	}
	if err := declare(ctx, t); err != nil {
		// The engine never sees this table, so it will never destroy it.
		_ = t.Destroy()
		return nil, err
	}
	return &modTable{t: t}, nil
}

func (a *module) Connect(ctx mvtab.Context, args []string) (mvtab.Table, error) {
	t, err := a.m.Connect(args)
	if err != nil {
		return nil, err
	}
	if err := declare(ctx, t); err != nil {
		_ = t.Disconnect()
		return nil, err
	}
	return &modTable{t: t}, nil
}

func declare(ctx mvtab.Context, t *vtab.Table) error {
	sql, err := t.DeclareSQL()
	if err != nil {
		return err
	}
	if err := ctx.Declare(sql); err != nil {
		return status.Wrap(status.SchemaMismatch, err, "declare %s", sql).WithTable(t.Name())
	}
	return nil
}

type modTable struct {
	t *vtab.Table
}

var _ mvtab.Table = (*modTable)(nil)

func (mt *modTable) BestIndex(info *mvtab.IndexInfo) error {
	cons := make([]planner.Constraint, len(info.Constraints))
	for i, c := range info.Constraints {
		cons[i] = planner.Constraint{Column: c.Column, Op: moderncOp(c.Op), Usable: c.Usable}
	}
	orders := make([]table.Order, len(info.OrderBy))
	for i, o := range info.OrderBy {
		orders[i] = table.Order{Column: o.Column, Desc: o.Desc}
	}

	res := mt.t.BestIndex(cons, orders)
	for i := range info.Constraints {
		info.Constraints[i].ArgIndex = res.ArgIndex[i]
		info.Constraints[i].Omit = res.Omit[i]
	}
	info.IdxNum = int64(res.IdxNum)
	info.IdxStr = res.IdxStr
	info.OrderByConsumed = res.OrderConsumed
	info.EstimatedCost = res.Cost
	info.EstimatedRows = res.Rows
	if res.Unique {
		info.IdxFlags |= mvtab.IndexScanUnique
	}
	return nil
}

func (mt *modTable) Open() (mvtab.Cursor, error) {
	c, err := mt.t.Open()
	if err != nil {
		return nil, err
	}
	return &modCursor{c: c}, nil
}

func (mt *modTable) Disconnect() error { return mt.t.Disconnect() }

func (mt *modTable) Destroy() error { return mt.t.Destroy() }

type modCursor struct {
	c *vtab.Cursor
}

var _ mvtab.Cursor = (*modCursor)(nil)

func (mc *modCursor) Filter(idxNum int, idxStr string, vals []mvtab.Value) error {
	argv, err := fromDriverArgs(vals)
	if err != nil {
		return err
	}
	return mc.c.Filter(idxNum, idxStr, argv)
}

func (mc *modCursor) Next() error { return mc.c.Next() }

func (mc *modCursor) Eof() bool { return mc.c.Eof() }

func (mc *modCursor) Column(col int) (mvtab.Value, error) {
	v, err := mc.c.Column(col)
	if err != nil {
		return nil, err
	}
	return value.ToDriver(v), nil
}

func (mc *modCursor) Rowid() (int64, error) { return mc.c.Rowid() }

func (mc *modCursor) Close() error { return mc.c.Close() }

func moderncOp(op mvtab.ConstraintOp) table.Op {
	switch op {
	case mvtab.OpEQ:
		return table.OpEQ
	case mvtab.OpNE:
		return table.OpNE
	case mvtab.OpLT:
		return table.OpLT
	case mvtab.OpLE:
		return table.OpLE
	case mvtab.OpGT:
		return table.OpGT
	case mvtab.OpGE:
		return table.OpGE
	case mvtab.OpIS:
		return table.OpIs
	case mvtab.OpISNOT:
		return table.OpIsNot
	case mvtab.OpISNULL:
		return table.OpIsNull
	case mvtab.OpISNOTNULL:
		return table.OpIsNotNull
	case mvtab.OpLIKE:
		return table.OpLike
	case mvtab.OpGLOB:
		return table.OpGlob
	case mvtab.OpMATCH:
		return table.OpMatch
	case mvtab.OpREGEXP:
		return table.OpRegexp
	case mvtab.OpFUNCTION:
		return table.OpFunction
	case mvtab.OpLIMIT:
		return table.OpLimit
	case mvtab.OpOFFSET:
		return table.OpOffset
	}
	return table.OpUnknown
}
