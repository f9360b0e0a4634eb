//go:build sqlite_vtable

package sqlitevtab

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"slices"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/table"
	"github.com/roach88/coltab/internal/value"
	"github.com/roach88/coltab/internal/vtab"
)

// RegisterDriver registers a mattn/go-sqlite3 driver under driverName
// whose connections carry m as module moduleName. Like sql.Register it
// panics if driverName is taken.
func RegisterDriver(driverName, moduleName string, m *vtab.Module) {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.CreateModule(moduleName, &mattnModule{m: m}); err != nil {
				return fmt.Errorf("create module %q: %w", moduleName, err)
			}
			return nil
		},
	})
}

func init() {
	bindings["mattn"] = Mattn
}

// Mattn is the Binding for github.com/mattn/go-sqlite3. Each module gets
// a driver of its own, named after the module.
func Mattn(moduleName string, m *vtab.Module) (string, error) {
	driverName := "coltab_mattn_" + moduleName
	if slices.Contains(sql.Drivers(), driverName) {
		return "", status.Errorf(status.AlreadyExists, "driver %q already registered", driverName)
	}
	RegisterDriver(driverName, moduleName, m)
	return driverName, nil
}

type mattnModule struct {
	m *vtab.Module
}

var _ sqlite3.Module = (*mattnModule)(nil)

func (a *mattnModule) Create(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	t, err := a.m.Create(args)
	if err != nil {
		return nil, err
	}
	if err := declareMattn(c, t); err != nil {
		_ = t.Destroy()
		return nil, err
	}
	return &mattnTable{t: t}, nil
}

func (a *mattnModule) Connect(c *sqlite3.SQLiteConn, args []string) (sqlite3.VTab, error) {
	t, err := a.m.Connect(args)
	if err != nil {
		return nil, err
	}
	if err := declareMattn(c, t); err != nil {
		_ = t.Disconnect()
		return nil, err
	}
	return &mattnTable{t: t}, nil
}

func (a *mattnModule) DestroyModule() {}

func declareMattn(c *sqlite3.SQLiteConn, t *vtab.Table) error {
	sql, err := t.DeclareSQL()
	if err != nil {
		return err
	}
	if err := c.DeclareVTab(sql); err != nil {
		return status.Wrap(status.SchemaMismatch, err, "declare %s", sql).WithTable(t.Name())
	}
	return nil
}

type mattnTable struct {
	t *vtab.Table
}

var _ sqlite3.VTab = (*mattnTable)(nil)

// BestIndex answers with Used flags; the driver numbers argv slots in
// constraint order, which is the order the planner assigns them in.
func (mt *mattnTable) BestIndex(cst []sqlite3.InfoConstraint, ob []sqlite3.InfoOrderBy) (*sqlite3.IndexResult, error) {
	cons := make([]planner.Constraint, len(cst))
	for i, c := range cst {
		cons[i] = planner.Constraint{Column: c.Column, Op: mattnOp(c.Op), Usable: c.Usable}
	}
	orders := make([]table.Order, len(ob))
	for i, o := range ob {
		orders[i] = table.Order{Column: o.Column, Desc: o.Desc}
	}

	res := mt.t.BestIndex(cons, orders)
	used := make([]bool, len(cst))
	for i, slot := range res.ArgIndex {
		used[i] = slot >= 0
	}
	return &sqlite3.IndexResult{
		Used:           used,
		IdxNum:         res.IdxNum,
		IdxStr:         res.IdxStr,
		AlreadyOrdered: res.OrderConsumed,
		EstimatedCost:  res.Cost,
		EstimatedRows:  float64(res.Rows),
	}, nil
}

func (mt *mattnTable) Open() (sqlite3.VTabCursor, error) {
	c, err := mt.t.Open()
	if err != nil {
		return nil, err
	}
	return &mattnCursor{c: c}, nil
}

func (mt *mattnTable) Disconnect() error { return mt.t.Disconnect() }

func (mt *mattnTable) Destroy() error { return mt.t.Destroy() }

type mattnCursor struct {
	c *vtab.Cursor
}

var _ sqlite3.VTabCursor = (*mattnCursor)(nil)

func (mc *mattnCursor) Filter(idxNum int, idxStr string, vals []any) error {
	dv := make([]driver.Value, len(vals))
	for i, v := range vals {
		dv[i] = v
	}
	argv, err := fromDriverArgs(dv)
	if err != nil {
		return err
	}
	return mc.c.Filter(idxNum, idxStr, argv)
}

func (mc *mattnCursor) Next() error { return mc.c.Next() }

func (mc *mattnCursor) EOF() bool { return mc.c.Eof() }

func (mc *mattnCursor) Column(ctx *sqlite3.SQLiteContext, col int) error {
	v, err := mc.c.Column(col)
	if err != nil {
		return err
	}
	switch t := v.(type) {
	case value.Int:
		ctx.ResultInt64(int64(t))
	case value.Float:
		ctx.ResultDouble(float64(t))
	case value.Text:
		ctx.ResultText(string(t))
	case value.Blob:
		ctx.ResultBlob([]byte(t))
	default:
		ctx.ResultNull()
	}
	return nil
}

func (mc *mattnCursor) Rowid() (int64, error) { return mc.c.Rowid() }

func (mc *mattnCursor) Close() error { return mc.c.Close() }

// SQLite's SQLITE_INDEX_CONSTRAINT_* codes. The driver passes them
// through unchanged but names only some of them.
var sqliteOps = map[int]table.Op{
	2:   table.OpEQ,
	4:   table.OpGT,
	8:   table.OpLE,
	16:  table.OpLT,
	32:  table.OpGE,
	64:  table.OpMatch,
	65:  table.OpLike,
	66:  table.OpGlob,
	67:  table.OpRegexp,
	68:  table.OpNE,
	69:  table.OpIsNot,
	70:  table.OpIsNotNull,
	71:  table.OpIsNull,
	72:  table.OpIs,
	73:  table.OpLimit,
	74:  table.OpOffset,
	150: table.OpFunction,
}

func mattnOp(op sqlite3.Op) table.Op {
	if o, ok := sqliteOps[int(op)]; ok {
		return o
	}
	return table.OpUnknown
}
