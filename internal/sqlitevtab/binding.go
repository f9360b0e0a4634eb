package sqlitevtab

import (
	"sort"

	"github.com/roach88/coltab/internal/vtab"
)

// Binding installs m as module moduleName and returns the database/sql
// driver whose connections carry it.
type Binding func(moduleName string, m *vtab.Module) (driverName string, err error)

// DefaultBinding names the binding used when none is configured.
const DefaultBinding = "modernc"

var bindings = map[string]Binding{
	DefaultBinding: Modernc,
}

// Lookup returns the binding registered under name.
func Lookup(name string) (Binding, bool) {
	b, ok := bindings[name]
	return b, ok
}

// Bindings lists the bindings compiled into this build.
func Bindings() []string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
