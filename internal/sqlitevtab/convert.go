package sqlitevtab

import (
	"database/sql/driver"
	"errors"

	"github.com/roach88/coltab/internal/status"
	"github.com/roach88/coltab/internal/value"
)

// fromDriverArgs converts Filter arguments received from a driver.
func fromDriverArgs(vals []driver.Value) ([]value.Value, error) {
	out := make([]value.Value, len(vals))
	for i, v := range vals {
		cv, err := value.FromDriver(v)
		if err != nil {
			var oor *value.ErrOutOfRange
			if errors.As(err, &oor) {
				return nil, status.Wrap(status.OutOfRange, err, "filter argument %d", i)
			}
			return nil, status.Wrap(status.ProtocolViolation, err, "filter argument %d", i)
		}
		out[i] = cv
	}
	return out, nil
}
