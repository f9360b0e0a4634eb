package value

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// ErrOutOfRange is returned when a Go value cannot be represented in any
// variant without losing information.
type ErrOutOfRange struct {
	Value any
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("value %v (%T) out of range for a 64-bit integer", e.Value, e.Value)
}

// ErrUnsupported is returned by FromDriver for Go types with no variant.
type ErrUnsupported struct {
	Value any
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported value type %T", e.Value)
}

// ToDriver converts v to the representation handed to the SQL engine.
// Blobs are returned without copying; the engine copies them on receipt.
func ToDriver(v Value) driver.Value {
	switch t := v.(type) {
	case nil, Null:
		return nil
	case Int:
		return int64(t)
	case Float:
		return float64(t)
	case Text:
		return string(t)
	case Blob:
		return []byte(t)
	}
	return nil
}

// FromDriver converts a value received from the SQL engine, or any plain Go
// scalar, into a Value. Byte slices are copied since engines reuse buffers
// between calls.
func FromDriver(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case int64:
		return Int(t), nil
	case int:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int16:
		return Int(t), nil
	case int8:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case uint16:
		return Int(t), nil
	case uint8:
		return Int(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return nil, &ErrOutOfRange{Value: v}
		}
		return Int(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, &ErrOutOfRange{Value: v}
		}
		return Int(t), nil
	case bool:
		if t {
			return Int(1), nil
		}
		return Int(0), nil
	case float64:
		return Float(t), nil
	case float32:
		return Float(t), nil
	case string:
		return Text(t), nil
	case []byte:
		out := make(Blob, len(t))
		copy(out, t)
		return out, nil
	case time.Time:
		return Int(t.UnixNano()), nil
	}
	return nil, &ErrUnsupported{Value: v}
}

// MustFromDriver is FromDriver for literals in tests and fixtures.
func MustFromDriver(v any) Value {
	out, err := FromDriver(v)
	if err != nil {
		panic(err)
	}
	return out
}

// NormalizeText returns t in Unicode Normalization Form C.
//
// Tables normalise text when they are built and probe arguments are
// normalised before comparison, so visually identical strings match.
// Plain conversions never normalise.
func NormalizeText(t Text) Text {
	s := string(t)
	if norm.NFC.IsNormalString(s) {
		return t
	}
	return Text(norm.NFC.String(s))
}

// Normalize applies NormalizeText to text values and returns others as is.
func Normalize(v Value) Value {
	if t, ok := v.(Text); ok {
		return NormalizeText(t)
	}
	return v
}

// ApplyAffinity coerces v towards a column's declared kind the way SQLite
// does when comparing against a column: text that looks numeric becomes a
// number on numeric columns, numbers become text on text columns. Values
// that do not convert cleanly are returned unchanged.
func ApplyAffinity(v Value, k Kind) Value {
	switch k {
	case KindInt, KindFloat:
		t, ok := v.(Text)
		if !ok {
			if f, isFloat := v.(Float); isFloat && k == KindInt {
				if i := int64(f); float64(i) == float64(f) && !math.IsInf(float64(f), 0) {
					return Int(i)
				}
			}
			return v
		}
		s := strings.TrimSpace(string(t))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			if k == KindFloat {
				return Float(float64(i))
			}
			return Int(i)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if k == KindInt {
				if i := int64(f); float64(i) == f {
					return Int(i)
				}
			}
			return Float(f)
		}
		return v
	case KindText:
		switch n := v.(type) {
		case Int, Float:
			return Text(n.String())
		case Text:
			return NormalizeText(n)
		}
		return v
	}
	return v
}
