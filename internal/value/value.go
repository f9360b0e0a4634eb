package value

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the variant of a Value. It doubles as the declared type of
// a column.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindText
	KindBlob
)

// String returns the SQL type name used when declaring a column of this kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInt:
		return "INTEGER"
	case KindFloat:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a declared type name to a Kind using SQLite's affinity
// rules: INT anywhere means integer, CHAR/CLOB/TEXT mean text, BLOB or an
// empty name mean blob, REAL/FLOA/DOUB mean float. Anything else is numeric
// and treated as float.
func ParseKind(name string) Kind {
	upper := bytes.ToUpper([]byte(name))
	switch {
	case bytes.Contains(upper, []byte("INT")):
		return KindInt
	case bytes.Contains(upper, []byte("CHAR")),
		bytes.Contains(upper, []byte("CLOB")),
		bytes.Contains(upper, []byte("TEXT")),
		bytes.Contains(upper, []byte("STRING")):
		return KindText
	case len(upper) == 0, bytes.Contains(upper, []byte("BLOB")):
		return KindBlob
	default:
		return KindFloat
	}
}

// Value is a sealed interface. Only Null, Int, Float, Text and Blob
// implement it.
type Value interface {
	Kind() Kind
	String() string
	sealed()
}

// Null is the SQL NULL.
type Null struct{}

// Int is a 64-bit signed integer.
type Int int64

// Float is an IEEE-754 double.
type Float float64

// Text is a UTF-8 string.
type Text string

// Blob is an opaque byte sequence.
type Blob []byte

func (Null) sealed()  {}
func (Int) sealed()   {}
func (Float) sealed() {}
func (Text) sealed()  {}
func (Blob) sealed()  {}

func (Null) Kind() Kind  { return KindNull }
func (Int) Kind() Kind   { return KindInt }
func (Float) Kind() Kind { return KindFloat }
func (Text) Kind() Kind  { return KindText }
func (Blob) Kind() Kind  { return KindBlob }

func (Null) String() string    { return "NULL" }
func (v Int) String() string   { return strconv.FormatInt(int64(v), 10) }
func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v Text) String() string  { return string(v) }
func (v Blob) String() string  { return fmt.Sprintf("x'%X'", []byte(v)) }

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Equal reports whether a and b are the same variant holding the same
// payload. Floats compare by bit pattern so NaN equals itself and the
// round-trip property can be asserted exactly.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && math.Float64bits(float64(av)) == math.Float64bits(float64(bv))
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Blob:
		bv, ok := b.(Blob)
		return ok && bytes.Equal(av, bv)
	}
	return false
}
