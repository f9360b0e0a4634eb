package value

import (
	"bytes"
	"cmp"
	"strings"
)

// storageClass orders variants the way SQLite does.
func storageClass(v Value) int {
	switch v.(type) {
	case nil, Null:
		return 0
	case Int, Float:
		return 1
	case Text:
		return 2
	default:
		return 3
	}
}

// Compare returns -1, 0 or +1 ordering a before, equal to, or after b.
//
// NULL < numeric < text < blob. Int and Float compare numerically; an Int
// equal to a Float compares equal. Text compares bytewise (BINARY collation).
func Compare(a, b Value) int {
	ca, cb := storageClass(a), storageClass(b)
	if ca != cb {
		if ca < cb {
			return -1
		}
		return 1
	}
	switch ca {
	case 0:
		return 0
	case 1:
		return compareNumeric(a, b)
	case 2:
		return strings.Compare(string(a.(Text)), string(b.(Text)))
	default:
		return bytes.Compare(a.(Blob), b.(Blob))
	}
}

func compareNumeric(a, b Value) int {
	ai, aInt := a.(Int)
	bi, bInt := b.(Int)
	if aInt && bInt {
		return cmp.Compare(ai, bi)
	}
	// cmp.Compare orders NaN first, which keeps sorting total.
	af, bf := toFloat(a), toFloat(b)
	if c := cmp.Compare(af, bf); c != 0 {
		return c
	}
	// Equal as floats; break ties precisely when one side is an integer
	// too large to be represented exactly.
	if aInt && !bInt {
		return -compareFloatInt(bf, int64(ai))
	}
	if bInt && !aInt {
		return compareFloatInt(af, int64(bi))
	}
	return 0
}

func compareFloatInt(f float64, i int64) int {
	if f >= 9.223372036854775807e18 {
		return 1
	}
	if f < -9.223372036854775808e18 {
		return -1
	}
	t := int64(f)
	if c := cmp.Compare(t, i); c != 0 {
		return c
	}
	return cmp.Compare(f, float64(t))
}

func toFloat(v Value) float64 {
	switch n := v.(type) {
	case Int:
		return float64(n)
	case Float:
		return float64(n)
	}
	return 0
}
