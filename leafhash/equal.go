package leafhash

import (
	"bytes"
	"math/big"
	"reflect"
	"time"
)

// Equal reports whether two leaf values are equal, consistently with
// [Encode]: equal values always produce the same encoding.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case float32:
		bv, ok := b.(float32)
		return ok && canonicalFloat32(av) == canonicalFloat32(bv)
	case float64:
		bv, ok := b.(float64)
		return ok && canonicalFloat64(av) == canonicalFloat64(bv)
	case *big.Int:
		bv, ok := b.(*big.Int)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == bv
		}
		return av.Cmp(bv) == 0
	case Decimal:
		bv, ok := b.(Decimal)
		return ok && av.Equal(bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	}

	return reflect.DeepEqual(a, b)
}
