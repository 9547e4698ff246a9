package leafhash

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/constraints"
)

// Type is the one byte tag prefixing every leaf encoding, two recognized
// types never share a tag.
type Type byte

const (
	TypeString Type = iota + 1
	TypeBool
	TypeInt
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeDecimal
	TypeBigInt
	TypeUUID
	TypeTime
	TypeDuration
	TypeBytes
	TypeOther
)

var typeNames = map[Type]string{
	TypeString:   "String",
	TypeBool:     "Bool",
	TypeInt:      "Int",
	TypeInt8:     "Int8",
	TypeInt16:    "Int16",
	TypeInt32:    "Int32",
	TypeInt64:    "Int64",
	TypeUint:     "Uint",
	TypeUint8:    "Uint8",
	TypeUint16:   "Uint16",
	TypeUint32:   "Uint32",
	TypeUint64:   "Uint64",
	TypeFloat32:  "Float32",
	TypeFloat64:  "Float64",
	TypeDecimal:  "Decimal",
	TypeBigInt:   "BigInt",
	TypeUUID:     "UUID",
	TypeTime:     "Time",
	TypeDuration: "Duration",
	TypeBytes:    "Bytes",
	TypeOther:    "Other",
}

func (t Type) String() string {
	if name, found := typeNames[t]; found {
		return name
	}

	return fmt.Sprintf("Type(%d)", byte(t))
}

// TypeOf returns the tag [Encode] uses for value, [TypeOther] for any value
// without a canonical encoding.
func TypeOf(value any) Type {
	switch v := value.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBool
	case int:
		return TypeInt
	case int8:
		return TypeInt8
	case int16:
		return TypeInt16
	case int32:
		return TypeInt32
	case int64:
		return TypeInt64
	case uint:
		return TypeUint
	case uint8:
		return TypeUint8
	case uint16:
		return TypeUint16
	case uint32:
		return TypeUint32
	case uint64:
		return TypeUint64
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	case Decimal:
		return TypeDecimal
	case *big.Int:
		if v != nil {
			return TypeBigInt
		}
	case uuid.UUID:
		return TypeUUID
	case time.Time:
		return TypeTime
	case time.Duration:
		return TypeDuration
	case []byte:
		return TypeBytes
	}

	return TypeOther
}

// AnyHash hashes values of types without a canonical encoding.
type AnyHash func(value any) uint64

// EqualityHash is consistent with value equality: it hashes the dynamic type
// name along with the Go-syntax rendering of the value.
func EqualityHash(value any) uint64 {
	return xxh3.HashString(fmt.Sprintf("%T\x00%#v", value, value))
}

// IdentityHash hashes reference kinds (pointers, maps, slices, channels and
// functions) by address, two equal but distinct instances hence hash apart.
// Other kinds fall back to [EqualityHash].
func IdentityHash(value any) uint64 {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return xxh3.HashString(fmt.Sprintf("%T\x00%x", value, rv.Pointer()))
	}

	return EqualityHash(value)
}

var be = binary.BigEndian

// Encode returns the type tagged canonical byte representation of value.
// Values of types without a canonical encoding are encoded as [TypeOther]
// followed by the result of other, [EqualityHash] is used when other is nil.
func Encode(value any, other AnyHash) []byte {
	return AppendEncoded(nil, value, other)
}

func AppendEncoded(out []byte, value any, other AnyHash) []byte {
	tag := TypeOf(value)
	out = append(out, byte(tag))

	switch tag {
	case TypeString:
		return append(out, value.(string)...)
	case TypeBool:
		if value.(bool) {
			return append(out, 1)
		}
		return append(out, 0)
	case TypeInt:
		return appendSigned(out, value.(int))
	case TypeInt8:
		return appendSigned(out, value.(int8))
	case TypeInt16:
		return appendSigned(out, value.(int16))
	case TypeInt32:
		return appendSigned(out, value.(int32))
	case TypeInt64:
		return appendSigned(out, value.(int64))
	case TypeUint:
		return appendUnsigned(out, value.(uint))
	case TypeUint8:
		return appendUnsigned(out, value.(uint8))
	case TypeUint16:
		return appendUnsigned(out, value.(uint16))
	case TypeUint32:
		return appendUnsigned(out, value.(uint32))
	case TypeUint64:
		return appendUnsigned(out, value.(uint64))
	case TypeFloat32:
		return be.AppendUint32(out, canonicalFloat32(value.(float32)))
	case TypeFloat64:
		return be.AppendUint64(out, canonicalFloat64(value.(float64)))
	case TypeDecimal:
		d := value.(Decimal)
		out = appendBigInt(out, d.unscaledOrZero())
		return be.AppendUint64(out, uint64(d.Scale))
	case TypeBigInt:
		return appendBigInt(out, value.(*big.Int))
	case TypeUUID:
		id := value.(uuid.UUID)
		out = be.AppendUint64(out, be.Uint64(id[0:8]))
		return be.AppendUint64(out, be.Uint64(id[8:16]))
	case TypeTime:
		t := value.(time.Time)
		out = be.AppendUint64(out, uint64(t.Unix()))
		return be.AppendUint32(out, uint32(t.Nanosecond()))
	case TypeDuration:
		return appendSigned(out, int64(value.(time.Duration)))
	case TypeBytes:
		return append(out, value.([]byte)...)
	}

	if other == nil {
		other = EqualityHash
	}

	return be.AppendUint64(out, other(value))
}

func appendSigned[T constraints.Signed](out []byte, value T) []byte {
	return be.AppendUint64(out, uint64(int64(value)))
}

func appendUnsigned[T constraints.Unsigned](out []byte, value T) []byte {
	return be.AppendUint64(out, uint64(value))
}

func appendBigInt(out []byte, value *big.Int) []byte {
	switch value.Sign() {
	case -1:
		out = append(out, 0xff)
	case 0:
		out = append(out, 0x00)
	default:
		out = append(out, 0x01)
	}

	return append(out, value.Bytes()...)
}

const canonicalNaN64 = 0x7ff8000000000001
const canonicalNaN32 = 0x7fc00001

func canonicalFloat64(f float64) uint64 {
	switch {
	case f == 0:
		return 0
	case math.IsNaN(f):
		return canonicalNaN64
	}

	return math.Float64bits(f)
}

func canonicalFloat32(f float32) uint32 {
	switch {
	case f == 0:
		return 0
	case f != f:
		return canonicalNaN32
	}

	return math.Float32bits(f)
}
