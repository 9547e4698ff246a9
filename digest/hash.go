package digest

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/shabbyrobe/go-num"
)

const MaxWidth = 32

// Hash is a fixed-width content digest, either 128 or 256 bits wide. It is a
// plain value, comparable with `==` and usable as a map key. The zero value
// is [Null], which has a width of 0 and hence never equals a produced hash.
type Hash struct {
	width uint8
	bytes [MaxWidth]byte
}

// Null is the sentinel hash representing an explicit null value.
var Null = Hash{}

var be = binary.BigEndian

// FromBytes builds a [Hash] from a 16 or 32 bytes digest.
func FromBytes(in []byte) (Hash, error) {
	if len(in) != 16 && len(in) != 32 {
		return Hash{}, fmt.Errorf("accepting exactly 16 or 32 bytes, got %d", len(in))
	}

	h := Hash{width: uint8(len(in))}
	copy(h.bytes[:], in)
	return h, nil
}

func MustFromBytes(in []byte) Hash {
	h, err := FromBytes(in)
	if err != nil {
		panic(err)
	}

	return h
}

func fromUint128(value num.U128) Hash {
	hi, lo := value.Raw()

	h := Hash{width: 16}
	be.PutUint64(h.bytes[0:8], hi)
	be.PutUint64(h.bytes[8:16], lo)
	return h
}

// Width returns the hash width in bytes, 0 for [Null].
func (h Hash) Width() int {
	return int(h.width)
}

func (h Hash) IsNull() bool {
	return h.width == 0
}

// Bytes returns a copy of the digest bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, h.width)
	copy(out, h.bytes[:h.width])
	return out
}

// Uint128 returns the first 128 bits of the hash as an unsigned integer.
func (h Hash) Uint128() num.U128 {
	return num.U128FromRaw(be.Uint64(h.bytes[0:8]), be.Uint64(h.bytes[8:16]))
}

// Compare orders hashes by width first then by their bytes.
func (h Hash) Compare(other Hash) int {
	if h.width != other.width {
		if h.width < other.width {
			return -1
		}
		return 1
	}

	return bytes.Compare(h.bytes[:h.width], other.bytes[:other.width])
}

func (h Hash) String() string {
	if h.IsNull() {
		return "<Null>"
	}

	return hex.EncodeToString(h.bytes[:h.width])
}
