package leafhash

import (
	"github.com/streamingfast/mapmemo/digest"
)

// Hasher computes the content hash of a leaf value.
type Hasher interface {
	Hash(leaf any) digest.Hash
}

// HasherFunc adapts a plain function into a [Hasher].
type HasherFunc func(leaf any) digest.Hash

func (f HasherFunc) Hash(leaf any) digest.Hash {
	return f(leaf)
}

// DefaultHasher digests the [Encode] output of leaf values.
type DefaultHasher struct {
	factory digest.Factory
	other   AnyHash
}

func NewHasher(factory digest.Factory, other AnyHash) *DefaultHasher {
	if other == nil {
		other = EqualityHash
	}

	return &DefaultHasher{factory: factory, other: other}
}

func (h *DefaultHasher) Hash(leaf any) digest.Hash {
	return digest.NewBuilder(h.factory).Bytes(Encode(leaf, h.other)).Sum()
}
