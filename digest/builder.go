package digest

// Builder feeds typed values through a single [ByteDigest] session. Integers
// are written big-endian. A Builder is not safe for concurrent use, create one
// per hashing operation.
type Builder struct {
	digest  ByteDigest
	scratch [8]byte
}

func NewBuilder(factory Factory) *Builder {
	return &Builder{digest: factory()}
}

func (b *Builder) Bytes(p []byte) *Builder {
	b.digest.Write(p)
	return b
}

func (b *Builder) String(s string) *Builder {
	b.digest.Write([]byte(s))
	return b
}

func (b *Builder) Byte(v byte) *Builder {
	b.scratch[0] = v
	b.digest.Write(b.scratch[:1])
	return b
}

func (b *Builder) Int32(v int32) *Builder {
	be.PutUint32(b.scratch[:4], uint32(v))
	b.digest.Write(b.scratch[:4])
	return b
}

func (b *Builder) Int64(v int64) *Builder {
	return b.Uint64(uint64(v))
}

func (b *Builder) Uint64(v uint64) *Builder {
	be.PutUint64(b.scratch[:8], v)
	b.digest.Write(b.scratch[:8])
	return b
}

// Hash feeds the raw bytes of another hash, [Null] feeds nothing but its
// zero width marker.
func (b *Builder) Hash(h Hash) *Builder {
	b.Byte(h.width)
	b.digest.Write(h.bytes[:h.width])
	return b
}

// Sum finalizes the session, the Builder can be reused afterwards.
func (b *Builder) Sum() Hash {
	return b.digest.Sum()
}
