package digest

import (
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"sort"

	"github.com/shabbyrobe/go-num"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

var ErrDigestUnavailable = errors.New("digest unavailable")

const (
	XXH3    = "xxh3-128"
	MD5     = "md5"
	SHA256  = "sha256"
	Blake2b = "blake2b-256"
	Blake3  = "blake3-256"

	Default = XXH3
)

// ByteDigest accumulates byte chunks into a fixed-width [Hash]. Calling Sum
// finalizes the current session and resets the digest for further use.
type ByteDigest interface {
	Write(p []byte)
	Sum() Hash
}

// Factory creates fresh, independent [ByteDigest] sessions.
type Factory func() ByteDigest

var factories = map[string]Factory{
	XXH3:    func() ByteDigest { return &xxh3Digest{hasher: xxh3.New()} },
	MD5:     func() ByteDigest { return &stdDigest{hasher: md5.New()} },
	SHA256:  func() ByteDigest { return &stdDigest{hasher: sha256.New()} },
	Blake2b: func() ByteDigest { return &stdDigest{hasher: mustBlake2b256()} },
	Blake3:  func() ByteDigest { return &stdDigest{hasher: blake3.New()} },
}

// NewFactory returns the [Factory] for the given algorithm name, see
// [Algorithms] for the accepted names.
func NewFactory(algorithm string) (Factory, error) {
	factory, found := factories[algorithm]
	if !found {
		return nil, fmt.Errorf("algorithm %q: %w", algorithm, ErrDigestUnavailable)
	}

	return factory, nil
}

func MustNewFactory(algorithm string) Factory {
	factory, err := NewFactory(algorithm)
	if err != nil {
		panic(err)
	}

	return factory
}

// Algorithms returns the sorted list of supported algorithm names.
func Algorithms() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}

	sort.Strings(out)
	return out
}

type xxh3Digest struct {
	hasher *xxh3.Hasher
}

func (d *xxh3Digest) Write(p []byte) {
	d.hasher.Write(p)
}

func (d *xxh3Digest) Sum() Hash {
	sum := d.hasher.Sum128()
	d.hasher.Reset()

	return fromUint128(num.U128FromRaw(sum.Hi, sum.Lo))
}

type stdDigest struct {
	hasher hash.Hash
}

func (d *stdDigest) Write(p []byte) {
	// hash.Hash never returns an error on Write
	d.hasher.Write(p)
}

func (d *stdDigest) Sum() Hash {
	out := MustFromBytes(d.hasher.Sum(nil))
	d.hasher.Reset()

	return out
}

func mustBlake2b256() hash.Hash {
	// Only fails on a key longer than 64 bytes
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Errorf("blake2b: %w", err))
	}

	return h
}
