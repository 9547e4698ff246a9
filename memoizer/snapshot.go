package memoizer

import (
	"fmt"

	"github.com/streamingfast/mapmemo/digest"
)

// Access is the read side shared by an open [Memoizer] and a [Snapshot].
type Access[I comparable, K comparable] interface {
	Get(id I) (map[K]any, error)
	Size() int
	LeafCount() int
	OverflowCount() int
}

var _ Access[string, string] = (*Snapshot[string, string])(nil)
var _ Access[string, string] = (*Memoizer[string, string])(nil)

// Snapshot is the immutable accessor returned by Complete, every lookup is a
// plain map access and it is safe for concurrent use.
type Snapshot[I comparable, K comparable] struct {
	identifiers map[I]digest.Hash
	maps        map[digest.Hash]map[K]any
	overflow    map[I]map[K]any
	stats       Stats
}

func (s *Snapshot[I, K]) Get(id I) (map[K]any, error) {
	if hash, found := s.identifiers[id]; found {
		return s.maps[hash], nil
	}

	if document, found := s.overflow[id]; found {
		return document, nil
	}

	return nil, fmt.Errorf("get %v: %w", id, ErrUnknownIdentifier)
}

// Hash returns the content hash recorded for id, overflowed documents have
// no recorded hash.
func (s *Snapshot[I, K]) Hash(id I) (digest.Hash, bool) {
	hash, found := s.identifiers[id]
	return hash, found
}

// Identifiers returns every known identifier, canonicalized and overflowed,
// in no particular order.
func (s *Snapshot[I, K]) Identifiers() []I {
	out := make([]I, 0, len(s.identifiers)+len(s.overflow))
	for id := range s.identifiers {
		out = append(out, id)
	}
	for id := range s.overflow {
		out = append(out, id)
	}

	return out
}

func (s *Snapshot[I, K]) Size() int          { return len(s.identifiers) }
func (s *Snapshot[I, K]) OverflowCount() int { return len(s.overflow) }
func (s *Snapshot[I, K]) LeafCount() int     { return s.stats.Leaves }
func (s *Snapshot[I, K]) Stats() Stats       { return s.stats }
