package memoizer

import (
	"fmt"
	"maps"
	"sync"

	"github.com/streamingfast/mapmemo/digest"
	"go.uber.org/zap"
)

// Memoizer canonicalizes documents so that structurally equal maps, lists and
// leaves are stored once and shared, at any depth and across documents.
// Documents are retrieved by their identifier of type I, canonical keys are of
// type K.
//
// A Memoizer is open until Complete is called, it then only serves Get. It is
// safe for concurrent use: normalization and hashing run without locking,
// only the interning of a hashed document is serialized.
type Memoizer[I comparable, K comparable] struct {
	flags     Flag
	conflicts ConflictPolicy

	lock        sync.RWMutex
	normalizer  *normalizer[K]
	hasher      *treeHasher[K]
	catalogue   *cataloguer[K]
	identifiers map[I]digest.Hash
	overflow    map[I]map[K]any

	// completed is set once closed, Get then delegates to it
	completed *Snapshot[I, K]
}

// New creates an open memoizer normalizing keys through keys. It fails with
// [digest.ErrDigestUnavailable] if the configured digest does not exist.
func New[I comparable, K comparable](keys KeyHandler[K], opts ...Option) (*Memoizer[I, K], error) {
	if keys == nil {
		return nil, fmt.Errorf("key handler is required")
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("invalid memoizer config: %w", err)
	}

	zlog.Debug("creating memoizer",
		zap.Stringer("flags", cfg.flags),
		zap.String("digest", cfg.digestName),
		zap.Stringer("conflicts", cfg.conflicts),
	)

	return &Memoizer[I, K]{
		flags:     cfg.flags,
		conflicts: cfg.conflicts,
		normalizer: &normalizer[K]{
			keys:       newKeyTable[K](keys),
			keepBlanks: cfg.flags.Has(KeepBlanks),
		},
		hasher: &treeHasher[K]{
			factory: cfg.factory,
			keys:    keys,
			leaves:  cfg.leafHasher,
		},
		catalogue:   newCataloguer[K](!cfg.flags.Has(OmitLeaves)),
		identifiers: map[I]digest.Hash{},
		overflow:    map[I]map[K]any{},
	}, nil
}

// Put memoizes document, a map of any key type, under id. When id is already
// known, the configured [ConflictPolicy] decides between a no-op and
// [ErrDuplicateIdentifier].
func (m *Memoizer[I, K]) Put(id I, document any) error {
	_, err := m.put(id, document, false)
	return err
}

// PutIfAbsent memoizes document under id unless id is already known, in
// which case it returns false.
func (m *Memoizer[I, K]) PutIfAbsent(id I, document any) (bool, error) {
	return m.put(id, document, true)
}

func (m *Memoizer[I, K]) put(id I, document any, ifAbsent bool) (bool, error) {
	norm, hasher := m.builders()
	if norm == nil {
		return false, fmt.Errorf("put %v: %w", id, ErrCompleted)
	}

	normalized, err := norm.document(document)
	if err != nil {
		return false, fmt.Errorf("put %v: %w", id, err)
	}

	tree := hasher.hashMap(normalized)

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.completed != nil {
		return false, fmt.Errorf("put %v: %w", id, ErrCompleted)
	}

	if m.known(id) {
		if ifAbsent {
			return false, nil
		}

		return false, m.conflict(id, tree.hash, normalized)
	}

	switch value := m.catalogue.canonicalize(tree).(type) {
	case canonicalNode[K]:
		m.identifiers[id] = tree.hash
		if tracer.Enabled() {
			zlog.Debug("document canonicalized", zap.Any("id", id), zap.Stringer("hash", tree.hash))
		}

	case canonicalCollision:
		zlog.Info("hash collision in document, storing it in overflow", zap.Any("id", id), zap.Stringer("hash", value.hash))
		m.overflow[id] = normalized
		DocumentsOverflowCount.Inc()

	default:
		panic(fmt.Errorf("unexpected canonical value %T for a document", value))
	}

	DocumentsPutCount.Inc()
	CanonicalMaps.SetUint64(uint64(len(m.catalogue.maps)))
	CanonicalLeaves.SetUint64(uint64(len(m.catalogue.leaves)))

	return true, nil
}

func (m *Memoizer[I, K]) builders() (*normalizer[K], *treeHasher[K]) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.normalizer, m.hasher
}

func (m *Memoizer[I, K]) known(id I) bool {
	if _, found := m.identifiers[id]; found {
		return true
	}

	_, found := m.overflow[id]
	return found
}

func (m *Memoizer[I, K]) conflict(id I, hash digest.Hash, normalized map[K]any) error {
	if m.conflicts == StrictConflicts {
		return fmt.Errorf("put %v: %w", id, ErrDuplicateIdentifier)
	}

	// An equal hash may still be a collision, the content decides.
	if existing, found := m.identifiers[id]; found && existing == hash && equalDocuments[K](m.catalogue.maps[existing], normalized) {
		return nil
	}

	if existing, found := m.overflow[id]; found && equalDocuments[K](existing, normalized) {
		return nil
	}

	return fmt.Errorf("put %v: %w: content differs from the existing document", id, ErrDuplicateIdentifier)
}

// Get returns the canonical document for id, before or after completion.
func (m *Memoizer[I, K]) Get(id I) (map[K]any, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.completed != nil {
		return m.completed.Get(id)
	}

	if hash, found := m.identifiers[id]; found {
		return m.catalogue.maps[hash], nil
	}

	if document, found := m.overflow[id]; found {
		return document, nil
	}

	return nil, fmt.Errorf("get %v: %w", id, ErrUnknownIdentifier)
}

// Size returns the number of canonicalized documents, overflowed documents
// are counted by OverflowCount.
func (m *Memoizer[I, K]) Size() int {
	return m.Stats().Documents
}

func (m *Memoizer[I, K]) OverflowCount() int {
	return m.Stats().Overflowed
}

// LeafCount returns the number of interned leaves, once completed the count
// at completion time.
func (m *Memoizer[I, K]) LeafCount() int {
	return m.Stats().Leaves
}

func (m *Memoizer[I, K]) MapCount() int {
	return m.Stats().Maps
}

func (m *Memoizer[I, K]) ListCount() int {
	return m.Stats().Lists
}

func (m *Memoizer[I, K]) Stats() Stats {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.completed != nil {
		return m.completed.stats
	}

	return m.openStats()
}

func (m *Memoizer[I, K]) openStats() Stats {
	return Stats{
		Documents:  len(m.identifiers),
		Overflowed: len(m.overflow),
		Maps:       len(m.catalogue.maps),
		Lists:      len(m.catalogue.lists),
		Leaves:     len(m.catalogue.leaves),
		Keys:       m.normalizer.keys.len(),
	}
}

// Complete closes the memoizer and returns its read-only [Snapshot], calling
// it again returns the same snapshot. Canonical maps not referenced by any
// identifier are dropped unless [OmitGC] is set, and every build-only cache
// is released.
//
// With [ForkComplete], each call returns a new independent snapshot and the
// memoizer stays open.
func (m *Memoizer[I, K]) Complete() *Snapshot[I, K] {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.completed != nil {
		return m.completed
	}

	if m.flags.Has(ForkComplete) {
		snapshot := m.snapshot(true)
		zlog.Info("memoizer snapshot forked", zap.Object("stats", snapshot.stats))
		return snapshot
	}

	m.completed = m.snapshot(false)
	m.normalizer = nil
	m.hasher = nil
	m.catalogue = nil
	m.identifiers = nil
	m.overflow = nil

	zlog.Info("memoizer completed", zap.Object("stats", m.completed.stats))
	return m.completed
}

// snapshot builds the read-only view, fork copies the tables the memoizer
// keeps on mutating instead of taking them over.
func (m *Memoizer[I, K]) snapshot(fork bool) *Snapshot[I, K] {
	stats := m.openStats()
	stats.Completed = true

	identifiers, overflow := m.identifiers, m.overflow
	if fork {
		identifiers, overflow = maps.Clone(identifiers), maps.Clone(overflow)
	}

	canonical := m.catalogue.maps
	if m.flags.Has(OmitGC) {
		if fork {
			canonical = maps.Clone(canonical)
		}
	} else {
		canonical = make(map[digest.Hash]map[K]any, len(identifiers))
		for _, hash := range identifiers {
			canonical[hash] = m.catalogue.maps[hash]
		}

		zlog.Debug("pruned unreachable canonical maps",
			zap.Int("kept", len(canonical)),
			zap.Int("pruned", len(m.catalogue.maps)-len(canonical)),
		)
	}
	stats.Maps = len(canonical)

	return &Snapshot[I, K]{
		identifiers: identifiers,
		maps:        canonical,
		overflow:    overflow,
		stats:       stats,
	}
}
