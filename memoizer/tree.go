package memoizer

import (
	"bytes"
	"sort"

	"github.com/streamingfast/mapmemo/digest"
	"github.com/streamingfast/mapmemo/leafhash"
)

// hashedTree is the hash decorated version of a normalized document, it is
// one of *hashedNode[K], *hashedNodes, *hashedLeaf or hashedNull.
type hashedTree interface {
	treeHash() digest.Hash
}

type hashedNode[K comparable] struct {
	hash     digest.Hash
	children map[K]hashedTree
}

type hashedNodes struct {
	hash     digest.Hash
	elements []hashedTree
}

type hashedLeaf struct {
	hash  digest.Hash
	value any
}

type hashedNull struct{}

func (n *hashedNode[K]) treeHash() digest.Hash { return n.hash }
func (n *hashedNodes) treeHash() digest.Hash   { return n.hash }
func (n *hashedLeaf) treeHash() digest.Hash    { return n.hash }
func (hashedNull) treeHash() digest.Hash       { return digest.Null }

// Node tags sit outside the leafhash type tag range, a map or list feed never
// starts like an encoded leaf.
const (
	mapTag  byte = 0xfe
	listTag byte = 0xfd
)

// treeHasher computes hashed trees, it holds no mutable state and is safe
// for concurrent use.
type treeHasher[K comparable] struct {
	factory digest.Factory
	keys    KeyHandler[K]
	leaves  leafhash.Hasher
}

type hashedEntry[K comparable] struct {
	keyBytes []byte
	child    hashedTree
}

// hashMap feeds the entry count then every (key, child hash) pair ordered by
// key bytes, the resulting hash does not depend on the map iteration order.
func (h *treeHasher[K]) hashMap(m map[K]any) *hashedNode[K] {
	children := make(map[K]hashedTree, len(m))
	entries := make([]hashedEntry[K], 0, len(m))
	for key, value := range m {
		child := h.hashValue(value)
		children[key] = child
		entries = append(entries, hashedEntry[K]{keyBytes: h.keys.Bytes(key), child: child})
	}

	sort.Slice(entries, func(i, j int) bool {
		if cmp := bytes.Compare(entries[i].keyBytes, entries[j].keyBytes); cmp != 0 {
			return cmp < 0
		}

		return entries[i].child.treeHash().Compare(entries[j].child.treeHash()) < 0
	})

	builder := digest.NewBuilder(h.factory).Byte(mapTag).Int32(int32(len(entries)))
	for _, entry := range entries {
		builder.Int32(int32(len(entry.keyBytes))).Bytes(entry.keyBytes).Hash(entry.child.treeHash())
	}

	return &hashedNode[K]{hash: builder.Sum(), children: children}
}

func (h *treeHasher[K]) hashList(list []any) *hashedNodes {
	elements := make([]hashedTree, len(list))

	builder := digest.NewBuilder(h.factory).Byte(listTag).Int32(int32(len(list)))
	for i, value := range list {
		elements[i] = h.hashValue(value)
		builder.Hash(elements[i].treeHash())
	}

	return &hashedNodes{hash: builder.Sum(), elements: elements}
}

func (h *treeHasher[K]) hashValue(value any) hashedTree {
	switch v := value.(type) {
	case nil:
		return hashedNull{}
	case map[K]any:
		return h.hashMap(v)
	case []any:
		return h.hashList(v)
	}

	return &hashedLeaf{hash: h.leaves.Hash(value), value: value}
}
