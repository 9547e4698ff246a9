package memoizer

import (
	"fmt"
	"reflect"

	"github.com/streamingfast/mapmemo/digest"
	"github.com/streamingfast/mapmemo/leafhash"
	"go.uber.org/zap"
)

// canonicalValue is the resolved, shared counterpart of a hashedTree, it is
// one of canonicalNode[K], canonicalNodes, canonicalLeaf, canonicalNull or
// canonicalCollision.
type canonicalValue interface {
	// shared returns the canonical Go value, nil for null and collisions
	shared() any
}

type canonicalNode[K comparable] struct{ value map[K]any }
type canonicalNodes struct{ value []any }
type canonicalLeaf struct{ value any }
type canonicalNull struct{}
type canonicalCollision struct{ hash digest.Hash }

func (c canonicalNode[K]) shared() any { return c.value }
func (c canonicalNodes) shared() any   { return c.value }
func (c canonicalLeaf) shared() any    { return c.value }
func (canonicalNull) shared() any      { return nil }
func (canonicalCollision) shared() any { return nil }

// cataloguer holds the canonical maps, lists and leaves by hash. Interned
// values are never mutated once published, they may be shared by any number
// of documents and canonical parents.
type cataloguer[K comparable] struct {
	maps   map[digest.Hash]map[K]any
	lists  map[digest.Hash][]any
	leaves map[digest.Hash]any

	cacheLeaves bool
}

func newCataloguer[K comparable](cacheLeaves bool) *cataloguer[K] {
	return &cataloguer[K]{
		maps:        map[digest.Hash]map[K]any{},
		lists:       map[digest.Hash][]any{},
		leaves:      map[digest.Hash]any{},
		cacheLeaves: cacheLeaves,
	}
}

// canonicalize resolves the tree bottom-up: children first, then the node
// itself is interned under its hash. A collision anywhere below a node
// poisons the node.
func (c *cataloguer[K]) canonicalize(tree hashedTree) canonicalValue {
	switch t := tree.(type) {
	case *hashedNode[K]:
		content := make(map[K]any, len(t.children))
		for key, child := range t.children {
			resolved := c.canonicalize(child)
			if collision, ok := resolved.(canonicalCollision); ok {
				return collision
			}
			content[key] = resolved.shared()
		}

		existing, found := c.maps[t.hash]
		if !found {
			c.maps[t.hash] = content
			return canonicalNode[K]{content}
		}
		if sameMap[K](existing, content) {
			return canonicalNode[K]{existing}
		}

		return c.collision(t.hash, "map")

	case *hashedNodes:
		content := make([]any, len(t.elements))
		for i, element := range t.elements {
			resolved := c.canonicalize(element)
			if collision, ok := resolved.(canonicalCollision); ok {
				return collision
			}
			content[i] = resolved.shared()
		}

		existing, found := c.lists[t.hash]
		if !found {
			c.lists[t.hash] = content
			return canonicalNodes{content}
		}
		if sameList[K](existing, content) {
			return canonicalNodes{existing}
		}

		return c.collision(t.hash, "list")

	case *hashedLeaf:
		if !c.cacheLeaves {
			return canonicalLeaf{t.value}
		}

		existing, found := c.leaves[t.hash]
		if !found {
			c.leaves[t.hash] = t.value
			return canonicalLeaf{t.value}
		}
		if leafhash.Equal(existing, t.value) {
			return canonicalLeaf{existing}
		}

		return c.collision(t.hash, "leaf")

	case hashedNull:
		return canonicalNull{}
	}

	panic(fmt.Errorf("unhandled hashed tree type %T", tree))
}

func (c *cataloguer[K]) collision(hash digest.Hash, kind string) canonicalCollision {
	zlog.Debug("hash collision detected", zap.String("kind", kind), zap.Stringer("hash", hash))
	return canonicalCollision{hash: hash}
}

// sameMap compares a canonical map against new content built from canonical
// children. Canonical children with equal content are the same instance, so
// maps and lists are compared by identity and only leaves by value.
func sameMap[K comparable](existing, content map[K]any) bool {
	if len(existing) != len(content) {
		return false
	}

	for key, value := range content {
		existingValue, found := existing[key]
		if !found || !sameChild[K](existingValue, value) {
			return false
		}
	}

	return true
}

func sameList[K comparable](existing, content []any) bool {
	if len(existing) != len(content) {
		return false
	}

	for i := range content {
		if !sameChild[K](existing[i], content[i]) {
			return false
		}
	}

	return true
}

func sameChild[K comparable](left, right any) bool {
	switch l := left.(type) {
	case nil:
		return right == nil
	case map[K]any:
		r, ok := right.(map[K]any)
		return ok && sameMapInstance(l, r)
	case []any:
		r, ok := right.([]any)
		return ok && sameListInstance(l, r)
	}

	switch right.(type) {
	case nil, map[K]any, []any:
		return false
	}

	return leafhash.Equal(left, right)
}

func sameMapInstance[K comparable](left, right map[K]any) bool {
	return reflect.ValueOf(left).UnsafePointer() == reflect.ValueOf(right).UnsafePointer()
}

func sameListInstance(left, right []any) bool {
	if len(left) != len(right) {
		return false
	}

	return len(left) == 0 || &left[0] == &right[0]
}

// equalDocuments compares two normalized documents by value, it is only used
// on overflowed documents which are never interned.
func equalDocuments[K comparable](left, right any) bool {
	switch l := left.(type) {
	case map[K]any:
		r, ok := right.(map[K]any)
		if !ok || len(l) != len(r) {
			return false
		}
		for key, value := range l {
			other, found := r[key]
			if !found || !equalDocuments[K](value, other) {
				return false
			}
		}
		return true

	case []any:
		r, ok := right.([]any)
		if !ok || len(l) != len(r) {
			return false
		}
		for i := range l {
			if !equalDocuments[K](l[i], r[i]) {
				return false
			}
		}
		return true
	}

	switch right.(type) {
	case map[K]any, []any:
		return false
	}

	return leafhash.Equal(left, right)
}
