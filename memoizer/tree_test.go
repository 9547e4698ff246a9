package memoizer

import (
	"testing"

	"github.com/streamingfast/mapmemo/digest"
	"github.com/streamingfast/mapmemo/leafhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTreeHasher() *treeHasher[string] {
	factory := digest.MustNewFactory(digest.XXH3)

	return &treeHasher[string]{
		factory: factory,
		keys:    StringKeys{},
		leaves:  leafhash.NewHasher(factory, nil),
	}
}

func TestTreeHasher_MapHashIgnoresOrder(t *testing.T) {
	hasher := newTestTreeHasher()

	build := func(keys ...string) map[string]any {
		out := map[string]any{}
		for i, key := range keys {
			out[key] = i % 2
		}
		return out
	}

	reference := hasher.hashMap(build("a", "b", "c", "d", "e", "f", "g", "h")).hash
	for i := 0; i < 20; i++ {
		assert.Equal(t, reference, hasher.hashMap(build("a", "b", "c", "d", "e", "f", "g", "h")).hash)
	}

	assert.NotEqual(t, reference, hasher.hashMap(build("b", "a", "c", "d", "e", "f", "g", "h")).hash, "values moved to other keys")
}

func TestTreeHasher_ListHashIsOrderSensitive(t *testing.T) {
	hasher := newTestTreeHasher()

	assert.Equal(t, hasher.hashList([]any{1, 2, 3}).hash, hasher.hashList([]any{1, 2, 3}).hash)
	assert.NotEqual(t, hasher.hashList([]any{1, 2, 3}).hash, hasher.hashList([]any{3, 2, 1}).hash)
}

func TestTreeHasher_DistinguishesShapes(t *testing.T) {
	hasher := newTestTreeHasher()

	hashes := map[digest.Hash]string{}
	for name, value := range map[string]any{
		"empty map":       map[string]any{},
		"empty list":      []any{},
		"string leaf":     "1",
		"int leaf":        1,
		"int64 leaf":      int64(1),
		"list of one":     []any{1},
		"list of null":    []any{nil},
		"map of one":      map[string]any{"1": 1},
		"map of null":     map[string]any{"1": nil},
		"nested list":     []any{[]any{1}},
		"key boundaries":  map[string]any{"ab": "c"},
		"key boundaries2": map[string]any{"a": "bc"},
	} {
		hash := hasher.hashValue(value).treeHash()
		require.False(t, hash.IsNull(), name)

		previous, found := hashes[hash]
		require.False(t, found, "%s and %s share hash %s", name, previous, hash)
		hashes[hash] = name
	}
}

func TestTreeHasher_Null(t *testing.T) {
	hasher := newTestTreeHasher()

	tree := hasher.hashValue(nil)
	assert.Equal(t, hashedNull{}, tree)
	assert.Equal(t, digest.Null, tree.treeHash())
}

func TestTreeHasher_DecoratesChildren(t *testing.T) {
	hasher := newTestTreeHasher()

	node := hasher.hashMap(map[string]any{"list": []any{"x", nil}, "leaf": 2})
	require.Len(t, node.children, 2)

	list, ok := node.children["list"].(*hashedNodes)
	require.True(t, ok)
	require.Len(t, list.elements, 2)

	leaf, ok := list.elements[0].(*hashedLeaf)
	require.True(t, ok)
	assert.Equal(t, "x", leaf.value)
	assert.Equal(t, hashedNull{}, list.elements[1])

	assert.Equal(t, hasher.hashList([]any{"x", nil}).hash, list.hash)
}
