package memoizer

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"

	"github.com/streamingfast/mapmemo/leafhash"
)

// normalizer rewrites raw documents into `map[K]any` trees: maps become
// `map[K]any` with interned keys, slices and arrays become `[]any` and every
// other value is a leaf. Blank values are stripped from maps unless
// keepBlanks is set, list elements are never stripped since their position
// is significant.
type normalizer[K comparable] struct {
	keys       *keyTable[K]
	keepBlanks bool
}

func (n *normalizer[K]) document(raw any) (map[K]any, error) {
	out, ok := n.mapOf(raw)
	if !ok {
		return nil, fmt.Errorf("%w: expected a map, got %T", ErrInvalidDocument, raw)
	}

	return out, nil
}

func (n *normalizer[K]) mapOf(raw any) (map[K]any, bool) {
	var out map[K]any

	switch m := raw.(type) {
	case map[string]any:
		out = make(map[K]any, len(m))
		for key, value := range m {
			n.putEntry(out, key, value)
		}

	case map[any]any:
		out = make(map[K]any, len(m))
		for key, value := range m {
			n.putEntry(out, key, value)
		}

	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Map {
			return nil, false
		}

		out = make(map[K]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			n.putEntry(out, iter.Key().Interface(), iter.Value().Interface())
		}
	}

	return out, true
}

func (n *normalizer[K]) putEntry(out map[K]any, rawKey, rawValue any) {
	value := n.value(rawValue)
	if !n.keepBlanks && isBlank[K](value) {
		return
	}

	out[n.keys.intern(rawKey)] = value
}

func (n *normalizer[K]) value(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case map[string]any, map[any]any:
		out, _ := n.mapOf(v)
		return out
	case []any:
		return n.list(len(v), func(i int) any { return v[i] })
	}

	if leafhash.TypeOf(raw) != leafhash.TypeOther {
		return ownedLeaf(raw)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map:
		out, _ := n.mapOf(raw)
		return out
	case reflect.Slice, reflect.Array:
		return n.list(rv.Len(), func(i int) any { return rv.Index(i).Interface() })
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	}

	return raw
}

func (n *normalizer[K]) list(length int, element func(i int) any) []any {
	out := make([]any, length)
	for i := range out {
		out[i] = n.value(element(i))
	}

	return out
}

func isBlank[K comparable](value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case map[K]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}

	return false
}

// ownedLeaf copies the leaves whose content the caller could still mutate
// after the document is stored.
func ownedLeaf(raw any) any {
	switch v := raw.(type) {
	case []byte:
		return bytes.Clone(v)
	case *big.Int:
		if v == nil {
			return v
		}
		return new(big.Int).Set(v)
	case leafhash.Decimal:
		if v.Unscaled != nil {
			v.Unscaled = new(big.Int).Set(v.Unscaled)
		}
		return v
	}

	return raw
}
