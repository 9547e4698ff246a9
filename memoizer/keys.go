package memoizer

import (
	"fmt"
	"sync"
	"unicode"

	"github.com/ettle/strcase"
)

// KeyHandler turns raw map keys into canonical keys of type K and provides
// the bytes a canonical key contributes to its map hash. When two raw keys of
// the same map normalize to the same K, which entry is kept is unspecified.
type KeyHandler[K comparable] interface {
	Normalize(raw any) K
	Bytes(key K) []byte
}

// StringKeys stringifies every raw key, `1` and `"1"` hence normalize to the
// same key.
type StringKeys struct{}

func (StringKeys) Normalize(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}

	return fmt.Sprint(raw)
}

func (StringKeys) Bytes(key string) []byte {
	return []byte(key)
}

// SnakeCaseKeys stringifies raw keys like [StringKeys] then converts them to
// snake case, `fooTop` and `foo_top` normalize to the same key.
type SnakeCaseKeys struct{}

func (SnakeCaseKeys) Normalize(raw any) string {
	return caser.ToSnake(StringKeys{}.Normalize(raw))
}

func (SnakeCaseKeys) Bytes(key string) []byte {
	return []byte(key)
}

var caser = strcase.NewCaser(
	false,
	map[string]bool{},
	func(prev, curr, next rune) strcase.SplitAction {
		if isLower(curr) && !isNumber(prev) {
			return strcase.Noop
		}
		if isUpper(prev) && isUpper(curr) && isUpper(next) {
			return strcase.Noop
		}

		// Keep `1.5` and `1,000` untouched
		if (curr == '.' || curr == ',') && isNumber(prev) && isNumber(next) {
			return strcase.Noop
		}

		if unicode.IsSpace(curr) || curr == '-' || curr == '.' || curr == ',' {
			return strcase.SkipSplit
		}

		squeezed := isNumber(prev) && isNumber(next)
		if !isUpper(prev) && isUpper(curr) && !squeezed {
			return strcase.Split
		}

		if isUpper(prev) && isUpper(curr) && isLower(next) {
			return strcase.Split
		}

		return strcase.Noop
	},
)

func isUpper(r rune) bool {
	return unicode.IsUpper(r)
}

func isLower(r rune) bool {
	return unicode.IsLower(r)
}

func isNumber(r rune) bool {
	if r >= '0' && r <= '9' {
		return true
	}
	return unicode.IsNumber(r)
}

// keyTable interns canonical keys: every occurrence of a raw key resolves to
// the first K ever produced for it, and raw keys normalizing to equal K values
// share that first K.
type keyTable[K comparable] struct {
	handler KeyHandler[K]

	lock      sync.Mutex
	raw       map[any]K
	canonical map[K]K
}

func newKeyTable[K comparable](handler KeyHandler[K]) *keyTable[K] {
	return &keyTable[K]{
		handler:   handler,
		raw:       map[any]K{},
		canonical: map[K]K{},
	}
}

func (t *keyTable[K]) intern(raw any) K {
	t.lock.Lock()
	defer t.lock.Unlock()

	if key, found := t.raw[raw]; found {
		return key
	}

	key := t.handler.Normalize(raw)
	if existing, found := t.canonical[key]; found {
		key = existing
	} else {
		t.canonical[key] = key
	}

	t.raw[raw] = key
	return key
}

func (t *keyTable[K]) len() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.canonical)
}
