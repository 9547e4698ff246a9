package source

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// DecodeCBOR decodes a CBOR sequence, map keys keep their decoded type so the
// memoizer key handler decides how they normalize.
func DecodeCBOR(name string, r io.Reader, handler Handler) error {
	decoder := cbor.NewDecoder(r)

	for position := 1; ; position++ {
		var value any
		if err := decoder.Decode(&value); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("%s: item #%d: %w", name, position, err)
		}

		if err := handler(Document{ID: positionalID(name, position), Value: bigIntPointers(value)}); err != nil {
			return err
		}
	}
}

// bigIntPointers turns decoded big.Int values into *big.Int which is the form
// leaf encoders know about.
func bigIntPointers(value any) any {
	switch v := value.(type) {
	case big.Int:
		return &v

	case map[any]any:
		for key, child := range v {
			v[key] = bigIntPointers(child)
		}
		return v

	case map[string]any:
		for key, child := range v {
			v[key] = bigIntPointers(child)
		}
		return v

	case []any:
		for i, child := range v {
			v[i] = bigIntPointers(child)
		}
		return v
	}

	return value
}
