package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Document is a raw document as produced by a decoder, Value is usually a
// map but nothing is enforced before it reaches a memoizer.
type Document struct {
	ID    string
	Value any
}

type Handler func(document Document) error

// Source streams documents to a handler, a handler error stops the iteration
// and is returned as is.
type Source interface {
	Documents(ctx context.Context, handler Handler) error
}

// Decoder decodes every document of an object named name. Decoders assign a
// positional ID of the form `<name>:<position>`.
type Decoder func(name string, r io.Reader, handler Handler) error

var decoders = map[string]Decoder{
	"jsonl":    DecodeJSONL,
	"jsonc":    DecodeJSONC,
	"yaml":     DecodeYAML,
	"cbor":     DecodeCBOR,
	"entities": DecodeEntities,
}

func DecoderFor(format string) (Decoder, error) {
	decoder, found := decoders[strings.ToLower(format)]
	if !found {
		return nil, fmt.Errorf("unknown format %q, valid formats are %s", format, strings.Join(Formats(), ", "))
	}

	return decoder, nil
}

func Formats() []string {
	out := make([]string, 0, len(decoders))
	for format := range decoders {
		out = append(out, format)
	}
	sort.Strings(out)

	return out
}

// IdentifiedBy returns a handler replacing the positional ID of each document
// by the string form of its top-level field, documents without the field keep
// their positional ID. An empty field returns handler untouched.
func IdentifiedBy(field string, handler Handler) Handler {
	if field == "" {
		return handler
	}

	return func(document Document) error {
		if id, found := topLevelField(document.Value, field); found {
			document.ID = id
		}

		return handler(document)
	}
}

func topLevelField(value any, field string) (string, bool) {
	var raw any
	switch v := value.(type) {
	case map[string]any:
		found := false
		if raw, found = v[field]; !found {
			return "", false
		}
	case map[any]any:
		found := false
		if raw, found = v[field]; !found {
			return "", false
		}
	default:
		return "", false
	}

	if raw == nil {
		return "", false
	}

	if s, ok := raw.(string); ok {
		return s, true
	}

	return fmt.Sprint(raw), true
}

func positionalID(name string, position int) string {
	return fmt.Sprintf("%s:%d", name, position)
}
