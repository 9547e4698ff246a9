package source

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeYAML decodes a stream of `---` separated YAML documents.
func DecodeYAML(name string, r io.Reader, handler Handler) error {
	decoder := yaml.NewDecoder(r)

	for position := 1; ; position++ {
		var value any
		if err := decoder.Decode(&value); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("%s: document #%d: %w", name, position, err)
		}

		if err := handler(Document{ID: positionalID(name, position), Value: value}); err != nil {
			return err
		}
	}
}
