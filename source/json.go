package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/streamingfast/mapmemo/leafhash"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

// DecodeJSONL decodes one JSON document per line, blank lines are skipped
// but still counted in positional IDs.
func DecodeJSONL(name string, r io.Reader, handler Handler) error {
	return eachLine(r, func(line []byte, lineNum int) error {
		value, err := decodeJSON(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", name, lineNum, err)
		}

		return handler(Document{ID: positionalID(name, lineNum), Value: value})
	})
}

// DecodeJSONC decodes a single JSON document accepting comments and trailing
// commas.
func DecodeJSONC(name string, r io.Reader, handler Handler) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	value, err := decodeJSON(jsonc.ToJSON(data))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return handler(Document{ID: positionalID(name, 1), Value: value})
}

func eachLine(r io.Reader, fn func(line []byte, lineNum int) error) error {
	reader := bufio.NewReader(r)

	for lineNum := 1; ; lineNum++ {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("unable to read newline: %w", err)
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if fnErr := fn(trimmed, lineNum); fnErr != nil {
				return fnErr
			}
		}

		if err == io.EOF {
			return nil
		}
	}
}

func decodeJSON(data []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	if decoder.More() {
		return nil, fmt.Errorf("invalid json: unexpected data after the document")
	}

	converted, err := convertNumbers(value)
	if err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	return converted, nil
}

// convertNumbers replaces json.Number by int64 when integral and fitting,
// whatever the notation, by a leafhash.Decimal otherwise so no precision is
// lost. Numbers whose scale is out of the decimal range fall back to float64.
func convertNumbers(value any) (any, error) {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}

		d, err := leafhash.ParseDecimal(v.String())
		if err != nil {
			zlog.Debug("number is not a decimal, keeping its float value", zap.String("number", v.String()), zap.Error(err))

			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("number %s: %w", v, err)
			}
			return f, nil
		}

		if i, ok := d.Int64(); ok {
			return i, nil
		}

		return d, nil

	case map[string]any:
		for key, child := range v {
			converted, err := convertNumbers(child)
			if err != nil {
				return nil, err
			}
			v[key] = converted
		}
		return v, nil

	case []any:
		for i, child := range v {
			converted, err := convertNumbers(child)
			if err != nil {
				return nil, err
			}
			v[i] = converted
		}
		return v, nil
	}

	return value, nil
}
