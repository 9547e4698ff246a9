package source

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/streamingfast/mapmemo/leafhash"
	pbentity "github.com/streamingfast/substreams-sink-entity-changes/pb/sf/substreams/sink/entity/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

type entityChangeAtBlockNum struct {
	EntityChange json.RawMessage `json:"entity_change"`
	BlockNum     uint64          `json:"block_num"`
}

// DecodeEntities decodes JSONL entity changes, each line being
// `{"entity_change": <EntityChange>, "block_num": <num>}`. Documents are
// identified as `<entity>:<id>@<block_num>`.
func DecodeEntities(name string, r io.Reader, handler Handler) error {
	return eachLine(r, func(line []byte, lineNum int) error {
		in := &entityChangeAtBlockNum{}
		if err := json.Unmarshal(line, in); err != nil {
			return fmt.Errorf("%s:%d: invalid entity change line: %w", name, lineNum, err)
		}

		if len(in.EntityChange) == 0 {
			return fmt.Errorf("%s:%d: missing entity_change", name, lineNum)
		}

		change := &pbentity.EntityChange{}
		if err := protojson.Unmarshal(in.EntityChange, change); err != nil {
			return fmt.Errorf("%s:%d: invalid entity change: %w", name, lineNum, err)
		}

		document, err := entityDocument(change, in.BlockNum)
		if err != nil {
			return fmt.Errorf("%s:%d: entity %s %q: %w", name, lineNum, change.GetEntity(), change.GetId(), err)
		}

		return handler(Document{
			ID:    fmt.Sprintf("%s:%s@%d", change.GetEntity(), change.GetId(), in.BlockNum),
			Value: document,
		})
	})
}

func entityDocument(change *pbentity.EntityChange, blockNum uint64) (map[string]any, error) {
	fields := make(map[string]any, len(change.GetFields()))
	for _, field := range change.GetFields() {
		if field.GetNewValue() == nil {
			fields[field.GetName()] = nil
			continue
		}

		value, err := entityValue(field.GetNewValue())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field.GetName(), err)
		}

		fields[field.GetName()] = value
	}

	return map[string]any{
		"entity":    change.GetEntity(),
		"id":        change.GetId(),
		"operation": change.GetOperation().String(),
		"block_num": blockNum,
		"fields":    fields,
	}, nil
}

func entityValue(value *pbentity.Value) (any, error) {
	switch v := value.GetTyped().(type) {
	case *pbentity.Value_String_:
		return v.String_, nil

	case *pbentity.Value_Int32:
		return v.Int32, nil

	case *pbentity.Value_Bigdecimal:
		decimal, err := leafhash.ParseDecimal(v.Bigdecimal)
		if err != nil {
			return nil, fmt.Errorf("invalid big decimal %q: %w", v.Bigdecimal, err)
		}

		return decimal, nil

	case *pbentity.Value_Bool:
		return v.Bool, nil

	case *pbentity.Value_Array:
		out := make([]any, len(v.Array.GetValue()))
		for i, element := range v.Array.GetValue() {
			converted, err := entityValue(element)
			if err != nil {
				return nil, fmt.Errorf("element #%d: %w", i, err)
			}

			out[i] = converted
		}

		return out, nil

	case *pbentity.Value_Bytes:
		data, err := base64.StdEncoding.DecodeString(v.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid bytes %q, should have been base64 decodable (standard padded): %w", v.Bytes, err)
		}

		return data, nil

	case *pbentity.Value_Bigint:
		bigInt, ok := new(big.Int).SetString(v.Bigint, 10)
		if !ok {
			return nil, fmt.Errorf("invalid big int %q", v.Bigint)
		}

		return bigInt, nil

	case nil:
		return nil, nil
	}

	return nil, fmt.Errorf("value of type %T not supported", value.GetTyped())
}
