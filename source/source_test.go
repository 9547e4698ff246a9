package source

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/streamingfast/mapmemo/leafhash"
	pbentity "github.com/streamingfast/substreams-sink-entity-changes/pb/sf/substreams/sink/entity/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
)

func collect(t *testing.T, decoder Decoder, name string, input []byte) []Document {
	t.Helper()

	var out []Document
	err := decoder(name, bytes.NewReader(input), func(document Document) error {
		out = append(out, document)
		return nil
	})
	require.NoError(t, err)

	return out
}

func TestDecodeJSONL(t *testing.T) {
	documents := collect(t, DecodeJSONL, "docs.jsonl", []byte(strings.Join([]string{
		`{"id": "a", "count": 12, "ratio": 1.50, "huge": 123456789012345678901234567890}`,
		``,
		`{"id": "b", "nested": {"list": [1, "two", null, true]}}`,
	}, "\n")))
	require.Len(t, documents, 2)

	assert.Equal(t, "docs.jsonl:1", documents[0].ID)
	assert.Equal(t, map[string]any{
		"id":    "a",
		"count": int64(12),
		"ratio": leafhash.MustParseDecimal("1.5"),
		"huge":  leafhash.MustParseDecimal("123456789012345678901234567890"),
	}, documents[0].Value)

	assert.Equal(t, "docs.jsonl:3", documents[1].ID)
	assert.Equal(t, map[string]any{
		"id":     "b",
		"nested": map[string]any{"list": []any{int64(1), "two", nil, true}},
	}, documents[1].Value)
}

func TestDecodeJSON_Numbers(t *testing.T) {
	tests := []struct {
		in       string
		expected any
		wantErr  bool
	}{
		{"100", int64(100), false},
		{"1e2", int64(100), false},
		{"1.00E+2", int64(100), false},
		{"-2500e-2", int64(-25), false},
		{"9.223372036854775807e18", int64(9223372036854775807), false},
		{"9.223372036854775808e18", leafhash.MustParseDecimal("9223372036854775808"), false},
		{"1e19", leafhash.MustParseDecimal("1e19"), false},
		{"0.0", int64(0), false},
		{"1.5", leafhash.MustParseDecimal("1.5"), false},
		{"1e-999999999", float64(0), false},
		{"1e999999999", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := decodeJSON([]byte(`{"n": ` + tt.in + `}`))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, map[string]any{"n": tt.expected}, got)
		})
	}
}

func TestDecodeJSONL_Invalid(t *testing.T) {
	err := DecodeJSONL("bad.jsonl", strings.NewReader("{\"a\": 1}\n{nope}\n"), func(Document) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.jsonl:2")
}

func TestDecodeJSONC(t *testing.T) {
	documents := collect(t, DecodeJSONC, "config.jsonc", []byte(`{
		// the name
		"name": "mapmemo",
		/* the tags */
		"tags": ["a", "b",],
	}`))
	require.Len(t, documents, 1)

	assert.Equal(t, "config.jsonc:1", documents[0].ID)
	assert.Equal(t, map[string]any{"name": "mapmemo", "tags": []any{"a", "b"}}, documents[0].Value)
}

func TestDecodeYAML(t *testing.T) {
	documents := collect(t, DecodeYAML, "docs.yaml", []byte(strings.Join([]string{
		"name: first",
		"list: [1, 2]",
		"---",
		"name: second",
		"1: numeric key",
	}, "\n")))
	require.Len(t, documents, 2)

	assert.Equal(t, "docs.yaml:1", documents[0].ID)
	assert.Equal(t, map[string]any{"name": "first", "list": []any{1, 2}}, documents[0].Value)

	assert.Equal(t, "docs.yaml:2", documents[1].ID)
	assert.Equal(t, map[any]any{"name": "second", 1: "numeric key"}, documents[1].Value)
}

func TestDecodeCBOR(t *testing.T) {
	huge, ok := new(big.Int).SetString("1180591620717411303424", 10)
	require.True(t, ok)

	var input []byte
	for _, item := range []any{
		map[string]any{"name": "first", "huge": huge},
		map[int]any{1: []any{"x"}},
	} {
		encoded, err := cbor.Marshal(item)
		require.NoError(t, err)
		input = append(input, encoded...)
	}

	documents := collect(t, DecodeCBOR, "docs.cbor", input)
	require.Len(t, documents, 2)

	first, ok := documents[0].Value.(map[any]any)
	require.True(t, ok, "got %T", documents[0].Value)
	assert.Equal(t, "docs.cbor:1", documents[0].ID)
	assert.Equal(t, "first", first["name"])

	decodedHuge, ok := first["huge"].(*big.Int)
	require.True(t, ok, "got %T", first["huge"])
	assert.Equal(t, 0, huge.Cmp(decodedHuge))

	second, ok := documents[1].Value.(map[any]any)
	require.True(t, ok, "got %T", documents[1].Value)
	assert.Equal(t, []any{"x"}, second[uint64(1)])
}

func TestDecodeEntities(t *testing.T) {
	change := &pbentity.EntityChange{
		Entity: "transfer",
		Id:     "0xab",
		Fields: []*pbentity.Field{
			{Name: "from", NewValue: &pbentity.Value{Typed: &pbentity.Value_String_{String_: "alice"}}},
			{Name: "amount", NewValue: &pbentity.Value{Typed: &pbentity.Value_Bigint{Bigint: "1000000000000000000000"}}},
			{Name: "price", NewValue: &pbentity.Value{Typed: &pbentity.Value_Bigdecimal{Bigdecimal: "12.50"}}},
			{Name: "count", NewValue: &pbentity.Value{Typed: &pbentity.Value_Int32{Int32: 3}}},
			{Name: "final", NewValue: &pbentity.Value{Typed: &pbentity.Value_Bool{Bool: true}}},
			{Name: "data", NewValue: &pbentity.Value{Typed: &pbentity.Value_Bytes{Bytes: "AQI="}}},
			{Name: "tags", NewValue: &pbentity.Value{Typed: &pbentity.Value_Array{Array: &pbentity.Array{Value: []*pbentity.Value{
				{Typed: &pbentity.Value_String_{String_: "a"}},
			}}}}},
		},
	}

	encoded, err := protojson.Marshal(change)
	require.NoError(t, err)

	line := `{"entity_change": ` + string(encoded) + `, "block_num": 42}`
	documents := collect(t, DecodeEntities, "entities.jsonl", []byte(line+"\n"))
	require.Len(t, documents, 1)

	amount, ok := new(big.Int).SetString("1000000000000000000000", 10)
	require.True(t, ok)

	assert.Equal(t, "transfer:0xab@42", documents[0].ID)
	assert.Equal(t, map[string]any{
		"entity":    "transfer",
		"id":        "0xab",
		"operation": change.GetOperation().String(),
		"block_num": uint64(42),
		"fields": map[string]any{
			"from":   "alice",
			"amount": amount,
			"price":  leafhash.MustParseDecimal("12.5"),
			"count":  int32(3),
			"final":  true,
			"data":   []byte{1, 2},
			"tags":   []any{"a"},
		},
	}, documents[0].Value)
}

func TestDecodeEntities_InvalidValue(t *testing.T) {
	line := `{"entity_change": {"entity": "transfer", "id": "1", "fields": [{"name": "amount", "new_value": {"bigint": "nope"}}]}, "block_num": 1}`

	err := DecodeEntities("entities.jsonl", strings.NewReader(line), func(Document) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid big int "nope"`)
}

func TestDecoderFor(t *testing.T) {
	for _, format := range Formats() {
		decoder, err := DecoderFor(format)
		require.NoError(t, err, format)
		assert.NotNil(t, decoder)
	}

	_, err := DecoderFor("JSONL")
	require.NoError(t, err)

	_, err = DecoderFor("xml")
	require.Error(t, err)
}

func TestIdentifiedBy(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    any
		expected string
	}{
		{"no field configured", "", map[string]any{"id": "a"}, "pos"},
		{"string field", "id", map[string]any{"id": "a"}, "a"},
		{"numeric field", "id", map[string]any{"id": int64(12)}, "12"},
		{"any keys", "id", map[any]any{"id": "b"}, "b"},
		{"missing field", "id", map[string]any{"other": "a"}, "pos"},
		{"null field", "id", map[string]any{"id": nil}, "pos"},
		{"not a map", "id", []any{"a"}, "pos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := IdentifiedBy(tt.field, func(document Document) error {
				got = document.ID
				return nil
			})

			require.NoError(t, handler(Document{ID: "pos", Value: tt.value}))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestStoreSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte("{\"v\": 1}\n{\"v\": 2}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jsonl"), []byte("{\"v\": 3}\n"), 0o644))

	src, err := NewStoreSource(dir, "", "jsonl")
	require.NoError(t, err)

	var values []any
	err = src.Documents(context.Background(), func(document Document) error {
		values = append(values, document.Value.(map[string]any)["v"])
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []any{int64(1), int64(2), int64(3)}, values)
}

func TestStoreSource_HandlerErrorStops(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte("{\"v\": 1}\n{\"v\": 2}\n"), 0o644))

	src, err := NewStoreSource(dir, "", "jsonl")
	require.NoError(t, err)

	stop := errors.New("stop")
	seen := 0
	err = src.Documents(context.Background(), func(Document) error {
		seen++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestNewStoreSource_UnknownFormat(t *testing.T) {
	_, err := NewStoreSource(t.TempDir(), "", "xml")
	require.Error(t, err)
}
