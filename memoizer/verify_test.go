package memoizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier(t *testing.T) {
	m := newStringMemoizer(t)

	document := map[string]any{"name": "a", "tags": []any{"x", "y"}, "empty": map[string]any{}}
	require.NoError(t, m.Put(1, document))
	require.NoError(t, m.Put(2, map[any]any{1: "one"}))

	snapshot := m.Complete()
	verifier := NewVerifier[int, string](snapshot, StringKeys{}, 0)

	tests := []struct {
		name     string
		id       int
		document any
		wantErr  error
	}{
		{"equal document", 1, map[string]any{"tags": []any{"x", "y"}, "name": "a"}, nil},
		{"stringified keys", 2, map[string]any{"1": "one"}, nil},
		{"different leaf", 1, map[string]any{"name": "b", "tags": []any{"x", "y"}}, ErrVerificationFailed},
		{"different list order", 1, map[string]any{"name": "a", "tags": []any{"y", "x"}}, ErrVerificationFailed},
		{"unknown identifier", 3, map[string]any{}, ErrUnknownIdentifier},
		{"invalid document", 1, []any{}, ErrInvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(tt.id, tt.document)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVerifier_KeepBlanks(t *testing.T) {
	m := newStringMemoizer(t, WithFlags(KeepBlanks))
	require.NoError(t, m.Put(1, map[string]any{"empty": []any{}}))

	assert.NoError(t, NewVerifier[int, string](m, StringKeys{}, KeepBlanks).Verify(1, map[string]any{"empty": []any{}}))
	assert.ErrorIs(t, NewVerifier[int, string](m, StringKeys{}, 0).Verify(1, map[string]any{"empty": []any{}}), ErrVerificationFailed)
}
