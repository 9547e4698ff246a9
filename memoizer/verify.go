package memoizer

import (
	"errors"
	"fmt"
)

// ErrVerificationFailed is returned by Verify when the stored document is not
// structurally equal to the one given.
var ErrVerificationFailed = errors.New("verification failed")

// Verifier checks stored documents against their raw form, normalizing the
// latter the way a memoizer configured with the same key handler and flags
// does.
type Verifier[I comparable, K comparable] struct {
	access     Access[I, K]
	normalizer *normalizer[K]
}

func NewVerifier[I comparable, K comparable](access Access[I, K], keys KeyHandler[K], flags Flag) *Verifier[I, K] {
	return &Verifier[I, K]{
		access: access,
		normalizer: &normalizer[K]{
			keys:       newKeyTable[K](keys),
			keepBlanks: flags.Has(KeepBlanks),
		},
	}
}

func (v *Verifier[I, K]) Verify(id I, document any) error {
	expected, err := v.normalizer.document(document)
	if err != nil {
		return fmt.Errorf("verify %v: %w", id, err)
	}

	stored, err := v.access.Get(id)
	if err != nil {
		return fmt.Errorf("verify %v: %w", id, err)
	}

	if !equalDocuments[K](stored, expected) {
		return fmt.Errorf("verify %v: %w: stored document differs", id, ErrVerificationFailed)
	}

	return nil
}
