package memoizer

import (
	"fmt"
	"strings"

	"github.com/streamingfast/mapmemo/digest"
	"github.com/streamingfast/mapmemo/leafhash"
)

// Flag toggles an optional memoizer behavior, flags are combined with `|`.
type Flag uint8

const (
	// KeepBlanks keeps nil values, empty maps and empty lists instead of
	// stripping them from documents.
	KeepBlanks Flag = 1 << iota

	// OmitLeaves skips the shared leaf cache, equal leaves are then not
	// deduplicated across maps and lists.
	OmitLeaves

	// OmitGC keeps every canonical map on Complete, including the ones not
	// referenced by any identifier.
	OmitGC

	// UseSystemHC hashes leaves without a canonical encoding by identity
	// rather than by equality.
	UseSystemHC

	// ForkComplete makes Complete return an independent snapshot and leave
	// the memoizer open for more documents.
	ForkComplete
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{KeepBlanks, "KEEP_BLANKS"},
	{OmitLeaves, "OMIT_LEAVES"},
	{OmitGC, "OMIT_GC"},
	{UseSystemHC, "USE_SYSTEM_HC"},
	{ForkComplete, "FORK_COMPLETE"},
}

func (f Flag) Has(flag Flag) bool {
	return f&flag == flag
}

func (f Flag) String() string {
	var names []string
	for _, candidate := range flagNames {
		if f.Has(candidate.flag) {
			names = append(names, candidate.name)
		}
	}

	if len(names) == 0 {
		return "NONE"
	}

	return strings.Join(names, "|")
}

// ParseFlags parses flag names like `KEEP_BLANKS`, case insensitive.
func ParseFlags(names []string) (Flag, error) {
	var out Flag

next:
	for _, name := range names {
		for _, candidate := range flagNames {
			if strings.EqualFold(strings.TrimSpace(name), candidate.name) {
				out |= candidate.flag
				continue next
			}
		}

		return 0, fmt.Errorf("unknown memoizer option %q", name)
	}

	return out, nil
}

// ConflictPolicy decides what Put does with an identifier already in use.
type ConflictPolicy uint8

const (
	// IdempotentConflicts accepts re-putting identical content as a no-op
	// and refuses different content.
	IdempotentConflicts ConflictPolicy = iota

	// StrictConflicts refuses any re-use of an identifier.
	StrictConflicts
)

func (p ConflictPolicy) String() string {
	switch p {
	case IdempotentConflicts:
		return "idempotent"
	case StrictConflicts:
		return "strict"
	}

	return fmt.Sprintf("ConflictPolicy(%d)", uint8(p))
}

type config struct {
	flags      Flag
	digestName string
	factory    digest.Factory
	leafHasher leafhash.Hasher
	conflicts  ConflictPolicy
}

type Option func(c *config)

func WithFlags(flags Flag) Option {
	return func(c *config) {
		c.flags |= flags
	}
}

// WithDigest selects one of the [digest.Algorithms] by name.
func WithDigest(algorithm string) Option {
	return func(c *config) {
		c.digestName = algorithm
	}
}

// WithDigestFactory provides the digest sessions directly, it takes precedence
// over [WithDigest].
func WithDigestFactory(factory digest.Factory) Option {
	return func(c *config) {
		c.factory = factory
	}
}

// WithLeafHasher replaces the default [leafhash.DefaultHasher].
func WithLeafHasher(hasher leafhash.Hasher) Option {
	return func(c *config) {
		c.leafHasher = hasher
	}
}

func WithConflictPolicy(policy ConflictPolicy) Option {
	return func(c *config) {
		c.conflicts = policy
	}
}

func newConfig(opts []Option) (*config, error) {
	c := &config{digestName: digest.Default}
	for _, opt := range opts {
		opt(c)
	}

	if c.factory == nil {
		factory, err := digest.NewFactory(c.digestName)
		if err != nil {
			return nil, err
		}
		c.factory = factory
	}

	if c.leafHasher == nil {
		other := leafhash.EqualityHash
		if c.flags.Has(UseSystemHC) {
			other = leafhash.IdentityHash
		}
		c.leafHasher = leafhash.NewHasher(c.factory, other)
	}

	return c, nil
}
