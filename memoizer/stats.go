package memoizer

import (
	"go.uber.org/zap/zapcore"
)

// Stats is a point in time view of a memoizer content.
type Stats struct {
	Documents  int
	Overflowed int
	Maps       int
	Lists      int
	Leaves     int
	Keys       int
	Completed  bool
}

func (s Stats) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddInt("documents", s.Documents)
	encoder.AddInt("overflowed", s.Overflowed)
	encoder.AddInt("canonical_maps", s.Maps)
	encoder.AddInt("canonical_lists", s.Lists)
	encoder.AddInt("canonical_leaves", s.Leaves)
	encoder.AddInt("keys", s.Keys)
	encoder.AddBool("completed", s.Completed)

	return nil
}
