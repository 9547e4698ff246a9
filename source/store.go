package source

import (
	"bufio"
	"context"
	"fmt"

	"github.com/streamingfast/dstore"
	"go.uber.org/zap"
)

// StoreSource decodes every object of a dstore.Store found under a prefix,
// objects are visited in the store's walk order.
type StoreSource struct {
	store   dstore.Store
	prefix  string
	decoder Decoder
}

// NewStoreSource opens storeURL, any URL supported by dstore (local path,
// `gs://`, `s3://`, `az://`).
func NewStoreSource(storeURL string, prefix string, format string) (*StoreSource, error) {
	decoder, err := DecoderFor(format)
	if err != nil {
		return nil, err
	}

	store, err := dstore.NewStore(storeURL, "", "", false)
	if err != nil {
		return nil, fmt.Errorf("unable to create input store %q: %w", storeURL, err)
	}

	return NewStoreSourceFrom(store, prefix, decoder), nil
}

func NewStoreSourceFrom(store dstore.Store, prefix string, decoder Decoder) *StoreSource {
	return &StoreSource{
		store:   store,
		prefix:  prefix,
		decoder: decoder,
	}
}

func (s *StoreSource) Documents(ctx context.Context, handler Handler) error {
	var filenames []string
	err := s.store.Walk(ctx, s.prefix, func(filename string) error {
		filenames = append(filenames, filename)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to walk input files: %w", err)
	}

	zlog.Info("found input files", zap.String("prefix", s.prefix), zap.Int("file_count", len(filenames)))

	for idx, filename := range filenames {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.decodeFile(ctx, filename, handler); err != nil {
			return err
		}

		if idx%10 == 0 {
			zlog.Info("input file completed (1/10)", zap.String("filename", filename), zap.Int("file_count", idx+1))
		}
	}

	return nil
}

func (s *StoreSource) decodeFile(ctx context.Context, filename string, handler Handler) error {
	zlog.Debug("processing input file", zap.String("filename", filename))

	reader, err := s.store.OpenObject(ctx, filename)
	if err != nil {
		return fmt.Errorf("unable to open input file %q: %w", filename, err)
	}
	defer reader.Close()

	if err := s.decoder(filename, bufio.NewReader(reader), handler); err != nil {
		return fmt.Errorf("decode %q: %w", filename, err)
	}

	return nil
}
