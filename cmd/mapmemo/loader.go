package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abourget/llerrgroup"
	"github.com/streamingfast/dstore"
	"github.com/streamingfast/mapmemo/memoizer"
	"github.com/streamingfast/mapmemo/source"
	"github.com/streamingfast/shutter"
	"go.uber.org/zap"
)

var errLoadStopped = errors.New("load stopped")

// Loader feeds every document of a source into a memoizer, completes it and
// optionally verifies and dumps the result.
type Loader struct {
	*shutter.Shutter

	source      source.Source
	idField     string
	parallelism int

	keys     memoizer.KeyHandler[string]
	flags    memoizer.Flag
	memoizer *memoizer.Memoizer[string, string]

	verify    bool
	dumpStore dstore.Store

	stats         *Stats
	statsInterval time.Duration
	snapshot      *memoizer.Snapshot[string, string]
}

func (l *Loader) Run(ctx context.Context) {
	l.OnTerminating(func(_ error) {
		l.stats.LogNow()
		l.stats.Close()
	})

	l.Shutdown(l.run(ctx))
}

func (l *Loader) run(ctx context.Context) error {
	l.stats.Start(l.statsInterval)

	zlog.Info("loading documents", zap.Int("parallelism", l.parallelism), zap.Stringer("flags", l.flags))
	if err := l.load(ctx); err != nil {
		return err
	}

	l.snapshot = l.memoizer.Complete()

	if l.verify {
		if err := l.verifyAll(ctx); err != nil {
			return err
		}
	}

	if l.dumpStore != nil {
		if err := dump(ctx, l.dumpStore, l.snapshot); err != nil {
			return err
		}
	}

	zlog.Info("load completed", zap.Object("stats", l.snapshot.Stats()))
	return nil
}

func (l *Loader) load(ctx context.Context) error {
	llg := llerrgroup.New(l.parallelism)

	err := l.source.Documents(ctx, source.IdentifiedBy(l.idField, func(document source.Document) error {
		if llg.Stop() {
			return errLoadStopped
		}

		l.stats.RecordDocument()
		llg.Go(func() error {
			return l.memoizer.Put(document.ID, document.Value)
		})

		return nil
	}))

	if waitErr := llg.Wait(); waitErr != nil {
		return fmt.Errorf("memoize documents: %w", waitErr)
	}

	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}

	return nil
}

func (l *Loader) verifyAll(ctx context.Context) error {
	verifier := memoizer.NewVerifier[string, string](l.snapshot, l.keys, l.flags)

	verified := 0
	err := l.source.Documents(ctx, source.IdentifiedBy(l.idField, func(document source.Document) error {
		if err := verifier.Verify(document.ID, document.Value); err != nil {
			return err
		}

		verified++
		return nil
	}))
	if err != nil {
		return fmt.Errorf("verification: %w", err)
	}

	zlog.Info("documents verified", zap.Int("document_count", verified))
	return nil
}
