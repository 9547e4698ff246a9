package main

import (
	"time"

	"github.com/streamingfast/mapmemo/memoizer"
	"github.com/streamingfast/shutter"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Stats struct {
	*shutter.Shutter

	memoizerStats func() memoizer.Stats
	documentsRead *atomic.Uint64
	startedAt     time.Time
	logger        *zap.Logger
}

func NewStats(memoizerStats func() memoizer.Stats, logger *zap.Logger) *Stats {
	return &Stats{
		Shutter: shutter.New(),

		memoizerStats: memoizerStats,
		documentsRead: atomic.NewUint64(0),
		startedAt:     time.Now(),
		logger:        logger,
	}
}

func (s *Stats) RecordDocument() {
	s.documentsRead.Inc()
}

func (s *Stats) Start(each time.Duration) {
	if s.IsTerminating() || s.IsTerminated() {
		panic("already shutdown, refusing to start again")
	}

	go func() {
		ticker := time.NewTicker(each)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.LogNow()
			case <-s.Terminating():
				return
			}
		}
	}()
}

func (s *Stats) LogNow() {
	read := s.documentsRead.Load()
	if read == 0 {
		s.logger.Info("mapmemo got no documents yet")
		return
	}

	elapsed := time.Since(s.startedAt)

	// Logging fields order is important as it affects the final rendering, we carefully ordered
	// them so the development logs looks nicer.
	s.logger.Info("mapmemo stats",
		zap.Uint64("documents_read", read),
		zap.Float64("documents_per_sec", float64(read)/elapsed.Seconds()),
		zap.Object("memoizer", s.memoizerStats()),
		zap.Duration("elapsed", elapsed),
	)
}

func (s *Stats) Close() {
	s.Shutdown(nil)
}
