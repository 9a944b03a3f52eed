// Package history keeps the bounded conversation window of each report in
// front of the store. Writes go to the store first and then to the cache.
package history

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mediway/labreports/internal/entity"
	"github.com/mediway/labreports/internal/repository"
)

// DefaultLimit is the number of most recent turns kept per report.
const DefaultLimit = 10

type Service struct {
	store  repository.HistoryRepository
	cache  Cache
	limit  int
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService builds a history service. A nil cache gets an in-process one and
// a non-positive limit falls back to DefaultLimit.
func NewService(store repository.HistoryRepository, cache Cache, limit int, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, limit: limit, logger: logger}
}

// Get returns the window, oldest first.
func (s *Service) Get(ctx context.Context, reportID string) ([]entity.Turn, error) {
	if turns, ok, err := s.cache.Get(ctx, reportID); err != nil {
		s.logger.Warn("history.cache.get.failed", "report_id", reportID, "error", err)
	} else if ok {
		return turns, nil
	}

	turns, err := s.store.Load(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if len(turns) > 0 {
		if err := s.cache.Set(ctx, reportID, turns); err != nil {
			s.logger.Warn("history.cache.fill.failed", "report_id", reportID, "error", err)
		}
	}
	return turns, nil
}

// Append adds turns to the window, drops the oldest beyond the limit and
// writes the result through to the store and the cache.
func (s *Service) Append(ctx context.Context, reportID string, turns ...entity.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Get(ctx, reportID)
	if err != nil {
		return err
	}
	window := trim(append(current, turns...), s.limit)
	if err := s.store.Save(ctx, reportID, window); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, reportID, window); err != nil {
		s.logger.Warn("history.cache.set.failed", "report_id", reportID, "error", err)
	}
	s.logger.Debug("history.append.ok", "report_id", reportID, "turns", len(window))
	return nil
}

// Clear removes the window from both tiers.
func (s *Service) Clear(ctx context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx, reportID); err != nil {
		return err
	}
	return s.Invalidate(ctx, reportID)
}

// Invalidate drops the cached window only, e.g. after the report itself was
// deleted and the store rows went with it.
func (s *Service) Invalidate(ctx context.Context, reportID string) error {
	return s.cache.Delete(ctx, reportID)
}

func trim(turns []entity.Turn, limit int) []entity.Turn {
	if len(turns) <= limit {
		return turns
	}
	return append([]entity.Turn(nil), turns[len(turns)-limit:]...)
}
