// Package service composes the store and the rating engine behind the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/config"
	"github.com/okian/critic/internal/domain/matchmaking"
	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/internal/domain/ranking"
	"github.com/okian/critic/internal/domain/rating"
	"github.com/okian/critic/internal/seed"
	"github.com/okian/critic/pkg/logger"
	"github.com/okian/critic/pkg/metrics"
)

// ErrNotStarted is returned by calls made before Start or after Stop.
var ErrNotStarted = errors.New("service not started")

// Judgment names a pair and the outcome for A.
type Judgment struct {
	ContestID   uuid.UUID
	GroupID     int64
	CriterionID int64
	AID         int64
	BID         int64
	Score       model.Score
}

// Service implements the API dependencies for the rating engine.
type Service struct {
	mu sync.RWMutex
	// judge serializes re-reading a contest with writing its result, so
	// deltas are always computed from the ratings they are applied to.
	judge sync.Mutex

	// Core components
	store    repository.Store
	selector *matchmaking.Selector
	updater  *rating.Updater
	reader   *ranking.Reader

	// Configuration
	driver      string
	dsn         string
	baseline    float64
	fallback    bool
	randomSeed  int64
	maxPageSize int
	seedOnEmpty bool

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		driver:      config.DriverMemory,
		baseline:    model.BaselineRating,
		fallback:    true,
		maxPageSize: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, seeds it if configured and builds the engine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		st, err := OpenStore(ctx, s.driver, s.dsn, repository.WithBaseline(s.baseline))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = st
		s.logger.Info(ctx, "store opened", logger.String("driver", s.driver))
	}

	if s.seedOnEmpty {
		seeded, err := seed.IfEmpty(ctx, s.store)
		if err != nil {
			_ = s.store.Close()
			s.store = nil
			return err
		}
		if seeded {
			s.logger.Info(ctx, "default catalog loaded")
		}
	}

	s.selector = matchmaking.NewSelector(s.store,
		matchmaking.WithLogger(s.logger.Named("matchmaking")),
		matchmaking.WithFallback(s.fallback),
		matchmaking.WithSeed(s.randomSeed),
	)
	s.updater = rating.NewUpdater(s.store, rating.WithLogger(s.logger.Named("rating")))
	s.reader = ranking.NewReader(s.store,
		ranking.WithLogger(s.logger.Named("ranking")),
		ranking.WithMaxPageSize(s.maxPageSize),
	)

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Bool("groupFallback", s.fallback),
		logger.Int("maxPageSize", s.maxPageSize),
		logger.Float64("baseline", s.baseline),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
	}
	s.store = nil
	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// NextContest proposes the next pair to compare. groupID zero picks a
// random group with at least two titles.
func (s *Service) NextContest(ctx context.Context, groupID int64) (model.Contest, error) {
	if !s.running() {
		return model.Contest{}, ErrNotStarted
	}
	return s.selector.NextContest(ctx, groupID)
}

// Judge records j against the pair's current ratings. The contest is
// rebuilt from the store so callers only need to name the pair.
func (s *Service) Judge(ctx context.Context, j Judgment) (model.MatchRecord, error) {
	if !s.running() {
		return model.MatchRecord{}, ErrNotStarted
	}
	if err := j.Score.Validate(); err != nil {
		metrics.RecordResultFailure("invalid_score")
		return model.MatchRecord{}, err
	}
	if j.AID == j.BID {
		metrics.RecordResultFailure("invalid_contest")
		return model.MatchRecord{}, fmt.Errorf("%w: title %d against itself", model.ErrInvalidContest, j.AID)
	}

	s.judge.Lock()
	defer s.judge.Unlock()

	c, err := s.store.LoadContest(ctx, j.GroupID, j.CriterionID, j.AID, j.BID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.RecordResultFailure("not_found")
			return model.MatchRecord{}, fmt.Errorf("load contest: %w", err)
		}
		metrics.RecordResultFailure("store")
		return model.MatchRecord{}, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	c.ID = j.ContestID
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return s.updater.RecordResult(ctx, c, j.Score)
}

// RecordResult records score for a contest as served by NextContest. The
// ratings carried by c are used as is.
func (s *Service) RecordResult(ctx context.Context, c model.Contest, score model.Score) (model.MatchRecord, error) {
	if !s.running() {
		return model.MatchRecord{}, ErrNotStarted
	}
	s.judge.Lock()
	defer s.judge.Unlock()
	return s.updater.RecordResult(ctx, c, score)
}

// Top returns one page of the ranking.
func (s *Service) Top(ctx context.Context, groupName string, pageSize, pageIndex int) ([]model.RankingRow, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}
	return s.reader.Top(ctx, groupName, pageSize, pageIndex)
}

// PageSize reports the effective size of a ranking page of n rows.
func (s *Service) PageSize(n int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reader == nil {
		return n
	}
	return s.reader.PageSize(n)
}

// Catalog exposes title, group and criterion management.
func (s *Service) Catalog() (repository.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Stats counts catalog rows and refreshes the catalog gauges.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	if !s.running() {
		return model.Stats{}, ErrNotStarted
	}
	st, err := s.store.Stats(ctx)
	if err != nil {
		return model.Stats{}, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	metrics.UpdateCatalogSize(st.Titles, st.Groups, st.Matches)
	return st, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if !s.running() {
		return ErrNotStarted
	}
	return s.store.Ping(ctx)
}
