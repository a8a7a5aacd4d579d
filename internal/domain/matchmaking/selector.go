// Package matchmaking picks the next pair of titles to compare.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/pkg/logger"
	"github.com/okian/critic/pkg/metrics"
)

// AnyGroup lets the selector choose the group.
const AnyGroup int64 = 0

// minTitles is the smallest group that still has a pair.
const minTitles = 2

// Source is the slice of the store the selector reads.
type Source interface {
	// NextPair returns the closest unjudged pair of a group or
	// model.ErrNotFound when there is none.
	NextPair(ctx context.Context, groupID int64) (model.Contest, error)
	GroupsWithMinTitles(ctx context.Context, n int) ([]model.CriteriaGroup, error)
}

// Selector proposes contests. It keeps no state between calls apart from
// its random source.
type Selector struct {
	src      Source
	log      logger.Logger
	fallback bool
	newID    func() uuid.UUID

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector reading from src.
func NewSelector(src Source, opts ...Option) *Selector {
	s := &Selector{
		src:      src,
		log:      logger.Nop(),
		fallback: true,
		newID:    uuid.New,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // group choice, not security
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextContest returns the closest unjudged pair in groupID, or in a random
// group with at least two titles when groupID is AnyGroup. It returns
// model.ErrNoEligiblePair when nothing is left to compare.
func (s *Selector) NextContest(ctx context.Context, groupID int64) (model.Contest, error) {
	start := time.Now()
	defer func() {
		metrics.RecordSelectionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	candidates := []int64{groupID}
	if groupID == AnyGroup {
		groups, err := s.src.GroupsWithMinTitles(ctx, minTitles)
		if err != nil {
			s.log.Error(ctx, "list eligible groups failed", logger.Error(err))
			return model.Contest{}, fmt.Errorf("%w: %w", model.ErrPersistence, err)
		}
		candidates = s.order(groups)
	}

	for _, id := range candidates {
		c, err := s.src.NextPair(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			s.log.Debug(ctx, "group exhausted", logger.Int64("group_id", id))
			continue
		}
		if err != nil {
			s.log.Error(ctx, "next pair failed", logger.Int64("group_id", id), logger.Error(err))
			return model.Contest{}, fmt.Errorf("%w: %w", model.ErrPersistence, err)
		}
		c.ID = s.newID()
		metrics.RecordContestServed(c.Group.Name)
		s.log.Debug(ctx, "contest selected",
			logger.String("contest_id", c.ID.String()),
			logger.String("group", c.Group.Name),
			logger.Int64("a_id", c.A.ID),
			logger.Int64("b_id", c.B.ID),
			logger.Float64("gap", abs(c.A.Rating-c.B.Rating)),
		)
		return c, nil
	}

	metrics.RecordContestsExhausted()
	s.log.Debug(ctx, "no eligible pair", logger.Int64("group_id", groupID))
	return model.Contest{}, model.ErrNoEligiblePair
}

// order returns the groups to try: one uniformly random group, followed by
// the rest in random order when fallback is enabled.
func (s *Selector) order(groups []model.CriteriaGroup) []int64 {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]int64, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}

	s.mu.Lock()
	s.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	s.mu.Unlock()

	if !s.fallback {
		return ids[:1]
	}
	return ids
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
