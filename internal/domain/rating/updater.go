// Package rating turns judgments into persisted Elo updates.
package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/critic/internal/domain/elo"
	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/pkg/logger"
	"github.com/okian/critic/pkg/metrics"
)

// Sink persists a match record together with both rating changes.
type Sink interface {
	RecordMatch(ctx context.Context, rec model.MatchRecord) (model.MatchRecord, error)
}

// Updater applies judgments. It does not retry failed writes.
type Updater struct {
	sink Sink
	log  logger.Logger
}

// NewUpdater returns an Updater writing to sink.
func NewUpdater(sink Sink, opts ...Option) *Updater {
	u := &Updater{sink: sink, log: logger.Nop()}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RecordResult computes the deltas for score (A's result against B) from
// the ratings carried by c and persists them atomically. The contest's
// ratings must be the ones read at selection time.
func (u *Updater) RecordResult(ctx context.Context, c model.Contest, score model.Score) (model.MatchRecord, error) {
	if err := score.Validate(); err != nil {
		metrics.RecordResultFailure("invalid_score")
		return model.MatchRecord{}, err
	}
	if c.A.ID == c.B.ID {
		metrics.RecordResultFailure("invalid_contest")
		return model.MatchRecord{}, fmt.Errorf("%w: title %d against itself", model.ErrInvalidContest, c.A.ID)
	}

	dA, dB := elo.Change(c.A.Rating, c.B.Rating, float64(score))
	rec, err := u.sink.RecordMatch(ctx, model.MatchRecord{
		Ref:         c.ID,
		GroupID:     c.Group.ID,
		CriterionID: c.Criterion.ID,
		AID:         c.A.ID,
		BID:         c.B.ID,
		Score:       score,
		DeltaA:      dA,
		DeltaB:      dB,
	})
	if err != nil {
		metrics.RecordResultFailure(failureReason(err))
		u.log.Warn(ctx, "record result failed",
			logger.Int64("group_id", c.Group.ID),
			logger.Int64("a_id", c.A.ID),
			logger.Int64("b_id", c.B.ID),
			logger.Error(err),
		)
		return model.MatchRecord{}, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	metrics.RecordResult(score.Outcome(), dA, dB)
	u.log.Info(ctx, "result recorded",
		logger.Int64("match_id", rec.ID),
		logger.String("group", c.Group.Name),
		logger.String("outcome", score.Outcome()),
		logger.Int64("a_id", c.A.ID),
		logger.Float64("delta_a", dA),
		logger.Int64("b_id", c.B.ID),
		logger.Float64("delta_b", dB),
	)
	return rec, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrAlreadyJudged):
		return "already_judged"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	default:
		return "store"
	}
}
