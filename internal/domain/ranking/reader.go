// Package ranking serves paginated top lists.
package ranking

import (
	"context"
	"fmt"
	"math"

	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/pkg/logger"
	"github.com/okian/critic/pkg/metrics"
)

// Source returns ranking rows ordered by rating desc, group name, title
// name.
type Source interface {
	Top(ctx context.Context, groupName string, limit, offset int) ([]model.RankingRow, error)
}

// Reader answers top-N queries.
type Reader struct {
	src         Source
	log         logger.Logger
	maxPageSize int
}

// NewReader returns a Reader over src.
func NewReader(src Source, opts ...Option) *Reader {
	r := &Reader{src: src, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PageSize reports the page size Top uses when n rows per page are asked
// for. Offsets are computed from it.
func (r *Reader) PageSize(n int) int {
	if r.maxPageSize > 0 && n > r.maxPageSize {
		return r.maxPageSize
	}
	return n
}

// Top returns page pageIndex of size pageSize, optionally restricted to
// groupName. Invalid or out of range pages yield an empty slice.
func (r *Reader) Top(ctx context.Context, groupName string, pageSize, pageIndex int) ([]model.RankingRow, error) {
	if pageSize <= 0 || pageIndex < 0 {
		return []model.RankingRow{}, nil
	}
	pageSize = r.PageSize(pageSize)
	if pageIndex > math.MaxInt32/pageSize {
		return []model.RankingRow{}, nil
	}

	rows, err := r.src.Top(ctx, groupName, pageSize, pageIndex*pageSize)
	if err != nil {
		r.log.Error(ctx, "ranking read failed", logger.String("group", groupName), logger.Error(err))
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	metrics.RecordRankingRead()
	return rows, nil
}
