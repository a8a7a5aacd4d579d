package pgstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/pkg/metrics"
)

// SQLSTATE codes the store reacts to.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto the repository taxonomy. onUnique is
// the kind reported for a unique violation.
func translate(err error, onUnique error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", onUnique, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// pairIndex is the unique index holding one judgment per pair and group.
const pairIndex = "matches_pair_idx"

// translateMatch maps a failed match insert. Only the pair index means the
// pair was judged; any other unique violation is a reused ref.
func translateMatch(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == pairIndex {
		return fmt.Errorf("%w: %s", repository.ErrAlreadyJudged, pgErr.ConstraintName)
	}
	return translate(err, repository.ErrConflict)
}

func observe(op string, start time.Time, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		err = nil
	}
	metrics.ObserveStore(op, start, err)
}
