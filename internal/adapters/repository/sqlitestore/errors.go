package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/pkg/metrics"
)

// translate maps driver errors onto the repository taxonomy. onUnique is
// the kind reported for a unique violation.
func translate(err error, onUnique error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", onUnique, se)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%w: %v", repository.ErrNotFound, se)
		}
	}
	return err
}

// pairIndex is the unique index holding one judgment per pair and group.
const pairIndex = "matches_pair_idx"

// translateMatch maps a failed match insert. Only the pair index means the
// pair was judged; any other unique violation is a reused ref.
func translateMatch(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique && strings.Contains(se.Error(), pairIndex) {
		return fmt.Errorf("%w: %v", repository.ErrAlreadyJudged, se)
	}
	return translate(err, repository.ErrConflict)
}

// observe reports the operation to metrics. Missing rows are expected
// outcomes, not store failures.
func observe(op string, start time.Time, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		err = nil
	}
	metrics.ObserveStore(op, start, err)
}
