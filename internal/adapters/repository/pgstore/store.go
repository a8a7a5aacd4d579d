// Package pgstore implements repository.Store on PostgreSQL.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/domain/model"
)

//go:embed schema.sql
var schema embed.FS

// Store is a PostgreSQL backed repository.Store.
type Store struct {
	pool *pgxpool.Pool
	opts repository.Options
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string, opts ...repository.Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Store{pool: pool, opts: repository.BuildOptions(opts...)}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	ddl, err := schema.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const pairQuery = `
SELECT g.id, g.name, a.title_id, ta.name, a.rating, b.title_id, tb.name, b.rating
FROM ratings a
JOIN ratings b ON b.group_id = a.group_id AND b.title_id > a.title_id
JOIN criteria_groups g ON g.id = a.group_id
JOIN titles ta ON ta.id = a.title_id
JOIN titles tb ON tb.id = b.title_id
WHERE ($1::bigint = 0 OR a.group_id = $1)
  AND NOT EXISTS (
    SELECT 1 FROM matches m
    WHERE m.group_id = a.group_id
      AND LEAST(m.a_id, m.b_id) = a.title_id
      AND GREATEST(m.a_id, m.b_id) = b.title_id)
ORDER BY abs(a.rating - b.rating), g.id, a.title_id, b.title_id
LIMIT 1`

const leastUsedCriterionQuery = `
SELECT c.id, c.group_id, c.name
FROM criteria c
LEFT JOIN matches m ON m.criterion_id = c.id
WHERE c.group_id = $1
GROUP BY c.id, c.group_id, c.name
ORDER BY COUNT(m.id), c.id
LIMIT 1`

// NextPair implements repository.Store.
func (s *Store) NextPair(ctx context.Context, groupID int64) (c model.Contest, err error) {
	defer func(start time.Time) { observe("next_pair", start, err) }(time.Now())

	if groupID != repository.AnyGroup {
		if _, err = s.group(ctx, groupID); err != nil {
			return model.Contest{}, err
		}
	}
	err = s.pool.QueryRow(ctx, pairQuery, groupID).Scan(
		&c.Group.ID, &c.Group.Name,
		&c.A.ID, &c.A.Name, &c.A.Rating,
		&c.B.ID, &c.B.Name, &c.B.Rating,
	)
	if err != nil {
		return model.Contest{}, fmt.Errorf("next pair: %w", translate(err, repository.ErrConflict))
	}
	err = s.pool.QueryRow(ctx, leastUsedCriterionQuery, c.Group.ID).Scan(
		&c.Criterion.ID, &c.Criterion.GroupID, &c.Criterion.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		c.Criterion, err = model.Criterion{}, nil
	}
	if err != nil {
		return model.Contest{}, fmt.Errorf("least used criterion: %w", err)
	}
	return c, nil
}

func (s *Store) group(ctx context.Context, id int64) (model.CriteriaGroup, error) {
	g := model.CriteriaGroup{ID: id}
	err := s.pool.QueryRow(ctx, `SELECT name FROM criteria_groups WHERE id = $1`, id).Scan(&g.Name)
	if err != nil {
		return model.CriteriaGroup{}, fmt.Errorf("group %d: %w", id, translate(err, repository.ErrConflict))
	}
	return g, nil
}

// LoadContest implements repository.Store.
func (s *Store) LoadContest(ctx context.Context, groupID, criterionID, aID, bID int64) (c model.Contest, err error) {
	defer func(start time.Time) { observe("load_contest", start, err) }(time.Now())

	if c.Group, err = s.group(ctx, groupID); err != nil {
		return model.Contest{}, err
	}
	if criterionID != 0 {
		err = s.pool.QueryRow(ctx,
			`SELECT id, group_id, name FROM criteria WHERE id = $1 AND group_id = $2`, criterionID, groupID,
		).Scan(&c.Criterion.ID, &c.Criterion.GroupID, &c.Criterion.Name)
		if err != nil {
			return model.Contest{}, fmt.Errorf("criterion %d in group %d: %w", criterionID, groupID, translate(err, repository.ErrConflict))
		}
	}
	for _, side := range []struct {
		id  int64
		dst *model.Contestant
	}{{aID, &c.A}, {bID, &c.B}} {
		side.dst.ID = side.id
		err = s.pool.QueryRow(ctx,
			`SELECT t.name, r.rating FROM ratings r JOIN titles t ON t.id = r.title_id
			 WHERE r.title_id = $1 AND r.group_id = $2`, side.id, groupID,
		).Scan(&side.dst.Name, &side.dst.Rating)
		if err != nil {
			return model.Contest{}, fmt.Errorf("title %d in group %d: %w", side.id, groupID, translate(err, repository.ErrConflict))
		}
	}
	return c, nil
}

// Top implements repository.Store. Names sort bytewise so pages match the
// other drivers regardless of the database locale.
func (s *Store) Top(ctx context.Context, groupName string, limit, offset int) (out []model.RankingRow, err error) {
	if limit <= 0 || offset < 0 {
		return []model.RankingRow{}, nil
	}
	defer func(start time.Time) { observe("top", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx, `
		SELECT g.name, t.name, r.rating
		FROM ratings r
		JOIN criteria_groups g ON g.id = r.group_id
		JOIN titles t ON t.id = r.title_id
		WHERE ($1::text = '' OR g.name = $1)
		ORDER BY r.rating DESC, g.name COLLATE "C", t.name COLLATE "C"
		LIMIT $2 OFFSET $3`, groupName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("top: %w", err)
	}
	out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RankingRow, error) {
		var (
			r      model.RankingRow
			rating float64
		)
		err := row.Scan(&r.Group, &r.Title, &rating)
		r.Rating = int(math.Round(rating))
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("top: %w", err)
	}
	if out == nil {
		out = []model.RankingRow{}
	}
	return out, nil
}

// RecordMatch implements repository.Store.
func (s *Store) RecordMatch(ctx context.Context, rec model.MatchRecord) (_ model.MatchRecord, err error) {
	defer func(start time.Time) { observe("record_match", start, err) }(time.Now())

	if rec.Ref == uuid.Nil {
		rec.Ref = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.opts.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if rec.CriterionID != 0 {
		var owner int64
		err = tx.QueryRow(ctx, `SELECT group_id FROM criteria WHERE id = $1`, rec.CriterionID).Scan(&owner)
		if err == nil && owner != rec.GroupID {
			err = pgx.ErrNoRows
		}
		if err != nil {
			return model.MatchRecord{}, fmt.Errorf("criterion %d: %w", rec.CriterionID, translate(err, repository.ErrConflict))
		}
	}

	var judged, used bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM matches
		               WHERE group_id = $1 AND LEAST(a_id, b_id) = LEAST($2::bigint, $3::bigint)
		                 AND GREATEST(a_id, b_id) = GREATEST($2::bigint, $3::bigint)),
		       EXISTS (SELECT 1 FROM matches WHERE ref = $4)`,
		rec.GroupID, rec.AID, rec.BID, rec.Ref,
	).Scan(&judged, &used)
	switch {
	case err != nil:
		return model.MatchRecord{}, fmt.Errorf("check match: %w", err)
	case judged:
		return model.MatchRecord{}, fmt.Errorf("pair %d/%d in group %d: %w", rec.AID, rec.BID, rec.GroupID, repository.ErrAlreadyJudged)
	case used:
		return model.MatchRecord{}, fmt.Errorf("match ref %s: %w", rec.Ref, repository.ErrConflict)
	}

	var criterion *int64
	if rec.CriterionID != 0 {
		criterion = &rec.CriterionID
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO matches (ref, group_id, criterion_id, a_id, b_id, score, delta_a, delta_b, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		rec.Ref, rec.GroupID, criterion, rec.AID, rec.BID,
		float64(rec.Score), rec.DeltaA, rec.DeltaB, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("insert match: %w", translateMatch(err))
	}

	for _, side := range []struct {
		title int64
		delta float64
	}{{rec.AID, rec.DeltaA}, {rec.BID, rec.DeltaB}} {
		tag, err := tx.Exec(ctx,
			`UPDATE ratings SET rating = rating + $1 WHERE title_id = $2 AND group_id = $3`,
			side.delta, side.title, rec.GroupID)
		if err != nil {
			return model.MatchRecord{}, fmt.Errorf("update rating of %d: %w", side.title, err)
		}
		if tag.RowsAffected() == 0 {
			return model.MatchRecord{}, fmt.Errorf("rating of title %d in group %d: %w", side.title, rec.GroupID, repository.ErrNotFound)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return model.MatchRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// GroupsWithMinTitles implements repository.Store.
func (s *Store) GroupsWithMinTitles(ctx context.Context, n int) (_ []model.CriteriaGroup, err error) {
	defer func(start time.Time) { observe("groups_with_min_titles", start, err) }(time.Now())
	return s.queryGroups(ctx, `
		SELECT g.id, g.name
		FROM criteria_groups g
		JOIN ratings r ON r.group_id = g.id
		GROUP BY g.id, g.name
		HAVING COUNT(*) >= $1
		ORDER BY g.id`, n)
}

func (s *Store) queryGroups(ctx context.Context, query string, args ...any) ([]model.CriteriaGroup, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CriteriaGroup, error) {
		var g model.CriteriaGroup
		err := row.Scan(&g.ID, &g.Name)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan groups: %w", err)
	}
	if out == nil {
		out = []model.CriteriaGroup{}
	}
	return out, nil
}

// Stats implements repository.Store.
func (s *Store) Stats(ctx context.Context) (st model.Stats, err error) {
	defer func(start time.Time) { observe("stats", start, err) }(time.Now())
	err = s.pool.QueryRow(ctx, `
		SELECT (SELECT COUNT(*) FROM titles),
		       (SELECT COUNT(*) FROM criteria_groups),
		       (SELECT COUNT(*) FROM ratings),
		       (SELECT COUNT(*) FROM matches)`,
	).Scan(&st.Titles, &st.Groups, &st.Ratings, &st.Matches)
	if err != nil {
		return model.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Ping implements repository.Store.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements repository.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
