// Package sqlitestore implements repository.Store on a SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/domain/model"
)

//go:embed schema.sql
var schema string

// Store is a SQLite backed repository.Store. It runs on a single
// connection so writers never contend for the file lock.
type Store struct {
	db   *sql.DB
	opts repository.Options
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn, enables foreign keys and applies the schema.
// ":memory:" yields a private in-memory database.
func Open(ctx context.Context, dsn string, opts ...repository.Option) (*Store, error) {
	db, err := sql.Open("sqlite3", withForeignKeys(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// an in-memory database lives and dies with its connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	s := &Store{db: db, opts: repository.BuildOptions(opts...)}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
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
WHERE (? = 0 OR a.group_id = ?)
  AND NOT EXISTS (
    SELECT 1 FROM matches m
    WHERE m.group_id = a.group_id
      AND min(m.a_id, m.b_id) = a.title_id
      AND max(m.a_id, m.b_id) = b.title_id)
ORDER BY abs(a.rating - b.rating), g.id, a.title_id, b.title_id
LIMIT 1`

const leastUsedCriterionQuery = `
SELECT c.id, c.group_id, c.name
FROM criteria c
LEFT JOIN matches m ON m.criterion_id = c.id
WHERE c.group_id = ?
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
	err = s.db.QueryRowContext(ctx, pairQuery, groupID, groupID).Scan(
		&c.Group.ID, &c.Group.Name,
		&c.A.ID, &c.A.Name, &c.A.Rating,
		&c.B.ID, &c.B.Name, &c.B.Rating,
	)
	if err != nil {
		return model.Contest{}, fmt.Errorf("next pair: %w", translate(err, repository.ErrConflict))
	}
	c.Criterion, err = s.leastUsedCriterion(ctx, c.Group.ID)
	if err != nil {
		return model.Contest{}, err
	}
	return c, nil
}

func (s *Store) leastUsedCriterion(ctx context.Context, groupID int64) (model.Criterion, error) {
	var cr model.Criterion
	err := s.db.QueryRowContext(ctx, leastUsedCriterionQuery, groupID).Scan(&cr.ID, &cr.GroupID, &cr.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Criterion{}, nil
	}
	if err != nil {
		return model.Criterion{}, fmt.Errorf("least used criterion: %w", err)
	}
	return cr, nil
}

func (s *Store) group(ctx context.Context, id int64) (model.CriteriaGroup, error) {
	g := model.CriteriaGroup{ID: id}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM criteria_groups WHERE id = ?`, id).Scan(&g.Name)
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
		err = s.db.QueryRowContext(ctx,
			`SELECT id, group_id, name FROM criteria WHERE id = ? AND group_id = ?`, criterionID, groupID,
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
		err = s.db.QueryRowContext(ctx,
			`SELECT t.name, r.rating FROM ratings r JOIN titles t ON t.id = r.title_id
			 WHERE r.title_id = ? AND r.group_id = ?`, side.id, groupID,
		).Scan(&side.dst.Name, &side.dst.Rating)
		if err != nil {
			return model.Contest{}, fmt.Errorf("title %d in group %d: %w", side.id, groupID, translate(err, repository.ErrConflict))
		}
	}
	return c, nil
}

// Top implements repository.Store.
func (s *Store) Top(ctx context.Context, groupName string, limit, offset int) (rows []model.RankingRow, err error) {
	if limit <= 0 || offset < 0 {
		return []model.RankingRow{}, nil
	}
	defer func(start time.Time) { observe("top", start, err) }(time.Now())

	rs, err := s.db.QueryContext(ctx, `
		SELECT g.name, t.name, r.rating
		FROM ratings r
		JOIN criteria_groups g ON g.id = r.group_id
		JOIN titles t ON t.id = r.title_id
		WHERE (? = '' OR g.name = ?)
		ORDER BY r.rating DESC, g.name, t.name
		LIMIT ? OFFSET ?`, groupName, groupName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("top: %w", err)
	}
	defer rs.Close()

	rows = make([]model.RankingRow, 0, limit)
	for rs.Next() {
		var (
			row    model.RankingRow
			rating float64
		)
		if err = rs.Scan(&row.Group, &row.Title, &rating); err != nil {
			return nil, fmt.Errorf("scan ranking row: %w", err)
		}
		row.Rating = int(math.Round(rating))
		rows = append(rows, row)
	}
	if err = rs.Err(); err != nil {
		return nil, fmt.Errorf("top: %w", err)
	}
	return rows, nil
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if rec.CriterionID != 0 {
		var owner int64
		err = tx.QueryRowContext(ctx, `SELECT group_id FROM criteria WHERE id = ?`, rec.CriterionID).Scan(&owner)
		if err == nil && owner != rec.GroupID {
			err = sql.ErrNoRows
		}
		if err != nil {
			return model.MatchRecord{}, fmt.Errorf("criterion %d: %w", rec.CriterionID, translate(err, repository.ErrConflict))
		}
	}

	if err = checkUnjudged(ctx, tx, rec); err != nil {
		return model.MatchRecord{}, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO matches (ref, group_id, criterion_id, a_id, b_id, score, delta_a, delta_b, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Ref.String(), rec.GroupID, nullID(rec.CriterionID), rec.AID, rec.BID,
		float64(rec.Score), rec.DeltaA, rec.DeltaB, rec.CreatedAt)
	if err != nil {
		return model.MatchRecord{}, fmt.Errorf("insert match: %w", translateMatch(err))
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return model.MatchRecord{}, fmt.Errorf("match id: %w", err)
	}

	for _, side := range []struct {
		title int64
		delta float64
	}{{rec.AID, rec.DeltaA}, {rec.BID, rec.DeltaB}} {
		if err = applyDelta(ctx, tx, rec.GroupID, side.title, side.delta); err != nil {
			return model.MatchRecord{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return model.MatchRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// checkUnjudged rejects a pair already judged in the group, then a ref
// already carried by another match.
func checkUnjudged(ctx context.Context, tx *sql.Tx, rec model.MatchRecord) error {
	var judged, used bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM matches
		               WHERE group_id = ? AND min(a_id, b_id) = min(?, ?) AND max(a_id, b_id) = max(?, ?)),
		       EXISTS (SELECT 1 FROM matches WHERE ref = ?)`,
		rec.GroupID, rec.AID, rec.BID, rec.AID, rec.BID, rec.Ref.String(),
	).Scan(&judged, &used)
	switch {
	case err != nil:
		return fmt.Errorf("check match: %w", err)
	case judged:
		return fmt.Errorf("pair %d/%d in group %d: %w", rec.AID, rec.BID, rec.GroupID, repository.ErrAlreadyJudged)
	case used:
		return fmt.Errorf("match ref %s: %w", rec.Ref, repository.ErrConflict)
	}
	return nil
}

func applyDelta(ctx context.Context, tx *sql.Tx, groupID, titleID int64, delta float64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ratings SET rating = rating + ? WHERE title_id = ? AND group_id = ?`, delta, titleID, groupID)
	if err != nil {
		return fmt.Errorf("update rating of %d: %w", titleID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rating of %d: %w", titleID, err)
	}
	if n == 0 {
		return fmt.Errorf("rating of title %d in group %d: %w", titleID, groupID, repository.ErrNotFound)
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

// GroupsWithMinTitles implements repository.Store.
func (s *Store) GroupsWithMinTitles(ctx context.Context, n int) (_ []model.CriteriaGroup, err error) {
	defer func(start time.Time) { observe("groups_with_min_titles", start, err) }(time.Now())
	return s.queryGroups(ctx, `
		SELECT g.id, g.name
		FROM criteria_groups g
		JOIN ratings r ON r.group_id = g.id
		GROUP BY g.id, g.name
		HAVING COUNT(*) >= ?
		ORDER BY g.id`, n)
}

func (s *Store) queryGroups(ctx context.Context, query string, args ...any) ([]model.CriteriaGroup, error) {
	rs, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rs.Close()

	out := make([]model.CriteriaGroup, 0)
	for rs.Next() {
		var g model.CriteriaGroup
		if err := rs.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rs.Err()
}

// Stats implements repository.Store.
func (s *Store) Stats(ctx context.Context) (st model.Stats, err error) {
	defer func(start time.Time) { observe("stats", start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx, `
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
	return s.db.PingContext(ctx)
}

// Close implements repository.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
