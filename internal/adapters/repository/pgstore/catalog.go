package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/domain/model"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// execOne runs a statement expected to touch exactly one row.
func execOne(ctx context.Context, db execer, what, query string, args ...any) error {
	tag, err := db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, translate(err, repository.ErrConflict))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}

// guardedDelete deletes a row inside a transaction unless historyQuery
// reports match records referencing it.
func (s *Store) guardedDelete(ctx context.Context, what, historyQuery, deleteQuery string, args ...any) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var used bool
	if err := tx.QueryRow(ctx, historyQuery, args...).Scan(&used); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if used {
		return fmt.Errorf("%s: %w", what, repository.ErrHasHistory)
	}
	if err := execOne(ctx, tx, what, deleteQuery, args...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, translate(err, repository.ErrConflict)
	}
	return id, nil
}

// CreateTitle implements repository.Catalog.
func (s *Store) CreateTitle(ctx context.Context, name string) (model.Title, error) {
	n, err := repository.CleanName(name)
	if err != nil {
		return model.Title{}, err
	}
	id, err := s.insertReturningID(ctx, `INSERT INTO titles (name) VALUES ($1) RETURNING id`, n)
	if err != nil {
		return model.Title{}, fmt.Errorf("title %q: %w", n, err)
	}
	return model.Title{ID: id, Name: n}, nil
}

// RenameTitle implements repository.Catalog.
func (s *Store) RenameTitle(ctx context.Context, id int64, name string) error {
	n, err := repository.CleanName(name)
	if err != nil {
		return err
	}
	return execOne(ctx, s.pool, fmt.Sprintf("title %d", id), `UPDATE titles SET name = $1 WHERE id = $2`, n, id)
}

// DeleteTitle implements repository.Catalog.
func (s *Store) DeleteTitle(ctx context.Context, id int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("title %d", id),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE a_id = $1 OR b_id = $1)`,
		`DELETE FROM titles WHERE id = $1`, id)
}

// ListTitles implements repository.Catalog.
func (s *Store) ListTitles(ctx context.Context) ([]model.Title, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM titles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Title, error) {
		var t model.Title
		err := row.Scan(&t.ID, &t.Name)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan titles: %w", err)
	}
	if out == nil {
		out = []model.Title{}
	}
	return out, nil
}

// CreateGroup implements repository.Catalog.
func (s *Store) CreateGroup(ctx context.Context, name string) (model.CriteriaGroup, error) {
	n, err := repository.CleanName(name)
	if err != nil {
		return model.CriteriaGroup{}, err
	}
	id, err := s.insertReturningID(ctx, `INSERT INTO criteria_groups (name) VALUES ($1) RETURNING id`, n)
	if err != nil {
		return model.CriteriaGroup{}, fmt.Errorf("group %q: %w", n, err)
	}
	return model.CriteriaGroup{ID: id, Name: n}, nil
}

// RenameGroup implements repository.Catalog.
func (s *Store) RenameGroup(ctx context.Context, id int64, name string) error {
	n, err := repository.CleanName(name)
	if err != nil {
		return err
	}
	return execOne(ctx, s.pool, fmt.Sprintf("group %d", id), `UPDATE criteria_groups SET name = $1 WHERE id = $2`, n, id)
}

// DeleteGroup implements repository.Catalog. Criteria and ratings cascade.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("group %d", id),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE group_id = $1)`,
		`DELETE FROM criteria_groups WHERE id = $1`, id)
}

// ListGroups implements repository.Catalog.
func (s *Store) ListGroups(ctx context.Context) ([]model.CriteriaGroup, error) {
	return s.queryGroups(ctx, `SELECT id, name FROM criteria_groups ORDER BY id`)
}

// AddGroupToAll implements repository.Catalog.
func (s *Store) AddGroupToAll(ctx context.Context, groupID int64) (int, error) {
	if _, err := s.group(ctx, groupID); err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO ratings (title_id, group_id, rating)
		SELECT id, $1::bigint, $2::double precision FROM titles
		ON CONFLICT (title_id, group_id) DO NOTHING`, groupID, s.opts.Baseline)
	if err != nil {
		return 0, fmt.Errorf("add group %d to all: %w", groupID, translate(err, repository.ErrConflict))
	}
	return int(tag.RowsAffected()), nil
}

// CreateCriterion implements repository.Catalog.
func (s *Store) CreateCriterion(ctx context.Context, groupID int64, name string) (model.Criterion, error) {
	n, err := repository.CleanName(name)
	if err != nil {
		return model.Criterion{}, err
	}
	id, err := s.insertReturningID(ctx,
		`INSERT INTO criteria (group_id, name) VALUES ($1, $2) RETURNING id`, groupID, n)
	if err != nil {
		return model.Criterion{}, fmt.Errorf("criterion %q in group %d: %w", n, groupID, err)
	}
	return model.Criterion{ID: id, GroupID: groupID, Name: n}, nil
}

// RenameCriterion implements repository.Catalog.
func (s *Store) RenameCriterion(ctx context.Context, id int64, name string) error {
	n, err := repository.CleanName(name)
	if err != nil {
		return err
	}
	return execOne(ctx, s.pool, fmt.Sprintf("criterion %d", id), `UPDATE criteria SET name = $1 WHERE id = $2`, n, id)
}

// DeleteCriterion implements repository.Catalog.
func (s *Store) DeleteCriterion(ctx context.Context, id int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("criterion %d", id),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE criterion_id = $1)`,
		`DELETE FROM criteria WHERE id = $1`, id)
}

// ListCriteria implements repository.Catalog.
func (s *Store) ListCriteria(ctx context.Context, groupID int64) ([]model.Criterion, error) {
	if _, err := s.group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT id, group_id, name FROM criteria WHERE group_id = $1 ORDER BY id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Criterion, error) {
		var c model.Criterion
		err := row.Scan(&c.ID, &c.GroupID, &c.Name)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan criteria: %w", err)
	}
	if out == nil {
		out = []model.Criterion{}
	}
	return out, nil
}

// AssignGroup implements repository.Catalog. Unknown ids surface as
// foreign key violations.
func (s *Store) AssignGroup(ctx context.Context, titleID, groupID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ratings (title_id, group_id, rating) VALUES ($1, $2, $3)
		ON CONFLICT (title_id, group_id) DO NOTHING`, titleID, groupID, s.opts.Baseline)
	if err != nil {
		return fmt.Errorf("assign title %d to group %d: %w", titleID, groupID, translate(err, repository.ErrConflict))
	}
	return nil
}

// UnassignGroup implements repository.Catalog.
func (s *Store) UnassignGroup(ctx context.Context, titleID, groupID int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("title %d in group %d", titleID, groupID),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE group_id = $2 AND (a_id = $1 OR b_id = $1))`,
		`DELETE FROM ratings WHERE title_id = $1 AND group_id = $2`, titleID, groupID)
}

// GroupsByTitle implements repository.Catalog.
func (s *Store) GroupsByTitle(ctx context.Context, titleID int64) ([]model.CriteriaGroup, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM titles WHERE id = $1)`, titleID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("title %d: %w", titleID, err)
	}
	if !exists {
		return nil, fmt.Errorf("title %d: %w", titleID, repository.ErrNotFound)
	}
	return s.queryGroups(ctx, `
		SELECT g.id, g.name
		FROM criteria_groups g
		JOIN ratings r ON r.group_id = g.id
		WHERE r.title_id = $1
		ORDER BY g.id`, titleID)
}

// TitlesByGroup implements repository.Catalog.
func (s *Store) TitlesByGroup(ctx context.Context, groupID int64) ([]model.Contestant, error) {
	if _, err := s.group(ctx, groupID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.name, r.rating
		FROM ratings r
		JOIN titles t ON t.id = r.title_id
		WHERE r.group_id = $1
		ORDER BY t.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("titles by group: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Contestant, error) {
		var c model.Contestant
		err := row.Scan(&c.ID, &c.Name, &c.Rating)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan contestants: %w", err)
	}
	if out == nil {
		out = []model.Contestant{}
	}
	return out, nil
}
