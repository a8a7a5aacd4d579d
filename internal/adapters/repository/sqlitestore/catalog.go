package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/domain/model"
)

func (s *Store) insertNamed(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translate(err, repository.ErrConflict)
	}
	return res.LastInsertId()
}

// execOne runs a statement expected to touch exactly one row.
func execOne(ctx context.Context, db interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, what string, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, translate(err, repository.ErrConflict))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return nil
}

// guardedDelete deletes a row inside a transaction unless historyQuery
// reports match records referencing it.
func (s *Store) guardedDelete(ctx context.Context, what, historyQuery, deleteQuery string, args ...any) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var used bool
	if err = tx.QueryRowContext(ctx, historyQuery, args...).Scan(&used); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if used {
		err = fmt.Errorf("%s: %w", what, repository.ErrHasHistory)
		return err
	}
	if err = execOne(ctx, tx, what, deleteQuery, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateTitle implements repository.Catalog.
func (s *Store) CreateTitle(ctx context.Context, name string) (model.Title, error) {
	n, err := repository.CleanName(name)
	if err != nil {
		return model.Title{}, err
	}
	id, err := s.insertNamed(ctx, `INSERT INTO titles (name) VALUES (?)`, n)
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
	return execOne(ctx, s.db, fmt.Sprintf("title %d", id), `UPDATE titles SET name = ? WHERE id = ?`, n, id)
}

// DeleteTitle implements repository.Catalog.
func (s *Store) DeleteTitle(ctx context.Context, id int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("title %d", id),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE a_id = ?1 OR b_id = ?1)`,
		`DELETE FROM titles WHERE id = ?1`, id)
}

// ListTitles implements repository.Catalog.
func (s *Store) ListTitles(ctx context.Context) ([]model.Title, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT id, name FROM titles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rs.Close()

	out := make([]model.Title, 0)
	for rs.Next() {
		var t model.Title
		if err := rs.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, t)
	}
	return out, rs.Err()
}

// CreateGroup implements repository.Catalog.
func (s *Store) CreateGroup(ctx context.Context, name string) (model.CriteriaGroup, error) {
	n, err := repository.CleanName(name)
	if err != nil {
		return model.CriteriaGroup{}, err
	}
	id, err := s.insertNamed(ctx, `INSERT INTO criteria_groups (name) VALUES (?)`, n)
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
	return execOne(ctx, s.db, fmt.Sprintf("group %d", id), `UPDATE criteria_groups SET name = ? WHERE id = ?`, n, id)
}

// DeleteGroup implements repository.Catalog. Criteria and ratings cascade.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("group %d", id),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE group_id = ?1)`,
		`DELETE FROM criteria_groups WHERE id = ?1`, id)
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
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ratings (title_id, group_id, rating) SELECT id, ?, ? FROM titles`,
		groupID, s.opts.Baseline)
	if err != nil {
		return 0, fmt.Errorf("add group %d to all: %w", groupID, translate(err, repository.ErrConflict))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("add group %d to all: %w", groupID, err)
	}
	return int(n), nil
}

// CreateCriterion implements repository.Catalog.
func (s *Store) CreateCriterion(ctx context.Context, groupID int64, name string) (model.Criterion, error) {
	n, err := repository.CleanName(name)
	if err != nil {
		return model.Criterion{}, err
	}
	id, err := s.insertNamed(ctx, `INSERT INTO criteria (group_id, name) VALUES (?, ?)`, groupID, n)
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
	return execOne(ctx, s.db, fmt.Sprintf("criterion %d", id), `UPDATE criteria SET name = ? WHERE id = ?`, n, id)
}

// DeleteCriterion implements repository.Catalog.
func (s *Store) DeleteCriterion(ctx context.Context, id int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("criterion %d", id),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE criterion_id = ?1)`,
		`DELETE FROM criteria WHERE id = ?1`, id)
}

// ListCriteria implements repository.Catalog.
func (s *Store) ListCriteria(ctx context.Context, groupID int64) ([]model.Criterion, error) {
	if _, err := s.group(ctx, groupID); err != nil {
		return nil, err
	}
	rs, err := s.db.QueryContext(ctx, `SELECT id, group_id, name FROM criteria WHERE group_id = ? ORDER BY id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	defer rs.Close()

	out := make([]model.Criterion, 0)
	for rs.Next() {
		var c model.Criterion
		if err := rs.Scan(&c.ID, &c.GroupID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan criterion: %w", err)
		}
		out = append(out, c)
	}
	return out, rs.Err()
}

// AssignGroup implements repository.Catalog.
func (s *Store) AssignGroup(ctx context.Context, titleID, groupID int64) error {
	var titleOK, groupOK bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM titles WHERE id = ?),
		       EXISTS (SELECT 1 FROM criteria_groups WHERE id = ?)`, titleID, groupID,
	).Scan(&titleOK, &groupOK)
	if err != nil {
		return fmt.Errorf("assign title %d to group %d: %w", titleID, groupID, err)
	}
	if !titleOK || !groupOK {
		return fmt.Errorf("assign title %d to group %d: %w", titleID, groupID, repository.ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ratings (title_id, group_id, rating) VALUES (?, ?, ?)`,
		titleID, groupID, s.opts.Baseline)
	if err != nil {
		return fmt.Errorf("assign title %d to group %d: %w", titleID, groupID, translate(err, repository.ErrConflict))
	}
	return nil
}

// UnassignGroup implements repository.Catalog.
func (s *Store) UnassignGroup(ctx context.Context, titleID, groupID int64) error {
	return s.guardedDelete(ctx, fmt.Sprintf("title %d in group %d", titleID, groupID),
		`SELECT EXISTS (SELECT 1 FROM matches WHERE group_id = ?2 AND (a_id = ?1 OR b_id = ?1))`,
		`DELETE FROM ratings WHERE title_id = ?1 AND group_id = ?2`, titleID, groupID)
}

// GroupsByTitle implements repository.Catalog.
func (s *Store) GroupsByTitle(ctx context.Context, titleID int64) ([]model.CriteriaGroup, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM titles WHERE id = ?)`, titleID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("title %d: %w", titleID, err)
	}
	if !exists {
		return nil, fmt.Errorf("title %d: %w", titleID, repository.ErrNotFound)
	}
	return s.queryGroups(ctx, `
		SELECT g.id, g.name
		FROM criteria_groups g
		JOIN ratings r ON r.group_id = g.id
		WHERE r.title_id = ?
		ORDER BY g.id`, titleID)
}

// TitlesByGroup implements repository.Catalog.
func (s *Store) TitlesByGroup(ctx context.Context, groupID int64) ([]model.Contestant, error) {
	if _, err := s.group(ctx, groupID); err != nil {
		return nil, err
	}
	rs, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, r.rating
		FROM ratings r
		JOIN titles t ON t.id = r.title_id
		WHERE r.group_id = ?
		ORDER BY t.id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("titles by group: %w", err)
	}
	defer rs.Close()

	out := make([]model.Contestant, 0)
	for rs.Next() {
		var c model.Contestant
		if err := rs.Scan(&c.ID, &c.Name, &c.Rating); err != nil {
			return nil, fmt.Errorf("scan contestant: %w", err)
		}
		out = append(out, c)
	}
	return out, rs.Err()
}
