package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/critic/internal/domain/model"
)

func (s *MemStore) titleNameTaken(name string, except int64) bool {
	for _, t := range s.titles {
		if t.Name == name && t.ID != except {
			return true
		}
	}
	return false
}

func (s *MemStore) groupNameTaken(name string, except int64) bool {
	for _, g := range s.groups {
		if g.Name == name && g.ID != except {
			return true
		}
	}
	return false
}

func (s *MemStore) criterionNameTaken(groupID int64, name string, except int64) bool {
	for _, c := range s.criteria {
		if c.GroupID == groupID && c.Name == name && c.ID != except {
			return true
		}
	}
	return false
}

func (s *MemStore) hasHistory(match func(model.MatchRecord) bool) bool {
	for _, m := range s.matches {
		if match(m) {
			return true
		}
	}
	return false
}

// CreateTitle implements Catalog.
func (s *MemStore) CreateTitle(_ context.Context, name string) (model.Title, error) {
	n, err := CleanName(name)
	if err != nil {
		return model.Title{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleNameTaken(n, 0) {
		return model.Title{}, fmt.Errorf("title %q: %w", n, ErrConflict)
	}
	t := model.Title{ID: s.nextID(), Name: n}
	s.titles[t.ID] = t
	return t, nil
}

// RenameTitle implements Catalog.
func (s *MemStore) RenameTitle(_ context.Context, id int64, name string) error {
	n, err := CleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.titles[id]
	if !ok {
		return fmt.Errorf("title %d: %w", id, ErrNotFound)
	}
	if s.titleNameTaken(n, id) {
		return fmt.Errorf("title %q: %w", n, ErrConflict)
	}
	t.Name = n
	s.titles[id] = t
	return nil
}

// DeleteTitle implements Catalog.
func (s *MemStore) DeleteTitle(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titles[id]; !ok {
		return fmt.Errorf("title %d: %w", id, ErrNotFound)
	}
	if s.hasHistory(func(m model.MatchRecord) bool { return m.AID == id || m.BID == id }) {
		return fmt.Errorf("title %d: %w", id, ErrHasHistory)
	}
	for k := range s.ratings {
		if k.title == id {
			delete(s.ratings, k)
		}
	}
	delete(s.titles, id)
	return nil
}

// ListTitles implements Catalog.
func (s *MemStore) ListTitles(_ context.Context) ([]model.Title, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Title, 0, len(s.titles))
	for _, t := range s.titles {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateGroup implements Catalog.
func (s *MemStore) CreateGroup(_ context.Context, name string) (model.CriteriaGroup, error) {
	n, err := CleanName(name)
	if err != nil {
		return model.CriteriaGroup{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupNameTaken(n, 0) {
		return model.CriteriaGroup{}, fmt.Errorf("group %q: %w", n, ErrConflict)
	}
	g := model.CriteriaGroup{ID: s.nextID(), Name: n}
	s.groups[g.ID] = g
	return g, nil
}

// RenameGroup implements Catalog.
func (s *MemStore) RenameGroup(_ context.Context, id int64, name string) error {
	n, err := CleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return fmt.Errorf("group %d: %w", id, ErrNotFound)
	}
	if s.groupNameTaken(n, id) {
		return fmt.Errorf("group %q: %w", n, ErrConflict)
	}
	g.Name = n
	s.groups[id] = g
	return nil
}

// DeleteGroup implements Catalog. Criteria and ratings of the group go
// with it.
func (s *MemStore) DeleteGroup(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("group %d: %w", id, ErrNotFound)
	}
	if s.hasHistory(func(m model.MatchRecord) bool { return m.GroupID == id }) {
		return fmt.Errorf("group %d: %w", id, ErrHasHistory)
	}
	for k := range s.ratings {
		if k.group == id {
			delete(s.ratings, k)
		}
	}
	for cid, c := range s.criteria {
		if c.GroupID == id {
			delete(s.criteria, cid)
		}
	}
	delete(s.groups, id)
	return nil
}

// ListGroups implements Catalog.
func (s *MemStore) ListGroups(_ context.Context) ([]model.CriteriaGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedGroups(), nil
}

// AddGroupToAll implements Catalog.
func (s *MemStore) AddGroupToAll(_ context.Context, groupID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return 0, fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}
	added := 0
	for id := range s.titles {
		k := ratingKey{group: groupID, title: id}
		if _, ok := s.ratings[k]; ok {
			continue
		}
		s.ratings[k] = s.opts.Baseline
		added++
	}
	return added, nil
}

// CreateCriterion implements Catalog.
func (s *MemStore) CreateCriterion(_ context.Context, groupID int64, name string) (model.Criterion, error) {
	n, err := CleanName(name)
	if err != nil {
		return model.Criterion{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return model.Criterion{}, fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}
	if s.criterionNameTaken(groupID, n, 0) {
		return model.Criterion{}, fmt.Errorf("criterion %q: %w", n, ErrConflict)
	}
	c := model.Criterion{ID: s.nextID(), GroupID: groupID, Name: n}
	s.criteria[c.ID] = c
	return c, nil
}

// RenameCriterion implements Catalog.
func (s *MemStore) RenameCriterion(_ context.Context, id int64, name string) error {
	n, err := CleanName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.criteria[id]
	if !ok {
		return fmt.Errorf("criterion %d: %w", id, ErrNotFound)
	}
	if s.criterionNameTaken(c.GroupID, n, id) {
		return fmt.Errorf("criterion %q: %w", n, ErrConflict)
	}
	c.Name = n
	s.criteria[id] = c
	return nil
}

// DeleteCriterion implements Catalog.
func (s *MemStore) DeleteCriterion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.criteria[id]; !ok {
		return fmt.Errorf("criterion %d: %w", id, ErrNotFound)
	}
	if s.hasHistory(func(m model.MatchRecord) bool { return m.CriterionID == id }) {
		return fmt.Errorf("criterion %d: %w", id, ErrHasHistory)
	}
	delete(s.criteria, id)
	return nil
}

// ListCriteria implements Catalog.
func (s *MemStore) ListCriteria(_ context.Context, groupID int64) ([]model.Criterion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}
	out := make([]model.Criterion, 0)
	for _, c := range s.criteria {
		if c.GroupID == groupID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AssignGroup implements Catalog.
func (s *MemStore) AssignGroup(_ context.Context, titleID, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titles[titleID]; !ok {
		return fmt.Errorf("title %d: %w", titleID, ErrNotFound)
	}
	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}
	k := ratingKey{group: groupID, title: titleID}
	if _, ok := s.ratings[k]; !ok {
		s.ratings[k] = s.opts.Baseline
	}
	return nil
}

// UnassignGroup implements Catalog.
func (s *MemStore) UnassignGroup(_ context.Context, titleID, groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := ratingKey{group: groupID, title: titleID}
	if _, ok := s.ratings[k]; !ok {
		return fmt.Errorf("title %d in group %d: %w", titleID, groupID, ErrNotFound)
	}
	if s.hasHistory(func(m model.MatchRecord) bool {
		return m.GroupID == groupID && (m.AID == titleID || m.BID == titleID)
	}) {
		return fmt.Errorf("title %d in group %d: %w", titleID, groupID, ErrHasHistory)
	}
	delete(s.ratings, k)
	return nil
}

// GroupsByTitle implements Catalog.
func (s *MemStore) GroupsByTitle(_ context.Context, titleID int64) ([]model.CriteriaGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.titles[titleID]; !ok {
		return nil, fmt.Errorf("title %d: %w", titleID, ErrNotFound)
	}
	out := make([]model.CriteriaGroup, 0)
	for _, g := range s.sortedGroups() {
		if _, ok := s.ratings[ratingKey{group: g.ID, title: titleID}]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

// TitlesByGroup implements Catalog.
func (s *MemStore) TitlesByGroup(_ context.Context, groupID int64) ([]model.Contestant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.groups[groupID]; !ok {
		return nil, fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}
	return s.groupTitles(groupID), nil
}
