package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/critic/internal/domain/model"
)

// CleanName trims a catalog name and rejects empty ones.
func CleanName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", ErrInvalidName
	}
	return n, nil
}

type ratingKey struct {
	group int64
	title int64
}

// pairKey identifies an unordered pair within a group; lo < hi.
type pairKey struct {
	group int64
	lo    int64
	hi    int64
}

func newPairKey(group, a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{group: group, lo: a, hi: b}
}

// MemStore is an in-memory Store. State is lost on exit.
type MemStore struct {
	mu   sync.RWMutex
	opts Options

	lastID   int64
	titles   map[int64]model.Title
	groups   map[int64]model.CriteriaGroup
	criteria map[int64]model.Criterion
	ratings  map[ratingKey]float64
	judged   map[pairKey]struct{}
	refs     map[uuid.UUID]struct{}
	matches  []model.MatchRecord
	closed   bool
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore(opts ...Option) *MemStore {
	return &MemStore{
		opts:     BuildOptions(opts...),
		titles:   make(map[int64]model.Title),
		groups:   make(map[int64]model.CriteriaGroup),
		criteria: make(map[int64]model.Criterion),
		ratings:  make(map[ratingKey]float64),
		judged:   make(map[pairKey]struct{}),
		refs:     make(map[uuid.UUID]struct{}),
	}
}

func (s *MemStore) nextID() int64 {
	s.lastID++
	return s.lastID
}

// groupTitles returns the contestants of a group ordered by title id.
func (s *MemStore) groupTitles(groupID int64) []model.Contestant {
	out := make([]model.Contestant, 0)
	for k, r := range s.ratings {
		if k.group != groupID {
			continue
		}
		out = append(out, model.Contestant{ID: k.title, Name: s.titles[k.title].Name, Rating: r})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemStore) sortedGroups() []model.CriteriaGroup {
	out := make([]model.CriteriaGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// leastUsedCriterion picks the criterion of a group with the fewest match
// records, lowest id first. Zero value when the group has none.
func (s *MemStore) leastUsedCriterion(groupID int64) model.Criterion {
	uses := make(map[int64]int)
	for _, m := range s.matches {
		if m.GroupID == groupID && m.CriterionID != 0 {
			uses[m.CriterionID]++
		}
	}
	var (
		best  model.Criterion
		found bool
	)
	for _, c := range s.criteria {
		if c.GroupID != groupID {
			continue
		}
		if !found || uses[c.ID] < uses[best.ID] || (uses[c.ID] == uses[best.ID] && c.ID < best.ID) {
			best, found = c, true
		}
	}
	return best
}

// NextPair implements Store.
func (s *MemStore) NextPair(_ context.Context, groupID int64) (model.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []model.CriteriaGroup
	if groupID == AnyGroup {
		groups = s.sortedGroups()
	} else {
		g, ok := s.groups[groupID]
		if !ok {
			return model.Contest{}, fmt.Errorf("group %d: %w", groupID, ErrNotFound)
		}
		groups = []model.CriteriaGroup{g}
	}

	var (
		best     model.Contest
		bestDiff float64
		found    bool
	)
	// groups and titles are scanned in id order so the first strictly
	// smaller gap wins every tie.
	for _, g := range groups {
		ts := s.groupTitles(g.ID)
		for i := 0; i < len(ts); i++ {
			for j := i + 1; j < len(ts); j++ {
				if _, done := s.judged[newPairKey(g.ID, ts[i].ID, ts[j].ID)]; done {
					continue
				}
				diff := math.Abs(ts[i].Rating - ts[j].Rating)
				if found && diff >= bestDiff {
					continue
				}
				best = model.Contest{Group: g, A: ts[i], B: ts[j]}
				bestDiff, found = diff, true
			}
		}
	}
	if !found {
		return model.Contest{}, fmt.Errorf("no unjudged pair: %w", ErrNotFound)
	}
	best.Criterion = s.leastUsedCriterion(best.Group.ID)
	return best, nil
}

// LoadContest implements Store.
func (s *MemStore) LoadContest(_ context.Context, groupID, criterionID, aID, bID int64) (model.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[groupID]
	if !ok {
		return model.Contest{}, fmt.Errorf("group %d: %w", groupID, ErrNotFound)
	}
	c := model.Contest{Group: g}
	if criterionID != 0 {
		cr, ok := s.criteria[criterionID]
		if !ok || cr.GroupID != groupID {
			return model.Contest{}, fmt.Errorf("criterion %d in group %d: %w", criterionID, groupID, ErrNotFound)
		}
		c.Criterion = cr
	}
	for _, side := range []struct {
		id  int64
		dst *model.Contestant
	}{{aID, &c.A}, {bID, &c.B}} {
		r, ok := s.ratings[ratingKey{group: groupID, title: side.id}]
		if !ok {
			return model.Contest{}, fmt.Errorf("title %d in group %d: %w", side.id, groupID, ErrNotFound)
		}
		*side.dst = model.Contestant{ID: side.id, Name: s.titles[side.id].Name, Rating: r}
	}
	return c, nil
}

// Top implements Store.
func (s *MemStore) Top(_ context.Context, groupName string, limit, offset int) ([]model.RankingRow, error) {
	if limit <= 0 || offset < 0 {
		return []model.RankingRow{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		group, title string
		rating       float64
	}
	rows := make([]row, 0, len(s.ratings))
	for k, r := range s.ratings {
		g := s.groups[k.group].Name
		if groupName != "" && g != groupName {
			continue
		}
		rows = append(rows, row{group: g, title: s.titles[k.title].Name, rating: r})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].rating != rows[j].rating {
			return rows[i].rating > rows[j].rating
		}
		if rows[i].group != rows[j].group {
			return rows[i].group < rows[j].group
		}
		return rows[i].title < rows[j].title
	})
	if offset >= len(rows) {
		return []model.RankingRow{}, nil
	}
	rows = rows[offset:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]model.RankingRow, len(rows))
	for i, r := range rows {
		out[i] = model.RankingRow{Group: r.group, Title: r.title, Rating: int(math.Round(r.rating))}
	}
	return out, nil
}

// RecordMatch implements Store. All checks run before any mutation so a
// failure leaves nothing behind.
func (s *MemStore) RecordMatch(_ context.Context, rec model.MatchRecord) (model.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[rec.GroupID]; !ok {
		return model.MatchRecord{}, fmt.Errorf("group %d: %w", rec.GroupID, ErrNotFound)
	}
	if rec.CriterionID != 0 {
		if cr, ok := s.criteria[rec.CriterionID]; !ok || cr.GroupID != rec.GroupID {
			return model.MatchRecord{}, fmt.Errorf("criterion %d: %w", rec.CriterionID, ErrNotFound)
		}
	}
	pk := newPairKey(rec.GroupID, rec.AID, rec.BID)
	if _, done := s.judged[pk]; done {
		return model.MatchRecord{}, fmt.Errorf("pair %d/%d in group %d: %w", rec.AID, rec.BID, rec.GroupID, ErrAlreadyJudged)
	}
	if _, used := s.refs[rec.Ref]; used {
		return model.MatchRecord{}, fmt.Errorf("match ref %s: %w", rec.Ref, ErrConflict)
	}
	ka := ratingKey{group: rec.GroupID, title: rec.AID}
	kb := ratingKey{group: rec.GroupID, title: rec.BID}
	ra, okA := s.ratings[ka]
	rb, okB := s.ratings[kb]
	if !okA || !okB {
		return model.MatchRecord{}, fmt.Errorf("rating for pair %d/%d in group %d: %w", rec.AID, rec.BID, rec.GroupID, ErrNotFound)
	}

	rec.ID = s.nextID()
	if rec.Ref == uuid.Nil {
		rec.Ref = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.opts.Now().UTC()
	}
	s.matches = append(s.matches, rec)
	s.judged[pk] = struct{}{}
	s.refs[rec.Ref] = struct{}{}
	s.ratings[ka] = ra + rec.DeltaA
	s.ratings[kb] = rb + rec.DeltaB
	return rec, nil
}

// GroupsWithMinTitles implements Store.
func (s *MemStore) GroupsWithMinTitles(_ context.Context, n int) ([]model.CriteriaGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int)
	for k := range s.ratings {
		counts[k.group]++
	}
	out := make([]model.CriteriaGroup, 0)
	for _, g := range s.sortedGroups() {
		if counts[g.ID] >= n {
			out = append(out, g)
		}
	}
	return out, nil
}

// Stats implements Store.
func (s *MemStore) Stats(_ context.Context) (model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.Stats{
		Titles:  len(s.titles),
		Groups:  len(s.groups),
		Ratings: len(s.ratings),
		Matches: len(s.matches),
	}, nil
}

// Ping implements Store.
func (s *MemStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
