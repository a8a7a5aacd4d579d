// Package repository defines the persistence contract of the rating engine
// and an in-memory implementation of it.
package repository

import (
	"context"

	"github.com/okian/critic/internal/domain/model"
)

// AnyGroup disables the group filter of NextPair.
const AnyGroup int64 = 0

// Store provides the reads and the transactional write the engine needs.
// Implementations never cache; every call reflects durable state.
type Store interface {
	// NextPair returns the closest unjudged pair of titles in groupID, or in
	// any group when groupID is AnyGroup. The contest carries the group, the
	// group's least used criterion and both current ratings; its ID is left
	// zero. Returns ErrNotFound when no pair is eligible.
	NextPair(ctx context.Context, groupID int64) (model.Contest, error)

	// LoadContest rebuilds a contest for the given pair from current state.
	// criterionID may be zero. Returns ErrNotFound if either title is not
	// associated with the group or the criterion is not part of it.
	LoadContest(ctx context.Context, groupID, criterionID, aID, bID int64) (model.Contest, error)

	// Top returns ranking rows ordered by rating desc, group name, title
	// name. An empty groupName matches every group.
	Top(ctx context.Context, groupName string, limit, offset int) ([]model.RankingRow, error)

	// RecordMatch inserts rec and applies both deltas to the ratings of its
	// group in one transaction. Returns ErrAlreadyJudged if the unordered
	// pair already has a record in the group and ErrNotFound if a rating
	// row is missing; nothing is written in either case.
	RecordMatch(ctx context.Context, rec model.MatchRecord) (model.MatchRecord, error)

	// GroupsWithMinTitles lists groups with at least n associated titles,
	// ordered by id.
	GroupsWithMinTitles(ctx context.Context, n int) ([]model.CriteriaGroup, error)

	Catalog

	// Stats counts catalog rows.
	Stats(ctx context.Context) (model.Stats, error)
	// Ping checks the store is reachable.
	Ping(ctx context.Context) error
	// Close releases resources.
	Close() error
}

// Catalog holds the plain create/rename/delete operations on titles,
// groups, criteria and their associations.
type Catalog interface {
	CreateTitle(ctx context.Context, name string) (model.Title, error)
	RenameTitle(ctx context.Context, id int64, name string) error
	// DeleteTitle fails with ErrHasHistory if the title has match records.
	DeleteTitle(ctx context.Context, id int64) error
	ListTitles(ctx context.Context) ([]model.Title, error)

	CreateGroup(ctx context.Context, name string) (model.CriteriaGroup, error)
	RenameGroup(ctx context.Context, id int64, name string) error
	// DeleteGroup fails with ErrHasHistory if the group has match records.
	DeleteGroup(ctx context.Context, id int64) error
	ListGroups(ctx context.Context) ([]model.CriteriaGroup, error)
	// AddGroupToAll associates every title with the group and returns the
	// number of new associations.
	AddGroupToAll(ctx context.Context, groupID int64) (int, error)

	CreateCriterion(ctx context.Context, groupID int64, name string) (model.Criterion, error)
	RenameCriterion(ctx context.Context, id int64, name string) error
	// DeleteCriterion fails with ErrHasHistory if match records cite it.
	DeleteCriterion(ctx context.Context, id int64) error
	ListCriteria(ctx context.Context, groupID int64) ([]model.Criterion, error)

	// AssignGroup associates a title with a group at the baseline rating.
	// Assigning twice is a no-op.
	AssignGroup(ctx context.Context, titleID, groupID int64) error
	// UnassignGroup removes the association and its rating. Fails with
	// ErrHasHistory if the title was judged in that group.
	UnassignGroup(ctx context.Context, titleID, groupID int64) error
	GroupsByTitle(ctx context.Context, titleID int64) ([]model.CriteriaGroup, error)
	TitlesByGroup(ctx context.Context, groupID int64) ([]model.Contestant, error)
}
