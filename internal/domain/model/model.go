// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// BaselineRating is the rating a title starts with when it joins a group.
const BaselineRating = 1000.0

// Title is a rated entity.
type Title struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CriteriaGroup is a named axis along which titles are rated independently.
type CriteriaGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Criterion is a prompt shown with contests of its group. Ratings are kept
// per group, not per criterion.
type Criterion struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
}

// Contestant is one side of a contest with its rating at selection time.
type Contestant struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// Contest is a proposed comparison awaiting a judgment. It is never persisted.
// Criterion.ID is zero when the group has no criteria.
type Contest struct {
	ID        uuid.UUID     `json:"id"`
	Group     CriteriaGroup `json:"group"`
	Criterion Criterion     `json:"criterion"`
	A         Contestant    `json:"a"`
	B         Contestant    `json:"b"`
}

// MatchRecord is an immutable completed judgment. A and B keep the order of
// the contest so the deltas can be reproduced.
type MatchRecord struct {
	ID          int64     `json:"id"`
	Ref         uuid.UUID `json:"ref"`
	GroupID     int64     `json:"group_id"`
	CriterionID int64     `json:"criterion_id,omitempty"`
	AID         int64     `json:"a_id"`
	BID         int64     `json:"b_id"`
	Score       Score     `json:"score"`
	DeltaA      float64   `json:"delta_a"`
	DeltaB      float64   `json:"delta_b"`
	CreatedAt   time.Time `json:"created_at"`
}

// RankingRow is one line of a ranking page.
type RankingRow struct {
	Group  string `json:"group"`
	Title  string `json:"title"`
	Rating int    `json:"rating"`
}

// Stats summarizes the catalog.
type Stats struct {
	Titles  int `json:"titles"`
	Groups  int `json:"groups"`
	Ratings int `json:"ratings"`
	Matches int `json:"matches"`
}
