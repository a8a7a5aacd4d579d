package simulate

import (
	"time"

	"github.com/google/uuid"
)

// Config holds configuration for a judging run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Judgments  int           // Upper bound on judgments to post
	GroupID    int64         // Restrict contests to one group; 0 means any
	TopN       int           // Ranking rows to fetch for verification
	Workers    int           // Number of concurrent judges
	Timeout    time.Duration // HTTP request timeout
	Seed       int64         // Seed for simulated outcomes; 0 uses the clock
	OutputFile string        // Output file for posted judgments
	Verbose    bool          // Enable verbose logging
}

// Contest mirrors GET /contests/next.
type Contest struct {
	ID        uuid.UUID `json:"id"`
	Group     Named     `json:"group"`
	Criterion Named     `json:"criterion"`
	A         Side      `json:"a"`
	B         Side      `json:"b"`
}

// Named is a group or criterion reference.
type Named struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Side is one contestant of a contest.
type Side struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// Result is the body of POST /results.
type Result struct {
	ContestID   uuid.UUID `json:"contest_id"`
	GroupID     int64     `json:"group_id"`
	CriterionID int64     `json:"criterion_id,omitempty"`
	AID         int64     `json:"a_id"`
	BID         int64     `json:"b_id"`
	Score       float64   `json:"score"`
}

// Row mirrors one line of GET /top.
type Row struct {
	Group  string `json:"group"`
	Title  string `json:"title"`
	Rating int    `json:"rating"`
}

// Counts mirrors GET /stats.
type Counts struct {
	Titles  int `json:"titles"`
	Groups  int `json:"groups"`
	Ratings int `json:"ratings"`
	Matches int `json:"matches"`
}

// Stats holds run statistics.
type Stats struct {
	ContestsServed int
	Recorded       int
	Conflicts      int
	Failed         int
	Exhausted      bool
	MatchesBefore  int
	MatchesAfter   int
	RankingRows    int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
