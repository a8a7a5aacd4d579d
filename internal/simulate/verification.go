package simulate

import (
	"context"
	"fmt"

	"github.com/okian/critic/pkg/logger"
)

// verifyResults checks that every recorded judgment became exactly one
// match and that the ranking is ordered.
func verifyResults(stats *Stats, rows []Row) error {
	if got := stats.MatchesAfter - stats.MatchesBefore; got != stats.Recorded {
		return fmt.Errorf("store gained %d matches but %d judgments were recorded", got, stats.Recorded)
	}
	if stats.Recorded+stats.Conflicts > stats.ContestsServed {
		return fmt.Errorf("%d outcomes for %d served contests", stats.Recorded+stats.Conflicts, stats.ContestsServed)
	}
	return verifyRanking(rows)
}

// verifyRanking checks rows are ordered by rating desc, then group and title.
func verifyRanking(rows []Row) error {
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		switch {
		case cur.Rating > prev.Rating:
		case cur.Rating == prev.Rating && cur.Group < prev.Group:
		case cur.Rating == prev.Rating && cur.Group == prev.Group && cur.Title < prev.Title:
		default:
			continue
		}
		return fmt.Errorf("ranking not properly sorted at row %d: %s/%s %d after %s/%s %d",
			i, cur.Group, cur.Title, cur.Rating, prev.Group, prev.Title, prev.Rating)
	}
	return nil
}

// displayTop logs the head of the ranking.
func displayTop(ctx context.Context, rows []Row, verbose bool) {
	n := 10
	if verbose || len(rows) < n {
		n = len(rows)
	}
	log := logger.Get()
	for i := 0; i < n; i++ {
		log.Info(ctx, "ranking",
			logger.Int("position", i+1),
			logger.String("group", rows[i].Group),
			logger.String("title", rows[i].Title),
			logger.Int("rating", rows[i].Rating))
	}
}
