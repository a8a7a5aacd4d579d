package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/critic/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete judging run against a live service.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting critic judging run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("judgments", config.Judgments),
		logger.Int("workers", config.Workers),
		logger.Int64("groupID", config.GroupID),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Snapshot match count
	var before Counts
	if err := client.getJSON(ctx, "/stats", &before); err != nil {
		return stats, fmt.Errorf("stats retrieval failed: %w", err)
	}
	stats.MatchesBefore = before.Matches

	// Step 3: Judge concurrently
	posted, err := judge(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("judging failed: %w", err)
	}

	// Step 4: Read back
	var after Counts
	if err := client.getJSON(ctx, "/stats", &after); err != nil {
		return stats, fmt.Errorf("stats retrieval failed: %w", err)
	}
	stats.MatchesAfter = after.Matches

	var rows []Row
	if err := client.getJSON(ctx, fmt.Sprintf("/top?page_size=%d", config.TopN), &rows); err != nil {
		return stats, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	stats.RankingRows = len(rows)

	// Step 5: Verify
	if err := verifyResults(stats, rows); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	displayTop(ctx, rows, config.Verbose)

	// Step 6: Save judgments
	if config.OutputFile != "" {
		if err := saveResults(config.OutputFile, posted); err != nil {
			log.Warn(ctx, "failed to save judgments to file", logger.Error(err))
		} else {
			log.Info(ctx, "judgments saved to file", logger.String("filename", config.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service and its store are up.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != statusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// saveResults writes the posted judgments as a JSON array.
func saveResults(filename string, posted []Result) error {
	if len(posted) == 0 {
		return errors.New("no judgments to save")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(posted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal judgments: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Recorded) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("contestsServed", stats.ContestsServed),
		logger.Int("recorded", stats.Recorded),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("failed", stats.Failed),
		logger.Bool("exhausted", stats.Exhausted),
		logger.Int("matchesBefore", stats.MatchesBefore),
		logger.Int("matchesAfter", stats.MatchesAfter),
		logger.Duration("duration", stats.Duration),
		logger.Float64("judgmentsPerSecond", perSecond))
}
