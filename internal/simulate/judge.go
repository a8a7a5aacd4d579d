package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/critic/pkg/logger"
)

// outcome draws a score for A: mostly decisive, sometimes a draw.
func outcome(rng *rand.Rand) float64 {
	switch p := rng.Float64(); {
	case p < 0.45:
		return 1
	case p < 0.55:
		return 0.5
	default:
		return 0
	}
}

type judgeCounters struct {
	reserved  int64
	served    int64
	recorded  int64
	conflicts int64
	failed    int64
	exhausted atomic.Bool
}

// judge runs config.Workers concurrent judges until the budget is spent or
// the service has nothing left to compare. Two judges may be served the
// same pair; the slower one gets a conflict, which is counted, not failed.
func judge(ctx context.Context, config *Config, stats *Stats) ([]Result, error) {
	log := logger.Get()
	log.Info(ctx, "judging contests",
		logger.Int("budget", config.Judgments),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.BaseURL, config.Timeout)
	path := "/contests/next"
	if config.GroupID > 0 {
		path = fmt.Sprintf("%s?group_id=%d", path, config.GroupID)
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var (
		c       judgeCounters
		mu      sync.Mutex
		posted  []Result
		wg      sync.WaitGroup
		lastLog atomic.Int64
	)
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(workerID))) //nolint:gosec // simulated outcomes

			for ctx.Err() == nil && !c.exhausted.Load() {
				if atomic.AddInt64(&c.reserved, 1) > int64(config.Judgments) {
					return
				}
				res, ok := judgeOne(ctx, client, path, rng, &c)
				if ok {
					mu.Lock()
					posted = append(posted, res)
					mu.Unlock()
				}

				if now := time.Now().Unix(); config.Verbose && lastLog.Swap(now) != now {
					log.Info(ctx, "progress",
						logger.Int64("recorded", atomic.LoadInt64(&c.recorded)),
						logger.Int64("conflicts", atomic.LoadInt64(&c.conflicts)),
						logger.Int64("failed", atomic.LoadInt64(&c.failed)))
				}
			}
		}(i)
	}
	wg.Wait()

	stats.ContestsServed = int(atomic.LoadInt64(&c.served))
	stats.Recorded = int(atomic.LoadInt64(&c.recorded))
	stats.Conflicts = int(atomic.LoadInt64(&c.conflicts))
	stats.Failed = int(atomic.LoadInt64(&c.failed))
	stats.Exhausted = c.exhausted.Load()

	log.Info(ctx, "judging completed",
		logger.Int("recorded", stats.Recorded),
		logger.Int("conflicts", stats.Conflicts),
		logger.Int("failed", stats.Failed),
		logger.Bool("exhausted", stats.Exhausted))

	if err := ctx.Err(); err != nil {
		return posted, err
	}
	return posted, nil
}

// judgeOne fetches one contest and posts a simulated outcome for it.
func judgeOne(ctx context.Context, client *HTTPClient, path string, rng *rand.Rand, c *judgeCounters) (Result, bool) {
	status, body, err := client.Get(ctx, path)
	switch {
	case err != nil:
		atomic.AddInt64(&c.failed, 1)
		return Result{}, false
	case status == statusNoContent:
		c.exhausted.Store(true)
		return Result{}, false
	case status != statusOK:
		atomic.AddInt64(&c.failed, 1)
		return Result{}, false
	}

	var contest Contest
	if err := json.Unmarshal(body, &contest); err != nil {
		atomic.AddInt64(&c.failed, 1)
		return Result{}, false
	}
	atomic.AddInt64(&c.served, 1)

	res := Result{
		ContestID:   contest.ID,
		GroupID:     contest.Group.ID,
		CriterionID: contest.Criterion.ID,
		AID:         contest.A.ID,
		BID:         contest.B.ID,
		Score:       outcome(rng),
	}
	status, _, err = client.Post(ctx, "/results", res)
	switch {
	case err != nil:
		atomic.AddInt64(&c.failed, 1)
	case status == statusCreated:
		atomic.AddInt64(&c.recorded, 1)
		return res, true
	case status == statusConflict:
		atomic.AddInt64(&c.conflicts, 1)
	default:
		atomic.AddInt64(&c.failed, 1)
	}
	return Result{}, false
}
