package simulate

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/adapters/http/api"
	"github.com/okian/critic/internal/adapters/repository"
	service "github.com/okian/critic/internal/app"
	"github.com/okian/critic/pkg/logger"
)

func newServer(ctx context.Context, opts ...service.Option) *httptest.Server {
	svc := service.New(opts...)
	So(svc.Start(ctx), ShouldBeNil)
	srv := httptest.NewServer(api.NewServer(svc).Handler())
	Reset(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestRun(t *testing.T) {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		t.Fatal(err)
	}

	Convey("Given a seeded service", t, func() {
		ctx := context.Background()
		srv := newServer(ctx, service.WithSeedOnEmpty(true), service.WithRandomSeed(9))
		out := filepath.Join(t.TempDir(), "judgments.json")

		Convey("When judges run concurrently on a budget", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:    srv.URL,
				Judgments:  60,
				TopN:       25,
				Workers:    4,
				Timeout:    5 * time.Second,
				Seed:       5,
				OutputFile: out,
			})

			Convey("Then every recorded judgment is one new match", func() {
				So(err, ShouldBeNil)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Recorded, ShouldBeGreaterThan, 0)
				So(stats.MatchesAfter-stats.MatchesBefore, ShouldEqual, stats.Recorded)
				So(stats.Recorded+stats.Conflicts, ShouldEqual, 60)
				So(stats.RankingRows, ShouldEqual, 25)
			})

			Convey("Then the posted judgments are saved", func() {
				data, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var posted []Result
				So(json.Unmarshal(data, &posted), ShouldBeNil)
				So(posted, ShouldHaveLength, stats.Recorded)
			})
		})
	})

	Convey("Given a group with only three pairs", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		g, err := store.CreateGroup(ctx, "music")
		So(err, ShouldBeNil)
		for _, n := range []string{"a", "b", "c"} {
			_, err := store.CreateTitle(ctx, n)
			So(err, ShouldBeNil)
		}
		_, err = store.AddGroupToAll(ctx, g.ID)
		So(err, ShouldBeNil)
		srv := newServer(ctx, service.WithStore(store))

		Convey("When the budget exceeds the pairs", func() {
			stats, err := Run(ctx, &Config{
				BaseURL:   srv.URL,
				Judgments: 100,
				GroupID:   g.ID,
				TopN:      10,
				Workers:   3,
				Timeout:   5 * time.Second,
				Seed:      1,
			})

			Convey("Then the run stops at exhaustion with each pair judged once", func() {
				So(err, ShouldBeNil)
				So(stats.Exhausted, ShouldBeTrue)
				So(stats.Recorded, ShouldEqual, 3)
				So(stats.MatchesAfter, ShouldEqual, 3)
			})
		})
	})
}

func TestVerifyRanking(t *testing.T) {
	Convey("Given ranking rows", t, func() {
		Convey("Then ties ordered by group and title pass", func() {
			So(verifyRanking([]Row{
				{Group: "g", Title: "b", Rating: 1030},
				{Group: "g", Title: "a", Rating: 1000},
				{Group: "g", Title: "c", Rating: 1000},
				{Group: "h", Title: "a", Rating: 1000},
			}), ShouldBeNil)
		})

		Convey("Then a rise in rating fails", func() {
			So(verifyRanking([]Row{
				{Group: "g", Title: "a", Rating: 1000},
				{Group: "g", Title: "b", Rating: 1030},
			}), ShouldNotBeNil)
		})

		Convey("Then a misordered tie fails", func() {
			So(verifyRanking([]Row{
				{Group: "g", Title: "b", Rating: 1000},
				{Group: "g", Title: "a", Rating: 1000},
			}), ShouldNotBeNil)
		})
	})
}

func TestVerifyResults(t *testing.T) {
	Convey("Given a run whose matches do not add up", t, func() {
		stats := &Stats{ContestsServed: 5, Recorded: 5, MatchesBefore: 0, MatchesAfter: 4}

		Convey("Then verification fails", func() {
			So(verifyResults(stats, nil), ShouldNotBeNil)
		})
	})
}
