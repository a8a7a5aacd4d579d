package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/adapters/repository"
	service "github.com/okian/critic/internal/app"
	"github.com/okian/critic/internal/config"
	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/internal/seed"
	"github.com/okian/critic/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then calls before Start are rejected", func() {
			_, err := svc.NextContest(context.Background(), 0)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.Ping(context.Background()), service.ErrNotStarted), ShouldBeTrue)
			cat, err := svc.Catalog()
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(cat, ShouldBeNil)
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it is reachable and starting twice is harmless", func() {
				So(svc.Ping(ctx), ShouldBeNil)
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("Then an empty catalog has nothing to compare", func() {
				_, err := svc.NextContest(ctx, 0)
				So(errors.Is(err, model.ErrNoEligiblePair), ShouldBeTrue)
			})
		})

		Convey("When it is stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			svc.Stop()
			svc.Stop()

			Convey("Then it no longer serves", func() {
				_, err := svc.Stats(context.Background())
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				_, err = svc.Catalog()
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unknown store driver", t, func() {
		svc := service.New(service.WithStoreDriver("mongo", "mongodb://localhost"))

		Convey("Then Start fails", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrUnknownDriver), ShouldBeTrue)
		})
	})
}

func TestService_Seeded(t *testing.T) {
	Convey("Given a SQLite backed service that seeds on empty", t, func() {
		ctx := context.Background()
		dsn := filepath.Join(t.TempDir(), "critic.db")
		svc := service.New(
			service.WithStoreDriver(config.DriverSQLite, dsn),
			service.WithSeedOnEmpty(true),
			service.WithRandomSeed(3),
		)
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("Then the default catalog is present", func() {
			st, err := svc.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.Titles, ShouldEqual, len(seed.Entries))
			So(st.Matches, ShouldEqual, 0)
		})

		Convey("When a served contest is judged", func() {
			c, err := svc.NextContest(ctx, 0)
			So(err, ShouldBeNil)
			So(c.Criterion.ID, ShouldNotEqual, 0)

			rec, err := svc.RecordResult(ctx, c, model.Win)
			So(err, ShouldBeNil)

			Convey("Then the match references the contest", func() {
				So(rec.Ref, ShouldEqual, c.ID)
				So(rec.DeltaA, ShouldEqual, 30)
			})

			Convey("Then the result survives a restart", func() {
				svc.Stop()
				again := service.New(
					service.WithStoreDriver(config.DriverSQLite, dsn),
					service.WithSeedOnEmpty(true),
				)
				So(again.Start(ctx), ShouldBeNil)
				defer again.Stop()

				st, err := again.Stats(ctx)
				So(err, ShouldBeNil)
				So(st.Matches, ShouldEqual, 1)
				So(st.Titles, ShouldEqual, len(seed.Entries))
			})
		})
	})
}

func TestService_Judge(t *testing.T) {
	Convey("Given a service over a small catalog", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		g, err := store.CreateGroup(ctx, "graphics")
		So(err, ShouldBeNil)
		a, err := store.CreateTitle(ctx, "a")
		So(err, ShouldBeNil)
		b, err := store.CreateTitle(ctx, "b")
		So(err, ShouldBeNil)
		_, err = store.AddGroupToAll(ctx, g.ID)
		So(err, ShouldBeNil)

		svc := service.New(service.WithStore(store))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		j := service.Judgment{GroupID: g.ID, AID: a.ID, BID: b.ID, Score: model.Loss}

		Convey("When the pair is judged", func() {
			id := uuid.New()
			j.ContestID = id
			rec, err := svc.Judge(ctx, j)
			So(err, ShouldBeNil)

			Convey("Then B gains what A loses", func() {
				So(rec.Ref, ShouldEqual, id)
				So(rec.DeltaA, ShouldEqual, -30)
				So(rec.DeltaB, ShouldEqual, 30)

				rows, err := svc.Top(ctx, "graphics", 10, 0)
				So(err, ShouldBeNil)
				So(rows, ShouldResemble, []model.RankingRow{
					{Group: "graphics", Title: "b", Rating: 1030},
					{Group: "graphics", Title: "a", Rating: 970},
				})
			})

			Convey("Then judging it again in either order conflicts", func() {
				j.AID, j.BID = j.BID, j.AID
				_, err := svc.Judge(ctx, j)
				So(errors.Is(err, model.ErrAlreadyJudged), ShouldBeTrue)
			})
		})

		Convey("When the contest id is omitted", func() {
			rec, err := svc.Judge(ctx, j)
			So(err, ShouldBeNil)

			Convey("Then one is minted", func() {
				So(rec.Ref, ShouldNotEqual, uuid.Nil)
			})
		})

		Convey("When the judgment is malformed", func() {
			Convey("Then an invalid score is rejected", func() {
				j.Score = model.Score(2)
				_, err := svc.Judge(ctx, j)
				So(errors.Is(err, model.ErrInvalidScore), ShouldBeTrue)
			})

			Convey("Then a self comparison is rejected", func() {
				j.BID = j.AID
				_, err := svc.Judge(ctx, j)
				So(errors.Is(err, model.ErrInvalidContest), ShouldBeTrue)
			})

			Convey("Then an unknown title is not found", func() {
				j.BID = 999
				_, err := svc.Judge(ctx, j)
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the catalog is managed through the service", func() {
			cat, err := svc.Catalog()
			So(err, ShouldBeNil)
			c, err := cat.CreateTitle(ctx, "c")
			So(err, ShouldBeNil)
			So(cat.AssignGroup(ctx, c.ID, g.ID), ShouldBeNil)

			Convey("Then stats reflect it", func() {
				st, err := svc.Stats(ctx)
				So(err, ShouldBeNil)
				So(st, ShouldResemble, model.Stats{Titles: 3, Groups: 1, Ratings: 3, Matches: 0})
			})
		})
	})
}

func TestOpenStore(t *testing.T) {
	Convey("Given each supported local driver", t, func() {
		ctx := context.Background()

		Convey("Then memory and SQLite open", func() {
			for _, d := range []string{config.DriverMemory, config.DriverSQLite} {
				st, err := service.OpenStore(ctx, d, ":memory:")
				So(err, ShouldBeNil)
				So(st.Ping(ctx), ShouldBeNil)
				So(st.Close(), ShouldBeNil)
			}
		})

		Convey("Then an unknown driver is an error", func() {
			_, err := service.OpenStore(ctx, "bolt", "")
			So(errors.Is(err, service.ErrUnknownDriver), ShouldBeTrue)
		})
	})
}
