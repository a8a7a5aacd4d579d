package repository_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/adapters/repository/storetest"
	"github.com/okian/critic/internal/domain/model"
)

func TestMemStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) repository.Store {
		return repository.NewMemStore()
	})
}

func TestMemStoreOptions(t *testing.T) {
	Convey("Given a store with a custom baseline and clock", t, func() {
		ctx := context.Background()
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		s := repository.NewMemStore(
			repository.WithBaseline(1500),
			repository.WithClock(func() time.Time { return at }),
		)

		a, err := s.CreateTitle(ctx, "a")
		So(err, ShouldBeNil)
		b, err := s.CreateTitle(ctx, "b")
		So(err, ShouldBeNil)
		g, err := s.CreateGroup(ctx, "g")
		So(err, ShouldBeNil)
		So(s.AssignGroup(ctx, a.ID, g.ID), ShouldBeNil)
		So(s.AssignGroup(ctx, b.ID, g.ID), ShouldBeNil)

		Convey("When a pair is proposed and judged", func() {
			c, err := s.NextPair(ctx, g.ID)
			So(err, ShouldBeNil)
			rec, err := s.RecordMatch(ctx, model.MatchRecord{GroupID: g.ID, AID: c.A.ID, BID: c.B.ID, Score: model.Win})
			So(err, ShouldBeNil)

			Convey("Then the baseline and the clock were used", func() {
				So(c.A.Rating, ShouldEqual, 1500)
				So(rec.CreatedAt, ShouldEqual, at)
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)

			Convey("Then ping reports it", func() {
				So(s.Ping(ctx), ShouldEqual, repository.ErrClosed)
			})
		})
	})
}
