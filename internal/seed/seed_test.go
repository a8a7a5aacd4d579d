package seed_test

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/adapters/repository/sqlitestore"
	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/internal/seed"
)

func TestIfEmpty(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore()

		Convey("When it is seeded", func() {
			ok, err := seed.IfEmpty(ctx, s)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			Convey("Then every title joins general and its genres", func() {
				st, err := s.Stats(ctx)
				So(err, ShouldBeNil)
				So(st, ShouldResemble, model.Stats{Titles: 35, Groups: 7, Ratings: 98, Matches: 0})

				groups, err := s.ListGroups(ctx)
				So(err, ShouldBeNil)
				So(groups[0].Name, ShouldEqual, seed.General)

				all, err := s.TitlesByGroup(ctx, groups[0].ID)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, len(seed.Entries))
				So(all[0].Rating, ShouldEqual, model.BaselineRating)
			})

			Convey("Then each group carries the default criteria", func() {
				groups, err := s.ListGroups(ctx)
				So(err, ShouldBeNil)
				for _, g := range groups {
					cs, err := s.ListCriteria(ctx, g.ID)
					So(err, ShouldBeNil)
					So(cs, ShouldHaveLength, len(seed.Criteria))
				}
			})

			Convey("Then only the single-title genre is left out of matchmaking", func() {
				gs, err := s.GroupsWithMinTitles(ctx, 2)
				So(err, ShouldBeNil)
				So(gs, ShouldHaveLength, 6)
				for _, g := range gs {
					So(g.Name, ShouldNotEqual, "platformer")
				}
			})

			Convey("Then a second run writes nothing", func() {
				ok, err := seed.IfEmpty(ctx, s)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				st, err := s.Stats(ctx)
				So(err, ShouldBeNil)
				So(st.Titles, ShouldEqual, 35)
			})
		})
	})

	Convey("Given a store that already holds a title", t, func() {
		ctx := context.Background()
		s := repository.NewMemStore()
		_, err := s.CreateTitle(ctx, "Chrono Trigger")
		So(err, ShouldBeNil)

		Convey("Then it is left alone", func() {
			ok, err := seed.IfEmpty(ctx, s)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			st, err := s.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.Groups, ShouldEqual, 0)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given a SQLite store", t, func() {
		ctx := context.Background()
		s, err := sqlitestore.Open(ctx, ":memory:")
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		Convey("When a custom list with a repeated name is loaded", func() {
			err := seed.Load(ctx, s, []seed.Entry{
				{Name: "Okami", Genres: []string{"action-adventure"}},
				{Name: "Okami", Genres: []string{"jrpg"}},
				{Name: "Persona 5", Genres: []string{"jrpg"}},
			})
			So(err, ShouldBeNil)

			Convey("Then the first occurrence wins", func() {
				st, err := s.Stats(ctx)
				So(err, ShouldBeNil)
				So(st, ShouldResemble, model.Stats{Titles: 2, Groups: 3, Ratings: 4, Matches: 0})
			})

			Convey("Then loading again conflicts", func() {
				err := seed.Load(ctx, s, seed.Entries[:1])
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			})
		})
	})
}
