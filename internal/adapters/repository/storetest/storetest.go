// Package storetest holds the behavioral suite every repository.Store
// driver must pass.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/domain/model"
)

// Factory returns an empty, migrated store. It is called once per
// Convey path, so every path starts from scratch.
type Factory func(t *testing.T) repository.Store

type fixture struct {
	ctx   context.Context
	store repository.Store
}

func (f fixture) title(name string) model.Title {
	t, err := f.store.CreateTitle(f.ctx, name)
	So(err, ShouldBeNil)
	return t
}

func (f fixture) group(name string, titles ...model.Title) model.CriteriaGroup {
	g, err := f.store.CreateGroup(f.ctx, name)
	So(err, ShouldBeNil)
	for _, t := range titles {
		So(f.store.AssignGroup(f.ctx, t.ID, g.ID), ShouldBeNil)
	}
	return g
}

func (f fixture) criterion(g model.CriteriaGroup, name string) model.Criterion {
	c, err := f.store.CreateCriterion(f.ctx, g.ID, name)
	So(err, ShouldBeNil)
	return c
}

func (f fixture) match(g model.CriteriaGroup, a, b model.Title, dA, dB float64) model.MatchRecord {
	rec, err := f.store.RecordMatch(f.ctx, model.MatchRecord{
		GroupID: g.ID, AID: a.ID, BID: b.ID, Score: model.Win, DeltaA: dA, DeltaB: dB,
	})
	So(err, ShouldBeNil)
	return rec
}

func (f fixture) rating(g model.CriteriaGroup, t model.Title) float64 {
	ts, err := f.store.TitlesByGroup(f.ctx, g.ID)
	So(err, ShouldBeNil)
	for _, c := range ts {
		if c.ID == t.ID {
			return c.Rating
		}
	}
	return -1
}

// Run executes the suite against stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()
	setup := func() fixture {
		return fixture{ctx: context.Background(), store: open(t)}
	}

	t.Run("Catalog", func(t *testing.T) { testCatalog(t, setup) })
	t.Run("NextPair", func(t *testing.T) { testNextPair(t, setup) })
	t.Run("RecordMatch", func(t *testing.T) { testRecordMatch(t, setup) })
	t.Run("LoadContest", func(t *testing.T) { testLoadContest(t, setup) })
	t.Run("Top", func(t *testing.T) { testTop(t, setup) })
	t.Run("History", func(t *testing.T) { testHistory(t, setup) })
}

func testCatalog(t *testing.T, setup func() fixture) {
	Convey("Given an empty store", t, func() {
		f := setup()
		So(f.store.Ping(f.ctx), ShouldBeNil)

		Convey("When titles are created", func() {
			a := f.title("Doom")
			b := f.title("Quake")

			Convey("Then they are listed in creation order", func() {
				ts, err := f.store.ListTitles(f.ctx)
				So(err, ShouldBeNil)
				So(ts, ShouldResemble, []model.Title{a, b})
			})

			Convey("Then a duplicate name conflicts", func() {
				_, err := f.store.CreateTitle(f.ctx, "Doom")
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
				So(errors.Is(f.store.RenameTitle(f.ctx, b.ID, "Doom"), repository.ErrConflict), ShouldBeTrue)
			})

			Convey("Then a blank name is rejected", func() {
				_, err := f.store.CreateTitle(f.ctx, "  ")
				So(errors.Is(err, repository.ErrInvalidName), ShouldBeTrue)
			})

			Convey("Then a rename is visible", func() {
				So(f.store.RenameTitle(f.ctx, a.ID, "Doom II"), ShouldBeNil)
				ts, err := f.store.ListTitles(f.ctx)
				So(err, ShouldBeNil)
				So(ts[0].Name, ShouldEqual, "Doom II")
			})

			Convey("Then unknown ids are not found", func() {
				So(errors.Is(f.store.RenameTitle(f.ctx, b.ID+100, "x"), repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(f.store.DeleteTitle(f.ctx, b.ID+100), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a title joins a group", func() {
			a := f.title("Doom")
			g := f.group("graphics", a)

			Convey("Then it starts at the baseline", func() {
				ts, err := f.store.TitlesByGroup(f.ctx, g.ID)
				So(err, ShouldBeNil)
				So(ts, ShouldResemble, []model.Contestant{{ID: a.ID, Name: "Doom", Rating: model.BaselineRating}})
			})

			Convey("Then assigning again changes nothing", func() {
				So(f.store.AssignGroup(f.ctx, a.ID, g.ID), ShouldBeNil)
				st, err := f.store.Stats(f.ctx)
				So(err, ShouldBeNil)
				So(st, ShouldResemble, model.Stats{Titles: 1, Groups: 1, Ratings: 1})
			})

			Convey("Then the group is listed for the title", func() {
				gs, err := f.store.GroupsByTitle(f.ctx, a.ID)
				So(err, ShouldBeNil)
				So(gs, ShouldResemble, []model.CriteriaGroup{g})
			})

			Convey("Then unassigning removes the rating", func() {
				So(f.store.UnassignGroup(f.ctx, a.ID, g.ID), ShouldBeNil)
				ts, err := f.store.TitlesByGroup(f.ctx, g.ID)
				So(err, ShouldBeNil)
				So(ts, ShouldBeEmpty)
				So(errors.Is(f.store.UnassignGroup(f.ctx, a.ID, g.ID), repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then assigning an unknown group is not found", func() {
				So(errors.Is(f.store.AssignGroup(f.ctx, a.ID, g.ID+100), repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a group is added to every title", func() {
			f.title("Doom")
			f.title("Quake")
			g := f.group("general")

			n, err := f.store.AddGroupToAll(f.ctx, g.ID)
			So(err, ShouldBeNil)

			Convey("Then every title is associated once", func() {
				So(n, ShouldEqual, 2)
				n, err = f.store.AddGroupToAll(f.ctx, g.ID)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When criteria are created", func() {
			g := f.group("graphics")
			c1 := f.criterion(g, "Which looks better?")
			c2 := f.criterion(g, "Which aged better?")

			Convey("Then they are listed by group", func() {
				cs, err := f.store.ListCriteria(f.ctx, g.ID)
				So(err, ShouldBeNil)
				So(cs, ShouldResemble, []model.Criterion{c1, c2})
			})

			Convey("Then names are unique within the group only", func() {
				_, err := f.store.CreateCriterion(f.ctx, g.ID, "Which looks better?")
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)

				other := f.group("story")
				_, err = f.store.CreateCriterion(f.ctx, other.ID, "Which looks better?")
				So(err, ShouldBeNil)
			})

			Convey("Then deleting the group removes its criteria", func() {
				So(f.store.DeleteGroup(f.ctx, g.ID), ShouldBeNil)
				_, err := f.store.ListCriteria(f.ctx, g.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func testNextPair(t *testing.T, setup func() fixture) {
	Convey("Given a group of equally rated titles", t, func() {
		f := setup()
		t1 := f.title("t1")
		t2 := f.title("t2")
		t3 := f.title("t3")
		g := f.group("g", t1, t2, t3)

		Convey("When no match has been recorded", func() {
			c, err := f.store.NextPair(f.ctx, g.ID)
			So(err, ShouldBeNil)

			Convey("Then the lowest id pair wins the tie", func() {
				So(c.Group, ShouldResemble, g)
				So(c.A.ID, ShouldEqual, t1.ID)
				So(c.B.ID, ShouldEqual, t2.ID)
				So(c.A.Rating, ShouldEqual, model.BaselineRating)
			})

			Convey("Then no criterion is attached", func() {
				So(c.Criterion.ID, ShouldEqual, 0)
			})
		})

		Convey("When ratings drift apart", func() {
			// t1=1010, t2=1000, t3=1300 with (t1,t3) judged.
			f.match(g, t1, t3, 10, 300)

			Convey("Then the closest unjudged pair is chosen", func() {
				c, err := f.store.NextPair(f.ctx, g.ID)
				So(err, ShouldBeNil)
				So(c.A.ID, ShouldEqual, t1.ID)
				So(c.B.ID, ShouldEqual, t2.ID)
				So(c.A.Rating, ShouldEqual, 1010)
				So(c.B.Rating, ShouldEqual, 1000)
			})
		})

		Convey("When every pair has been judged", func() {
			f.match(g, t1, t2, 0, 0)
			f.match(g, t3, t1, 0, 0)
			f.match(g, t2, t3, 0, 0)

			Convey("Then the group is exhausted", func() {
				_, err := f.store.NextPair(f.ctx, g.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the group has criteria", func() {
			c1 := f.criterion(g, "first")
			c2 := f.criterion(g, "second")

			Convey("Then the least used one is attached", func() {
				c, err := f.store.NextPair(f.ctx, g.ID)
				So(err, ShouldBeNil)
				So(c.Criterion, ShouldResemble, c1)

				_, err = f.store.RecordMatch(f.ctx, model.MatchRecord{
					GroupID: g.ID, CriterionID: c1.ID, AID: t1.ID, BID: t2.ID, Score: model.Draw,
				})
				So(err, ShouldBeNil)

				c, err = f.store.NextPair(f.ctx, g.ID)
				So(err, ShouldBeNil)
				So(c.Criterion, ShouldResemble, c2)
			})
		})

		Convey("When the group is unknown", func() {
			_, err := f.store.NextPair(f.ctx, g.ID+100)

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When any group may be used", func() {
			other := f.group("other", t1, t2)
			f.match(g, t1, t2, 0, 0)
			f.match(g, t1, t3, 0, 0)
			f.match(g, t2, t3, 0, 0)

			Convey("Then the only group with a pair left is chosen", func() {
				c, err := f.store.NextPair(f.ctx, repository.AnyGroup)
				So(err, ShouldBeNil)
				So(c.Group, ShouldResemble, other)
			})

			Convey("Then only groups with two titles are eligible", func() {
				f.group("lonely", t3)
				gs, err := f.store.GroupsWithMinTitles(f.ctx, 2)
				So(err, ShouldBeNil)
				So(gs, ShouldResemble, []model.CriteriaGroup{g, other})
			})
		})
	})
}

func testRecordMatch(t *testing.T, setup func() fixture) {
	Convey("Given two titles in a group", t, func() {
		f := setup()
		a := f.title("a")
		b := f.title("b")
		g := f.group("g", a, b)

		Convey("When a match is recorded", func() {
			rec := f.match(g, a, b, 30, -30)

			Convey("Then the record is stamped", func() {
				So(rec.ID, ShouldBeGreaterThan, 0)
				So(rec.CreatedAt.IsZero(), ShouldBeFalse)
				So(rec.Ref, ShouldNotEqual, uuid.Nil)
			})

			Convey("Then both ratings moved", func() {
				So(f.rating(g, a), ShouldEqual, 1030)
				So(f.rating(g, b), ShouldEqual, 970)
			})

			Convey("Then the swapped pair is rejected and nothing changes", func() {
				_, err := f.store.RecordMatch(f.ctx, model.MatchRecord{
					GroupID: g.ID, AID: b.ID, BID: a.ID, Score: model.Win, DeltaA: 30, DeltaB: -30,
				})
				So(errors.Is(err, repository.ErrAlreadyJudged), ShouldBeTrue)
				So(f.rating(g, a), ShouldEqual, 1030)
				So(f.rating(g, b), ShouldEqual, 970)

				st, err := f.store.Stats(f.ctx)
				So(err, ShouldBeNil)
				So(st.Matches, ShouldEqual, 1)
			})

			Convey("Then its ref cannot carry another pair", func() {
				c := f.title("c")
				So(f.store.AssignGroup(f.ctx, c.ID, g.ID), ShouldBeNil)
				_, err := f.store.RecordMatch(f.ctx, model.MatchRecord{
					Ref: rec.Ref, GroupID: g.ID, AID: a.ID, BID: c.ID, Score: model.Win, DeltaA: 30, DeltaB: -30,
				})
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
				So(errors.Is(err, repository.ErrAlreadyJudged), ShouldBeFalse)
				So(f.rating(g, a), ShouldEqual, 1030)
				So(f.rating(g, c), ShouldEqual, model.BaselineRating)

				st, err := f.store.Stats(f.ctx)
				So(err, ShouldBeNil)
				So(st.Matches, ShouldEqual, 1)
			})

			Convey("Then replaying the contest reports the pair as judged", func() {
				_, err := f.store.RecordMatch(f.ctx, model.MatchRecord{
					Ref: rec.Ref, GroupID: g.ID, AID: a.ID, BID: b.ID, Score: model.Loss, DeltaA: -30, DeltaB: 30,
				})
				So(errors.Is(err, repository.ErrAlreadyJudged), ShouldBeTrue)
			})

			Convey("Then the same pair may still meet in another group", func() {
				other := f.group("other", a, b)
				f.match(other, b, a, 1, -1)
			})
		})

		Convey("When one side is not rated in the group", func() {
			c := f.title("c")
			_, err := f.store.RecordMatch(f.ctx, model.MatchRecord{
				GroupID: g.ID, AID: a.ID, BID: c.ID, Score: model.Win, DeltaA: 30, DeltaB: -30,
			})

			Convey("Then it is not found and nothing is written", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(f.rating(g, a), ShouldEqual, model.BaselineRating)
				st, err := f.store.Stats(f.ctx)
				So(err, ShouldBeNil)
				So(st.Matches, ShouldEqual, 0)
			})
		})
	})
}

func testLoadContest(t *testing.T, setup func() fixture) {
	Convey("Given a rated pair", t, func() {
		f := setup()
		a := f.title("a")
		b := f.title("b")
		g := f.group("g", a, b)
		cr := f.criterion(g, "q")

		Convey("When the contest is loaded", func() {
			c, err := f.store.LoadContest(f.ctx, g.ID, cr.ID, b.ID, a.ID)
			So(err, ShouldBeNil)

			Convey("Then the requested order is kept", func() {
				So(c.A, ShouldResemble, model.Contestant{ID: b.ID, Name: "b", Rating: model.BaselineRating})
				So(c.B.ID, ShouldEqual, a.ID)
				So(c.Criterion, ShouldResemble, cr)
			})
		})

		Convey("When a title is outside the group", func() {
			x := f.title("x")
			_, err := f.store.LoadContest(f.ctx, g.ID, 0, a.ID, x.ID)

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the criterion belongs elsewhere", func() {
			other := f.group("other")
			oc := f.criterion(other, "q")
			_, err := f.store.LoadContest(f.ctx, g.ID, oc.ID, a.ID, b.ID)

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func testTop(t *testing.T, setup func() fixture) {
	Convey("Given ratings in two groups", t, func() {
		f := setup()
		a := f.title("alpha")
		b := f.title("bravo")
		c := f.title("charlie")
		g1 := f.group("graphics", a, b, c)
		g2 := f.group("story", a, b)
		f.match(g1, a, b, 40.6, -40)
		f.match(g2, b, a, 20, -20)

		Convey("When all groups are read", func() {
			rows, err := f.store.Top(f.ctx, "", 10, 0)
			So(err, ShouldBeNil)

			Convey("Then rows are ordered by rating, group and title", func() {
				So(rows, ShouldResemble, []model.RankingRow{
					{Group: "graphics", Title: "alpha", Rating: 1041},
					{Group: "story", Title: "bravo", Rating: 1020},
					{Group: "graphics", Title: "charlie", Rating: 1000},
					{Group: "story", Title: "alpha", Rating: 980},
					{Group: "graphics", Title: "bravo", Rating: 960},
				})
			})
		})

		Convey("When a group is named", func() {
			rows, err := f.store.Top(f.ctx, "story", 10, 0)
			So(err, ShouldBeNil)

			Convey("Then only its rows are returned", func() {
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Title, ShouldEqual, "bravo")
			})
		})

		Convey("When pages are read", func() {
			p0, err := f.store.Top(f.ctx, "", 2, 0)
			So(err, ShouldBeNil)
			p1, err := f.store.Top(f.ctx, "", 2, 2)
			So(err, ShouldBeNil)
			p2, err := f.store.Top(f.ctx, "", 2, 4)
			So(err, ShouldBeNil)
			p3, err := f.store.Top(f.ctx, "", 2, 6)
			So(err, ShouldBeNil)

			Convey("Then they partition the ranking", func() {
				So(p0, ShouldHaveLength, 2)
				So(p1, ShouldHaveLength, 2)
				So(p2, ShouldHaveLength, 1)
				So(p3, ShouldBeEmpty)
				So(p1[0].Title, ShouldEqual, "charlie")
			})
		})

		Convey("When the group is unknown", func() {
			rows, err := f.store.Top(f.ctx, "sound", 10, 0)

			Convey("Then the page is empty", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
			})
		})
	})
}

func testHistory(t *testing.T, setup func() fixture) {
	Convey("Given a judged pair", t, func() {
		f := setup()
		a := f.title("a")
		b := f.title("b")
		spare := f.title("spare")
		g := f.group("g", a, b, spare)
		cr := f.criterion(g, "q")
		_, err := f.store.RecordMatch(f.ctx, model.MatchRecord{
			GroupID: g.ID, CriterionID: cr.ID, AID: a.ID, BID: b.ID, Score: model.Draw,
		})
		So(err, ShouldBeNil)

		Convey("Then referenced rows cannot be removed", func() {
			So(errors.Is(f.store.DeleteTitle(f.ctx, a.ID), repository.ErrHasHistory), ShouldBeTrue)
			So(errors.Is(f.store.DeleteGroup(f.ctx, g.ID), repository.ErrHasHistory), ShouldBeTrue)
			So(errors.Is(f.store.DeleteCriterion(f.ctx, cr.ID), repository.ErrHasHistory), ShouldBeTrue)
			So(errors.Is(f.store.UnassignGroup(f.ctx, b.ID, g.ID), repository.ErrHasHistory), ShouldBeTrue)
		})

		Convey("Then an unjudged title can be deleted with its ratings", func() {
			So(f.store.DeleteTitle(f.ctx, spare.ID), ShouldBeNil)
			st, err := f.store.Stats(f.ctx)
			So(err, ShouldBeNil)
			So(st, ShouldResemble, model.Stats{Titles: 2, Groups: 1, Ratings: 2, Matches: 1})
		})
	})
}
