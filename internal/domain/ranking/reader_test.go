package ranking_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/adapters/repository"
	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/internal/domain/ranking"
)

// seed creates n titles in group "g" with ratings 1000+10*i, each spread
// by a judgment against a sink title that stays out of the group.
func seed(ctx context.Context, n int) *repository.MemStore {
	s := repository.NewMemStore()
	g, err := s.CreateGroup(ctx, "g")
	So(err, ShouldBeNil)
	other, err := s.CreateGroup(ctx, "other")
	So(err, ShouldBeNil)
	for i := 0; i < n; i++ {
		t, err := s.CreateTitle(ctx, fmt.Sprintf("t%02d", i))
		So(err, ShouldBeNil)
		So(s.AssignGroup(ctx, t.ID, g.ID), ShouldBeNil)
	}
	ts, err := s.TitlesByGroup(ctx, g.ID)
	So(err, ShouldBeNil)
	for i := 1; i < len(ts); i++ {
		_, err := s.RecordMatch(ctx, model.MatchRecord{
			GroupID: g.ID, AID: ts[i].ID, BID: ts[0].ID, Score: model.Win, DeltaA: float64(10 * i),
		})
		So(err, ShouldBeNil)
	}
	x, err := s.CreateTitle(ctx, "x")
	So(err, ShouldBeNil)
	So(s.AssignGroup(ctx, x.ID, other.ID), ShouldBeNil)
	return s
}

func TestTop(t *testing.T) {
	Convey("Given 25 titles in one group", t, func() {
		ctx := context.Background()
		r := ranking.NewReader(seed(ctx, 25))

		Convey("When pages of ten are read", func() {
			p0, err := r.Top(ctx, "g", 10, 0)
			So(err, ShouldBeNil)
			p1, err := r.Top(ctx, "g", 10, 1)
			So(err, ShouldBeNil)
			p2, err := r.Top(ctx, "g", 10, 2)
			So(err, ShouldBeNil)
			p3, err := r.Top(ctx, "g", 10, 3)
			So(err, ShouldBeNil)

			Convey("Then they hold 10, 10, 5 and 0 rows", func() {
				So(p0, ShouldHaveLength, 10)
				So(p1, ShouldHaveLength, 10)
				So(p2, ShouldHaveLength, 5)
				So(p3, ShouldBeEmpty)
			})

			Convey("Then ratings fall across pages", func() {
				So(p0[0], ShouldResemble, model.RankingRow{Group: "g", Title: "t24", Rating: 1240})
				So(p0[9].Rating, ShouldBeGreaterThan, p1[0].Rating)
				So(p2[4], ShouldResemble, model.RankingRow{Group: "g", Title: "t00", Rating: 1000})
			})
		})

		Convey("When no group is named", func() {
			rows, err := r.Top(ctx, "", 100, 0)
			So(err, ShouldBeNil)

			Convey("Then every group is included", func() {
				So(rows, ShouldHaveLength, 26)
			})
		})

		Convey("When the page request is invalid", func() {
			Convey("Then the result is empty", func() {
				for _, req := range [][2]int{{0, 0}, {-5, 0}, {10, -1}} {
					rows, err := r.Top(ctx, "g", req[0], req[1])
					So(err, ShouldBeNil)
					So(rows, ShouldBeEmpty)
				}
			})
		})

		Convey("When the page size exceeds the cap", func() {
			capped := ranking.NewReader(seed(ctx, 25), ranking.WithMaxPageSize(4))
			rows, err := capped.Top(ctx, "g", 50, 1)
			So(err, ShouldBeNil)

			Convey("Then the capped size drives both limit and offset", func() {
				So(rows, ShouldHaveLength, 4)
				So(rows[0].Title, ShouldEqual, "t20")
			})

			Convey("Then the effective size is reported", func() {
				So(capped.PageSize(50), ShouldEqual, 4)
				So(capped.PageSize(3), ShouldEqual, 3)
				So(r.PageSize(500), ShouldEqual, 500)
			})
		})
	})
}

type failingSource struct{}

func (failingSource) Top(context.Context, string, int, int) ([]model.RankingRow, error) {
	return nil, errors.New("connection reset")
}

func TestTopStoreFailure(t *testing.T) {
	Convey("Given a failing store", t, func() {
		r := ranking.NewReader(failingSource{})

		Convey("Then reads fail as persistence errors", func() {
			_, err := r.Top(context.Background(), "", 10, 0)
			So(errors.Is(err, model.ErrPersistence), ShouldBeTrue)
		})
	})
}
