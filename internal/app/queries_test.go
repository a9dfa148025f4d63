package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/ledger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestService_Queries(t *testing.T) {
	Convey("Given three players and four matches", t, func() {
		ctx := context.Background()
		svc := newService(t, service.WithHistoryLimits(2, 3))
		ana, _ := svc.RegisterPlayer(ctx, "ana")
		ben, _ := svc.RegisterPlayer(ctx, "ben")
		cyd, _ := svc.RegisterPlayer(ctx, "cyd")

		for _, m := range []struct {
			p1, p2 int64
			s1, s2 int
		}{
			{ana.ID, ben.ID, 11, 4},
			{ben.ID, ana.ID, 11, 9},
			{ana.ID, cyd.ID, 11, 8},
			{ana.ID, ben.ID, 11, 6},
		} {
			_, err := record(ctx, svc, m.p1, m.p2, m.s1, m.s2)
			So(err, ShouldBeNil)
		}

		Convey("Head to head follows the caller's order", func() {
			h, err := svc.HeadToHead(ctx, ben.ID, ana.ID)
			So(err, ShouldBeNil)
			So(h.Matches, ShouldEqual, 3)
			So(h.Player1Wins, ShouldEqual, 1)
			So(h.Player2Wins, ShouldEqual, 2)

			_, err = svc.HeadToHead(ctx, ana.ID, ana.ID)
			So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)

			h, err = svc.HeadToHead(ctx, ben.ID, cyd.ID)
			So(err, ShouldBeNil)
			So(h.Matches, ShouldEqual, 0)
		})

		Convey("The win loss table ranks ana first", func() {
			table, err := svc.WinLossTable(ctx)
			So(err, ShouldBeNil)
			So(table, ShouldHaveLength, 3)
			So(table[0].PlayerID, ShouldEqual, ana.ID)
			So(table[0].Wins, ShouldEqual, 3)
			So(table[0].Losses, ShouldEqual, 1)
		})

		Convey("Player stats carry the record", func() {
			st, err := svc.PlayerStats(ctx, ben.ID)
			So(err, ShouldBeNil)
			So(st.Played, ShouldEqual, 3)
			So(st.Wins, ShouldEqual, 1)
			So(st.Nemesis, ShouldNotBeNil)
			So(st.Nemesis.OpponentIDs, ShouldResemble, []int64{ana.ID})

			_, err = svc.PlayerStats(ctx, 99)
			So(errors.Is(err, ledger.ErrNotFound), ShouldBeTrue)
		})

		Convey("Match history is newest first", func() {
			all, err := svc.MatchHistory(ctx, 0)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 4)
			So(all[0].PlayedAt.After(all[3].PlayedAt), ShouldBeTrue)

			mine, err := svc.MatchHistory(ctx, cyd.ID)
			So(err, ShouldBeNil)
			So(mine, ShouldHaveLength, 1)
			So(mine[0].Result, ShouldEqual, "L")

			_, err = svc.MatchHistory(ctx, 99)
			So(errors.Is(err, ledger.ErrNotFound), ShouldBeTrue)
		})

		Convey("Recent matches honour the default and the cap", func() {
			recent, err := svc.RecentMatches(ctx, 0)
			So(err, ShouldBeNil)
			So(recent, ShouldHaveLength, 2)

			recent, err = svc.RecentMatches(ctx, 50)
			So(err, ShouldBeNil)
			So(recent, ShouldHaveLength, 3)
		})

		Convey("Rating history has the prior and one point per match", func() {
			points, err := svc.RatingHistory(ctx, ana.ID)
			So(err, ShouldBeNil)
			So(points, ShouldHaveLength, 5)
			So(points[0].Mu, ShouldEqual, 25)

			p, _ := svc.Player(ctx, ana.ID)
			So(points[4].Mu, ShouldAlmostEqual, p.Mu, 1e-9)
		})

		Convey("Predict favours ana", func() {
			pr, err := svc.Predict(ctx, ana.ID, ben.ID)
			So(err, ShouldBeNil)
			So(pr.Player1.Name, ShouldEqual, "ana")
			So(pr.Blended, ShouldBeGreaterThan, 0.5)
			So(pr.ModelSkill, ShouldBeGreaterThan, 0.5)

			_, err = svc.Predict(ctx, ana.ID, ana.ID)
			So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)

			_, err = svc.Predict(ctx, ana.ID, 99)
			So(errors.Is(err, ledger.ErrNotFound), ShouldBeTrue)
		})

		Convey("The weekly summary covers the current week", func() {
			w, err := svc.WeeklySummary(ctx, time.Time{}, time.Time{})
			So(err, ShouldBeNil)
			So(w.Matches, ShouldEqual, 4)
			So(w.Players, ShouldEqual, 3)
			So(w.Start.Weekday(), ShouldEqual, time.Sunday)
			So(w.BiggestClimber.PlayerID, ShouldEqual, ana.ID)
			So(w.TopPairing.Matches, ShouldEqual, 3)

			empty, err := svc.WeeklySummary(ctx, monday.AddDate(0, 1, 0), monday.AddDate(0, 1, 7))
			So(err, ShouldBeNil)
			So(empty.Matches, ShouldEqual, 0)
			So(empty.BiggestClimber, ShouldBeNil)

			_, err = svc.WeeklySummary(ctx, monday, monday.Add(-time.Hour))
			So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)
		})

		Convey("Season ladders replay one season", func() {
			So(svc.SetCurrentSeason(ctx, 2), ShouldBeNil)
			_, err := record(ctx, svc, cyd.ID, ben.ID, 11, 1)
			So(err, ShouldBeNil)

			ladder, err := svc.SeasonLadder(ctx, 2)
			So(err, ShouldBeNil)
			So(ladder[0].PlayerID, ShouldEqual, cyd.ID)
			So(ladder[0].Mu, ShouldAlmostEqual, 29.205473176557785, 1e-9)

			seasons, err := svc.Seasons(ctx)
			So(err, ShouldBeNil)
			So(seasons.Available, ShouldResemble, []int{1, 2})

			_, err = svc.SeasonLadder(ctx, 0)
			So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestService_Concurrency(t *testing.T) {
	Convey("Given many concurrent writers", t, func() {
		ctx := context.Background()
		svc := newService(t)
		ana, _ := svc.RegisterPlayer(ctx, "ana")
		ben, _ := svc.RegisterPlayer(ctx, "ben")

		var wg sync.WaitGroup
		errs := make(chan error, 40)
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p1, p2 := ana.ID, ben.ID
				if i%3 == 0 {
					p1, p2 = p2, p1
				}
				_, err := record(ctx, svc, p1, p2, 11, i%10)
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)

		Convey("Then every write lands and the ledger stays consistent", func() {
			for err := range errs {
				So(err, ShouldBeNil)
			}
			all, err := svc.MatchHistory(ctx, 0)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 40)
			So(svc.Verify(ctx), ShouldBeNil)

			h, err := svc.HeadToHead(ctx, ana.ID, ben.ID)
			So(err, ShouldBeNil)
			So(h.Player1Wins+h.Player2Wins, ShouldEqual, 40)
		})
	})
}
