package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/rally/internal/adapters/repository"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/ledger"
	"github.com/okian/rally/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var monday = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

// newService returns a started service over an in-memory store whose clock
// advances one minute per call.
func newService(t *testing.T, opts ...service.Option) *service.Service {
	t.Helper()
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	tick := 0
	clock := func() time.Time {
		tick++
		return monday.Add(time.Duration(tick) * time.Minute)
	}
	svc := service.New(store, append([]service.Option{service.WithClock(clock)}, opts...)...)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = svc.Stop(context.Background())
		_ = store.Close()
	})
	return svc
}

func record(ctx context.Context, svc *service.Service, p1, p2 int64, s1, s2 int) (int64, error) {
	m, _, err := svc.RecordMatch(ctx, ledger.RecordRequest{Player1ID: p1, Player2ID: p2, Score1: s1, Score2: s2}, "")
	return m.ID, err
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		ctx := context.Background()
		store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
		So(err, ShouldBeNil)
		defer store.Close()

		svc := service.New(store, service.WithQueueSize(8), service.WithDedupeSize(16))

		Convey("Then writes are refused", func() {
			_, err := svc.RegisterPlayer(ctx, "ana")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then reads still work", func() {
			players, err := svc.Players(ctx)
			So(err, ShouldBeNil)
			So(players, ShouldBeEmpty)
		})

		Convey("When started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			stats := svc.GetStats(ctx)
			So(stats["started"], ShouldEqual, true)
			So(stats["queueCapacity"], ShouldEqual, 8)
			So(stats["dedupeCapacity"], ShouldEqual, 16)
			So(stats["players"], ShouldEqual, 0)
			So(stats["currentSeason"], ShouldEqual, 1)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then writes are refused again", func() {
				_, err := svc.RegisterPlayer(ctx, "ana")
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Writes(t *testing.T) {
	Convey("Given a running service with two players", t, func() {
		ctx := context.Background()
		svc := newService(t)
		ana, err := svc.RegisterPlayer(ctx, "ana")
		So(err, ShouldBeNil)
		ben, err := svc.RegisterPlayer(ctx, "ben")
		So(err, ShouldBeNil)

		Convey("When ana beats ben", func() {
			id, err := record(ctx, svc, ana.ID, ben.ID, 11, 7)
			So(err, ShouldBeNil)

			Convey("Then the ladder shows the reference update", func() {
				ladder, err := svc.Ladder(ctx)
				So(err, ShouldBeNil)
				So(ladder, ShouldHaveLength, 2)
				So(ladder[0].PlayerID, ShouldEqual, ana.ID)
				So(ladder[0].Mu, ShouldAlmostEqual, 29.205473176557785, 1e-9)
				So(ladder[1].Mu, ShouldAlmostEqual, 20.794526823442215, 1e-9)
				So(*ladder[0].Delta, ShouldAlmostEqual, 4.205473176557785, 1e-9)
			})

			Convey("Then deleting it restores the prior", func() {
				So(svc.DeleteMatch(ctx, id), ShouldBeNil)
				p, err := svc.Player(ctx, ana.ID)
				So(err, ShouldBeNil)
				So(p.Mu, ShouldEqual, 25)
				So(svc.Verify(ctx), ShouldBeNil)
			})

			Convey("Then removing ben leaves ana at the prior", func() {
				So(svc.RemovePlayer(ctx, ben.ID), ShouldBeNil)
				p, err := svc.Player(ctx, ana.ID)
				So(err, ShouldBeNil)
				So(p.Mu, ShouldEqual, 25)
			})

			Convey("Then clear all empties the ledger", func() {
				So(svc.ClearAll(ctx), ShouldBeNil)
				players, err := svc.Players(ctx)
				So(err, ShouldBeNil)
				So(players, ShouldBeEmpty)
			})

			Convey("Then recompute keeps the state", func() {
				So(svc.Recompute(ctx), ShouldBeNil)
				So(svc.Verify(ctx), ShouldBeNil)
			})
		})

		Convey("When a draw is submitted", func() {
			_, err := record(ctx, svc, ana.ID, ben.ID, 5, 5)

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the season changes", func() {
			So(svc.SetCurrentSeason(ctx, 2), ShouldBeNil)
			_, err := record(ctx, svc, ben.ID, ana.ID, 11, 2)
			So(err, ShouldBeNil)

			Convey("Then seasons include the old default and the new one", func() {
				seasons, err := svc.Seasons(ctx)
				So(err, ShouldBeNil)
				So(seasons.Current, ShouldEqual, 2)
				So(seasons.Available, ShouldResemble, []int{2})
			})

			Convey("Then an invalid season is refused", func() {
				err := svc.SetCurrentSeason(ctx, 0)
				So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestService_Idempotency(t *testing.T) {
	Convey("Given a running service with two players", t, func() {
		ctx := context.Background()
		svc := newService(t)
		ana, _ := svc.RegisterPlayer(ctx, "ana")
		ben, _ := svc.RegisterPlayer(ctx, "ben")
		req := ledger.RecordRequest{Player1ID: ana.ID, Player2ID: ben.ID, Score1: 11, Score2: 9}

		Convey("When the same keyed request is sent twice", func() {
			first, replayed, err := svc.RecordMatch(ctx, req, "k1")
			So(err, ShouldBeNil)
			So(replayed, ShouldBeFalse)

			second, replayed, err := svc.RecordMatch(ctx, req, "k1")

			Convey("Then the second is answered from the cache", func() {
				So(err, ShouldBeNil)
				So(replayed, ShouldBeTrue)
				So(second.ID, ShouldEqual, first.ID)

				history, err := svc.MatchHistory(ctx, 0)
				So(err, ShouldBeNil)
				So(history, ShouldHaveLength, 1)
			})
		})

		Convey("When the key is reused with another body", func() {
			_, _, err := svc.RecordMatch(ctx, req, "k2")
			So(err, ShouldBeNil)
			other := req
			other.Score2 = 3
			_, _, err = svc.RecordMatch(ctx, other, "k2")

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the caller cancels a keyed request", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			first, _, err := svc.RecordMatch(cancelled, req, "k4")
			So(err, ShouldBeNil)

			Convey("Then a retry with the key replays the committed match", func() {
				again, replayed, err := svc.RecordMatch(ctx, req, "k4")
				So(err, ShouldBeNil)
				So(replayed, ShouldBeTrue)
				So(again.ID, ShouldEqual, first.ID)

				history, err := svc.MatchHistory(ctx, 0)
				So(err, ShouldBeNil)
				So(history, ShouldHaveLength, 1)
			})
		})

		Convey("When a keyed request fails", func() {
			bad := req
			bad.Score2 = 11
			_, _, err := svc.RecordMatch(ctx, bad, "k3")
			So(errors.Is(err, ledger.ErrValidation), ShouldBeTrue)

			Convey("Then the key can be used again", func() {
				bad.Score2 = 4
				_, replayed, err := svc.RecordMatch(ctx, bad, "k3")
				So(err, ShouldBeNil)
				So(replayed, ShouldBeFalse)
			})
		})
	})
}
