package loadtest

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/okian/rally/internal/adapters/http/api"
	"github.com/okian/rally/internal/adapters/repository"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func newServer(t *testing.T, opts ...api.Option) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	store, err := repository.Open(ctx, repository.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := service.New(store)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv := httptest.NewServer(api.NewServer(svc, opts...).Router(ctx))
	t.Cleanup(func() {
		srv.Close()
		_ = svc.Stop(context.Background())
		_ = store.Close()
	})
	return srv
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.BaseURL = url
	cfg.Players = 6
	cfg.Matches = 40
	cfg.Workers = 4
	cfg.RetryRatio = 0.25
	cfg.Timeout = 5 * time.Second
	cfg.Backoff = 5 * time.Millisecond
	return cfg
}

func TestRun(t *testing.T) {
	Convey("Given a ladder service without a practical rate limit", t, func() {
		srv := newServer(t, api.WithRateLimit(10_000, 10_000))

		Convey("When the load test runs", func() {
			stats, err := Run(context.Background(), testConfig(srv.URL), nil)

			Convey("Then every planned match is recorded and retries replay", func() {
				So(err, ShouldBeNil)
				So(stats.PlayersRegistered, ShouldEqual, 6)
				So(stats.MatchesRecorded, ShouldEqual, 40)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.LadderEntries, ShouldEqual, 6)
				So(stats.Replays, ShouldBeLessThanOrEqualTo, 40)
			})
		})
	})

	Convey("Given a service with a tight rate limit", t, func() {
		srv := newServer(t, api.WithRateLimit(100, 1))
		cfg := testConfig(srv.URL)
		cfg.Matches = 10
		cfg.MaxAttempts = 50

		Convey("When the load test runs", func() {
			stats, err := Run(context.Background(), cfg, nil)

			Convey("Then refused requests are retried until accepted", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesRecorded, ShouldEqual, 10)
				So(stats.RateLimited, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given an unusable config", t, func() {
		cfg := DefaultConfig()
		cfg.Players = 1
		_, err := Run(context.Background(), cfg, nil)
		So(errors.Is(err, ErrConfig), ShouldBeTrue)
	})

	Convey("Given no service listening", t, func() {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.Timeout = time.Second
		_, err := Run(context.Background(), cfg, nil)
		So(err, ShouldNotBeNil)
	})
}

func TestPlan(t *testing.T) {
	Convey("Given a seeded faker", t, func() {
		faker := gofakeit.New(42)

		Convey("Then names are distinct", func() {
			names := playerNames(faker, 50)
			seen := map[string]bool{}
			for _, n := range names {
				So(seen[n], ShouldBeFalse)
				seen[n] = true
			}
		})

		Convey("Then planned matches are decided games between two players", func() {
			for _, pm := range planMatches(faker, 3, 200, 0.5) {
				So(pm.P1, ShouldNotEqual, pm.P2)
				So(pm.P1, ShouldBeBetweenOrEqual, 0, 2)
				So(pm.P2, ShouldBeBetweenOrEqual, 0, 2)
				So(pm.Score1, ShouldNotEqual, pm.Score2)
				So(max(pm.Score1, pm.Score2), ShouldBeGreaterThanOrEqualTo, gamePoint)
				So(pm.Key, ShouldNotBeEmpty)
			}
		})
	})
}

func TestChecks(t *testing.T) {
	Convey("Given ladder and totals checks", t, func() {
		ok := []types.LadderEntry{{Rank: 1, Conservative: 3}, {Rank: 2, Conservative: 1}}
		So(checkLadder(ok, 2), ShouldBeNil)
		So(errors.Is(checkLadder(ok, 3), ErrMismatch), ShouldBeTrue)
		So(errors.Is(checkLadder([]types.LadderEntry{{Rank: 1, Conservative: 1}, {Rank: 2, Conservative: 3}}, 2), ErrMismatch), ShouldBeTrue)
		So(errors.Is(checkLadder([]types.LadderEntry{{Rank: 2}}, 1), ErrMismatch), ShouldBeTrue)

		table := []types.WinLossEntry{{Played: 2, Wins: 2}, {Played: 2, Losses: 2}}
		So(checkTotals(table, 2), ShouldBeNil)
		So(errors.Is(checkTotals(table, 3), ErrMismatch), ShouldBeTrue)
		So(errors.Is(checkTotals([]types.WinLossEntry{{Played: 1, Wins: 1}}, 1), ErrMismatch), ShouldBeTrue)
	})
}
