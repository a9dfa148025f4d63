package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/rally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var errBoom = errors.New("boom")

func openMemory(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedPlayers(ctx context.Context, s *SQLStore, names ...string) []model.Player {
	var out []model.Player
	So(s.Update(ctx, func(tx Tx) error {
		for _, n := range names {
			p, err := tx.InsertPlayer(ctx, model.Player{Name: n, Mu: 25, Sigma: 25.0 / 3, UpdatedAt: time.Unix(100, 0)})
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	}), ShouldBeNil)
	return out
}

func TestOpen(t *testing.T) {
	Convey("Given driver names", t, func() {
		ctx := context.Background()

		Convey("When the driver is unknown", func() {
			_, err := Open(ctx, "oracle", "x")

			Convey("Then ErrUnsupportedDriver is returned", func() {
				So(errors.Is(err, ErrUnsupportedDriver), ShouldBeTrue)
			})
		})

		Convey("When sqlite in memory is opened", func() {
			s := openMemory(t)

			Convey("Then it pings", func() {
				So(s.Ping(ctx), ShouldBeNil)
				So(s.Driver(), ShouldEqual, DriverSQLite)
			})
		})
	})
}

func TestSQLiteConnections(t *testing.T) {
	Convey("Given sqlite DSNs", t, func() {
		Convey("Then pragmas are appended for every new connection", func() {
			So(sqliteDSN(":memory:"), ShouldEqual, ":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
			So(sqliteDSN("file:rally.db?cache=shared"), ShouldEqual,
				"file:rally.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
			So(sqliteDSN("rally.db?_pragma=busy_timeout(100)"), ShouldEqual,
				"rally.db?_pragma=busy_timeout(100)&_pragma=foreign_keys(1)")
		})
	})

	Convey("Given a file store whose pool never reuses a connection", t, func() {
		ctx := context.Background()
		s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "rally.db"))
		So(err, ShouldBeNil)
		defer s.Close()
		s.db.SetMaxIdleConns(0)

		Convey("Then each fresh connection enforces foreign keys", func() {
			for i := 0; i < 3; i++ {
				var on int
				So(s.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&on), ShouldBeNil)
				So(on, ShouldEqual, 1)
			}
		})
	})
}

func TestRebind(t *testing.T) {
	Convey("Given a query with placeholders", t, func() {
		q := `SELECT a FROM t WHERE x = ? AND y = ?`

		Convey("Then sqlite keeps them and postgres numbers them", func() {
			So(dialects[DriverSQLite].rebind(q), ShouldEqual, q)
			So(dialects[DriverPostgres].rebind(q), ShouldEqual, `SELECT a FROM t WHERE x = $1 AND y = $2`)
		})
	})
}

func TestPlayers(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := openMemory(t)

		Convey("When players are inserted", func() {
			ps := seedPlayers(ctx, s, "ann", "bob")

			Convey("Then they get ids and can be read back", func() {
				So(ps[0].ID, ShouldBeLessThan, ps[1].ID)
				So(s.View(ctx, func(r Reader) error {
					p, err := r.PlayerByName(ctx, "bob")
					So(err, ShouldBeNil)
					So(p.ID, ShouldEqual, ps[1].ID)
					So(p.UpdatedAt.Equal(time.Unix(100, 0)), ShouldBeTrue)

					all, err := r.Players(ctx)
					So(err, ShouldBeNil)
					So(len(all), ShouldEqual, 2)

					n, err := r.CountPlayers(ctx)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 2)
					return nil
				}), ShouldBeNil)
			})

			Convey("Then a duplicate name is rejected", func() {
				err := s.Update(ctx, func(tx Tx) error {
					_, err := tx.InsertPlayer(ctx, model.Player{Name: "ann", Mu: 1, Sigma: 1})
					return err
				})
				So(errors.Is(err, ErrDuplicate), ShouldBeTrue)
			})

			Convey("Then unknown ids are not found", func() {
				err := s.View(ctx, func(r Reader) error {
					_, err := r.Player(ctx, 999)
					return err
				})
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)

				err = s.Update(ctx, func(tx Tx) error { return tx.UpdatePlayer(ctx, model.Player{ID: 999}) })
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestMatchesAndCascade(t *testing.T) {
	Convey("Given three players and some matches", t, func() {
		ctx := context.Background()
		s := openMemory(t)
		ps := seedPlayers(ctx, s, "a", "b", "c")
		base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		var ms []model.Match
		So(s.Update(ctx, func(tx Tx) error {
			for i, m := range []model.Match{
				{Player1ID: ps[0].ID, Player2ID: ps[1].ID, Score1: 11, Score2: 3, PlayedAt: base.Add(time.Hour), Season: 1},
				{Player1ID: ps[1].ID, Player2ID: ps[2].ID, Score1: 5, Score2: 11, PlayedAt: base, Season: 1},
				{Player1ID: ps[2].ID, Player2ID: ps[0].ID, Score1: 11, Score2: 9, PlayedAt: base.Add(time.Hour), Season: 2},
			} {
				saved, err := tx.InsertMatch(ctx, m)
				if err != nil {
					return err
				}
				ms = append(ms, saved)
				if err := tx.PutSnapshot(ctx, model.Snapshot{PlayerID: m.Player1ID, MatchID: saved.ID, Mu: float64(i), Sigma: 1}); err != nil {
					return err
				}
			}
			return tx.PutMatchup(ctx, model.Matchup{PlayerA: ps[0].ID, PlayerB: ps[1].ID, MatchesPlayed: 1, WinsA: 1})
		}), ShouldBeNil)

		Convey("Then matches come back in replay order", func() {
			So(s.View(ctx, func(r Reader) error {
				all, err := r.Matches(ctx)
				So(err, ShouldBeNil)
				So([]int64{all[0].ID, all[1].ID, all[2].ID}, ShouldResemble, []int64{ms[1].ID, ms[0].ID, ms[2].ID})

				latest, err := r.LatestMatch(ctx)
				So(err, ShouldBeNil)
				So(latest.ID, ShouldEqual, ms[2].ID)

				recent, err := r.RecentMatches(ctx, 2)
				So(err, ShouldBeNil)
				So(len(recent), ShouldEqual, 2)
				So(recent[0].ID, ShouldEqual, ms[2].ID)

				window, err := r.MatchesBetween(ctx, base, base)
				So(err, ShouldBeNil)
				So(len(window), ShouldEqual, 1)

				seasons, err := r.Seasons(ctx)
				So(err, ShouldBeNil)
				So(seasons, ShouldResemble, []int{1, 2})

				s2, err := r.MatchesInSeason(ctx, 2)
				So(err, ShouldBeNil)
				So(len(s2), ShouldEqual, 1)
				So(s2[0].PlayedAt.Equal(base.Add(time.Hour)), ShouldBeTrue)
				return nil
			}), ShouldBeNil)
		})

		Convey("Then a matchup can be read in either order", func() {
			So(s.View(ctx, func(r Reader) error {
				m, err := r.Matchup(ctx, ps[1].ID, ps[0].ID)
				So(err, ShouldBeNil)
				So(m.PlayerA, ShouldEqual, ps[0].ID)
				So(m.WinsA, ShouldEqual, 1)

				_, err = r.Matchup(ctx, ps[1].ID, ps[2].ID)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				return nil
			}), ShouldBeNil)
		})

		Convey("When a snapshot is written twice", func() {
			So(s.Update(ctx, func(tx Tx) error {
				return tx.PutSnapshot(ctx, model.Snapshot{PlayerID: ps[0].ID, MatchID: ms[0].ID, Mu: 42, Sigma: 2})
			}), ShouldBeNil)

			Convey("Then the last value wins", func() {
				So(s.View(ctx, func(r Reader) error {
					sn, err := r.Snapshot(ctx, ps[0].ID, ms[0].ID)
					So(err, ShouldBeNil)
					So(sn.Mu, ShouldEqual, 42.0)
					return nil
				}), ShouldBeNil)
			})
		})

		Convey("When a match is deleted", func() {
			So(s.Update(ctx, func(tx Tx) error { return tx.DeleteMatch(ctx, ms[0].ID) }), ShouldBeNil)

			Convey("Then its snapshots go with it", func() {
				So(s.View(ctx, func(r Reader) error {
					snaps, err := r.SnapshotsForMatch(ctx, ms[0].ID)
					So(err, ShouldBeNil)
					So(len(snaps), ShouldEqual, 0)
					return nil
				}), ShouldBeNil)
			})
		})

		Convey("When a player is deleted", func() {
			So(s.Update(ctx, func(tx Tx) error { return tx.DeletePlayer(ctx, ps[0].ID) }), ShouldBeNil)

			Convey("Then their matches, matchups and snapshots cascade", func() {
				So(s.View(ctx, func(r Reader) error {
					all, err := r.Matches(ctx)
					So(err, ShouldBeNil)
					So(len(all), ShouldEqual, 1)
					So(all[0].ID, ShouldEqual, ms[1].ID)

					mus, err := r.Matchups(ctx)
					So(err, ShouldBeNil)
					So(len(mus), ShouldEqual, 0)

					snaps, err := r.SnapshotsFor(ctx, ps[0].ID)
					So(err, ShouldBeNil)
					So(len(snaps), ShouldEqual, 0)
					return nil
				}), ShouldBeNil)
			})
		})
	})
}

func TestTransactions(t *testing.T) {
	Convey("Given a store with a setting", t, func() {
		ctx := context.Background()
		s := openMemory(t)
		seedPlayers(ctx, s, "a")
		So(s.Update(ctx, func(tx Tx) error { return tx.PutSetting(ctx, "current_season", "3") }), ShouldBeNil)

		Convey("When the write function fails", func() {
			err := s.Update(ctx, func(tx Tx) error {
				if _, err := tx.InsertPlayer(ctx, model.Player{Name: "b", Mu: 1, Sigma: 1}); err != nil {
					return err
				}
				return errBoom
			})

			Convey("Then nothing is committed", func() {
				So(errors.Is(err, errBoom), ShouldBeTrue)
				So(s.View(ctx, func(r Reader) error {
					n, err := r.CountPlayers(ctx)
					So(n, ShouldEqual, 1)
					return err
				}), ShouldBeNil)
			})
		})

		Convey("When everything is cleared", func() {
			So(s.Update(ctx, func(tx Tx) error { return tx.Clear(ctx) }), ShouldBeNil)

			Convey("Then players are gone and settings stay", func() {
				So(s.View(ctx, func(r Reader) error {
					n, err := r.CountPlayers(ctx)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 0)

					v, err := r.Setting(ctx, "current_season")
					So(err, ShouldBeNil)
					So(v, ShouldEqual, "3")

					_, err = r.Setting(ctx, "missing")
					So(errors.Is(err, ErrNotFound), ShouldBeTrue)
					return nil
				}), ShouldBeNil)
			})
		})
	})
}
