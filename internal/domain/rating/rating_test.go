package rating_test

import (
	"math"
	"testing"

	"github.com/okian/rally/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func TestDefaultBelief(t *testing.T) {
	Convey("Given the prior", t, func() {
		b := rating.DefaultBelief()

		Convey("Then it is (25, 25/3)", func() {
			So(b.Mu, ShouldEqual, 25.0)
			So(b.Sigma, ShouldAlmostEqual, 8.333333333, 1e-8)
			So(b.Conservative(), ShouldAlmostEqual, 0, eps)
			So(b.Valid(), ShouldBeTrue)
		})
	})
}

func TestUpdate(t *testing.T) {
	Convey("Given two new players", t, func() {
		a, b := rating.DefaultBelief(), rating.DefaultBelief()

		Convey("When A beats B", func() {
			na, nb := rating.Update(a, b)

			Convey("Then A rises, B falls and both grow more certain", func() {
				So(na.Mu, ShouldBeGreaterThan, 25.0)
				So(nb.Mu, ShouldBeLessThan, 25.0)
				So(na.Sigma, ShouldBeLessThan, rating.InitialSigma)
				So(nb.Sigma, ShouldBeLessThan, rating.InitialSigma)
			})

			Convey("Then the posterior matches the closed form", func() {
				So(na.Mu, ShouldAlmostEqual, 29.205473176557785, eps)
				So(nb.Mu, ShouldAlmostEqual, 20.794526823442215, eps)
				So(na.Sigma, ShouldAlmostEqual, 7.194816484813345, eps)
				So(nb.Sigma, ShouldAlmostEqual, 7.194816484813345, eps)
			})

			Convey("Then the update is symmetric around the shared prior", func() {
				So(na.Mu-25, ShouldAlmostEqual, 25-nb.Mu, eps)
			})
		})

		Convey("When the same update runs twice", func() {
			x1, y1 := rating.Update(a, b)
			x2, y2 := rating.Update(a, b)

			Convey("Then results are bit-identical", func() {
				So(x1, ShouldResemble, x2)
				So(y1, ShouldResemble, y2)
			})
		})
	})

	Convey("Given a huge skill gap", t, func() {
		strong := rating.Belief{Mu: 60, Sigma: 1}
		weak := rating.Belief{Mu: 0, Sigma: 1}

		Convey("When the favourite wins", func() {
			ns, nw := rating.Update(strong, weak)

			Convey("Then almost nothing moves", func() {
				So(ns.Mu, ShouldAlmostEqual, 60, 1e-9)
				So(nw.Mu, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When the underdog wins", func() {
			nw, ns := rating.Update(weak, strong)

			Convey("Then the beliefs move a lot and stay finite", func() {
				So(nw.Mu, ShouldAlmostEqual, 1.6610686436781326, 1e-6)
				So(ns.Mu, ShouldAlmostEqual, 58.338931356321865, 1e-6)
				So(nw.Valid(), ShouldBeTrue)
				So(ns.Valid(), ShouldBeTrue)
			})
		})

		Convey("When the gap is beyond float range of the normal cdf", func() {
			nw, ns := rating.Update(rating.Belief{Mu: -5000, Sigma: 1}, rating.Belief{Mu: 5000, Sigma: 1})

			Convey("Then the tail approximation keeps values finite", func() {
				So(nw.Valid(), ShouldBeTrue)
				So(ns.Valid(), ShouldBeTrue)
				So(nw.Mu, ShouldBeGreaterThan, -5000)
				So(ns.Mu, ShouldBeLessThan, 5000)
			})
		})
	})

	Convey("Given a nearly certain player", t, func() {
		sure := rating.Belief{Mu: 25, Sigma: 1e-9}

		Convey("When updated many times", func() {
			b := sure
			other := rating.DefaultBelief()
			for i := 0; i < 1000; i++ {
				b, other = rating.Update(b, other)
			}

			Convey("Then sigma stays strictly positive", func() {
				So(b.Sigma, ShouldBeGreaterThan, 0)
				So(math.IsNaN(b.Mu), ShouldBeFalse)
			})
		})
	})
}

func TestReplay(t *testing.T) {
	Convey("Given players 1, 2 and 3", t, func() {
		prior := rating.DefaultBelief()
		m1 := rating.Outcome{Winner: 1, Loser: 2}
		m2 := rating.Outcome{Winner: 3, Loser: 1}

		Convey("When the same outcomes are applied in swapped order", func() {
			forward := rating.Replay(prior, nil, []rating.Outcome{m1, m2})
			backward := rating.Replay(prior, nil, []rating.Outcome{m2, m1})

			Convey("Then final beliefs diverge", func() {
				So(forward.Beliefs[1].Mu, ShouldAlmostEqual, 24.960520823553516, eps)
				So(backward.Beliefs[1].Mu, ShouldAlmostEqual, 25.039479176446484, eps)
				So(forward.Beliefs[2], ShouldNotResemble, backward.Beliefs[2])
				So(forward.Beliefs[3], ShouldNotResemble, backward.Beliefs[3])
			})
		})

		Convey("When replaying with a seed", func() {
			res := rating.Replay(prior, []int64{1, 2, 3, 4}, []rating.Outcome{m1})

			Convey("Then idle seeded players keep the prior", func() {
				So(res.Beliefs[3], ShouldResemble, prior)
				So(res.Beliefs[4], ShouldResemble, prior)
				So(len(res.Beliefs), ShouldEqual, 4)
			})

			Convey("Then steps hold pre-match beliefs", func() {
				So(len(res.Steps), ShouldEqual, 1)
				So(res.Steps[0].WinnerBefore, ShouldResemble, prior)
				So(res.Steps[0].LoserBefore, ShouldResemble, prior)
			})
		})

		Convey("When replay is folded step by step", func() {
			outcomes := []rating.Outcome{m1, m2, {Winner: 2, Loser: 3}, {Winner: 1, Loser: 3}}
			res := rating.Replay(prior, nil, outcomes)

			b := map[int64]rating.Belief{1: prior, 2: prior, 3: prior}
			for _, o := range outcomes {
				b[o.Winner], b[o.Loser] = rating.Update(b[o.Winner], b[o.Loser])
			}

			Convey("Then it equals applying Update in sequence", func() {
				for id, want := range b {
					So(res.Beliefs[id], ShouldResemble, want)
				}
			})
		})
	})
}
