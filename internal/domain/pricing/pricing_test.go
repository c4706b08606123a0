package pricing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/okian/squad/internal/domain/model"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func mustModel(p Params) *Model {
	m, err := New(p)
	if err != nil {
		panic(err)
	}
	return m
}

func TestUpdatePriceScenarios(t *testing.T) {
	Convey("Given the default price model", t, func() {
		m := mustModel(DefaultParams())

		Convey("When a defender at 6.0 receives 80 transfers in and none out", func() {
			a := model.Athlete{
				ID: "d1", Position: model.Defender, Price: d("6.0"),
				TransfersIn: 80, MatchesPlayed: 4, PointsTotal: 16, PointsHistory: []int{4, 4},
			}
			out := m.UpdatePrice(a)

			Convey("Then the price rises by the smoothed demand share", func() {
				So(out.Price.Equal(d("6.4")), ShouldBeTrue)
				So(out.Price.Sub(a.Price).LessThanOrEqual(DefaultParams().WeeklyMaxChange), ShouldBeTrue)
				So(m.OnGrid(out.Price), ShouldBeTrue)
			})

			Convey("And the transfer counters are reset", func() {
				So(out.TransfersIn, ShouldEqual, 0)
				So(out.TransfersOut, ShouldEqual, 0)
				So(out.PrevDemandDelta.Equal(d("0.6")), ShouldBeTrue)
				So(out.PrevPerfDelta.IsZero(), ShouldBeTrue)
			})

			Convey("And the input is not mutated", func() {
				So(a.TransfersIn, ShouldEqual, 80)
				So(a.Price.Equal(d("6.0")), ShouldBeTrue)
			})
		})

		Convey("When net transfers are zero and form equals baseline", func() {
			a := model.Athlete{ID: "m1", Price: d("7.5"), MatchesPlayed: 5, PointsTotal: 20, PointsHistory: []int{4, 4, 4}}

			Convey("Then the price is a fixed point", func() {
				So(m.UpdatePrice(a).Price.Equal(d("7.5")), ShouldBeTrue)
			})
		})

		Convey("When an athlete has never played", func() {
			a := model.Athlete{ID: "new", Price: d("5.5"), TransfersIn: 500}

			Convey("Then demand is ignored and the neutral baseline keeps the price", func() {
				So(m.UpdatePrice(a).Price.Equal(d("5.5")), ShouldBeTrue)
			})
		})

		Convey("When the hybrid delta exceeds the weekly maximum", func() {
			a := model.Athlete{ID: "f1", Price: d("10.0"), TransfersIn: 100000, MatchesPlayed: 3, PointsTotal: 3}

			Convey("Then the move is clamped", func() {
				q := m.Quote(a)
				So(q.Applied.Equal(d("1.4")), ShouldBeTrue)
				So(q.Next.Equal(d("11.4")), ShouldBeTrue)
				So(q.Direction(), ShouldEqual, "up")
			})
		})

		Convey("When a cheap athlete is sold heavily", func() {
			a := model.Athlete{ID: "c1", Price: d("5.1"), TransfersOut: 5000, MatchesPlayed: 10, PointsTotal: 10}

			Convey("Then the price stops at the floor", func() {
				So(m.UpdatePrice(a).Price.Equal(d("5.0")), ShouldBeTrue)
			})
		})

		Convey("When recent form is well above baseline with one match played", func() {
			a := model.Athlete{ID: "s1", Price: d("8.0"), MatchesPlayed: 1, PointsTotal: 15, PointsHistory: []int{15}}
			q := m.Quote(a)

			Convey("Then only the performance signal moves the price", func() {
				// perf raw = 0.1 * (15 - 5) = 1.0, smoothed by 0.7
				So(q.Perf.Equal(d("0.7")), ShouldBeTrue)
				So(q.Hybrid.Equal(q.Perf), ShouldBeTrue)
				So(q.Next.Equal(d("8.7")), ShouldBeTrue)
			})
		})
	})
}

func TestPriceInvariants(t *testing.T) {
	Convey("Given random athletes", t, func() {
		m := mustModel(DefaultParams())
		rng := rand.New(rand.NewSource(7))

		Convey("Then every updated price is within bounds and on the grid", func() {
			for i := 0; i < 500; i++ {
				hist := make([]int, rng.Intn(6))
				for j := range hist {
					hist[j] = rng.Intn(25) - 3
				}
				a := model.Athlete{
					Price:           decimal.NewFromFloat(3 + rng.Float64()*20),
					TransfersIn:     rng.Intn(400),
					TransfersOut:    rng.Intn(400),
					MatchesPlayed:   rng.Intn(30),
					PointsTotal:     rng.Intn(200),
					PointsHistory:   hist,
					PrevDemandDelta: decimal.NewFromFloat(rng.Float64() - 0.5),
					PrevPerfDelta:   decimal.NewFromFloat(rng.Float64() - 0.5),
				}
				p := m.UpdatePrice(a).Price
				So(p.GreaterThanOrEqual(d("5.0")), ShouldBeTrue)
				So(p.LessThanOrEqual(d("18.0")), ShouldBeTrue)
				So(m.OnGrid(p), ShouldBeTrue)
			}
		})

		Convey("Then rounding is idempotent", func() {
			for i := 0; i < 200; i++ {
				v := decimal.NewFromFloat(rng.Float64() * 20)
				once := m.Round(v)
				So(m.Round(once).Equal(once), ShouldBeTrue)
			}
		})

		Convey("Then halves round up", func() {
			So(m.Round(d("6.35")).Equal(d("6.4")), ShouldBeTrue)
			So(m.Round(d("6.349")).Equal(d("6.3")), ShouldBeTrue)
		})
	})
}

func TestPushHistory(t *testing.T) {
	Convey("Given a short history length", t, func() {
		p := DefaultParams()
		p.HistoryLength = 3
		m := mustModel(p)

		Convey("When pushing onto a full history", func() {
			got := m.PushHistory([]int{3, 2, 1}, 9)

			Convey("Then the newest is first and the oldest drops", func() {
				So(got, ShouldResemble, []int{9, 3, 2})
			})
		})

		Convey("When pushing onto nil", func() {
			So(m.PushHistory(nil, 0), ShouldResemble, []int{0})
		})
	})
}

func TestParamsValidate(t *testing.T) {
	Convey("Given malformed params", t, func() {
		p := DefaultParams()
		p.Unit = decimal.Zero
		p.AlphaDemand = d("1.5")
		p.Lookback = 0

		Convey("Then New reports ErrInvalidParams with every reason", func() {
			_, err := New(p)
			So(errors.Is(err, ErrInvalidParams), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "unit must be positive")
			So(err.Error(), ShouldContainSubstring, "alpha_demand")
			So(err.Error(), ShouldContainSubstring, "lookback")
		})

		Convey("Then off-grid bounds are rejected", func() {
			q := DefaultParams()
			q.Min = d("5.05")
			So(q.Validate(), ShouldNotBeNil)
		})
	})
}
