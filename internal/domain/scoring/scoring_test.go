package scoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/okian/squad/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCalculatePoints(t *testing.T) {
	Convey("Given the default calculator", t, func() {
		c, err := New()
		So(err, ShouldBeNil)
		table := c.Table()

		Convey("When a forward scores twice, takes a tier-1 card, wins and is man of the match", func() {
			r := model.MatchEventReport{
				AthleteID: "f1", Goals: 2, Cards: [model.CardTiers]int{1, 0, 0},
				Result: model.ResultWin, ManOfTheMatch: true,
			}
			got := c.CalculatePoints(model.Forward, r)

			Convey("Then the total matches the table exactly", func() {
				want := 2*table.Goal[model.Forward] + table.Cards[0] + table.Win + table.ManOfTheMatch
				So(got, ShouldEqual, want)
				So(got, ShouldEqual, 13)
			})
		})

		Convey("When a keeper keeps a clean sheet in a draw", func() {
			b := c.Breakdown(model.Keeper, model.MatchEventReport{CleanSheet: true, Result: model.ResultDraw})

			Convey("Then clean sheet and draw points are itemized", func() {
				So(b.CleanSheet, ShouldEqual, 6)
				So(b.Result, ShouldEqual, 1)
				So(b.Total, ShouldEqual, 7)
			})
		})

		Convey("When a forward keeps a clean sheet", func() {
			Convey("Then it is worth nothing", func() {
				So(c.CalculatePoints(model.Forward, model.MatchEventReport{CleanSheet: true}), ShouldEqual, 0)
			})
		})

		Convey("When outfield players and a keeper each make an assist", func() {
			r := model.MatchEventReport{Assists: 1}

			Convey("Then outfielders earn the assist value and the keeper nothing", func() {
				So(c.CalculatePoints(model.Defender, r), ShouldEqual, 3)
				So(c.CalculatePoints(model.Midfielder, r), ShouldEqual, 3)
				So(c.Breakdown(model.Forward, model.MatchEventReport{Assists: 2}).Assists, ShouldEqual, 6)
				So(c.CalculatePoints(model.Keeper, r), ShouldEqual, 0)
			})
		})

		Convey("When a defender collects cards of every tier", func() {
			r := model.MatchEventReport{Cards: [model.CardTiers]int{2, 1, 1}, Result: model.ResultLoss}

			Convey("Then tiers add up", func() {
				So(c.CalculatePoints(model.Defender, r), ShouldEqual, -2-2-3)
			})
		})

		Convey("Then goal values grow toward the back line", func() {
			So(table.Goal[model.Forward], ShouldBeLessThan, table.Goal[model.Midfielder])
			So(table.Goal[model.Midfielder], ShouldBeLessThan, table.Goal[model.Defender])
		})

		Convey("Then concurrent scoring is safe", func() {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = c.CalculatePoints(model.Midfielder, model.MatchEventReport{Goals: 1})
				}()
			}
			wg.Wait()
		})
	})
}

func TestCalculatorOptions(t *testing.T) {
	Convey("Given a calculator with an overridden goal value", t, func() {
		c, err := New(WithGoalValue(model.Defender, 8))
		So(err, ShouldBeNil)

		Convey("Then the override is used and the default table is untouched", func() {
			So(c.CalculatePoints(model.Defender, model.MatchEventReport{Goals: 1}), ShouldEqual, 8)
			So(DefaultTable().Goal[model.Defender], ShouldEqual, 6)
		})
	})

	Convey("Given an invalid table", t, func() {
		bad := DefaultTable()
		bad.Cards[1] = 2
		bad.Draw = 5
		delete(bad.Goal, model.Keeper)

		Convey("Then New fails with ErrInvalidTable", func() {
			_, err := New(WithTable(bad))
			So(errors.Is(err, ErrInvalidTable), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "card tier 2")
			So(err.Error(), ShouldContainSubstring, "goal value missing for GK")
		})
	})

	Convey("Given a table where forwards and midfielders score alike", t, func() {
		flat := DefaultTable()
		flat.Goal[model.Forward] = flat.Goal[model.Midfielder]

		Convey("Then it is rejected", func() {
			err := flat.Validate()
			So(errors.Is(err, ErrInvalidTable), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "goal values must rise strictly")
		})
	})

	Convey("Given a table paying forwards for clean sheets", t, func() {
		paid := DefaultTable()
		paid.CleanSheet[model.Forward] = 1

		Convey("Then it is rejected", func() {
			err := paid.Validate()
			So(errors.Is(err, ErrInvalidTable), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "clean sheet value for FWD must be zero")
		})
	})

	Convey("Given a table without assist values", t, func() {
		bare := DefaultTable()
		bare.Assist = nil

		Convey("Then every position is reported missing", func() {
			err := bare.Validate()
			So(errors.Is(err, ErrInvalidTable), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "assist value missing for MID")
		})
	})
}
