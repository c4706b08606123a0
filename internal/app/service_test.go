package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/squad/internal/adapters/repository"
	service "github.com/okian/squad/internal/app"
	"github.com/okian/squad/internal/domain/model"
	"github.com/okian/squad/internal/domain/roster"
	"github.com/okian/squad/internal/domain/transfer"
	"github.com/okian/squad/pkg/logger"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var deadline = time.Date(2025, 9, 6, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// catalog is an eleven at 8.0 over four teams plus 6.0 spares on a fifth.
func catalog() ([]model.Athlete, []string) {
	layout := []model.Position{
		model.Keeper,
		model.Defender, model.Defender, model.Defender, model.Defender,
		model.Midfielder, model.Midfielder, model.Midfielder,
		model.Forward, model.Forward, model.Forward,
	}
	var athletes []model.Athlete
	var eleven []string
	for i, p := range layout {
		id := fmt.Sprintf("p%02d", i)
		athletes = append(athletes, model.Athlete{ID: id, Name: id, Team: fmt.Sprintf("Men%d", i%4+1), Position: p, Price: dec("8.0")})
		eleven = append(eleven, id)
	}
	for i, p := range []model.Position{model.Defender, model.Midfielder, model.Forward} {
		id := fmt.Sprintf("s%d", i)
		athletes = append(athletes, model.Athlete{ID: id, Name: id, Team: "Men5", Position: p, Price: dec("6.0")})
	}
	return athletes, eleven
}

func swap(ids []string, pairs map[string]string) []string {
	out := append([]string(nil), ids...)
	for i, id := range out {
		if to, ok := pairs[id]; ok {
			out[i] = to
		}
	}
	return out
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func started(opts ...service.Option) (*service.Service, []string) {
	svc, err := service.New(opts...)
	So(err, ShouldBeNil)
	So(svc.Start(context.Background()), ShouldBeNil)
	athletes, eleven := catalog()
	So(svc.UpsertAthletes(context.Background(), athletes), ShouldBeNil)
	return svc, eleven
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc, err := service.New()

		Convey("Then it should be created but not started", func() {
			So(err, ShouldBeNil)
			So(svc.Started(), ShouldBeFalse)
			_, err := svc.Athletes(context.Background())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given inconsistent squad rules", t, func() {
		rules := roster.DefaultRules()
		rules.SquadSize = 12

		_, err := service.New(service.WithRosterRules(rules))

		Convey("Then construction fails", func() {
			So(errors.Is(err, roster.ErrInvalidRules), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, err := service.New(service.WithWorkerCount(2))
		So(err, ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then stats report it running", func() {
			st := svc.GetStats(context.Background())
			So(st.Started, ShouldBeTrue)
			So(st.Workers, ShouldEqual, 2)
			svc.Stop()
		})

		Convey("When stopping twice", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it is stopped", func() {
				So(svc.Started(), ShouldBeFalse)
				So(svc.GetStats(context.Background()).Started, ShouldBeFalse)
			})
		})
	})
}

func TestService_Commit(t *testing.T) {
	Convey("Given a service with an open window", t, func() {
		ctx := context.Background()
		svc, eleven := started()
		defer svc.Stop()

		first := model.RosterDraft{ManagerID: "m1", AthleteIDs: eleven, CaptainID: "p08"}

		Convey("When a first squad is committed", func() {
			res, err := svc.CommitTransfer(ctx, first)

			Convey("Then the ledger is created with the remaining budget", func() {
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeTrue)
				So(res.Receipt, ShouldNotBeEmpty)
				So(res.Ledger.Version, ShouldEqual, 1)
				So(res.Ledger.Bank.Equal(dec("12.0")), ShouldBeTrue)
				So(res.Ledger.FreeTransfers, ShouldEqual, 1)

				a, err := svc.Athlete(ctx, "p00")
				So(err, ShouldBeNil)
				So(a.TransfersIn, ShouldEqual, 1)
			})

			Convey("And pre-deadline swaps are free", func() {
				next := first
				next.AthleteIDs = swap(eleven, map[string]string{"p01": "s0", "p05": "s1"})
				next.BaseVersion = 1

				res, err := svc.CommitTransfer(ctx, next)
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeTrue)
				So(res.Plan.Transfers, ShouldEqual, 2)
				So(res.Plan.PenaltyPoints, ShouldEqual, 0)
				So(res.Ledger.Bank.Equal(dec("16.0")), ShouldBeTrue)
				So(res.Ledger.FreeTransfers, ShouldEqual, 1)
			})

			Convey("And a draft built on an old version conflicts", func() {
				stale := first
				stale.CaptainID = "p09"
				stale.BaseVersion = 7

				_, err := svc.CommitTransfer(ctx, stale)
				So(errors.Is(err, service.ErrConcurrencyConflict), ShouldBeTrue)
				l, _ := svc.Ledger(ctx, "m1")
				So(l.CaptainID, ShouldEqual, "p08")
			})
		})

		Convey("When an invalid squad is committed", func() {
			bad := first
			bad.AthleteIDs = eleven[:10]

			res, err := svc.CommitTransfer(ctx, bad)

			Convey("Then the violations come back as data", func() {
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeFalse)
				So(res.Plan.Report.Has(roster.CodeSquadSize), ShouldBeTrue)
				_, err := svc.Ledger(ctx, "m1")
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a draft has no manager", func() {
			_, err := svc.CommitTransfer(ctx, model.RosterDraft{AthleteIDs: eleven})

			Convey("Then it is invalid input", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})

		Convey("When many commits race on one version", func() {
			_, err := svc.CommitTransfer(ctx, first)
			So(err, ShouldBeNil)

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				ok, stale int
			)
			for _, captain := range []string{"p00", "p01", "p02", "p03", "p04", "p05"} {
				wg.Add(1)
				go func(captain string) {
					defer wg.Done()
					d := first
					d.CaptainID = captain
					d.BaseVersion = 1
					res, err := svc.CommitTransfer(ctx, d)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case errors.Is(err, service.ErrConcurrencyConflict):
						stale++
					case err == nil && res.Committed:
						ok++
					}
				}(captain)
			}
			wg.Wait()

			Convey("Then exactly one wins", func() {
				So(ok, ShouldEqual, 1)
				So(stale, ShouldEqual, 5)
				l, _ := svc.Ledger(ctx, "m1")
				So(l.Version, ShouldEqual, 2)
			})
		})
	})
}

func TestService_Deadline(t *testing.T) {
	Convey("Given a committed squad and a passed deadline", t, func() {
		ctx := context.Background()
		clk := &clock{now: deadline.Add(-time.Hour)}
		svc, eleven := started(
			service.WithClock(clk.Now),
			service.WithSettings(model.Settings{Deadline: deadline}),
		)
		defer svc.Stop()

		first := model.RosterDraft{ManagerID: "m1", AthleteIDs: eleven, CaptainID: "p08"}
		_, err := svc.CommitTransfer(ctx, first)
		So(err, ShouldBeNil)
		clk.Set(deadline.Add(time.Hour))

		swapped := first
		swapped.AthleteIDs = swap(eleven, map[string]string{"p01": "s0", "p05": "s1"})

		Convey("When transfers are disabled", func() {
			res, err := svc.CommitTransfer(ctx, swapped)

			Convey("Then membership is locked", func() {
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeFalse)
				So(res.Plan.Report.Has(roster.CodeDeadlineLocked), ShouldBeTrue)
			})

			Convey("And the captain may still change", func() {
				captain := first
				captain.CaptainID = "p09"
				res, err := svc.CommitTransfer(ctx, captain)
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeTrue)
				So(res.Ledger.CaptainID, ShouldEqual, "p09")
			})

			Convey("And a manager without a team may still save one", func() {
				res, err := svc.CommitTransfer(ctx, model.RosterDraft{ManagerID: "late", AthleteIDs: eleven, CaptainID: "p08"})
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeTrue)
			})
		})

		Convey("When transfers are enabled", func() {
			So(svc.UpdateSettings(ctx, model.Settings{TransfersEnabled: true, Deadline: deadline}), ShouldBeNil)

			Convey("Then the free transfer is used first and the extra one is penalized", func() {
				plan, err := svc.PreviewTransfer(ctx, swapped)
				So(err, ShouldBeNil)
				So(plan.FreeUsed, ShouldEqual, 1)
				So(plan.PenaltyPoints, ShouldEqual, 4)

				res, err := svc.CommitTransfer(ctx, swapped)
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeTrue)
				So(res.Ledger.PendingDeduction, ShouldEqual, 4)
				So(res.Ledger.FreeTransfers, ShouldEqual, 0)
			})

			Convey("Then a wildcard makes the same swaps free", func() {
				_, err := svc.ActivateWildcard(ctx, "m1")
				So(err, ShouldBeNil)

				res, err := svc.CommitTransfer(ctx, swapped)
				So(err, ShouldBeNil)
				So(res.Committed, ShouldBeTrue)
				So(res.Plan.PenaltyPoints, ShouldEqual, 0)
				So(res.Ledger.FreeTransfers, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Chips(t *testing.T) {
	Convey("Given a manager with a squad", t, func() {
		ctx := context.Background()
		svc, eleven := started()
		defer svc.Stop()
		_, err := svc.CommitTransfer(ctx, model.RosterDraft{ManagerID: "m1", AthleteIDs: eleven, CaptainID: "p08"})
		So(err, ShouldBeNil)

		Convey("When the triple captain is confirmed without arming", func() {
			_, err := svc.ConfirmTripleCaptain(ctx, "m1")

			Convey("Then it is refused", func() {
				So(errors.Is(err, transfer.ErrNotArmed), ShouldBeTrue)
			})
		})

		Convey("When the triple captain is armed and confirmed", func() {
			_, err := svc.ArmTripleCaptain(ctx, "m1")
			So(err, ShouldBeNil)
			l, err := svc.ConfirmTripleCaptain(ctx, "m1")
			So(err, ShouldBeNil)

			Convey("Then it is pending and blocks the wildcard", func() {
				So(l.TripleCaptainPending, ShouldBeTrue)
				So(l.Version, ShouldEqual, 3)
				_, err := svc.ActivateWildcard(ctx, "m1")
				So(errors.Is(err, transfer.ErrChipConflict), ShouldBeTrue)
			})
		})

		Convey("When an armed triple captain is disarmed", func() {
			_, err := svc.ArmTripleCaptain(ctx, "m1")
			So(err, ShouldBeNil)
			l, err := svc.DisarmTripleCaptain(ctx, "m1")

			Convey("Then nothing is pending", func() {
				So(err, ShouldBeNil)
				So(l.TripleCaptainArmed, ShouldBeFalse)
				So(l.TripleCaptainPending, ShouldBeFalse)
			})
		})

		Convey("When a manager without a team plays a chip", func() {
			_, err := svc.ActivateWildcard(ctx, "nobody")

			Convey("Then it is refused", func() {
				So(errors.Is(err, transfer.ErrNoTeam), ShouldBeTrue)
			})
		})
	})
}

func TestService_Finalize(t *testing.T) {
	Convey("Given a manager captaining a scoring forward", t, func() {
		ctx := context.Background()
		svc, eleven := started()
		defer svc.Stop()
		_, err := svc.CommitTransfer(ctx, model.RosterDraft{ManagerID: "m1", AthleteIDs: eleven, CaptainID: "p08"})
		So(err, ShouldBeNil)

		batch := model.PeriodBatch{
			Period:      1,
			BatchID:     "gw1",
			FinalizedAt: deadline,
			Reports: []model.MatchEventReport{
				{AthleteID: "p08", Goals: 1, Result: model.ResultWin},
				{AthleteID: "p8", Goals: 3},
			},
		}

		Convey("When the period is finalized", func() {
			out, err := svc.FinalizePeriod(ctx, batch)
			So(err, ShouldBeNil)

			Convey("Then the captain counts double", func() {
				So(out.Record.LedgersRolled, ShouldEqual, 1)
				l, err := svc.Ledger(ctx, "m1")
				So(err, ShouldBeNil)
				So(l.TotalPoints, ShouldEqual, 14)
				So(l.BucketPoints["2025-09"], ShouldEqual, 14)
				So(l.FreeTransfers, ShouldEqual, 2)
			})

			Convey("And the unknown report is skipped with a suggestion", func() {
				So(out.Record.Skipped, ShouldHaveLength, 1)
				So(out.Record.Skipped[0].ID, ShouldEqual, "p8")
				So(out.Failures, ShouldHaveLength, 1)
			})

			Convey("And athlete points and transfer counters move on", func() {
				a, err := svc.Athlete(ctx, "p08")
				So(err, ShouldBeNil)
				So(a.PointsTotal, ShouldEqual, 7)
				So(a.TransfersIn, ShouldEqual, 0)
			})

			Convey("And the period status is done", func() {
				st, err := svc.PeriodStatus(ctx, 1)
				So(err, ShouldBeNil)
				So(st.State, ShouldEqual, service.JobDone)
				So(st.Record.BatchID, ShouldEqual, "gw1")
			})

			Convey("And finalizing it again changes nothing", func() {
				_, err := svc.FinalizePeriod(ctx, batch)
				So(errors.Is(err, service.ErrPeriodFinalized), ShouldBeTrue)
				l, _ := svc.Ledger(ctx, "m1")
				So(l.TotalPoints, ShouldEqual, 14)
			})
		})

		Convey("When the batch is malformed", func() {
			bad := batch
			bad.Period = 0

			_, err := svc.FinalizePeriod(ctx, bad)

			Convey("Then it is invalid input", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			})
		})
	})
}

// hookedStore runs before once inside the first ApplyFinalization and fails
// the first conflicts calls with a version conflict.
type hookedStore struct {
	*repository.MemoryStore
	once      sync.Once
	before    func()
	conflicts int
	calls     int
}

func (h *hookedStore) ApplyFinalization(ctx context.Context, rec model.FinalizationRecord, athletes []model.Athlete, ledgers []model.TeamLedger) error {
	h.calls++
	if h.before != nil {
		h.once.Do(h.before)
	}
	if h.calls <= h.conflicts {
		return fmt.Errorf("stale plan: %w", repository.ErrVersionConflict)
	}
	return h.MemoryStore.ApplyFinalization(ctx, rec, athletes, ledgers)
}

func TestService_FinalizeConcurrentWrites(t *testing.T) {
	batch := model.PeriodBatch{
		Period:      1,
		BatchID:     "gw1",
		FinalizedAt: deadline,
		Reports:     []model.MatchEventReport{{AthleteID: "p08", Goals: 1, Result: model.ResultWin}},
	}

	Convey("Given catalog and settings writes arriving mid-finalization", t, func() {
		ctx := context.Background()
		store := &hookedStore{MemoryStore: repository.NewMemoryStore(ctx)}
		svc, _ := started(service.WithStore(store))
		defer svc.Stop()

		edited := make(chan error, 1)
		saved := make(chan error, 1)
		landedEarly := false
		store.before = func() {
			go func() {
				edited <- svc.UpsertAthletes(ctx, []model.Athlete{{ID: "p00", Name: "corrected", Team: "Men1", Position: model.Keeper, Price: dec("12.0")}})
			}()
			go func() {
				saved <- svc.UpdateSettings(ctx, model.Settings{TransfersEnabled: true})
			}()
			select {
			case <-edited:
				landedEarly = true
			case <-saved:
				landedEarly = true
			case <-time.After(50 * time.Millisecond):
			}
		}

		_, err := svc.FinalizePeriod(ctx, batch)
		So(err, ShouldBeNil)

		Convey("Then both writes wait for the period and survive it", func() {
			So(landedEarly, ShouldBeFalse)
			for _, ch := range []chan error{edited, saved} {
				select {
				case err := <-ch:
					So(err, ShouldBeNil)
				case <-time.After(2 * time.Second):
					So("write never completed", ShouldBeEmpty)
				}
			}
			a, err := svc.Athlete(ctx, "p00")
			So(err, ShouldBeNil)
			So(a.Name, ShouldEqual, "corrected")
			So(a.Price.Equal(dec("12.0")), ShouldBeTrue)
			st, err := svc.Settings(ctx)
			So(err, ShouldBeNil)
			So(st.TransfersEnabled, ShouldBeTrue)
		})
	})

	Convey("Given another engine commits a ledger after the period was planned", t, func() {
		ctx := context.Background()
		store := &hookedStore{MemoryStore: repository.NewMemoryStore(ctx)}
		svc, eleven := started(service.WithStore(store))
		defer svc.Stop()
		_, err := svc.CommitTransfer(ctx, model.RosterDraft{ManagerID: "m1", AthleteIDs: eleven, CaptainID: "p08"})
		So(err, ShouldBeNil)

		store.before = func() {
			l, err := store.Ledger(ctx, "m1")
			if err != nil {
				return
			}
			l.CaptainID = "p09"
			_, _ = store.CommitLedger(ctx, l, l.Version, nil, nil)
		}

		out, err := svc.FinalizePeriod(ctx, batch)

		Convey("Then the period is replanned on top of the commit", func() {
			So(err, ShouldBeNil)
			So(store.calls, ShouldEqual, 2)
			So(out.Record.LedgersRolled, ShouldEqual, 1)
			l, err := svc.Ledger(ctx, "m1")
			So(err, ShouldBeNil)
			So(l.CaptainID, ShouldEqual, "p09")
			So(l.TotalPoints, ShouldEqual, 7)
			So(l.Version, ShouldEqual, 3)
		})
	})

	Convey("Given a store whose plans keep going stale", t, func() {
		ctx := context.Background()
		store := &hookedStore{MemoryStore: repository.NewMemoryStore(ctx), conflicts: 10}
		svc, _ := started(service.WithStore(store))
		defer svc.Stop()

		_, err := svc.FinalizePeriod(ctx, batch)

		Convey("Then finalization gives up as a conflict and writes nothing", func() {
			So(errors.Is(err, service.ErrConcurrencyConflict), ShouldBeTrue)
			So(store.calls, ShouldEqual, 3)
			_, err := store.Finalization(ctx, 1)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_SubmitBatch(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc, eleven := started(service.WithWorkerCount(1))
		defer svc.Stop()
		_, err := svc.CommitTransfer(ctx, model.RosterDraft{ManagerID: "m1", AthleteIDs: eleven, CaptainID: "p08"})
		So(err, ShouldBeNil)

		batch := model.PeriodBatch{Period: 1, BatchID: "gw1", Reports: []model.MatchEventReport{{AthleteID: "p08", Goals: 2}}}

		Convey("When a batch is submitted", func() {
			job, err := svc.SubmitBatch(ctx, batch)
			So(err, ShouldBeNil)
			So(job.State, ShouldEqual, service.JobQueued)

			Convey("Then a worker finalizes it", func() {
				done := false
				for i := 0; i < 200 && !done; i++ {
					st, err := svc.PeriodStatus(ctx, 1)
					done = err == nil && st.State == service.JobDone
					time.Sleep(5 * time.Millisecond)
				}
				So(done, ShouldBeTrue)
				l, _ := svc.Ledger(ctx, "m1")
				So(l.TotalPoints, ShouldEqual, 16)
			})

			Convey("And the same batch id is refused", func() {
				_, err := svc.SubmitBatch(ctx, batch)
				So(errors.Is(err, service.ErrDuplicateBatch), ShouldBeTrue)
			})
		})

		Convey("When a batch has an unknown result", func() {
			bad := batch
			bad.Reports = []model.MatchEventReport{{AthleteID: "p08", Goals: 1, Result: model.Result("victory")}}

			_, err := svc.SubmitBatch(ctx, bad)

			Convey("Then it is refused instead of scoring zero", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(err, model.ErrUnknownResult), ShouldBeTrue)
				_, err := svc.PeriodStatus(ctx, 1)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a batch has a bad report", func() {
			bad := batch
			bad.Reports = []model.MatchEventReport{{AthleteID: "p08", Goals: -1}}

			_, err := svc.SubmitBatch(ctx, bad)

			Convey("Then it is refused before queueing", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				_, err := svc.PeriodStatus(ctx, 1)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Reads(t *testing.T) {
	Convey("Given a started service with a catalog", t, func() {
		ctx := context.Background()
		svc, _ := started()
		defer svc.Stop()

		Convey("Then points are itemized for a known athlete", func() {
			b, err := svc.CalculatePoints(ctx, model.MatchEventReport{AthleteID: "p00", CleanSheet: true, Result: model.ResultDraw})
			So(err, ShouldBeNil)
			So(b.CleanSheet, ShouldEqual, 6)
			So(b.Total, ShouldEqual, 7)
		})

		Convey("Then a report with an unknown result is invalid input", func() {
			_, err := svc.CalculatePoints(ctx, model.MatchEventReport{AthleteID: "p08", Result: model.Result("Win")})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
			So(errors.Is(err, model.ErrUnknownResult), ShouldBeTrue)
		})

		Convey("Then an unknown athlete is not found with a hint", func() {
			_, err := svc.CalculatePoints(ctx, model.MatchEventReport{AthleteID: "p0"})
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "did you mean")
		})

		Convey("Then a price quote stays on the grid", func() {
			q, err := svc.UpdatePrice(ctx, "p00")
			So(err, ShouldBeNil)
			So(q.Current.Equal(dec("8.0")), ShouldBeTrue)
			So(q.Next.Mod(dec("0.1")).IsZero(), ShouldBeTrue)
		})

		Convey("Then the catalog is listed in id order", func() {
			all, err := svc.Athletes(ctx)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 14)
			So(all[0].ID, ShouldEqual, "p00")
		})

		Convey("Then an off-grid price is rejected", func() {
			err := svc.UpsertAthletes(ctx, []model.Athlete{{ID: "x", Team: "Men1", Position: model.Forward, Price: dec("7.05")}})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then a price outside the bounds is rejected", func() {
			err := svc.UpsertAthletes(ctx, []model.Athlete{{ID: "x", Team: "Men1", Position: model.Forward, Price: dec("30.0")}})
			So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
