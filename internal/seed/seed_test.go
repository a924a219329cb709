package seed

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/ingest"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 1, 21, 18, 0, 0, 0, time.UTC)

func rng() *rand.Rand { return rand.New(rand.NewPCG(1, 2)) }

func TestRoster(t *testing.T) {
	Convey("Given the embedded roster", t, func() {
		r, err := DefaultRoster()

		Convey("Then it holds six workers and six workstations", func() {
			So(err, ShouldBeNil)
			So(len(r.Workers), ShouldEqual, 6)
			So(len(r.Workstations), ShouldEqual, 6)
			So(r.Workers[0], ShouldResemble, model.Worker{ID: "W1", Name: "John Smith", Shift: "morning", Department: "Assembly"})
			So(r.Workstations[5].Name, ShouldEqual, "Final Inspection")
		})
	})

	Convey("Given malformed rosters", t, func() {
		_, badID := ParseRoster([]byte("workers:\n  - id: X1\nworkstations:\n  - id: S1\n"))
		_, empty := ParseRoster([]byte("workers: []\n"))
		_, broken := ParseRoster([]byte("workers: ["))

		Convey("Then each fails with ErrInvalidRoster", func() {
			So(errors.Is(badID, ErrInvalidRoster), ShouldBeTrue)
			So(errors.Is(empty, ErrInvalidRoster), ShouldBeTrue)
			So(errors.Is(broken, ErrInvalidRoster), ShouldBeTrue)
		})
	})
}

func TestSynthetic(t *testing.T) {
	Convey("Given two hours of synthetic activity", t, func() {
		r, _ := DefaultRoster()
		events := Synthetic(rng(), r, now, 2)

		Convey("Then every interval has three to five distinct workers", func() {
			perTick := map[time.Time]map[string]bool{}
			for _, ev := range events {
				if perTick[ev.Timestamp] == nil {
					perTick[ev.Timestamp] = map[string]bool{}
				}
				So(perTick[ev.Timestamp][ev.WorkerID], ShouldBeFalse)
				perTick[ev.Timestamp][ev.WorkerID] = true
			}
			So(len(perTick), ShouldEqual, 24)
			for _, workers := range perTick {
				So(len(workers), ShouldBeBetweenOrEqual, 3, 5)
			}
		})

		Convey("Then workers stay at one station and events are valid", func() {
			station := map[string]string{}
			for _, ev := range events {
				if s, ok := station[ev.WorkerID]; ok {
					So(ev.WorkstationID, ShouldEqual, s)
				}
				station[ev.WorkerID] = ev.WorkstationID
				So(ev.Validate(model.DefaultMinConfidence), ShouldBeNil)
				So(ev.Kind, ShouldNotEqual, model.KindAbsent)
				if ev.Kind == model.KindProductCount {
					So(ev.Count, ShouldBeBetweenOrEqual, 1, 3)
				} else {
					So(ev.Count, ShouldEqual, 1)
				}
			}
		})

		Convey("Then the newest tick is now", func() {
			So(events[0].Timestamp, ShouldEqual, now)
		})
	})
}

func TestShiftDay(t *testing.T) {
	Convey("Given a generated shift day", t, func() {
		r, _ := DefaultRoster()
		events := ShiftDay(rng(), r, now)

		Convey("Then every worker reports one state every five minutes", func() {
			states := 0
			for _, ev := range events {
				if ev.Kind != model.KindProductCount {
					states++
				}
			}
			So(states, ShouldEqual, 288*6)
		})

		Convey("Then the lunch break has no work and no output", func() {
			for _, ev := range events {
				if ev.Timestamp.Hour() == 13 && ev.Timestamp.Minute() < 45 {
					So(ev.Kind, ShouldBeIn, []model.Kind{model.KindAbsent, model.KindIdle})
				}
			}
		})

		Convey("Then output only accompanies a working tick", func() {
			working := map[model.DedupKey]bool{}
			for _, ev := range events {
				if ev.Kind == model.KindWorking {
					working[model.DedupKey{Timestamp: ev.Timestamp, WorkerID: ev.WorkerID}] = true
				}
			}
			for _, ev := range events {
				if ev.Kind == model.KindProductCount {
					So(working[model.DedupKey{Timestamp: ev.Timestamp, WorkerID: ev.WorkerID}], ShouldBeTrue)
					So(ev.Confidence, ShouldBeBetweenOrEqual, 0.9, 0.99)
				}
			}
		})

		Convey("Then the history ends five minutes before now", func() {
			So(events[len(events)-1].Timestamp, ShouldEqual, now.Add(-Interval))
			So(events[0].Timestamp, ShouldEqual, now.Add(-24*time.Hour))
		})
	})
}

func TestSeeder(t *testing.T) {
	Convey("Given a seeder over an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		s, err := New(store, ingest.New(store), WithClock(func() time.Time { return now }), WithRand(rng()))
		So(err, ShouldBeNil)

		Convey("When seeding three hours", func() {
			res, err := s.Seed(ctx, false, 3)

			Convey("Then the roster and every generated event are stored", func() {
				So(err, ShouldBeNil)
				So(res.WorkersCreated, ShouldEqual, 6)
				So(res.WorkstationsCreated, ShouldEqual, 6)
				So(res.EventsCreated, ShouldBeGreaterThan, 0)
				So(res.Errors, ShouldEqual, 0)
				n, _ := store.CountEvents(ctx)
				So(n, ShouldEqual, int64(res.EventsCreated))
			})

			Convey("Then seeding again keeps the roster", func() {
				again, err := s.Seed(ctx, false, 1)
				So(err, ShouldBeNil)
				So(again.WorkersCreated, ShouldEqual, 0)
			})

			Convey("Then a refresh clears everything first", func() {
				again, err := s.Seed(ctx, true, 1)
				So(err, ShouldBeNil)
				So(again.WorkersCreated, ShouldEqual, 6)
				n, _ := store.CountEvents(ctx)
				So(n, ShouldEqual, int64(again.EventsCreated))
			})
		})

		Convey("When hours_back is out of range", func() {
			_, low := s.Seed(ctx, false, 0)
			_, high := s.Seed(ctx, false, 169)

			Convey("Then ErrHoursBack is returned and nothing is written", func() {
				So(errors.Is(low, ErrHoursBack), ShouldBeTrue)
				So(errors.Is(high, ErrHoursBack), ShouldBeTrue)
				workers, _ := store.ListWorkers(ctx)
				So(workers, ShouldBeEmpty)
			})
		})

		Convey("When the admin seed runs twice with clearing", func() {
			first, err := s.AdminSeed(ctx, false)
			So(err, ShouldBeNil)
			second, err := s.AdminSeed(ctx, true)

			Convey("Then events are replaced and reference data kept", func() {
				So(err, ShouldBeNil)
				So(first.EventsCreated, ShouldBeGreaterThanOrEqualTo, 288*6)
				So(second.WorkersCreated, ShouldEqual, 0)
				n, _ := store.CountEvents(ctx)
				So(n, ShouldEqual, int64(second.EventsCreated))
			})
		})
	})
}
