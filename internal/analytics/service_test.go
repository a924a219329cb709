package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/drift"
	"github.com/okian/floorwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 1, 21, 18, 0, 0, 0, time.UTC)

func at(h, m int) time.Time { return time.Date(2026, 1, 21, h, m, 0, 0, time.UTC) }

func fixture(ctx context.Context) *repository.MemoryStore {
	s := repository.NewMemoryStore()
	for _, w := range []model.Worker{{ID: "W1", Name: "John Smith"}, {ID: "W2", Name: "Maria Garcia"}} {
		_, _ = s.UpsertWorker(ctx, w)
	}
	for _, ws := range []model.Workstation{{ID: "S1", Name: "Assembly Line 1"}, {ID: "S2", Name: "Assembly Line 2"}} {
		_, _ = s.UpsertWorkstation(ctx, ws)
	}
	put := func(ts time.Time, worker, station string, k model.Kind, conf float64, count int) {
		_, err := s.InsertEvent(ctx, model.Event{Timestamp: ts, WorkerID: worker, WorkstationID: station, Kind: k, Confidence: conf, Count: count})
		So(err, ShouldBeNil)
	}
	put(at(10, 0), "W1", "S1", model.KindIdle, 0.9, 1)
	put(at(10, 30), "W1", "S1", model.KindWorking, 0.9, 1)
	put(at(11, 0), "W1", "S1", model.KindWorking, 0.9, 1)
	put(at(11, 0), "W1", "S1", model.KindProductCount, 0.9, 3)
	return s
}

type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) QueryEvents(context.Context, repository.EventFilter, int) ([]model.Event, error) {
	return nil, errors.New("database is locked")
}

func TestWorkerReports(t *testing.T) {
	Convey("Given one worker with the idle then working scenario", t, func() {
		ctx := context.Background()
		svc := New(fixture(ctx), WithClock(func() time.Time { return now }))

		Convey("When worker metrics are requested for 10:00 to 11:30", func() {
			start, end := at(10, 0), at(11, 30)
			got, err := svc.Workers(ctx, "W1", model.Window{Start: &start, End: &end})

			Convey("Then utilization is two thirds of the window", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].WorkerName, ShouldEqual, "John Smith")
				So(got[0].IdleHours, ShouldAlmostEqual, 0.5, 1e-9)
				So(got[0].WorkingHours, ShouldAlmostEqual, 1.0, 1e-9)
				So(got[0].Utilization, ShouldAlmostEqual, 200.0/3, 1e-9)
				So(got[0].Units, ShouldEqual, 3)
			})
		})

		Convey("When every worker is requested with an open end", func() {
			start := at(10, 0)
			got, err := svc.Workers(ctx, "", model.Window{Start: &start})

			Convey("Then the end defaults to the clock and idle workers report zero", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].WorkingHours, ShouldAlmostEqual, 7.5, 1e-9)
				So(got[1].WorkerID, ShouldEqual, "W2")
				So(got[1].Utilization, ShouldEqual, 0)
				So(got[1].LastSeen, ShouldBeNil)
			})
		})

		Convey("When an unknown worker is requested", func() {
			got, err := svc.Workers(ctx, "W9", model.Window{})

			Convey("Then the result is empty", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When workstation metrics are requested", func() {
			got, err := svc.Workstations(ctx, "S1", model.Window{})

			Convey("Then station S1 is reported", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].WorkstationName, ShouldEqual, "Assembly Line 1")
				So(got[0].Units, ShouldEqual, 3)
				So(*got[0].LastActivity, ShouldEqual, at(11, 0))
			})
		})

		Convey("When factory metrics are requested", func() {
			start, end := at(10, 0), at(12, 0)
			f, err := svc.Factory(ctx, model.Window{Start: &start, End: &end})

			Convey("Then only W1 and S1 are active", func() {
				So(err, ShouldBeNil)
				So(f.ActiveWorkers, ShouldEqual, 1)
				So(f.ActiveWorkstations, ShouldEqual, 1)
				So(f.ProductiveHours, ShouldAlmostEqual, 1.5, 1e-9)
				So(f.AvgUtilization, ShouldAlmostEqual, 37.5, 1e-9)
				So(f.AvgRate, ShouldAlmostEqual, 2.0, 1e-9)
				So(*f.Start, ShouldEqual, start)
			})
		})
	})
}

func TestModelHealthAndHeatmap(t *testing.T) {
	Convey("Given stored events", t, func() {
		ctx := context.Background()
		svc := New(fixture(ctx), WithClock(func() time.Time { return now }))

		Convey("When model health is requested", func() {
			r, err := svc.ModelHealth(ctx)

			Convey("Then the sample is classified", func() {
				So(err, ShouldBeNil)
				So(r.Samples, ShouldEqual, 4)
				So(r.Status, ShouldEqual, drift.Healthy)
			})
		})

		Convey("When the sample size is narrowed", func() {
			narrow := New(fixture(ctx), WithDriftThresholds(drift.Thresholds{SampleSize: 2, WarningBelow: 0.95, CautionBelow: 0.99}))
			r, err := narrow.ModelHealth(ctx)

			Convey("Then only that many events are read", func() {
				So(err, ShouldBeNil)
				So(r.Samples, ShouldEqual, 2)
				So(r.Status, ShouldEqual, drift.Warning)
			})
		})

		Convey("When the heatmap is requested", func() {
			h, err := svc.Heatmap(ctx)

			Convey("Then events are bucketed per hour", func() {
				So(err, ShouldBeNil)
				So(h.Labels, ShouldResemble, []string{"10:00", "11:00"})
				So(h.Data, ShouldResemble, []float64{50, 50})
			})
		})

		Convey("When the heatmap span excludes everything", func() {
			h, err := New(fixture(ctx), WithClock(func() time.Time { return now.Add(48 * time.Hour) })).Heatmap(ctx)

			Convey("Then it is empty", func() {
				So(err, ShouldBeNil)
				So(h.Labels, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a store that cannot be read", t, func() {
		ctx := context.Background()
		svc := New(failingStore{fixture(ctx)})

		Convey("Then every report surfaces the error", func() {
			_, err := svc.ModelHealth(ctx)
			So(err, ShouldNotBeNil)
			_, err = svc.Heatmap(ctx)
			So(err, ShouldNotBeNil)
			_, err = svc.Factory(ctx, model.Window{})
			So(err, ShouldNotBeNil)
		})
	})
}
