package kpi

import (
	"testing"
	"time"

	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

const eps = 1e-9

func at(h, m int) time.Time { return time.Date(2026, 1, 21, h, m, 0, 0, time.UTC) }

func ev(ts time.Time, worker, station string, k model.Kind, count int) model.Event {
	return model.Event{Timestamp: ts, WorkerID: worker, WorkstationID: station, Kind: k, Confidence: 0.9, Count: count}
}

func window(start, end time.Time) model.Window { return model.Window{Start: &start, End: &end} }

func TestForWorker(t *testing.T) {
	convey.Convey("Given worker W1 with an idle tick, two working ticks and some output", t, func() {
		w := model.Worker{ID: "W1", Name: "John Smith"}
		events := []model.Event{
			ev(at(11, 0), "W1", "S1", model.KindWorking, 1),
			ev(at(10, 0), "W1", "S1", model.KindIdle, 1),
			ev(at(10, 30), "W1", "S1", model.KindWorking, 1),
			ev(at(10, 45), "W1", "S1", model.KindProductCount, 3),
		}

		convey.Convey("When measured over 10:00 to 12:00", func() {
			m := ForWorker(w, events, window(at(10, 0), at(12, 0)), at(18, 0))

			convey.Convey("Then the figures follow from the reconstructed durations", func() {
				convey.So(m.WorkerID, convey.ShouldEqual, "W1")
				convey.So(m.WorkerName, convey.ShouldEqual, "John Smith")
				convey.So(m.IdleHours, convey.ShouldAlmostEqual, 0.5, eps)
				// 10:45 to 11:00 is charged to the product tick
				convey.So(m.WorkingHours, convey.ShouldAlmostEqual, 1.25, eps)
				convey.So(m.Utilization, convey.ShouldAlmostEqual, 62.5, eps)
				convey.So(m.Units, convey.ShouldEqual, 3)
				convey.So(m.UnitsPerHour, convey.ShouldAlmostEqual, 2.4, eps)
				convey.So(*m.LastSeen, convey.ShouldEqual, at(11, 0))
			})
		})

		convey.Convey("When product events fall outside the window", func() {
			m := ForWorker(w, events, window(at(10, 0), at(10, 40)), at(18, 0))

			convey.Convey("Then they are not counted", func() {
				convey.So(m.Units, convey.ShouldEqual, 0)
				convey.So(m.UnitsPerHour, convey.ShouldEqual, 0)
			})
		})
	})

	convey.Convey("Given a worker with no events", t, func() {
		m := ForWorker(model.Worker{ID: "W2"}, nil, window(at(8, 0), at(8, 0)), at(9, 0))

		convey.Convey("Then every figure is zero and last seen is unset", func() {
			convey.So(m.Utilization, convey.ShouldEqual, 0)
			convey.So(m.UnitsPerHour, convey.ShouldEqual, 0)
			convey.So(m.WorkingHours, convey.ShouldEqual, 0)
			convey.So(m.LastSeen, convey.ShouldBeNil)
		})
	})
}

func TestForWorkstation(t *testing.T) {
	convey.Convey("Given a station that is worked, idle and then vacated", t, func() {
		ws := model.Workstation{ID: "S1", Name: "Assembly Line 1"}
		events := []model.Event{
			ev(at(9, 0), "W1", "S1", model.KindWorking, 1),
			ev(at(9, 0), "W1", "S1", model.KindProductCount, 6),
			ev(at(11, 0), "W1", "S1", model.KindIdle, 1),
			ev(at(12, 0), "W1", "S1", model.KindAbsent, 1),
		}
		m := ForWorkstation(ws, events, window(at(9, 0), at(13, 0)), at(18, 0))

		convey.Convey("Then occupancy excludes absence and throughput uses occupancy", func() {
			convey.So(m.OccupancyHours, convey.ShouldAlmostEqual, 3.0, eps)
			convey.So(m.Utilization, convey.ShouldAlmostEqual, 200.0/3, eps)
			convey.So(m.Units, convey.ShouldEqual, 6)
			convey.So(m.Throughput, convey.ShouldAlmostEqual, 2.0, eps)
			convey.So(*m.LastActivity, convey.ShouldEqual, at(12, 0))
		})
	})

	convey.Convey("Given a station that was only ever absent", t, func() {
		m := ForWorkstation(model.Workstation{ID: "S2"},
			[]model.Event{ev(at(9, 0), "W1", "S2", model.KindAbsent, 1)},
			window(at(9, 0), at(10, 0)), at(18, 0))

		convey.Convey("Then utilization and throughput are zero", func() {
			convey.So(m.OccupancyHours, convey.ShouldEqual, 0)
			convey.So(m.Utilization, convey.ShouldEqual, 0)
			convey.So(m.Throughput, convey.ShouldEqual, 0)
			convey.So(m.LastActivity, convey.ShouldNotBeNil)
		})
	})
}

func TestFactory(t *testing.T) {
	convey.Convey("Given three workers of which one never produced", t, func() {
		seen := at(12, 0)
		workers := []WorkerMetrics{
			{WorkerID: "W1", WorkingHours: 2, Utilization: 80, Units: 10, UnitsPerHour: 5, LastSeen: &seen},
			{WorkerID: "W2", WorkingHours: 1, Utilization: 40, Units: 3, UnitsPerHour: 3, LastSeen: &seen},
			{WorkerID: "W3", Utilization: 0},
		}
		stations := []WorkstationMetrics{{WorkstationID: "S1", LastActivity: &seen}, {WorkstationID: "S2"}}
		w := window(at(8, 0), at(16, 0))
		f := Factory(workers, stations, w)

		convey.Convey("Then utilization averages everyone and rate only producers", func() {
			convey.So(f.ProductiveHours, convey.ShouldAlmostEqual, 3.0, eps)
			convey.So(f.Units, convey.ShouldEqual, 13)
			convey.So(f.AvgUtilization, convey.ShouldAlmostEqual, 40.0, eps)
			convey.So(f.AvgRate, convey.ShouldAlmostEqual, 4.0, eps)
			convey.So(f.ActiveWorkers, convey.ShouldEqual, 2)
			convey.So(f.ActiveWorkstations, convey.ShouldEqual, 1)
			convey.So(*f.Start, convey.ShouldEqual, at(8, 0))
			convey.So(*f.End, convey.ShouldEqual, at(16, 0))
		})
	})

	convey.Convey("Given no workers at all", t, func() {
		f := Factory(nil, nil, model.Window{})

		convey.Convey("Then averages are zero and the window stays open", func() {
			convey.So(f.AvgUtilization, convey.ShouldEqual, 0)
			convey.So(f.AvgRate, convey.ShouldEqual, 0)
			convey.So(f.Start, convey.ShouldBeNil)
			convey.So(f.End, convey.ShouldBeNil)
		})
	})
}
