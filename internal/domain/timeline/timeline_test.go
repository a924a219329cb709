package timeline

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/floorwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func at(h, m int) time.Time { return time.Date(2026, 1, 21, h, m, 0, 0, time.UTC) }

func ev(ts time.Time, k model.Kind) model.Event {
	return model.Event{Timestamp: ts, WorkerID: "W1", WorkstationID: "S1", Kind: k, Confidence: 0.9, Count: 1}
}

func window(start, end time.Time) model.Window { return model.Window{Start: &start, End: &end} }

const eps = 1e-9

func TestReconstructScenarios(t *testing.T) {
	Convey("Given an idle tick followed by two working ticks", t, func() {
		events := []model.Event{
			ev(at(10, 0), model.KindIdle),
			ev(at(10, 30), model.KindWorking),
			ev(at(11, 0), model.KindWorking),
		}

		Convey("When the window is 10:00 to 11:30", func() {
			r := Reconstruct(events, window(at(10, 0), at(11, 30)), at(18, 0))

			Convey("Then idle is 0.5h, working 1.0h and elapsed 1.5h", func() {
				So(r.Idle, ShouldAlmostEqual, 0.5, eps)
				So(r.Working, ShouldAlmostEqual, 1.0, eps)
				So(r.Elapsed(), ShouldAlmostEqual, 1.5, eps)
			})
		})

		Convey("When the window is 10:00 to 12:00", func() {
			r := Reconstruct(events, window(at(10, 0), at(12, 0)), at(18, 0))

			Convey("Then the tail extends working to 1.5h of 2.0h", func() {
				So(r.Idle, ShouldAlmostEqual, 0.5, eps)
				So(r.Working, ShouldAlmostEqual, 1.5, eps)
				So(r.Working/r.Elapsed()*100, ShouldAlmostEqual, 75.0, eps)
			})
		})
	})
}

func TestReconstructTail(t *testing.T) {
	Convey("Given a single working event at T", t, func() {
		T := at(9, 0)
		events := []model.Event{ev(T, model.KindWorking)}

		Convey("When the window ends at T+2h", func() {
			end := T.Add(2 * time.Hour)
			r := Reconstruct(events, model.Window{End: &end}, at(23, 0))

			Convey("Then working is 2.0h and everything else 0", func() {
				So(r.Working, ShouldAlmostEqual, 2.0, eps)
				So(r.Idle, ShouldEqual, 0)
				So(r.Absent, ShouldEqual, 0)
				So(r.ProductCount, ShouldEqual, 0)
				So(r.Start, ShouldEqual, T)
			})
		})

		Convey("When the window end is open", func() {
			r := Reconstruct(events, model.Window{}, T.Add(90*time.Minute))

			Convey("Then the end defaults to now", func() {
				So(r.Working, ShouldAlmostEqual, 1.5, eps)
				So(r.End, ShouldEqual, T.Add(90*time.Minute))
			})
		})
	})
}

func TestReconstructEmpty(t *testing.T) {
	Convey("Given no events", t, func() {
		Convey("When a window is given", func() {
			w := window(at(8, 0), at(9, 0))
			r := Reconstruct(nil, w, at(12, 0))

			Convey("Then durations are zero and the window is echoed", func() {
				So(r.Total(), ShouldEqual, 0)
				So(r.Start, ShouldEqual, at(8, 0))
				So(r.End, ShouldEqual, at(9, 0))
			})
		})

		Convey("When the window is open", func() {
			r := Reconstruct(nil, model.Window{}, at(12, 0))

			Convey("Then the window stays unknown", func() {
				So(r.Start.IsZero(), ShouldBeTrue)
				So(r.End.IsZero(), ShouldBeTrue)
				So(r.Elapsed(), ShouldEqual, 0)
			})
		})
	})
}

func TestReconstructClipping(t *testing.T) {
	Convey("Given events that straddle the window", t, func() {
		events := []model.Event{
			ev(at(8, 0), model.KindAbsent),
			ev(at(9, 30), model.KindWorking),
			ev(at(13, 0), model.KindIdle),
		}

		Convey("When the window is 9:00 to 12:00", func() {
			r := Reconstruct(events, window(at(9, 0), at(12, 0)), at(20, 0))

			Convey("Then only the intersection counts", func() {
				So(r.Absent, ShouldAlmostEqual, 0.5, eps)
				So(r.Working, ShouldAlmostEqual, 2.5, eps)
				So(r.Idle, ShouldEqual, 0)
				So(r.Total(), ShouldAlmostEqual, r.Elapsed(), eps)
			})
		})

		Convey("When the window ends before it starts", func() {
			r := Reconstruct(events, window(at(12, 0), at(9, 0)), at(20, 0))

			Convey("Then nothing is negative", func() {
				So(r.Working, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Idle, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Absent, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Total(), ShouldEqual, 0)
			})
		})
	})
}

func TestReconstructTies(t *testing.T) {
	Convey("Given a product_count and a working tick at the same instant", t, func() {
		events := []model.Event{
			ev(at(10, 0), model.KindWorking),
			ev(at(10, 0), model.KindProductCount),
			ev(at(11, 0), model.KindIdle),
		}
		r := Reconstruct(events, window(at(10, 0), at(11, 0)), at(12, 0))

		Convey("Then the hour is charged to working, whatever the input order", func() {
			So(r.Working, ShouldAlmostEqual, 1.0, eps)
			So(r.ProductCount, ShouldEqual, 0)

			swapped := []model.Event{events[1], events[0], events[2]}
			So(Reconstruct(swapped, window(at(10, 0), at(11, 0)), at(12, 0)), ShouldResemble, r)
		})
	})
}

func TestReconstructOrderIndependence(t *testing.T) {
	Convey("Given a random event set", t, func() {
		rng := rand.New(rand.NewSource(7))
		kinds := []model.Kind{model.KindWorking, model.KindIdle, model.KindAbsent, model.KindProductCount}
		events := make([]model.Event, 200)
		for i := range events {
			events[i] = ev(at(6, 0).Add(time.Duration(rng.Intn(600))*time.Minute), kinds[rng.Intn(len(kinds))])
		}
		w := window(at(7, 0), at(15, 0))
		want := Reconstruct(events, w, at(20, 0))

		Convey("When the arrival order is shuffled many times", func() {
			Convey("Then the output never changes", func() {
				for i := 0; i < 25; i++ {
					shuffled := append([]model.Event(nil), events...)
					rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
					got := Reconstruct(shuffled, w, at(20, 0))
					So(math.Abs(got.Working-want.Working), ShouldBeLessThan, eps)
					So(math.Abs(got.Idle-want.Idle), ShouldBeLessThan, eps)
					So(math.Abs(got.Absent-want.Absent), ShouldBeLessThan, eps)
					So(math.Abs(got.ProductCount-want.ProductCount), ShouldBeLessThan, eps)
				}
			})

			Convey("Then the totals cover the window exactly", func() {
				So(want.Total(), ShouldAlmostEqual, 8.0, 1e-6)
			})
		})
	})
}

func TestSortDoesNotMutate(t *testing.T) {
	Convey("Given an unsorted slice", t, func() {
		in := []model.Event{ev(at(11, 0), model.KindIdle), ev(at(10, 0), model.KindWorking)}
		out := Sort(in)

		So(out[0].Timestamp, ShouldEqual, at(10, 0))
		So(in[0].Timestamp, ShouldEqual, at(11, 0))
	})
}

func TestDurationsHours(t *testing.T) {
	Convey("Given durations", t, func() {
		d := Durations{Working: 1, Idle: 2, Absent: 3, ProductCount: 4}
		So(d.Hours(model.KindWorking), ShouldEqual, 1)
		So(d.Hours(model.KindIdle), ShouldEqual, 2)
		So(d.Hours(model.KindAbsent), ShouldEqual, 3)
		So(d.Hours(model.KindProductCount), ShouldEqual, 4)
		So(d.Hours(model.KindUnknown), ShouldEqual, 0)
		So(d.Total(), ShouldEqual, 10)
	})
}
