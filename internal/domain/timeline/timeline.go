// Package timeline turns an unordered set of state observations for one
// subject into time spent per state.
package timeline

import (
	"sort"
	"time"

	"github.com/okian/floorwatch/internal/domain/model"
)

// Durations holds hours per kind at full precision.
type Durations struct {
	Working      float64
	Idle         float64
	Absent       float64
	ProductCount float64
}

// Hours returns the accumulated hours for k.
func (d Durations) Hours(k model.Kind) float64 {
	switch k {
	case model.KindWorking:
		return d.Working
	case model.KindIdle:
		return d.Idle
	case model.KindAbsent:
		return d.Absent
	case model.KindProductCount:
		return d.ProductCount
	case model.KindUnknown:
		return 0
	}
	return 0
}

// Total returns the sum over all kinds.
func (d Durations) Total() float64 {
	return d.Working + d.Idle + d.Absent + d.ProductCount
}

func (d *Durations) add(k model.Kind, hours float64) {
	switch k {
	case model.KindWorking:
		d.Working += hours
	case model.KindIdle:
		d.Idle += hours
	case model.KindAbsent:
		d.Absent += hours
	case model.KindProductCount:
		d.ProductCount += hours
	case model.KindUnknown:
	}
}

// Result is the reconstruction output. Start and End are the effective window;
// either is zero when it was open and there were no events to infer it from.
type Result struct {
	Durations
	Start time.Time
	End   time.Time
}

// Elapsed returns End-Start in hours, or 0 when the window is not fully known.
func (r Result) Elapsed() float64 {
	if r.Start.IsZero() || r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start).Hours()
}

// tieRank orders events sharing a timestamp. product_count goes first so a
// state tick at the same instant decides what the subject is doing next.
func tieRank(k model.Kind) int {
	switch k {
	case model.KindProductCount:
		return 0
	case model.KindWorking:
		return 1
	case model.KindIdle:
		return 2
	case model.KindAbsent:
		return 3
	case model.KindUnknown:
		return 4
	}
	return 5
}

// Sort orders events by observation time, then by a fixed kind/id tie-break,
// so the result never depends on arrival order. The input is not modified.
func Sort(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if ra, rb := tieRank(a.Kind), tieRank(b.Kind); ra != rb {
			return ra < rb
		}
		if a.WorkerID != b.WorkerID {
			return a.WorkerID < b.WorkerID
		}
		return a.WorkstationID < b.WorkstationID
	})
	return out
}

// Reconstruct computes hours per state for one subject's events over window.
// An open start defaults to the earliest event and an open end to now.
// Each interval between consecutive events is charged to the earlier event's
// state; the last state is extended to the window end.
func Reconstruct(events []model.Event, window model.Window, now time.Time) Result {
	if len(events) == 0 {
		var r Result
		if window.Start != nil {
			r.Start = window.Start.UTC()
		}
		if window.End != nil {
			r.End = window.End.UTC()
		}
		return r
	}

	ordered := Sort(events)
	start := ordered[0].Timestamp.UTC()
	if window.Start != nil {
		start = window.Start.UTC()
	}
	end := now.UTC()
	if window.End != nil {
		end = window.End.UTC()
	}
	clamp := func(t time.Time) time.Time {
		if t.Before(start) {
			t = start
		}
		if t.After(end) {
			t = end
		}
		return t
	}

	res := Result{Start: start, End: end}
	cursor := clamp(ordered[0].Timestamp)
	state := ordered[0].Kind
	for _, ev := range ordered[1:] {
		next := clamp(ev.Timestamp)
		if d := next.Sub(cursor); d > 0 {
			res.add(state, d.Hours())
			cursor = next
		}
		state = ev.Kind
	}
	if tail := end.Sub(cursor); tail > 0 {
		res.add(state, tail.Hours())
	}
	return res
}
