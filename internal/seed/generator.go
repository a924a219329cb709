package seed

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/floorwatch/internal/domain/model"
)

// Interval is the spacing of generated observations.
const Interval = 5 * time.Minute

func uniform(rng *rand.Rand, lo, hi float64) float64 { return lo + (hi-lo)*rng.Float64() }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// Synthetic generates hoursBack hours of observations ending at now, newest
// first. Every interval a random three to five workers report from the
// station they were first assigned to. A worker coming back from absence
// always reports working.
func Synthetic(rng *rand.Rand, r Roster, now time.Time, hoursBack int) []model.Event {
	total := hoursBack * 60 / int(Interval/time.Minute)
	prev := make(map[string]model.Kind, len(r.Workers))
	station := make(map[string]string, len(r.Workers))
	for _, w := range r.Workers {
		prev[w.ID] = model.KindAbsent
	}

	var out []model.Event
	for i := 0; i < total; i++ {
		ts := now.Add(-time.Duration(i) * Interval)
		n := min(3+rng.IntN(3), len(r.Workers))
		for _, idx := range rng.Perm(len(r.Workers))[:n] {
			w := r.Workers[idx].ID
			if _, ok := station[w]; !ok {
				station[w] = r.Workstations[rng.IntN(len(r.Workstations))].ID
			}

			kind := model.KindWorking
			if prev[w] != model.KindAbsent {
				switch p := rng.Float64(); {
				case p < 0.7:
					kind = model.KindWorking
				case p < 0.9:
					kind = model.KindIdle
				default:
					kind = model.KindProductCount
				}
			}
			count := 1
			if kind == model.KindProductCount {
				count = 1 + rng.IntN(3)
			}
			prev[w] = kind

			out = append(out, model.Event{
				Timestamp:     ts,
				WorkerID:      w,
				WorkstationID: station[w],
				Kind:          kind,
				Confidence:    uniform(rng, 0.85, 0.99),
				Count:         count,
			})
		}
	}
	return out
}

// ShiftDay generates the 24 hours before now, oldest first, for every worker
// at a fixed station. It models a 45 minute lunch at 13:00 where nobody
// works, a slow 06:00 start, and product counts only while working.
func ShiftDay(rng *rand.Rand, r Roster, now time.Time) []model.Event {
	total := int(24 * time.Hour / Interval)
	prev := make(map[string]model.Kind, len(r.Workers))
	station := make(map[string]string, len(r.Workers))
	for _, w := range r.Workers {
		prev[w.ID] = model.KindAbsent
		station[w.ID] = r.Workstations[rng.IntN(len(r.Workstations))].ID
	}

	var out []model.Event
	for i := 0; i < total; i++ {
		ts := now.Add(-time.Duration(total-i) * Interval).UTC()
		lunch := ts.Hour() == 13 && ts.Minute() < 45
		slowStart := ts.Hour() == 6 && ts.Minute() < 30

		for _, wk := range r.Workers {
			w := wk.ID
			kind := nextShiftState(rng, prev[w], lunch, slowStart)
			prev[w] = kind
			out = append(out, model.Event{
				Timestamp:     ts,
				WorkerID:      w,
				WorkstationID: station[w],
				Kind:          kind,
				Confidence:    round3(uniform(rng, 0.88, 0.99)),
				Count:         1,
			})

			if kind != model.KindWorking || lunch {
				continue
			}
			chance, maxUnits := 0.6, 3
			if slowStart {
				chance, maxUnits = 0.3, 2
			}
			if rng.Float64() < chance {
				out = append(out, model.Event{
					Timestamp:     ts,
					WorkerID:      w,
					WorkstationID: station[w],
					Kind:          model.KindProductCount,
					Confidence:    round3(uniform(rng, 0.9, 0.99)),
					Count:         1 + rng.IntN(maxUnits),
				})
			}
		}
	}
	return out
}

func nextShiftState(rng *rand.Rand, prev model.Kind, lunch, slowStart bool) model.Kind {
	p := rng.Float64()
	switch {
	case lunch:
		if p < 0.7 {
			return model.KindAbsent
		}
		return model.KindIdle
	case slowStart:
		idleBelow := 0.5
		if prev == model.KindAbsent {
			idleBelow = 0.6
		}
		if p < idleBelow {
			return model.KindIdle
		}
		return model.KindWorking
	case prev == model.KindAbsent:
		if p < 0.8 {
			return model.KindWorking
		}
		return model.KindIdle
	case p < 0.65:
		return model.KindWorking
	case p < 0.9:
		return model.KindIdle
	}
	return model.KindAbsent
}
