// Package kpi derives worker, workstation and factory productivity figures
// from reconstructed state durations. Values keep full precision; rounding
// belongs to the presentation layer.
package kpi

import (
	"time"

	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/domain/timeline"
)

// WorkerMetrics are the KPIs of one worker over a window.
type WorkerMetrics struct {
	WorkerID     string
	WorkerName   string
	WorkingHours float64
	IdleHours    float64
	Utilization  float64 // percent of elapsed window time spent working
	Units        int
	UnitsPerHour float64 // units per working hour
	LastSeen     *time.Time
}

// WorkstationMetrics are the KPIs of one workstation over a window.
type WorkstationMetrics struct {
	WorkstationID   string
	WorkstationName string
	OccupancyHours  float64 // working + idle
	Utilization     float64 // percent of occupancy spent working
	Units           int
	Throughput      float64 // units per occupied hour
	LastActivity    *time.Time
}

// FactoryMetrics roll worker and workstation KPIs up to the floor.
type FactoryMetrics struct {
	ProductiveHours    float64
	Units              int
	AvgUtilization     float64
	AvgRate            float64
	ActiveWorkers      int
	ActiveWorkstations int
	Start              *time.Time // requested window, nil when open
	End                *time.Time
}

// ForWorker computes w's metrics from its events. Events outside window are
// ignored for unit counts; the reconstruction clips them for durations.
func ForWorker(w model.Worker, events []model.Event, window model.Window, now time.Time) WorkerMetrics {
	r := timeline.Reconstruct(events, window, now)
	units := countUnits(events, window)
	return WorkerMetrics{
		WorkerID:     w.ID,
		WorkerName:   w.Name,
		WorkingHours: r.Working,
		IdleHours:    r.Idle,
		Utilization:  percent(r.Working, r.Elapsed()),
		Units:        units,
		UnitsPerHour: ratio(float64(units), r.Working),
		LastSeen:     latest(events),
	}
}

// ForWorkstation computes ws's metrics from events observed at it.
func ForWorkstation(ws model.Workstation, events []model.Event, window model.Window, now time.Time) WorkstationMetrics {
	r := timeline.Reconstruct(events, window, now)
	occupancy := r.Working + r.Idle
	units := countUnits(events, window)
	return WorkstationMetrics{
		WorkstationID:   ws.ID,
		WorkstationName: ws.Name,
		OccupancyHours:  occupancy,
		Utilization:     percent(r.Working, occupancy),
		Units:           units,
		Throughput:      ratio(float64(units), occupancy),
		LastActivity:    latest(events),
	}
}

// Factory aggregates per-subject metrics. Utilization is averaged over every
// worker; the production rate only over workers with a nonzero rate.
func Factory(workers []WorkerMetrics, stations []WorkstationMetrics, window model.Window) FactoryMetrics {
	f := FactoryMetrics{Start: window.Start, End: window.End}
	var (
		utilSum  float64
		rateSum  float64
		rateSeen int
	)
	for _, w := range workers {
		f.ProductiveHours += w.WorkingHours
		f.Units += w.Units
		utilSum += w.Utilization
		if w.UnitsPerHour > 0 {
			rateSum += w.UnitsPerHour
			rateSeen++
		}
		if w.LastSeen != nil {
			f.ActiveWorkers++
		}
	}
	for _, s := range stations {
		if s.LastActivity != nil {
			f.ActiveWorkstations++
		}
	}
	f.AvgUtilization = ratio(utilSum, float64(len(workers)))
	f.AvgRate = ratio(rateSum, float64(rateSeen))
	return f
}

func countUnits(events []model.Event, window model.Window) int {
	var n int
	for _, ev := range events {
		if ev.Kind == model.KindProductCount && window.Contains(ev.Timestamp) {
			n += ev.Count
		}
	}
	return n
}

func latest(events []model.Event) *time.Time {
	if len(events) == 0 {
		return nil
	}
	last := events[0].Timestamp
	for _, ev := range events[1:] {
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	last = last.UTC()
	return &last
}

// ratio returns num/den, or 0 when den is not positive.
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}

func percent(part, whole float64) float64 { return ratio(part, whole) * 100 }
