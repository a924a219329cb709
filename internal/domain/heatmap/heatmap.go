// Package heatmap buckets recent events by hour of day.
package heatmap

import (
	"fmt"
	"time"

	"github.com/okian/floorwatch/internal/domain/model"
)

const (
	DefaultSpan      = 24 * time.Hour
	DefaultPeakAbove = 80.0
)

// Heatmap holds one entry per hour of day that saw at least one event,
// ascending by hour. Data[i] is the utilization percent for Labels[i].
type Heatmap struct {
	Labels         []string
	Data           []float64
	Peaks          []string
	AvgUtilization float64
}

type bucket struct {
	working int
	total   int
}

// Build buckets events observed at or after now-span by UTC hour. Events of
// different days that share an hour merge into one bucket. Utilization is the
// share of working events in a bucket; an hour is a peak above peakAbove.
func Build(events []model.Event, now time.Time, span time.Duration, peakAbove float64) Heatmap {
	cutoff := now.Add(-span)
	var hours [24]bucket
	for _, ev := range events {
		if ev.Timestamp.Before(cutoff) {
			continue
		}
		b := &hours[ev.Timestamp.UTC().Hour()]
		b.total++
		if ev.Kind == model.KindWorking {
			b.working++
		}
	}

	h := Heatmap{Labels: []string{}, Data: []float64{}, Peaks: []string{}}
	var sum float64
	for hour, b := range hours {
		if b.total == 0 {
			continue
		}
		label := fmt.Sprintf("%02d:00", hour)
		util := float64(b.working) * 100 / float64(b.total)
		h.Labels = append(h.Labels, label)
		h.Data = append(h.Data, util)
		if util > peakAbove {
			h.Peaks = append(h.Peaks, label)
		}
		sum += util
	}
	if len(h.Data) > 0 {
		h.AvgUtilization = sum / float64(len(h.Data))
	}
	return h
}
