// Package drift flags degrading model confidence from a sample of recent events.
package drift

import (
	"math"

	"github.com/okian/floorwatch/internal/domain/model"
)

// Status is the health classification of the vision model.
type Status uint8

const (
	Unknown Status = iota
	Healthy
	Caution
	Warning
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "Healthy"
	case Caution:
		return "Caution"
	case Warning:
		return "Warning"
	case Unknown:
		return "Unknown"
	}
	return "Unknown"
}

// Statuses lists every status, in the order metrics export them.
var Statuses = []Status{Healthy, Caution, Warning, Unknown}

const (
	DefaultSampleSize   = 100
	DefaultWarningBelow = 0.75
	DefaultCautionBelow = 0.85

	recommendation = "Consider retraining the model or reviewing recent camera conditions"
)

// Thresholds configure Assess. A mean below WarningBelow is a Warning, below
// CautionBelow a Caution.
type Thresholds struct {
	SampleSize   int
	WarningBelow float64
	CautionBelow float64
}

// DefaultThresholds returns the stock classification bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{SampleSize: DefaultSampleSize, WarningBelow: DefaultWarningBelow, CautionBelow: DefaultCautionBelow}
}

// Report is the outcome of one assessment.
type Report struct {
	Status         Status
	Message        string
	AvgConfidence  float64
	Samples        int
	Recommendation string // set for Warning only
}

// Assess classifies the mean confidence of events. Callers pass the newest
// events first; at most th.SampleSize of them are used.
func Assess(events []model.Event, th Thresholds) Report {
	if th.SampleSize > 0 && len(events) > th.SampleSize {
		events = events[:th.SampleSize]
	}
	if len(events) == 0 {
		return Report{Status: Unknown, Message: "No events available for analysis"}
	}

	var sum float64
	for _, ev := range events {
		sum += ev.Confidence
	}
	mean := sum / float64(len(events))
	// absorb summation error so a mean that is exactly a bound lands above it
	cmp := math.Round(mean*1e9) / 1e9

	r := Report{AvgConfidence: mean, Samples: len(events)}
	switch {
	case cmp < th.WarningBelow:
		r.Status = Warning
		r.Message = "Low Confidence Detected: Potential Model Drift"
		r.Recommendation = recommendation
	case cmp < th.CautionBelow:
		r.Status = Caution
		r.Message = "Confidence slightly below optimal threshold"
	default:
		r.Status = Healthy
		r.Message = "Model confidence is within acceptable range"
	}
	return r
}
