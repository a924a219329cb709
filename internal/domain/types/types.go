// Package types contains the wire shapes shared by the HTTP API and the stream sources.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/floorwatch/internal/domain/drift"
	"github.com/okian/floorwatch/internal/domain/heatmap"
	"github.com/okian/floorwatch/internal/domain/kpi"
	"github.com/okian/floorwatch/internal/domain/model"
)

// Round rounds v to places decimals, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func round2(v float64) float64 { return Round(v, 2) }

// naiveLayouts are accepted for timestamps without a zone, read as UTC.
var naiveLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999", "2006-01-02"}

// ParseTimestamp accepts RFC 3339 and zone-less ISO 8601 forms. The result is UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q is not ISO 8601", model.ErrInvalidEvent, s)
}

// EventRequest is an inbound event. Count defaults to 1 when omitted.
type EventRequest struct {
	Timestamp     string  `json:"timestamp"`
	WorkerID      string  `json:"worker_id"`
	WorkstationID string  `json:"workstation_id"`
	EventType     string  `json:"event_type"`
	Confidence    float64 `json:"confidence"`
	Count         *int    `json:"count,omitempty"`
}

// ToEvent parses r into a domain event. Range checks are left to Event.Validate.
func (r EventRequest) ToEvent() (model.Event, error) {
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return model.Event{}, err
	}
	kind, err := model.ParseKind(r.EventType)
	if err != nil {
		return model.Event{}, err
	}
	count := 1
	if r.Count != nil {
		count = *r.Count
	}
	return model.Event{
		Timestamp:     ts,
		WorkerID:      r.WorkerID,
		WorkstationID: r.WorkstationID,
		Kind:          kind,
		Confidence:    r.Confidence,
		Count:         count,
	}, nil
}

// Label names the payload like model.Event.Label, from the raw fields. It is
// empty when worker_id or timestamp is missing.
func (r EventRequest) Label() string {
	if r.WorkerID == "" || r.Timestamp == "" {
		return ""
	}
	ts := r.Timestamp
	if t, err := ParseTimestamp(r.Timestamp); err == nil {
		ts = t.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s@%s %s", r.WorkerID, r.WorkstationID, ts)
}

// EventRequestFrom renders ev as an inbound payload, as senders publish it.
func EventRequestFrom(ev model.Event) EventRequest {
	count := ev.Count
	return EventRequest{
		Timestamp:     ev.Timestamp.UTC().Format(time.RFC3339Nano),
		WorkerID:      ev.WorkerID,
		WorkstationID: ev.WorkstationID,
		EventType:     ev.Kind.String(),
		Confidence:    ev.Confidence,
		Count:         &count,
	}
}

// EventResponse is a stored event.
type EventResponse struct {
	ID            int64      `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	WorkerID      string     `json:"worker_id"`
	WorkstationID string     `json:"workstation_id"`
	EventType     model.Kind `json:"event_type"`
	Confidence    float64    `json:"confidence"`
	Count         int        `json:"count"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewEventResponse maps a stored event.
func NewEventResponse(ev model.Event) EventResponse {
	return EventResponse{
		ID:            ev.ID,
		Timestamp:     ev.Timestamp.UTC(),
		WorkerID:      ev.WorkerID,
		WorkstationID: ev.WorkstationID,
		EventType:     ev.Kind,
		Confidence:    ev.Confidence,
		Count:         ev.Count,
		CreatedAt:     ev.CreatedAt.UTC(),
	}
}

// DuplicateResponse is returned when a single event was already stored.
type DuplicateResponse struct {
	Message string        `json:"message"`
	Event   EventResponse `json:"event"`
}

// BatchRequest carries raw items so one malformed event does not fail the rest.
type BatchRequest struct {
	Events []json.RawMessage `json:"events"`
}

// BatchResponse summarizes a batch ingestion.
type BatchResponse struct {
	SuccessCount   int      `json:"success_count"`
	DuplicateCount int      `json:"duplicate_count"`
	ErrorCount     int      `json:"error_count"`
	Errors         []string `json:"errors"`
}

// WorkerResponse is a roster entry.
type WorkerResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Shift      string    `json:"shift,omitempty"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewWorkerResponse maps a worker.
func NewWorkerResponse(w model.Worker) WorkerResponse {
	return WorkerResponse{ID: w.ID, Name: w.Name, Shift: w.Shift, Department: w.Department, CreatedAt: w.CreatedAt.UTC()}
}

// WorkstationResponse is a roster entry.
type WorkstationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location,omitempty"`
	Type      string    `json:"type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewWorkstationResponse maps a workstation.
func NewWorkstationResponse(ws model.Workstation) WorkstationResponse {
	return WorkstationResponse{ID: ws.ID, Name: ws.Name, Location: ws.Location, Type: ws.Type, CreatedAt: ws.CreatedAt.UTC()}
}

// WorkerMetrics is the presentation of kpi.WorkerMetrics.
type WorkerMetrics struct {
	WorkerID              string     `json:"worker_id"`
	WorkerName            string     `json:"worker_name"`
	TotalActiveTimeHours  float64    `json:"total_active_time_hours"`
	TotalIdleTimeHours    float64    `json:"total_idle_time_hours"`
	UtilizationPercentage float64    `json:"utilization_percentage"`
	TotalUnitsProduced    int        `json:"total_units_produced"`
	UnitsPerHour          float64    `json:"units_per_hour"`
	LastSeen              *time.Time `json:"last_seen"`
}

// NewWorkerMetrics rounds m for output.
func NewWorkerMetrics(m kpi.WorkerMetrics) WorkerMetrics {
	return WorkerMetrics{
		WorkerID:              m.WorkerID,
		WorkerName:            m.WorkerName,
		TotalActiveTimeHours:  round2(m.WorkingHours),
		TotalIdleTimeHours:    round2(m.IdleHours),
		UtilizationPercentage: round2(m.Utilization),
		TotalUnitsProduced:    m.Units,
		UnitsPerHour:          round2(m.UnitsPerHour),
		LastSeen:              m.LastSeen,
	}
}

// WorkstationMetrics is the presentation of kpi.WorkstationMetrics.
type WorkstationMetrics struct {
	WorkstationID         string     `json:"workstation_id"`
	WorkstationName       string     `json:"workstation_name"`
	OccupancyTimeHours    float64    `json:"occupancy_time_hours"`
	UtilizationPercentage float64    `json:"utilization_percentage"`
	TotalUnitsProduced    int        `json:"total_units_produced"`
	ThroughputRate        float64    `json:"throughput_rate"`
	LastActivity          *time.Time `json:"last_activity"`
}

// NewWorkstationMetrics rounds m for output.
func NewWorkstationMetrics(m kpi.WorkstationMetrics) WorkstationMetrics {
	return WorkstationMetrics{
		WorkstationID:         m.WorkstationID,
		WorkstationName:       m.WorkstationName,
		OccupancyTimeHours:    round2(m.OccupancyHours),
		UtilizationPercentage: round2(m.Utilization),
		TotalUnitsProduced:    m.Units,
		ThroughputRate:        round2(m.Throughput),
		LastActivity:          m.LastActivity,
	}
}

// FactoryMetrics is the presentation of kpi.FactoryMetrics.
type FactoryMetrics struct {
	TotalProductiveTimeHours     float64    `json:"total_productive_time_hours"`
	TotalProductionCount         int        `json:"total_production_count"`
	AverageUtilizationPercentage float64    `json:"average_utilization_percentage"`
	AverageProductionRate        float64    `json:"average_production_rate"`
	ActiveWorkers                int        `json:"active_workers"`
	ActiveWorkstations           int        `json:"active_workstations"`
	TimeRangeStart               *time.Time `json:"time_range_start"`
	TimeRangeEnd                 *time.Time `json:"time_range_end"`
}

// NewFactoryMetrics rounds f for output.
func NewFactoryMetrics(f kpi.FactoryMetrics) FactoryMetrics {
	return FactoryMetrics{
		TotalProductiveTimeHours:     round2(f.ProductiveHours),
		TotalProductionCount:         f.Units,
		AverageUtilizationPercentage: round2(f.AvgUtilization),
		AverageProductionRate:        round2(f.AvgRate),
		ActiveWorkers:                f.ActiveWorkers,
		ActiveWorkstations:           f.ActiveWorkstations,
		TimeRangeStart:               f.Start,
		TimeRangeEnd:                 f.End,
	}
}

// ModelHealth is the drift report.
type ModelHealth struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	AvgConfidence  float64 `json:"avg_confidence"`
	Samples        int     `json:"samples"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// NewModelHealth maps r, rounding the mean to 4 decimals.
func NewModelHealth(r drift.Report) ModelHealth {
	return ModelHealth{
		Status:         r.Status.String(),
		Message:        r.Message,
		AvgConfidence:  Round(r.AvgConfidence, 4),
		Samples:        r.Samples,
		Recommendation: r.Recommendation,
	}
}

// Heatmap is the hourly utilization series.
type Heatmap struct {
	Labels         []string  `json:"labels"`
	Data           []float64 `json:"data"`
	Peaks          []string  `json:"peaks"`
	AvgUtilization float64   `json:"avg_utilization"`
}

// NewHeatmap rounds h for output.
func NewHeatmap(h heatmap.Heatmap) Heatmap {
	out := Heatmap{
		Labels:         append([]string{}, h.Labels...),
		Data:           make([]float64, len(h.Data)),
		Peaks:          append([]string{}, h.Peaks...),
		AvgUtilization: round2(h.AvgUtilization),
	}
	for i, v := range h.Data {
		out.Data[i] = round2(v)
	}
	return out
}

// SeedResponse reports a seeding run.
type SeedResponse struct {
	Message             string `json:"message"`
	WorkersCreated      int    `json:"workers_created"`
	WorkstationsCreated int    `json:"workstations_created"`
	EventsCreated       int    `json:"events_created"`
}

// Info describes the running service.
type Info struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Status        string `json:"status"`
	Environment   string `json:"environment"`
	Documentation string `json:"documentation"`
}

// Health is the liveness report.
type Health struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Database    string    `json:"database"`
	Environment string    `json:"environment"`
}
