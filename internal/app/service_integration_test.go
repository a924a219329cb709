package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/floorwatch/internal/adapters/http/api"
	eventqueue "github.com/okian/floorwatch/internal/adapters/mq/queue"
	"github.com/okian/floorwatch/internal/adapters/repository"
	"github.com/okian/floorwatch/internal/domain/model"
	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/internal/ingest"
	. "github.com/smartystreets/goconvey/convey"
)

func streamItem(i int) eventqueue.Item {
	return eventqueue.Item{
		Event: model.Event{
			// well before the seeded day so keys never collide
			Timestamp:     now.Add(-72*time.Hour + time.Duration(i)*time.Minute),
			WorkerID:      "W1",
			WorkstationID: "S1",
			Kind:          model.KindWorking,
			Confidence:    0.9,
			Count:         1,
		},
		Source:   ingest.SourceKafka,
		Received: time.Now(),
	}
}

func waitForEvents(ctx context.Context, store api.Reader, f repository.EventFilter, want int) int {
	deadline := time.Now().Add(5 * time.Second)
	for {
		evs, _ := store.QueryEvents(ctx, f, 0)
		if len(evs) >= want || time.Now().After(deadline) {
			return len(evs)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with a seeded roster", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc := newService(memoryConfig())
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		deps := svc.Dependencies()
		res, err := deps.Seeder.Seed(ctx, false, 2)
		So(err, ShouldBeNil)
		So(res.WorkersCreated, ShouldEqual, 6)

		start, end := now.Add(-73*time.Hour), now.Add(-71*time.Hour)
		filter := repository.EventFilter{WorkerID: "W1", Window: model.Window{Start: &start, End: &end}}

		Convey("When stream items pass through the queue, each twice", func() {
			for i := 0; i < 10; i++ {
				So(svc.Enqueue(ctx, streamItem(i)), ShouldBeNil)
				So(svc.Enqueue(ctx, streamItem(i)), ShouldBeNil)
			}

			Convey("Then the workers store each event once", func() {
				So(waitForEvents(ctx, deps.Store, filter, 10), ShouldEqual, 10)
				time.Sleep(50 * time.Millisecond)
				evs, err := deps.Store.QueryEvents(ctx, filter, 0)
				So(err, ShouldBeNil)
				So(len(evs), ShouldEqual, 10)
			})
		})

		Convey("When the API is served from the service", func() {
			h := api.NewServer(deps).Handler()
			body, _ := json.Marshal(types.EventRequestFrom(streamItem(0).Event))

			post := func() int {
				req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")
				w := httptest.NewRecorder()
				h.ServeHTTP(w, req)
				return w.Code
			}

			Convey("Then an event posted twice is created then acknowledged as a duplicate", func() {
				So(post(), ShouldEqual, http.StatusCreated)
				So(post(), ShouldEqual, http.StatusOK)
			})

			Convey("Then worker metrics reflect it", func() {
				So(post(), ShouldEqual, http.StatusCreated)
				url := fmt.Sprintf("/api/metrics/workers?worker_id=W1&start_time=%s&end_time=%s",
					start.Format(time.RFC3339), end.Format(time.RFC3339))
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)

				var out []types.WorkerMetrics
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(len(out), ShouldEqual, 1)
				So(out[0].WorkerID, ShouldEqual, "W1")
				So(out[0].TotalActiveTimeHours, ShouldBeGreaterThan, 0)
			})

			Convey("Then /stats serves the service statistics", func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
				So(w.Code, ShouldEqual, http.StatusOK)
				var stats map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
				So(stats["started"], ShouldEqual, true)
				So(stats["workerCount"], ShouldEqual, float64(2))
			})
		})
	})
}
