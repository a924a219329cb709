package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "floorwatch")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("plant"),
				WithSubsystem("line"),
				WithHistogramBuckets([]float64{1, 2}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.eventsIngested.WithLabelValues("http").Inc()

			Convey("Then the options are applied to every metric", func() {
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 2})
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "plant_line_events_ingested_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "floorwatch")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager reconfigured for a plant", t, func() {
		Configure(WithNamespace("plant"), WithConstLabels(map[string]string{"environment": "staging"}))
		defer Configure()

		Convey("When an event is recorded", func() {
			RecordEventIngested("http")

			Convey("Then the served registry uses the new names and labels", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() == "plant_events_ingested_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "environment")
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "staging")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestIngestionCounters(t *testing.T) {
	Convey("Given the global manager", t, func() {
		before := testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("kafka"))
		dupBefore := testutil.ToFloat64(globalManager.eventsDuplicate.WithLabelValues("kafka"))
		rejBefore := testutil.ToFloat64(globalManager.eventsRejected.WithLabelValues("kafka", "validation"))

		Convey("When ingestion outcomes are recorded", func() {
			RecordEventIngested("kafka")
			RecordEventIngested("kafka")
			RecordEventDuplicate("kafka")
			RecordEventRejected("kafka", "validation")

			Convey("Then each counter moves by its own amount", func() {
				So(testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("kafka")), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.eventsDuplicate.WithLabelValues("kafka")), ShouldEqual, dupBefore+1)
				So(testutil.ToFloat64(globalManager.eventsRejected.WithLabelValues("kafka", "validation")), ShouldEqual, rejBefore+1)
			})
		})

		Convey("When the stored event count is set", func() {
			UpdateStoredEvents(42)
			So(testutil.ToFloat64(globalManager.storedEvents), ShouldEqual, 42)
		})
	})
}

func TestModelHealthGauges(t *testing.T) {
	Convey("Given a drift assessment", t, func() {
		Convey("When it is published", func() {
			UpdateModelHealth("Caution", 0.8, 100)

			Convey("Then only the current status is set", func() {
				So(testutil.ToFloat64(globalManager.driftStatus.WithLabelValues("Caution")), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.driftStatus.WithLabelValues("Healthy")), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.driftStatus.WithLabelValues("Warning")), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.driftConfidence), ShouldEqual, 0.8)
				So(testutil.ToFloat64(globalManager.driftSamples), ShouldEqual, 100)
			})
		})

		Convey("When the status changes", func() {
			UpdateModelHealth("Caution", 0.8, 100)
			UpdateModelHealth("Healthy", 0.9, 100)

			Convey("Then the previous status is cleared", func() {
				So(testutil.ToFloat64(globalManager.driftStatus.WithLabelValues("Caution")), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.driftStatus.WithLabelValues("Healthy")), ShouldEqual, 1)
			})
		})
	})
}

func TestRecordersDoNotPanic(t *testing.T) {
	Convey("Given every package-level recorder", t, func() {
		So(func() {
			RecordIngestLatency(1.5)
			RecordBatchSize(50)
			RecordStoreLatency("insert_event", 0.3)
			RecordStoreError("insert_event")
			RecordAnalyticsLatency("workers", 2)
			RecordHTTPRequest("/api/events", "POST", "201")
			RecordHTTPRequestDuration("/api/events", "POST", "201", 3)
			RecordHTTPRateLimited("/api/events")
			RecordStreamMessage("mqtt")
			RecordStreamDecodeError("mqtt")
			UpdateQueueSize(3)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.3)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordQueueProcessingLatency(1)
			UpdateWorkerCount(4)
			UpdateWorkerActiveCount(1)
			UpdateWorkerIdleCount(3)
			RecordWorkerProcessingLatency(1)
			RecordWorkerError()
			RecordErrorByComponent("ingest", "storage")
			CollectSystem()
		}, ShouldNotPanic)
	})
}

func TestSystemCollector(t *testing.T) {
	Convey("Given a running system collector", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			RunSystemCollector(ctx, 5*time.Millisecond)
			close(done)
		}()
		time.Sleep(20 * time.Millisecond)

		Convey("When the context is cancelled", func() {
			cancel()

			Convey("Then the collector returns and goroutines were sampled", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("collector did not stop")
				}
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		before := testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("concurrency"))
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					RecordEventIngested("concurrency")
				}
			}()
		}
		wg.Wait()

		So(testutil.ToFloat64(globalManager.eventsIngested.WithLabelValues("concurrency")), ShouldEqual, before+1000)
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordEventIngested("http")
		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)
		So(len(families), ShouldBeGreaterThan, 0)
	})
}
