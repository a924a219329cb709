package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	eventqueue "github.com/okian/floorwatch/internal/adapters/mq/queue"
	service "github.com/okian/floorwatch/internal/app"
	"github.com/okian/floorwatch/internal/config"
	"github.com/okian/floorwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 1, 21, 18, 0, 0, 0, time.UTC)

func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.StoreDriver = config.DriverMemory
	cfg.WorkerCount = 2
	cfg.QueueSize = 100
	return cfg
}

func newService(cfg *config.Config, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithClock(func() time.Time { return now }),
		service.WithSystemMetricsInterval(0),
	}
	return service.New(cfg, append(base, opts...)...)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service over the memory store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svc := newService(memoryConfig())

		Convey("When it has not been started", func() {
			Convey("Then stats report it stopped and Stop is a no-op", func() {
				So(svc.Stats(ctx)["started"], ShouldEqual, false)
				So(svc.Stop(ctx), ShouldBeNil)
			})

			Convey("Then enqueueing is refused", func() {
				err := svc.Enqueue(ctx, eventqueue.Item{})
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When it is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then stats describe the running pipeline", func() {
				stats := svc.Stats(ctx)
				So(stats["started"], ShouldEqual, true)
				So(stats["store"], ShouldEqual, config.DriverMemory)
				So(stats["workerCount"], ShouldEqual, 2)
				So(stats["queueCapacity"], ShouldEqual, 100)
				So(stats["storedEvents"], ShouldEqual, int64(0))
				So(stats["kafka"], ShouldEqual, false)
				So(stats["mqtt"], ShouldEqual, false)
			})

			Convey("Then starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("Then every API dependency is provided", func() {
				deps := svc.Dependencies()
				So(deps.Ingest, ShouldNotBeNil)
				So(deps.Analytics, ShouldNotBeNil)
				So(deps.Seeder, ShouldNotBeNil)
				So(deps.Store, ShouldNotBeNil)
				So(deps.Stats, ShouldNotBeNil)
			})

			Convey("And then stopped", func() {
				So(svc.Stop(ctx), ShouldBeNil)

				Convey("Then it reports stopped", func() {
					So(svc.Stats(ctx)["started"], ShouldEqual, false)
				})
			})
		})
	})
}

func TestService_ConfigIsCopied(t *testing.T) {
	Convey("Given a service built from a loaded config", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg := memoryConfig()
		svc := newService(cfg)

		Convey("When the caller changes the config afterwards", func() {
			cfg.WorkerCount = 7
			cfg.StoreDriver = "postgres"
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then the service keeps the values it was built with", func() {
				stats := svc.Stats(ctx)
				So(stats["store"], ShouldEqual, config.DriverMemory)
				So(stats["workerCount"], ShouldEqual, 2)
			})
		})
	})

	Convey("Given no config", t, func() {
		Convey("Then New falls back to the defaults", func() {
			svc := service.New(nil, service.WithLogger(logger.Nop()))
			stats := svc.Stats(context.Background())
			So(stats["started"], ShouldEqual, false)
			So(stats["store"], ShouldEqual, config.DriverSQLite)
		})
	})
}

func TestService_StoreDrivers(t *testing.T) {
	Convey("Given store driver settings", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When the sqlite driver points at a temp file", func() {
			cfg := memoryConfig()
			cfg.StoreDriver = config.DriverSQLite
			cfg.DatabasePath = filepath.Join(t.TempDir(), "floorwatch.db")
			svc := newService(cfg)
			err := svc.Start(ctx)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then the database is created and pingable", func() {
				So(err, ShouldBeNil)
				_, statErr := os.Stat(cfg.DatabasePath)
				So(statErr, ShouldBeNil)
				So(svc.Dependencies().Store.Ping(ctx), ShouldBeNil)
			})
		})

		Convey("When the driver is unknown", func() {
			cfg := memoryConfig()
			cfg.StoreDriver = "postgres"
			err := newService(cfg).Start(ctx)

			Convey("Then Start fails with ErrOpenStore", func() {
				So(errors.Is(err, service.ErrOpenStore), ShouldBeTrue)
			})
		})
	})
}

func TestService_SeedOnStart(t *testing.T) {
	Convey("Given seed_on_start", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg := memoryConfig()
		cfg.SeedOnStart = true
		svc := newService(cfg)

		Convey("When the service starts on an empty store", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			Convey("Then the roster and a day of events are loaded", func() {
				workers, err := svc.Dependencies().Store.ListWorkers(ctx)
				So(err, ShouldBeNil)
				So(len(workers), ShouldEqual, 6)
				So(svc.Stats(ctx)["storedEvents"], ShouldBeGreaterThan, int64(0))
			})
		})
	})
}

func TestService_SourceConfig(t *testing.T) {
	Convey("Given Kafka brokers without a topic", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg := memoryConfig()
		cfg.KafkaBrokers = "localhost:9092"
		cfg.KafkaTopic = ""
		svc := newService(cfg)

		Convey("When the service starts", func() {
			err := svc.Start(ctx)

			Convey("Then Start fails with ErrSource and leaves the service stopped", func() {
				So(errors.Is(err, service.ErrSource), ShouldBeTrue)
				So(svc.Stats(ctx)["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given an MQTT broker without a topic", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cfg := memoryConfig()
		cfg.MQTTBroker = "tcp://localhost:1883"
		cfg.MQTTTopic = ""

		Convey("Then Start fails with ErrSource", func() {
			err := newService(cfg).Start(ctx)
			So(errors.Is(err, service.ErrSource), ShouldBeTrue)
		})
	})
}
