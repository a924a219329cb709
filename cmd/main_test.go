package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	app "github.com/okian/floorwatch/internal/app"
	"github.com/okian/floorwatch/internal/config"
	"github.com/okian/floorwatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given a started service over the memory store", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg := config.New()
		cfg.StoreDriver = config.DriverMemory
		cfg.Addr = ":0"
		cfg.Environment = "test"
		cfg.WorkerCount = 1
		svc := app.New(cfg, app.WithLogger(logger.Nop()), app.WithSystemMetricsInterval(0))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		srv := newHTTPServer(ctx, cfg, svc, logger.Nop())

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then the server carries the configured address and timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
		})

		convey.Convey("Then the API routes are served", func() {
			w := get("/")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, version)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"environment":"test"`)
			convey.So(get("/health").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the docs routes are served beside them", func() {
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}
