package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/critic/internal/config"
	"github.com/okian/critic/pkg/logger"
)

func TestNewRouter(t *testing.T) {
	convey.Convey("Given a seeded in-memory service", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.StoreDriver = config.DriverMemory
		cfg.RandomSeed = 11

		svc := newService(cfg, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		h := newRouter(svc, cfg, logger.Nop())

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then the business routes are served", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/contests/next").Code, convey.ShouldEqual, http.StatusOK)

			w := get("/top?group=general")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(strings.Count(w.Body.String(), `"title"`), convey.ShouldEqual, cfg.DefaultPageSize)
		})

		convey.Convey("Then docs and metrics are served", func() {
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/metrics").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then unknown routes are not found", func() {
			convey.So(get("/leaderboard").Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestInitMetrics(t *testing.T) {
	convey.Convey("Given metrics settings in the config", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.DriverMemory
		cfg.MetricsNamespace = "crit"
		cfg.MetricsSubsystem = "api"
		cfg.MetricsBuckets = []float64{1, 10, 100}
		cfg.MetricsLabels = map[string]string{"env": "test"}
		initMetrics(cfg)
		convey.Reset(func() { initMetrics(config.New()) })

		svc := newService(cfg, logger.Nop())
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()
		h := newRouter(svc, cfg, logger.Nop())

		convey.Convey("When a request is served", func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

			convey.Convey("Then collectors carry the configured names and labels", func() {
				body := w.Body.String()
				convey.So(body, convey.ShouldContainSubstring, "crit_api_http_requests_total")
				convey.So(body, convey.ShouldContainSubstring, `env="test"`)
				convey.So(body, convey.ShouldNotContainSubstring, "critic_engine_")
			})
		})
	})
}

func TestRunShutsDown(t *testing.T) {
	convey.Convey("Given a config on a free port", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.DriverMemory
		cfg.Addr = "127.0.0.1:0"
		cfg.ShutdownTimeoutMS = 1000

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Nop()) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run returns cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a refresh does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
