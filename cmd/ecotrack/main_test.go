package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	service "github.com/okian/ecotrack/internal/app"
	"github.com/okian/ecotrack/internal/config"
	"github.com/okian/ecotrack/pkg/logger"
	"github.com/okian/ecotrack/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler built from default config", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.RateLimitRPS = 1
		cfg.RateLimitBurst = 3

		svc := service.New(service.WithLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h, limiter, err := newHandler(ctx, cfg, svc, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		convey.So(limiter, convey.ShouldNotBeNil)

		call := func(method, path, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, path, strings.NewReader(body))
			if body != "" {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		convey.Convey("When hitting each surface", func() {
			page := call(http.MethodGet, "/", "")
			estimate := call(http.MethodPost, "/api/estimate", "transport=10&meals=2&electricity=5")
			docs := call(http.MethodGet, "/openapi.yaml", "")

			convey.Convey("Then the site, API and docs are all routed", func() {
				convey.So(page.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(page.Body.String(), convey.ShouldContainSubstring, "<form")
				convey.So(estimate.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(estimate.Body.String(), convey.ShouldContainSubstring, `"tier":"MODERATE"`)
				convey.So(docs.Code, convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("And the burst is enforced across routes", func() {
				convey.So(call(http.MethodGet, "/stats", "").Code, convey.ShouldEqual, http.StatusTooManyRequests)
				convey.So(limiter.Visitors(), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given a fresh metrics registry", t, func() {
		metrics.Reset()
		svc := service.New(service.WithLogger(logger.Nop()))
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("When updating system and service metrics", func() {
			updateSystemMetrics()
			updateServiceMetrics(svc)

			convey.Convey("Then the gauges are exported", func() {
				n, err := testutil.GatherAndCount(metrics.GetRegistry(),
					"ecotrack_system_goroutines", "ecotrack_session_active")
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 2)
			})
		})
	})
}
