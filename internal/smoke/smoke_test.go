package smoke_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/ecotrack/internal/adapters/http/api"
	"github.com/okian/ecotrack/internal/adapters/http/session"
	service "github.com/okian/ecotrack/internal/app"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/smoke"
	"github.com/okian/ecotrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithWriter(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
}

func newServer(opts ...service.Option) (*httptest.Server, *service.Service) {
	svc := service.New(append([]service.Option{service.WithLogger(logger.Nop())}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, session.NewManager("", false), svc).Register(context.Background(), mux)
	return httptest.NewServer(mux), svc
}

func baseConfig(url string) *smoke.Config {
	return &smoke.Config{
		BaseURL:     url,
		Sessions:    6,
		Submissions: 4,
		Workers:     3,
		Timeout:     5 * time.Second,
		Seed:        42,
		InvalidRate: 0.25,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv, svc := newServer()
		defer srv.Close()
		defer svc.Stop()

		Convey("When running the smoke test", func() {
			stats, err := smoke.Run(context.Background(), baseConfig(srv.URL))

			Convey("Then every answer verifies", func() {
				So(err, ShouldBeNil)
				So(stats.Sessions, ShouldEqual, 6)
				So(stats.Submitted, ShouldEqual, 24)
				So(stats.Accepted+stats.Rejected, ShouldEqual, 24)
				So(stats.Restored, ShouldEqual, 6)
				So(stats.Mismatches, ShouldEqual, 0)
				So(svc.ActiveSessions(), ShouldBeLessThanOrEqualTo, 6)
			})
		})
	})

	Convey("Given a service whose store rejects writes", t, func() {
		srv, svc := newServer(service.WithStore(fullStore{}))
		defer srv.Close()
		defer svc.Stop()

		Convey("When running with only valid samples", func() {
			cfg := baseConfig(srv.URL)
			cfg.InvalidRate = 0
			stats, err := smoke.Run(context.Background(), cfg)

			Convey("Then results are shown but nothing is saved", func() {
				So(err, ShouldBeNil)
				So(stats.NotSaved, ShouldEqual, 24)
				So(stats.Restored, ShouldEqual, 6)
			})
		})
	})

	Convey("Given a service that answers wrongly", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Path == "/healthz" {
				return
			}
			_, _ = w.Write([]byte(`{"state":"result_shown","message":"x","total":1,"tier":"HIGH","persisted":true}`))
		}))
		defer srv.Close()

		Convey("When running the smoke test", func() {
			stats, err := smoke.Run(context.Background(), baseConfig(srv.URL))

			Convey("Then mismatches are reported", func() {
				So(errors.Is(err, smoke.ErrMismatch), ShouldBeTrue)
				So(stats.Mismatches, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given an unreachable service", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := smoke.Run(context.Background(), baseConfig(url))
		So(err, ShouldNotBeNil)
	})

	Convey("Given an invalid config", t, func() {
		cfg := baseConfig("http://localhost")
		cfg.Workers = 0
		_, err := smoke.Run(context.Background(), cfg)
		So(errors.Is(err, smoke.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := smoke.NewGenerator(7, 0.5)
		b := smoke.NewGenerator(7, 0.5)

		Convey("Then they produce the same inputs", func() {
			for range 50 {
				x, y := a.Next(), b.Next()
				So(x.Transport, ShouldEqual, y.Transport)
				So(x.Meals, ShouldEqual, y.Meals)
				So(x.Electricity, ShouldEqual, y.Electricity)
				So(x.Valid, ShouldEqual, y.Valid)
				So(x.ID, ShouldNotEqual, y.ID)
			}
		})
	})

	Convey("Given a generator of valid samples", t, func() {
		g := smoke.NewGenerator(1, 0)

		Convey("Then expected totals follow the domain rules", func() {
			for range 100 {
				s := g.Next()
				So(s.Valid, ShouldBeTrue)
				So(footprint.ParseField(s.Transport), ShouldEqual, s.Want.TransportKm)
				So(footprint.ParseField(s.Electricity), ShouldEqual, s.Want.EnergyKWh)
				So(s.WantTier, ShouldEqual, footprint.Classify(s.WantTotal))
			}
		})
	})

	Convey("Given a generator of invalid samples", t, func() {
		g := smoke.NewGenerator(1, 1)

		Convey("Then each sample fails validation on its listed fields", func() {
			for range 100 {
				s := g.Next()
				So(s.Valid, ShouldBeFalse)
				errs := footprint.Validate(
					footprint.ParseField(s.Transport),
					footprint.ParseField(s.Meals),
					footprint.ParseField(s.Electricity),
				)
				So(errs, ShouldHaveLength, len(s.InvalidOf))
				for i, e := range errs {
					So(e.Field, ShouldEqual, s.InvalidOf[i])
				}
			}
		})
	})
}

type fullStore struct{}

func (fullStore) Get(context.Context, string, string) ([]byte, bool, error) { return nil, false, nil }

func (fullStore) Set(context.Context, string, string, []byte) error {
	return errors.New("storage full")
}
