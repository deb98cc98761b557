package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/okian/ecotrack/internal/adapters/http/api"
	"github.com/okian/ecotrack/internal/adapters/http/session"
	"github.com/okian/ecotrack/internal/adapters/repository"
	service "github.com/okian/ecotrack/internal/app"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type outcomeBody struct {
	State     string   `json:"state"`
	Message   string   `json:"message"`
	ErrorText string   `json:"error_text"`
	Total     *float64 `json:"total"`
	Tier      string   `json:"tier"`
	Persisted *bool    `json:"persisted"`
	Errors    []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
	Record *struct {
		Transport float64 `json:"transport"`
		Meals     int     `json:"meals"`
		Energy    float64 `json:"energy"`
		Total     float64 `json:"total"`
		TS        string  `json:"ts"`
	} `json:"record"`
	Records []json.RawMessage `json:"records"`
}

func newTestMux() (*http.ServeMux, *service.Service) {
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithClock(service.ClockFunc(func() time.Time {
			return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
		})),
	)
	So(svc.Start(context.Background()), ShouldBeNil)
	mux := http.NewServeMux()
	api.NewServer(svc, session.NewManager("", false), svc).Register(context.Background(), mux)
	return mux, svc
}

func do(mux http.Handler, req *http.Request) (*httptest.ResponseRecorder, outcomeBody) {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	var body outcomeBody
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
	}
	return rec, body
}

func withCookie(req *http.Request, c *http.Cookie) *http.Request {
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestEstimateEndpoint(t *testing.T) {
	Convey("Given the API mux", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("When posting the worked example as JSON numbers", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader(`{"transport":10,"meals":2,"electricity":5}`))
			req.Header.Set("Content-Type", "application/json")
			rec, body := do(mux, req)

			Convey("Then the estimate is returned and persisted", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body.State, ShouldEqual, "result_shown")
				So(*body.Total, ShouldAlmostEqual, 7.7, 1e-9)
				So(body.Tier, ShouldEqual, "MODERATE")
				So(*body.Persisted, ShouldBeTrue)
				So(body.Record.TS, ShouldEqual, "2026-10-15T09:00:00.000Z")
				So(body.Record.Meals, ShouldEqual, 2)
			})

			Convey("And a session cookie is issued", func() {
				cookies := rec.Result().Cookies()
				So(cookies, ShouldHaveLength, 1)
				So(cookies[0].Name, ShouldEqual, session.DefaultCookieName)
				So(cookies[0].HttpOnly, ShouldBeTrue)
			})
		})

		Convey("When posting strings and a form body", func() {
			jsonReq := httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader(`{"transport":"100","meals":"2","energy":" 1kWh"}`))
			_, jsonBody := do(mux, jsonReq)

			formReq := httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader("transport=100&meals=2&electricity=1"))
			formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			_, formBody := do(mux, formReq)

			Convey("Then both are coerced the same way", func() {
				So(*jsonBody.Total, ShouldAlmostEqual, 17.3, 1e-9)
				So(jsonBody.Tier, ShouldEqual, "HIGH")
				So(*formBody.Total, ShouldEqual, *jsonBody.Total)
			})
		})

		Convey("When posting invalid values", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader(`{"transport":-1,"meals":1.5,"electricity":-2}`))
			rec, body := do(mux, req)

			Convey("Then 422 lists every error in field order", func() {
				So(rec.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(body.State, ShouldEqual, "idle")
				So(body.Total, ShouldBeNil)
				So(body.Errors, ShouldHaveLength, 3)
				So(body.Errors[0].Field, ShouldEqual, "transport")
				So(body.Errors[1].Field, ShouldEqual, "meals")
				So(body.Errors[2].Field, ShouldEqual, "energy")
				So(body.ErrorText, ShouldContainSubstring, ". ")
			})
		})

		Convey("When the body is not JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader(`{`))
			rec, _ := do(mux, req)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using the wrong method", func() {
			rec, _ := do(mux, httptest.NewRequest(http.MethodGet, "/api/estimate", nil))
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(rec.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})
	})
}

func TestSessionEndpoints(t *testing.T) {
	Convey("Given the API mux", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("When loading a fresh session", func() {
			rec, body := do(mux, httptest.NewRequest(http.MethodGet, "/api/session", nil))

			Convey("Then the idle prompt is shown without records", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body.State, ShouldEqual, "idle")
				So(body.Message, ShouldStartWith, "Fill in the form")
				So(body.Records, ShouldBeEmpty)
			})
		})

		Convey("When loading after two submissions in the same session", func() {
			first, _ := do(mux, httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader(`{"transport":10,"meals":2,"electricity":5}`)))
			cookie := first.Result().Cookies()[0]
			do(mux, withCookie(httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader(`{"meals":6}`)), cookie))

			rec, body := do(mux, withCookie(httptest.NewRequest(http.MethodGet, "/api/session", nil), cookie))

			Convey("Then the last total is restored with the full log", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Result().Cookies(), ShouldBeEmpty)
				So(body.State, ShouldEqual, "result_shown")
				So(body.Message, ShouldEqual, "Last session: 15.00 kg CO₂ (saved in session).")
				So(body.Records, ShouldHaveLength, 2)
			})

			Convey("And another browser session sees nothing", func() {
				_, other := do(mux, httptest.NewRequest(http.MethodGet, "/api/session", nil))
				So(other.State, ShouldEqual, "idle")
			})
		})

		Convey("When submissions land while the session is being loaded", func() {
			first, _ := do(mux, httptest.NewRequest(http.MethodPost, "/api/estimate",
				strings.NewReader(`{"meals":1}`)))
			cookie := first.Result().Cookies()[0]

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 2; i <= 200; i++ {
					svc.Submit(context.Background(), cookie.Value,
						types.RawInput{Meals: strconv.Itoa(i)})
				}
			}()

			var mismatches []string
			for range 200 {
				_, body := do(mux, withCookie(httptest.NewRequest(http.MethodGet, "/api/session", nil), cookie))
				var last struct {
					Total float64 `json:"total"`
				}
				if err := json.Unmarshal(body.Records[len(body.Records)-1], &last); err != nil {
					mismatches = append(mismatches, err.Error())
					continue
				}
				if want := footprint.RestoredMessage(last.Total); body.Message != want {
					mismatches = append(mismatches, body.Message+" != "+want)
				}
			}
			wg.Wait()

			Convey("Then every response shows the total of its own last record", func() {
				So(mismatches, ShouldBeEmpty)
			})
		})

		Convey("When resetting", func() {
			rec, body := do(mux, httptest.NewRequest(http.MethodPost, "/api/reset", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(body.State, ShouldEqual, "idle")
			So(body.ErrorText, ShouldBeEmpty)
		})
	})
}

func TestSessionEndpointStorageFailures(t *testing.T) {
	Convey("Given stores that fail to read", t, func() {
		serve := func(store repository.Store) (*httptest.ResponseRecorder, outcomeBody) {
			svc := service.New(service.WithLogger(logger.Nop()), service.WithStore(store))
			So(svc.Start(context.Background()), ShouldBeNil)
			defer svc.Stop()
			mux := http.NewServeMux()
			api.NewServer(svc, session.NewManager("", false), svc).Register(context.Background(), mux)
			return do(mux, httptest.NewRequest(http.MethodGet, "/api/session", nil))
		}

		Convey("When the stored log is corrupt", func() {
			rec, body := serve(stubStore{data: []byte("{not json")})

			Convey("Then the idle view is served with no records", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(body.State, ShouldEqual, "idle")
				So(body.Records, ShouldBeEmpty)
			})
		})

		Convey("When the store is unavailable", func() {
			rec, _ := serve(stubStore{err: repository.ErrUnavailable})
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(rec.Body.String(), ShouldContainSubstring, "storage_unavailable")
		})
	})
}

type stubStore struct {
	data []byte
	err  error
}

func (s stubStore) Get(context.Context, string, string) ([]byte, bool, error) {
	return s.data, s.data != nil, s.err
}

func (s stubStore) Set(context.Context, string, string, []byte) error { return s.err }

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API mux", t, func() {
		mux, svc := newTestMux()
		defer svc.Stop()

		Convey("When scraping /healthz after a request", func() {
			do(mux, httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader(`{}`)))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then Prometheus text is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "ecotrack_http_requests_total")
				So(rec.Body.String(), ShouldContainSubstring, "ecotrack_footprint_submissions_total")
			})
		})

		Convey("When reading /stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
			var stats map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &stats), ShouldBeNil)

			Convey("Then service stats are returned", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats, ShouldContainKey, "factors")
				So(rec.Header().Get("Cache-Control"), ShouldEqual, "no-store")
			})
		})
	})
}
