// Package api declares the JSON HTTP binding of the footprint estimator.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/okian/ecotrack/internal/adapters/http/session"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/model"
	"github.com/okian/ecotrack/internal/domain/types"
)

// maxBodyBytes bounds request bodies; three numbers fit comfortably.
const maxBodyBytes = 16 << 10

// Estimator is the service behind the HTTP handlers.
type Estimator interface {
	Submit(ctx context.Context, sessionID string, in types.RawInput) types.Outcome
	Snapshot(ctx context.Context, sessionID string) (types.Outcome, []model.EstimateRecord, error)
	Reset(ctx context.Context) types.Outcome
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	estimateHandler *EstimateHandler
	sessionHandler  *SessionHandler
}

// NewServer creates a new API server with all handlers. stats feed the
// /stats route.
func NewServer(deps Estimator, sessions *session.Manager, stats ...StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(stats...),
		estimateHandler: NewEstimateHandler(deps, sessions),
		sessionHandler:  NewSessionHandler(deps, sessions),
	}
}

// Register attaches all API routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/estimate", MetricsMiddleware(s.estimateHandler.HandlePostEstimate, "estimate"))
	mux.HandleFunc("/api/session", MetricsMiddleware(s.sessionHandler.HandleGetSession, "session"))
	mux.HandleFunc("/api/reset", MetricsMiddleware(s.sessionHandler.HandleReset, "reset"))
}

// outcomeResponse is the JSON form of types.Outcome.
type outcomeResponse struct {
	State     types.State                 `json:"state"`
	Message   string                      `json:"message"`
	ErrorText string                      `json:"error_text,omitempty"`
	Errors    []footprint.ValidationError `json:"errors,omitempty"`
	Total     *float64                    `json:"total,omitempty"`
	Tier      footprint.Tier              `json:"tier,omitempty"`
	Persisted *bool                       `json:"persisted,omitempty"`
	Record    *model.EstimateRecord       `json:"record,omitempty"`
}

// sessionResponse adds the session log to the restored view.
type sessionResponse struct {
	outcomeResponse
	Records []model.EstimateRecord `json:"records"`
}

func newOutcomeResponse(o types.Outcome) outcomeResponse {
	resp := outcomeResponse{
		State:     o.State,
		Message:   o.Message,
		ErrorText: o.ErrorText,
		Errors:    o.Errors,
		Record:    o.Record,
	}
	if o.Record != nil {
		total, persisted := o.Total, o.Persisted
		resp.Total = &total
		resp.Tier = o.Tier
		resp.Persisted = &persisted
	}
	return resp
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
