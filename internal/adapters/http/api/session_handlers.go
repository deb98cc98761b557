package api

import (
	"errors"
	"net/http"

	"github.com/okian/ecotrack/internal/adapters/http/session"
	"github.com/okian/ecotrack/internal/adapters/repository"
	"github.com/okian/ecotrack/internal/domain/model"
)

// SessionHandler serves the load and reset actions.
type SessionHandler struct {
	deps     Estimator
	sessions *session.Manager
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Estimator, sessions *session.Manager) *SessionHandler {
	return &SessionHandler{deps: deps, sessions: sessions}
}

// HandleGetSession handles GET /api/session: the restored view plus the
// session's records.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	id := h.sessions.ID(w, r)
	out, records, err := h.deps.Snapshot(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrCorrupt):
		// An unreadable log shows idle and lists nothing.
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", WrapKind(op, ErrStorage, err))
		return
	}
	if records == nil {
		records = []model.EstimateRecord{}
	}
	writeJSON(w, http.StatusOK, sessionResponse{outcomeResponse: newOutcomeResponse(out), Records: records})
}

// HandleReset handles POST /api/reset.
func (h *SessionHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, newOutcomeResponse(h.deps.Reset(r.Context())))
}
