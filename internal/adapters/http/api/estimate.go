package api

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/okian/ecotrack/internal/adapters/http/session"
	"github.com/okian/ecotrack/internal/domain/types"
)

// fieldText accepts a JSON number or string and keeps its text, so the
// service applies the same coercion as for form fields.
type fieldText string

func (f *fieldText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = fieldText(s)
	default:
		*f = fieldText(b)
	}
	return nil
}

// estimateRequest mirrors the three form fields. energy is accepted as an
// alias of electricity.
type estimateRequest struct {
	Transport   fieldText `json:"transport"`
	Meals       fieldText `json:"meals"`
	Electricity fieldText `json:"electricity"`
	Energy      fieldText `json:"energy"`
}

func (e estimateRequest) raw() types.RawInput {
	electricity := e.Electricity
	if electricity == "" {
		electricity = e.Energy
	}
	return types.RawInput{
		Transport:   string(e.Transport),
		Meals:       string(e.Meals),
		Electricity: string(electricity),
	}
}

// EstimateHandler handles submissions.
type EstimateHandler struct {
	deps     Estimator
	sessions *session.Manager
}

// NewEstimateHandler creates a new estimate handler.
func NewEstimateHandler(deps Estimator, sessions *session.Manager) *EstimateHandler {
	return &EstimateHandler{deps: deps, sessions: sessions}
}

// HandlePostEstimate handles POST /api/estimate with a JSON or form body.
// Invalid input yields 422 with every validation error.
func (h *EstimateHandler) HandlePostEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_estimate"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	req, err := decodeEstimate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id := h.sessions.ID(w, r)
	out := h.deps.Submit(r.Context(), id, req.raw())
	status := http.StatusOK
	if !out.Valid() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, newOutcomeResponse(out))
}

func decodeEstimate(r *http.Request) (estimateRequest, error) {
	var req estimateRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Transport = fieldText(r.PostForm.Get("transport"))
		req.Meals = fieldText(r.PostForm.Get("meals"))
		req.Electricity = fieldText(r.PostForm.Get("electricity"))
		req.Energy = fieldText(r.PostForm.Get("energy"))
		return req, nil
	default:
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}
}
