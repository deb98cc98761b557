// Package site serves the server-rendered footprint form.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/okian/ecotrack/internal/adapters/http/api"
	"github.com/okian/ecotrack/internal/adapters/http/session"
	"github.com/okian/ecotrack/internal/domain/footprint"
	"github.com/okian/ecotrack/internal/domain/types"
	"github.com/okian/ecotrack/pkg/logger"
)

// Error constants.
var (
	ErrTemplate = errors.New("site template failed")
	ErrRender   = errors.New("site render failed")
)

const maxFormBytes = 16 << 10

// Estimator is the subset of the service the form needs.
type Estimator interface {
	Submit(ctx context.Context, sessionID string, in types.RawInput) types.Outcome
	Restore(ctx context.Context, sessionID string) types.Outcome
	Reset(ctx context.Context) types.Outcome
}

// Handler renders the form page for load, calculate and clear.
type Handler struct {
	deps     Estimator
	sessions *session.Manager
	tmpl     *template.Template
	logger   logger.Logger
}

// NewHandler parses the embedded templates and returns a Handler.
func NewHandler(deps Estimator, sessions *session.Manager, log logger.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{deps: deps, sessions: sessions, tmpl: tmpl, logger: log}, nil
}

// Register attaches the form routes and static assets to mux.
func (h *Handler) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	withSession := func(fn http.HandlerFunc) http.Handler {
		return h.sessions.Middleware(fn)
	}
	mux.Handle("/", withSession(api.MetricsMiddleware(h.HandleIndex, "index")))
	mux.Handle("/calculate", withSession(api.MetricsMiddleware(h.HandleCalculate, "calculate")))
	mux.Handle("/clear", withSession(api.MetricsMiddleware(h.HandleClear, "clear")))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(FS())))
}

// formValues echoes what the user typed back into the inputs.
type formValues struct {
	Transport   string
	Meals       string
	Electricity string
}

type pageData struct {
	Form         formValues
	Message      string
	ErrorText    string
	TierClass    string
	NotSaved     bool
	NotSavedNote string
	Factors      footprint.FactorTable
}

func newPage(out types.Outcome, form formValues) pageData {
	p := pageData{
		Form:         form,
		Message:      out.Message,
		ErrorText:    out.ErrorText,
		NotSaved:     out.Record != nil && !out.Persisted,
		NotSavedNote: footprint.NotSavedNote,
		Factors:      footprint.Factors(),
	}
	if out.State == types.StateResultShown {
		p.TierClass = "tier-" + strings.ToLower(string(out.Tier))
	}
	return p
}

// HandleIndex handles GET / by restoring the last session total.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	id, _ := session.FromContext(r.Context())
	h.render(w, r, http.StatusOK, newPage(h.deps.Restore(r.Context(), id), formValues{}))
}

// HandleCalculate handles POST /calculate. Validation errors re-render the
// form with 422 and the submitted values kept.
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := formValues{
		Transport:   r.PostForm.Get("transport"),
		Meals:       r.PostForm.Get("meals"),
		Electricity: r.PostForm.Get("electricity"),
	}
	id, _ := session.FromContext(r.Context())
	out := h.deps.Submit(r.Context(), id, types.RawInput(form))

	status := http.StatusOK
	if !out.Valid() {
		status = http.StatusUnprocessableEntity
	}
	h.render(w, r, status, newPage(out, form))
}

// HandleClear handles POST /clear: empty inputs, idle prompt, no errors.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.render(w, r, http.StatusOK, newPage(h.deps.Reset(r.Context()), formValues{}))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, p pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", p); err != nil {
		h.logger.Error(r.Context(), "render page", logger.Error(fmt.Errorf("%w: %w", ErrRender, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
