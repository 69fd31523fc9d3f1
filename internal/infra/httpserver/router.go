package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/bryanwahyu/market-intel/internal/application/intel"
	"github.com/bryanwahyu/market-intel/internal/domain/analysis"
	"github.com/bryanwahyu/market-intel/internal/domain/report"
	"github.com/bryanwahyu/market-intel/internal/middleware"
)

type Router struct {
	session *intel.Session
	svc     *intel.Service
	metrics *middleware.Metrics
	log     logrus.FieldLogger
}

// Options wires the router. Checkers feed /healthz.
type Options struct {
	Session  *intel.Session
	Service  *intel.Service
	Metrics  *middleware.Metrics
	Log      logrus.FieldLogger
	Checkers map[string]middleware.HealthChecker
}

func NewRouter(o Options) http.Handler {
	if o.Metrics == nil {
		o.Metrics = middleware.NewMetrics()
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	r := &Router{session: o.Session, svc: o.Service, metrics: o.Metrics, log: o.Log}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(o.Checkers))
	mux.Get("/metrics", o.Metrics.Handler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/session", r.wrap(r.handleSession))
		rt.Post("/session/reset", r.wrap(r.handleReset))
		rt.Post("/analyze", r.wrap(r.handleAnalyze))

		rt.Get("/reports", r.wrap(r.handleList))
		rt.Delete("/reports", r.wrap(r.handleClear))
		rt.Route("/reports/{id}", func(rr chi.Router) {
			rr.Get("/", r.wrap(r.handleGet))
			rr.Delete("/", r.wrap(r.handleDelete))
			rr.Post("/select", r.wrap(r.handleSelect))
			rr.Get("/blocks", r.wrap(r.handleBlocks))
			rr.Post("/chat", r.wrap(r.handleChat))
			rr.Get("/export", r.wrap(r.handleExport))
			rr.Get("/text", r.wrap(r.handleText))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest wraps request decoding failures.
var errBadRequest = errors.New("bad request")

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			r.log.WithError(err).WithField("path", req.URL.Path).Error("request failed")
		}
		http.Error(w, err.Error(), code)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, report.ErrNotFound):
		return http.StatusNotFound
	case intel.IsValidation(err), errors.Is(err, middleware.ErrInvalidInput), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrAnalysisInFlight), errors.Is(err, report.ErrFollowUpInFlight),
		errors.Is(err, analysis.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, report.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func reportID(req *http.Request) (report.ReportID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return "", err
	}
	return id, nil
}

// GET /v1/session
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.session.Snapshot())
}

// POST /v1/session/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	if err := r.session.Reset(); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, r.session.Snapshot())
}

// POST /v1/analyze
// Body: {"company": "Elbit Systems", "language": "zh"}
// Generation runs in the background; clients poll GET /v1/session.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Company  string `json:"company"`
		Language string `json:"language"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	company, err := middleware.ValidateCompanyName(body.Company)
	if err != nil {
		return err
	}
	lang, err := report.ParseLanguage(body.Language)
	if err != nil {
		return err
	}

	snap, result, err := r.session.Start(company, lang)
	if err != nil {
		return err
	}

	r.metrics.AnalysisStarted()
	go func() {
		r.metrics.AnalysisFinished(<-result == nil)
	}()

	return writeJSON(w, http.StatusAccepted, snap)
}

// GET /v1/reports?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	page, size := middleware.ValidatePage(req.URL.Query().Get("page"), req.URL.Query().Get("page_size"))
	return writeJSON(w, http.StatusOK, r.svc.Reports(page, size))
}

// DELETE /v1/reports
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	if err := r.session.Clear(req.Context()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/reports/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	rep, err := r.svc.Report(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rep)
}

// DELETE /v1/reports/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	if err := r.session.Delete(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/reports/{id}/select
func (r *Router) handleSelect(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	snap, err := r.session.Select(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// GET /v1/reports/{id}/blocks
func (r *Router) handleBlocks(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	blocks, err := r.svc.Blocks(id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, blocks)
}

// POST /v1/reports/{id}/chat
// Body: {"question": "..."}
// A failed model call still answers 200 with outcome "failed".
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	var body struct {
		Question string `json:"question"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}

	res, err := r.svc.Ask(req.Context(), id, body.Question)
	if err != nil {
		return err
	}
	r.metrics.FollowUp(res.Outcome == intel.OutcomeAnswered)
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/reports/{id}/export
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Export(req.Context(), id)
	if err != nil {
		return err
	}
	r.metrics.Exported()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	if a.URL != "" {
		w.Header().Set("X-Artifact-URL", a.URL)
	}
	_, err = w.Write(a.Body)
	return err
}

// GET /v1/reports/{id}/text
func (r *Router) handleText(w http.ResponseWriter, req *http.Request) error {
	id, err := reportID(req)
	if err != nil {
		return err
	}
	text, err := r.svc.PlainText(id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err = w.Write([]byte(text))
	return err
}
