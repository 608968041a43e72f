package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appchat "github.com/bryanwahyu/nutrisift/internal/application/chat"
	appscans "github.com/bryanwahyu/nutrisift/internal/application/scans"
	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	"github.com/bryanwahyu/nutrisift/internal/domain/scanerrors"
	domain "github.com/bryanwahyu/nutrisift/internal/domain/scans"
	"github.com/bryanwahyu/nutrisift/internal/middleware"
)

// Options berisi semua dependency router; yang opsional boleh zero value.
type Options struct {
	Scans    *appscans.Service
	Chat     *appchat.Service
	Logger   *zap.Logger
	Provider string

	CORSOrigins  []string
	APIKeys      map[string]string
	RateLimiter  *middleware.RateLimiter
	MaxBodyBytes int64
	Checkers     map[string]middleware.HealthChecker
}

type Router struct {
	scansSvc *appscans.Service
	chatSvc  *appchat.Service
	logger   *zap.Logger
	maxBody  int64
}

func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{scansSvc: opts.Scans, chatSvc: opts.Chat, logger: logger, maxBody: opts.MaxBodyBytes}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Scan-ID"},
		MaxAge:         300,
	}))
	mux.Use(middleware.RequestLogger(logger))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	mux.Use(middleware.BodyLimit(opts.MaxBodyBytes))

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Get("/healthz", middleware.HealthHandler(opts.Provider, opts.Checkers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidTenant)
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/chat", r.handleChat)
		rt.Get("/scans/latest", r.wrap(r.handleLatest))
		rt.Get("/scans", r.wrap(r.handlePaginate))
		rt.Get("/scans/{id}", r.wrap(r.handleGet))
		rt.Get("/scans/{id}/errors", r.wrap(r.handleScanErrors))
		rt.Get("/errors", r.wrap(r.handleLatestErrors))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errBadRequest menandai input yang salah dari client
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// errorBody adalah bentuk response error untuk semua endpoint
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Path    string `json:"path,omitempty"`
}

// classify maps an error to status code and user-facing body in one place.
func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error(), Details: err.Error()}

	var mbe *http.MaxBytesError
	var se *analysis.SchemaError
	var ue *ai.UpstreamError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large", Details: err.Error()}
	case errors.Is(err, errBadRequest), errors.Is(err, ai.ErrInvalidImage), errors.Is(err, appchat.ErrEmptyQuestion):
		body.Error = strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")
		return http.StatusBadRequest, body
	case errors.Is(err, appscans.ErrNotFound), errors.Is(err, appchat.ErrNoContext):
		return http.StatusNotFound, errorBody{Error: "not found", Details: err.Error()}
	case errors.As(err, &se):
		body.Error = "Failed to process visual data. Ensure image clarity."
		body.Path = se.Path
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, analysis.ErrExtraction):
		body.Error = "Failed to process visual data. Ensure image clarity."
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &ue):
		switch ue.Kind {
		case ai.KindQuota:
			body.Error = "AI quota exceeded. Try again later."
			return http.StatusTooManyRequests, body
		case ai.KindConfiguration:
			body.Error = "Model not available. Check API key."
			return http.StatusBadGateway, body
		default:
			body.Error = "Failed to process visual data. Ensure image clarity."
			return http.StatusBadGateway, body
		}
	case errors.Is(err, ai.ErrQuotaExceeded):
		body.Error = "AI quota exceeded. Try again later."
		return http.StatusTooManyRequests, body
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error", Details: err.Error()}
}

// phaseOf dipakai untuk metrics kegagalan analyze
func phaseOf(err error) scanerrors.Phase {
	var ue *ai.UpstreamError
	switch {
	case errors.Is(err, analysis.ErrSchema):
		return scanerrors.PhaseSchema
	case errors.Is(err, analysis.ErrExtraction):
		return scanerrors.PhaseExtraction
	case errors.As(err, &ue):
		return scanerrors.PhaseUpstream
	}
	return scanerrors.PhaseInput
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status, body := classify(err)
			if status >= http.StatusInternalServerError {
				r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			}
			writeJSON(w, status, body)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /v1/{tenant}/analyze
// Body: {"image": "<base64 | data URI>"} atau multipart dengan field "image".
// Response sukses adalah record final apa adanya.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	img, err := r.readImage(req)
	if err != nil {
		return err
	}

	scan, err := r.scansSvc.Analyze(req.Context(), appscans.AnalyzeCommand{TenantID: tenant, Image: img})
	if err != nil {
		middleware.IncrementScansFailed(string(phaseOf(err)))
		return err
	}

	middleware.IncrementScans()
	middleware.AddRulesFired(len(scan.Rules))
	if scan.Record.HasAnomaly() {
		middleware.IncrementAnomalies()
	}
	w.Header().Set("X-Scan-ID", string(scan.ID))
	writeJSON(w, http.StatusOK, scan.Record)
	return nil
}

func (r *Router) readImage(req *http.Request) (ai.Image, error) {
	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		maxMem := r.maxBody
		if maxMem <= 0 {
			maxMem = 10 << 20
		}
		if err := req.ParseMultipartForm(maxMem); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return ai.Image{}, mbe
			}
			return ai.Image{}, badRequest("invalid multipart body: %v", err)
		}
		f, hdr, err := req.FormFile("image")
		if err != nil {
			return ai.Image{}, badRequest("image is required")
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return ai.Image{}, err
		}
		return ai.NewImage(data, hdr.Header.Get("Content-Type"))
	}

	var body struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return ai.Image{}, mbe
		}
		return ai.Image{}, badRequest("invalid JSON body: %v", err)
	}
	if strings.TrimSpace(body.Image) == "" {
		return ai.Image{}, badRequest("image is required")
	}
	return ai.ParseImagePayload(body.Image)
}

// POST /v1/{tenant}/chat
// Body: {"message": "...", "productContext": {...}} atau {"message": "...", "scan_id": "..."}
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		Message        string           `json:"message"`
		ProductContext *analysis.Record `json:"productContext"`
		ScanID         string           `json:"scan_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		status, eb := classify(badRequest("invalid JSON body: %v", err))
		writeJSON(w, status, eb)
		return
	}
	if body.ScanID != "" {
		if err := middleware.ValidateScanID(body.ScanID); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
	}

	middleware.IncrementChat()
	reply, err := r.chatSvc.Ask(req.Context(), appchat.AskCommand{
		TenantID: tenant,
		Question: middleware.SanitizeString(body.Message),
		Context:  body.ProductContext,
		ScanID:   body.ScanID,
	})
	if errors.Is(err, appchat.ErrChatUnavailable) {
		middleware.IncrementChatFailed()
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: reply})
		return
	}
	if err != nil {
		status, eb := classify(err)
		writeJSON(w, status, eb)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// GET /v1/{tenant}/scans/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.scansSvc.Latest(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/scans?page=&page_size=
func (r *Router) handlePaginate(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	res, err := r.scansSvc.Paginate(req.Context(), tenant, middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/{tenant}/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateScanID(id); err != nil {
		return badRequest("%v", err)
	}

	scan, err := r.scansSvc.Get(req.Context(), tenant, domain.ScanID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, scan)
	return nil
}

// GET /v1/{tenant}/scans/{id}/errors?limit=
func (r *Router) handleScanErrors(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateScanID(id); err != nil {
		return badRequest("%v", err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.scansSvc.Failures(req.Context(), tenant, id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/errors?limit=
func (r *Router) handleLatestErrors(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.scansSvc.Failures(req.Context(), tenant, "", middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)

	sum, err := r.scansSvc.Summary(req.Context(), tenant, days)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":    days,
		"summary": sum,
	})
	return nil
}
