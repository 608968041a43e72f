package httpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appchat "github.com/bryanwahyu/nutrisift/internal/application/chat"
	appscans "github.com/bryanwahyu/nutrisift/internal/application/scans"
	"github.com/bryanwahyu/nutrisift/internal/domain/ai"
	"github.com/bryanwahyu/nutrisift/internal/domain/analysis"
	domain "github.com/bryanwahyu/nutrisift/internal/domain/scans"
)

const labelResponse = "Here is the analysis:\n```json\n" + `{
  "product_name": "Gula Aren Drink",
  "detected_ingredients_text": "Water, palm sugar",
  "health_score": 70,
  "halal_analysis": {"status": "Halal Safe", "reason": "plant based"},
  "allergen_list": [],
  "nutrition_summary": {"sugar_g": 0, "sugar_teaspoons": 0},
  "alerts": [],
  "brief_conclusion": "Refreshing."
}` + "\n```"

type stubModel struct {
	raw   string
	err   error
	reply string
	asked string
}

func (s *stubModel) DescribeLabel(context.Context, ai.Image) (string, error) { return s.raw, s.err }

func (s *stubModel) Answer(_ context.Context, prompt string) (string, error) {
	s.asked = prompt
	return s.reply, s.err
}

type memRepo struct {
	mu    sync.Mutex
	scans map[domain.ScanID]*domain.Scan
}

func (m *memRepo) Save(_ context.Context, s *domain.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scans == nil {
		m.scans = map[domain.ScanID]*domain.Scan{}
	}
	m.scans[s.ID] = s
	return nil
}

func (m *memRepo) Get(_ context.Context, tenant string, id domain.ScanID) (*domain.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.scans[id]; ok && s.TenantID == tenant {
		return s, nil
	}
	return nil, nil
}

func (m *memRepo) Latest(_ context.Context, _ string, _ int) ([]*domain.Scan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Scan, 0, len(m.scans))
	for _, s := range m.scans {
		out = append(out, s)
	}
	return out, nil
}

func (m *memRepo) Summary(_ context.Context, _ string, _ time.Time) (domain.Summary, error) {
	return domain.Summary{TotalScans: len(m.scans)}, nil
}

func (m *memRepo) Paginate(ctx context.Context, tenant string, _, _ int) ([]*domain.Scan, int64, error) {
	list, _ := m.Latest(ctx, tenant, 0)
	return list, int64(len(list)), nil
}

func newTestRouter(model *stubModel, mutate func(o *Options)) (http.Handler, *memRepo) {
	repo := &memRepo{}
	opts := Options{
		Scans:    &appscans.Service{Vision: model, Provider: "stub", Repo: repo},
		Chat:     &appchat.Service{Chatter: model, Repo: repo},
		Provider: "stub",
	}
	if mutate != nil {
		mutate(&opts)
	}
	return NewRouter(opts), repo
}

func imageJSON() string {
	return `{"image": "data:image/png;base64,` + base64.StdEncoding.EncodeToString([]byte("fake-png")) + `"}`
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAnalyze_JSONBody(t *testing.T) {
	h, repo := newTestRouter(&stubModel{raw: labelResponse}, nil)

	rec := do(t, h, http.MethodPost, "/v1/acme/analyze", imageJSON())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "Gula Aren Drink", body["product_name"])
	assert.EqualValues(t, 30, body["health_score"])
	assert.Equal(t, analysis.MismatchConclusion, body["brief_conclusion"])
	alerts := body["alerts"].([]any)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Anomaly Detected", alerts[0].(map[string]any)["name"])

	id := rec.Header().Get("X-Scan-ID")
	require.NotEmpty(t, id)
	assert.Contains(t, repo.scans, domain.ScanID(id))
}

func TestAnalyze_Multipart(t *testing.T) {
	h, _ := newTestRouter(&stubModel{raw: labelResponse}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="label.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = part.Write([]byte("fake-png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/acme/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Gula Aren Drink", decodeBody(t, rec)["product_name"])
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		model   *stubModel
		body    string
		status  int
		message string
		path    string
	}{
		{"bad json", &stubModel{}, `{"image":`, http.StatusBadRequest, "", ""},
		{"missing image", &stubModel{}, `{}`, http.StatusBadRequest, "image is required", ""},
		{"bad base64", &stubModel{}, `{"image": "%%%"}`, http.StatusBadRequest, "", ""},
		{"no json in reply", &stubModel{raw: "the photo is blurry"}, imageJSON(), http.StatusUnprocessableEntity,
			"Failed to process visual data. Ensure image clarity.", ""},
		{"schema violation", &stubModel{raw: `{"product_name": "X"}`}, imageJSON(), http.StatusUnprocessableEntity,
			"Failed to process visual data. Ensure image clarity.", "detected_ingredients_text"},
		{"quota", &stubModel{err: ai.NewStatusError("stub", 429, errors.New("slow"))}, imageJSON(),
			http.StatusTooManyRequests, "AI quota exceeded. Try again later.", ""},
		{"bad key", &stubModel{err: ai.NewStatusError("stub", 401, errors.New("denied"))}, imageJSON(),
			http.StatusBadGateway, "Model not available. Check API key.", ""},
		{"provider down", &stubModel{err: errors.New("connection reset")}, imageJSON(),
			http.StatusBadGateway, "Failed to process visual data. Ensure image clarity.", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, repo := newTestRouter(tc.model, nil)
			rec := do(t, h, http.MethodPost, "/v1/acme/analyze", tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())

			body := decodeBody(t, rec)
			if tc.message != "" {
				assert.Equal(t, tc.message, body["error"])
			}
			if tc.path != "" {
				assert.Equal(t, tc.path, body["path"])
			}
			assert.Empty(t, repo.scans)
		})
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	h, _ := newTestRouter(&stubModel{raw: labelResponse}, func(o *Options) { o.MaxBodyBytes = 64 })
	rec := do(t, h, http.MethodPost, "/v1/acme/analyze", `{"image": "`+strings.Repeat("A", 512)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestChat(t *testing.T) {
	model := &stubModel{reply: "Gula aren tetap gula."}
	h, _ := newTestRouter(model, nil)

	rec := do(t, h, http.MethodPost, "/v1/acme/chat",
		`{"message": "Is this sweet?", "productContext": {"product_name": "Gula Aren Drink", "health_score": 30}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Gula aren tetap gula.", decodeBody(t, rec)["reply"])
	assert.Contains(t, model.asked, "Gula Aren Drink")
	assert.Contains(t, model.asked, "Is this sweet?")
}

func TestChat_ByScanID(t *testing.T) {
	model := &stubModel{raw: labelResponse, reply: "ok"}
	h, _ := newTestRouter(model, nil)

	rec := do(t, h, http.MethodPost, "/v1/acme/analyze", imageJSON())
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Scan-ID")

	rec = do(t, h, http.MethodPost, "/v1/acme/chat", `{"message": "why 30?", "scan_id": "`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, model.asked, analysis.MismatchConclusion)

	// scan milik tenant lain tidak bisa dipakai
	rec = do(t, h, http.MethodPost, "/v1/other/chat", `{"message": "why?", "scan_id": "`+id+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_Failures(t *testing.T) {
	h, _ := newTestRouter(&stubModel{err: errors.New("boom")}, nil)

	rec := do(t, h, http.MethodPost, "/v1/acme/chat", `{"message": "hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, appchat.FallbackReply, decodeBody(t, rec)["error"])

	rec = do(t, h, http.MethodPost, "/v1/acme/chat", `{"message": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/acme/chat", `{"message": "hi", "scan_id": "not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanQueries(t *testing.T) {
	h, _ := newTestRouter(&stubModel{raw: labelResponse}, nil)

	rec := do(t, h, http.MethodPost, "/v1/acme/analyze", imageJSON())
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Scan-ID")

	rec = do(t, h, http.MethodGet, "/v1/acme/scans/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, []any{"sugar_text_mismatch"}, body["rules_fired"])

	rec = do(t, h, http.MethodGet, "/v1/other/scans/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/acme/scans/xyz", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/acme/scans/latest?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, h, http.MethodGet, "/v1/acme/scans?page=1&page_size=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody(t, rec)["totalItems"])

	rec = do(t, h, http.MethodGet, "/v1/acme/summary?days=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.EqualValues(t, 30, body["days"])
	assert.EqualValues(t, 1, body["summary"].(map[string]any)["total_scans"])

	rec = do(t, h, http.MethodGet, "/v1/acme/scans/"+id+"/errors", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/acme/errors", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthAndTenant(t *testing.T) {
	h, _ := newTestRouter(&stubModel{raw: labelResponse}, func(o *Options) {
		o.APIKeys = map[string]string{"acme": "k-acme"}
	})

	rec := do(t, h, http.MethodGet, "/v1/acme/scans/latest", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/globex/scans/latest", nil)
	req.Header.Set("Authorization", "Bearer k-acme")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/acme/scans/latest", nil)
	req.Header.Set("Authorization", "Bearer k-acme")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stub", decodeBody(t, rec)["provider"])
}

func TestInvalidTenant(t *testing.T) {
	h, _ := newTestRouter(&stubModel{}, nil)
	rec := do(t, h, http.MethodGet, "/v1/bad.tenant!/scans/latest", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassify(t *testing.T) {
	status, body := classify(errors.New("weird"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Error)

	status, _ = classify(appscans.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = classify(badRequest("page must be a number"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "page must be a number", body.Error)
}
