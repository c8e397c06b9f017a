package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/models"
	"github.com/use-agent/webparser/pipeline"
)

type fakeService struct {
	page      *models.ExtractionResult
	pageErr   error
	gotOpts   pipeline.Options
	track     *models.TrackingResult
	trackErr  error
	gotID     string
	idFromURL func(string) (string, error)
}

func (f *fakeService) ExtractPage(ctx context.Context, url string, opts pipeline.Options) (*models.ExtractionResult, error) {
	f.gotOpts = opts
	return f.page, f.pageErr
}

func (f *fakeService) ExtractTrackingData(ctx context.Context, id string) (*models.TrackingResult, error) {
	f.gotID = id
	return f.track, f.trackErr
}

func (f *fakeService) TrackingIDFromURL(url string) (string, error) {
	return f.idFromURL(url)
}

type fakeStats struct{ s models.SessionStats }

func (f fakeStats) Stats() models.SessionStats { return f.s }

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.Server.StaticDir = ""
	cfg.Auth = config.AuthConfig{}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000}
	return cfg
}

func do(r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON body %q: %v", w.Body.String(), err)
	}
	return m
}

func TestParse(t *testing.T) {
	svc := &fakeService{page: &models.ExtractionResult{
		URL:          "https://x.test",
		Title:        "X",
		Meta:         map[string]string{},
		Headings:     []models.Heading{},
		Paragraphs:   []string{},
		Links:        []models.Link{},
		Images:       []models.Image{},
		RenderMethod: models.RenderStatic,
		ParsedAt:     time.Now().UTC(),
	}}
	r := NewRouter(svc, fakeStats{}, testConfig(), time.Now())

	w := do(r, http.MethodPost, "/api/parse", `{"url":"https://x.test","include_content":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	m := decode(t, w)
	if m["renderMethod"] != "static" || m["title"] != "X" {
		t.Errorf("body = %v", m)
	}
	if links, ok := m["links"].([]any); !ok || len(links) != 0 {
		t.Errorf("links = %v, want []", m["links"])
	}
	if !svc.gotOpts.IncludeContent {
		t.Error("include_content not forwarded")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"missing url", `{}`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"bad json", `{`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"fetch failed", `{"url":"https://x.test"}`,
			models.NewPipelineError(models.ErrCodeFetchFailed, models.StageFetch, "HTTP 404", nil),
			http.StatusBadGateway, models.ErrCodeFetchFailed},
		{"render timeout", `{"url":"https://x.test"}`,
			models.NewPipelineError(models.ErrCodeRenderTimeout, models.StageRender, "slow", nil),
			http.StatusGatewayTimeout, models.ErrCodeRenderTimeout},
		{"launch failed", `{"url":"https://x.test"}`,
			models.NewPipelineError(models.ErrCodeRenderLaunchFailed, models.StageRender, "no chrome", nil),
			http.StatusServiceUnavailable, models.ErrCodeRenderLaunchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&fakeService{pageErr: tt.err}, fakeStats{}, testConfig(), time.Now())
			w := do(r, http.MethodPost, "/api/parse", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantCode, w.Body)
			}
			m := decode(t, w)
			if m["code"] != tt.wantErr {
				t.Errorf("code = %v, want %s", m["code"], tt.wantErr)
			}
			if s, _ := m["error"].(string); s == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestTrack(t *testing.T) {
	svc := &fakeService{
		track: &models.TrackingResult{
			TrackingID: "MAEU1",
			Captured:   true,
			Payload:    json.RawMessage(`{"status":"DELIVERED"}`),
		},
		idFromURL: func(u string) (string, error) {
			if strings.Contains(u, "/tracking/") {
				return "MAEU1", nil
			}
			return "", models.NewPipelineError(models.ErrCodeInvalidInput, models.StageInput, "no id", nil)
		},
	}
	r := NewRouter(svc, fakeStats{}, testConfig(), time.Now())

	for _, path := range []string{"/api/track", "/api/parse-maersk"} {
		w := do(r, http.MethodPost, path, `{"url":"https://www.maersk.com/tracking/MAEU1"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		m := decode(t, w)
		if m["trackingNumber"] != "MAEU1" || m["status"] != "DELIVERED" {
			t.Errorf("%s body = %v", path, m)
		}
	}

	w := do(r, http.MethodPost, "/api/track", `{"tracking_id":"ZZZ9"}`)
	if w.Code != http.StatusOK || svc.gotID != "ZZZ9" {
		t.Errorf("tracking_id path: status %d, id %q", w.Code, svc.gotID)
	}

	w = do(r, http.MethodPost, "/api/parse-maersk", `{"url":"https://www.maersk.com/"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("url without id: status = %d", w.Code)
	}
	w = do(r, http.MethodPost, "/api/parse-maersk", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty body: status = %d", w.Code)
	}
}

func TestTrack_Miss(t *testing.T) {
	svc := &fakeService{
		track:     &models.TrackingResult{TrackingID: "A1", Snippet: "<html>"},
		idFromURL: func(string) (string, error) { return "A1", nil },
	}
	r := NewRouter(svc, fakeStats{}, testConfig(), time.Now())
	w := do(r, http.MethodPost, "/api/track", `{"url":"https://x/tracking/A1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	m := decode(t, w)
	if m["intercepted"] != false || m["html"] != "<html>" || m["raw"] != models.MissMessage {
		t.Errorf("body = %v", m)
	}
}

func TestHealth(t *testing.T) {
	stats := fakeStats{models.SessionStats{Provider: "local", MaxSessions: 4, ActiveSessions: 4}}
	r := NewRouter(&fakeService{}, stats, testConfig(), time.Now())
	w := do(r, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	m := decode(t, w)
	if m["status"] != "degraded" {
		t.Errorf("status = %v, want degraded at full capacity", m["status"])
	}
}

func TestAuthAndRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"k1"}}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	svc := &fakeService{page: &models.ExtractionResult{}}
	r := NewRouter(svc, fakeStats{}, cfg, time.Now())

	if w := do(r, http.MethodPost, "/api/parse", `{"url":"https://x.test"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/parse", `{"url":"https://x.test"}`, "X-API-Key", "bad"); w.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/parse", `{"url":"https://x.test"}`, "Authorization", "Bearer k1"); w.Code != http.StatusOK {
		t.Errorf("good key: status = %d", w.Code)
	}
	w := do(r, http.MethodPost, "/api/parse", `{"url":"https://x.test"}`, "X-API-Key", "k1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if w := do(r, http.MethodGet, "/api/health", ""); w.Code != http.StatusOK {
		t.Errorf("health should bypass auth: status = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := NewRouter(&fakeService{}, fakeStats{}, testConfig(), time.Now())
	w := do(r, http.MethodOptions, "/api/parse", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.Server.StaticDir = dir
	r := NewRouter(&fakeService{}, fakeStats{}, cfg, time.Now())

	if w := do(r, http.MethodGet, "/app.js", ""); !strings.Contains(w.Body.String(), "console.log") {
		t.Errorf("asset body = %q", w.Body)
	}
	if w := do(r, http.MethodGet, "/some/client/route", ""); !strings.Contains(w.Body.String(), "app") {
		t.Errorf("SPA fallback body = %q", w.Body)
	}
	if w := do(r, http.MethodGet, "/../../etc/passwd", ""); strings.Contains(w.Body.String(), "root:") {
		t.Error("path traversal escaped static dir")
	}
	if w := do(r, http.MethodGet, "/api/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown api route: status = %d", w.Code)
	}
}
