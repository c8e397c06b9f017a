package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/webparser/models"
)

func TestHTTPEngine_Fetch(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer srv.Close()

	e := NewHTTPEngine(HTTPOptions{UserAgent: "test-agent/1.0"})
	src, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if !strings.Contains(src.HTML, "<p>hello</p>") {
		t.Errorf("HTML = %q", src.HTML)
	}
	if src.Method != models.RenderStatic || src.EngineName != "http" || src.StatusCode != 200 {
		t.Errorf("source = %+v", src)
	}
}

func TestHTTPEngine_DecodesCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" in Latin-1.
		w.Write([]byte("<html><body>caf\xe9</body></html>"))
	}))
	defer srv.Close()

	src, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(src.HTML, "café") {
		t.Errorf("HTML not decoded to UTF-8: %q", src.HTML)
	}
}

func TestHTTPEngine_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusNotFound)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			e := NewHTTPEngine(HTTPOptions{Timeout: tt.timeout})
			_, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
			var pe *models.PipelineError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *PipelineError", err)
			}
			if pe.Code != models.ErrCodeFetchFailed || pe.Stage != models.StageFetch {
				t.Errorf("code/stage = %s/%s", pe.Code, pe.Stage)
			}
		})
	}
}

func TestHTTPEngine_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPEngine(HTTPOptions{}).Fetch(context.Background(), &FetchRequest{URL: url})
	if err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestRodEngine_Fetch(t *testing.T) {
	e := NewRodEngine(func(ctx context.Context, url string) (string, error) {
		return "<html>" + url + "</html>", nil
	})
	src, err := e.Fetch(context.Background(), &FetchRequest{URL: "https://x.test"})
	if err != nil {
		t.Fatal(err)
	}
	if src.Method != models.RenderRendered || src.HTML != "<html>https://x.test</html>" {
		t.Errorf("source = %+v", src)
	}

	wantErr := models.NewPipelineError(models.ErrCodeRenderTimeout, models.StageRender, "slow", nil)
	e = NewRodEngine(func(ctx context.Context, url string) (string, error) { return "", wantErr })
	if _, err := e.Fetch(context.Background(), &FetchRequest{URL: "u"}); err != wantErr {
		t.Errorf("err = %v, want render error unchanged", err)
	}
}
