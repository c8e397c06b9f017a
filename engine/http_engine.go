package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/webparser/models"
	"golang.org/x/net/html/charset"
)

// maxBody caps how much of a response body is read.
const maxBody = 10 << 20

const defaultFetchTimeout = 10 * time.Second

// HTTPEngine is the static fetcher: a single GET with a browser-like
// identity and no JavaScript execution. It never retries.
type HTTPEngine struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// HTTPOptions configures an HTTPEngine.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration // default: 10s
	Proxy     string        // http(s) proxy URL, optional
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak h2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint.
func NewHTTPEngine(opts HTTPOptions) *HTTPEngine {
	transport := &http.Transport{
		DialTLSContext:    dialTLSChrome,
		ForceAttemptHTTP2: false,
	}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			slog.Warn("http_engine: ignoring unsupported proxy", "proxy", opts.Proxy)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &HTTPEngine{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		timeout:   timeout,
	}
}

func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func (e *HTTPEngine) Name() string { return "http" }

// Timeout reports the per-fetch deadline.
func (e *HTTPEngine) Timeout() time.Duration { return e.timeout }

// Fetch GETs req.URL and returns the body decoded to UTF-8. Transport errors,
// timeouts and non-2xx statuses all yield a FETCH_FAILED PipelineError.
func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*PageSource, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fetchError("invalid request URL", err)
	}

	httpReq.Header.Set("User-Agent", e.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "identity")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fetchError(fmt.Sprintf("timed out after %s", e.timeout), err)
		}
		return nil, fetchError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fetchError(fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fetchError("read body", err)
	}

	return &PageSource{
		HTML:       decodeBody(body, resp.Header.Get("Content-Type")),
		Method:     models.RenderStatic,
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, nil
}

// decodeBody converts body to UTF-8 using the declared or sniffed charset.
func decodeBody(body []byte, contentType string) string {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		slog.Debug("http_engine: charset decode failed, using raw bytes", "charset", name, "error", err)
		return string(body)
	}
	return string(decoded)
}

func fetchError(msg string, err error) *models.PipelineError {
	return models.NewPipelineError(models.ErrCodeFetchFailed, models.StageFetch, "static fetch: "+msg, err)
}
