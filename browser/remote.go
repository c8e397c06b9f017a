package browser

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/models"
)

// RemoteProvider opens a new CDP connection and a private browser context
// per session on a hosted browser.
type RemoteProvider struct {
	cfg      config.BrowserConfig
	endpoint string
	token    string
}

// NewRemoteProvider creates a provider for cfg.RemoteEndpoint.
func NewRemoteProvider(cfg config.BrowserConfig) *RemoteProvider {
	slog.Info("browser provider: remote", "endpoint", redactEndpoint(cfg.RemoteEndpoint))
	return &RemoteProvider{cfg: cfg, endpoint: cfg.RemoteEndpoint, token: cfg.RemoteToken}
}

func (p *RemoteProvider) Name() string { return "remote" }

// Acquire connects to the remote endpoint, creates a private browser context
// and opens one page in it. Closing the session disposes that context and
// drops the connection; the remote browser itself keeps running. Any failure
// is BROWSER_UNAVAILABLE.
func (p *RemoteProvider) Acquire(ctx context.Context, opts SessionOptions) (Session, error) {
	wsURL := p.endpoint
	if strings.HasPrefix(wsURL, "http://") || strings.HasPrefix(wsURL, "https://") {
		resolved, err := launcher.ResolveURL(wsURL)
		if err != nil {
			return nil, unavailable("failed to resolve remote browser endpoint", err)
		}
		wsURL = resolved
	}

	header := http.Header{}
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}

	// The websocket lives until disconnect runs.
	connCtx, disconnect := context.WithCancel(ctx)

	client, err := cdp.StartWithURL(connCtx, wsURL, header)
	if err != nil {
		disconnect()
		return nil, unavailable("failed to connect to remote browser", err)
	}

	root := rod.New().Client(client)
	if err := root.Connect(); err != nil {
		disconnect()
		return nil, unavailable("failed to attach to remote browser", err)
	}

	b, err := isolate(root)
	if err != nil {
		disconnect()
		return nil, unavailable("failed to create browser context", err)
	}

	sess, err := newRodSession(b, p.cfg, opts, disconnect)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// isolate returns a view of b bound to a new private browser context.
// Cookies and storage are not shared with other sessions, and closing the
// returned browser disposes only that context.
func isolate(b *rod.Browser) (*rod.Browser, error) {
	return b.Incognito()
}

func unavailable(msg string, err error) *models.PipelineError {
	return models.NewPipelineError(models.ErrCodeBrowserUnavailable, models.StageRender, msg, err)
}

// redactEndpoint drops query strings, which commonly carry tokens.
func redactEndpoint(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i] + "?..."
	}
	return endpoint
}
