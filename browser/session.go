package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/models"
	"github.com/ysmood/gson"
)

// rodSession is a Session backed by one rod page.
type rodSession struct {
	// browser is the root of a locally launched process, or a private
	// context on a remote one. Closing it ends exactly what the session owns.
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter

	// release runs after the browser is closed: it kills a local process or
	// drops a remote connection.
	release func()
}

// newRodSession opens a page on b and prepares it before any navigation:
// stealth script, user agent, extra headers and, when requested, the
// resource-blocking router. On error the browser and release are cleaned up.
func newRodSession(b *rod.Browser, cfg config.BrowserConfig, opts SessionOptions, release func()) (*rodSession, error) {
	s := &rodSession{browser: b, release: release}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, models.NewPipelineError(
			models.ErrCodeBrowserUnavailable, models.StageRender,
			"failed to open page", err,
		)
	}
	s.page = page

	if cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: "en-US,en;q=0.9",
		}); err != nil {
			slog.Warn("user agent override failed, proceeding with browser default", "error", err)
		}
	}
	if err := (proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{"Accept-Language": "en-US,en;q=0.9"}),
	}).Call(page); err != nil {
		slog.Warn("extra headers failed, proceeding without them", "error", err)
	}

	if opts.BlockResources {
		s.router = setupHijack(page, cfg.BlockedResourceTypes, cfg.BlockAds)
	}

	return s, nil
}

// Navigate registers the lifecycle waiter before navigating so the event
// cannot be missed.
func (s *rodSession) Navigate(ctx context.Context, target string, cond WaitCondition) error {
	p := s.page.Context(ctx)

	event := proto.PageLifecycleEventNameNetworkAlmostIdle
	if cond == WaitDOMReady {
		event = proto.PageLifecycleEventNameDOMContentLoaded
	}
	wait := p.WaitNavigation(event)

	if err := p.Navigate(target); err != nil {
		return err
	}
	wait()

	// WaitNavigation returns silently when ctx ends.
	return ctx.Err()
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Close stops the router, closes the page and then the session's browser,
// and finally runs the provider's release hook. For a local session the
// browser close ends the process; for a remote one it disposes the private
// context only. It is safe to call more than once.
func (s *rodSession) Close() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.router = nil
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		s.browser = nil
	}
	if s.release != nil {
		s.release()
		s.release = nil
	}
	return errors.Join(errs...)
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// hostOf returns the hostname of raw, or "" when raw is not a URL.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
