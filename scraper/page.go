package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/use-agent/webparser/browser"
	"github.com/use-agent/webparser/models"
)

// snapshotTimeout bounds the DOM read taken after an interception miss.
const snapshotTimeout = 5 * time.Second

// Interception is the outcome of an interception-mode render. When Captured
// is false the page made no matching JSON call within the grace period and
// Snippet holds the start of the DOM.
type Interception struct {
	Captured  bool
	Payload   json.RawMessage
	SourceURL string
	Snippet   string
}

// RenderMarkup renders url and returns the DOM once the network is almost
// idle.
//
// Lifecycle:
//
//  1. Acquire session      – waits for a slot; resource blocking on
//  2. DEFER: release       – close session and free the slot on every path
//  3. Navigate             – bounded by the navigation timeout
//  4. Extract              – serialize the DOM
func (d *Driver) RenderMarkup(ctx context.Context, url string) (string, error) {
	start := time.Now()

	// ── 1-2. Acquire + release ────────────────────────────────────────
	sess, release, err := d.acquire(ctx, models.StageRender, browser.SessionOptions{BlockResources: true})
	if err != nil {
		return "", err
	}
	defer release()

	// ── 3. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, d.navTimeout)
	defer cancel()

	if err := sess.Navigate(navCtx, url, browser.WaitNetworkIdle); err != nil {
		return "", categorizeError(err, models.StageRender, "navigation to target URL failed")
	}

	// ── 4. Extract ────────────────────────────────────────────────────
	html, err := sess.HTML(navCtx)
	if err != nil {
		return "", categorizeError(err, models.StageRender, "failed to extract page HTML")
	}

	slog.Debug("render complete", "url", url, "bytes", len(html), "elapsed", time.Since(start))
	return html, nil
}

// Intercept renders url and captures the body of the first matching network
// response that parses as JSON.
//
// Lifecycle:
//
//  1. Acquire session      – no resource blocking, it would hide responses
//  2. DEFER: release
//  3. Observer             – installed before navigation so no response is missed
//  4. Navigate             – waits for DOMContentLoaded only
//  5. Grace wait           – returns as soon as the latch is set
//  6. Miss                 – DOM snapshot, truncated
func (d *Driver) Intercept(ctx context.Context, url string) (*Interception, error) {
	start := time.Now()

	// ── 1-2. Acquire + release ────────────────────────────────────────
	sess, release, err := d.acquire(ctx, models.StageIntercept, browser.SessionOptions{})
	if err != nil {
		return nil, err
	}
	defer release()

	// ── 3. Observer ───────────────────────────────────────────────────
	latch := newPayloadLatch()
	stop, err := sess.ObserveResponses(ctx, d.match, func(r browser.Response) {
		if latch.isSet() {
			return
		}
		body, err := r.Body()
		if err != nil {
			slog.Debug("intercept: body unavailable", "url", r.URL, "error", err)
			return
		}
		body = bytes.TrimSpace(body)
		if len(body) == 0 || !json.Valid(body) {
			return
		}
		if latch.offer(r.URL, body) {
			slog.Debug("intercept: payload captured", "url", r.URL, "bytes", len(body))
		}
	})
	if err != nil {
		return nil, models.NewPipelineError(
			models.ErrCodeBrowserUnavailable, models.StageIntercept,
			"failed to observe network responses", err,
		)
	}
	defer stop()

	// ── 4. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, d.interceptNavTimeout)
	navErr := sess.Navigate(navCtx, url, browser.WaitDOMReady)
	cancel()

	if navErr != nil {
		// A payload already in hand is the answer even if the page never
		// finished loading.
		if res, ok := captured(latch); ok {
			slog.Debug("intercept: navigation failed after capture", "url", url, "error", navErr)
			return res, nil
		}
		return nil, categorizeError(navErr, models.StageIntercept, "navigation to tracking page failed")
	}

	// ── 5. Grace wait ─────────────────────────────────────────────────
	latch.wait(ctx, d.gracePeriod)
	if res, ok := captured(latch); ok {
		slog.Debug("intercept complete", "url", url, "source", res.SourceURL, "elapsed", time.Since(start))
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, categorizeError(err, models.StageIntercept, "request ended while waiting for payload")
	}

	// ── 6. Miss ───────────────────────────────────────────────────────
	snapCtx, snapCancel := context.WithTimeout(ctx, snapshotTimeout)
	defer snapCancel()

	html, err := sess.HTML(snapCtx)
	if err != nil {
		slog.Warn("intercept: DOM snapshot failed", "url", url, "error", err)
	}

	slog.Info("intercept: no matching response", "url", url, "elapsed", time.Since(start))
	return &Interception{
		Captured: false,
		Snippet:  truncateRunes(html, d.snippetLength),
	}, nil
}

func captured(l *payloadLatch) (*Interception, bool) {
	url, body, ok := l.get()
	if !ok {
		return nil, false
	}
	return &Interception{Captured: true, Payload: body, SourceURL: url}, true
}

// truncateRunes returns at most n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// categorizeError wraps raw errors into typed PipelineErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, stage, msg string) *models.PipelineError {
	var pe *models.PipelineError
	switch {
	case errors.As(err, &pe):
		return pe.WithStage(stage)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewPipelineError(models.ErrCodeRenderTimeout, stage, msg+": timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewPipelineError(models.ErrCodeRenderTimeout, stage, "request canceled", err)
	default:
		return models.NewPipelineError(models.ErrCodeNavigation, stage, msg, err)
	}
}

// withStage relabels a PipelineError with stage. Any other acquisition error
// becomes BROWSER_UNAVAILABLE.
func withStage(err error, stage string) error {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe.WithStage(stage)
	}
	return models.NewPipelineError(models.ErrCodeBrowserUnavailable, stage, "failed to acquire browser session", err)
}
