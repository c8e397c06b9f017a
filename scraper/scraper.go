// Package scraper drives headless-browser sessions for the pipeline. It
// renders pages to markup and intercepts JSON payloads a page requests from
// its own backend.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/use-agent/webparser/browser"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/models"
	"golang.org/x/sync/semaphore"
)

// Driver opens one browser session per call and always closes it. Sessions
// are never reused; a weighted semaphore caps how many run at once.
// It is safe for concurrent use.
type Driver struct {
	provider browser.Provider
	sem      *semaphore.Weighted
	match    func(string) bool

	maxSessions         int
	navTimeout          time.Duration
	interceptNavTimeout time.Duration
	gracePeriod         time.Duration
	snippetLength       int

	active atomic.Int32
	total  atomic.Int64
}

// NewDriver builds a Driver. capturePatterns select which responses may carry
// an intercepted payload (see NewMatcher).
func NewDriver(provider browser.Provider, browserCfg config.BrowserConfig, pipelineCfg config.PipelineConfig, capturePatterns []string) (*Driver, error) {
	match, err := NewMatcher(capturePatterns)
	if err != nil {
		return nil, fmt.Errorf("capture patterns: %w", err)
	}

	maxSessions := browserCfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}

	slog.Info("render driver ready",
		"provider", provider.Name(),
		"maxSessions", maxSessions,
		"capturePatterns", capturePatterns,
	)

	return &Driver{
		provider:            provider,
		sem:                 semaphore.NewWeighted(int64(maxSessions)),
		match:               match,
		maxSessions:         maxSessions,
		navTimeout:          pipelineCfg.NavigationTimeout,
		interceptNavTimeout: pipelineCfg.InterceptNavigationTimeout,
		gracePeriod:         pipelineCfg.GracePeriod,
		snippetLength:       pipelineCfg.SnippetLength,
	}, nil
}

// Stats returns a snapshot of session usage.
func (d *Driver) Stats() models.SessionStats {
	return models.SessionStats{
		Provider:       d.provider.Name(),
		MaxSessions:    d.maxSessions,
		ActiveSessions: int(d.active.Load()),
		TotalSessions:  d.total.Load(),
	}
}

// acquire waits for a session slot and opens a session. The returned release
// closes the session and frees the slot; it must be called exactly once.
func (d *Driver) acquire(ctx context.Context, stage string, opts browser.SessionOptions) (browser.Session, func(), error) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, models.NewPipelineError(
			models.ErrCodeBrowserUnavailable, stage,
			"no browser session slot became available", err,
		)
	}

	sess, err := d.provider.Acquire(ctx, opts)
	if err != nil {
		d.sem.Release(1)
		return nil, nil, withStage(err, stage)
	}
	if sess == nil {
		d.sem.Release(1)
		return nil, nil, models.NewPipelineError(
			models.ErrCodeBrowserUnavailable, stage,
			"browser provider returned no session", nil,
		)
	}

	d.active.Add(1)
	d.total.Add(1)

	release := func() {
		if err := sess.Close(); err != nil {
			slog.Warn("browser session close failed", "provider", d.provider.Name(), "error", err)
		}
		d.active.Add(-1)
		d.sem.Release(1)
	}
	return sess, release, nil
}
