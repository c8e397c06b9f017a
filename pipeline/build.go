package pipeline

import (
	"fmt"

	"github.com/use-agent/webparser/browser"
	"github.com/use-agent/webparser/config"
	"github.com/use-agent/webparser/engine"
	"github.com/use-agent/webparser/scraper"
)

// Build wires a Pipeline from configuration. The returned Driver exposes
// session statistics for health reporting.
func Build(cfg *config.Config) (*Pipeline, *scraper.Driver, error) {
	provider := browser.NewProvider(cfg.Browser)

	driver, err := scraper.NewDriver(provider, cfg.Browser, cfg.Pipeline, cfg.Tracking.CapturePatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("render driver: %w", err)
	}

	static := engine.NewHTTPEngine(engine.HTTPOptions{
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   cfg.Pipeline.FetchTimeout,
		Proxy:     cfg.Browser.Proxy,
	})
	probe := engine.NewHTTPEngine(engine.HTTPOptions{
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   cfg.Pipeline.ProbeTimeout,
		Proxy:     cfg.Browser.Proxy,
	})
	classifier := engine.NewClassifier(probe, cfg.Pipeline.TextThreshold)
	rendered := engine.NewRodEngine(driver.RenderMarkup)

	p, err := New(classifier, static, rendered, driver, cfg.Tracking.URLTemplate, cfg.Tracking.IDPattern)
	if err != nil {
		return nil, nil, err
	}
	return p, driver, nil
}
