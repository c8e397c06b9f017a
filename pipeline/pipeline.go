// Package pipeline composes classification, fetching, rendering and
// extraction into the service's two entry operations.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/webparser/engine"
	"github.com/use-agent/webparser/extractor"
	"github.com/use-agent/webparser/models"
	"github.com/use-agent/webparser/scraper"
)

// Classifier decides whether a URL needs a browser.
type Classifier interface {
	Classify(ctx context.Context, url string) engine.Classification
}

// Interceptor renders a page and captures its backend JSON payload.
type Interceptor interface {
	Intercept(ctx context.Context, url string) (*scraper.Interception, error)
}

// Options tunes ExtractPage.
type Options struct {
	// IncludeContent adds the main article as Markdown.
	IncludeContent bool
}

// Pipeline is stateless between calls and safe for concurrent use.
type Pipeline struct {
	classifier  Classifier
	static      engine.Engine
	rendered    engine.Engine
	interceptor Interceptor

	trackingTemplate string
	idPattern        *regexp.Regexp

	now func() time.Time
}

// validTrackingID restricts identifiers to what the portal path accepts.
var validTrackingID = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// New assembles a Pipeline. trackingTemplate must contain one %s verb;
// idPattern must have one capture group holding the identifier.
func New(classifier Classifier, static, rendered engine.Engine, interceptor Interceptor, trackingTemplate, idPattern string) (*Pipeline, error) {
	if strings.Count(trackingTemplate, "%s") != 1 {
		return nil, fmt.Errorf("tracking URL template %q must contain exactly one %%s", trackingTemplate)
	}
	re, err := regexp.Compile(idPattern)
	if err != nil {
		return nil, fmt.Errorf("tracking id pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("tracking id pattern %q has no capture group", idPattern)
	}

	return &Pipeline{
		classifier:       classifier,
		static:           static,
		rendered:         rendered,
		interceptor:      interceptor,
		trackingTemplate: trackingTemplate,
		idPattern:        re,
		now:              time.Now,
	}, nil
}

// ExtractPage classifies pageURL, obtains its markup along the chosen path and
// extracts it. The chosen path's error is returned as is; there is no
// fallback to the other path.
func (p *Pipeline) ExtractPage(ctx context.Context, pageURL string, opts Options) (*models.ExtractionResult, error) {
	start := time.Now()

	if err := validatePageURL(pageURL); err != nil {
		return nil, err
	}

	class := p.classifier.Classify(ctx, pageURL)
	eng := p.static
	if class.Dynamic {
		eng = p.rendered
	}

	slog.Debug("page classified",
		"url", pageURL,
		"dynamic", class.Dynamic,
		"textLength", class.TextLength,
		"reason", class.Reason,
		"engine", eng.Name(),
	)

	src, err := eng.Fetch(ctx, &engine.FetchRequest{URL: pageURL})
	if err != nil {
		return nil, asPipelineError(err, stageOf(eng))
	}

	result := extractor.Extract(src.HTML, pageURL)
	result.RenderMethod = src.Method
	result.ParsedAt = p.now().UTC()

	if opts.IncludeContent {
		md, err := extractor.Markdown(src.HTML, pageURL)
		if err != nil {
			slog.Warn("markdown conversion failed, omitting content", "url", pageURL, "error", err)
		} else {
			result.Content = md
		}
	}

	slog.Info("page extracted",
		"url", pageURL,
		"renderMethod", result.RenderMethod,
		"links", len(result.Links),
		"elapsed", time.Since(start),
	)
	return &result, nil
}

// ExtractTrackingData renders the tracking page for trackingID and returns
// the intercepted payload, or a miss with a markup snippet.
func (p *Pipeline) ExtractTrackingData(ctx context.Context, trackingID string) (*models.TrackingResult, error) {
	if !validTrackingID.MatchString(trackingID) {
		return nil, models.NewPipelineError(
			models.ErrCodeInvalidInput, models.StageInput,
			"tracking id must be a non-empty alphanumeric string", nil,
		)
	}

	target := p.TrackingURL(trackingID)
	inter, err := p.interceptor.Intercept(ctx, target)
	if err != nil {
		return nil, asPipelineError(err, models.StageIntercept)
	}

	slog.Info("tracking lookup finished",
		"trackingId", trackingID,
		"captured", inter.Captured,
		"source", inter.SourceURL,
	)

	return &models.TrackingResult{
		TrackingID: trackingID,
		Captured:   inter.Captured,
		Payload:    inter.Payload,
		SourceURL:  inter.SourceURL,
		Snippet:    inter.Snippet,
	}, nil
}

// TrackingURL builds the portal URL for trackingID.
func (p *Pipeline) TrackingURL(trackingID string) string {
	return fmt.Sprintf(p.trackingTemplate, url.PathEscape(trackingID))
}

// TrackingIDFromURL extracts the identifier from a tracking page URL.
func (p *Pipeline) TrackingIDFromURL(rawURL string) (string, error) {
	m := p.idPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 || m[1] == "" {
		return "", models.NewPipelineError(
			models.ErrCodeInvalidInput, models.StageInput,
			"could not extract a tracking number from the URL", nil,
		)
	}
	return m[1], nil
}

func validatePageURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return models.NewPipelineError(models.ErrCodeInvalidInput, models.StageInput, "url is required", nil)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return models.NewPipelineError(models.ErrCodeInvalidInput, models.StageInput,
			"url must be an absolute http(s) URL", err)
	}
	return nil
}

func stageOf(eng engine.Engine) string {
	if eng.Name() == "http" {
		return models.StageFetch
	}
	return models.StageRender
}

// asPipelineError passes PipelineErrors through and wraps anything else as
// INTERNAL_ERROR at stage.
func asPipelineError(err error, stage string) error {
	var pe *models.PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return models.NewPipelineError(models.ErrCodeInternal, stage, "unexpected pipeline failure", err)
}
