// Package browser acquires headless-browser sessions. A Provider is chosen
// once at startup: a locally launched Chromium or a remote CDP endpoint.
// Every Session owns exactly one page and must be closed by its caller.
package browser

import (
	"context"

	"github.com/use-agent/webparser/config"
)

// WaitCondition selects the lifecycle event Navigate waits for.
type WaitCondition int

const (
	// WaitNetworkIdle waits until the page has at most two in-flight requests.
	WaitNetworkIdle WaitCondition = iota
	// WaitDOMReady waits for DOMContentLoaded.
	WaitDOMReady
)

func (w WaitCondition) String() string {
	switch w {
	case WaitNetworkIdle:
		return "network-idle"
	case WaitDOMReady:
		return "dom-ready"
	default:
		return "unknown"
	}
}

// SessionOptions tunes a session at acquisition.
type SessionOptions struct {
	// BlockResources installs the resource-blocking router configured by
	// BrowserConfig.BlockedResourceTypes and BlockAds. It must stay off when
	// responses are observed.
	BlockResources bool
}

// Provider hands out fresh browser sessions.
type Provider interface {
	Name() string
	Acquire(ctx context.Context, opts SessionOptions) (Session, error)
}

// Session is one page in one browser context.
type Session interface {
	// Navigate loads url and blocks until cond is reached or ctx ends.
	Navigate(ctx context.Context, url string, cond WaitCondition) error

	// HTML returns the current DOM serialized as markup.
	HTML(ctx context.Context) (string, error)

	// ObserveResponses calls fn, in completion order and never concurrently,
	// for each finished response whose URL satisfies match. Observation
	// ends when stop is called or ctx ends; stop waits for fn to return.
	ObserveResponses(ctx context.Context, match func(url string) bool, fn func(Response)) (stop func(), err error)

	// Close releases the page and whatever the provider created for it.
	Close() error
}

// Response is a finished network response seen by an observer.
type Response struct {
	URL      string
	Status   int
	MIMEType string

	body func() ([]byte, error)
}

// NewResponse builds a Response whose body is produced by body.
func NewResponse(url string, status int, mimeType string, body func() ([]byte, error)) Response {
	return Response{URL: url, Status: status, MIMEType: mimeType, body: body}
}

// Body fetches the response body from the browser.
func (r Response) Body() ([]byte, error) {
	if r.body == nil {
		return nil, nil
	}
	return r.body()
}

// NewProvider selects the provider for cfg: remote when an endpoint is
// configured, local launch otherwise.
func NewProvider(cfg config.BrowserConfig) Provider {
	if cfg.RemoteEndpoint != "" {
		return NewRemoteProvider(cfg)
	}
	return NewLocalProvider(cfg)
}
