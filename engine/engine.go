// Package engine holds the two ways a page's markup can be obtained: a plain
// HTTP fetch with a Chrome TLS fingerprint, and a headless-browser render.
package engine

import (
	"context"

	"github.com/use-agent/webparser/models"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier ("http" or "rod").
	Name() string

	// Fetch retrieves the page markup for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*PageSource, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// PageSource is markup together with how it was obtained. It is never
// modified after an engine returns it.
type PageSource struct {
	HTML       string
	Method     models.RenderMethod
	StatusCode int
	FinalURL   string
	EngineName string
}
