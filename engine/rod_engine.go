package engine

import (
	"context"
	"fmt"

	"github.com/use-agent/webparser/models"
)

// RenderFunc renders url in a headless browser and returns the DOM markup.
// It is injected from the wiring code to keep engine/ free of browser imports.
type RenderFunc func(ctx context.Context, url string) (string, error)

// RodEngine is the browser-based engine. It delegates to the render driver
// via a callback.
type RodEngine struct {
	render RenderFunc
}

// NewRodEngine creates a RodEngine around render.
func NewRodEngine(render RenderFunc) *RodEngine {
	return &RodEngine{render: render}
}

func (e *RodEngine) Name() string { return "rod" }

// Fetch renders req.URL. Errors from the render driver are returned as is so
// their code and stage reach the caller.
func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*PageSource, error) {
	if e.render == nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, models.StageRender,
			fmt.Sprintf("%s: render func not configured", e.Name()), nil)
	}

	html, err := e.render(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	return &PageSource{
		HTML:       html,
		Method:     models.RenderRendered,
		FinalURL:   req.URL,
		EngineName: e.Name(),
	}, nil
}
