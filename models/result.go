package models

import "time"

// RenderMethod records which path produced the markup of a result.
type RenderMethod string

const (
	RenderStatic   RenderMethod = "static"
	RenderRendered RenderMethod = "rendered"
)

// ExtractionResult is the structured view of one page.
//
// JSON keys follow the existing browser client (renderMethod, parsedAt).
// Collections are always non-nil so they serialize as [] and {}.
type ExtractionResult struct {
	URL          string            `json:"url"`
	Title        string            `json:"title"`
	Meta         map[string]string `json:"meta"`
	Headings     []Heading         `json:"headings"`
	Paragraphs   []string          `json:"paragraphs"`
	Links        []Link            `json:"links"`
	Images       []Image           `json:"images"`
	RenderMethod RenderMethod      `json:"renderMethod"`
	ParsedAt     time.Time         `json:"parsedAt"`

	// Content is the main article as Markdown, only when requested.
	Content string `json:"content,omitempty"`
}

// Heading is an h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Tag   string `json:"tag"`
	Text  string `json:"text"`
}

// Link represents a hyperlink extracted from the page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Image represents an image element extracted from the page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}
