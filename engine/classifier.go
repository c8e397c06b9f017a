package engine

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultTextThreshold is the visible-text length below which a page is
// treated as needing a browser.
const DefaultTextThreshold = 200

// Classification is the outcome of probing a URL.
type Classification struct {
	Dynamic    bool
	TextLength int
	Reason     string
}

// Classifier decides whether a URL must be rendered in a browser. It probes
// with a static fetch and measures the visible text of <body>.
type Classifier struct {
	probe     Engine
	threshold int
}

// NewClassifier creates a Classifier that probes with the given engine.
func NewClassifier(probe Engine, threshold int) *Classifier {
	if threshold <= 0 {
		threshold = DefaultTextThreshold
	}
	return &Classifier{probe: probe, threshold: threshold}
}

// Classify never fails: a probe that cannot fetch the page classifies it as
// dynamic.
func (c *Classifier) Classify(ctx context.Context, url string) Classification {
	src, err := c.probe.Fetch(ctx, &FetchRequest{URL: url})
	if err != nil {
		slog.Debug("classifier: probe failed, assuming dynamic", "url", url, "error", err)
		return Classification{Dynamic: true, Reason: "probe fetch failed"}
	}

	n := utf8.RuneCountInString(VisibleText(src.HTML))
	if n < c.threshold {
		return Classification{Dynamic: true, TextLength: n, Reason: "visible text below threshold"}
	}
	return Classification{Dynamic: false, TextLength: n, Reason: "visible text above threshold"}
}

// VisibleText returns the text of the document's <body> with script, style,
// noscript and template content removed. Text nodes are trimmed and joined by
// a single space.
func VisibleText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	body := findBody(doc)
	if body == nil {
		return ""
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(body)

	return strings.TrimSpace(strings.Join(parts, " "))
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if b := findBody(child); b != nil {
			return b
		}
	}
	return nil
}
