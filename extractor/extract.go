// Package extractor turns page markup into the structured ExtractionResult
// shape. Extraction is pure and deterministic: identical markup always gives
// an identical result, and malformed markup gives empty collections.
package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/webparser/models"
)

// Collection caps. Each keeps the first N matches in document order.
const (
	MaxParagraphs = 20
	MaxLinks      = 50
	MaxImages     = 20

	// minParagraphLength is exclusive: a paragraph must be longer than this.
	minParagraphLength = 20
)

var (
	titleMatcher     = cascadia.MustCompile("title")
	metaMatcher      = cascadia.MustCompile("meta")
	headingMatcher   = cascadia.MustCompile("h1, h2, h3, h4, h5, h6")
	paragraphMatcher = cascadia.MustCompile("p")
	linkMatcher      = cascadia.MustCompile("a[href]")
	imageMatcher     = cascadia.MustCompile("img")
)

// Extract parses rawHTML into an ExtractionResult for pageURL.
// RenderMethod and ParsedAt are left for the caller to stamp.
func Extract(rawHTML string, pageURL string) models.ExtractionResult {
	result := models.ExtractionResult{
		URL:        pageURL,
		Meta:       map[string]string{},
		Headings:   []models.Heading{},
		Paragraphs: []string{},
		Links:      []models.Link{},
		Images:     []models.Image{},
	}

	// goquery only fails when the reader fails, which a strings.Reader never does.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return result
	}

	result.Title = strings.TrimSpace(doc.FindMatcher(titleMatcher).First().Text())
	extractMeta(doc, result.Meta)
	result.Headings = extractHeadings(doc)
	result.Paragraphs = extractParagraphs(doc)
	result.Links = extractLinks(doc)
	result.Images = extractImages(doc)

	return result
}

// extractMeta records name (or property) -> content for every meta element
// that has both. Later duplicates overwrite earlier ones.
func extractMeta(doc *goquery.Document, meta map[string]string) {
	doc.FindMatcher(metaMatcher).Each(func(_ int, s *goquery.Selection) {
		key := s.AttrOr("name", "")
		if key == "" {
			key = s.AttrOr("property", "")
		}
		content := s.AttrOr("content", "")
		if key == "" || content == "" {
			return
		}
		meta[key] = content
	})
}

func extractHeadings(doc *goquery.Document) []models.Heading {
	headings := []models.Heading{}
	doc.FindMatcher(headingMatcher).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if len(tag) != 2 {
			return
		}
		headings = append(headings, models.Heading{
			Level: int(tag[1] - '0'),
			Tag:   tag,
			Text:  strings.TrimSpace(s.Text()),
		})
	})
	return headings
}

func extractParagraphs(doc *goquery.Document) []string {
	paragraphs := []string{}
	doc.FindMatcher(paragraphMatcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if utf8.RuneCountInString(text) > minParagraphLength {
			paragraphs = append(paragraphs, text)
		}
		return len(paragraphs) < MaxParagraphs
	})
	return paragraphs
}

// extractLinks keeps hrefs verbatim. Fragment-only hrefs are in-page anchors
// and are skipped.
func extractLinks(doc *goquery.Document) []models.Link {
	links := []models.Link{}
	doc.FindMatcher(linkMatcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		links = append(links, models.Link{
			Href: href,
			Text: strings.TrimSpace(s.Text()),
		})
		return len(links) < MaxLinks
	})
	return links
}

func extractImages(doc *goquery.Document) []models.Image {
	images := []models.Image{}
	doc.FindMatcher(imageMatcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		images = append(images, models.Image{
			Src: s.AttrOr("src", ""),
			Alt: s.AttrOr("alt", ""),
		})
		return len(images) < MaxImages
	})
	return images
}
