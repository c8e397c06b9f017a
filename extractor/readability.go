package extractor

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length for readability output
// to count as the main content. Shorter output falls back to the full page.
const minContentLength = 50

// ExtractContent runs the Readability algorithm on rawHTML. The boolean
// reports whether readability found the main content; when it is false the
// returned article wraps the full markup.
func ExtractContent(rawHTML string, pageURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(pageURL)
	if err != nil {
		slog.Warn("readability: invalid page URL, using full markup",
			"url", pageURL, "error", err,
		)
		return fallbackArticle(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, using full markup",
			"url", pageURL, "error", err,
		)
		return fallbackArticle(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: content too short, using full markup",
			"url", pageURL, "length", len(article.TextContent),
		)
		return fallbackArticle(rawHTML), false
	}

	return article, true
}

func fallbackArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: rawHTML,
	}
}
