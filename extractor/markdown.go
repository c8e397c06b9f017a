package extractor

import (
	"fmt"
	nurl "net/url"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// mdConverter is goroutine-safe and shared by all requests.
var mdConverter = newMarkdownConverter()

// newMarkdownConverter builds a converter that drops scripts, styles and other
// non-content nodes, renders CommonMark and keeps tables with minimal padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// Markdown isolates the main content of rawHTML and converts it to Markdown.
// Relative links and images are resolved against pageURL.
func Markdown(rawHTML string, pageURL string) (string, error) {
	article, _ := ExtractContent(rawHTML, pageURL)

	domain := ""
	if u, err := nurl.Parse(pageURL); err == nil && u.Host != "" {
		domain = u.Scheme + "://" + u.Host
	}

	md, err := mdConverter.ConvertString(article.Content, converter.WithDomain(domain))
	if err != nil {
		return "", fmt.Errorf("markdown conversion: %w", err)
	}
	return md, nil
}
