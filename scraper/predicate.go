package scraper

import (
	"fmt"
	"regexp"
	"strings"
)

// regexPrefix marks a capture pattern as a regular expression.
const regexPrefix = "re:"

// NewMatcher compiles capture patterns into a URL predicate. A plain pattern
// matches when it is a substring of the URL; a "re:" pattern is a regular
// expression. The predicate matches when any pattern does. With no patterns
// nothing matches.
func NewMatcher(patterns []string) (func(string) bool, error) {
	var subs []string
	var res []*regexp.Regexp

	for _, p := range patterns {
		if expr, ok := strings.CutPrefix(p, regexPrefix); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
			}
			res = append(res, re)
			continue
		}
		if p != "" {
			subs = append(subs, p)
		}
	}

	return func(url string) bool {
		for _, s := range subs {
			if strings.Contains(url, s) {
				return true
			}
		}
		for _, re := range res {
			if re.MatchString(url) {
				return true
			}
		}
		return false
	}, nil
}
