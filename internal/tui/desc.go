package tui

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML flattens a product description to plain terminal text. Catalog
// entries imported from the old web storefront still carry markup in their
// desc field. It uses the golang.org/x/net/html tokenizer for safe parsing.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}

	var result strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))

	for {
		tokenType := tokenizer.Next()

		switch tokenType {
		case html.ErrorToken:
			// End of document or error
			return cleanupWhitespace(result.String())

		case html.TextToken:
			result.Write(tokenizer.Text())

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()

			// Add spacing for block elements
			switch string(tn) {
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol":
				result.WriteString("\n")
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()

			switch string(tn) {
			case "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol":
				result.WriteString("\n")
			}
		}
	}
}

// cleanupWhitespace normalizes whitespace in the string. The tokenizer has
// already decoded entities by this point, so &nbsp; arrives as U+00A0; fold
// it to a plain space so terminal output carries no non-breaking spaces.
func cleanupWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")

	lines := strings.Split(s, "\n")
	var cleanLines []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleanLines = append(cleanLines, line)
		}
	}

	return strings.Join(cleanLines, "\n")
}
