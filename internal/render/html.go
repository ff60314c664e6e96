package render

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// PlainText reduces an HTML document (a proxy error page, a framework's
// default 500 page) to its visible text with whitespace collapsed. Script
// and style bodies are dropped. Input that is not HTML comes back trimmed.
func PlainText(raw string) string {
	if raw == "" {
		return ""
	}

	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
	var sb strings.Builder
	skip := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return strings.Join(strings.Fields(html.UnescapeString(sb.String())), " ")

		case xhtml.StartTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "script", "style", "head":
				skip++
			case "p", "br", "div", "h1", "h2", "h3", "li", "tr":
				sb.WriteString(" ")
			}

		case xhtml.EndTagToken:
			t := tokenizer.Token()
			switch t.Data {
			case "script", "style", "head":
				if skip > 0 {
					skip--
				}
			case "p", "div", "h1", "h2", "h3", "li", "tr", "title":
				sb.WriteString(" ")
			}

		case xhtml.TextToken:
			if skip == 0 {
				sb.WriteString(tokenizer.Token().Data)
			}
		}
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// Wrap performs simple word wrapping to the given width.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var result strings.Builder
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			result.WriteString("\n")
			continue
		}
		lineLen := 0
		for i, word := range words {
			wlen := len(word)
			if i > 0 && lineLen+1+wlen > width {
				result.WriteString("\n")
				lineLen = 0
			} else if i > 0 {
				result.WriteString(" ")
				lineLen++
			}
			result.WriteString(word)
			lineLen += wlen
		}
		result.WriteString("\n")
	}
	return strings.TrimRight(result.String(), "\n")
}
