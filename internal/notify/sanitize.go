package notify

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// hiddenTags are elements whose content is never shown to a reader, so it
// is dropped rather than flattened into the text.
var hiddenTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// PlainText flattens package metadata written by the publisher (often
// Markdown with embedded HTML) into a single line of visible text, cut to
// at most limit runes. A limit of zero or less means no limit.
func PlainText(content string, limit int) string {
	if content == "" {
		return ""
	}

	text := content
	if doc, err := html.Parse(strings.NewReader(content)); err == nil {
		var sb strings.Builder
		visibleText(doc, &sb)
		text = sb.String()
	}

	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.Is(unicode.Cf, r):
			return -1
		case unicode.IsControl(r):
			return ' '
		}
		return r
	}, text)
	text = strings.Join(strings.Fields(text), " ")

	if limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = strings.TrimSpace(string(runes[:limit])) + "..."
		}
	}
	return text
}

func visibleText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.CommentNode:
		sb.WriteString(" ")
		return
	case html.ElementNode:
		if hiddenTags[n.Data] {
			sb.WriteString(" ")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, sb)
	}
}
