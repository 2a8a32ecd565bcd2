package docmodel

import (
	"strings"
	"unicode/utf8"
)

// MaxDerivedTitle bounds titles derived from content.
const MaxDerivedTitle = 80

// TitleFromContent derives a fallback title from the first top-level block.
func TitleFromContent(nodes []*BlockNode) string {
	for _, n := range nodes {
		if n == nil || n.Block == nil {
			continue
		}
		title := strings.Join(strings.Fields(n.Block.Text), " ")
		if utf8.RuneCountInString(title) > MaxDerivedTitle {
			title = string([]rune(title)[:MaxDerivedTitle])
		}
		return title
	}
	return ""
}

// DisplayTitle returns doc.Title, or a title derived from its content.
func DisplayTitle(doc *Document) string {
	if doc == nil {
		return ""
	}
	if doc.Title != "" {
		return doc.Title
	}
	return TitleFromContent(doc.Children)
}
