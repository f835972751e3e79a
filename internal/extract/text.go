package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// JoinText walks n and joins its visible text nodes with sep, skipping
// scripts/styles. Each text node is trimmed; empty nodes are dropped.
func JoinText(n *html.Node, sep string) string {
	var parts []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				parts = append(parts, text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(parts, sep)
}

// VisibleText returns the page's visible text, one source text node per
// line. The field heuristics are line-oriented, so block separation
// matters more than layout fidelity here.
func VisibleText(n *html.Node) string {
	return JoinText(n, "\n")
}
