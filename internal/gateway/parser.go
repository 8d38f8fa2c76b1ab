package gateway

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ErrUnrecognizedDocument is returned when a fetched page parses as HTML but
// contains none of the markup the statute source uses for statute text. This
// usually means the source answered with a search or error page.
var ErrUnrecognizedDocument = errors.New("gateway: unrecognized document structure")

// parsedDocument is the statute content extracted from a source page.
type parsedDocument struct {
	Title string
	Text  string
}

// parseDocument extracts the statute title and full text from a source page.
//
// The title comes from the source's StatuteTitle span, falling back to the
// first h1, h2 or the page title. The text body must come from the Statute
// container div (or the legacy content div); a page with neither is not a
// statute page and yields [ErrUnrecognizedDocument].
func parseDocument(data []byte) (parsedDocument, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return parsedDocument{}, fmt.Errorf("gateway: parse document: %w", err)
	}

	body := findNode(root, func(n *html.Node) bool {
		return n.Data == "div" && hasClass(n, "Statute")
	})
	if body == nil {
		body = findNode(root, func(n *html.Node) bool {
			return n.Data == "div" && attrValue(n, "id") == "content"
		})
	}
	if body == nil {
		return parsedDocument{}, ErrUnrecognizedDocument
	}

	text := normalizeWhitespace(nodeText(body))
	if text == "" {
		return parsedDocument{}, ErrUnrecognizedDocument
	}

	var title string
	if t := findNode(root, func(n *html.Node) bool {
		return n.Data == "span" && hasClass(n, "StatuteTitle")
	}); t != nil {
		title = normalizeWhitespace(nodeText(t))
	}
	if title == "" {
		for _, tag := range []string{"h1", "h2", "title"} {
			if t := findNode(root, func(n *html.Node) bool { return n.Data == tag }); t != nil {
				if title = normalizeWhitespace(nodeText(t)); title != "" {
					break
				}
			}
		}
	}

	return parsedDocument{Title: title, Text: text}, nil
}

// findNode returns the first element node in document order matching pred.
func findNode(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if root.Type == html.ElementNode && pred(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, pred); found != nil {
			return found
		}
	}
	return nil
}

// nodeText collects the text content beneath n, skipping script and style
// elements. Block-ish boundaries get a space so adjacent words don't fuse.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// normalizeWhitespace collapses all whitespace runs to single spaces and
// trims the ends. Statute pages carry heavy indentation and line breaks that
// only add noise to similarity scoring.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
