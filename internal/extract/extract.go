// Package extract converts fetched HTML into line-oriented plain text.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Document is the readable content of a page.
type Document struct {
	Title string
	Text  string
	// Mailto holds addresses linked with mailto: hrefs, in document order.
	Mailto []string
}

// FromHTML extracts readable text from the page body. Every block element
// starts a new line so "Name - Title" rows stay on their own line. Footers are
// kept because they commonly carry contact addresses.
func FromHTML(input []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil {
		return Document{}, fmt.Errorf("parse html: %w", err)
	}

	doc := Document{Title: strings.TrimSpace(textOf(findFirst(root, "title")))}
	content := findFirst(root, "body")
	if content == nil {
		content = root
	}
	var b strings.Builder
	collectText(&b, content, &doc.Mailto)
	doc.Text = normalizeLines(b.String())
	return doc, nil
}

// PlainText returns the text of a page, appending mailto addresses that do not
// already appear in the visible text.
func (d Document) PlainText() string {
	var extra []string
	for _, addr := range d.Mailto {
		if !strings.Contains(d.Text, addr) {
			extra = append(extra, addr)
		}
	}
	if len(extra) == 0 {
		return d.Text
	}
	if d.Text == "" {
		return strings.Join(extra, "\n")
	}
	return d.Text + "\n" + strings.Join(extra, "\n")
}

func findFirst(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true,
	"footer": true, "main": true, "li": true, "tr": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"address": true, "blockquote": true, "dd": true, "dt": true, "figcaption": true,
	"ul": true, "ol": true, "table": true, "pre": true,
}

func collectText(b *strings.Builder, n *html.Node, mailto *[]string) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		name := strings.ToLower(n.Data)
		switch name {
		case "script", "style", "noscript", "template", "svg", "iframe", "head":
			return
		case "br", "hr":
			b.WriteString("\n")
			return
		case "a":
			if addr := mailtoAddress(n); addr != "" {
				*mailto = append(*mailto, addr)
			}
		}
		if blockTags[name] {
			b.WriteString("\n")
			defer b.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c, mailto)
	}
}

func mailtoAddress(n *html.Node) string {
	for _, attr := range n.Attr {
		if !strings.EqualFold(attr.Key, "href") {
			continue
		}
		val := strings.TrimSpace(attr.Val)
		if len(val) < len("mailto:") || !strings.EqualFold(val[:len("mailto:")], "mailto:") {
			return ""
		}
		addr := val[len("mailto:"):]
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		return strings.TrimSpace(addr)
	}
	return ""
}

// normalizeLines trims every line, collapses horizontal whitespace runs to a
// single space and drops blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		collapsed := strings.Join(strings.Fields(line), " ")
		if collapsed == "" {
			continue
		}
		out = append(out, collapsed)
	}
	return strings.Join(out, "\n")
}
