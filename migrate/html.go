package migrate

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var (
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
	lineTrailingRe = regexp.MustCompile(`[ \t]+\n`)
)

// nonContentTags never carry document text worth migrating.
var nonContentTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
}

// Converter renders HTML exports of legacy documents as GitHub-flavored
// markdown so they migrate like their markdown equivalents.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates an HTML to markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{converter: converter}
}

// Convert transforms an HTML document into markdown. The document title is
// promoted to a leading heading when the body does not already start with
// one.
func (c *Converter) Convert(content []byte) (string, error) {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	title := documentTitle(doc)
	stripNonContent(doc)

	source := string(content)
	if body := firstTag(doc, "body"); body != nil {
		var sb strings.Builder
		if err := html.Render(&sb, body); err == nil {
			source = sb.String()
		}
	}

	markdown, err := c.converter.ConvertString(source)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}

	markdown = tidyMarkdown(markdown)
	if title != "" && !strings.HasPrefix(markdown, "# ") {
		markdown = "# " + title + "\n\n" + markdown
	}

	return markdown + "\n", nil
}

// walkNodes visits n and its descendants in document order. Returning
// false from visit prunes the subtree below that node.
func walkNodes(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkNodes(child, visit)
	}
}

// documentTitle returns the trimmed <title> text, if any.
func documentTitle(doc *html.Node) string {
	node := firstTag(doc, "title")
	if node == nil || node.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(node.FirstChild.Data)
}

// firstTag returns the first element with the given tag name.
func firstTag(n *html.Node, tag string) *html.Node {
	var found *html.Node
	walkNodes(n, func(node *html.Node) bool {
		if found != nil {
			return false
		}
		if node.Type == html.ElementNode && node.Data == tag {
			found = node
			return false
		}
		return true
	})
	return found
}

// stripNonContent detaches every element whose tag cannot contribute
// document text.
func stripNonContent(doc *html.Node) {
	var doomed []*html.Node
	walkNodes(doc, func(node *html.Node) bool {
		if node.Type == html.ElementNode && nonContentTags[node.Data] {
			doomed = append(doomed, node)
			return false
		}
		return true
	})
	for _, node := range doomed {
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
	}
}

// tidyMarkdown trims trailing whitespace from lines, collapses excess
// blank lines, and strips outer whitespace left by conversion.
func tidyMarkdown(content string) string {
	content = lineTrailingRe.ReplaceAllString(content, "\n")
	content = blankRunRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
