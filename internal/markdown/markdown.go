// Package markdown renders fetched HTML as Markdown for page dumps.
package markdown

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Convert transforms HTML content into Markdown.
func Convert(htmlContent string) (string, error) {
	if htmlContent == "" {
		return "", nil
	}

	md, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// PageTitle extracts the <title> content from HTML.
func PageTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}

// Dump renders a page as a Markdown document headed by its title and URL.
func Dump(pageURL, htmlContent string) (string, error) {
	body, err := Convert(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to convert page: %w", err)
	}
	title := PageTitle(htmlContent)
	if title == "" {
		title = pageURL
	}
	return fmt.Sprintf("# %s\n\nSource: %s\n\n%s\n", title, pageURL, body), nil
}
