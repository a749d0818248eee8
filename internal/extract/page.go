package extract

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is the read-only surface of a loaded listing page.
type Page interface {
	// Texts returns the trimmed text of every element matching selector,
	// in document order.
	Texts(selector string) []string
	// Images returns the images matching selector, in document order.
	Images(selector string) []Image
	// BodyText returns the visible text of the whole page.
	BodyText() string
}

// Image is an image element with its decoded dimensions.
type Image struct {
	Src    string `json:"src"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Snapshot is a Page captured from a live browser tab. Only the selectors
// known to the engine are populated.
type Snapshot struct {
	URL      string              `json:"url"`
	TextMap  map[string][]string `json:"texts"`
	ImageMap map[string][]Image  `json:"images"`
	Body     string              `json:"body"`
}

func (s *Snapshot) Texts(selector string) []string { return s.TextMap[selector] }
func (s *Snapshot) Images(selector string) []Image { return s.ImageMap[selector] }
func (s *Snapshot) BodyText() string               { return s.Body }

// HTMLPage is a Page backed by static HTML.
// Image dimensions come from width/height attributes.
type HTMLPage struct {
	doc  *goquery.Document
	body string
}

// NewHTMLPage parses raw HTML into a Page.
func NewHTMLPage(raw []byte) (*HTMLPage, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	var sb strings.Builder
	if body := doc.Find("body"); body.Length() > 0 {
		for _, n := range body.Nodes {
			innerText(n, &sb)
		}
	} else {
		innerText(root, &sb)
	}

	return &HTMLPage{doc: doc, body: collapseBlankLines(sb.String())}, nil
}

func (p *HTMLPage) Texts(selector string) []string {
	var out []string
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		var sb strings.Builder
		for _, n := range s.Nodes {
			innerText(n, &sb)
		}
		out = append(out, strings.TrimSpace(collapseBlankLines(sb.String())))
	})
	return out
}

func (p *HTMLPage) Images(selector string) []Image {
	var out []Image
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) != "img" {
			return
		}
		src, _ := s.Attr("src")
		w, _ := strconv.Atoi(s.AttrOr("width", "0"))
		h, _ := strconv.Atoi(s.AttrOr("height", "0"))
		out = append(out, Image{Src: src, Width: w, Height: h})
	})
	return out
}

func (p *HTMLPage) BodyText() string { return p.body }

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "div": true, "dl": true, "dt": true, "dd": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}

// innerText approximates the browser's innerText: script/style content is
// skipped and block elements end a line.
func innerText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		innerText(c, sb)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] {
		sb.WriteByte('\n')
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
