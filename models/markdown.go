package models

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/russross/blackfriday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const summaryLength = 200

var (
	headingIDStrip  = regexp.MustCompile(`[^\w\s\x{4e00}-\x{9fa5}-]`)
	headingIDSpaces = regexp.MustCompile(`\s+`)
	headingIDDashes = regexp.MustCompile(`-+`)
	whitespace      = regexp.MustCompile(`\s+`)
)

var tocLevels = map[atom.Atom]int{
	atom.H1: 1,
	atom.H2: 2,
	atom.H3: 3,
	atom.H4: 4,
}

// TOCEntryType is a heading that can be linked to
type TOCEntryType struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// RenderedType is article markdown turned into safe HTML
type RenderedType struct {
	HTML string         `json:"html"`
	TOC  []TOCEntryType `json:"toc"`
}

// RenderArticle converts markdown into sanitised HTML with an id on every
// h1 to h4, and returns those headings as a table of contents
func RenderArticle(markdown string) (RenderedType, error) {
	src := MarkdownToHTML([]byte(markdown))

	// Scrub the generated HTML of anything nasty
	src = SanitiseHTML(src)

	// Heading ids are assigned after sanitising so that they are unique and
	// cannot be spoofed by raw HTML in the source
	out, toc, err := addHeadingIDs(src)
	if err != nil {
		return RenderedType{}, err
	}

	return RenderedType{HTML: string(out), TOC: toc}, nil
}

// MarkdownToHTML wraps Black Friday and provides default settings for Black Friday
func MarkdownToHTML(src []byte) []byte {

	extensions := 0

	// detect embedded URLs that are not explicitly marked
	extensions |= blackfriday.EXTENSION_AUTOLINK

	// render fenced code blocks
	extensions |= blackfriday.EXTENSION_FENCED_CODE

	// ignore emphasis markers inside words
	extensions |= blackfriday.EXTENSION_NO_INTRA_EMPHASIS

	// be strict about prefix header rules
	extensions |= blackfriday.EXTENSION_SPACE_HEADERS

	// strikethrough text using ~~test~~
	extensions |= blackfriday.EXTENSION_STRIKETHROUGH

	// render HTML tables
	extensions |= blackfriday.EXTENSION_TABLES

	// No need to insert an empty line to start a (code, quote, order list,
	// unorder list) block
	extensions |= blackfriday.EXTENSION_NO_EMPTY_LINE_BEFORE_BLOCK

	// Pandoc-style footnotes
	extensions |= blackfriday.EXTENSION_FOOTNOTES

	htmlFlags := 0

	// generate XHTML output instead of HTML
	htmlFlags |= blackfriday.HTML_USE_XHTML

	// only link to trusted protocols
	htmlFlags |= blackfriday.HTML_SAFELINK

	renderer := blackfriday.HtmlRenderer(htmlFlags, "", "")

	return blackfriday.Markdown(src, renderer, extensions)
}

// HeadingID turns heading text into a fragment identifier: lower case,
// punctuation removed, runs of whitespace and hyphens collapsed to a single
// hyphen. Han characters are kept.
func HeadingID(text string) string {
	id := strings.ToLower(text)
	id = headingIDStrip.ReplaceAllString(id, "")
	id = headingIDSpaces.ReplaceAllString(id, "-")
	id = headingIDDashes.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}

func addHeadingIDs(src []byte) ([]byte, []TOCEntryType, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}

	nodes, err := html.ParseFragment(bytes.NewReader(src), body)
	if err != nil {
		return nil, nil, fmt.Errorf("could not parse rendered HTML: %v", err)
	}

	toc := []TOCEntryType{}
	used := map[string]int{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level, ok := tocLevels[n.DataAtom]; ok {
				text := strings.TrimSpace(nodeText(n))

				base := HeadingID(text)
				if base == "" {
					base = "section"
				}

				id := base
				if count := used[base]; count > 0 {
					id = fmt.Sprintf("%s-%d", base, count)
				}
				used[base]++
				if id != base {
					used[id]++
				}

				setAttr(n, "id", id)
				toc = append(toc, TOCEntryType{ID: id, Text: text, Level: level})
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	b := new(bytes.Buffer)
	for _, n := range nodes {
		walk(n)

		err = html.Render(b, n)
		if err != nil {
			return nil, nil, err
		}
	}

	return b.Bytes(), toc, nil
}

func setAttr(n *html.Node, key string, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

// PlainTextSummary renders markdown and returns the start of its text
func PlainTextSummary(markdown string) string {
	text := html.UnescapeString(SanitiseText(string(MarkdownToHTML([]byte(markdown)))))
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	if utf8.RuneCountInString(text) <= summaryLength {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:summaryLength])) + "…"
}
