package textproc

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockSelectors = "br, p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote, pre"

// StripHTML flattens rich-text note bodies to plain text. Block elements
// become line breaks and runs of blank space collapse. Text without markup
// is returned with whitespace normalized only.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return normalizeSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return normalizeSpace(s)
	}
	doc.Find("script, style").Remove()
	doc.Find(blockSelectors).AfterHtml("\n")
	return normalizeSpace(doc.Text())
}

// normalizeSpace collapses horizontal whitespace within lines and runs of
// blank lines to a single blank line, keeping paragraph breaks.
func normalizeSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
