package transcript

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// PreviewLength is the number of characters of a passage shown in a retrieval notice
const PreviewLength = 150

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Table),
)

// StripMarkdown renders text as Markdown and returns only its visible text:
// emphasis, code spans, headings, quotes and list markers are dropped, links
// keep their label, images disappear and newlines become spaces.
func StripMarkdown(text string) string {
	var html bytes.Buffer
	if err := markdown.Convert([]byte(text), &html); err != nil {
		return flatten(text)
	}

	doc, err := goquery.NewDocumentFromReader(&html)
	if err != nil {
		return flatten(text)
	}
	doc.Find("img").Remove()
	return flatten(doc.Text())
}

// Preview returns the first n characters of text without Markdown decoration
func Preview(text string, n int) string {
	if utf8.RuneCountInString(text) > n {
		text = string([]rune(text)[:n])
	}
	return StripMarkdown(text)
}

// flatten joins lines with single spaces
func flatten(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
