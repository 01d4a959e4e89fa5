// Package textnorm turns blog markup into plain text for extraction.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	// Block-level closers become line breaks so paragraph structure survives tag stripping.
	blockBreak = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|ul|ol|h[1-6]|blockquote|pre|tr|table|section|article)\s*>`)

	mdImage      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdCodeFence  = regexp.MustCompile("(?m)^\\s*```[^\\n]*$")
	mdHeading    = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	mdListMarker = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	mdQuote      = regexp.MustCompile(`(?m)^\s*>\s?`)

	lineBreak = regexp.MustCompile(`\n+`)
	spaceRun  = regexp.MustCompile(`[ \t\r\f\v]+`)
)

const sentenceEnds = ".。!！?？"

// StripMarkup removes HTML tags and markdown syntax and keeps one line per block
func StripMarkup(raw string) string {
	if raw == "" {
		return ""
	}

	text := raw
	if strings.ContainsAny(text, "<&") {
		text = stripHTML(text)
	}

	text = mdImage.ReplaceAllString(text, " ")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdCodeFence.ReplaceAllString(text, "")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdListMarker.ReplaceAllString(text, "")
	text = mdQuote.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func stripHTML(raw string) string {
	withBreaks := blockBreak.ReplaceAllString(raw, "$0\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(withBreaks))
	if err != nil {
		// The HTML tokenizer only fails on reader errors; fall back to the raw text.
		return raw
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

// Normalize strips markup and collapses every run of characters that are not
// letters, digits, '_', word-internal '-' or word-internal '.' into a single space.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	return strings.Join(Words(StripMarkup(raw)), " ")
}

// Words splits s into normalized tokens. Hyphens are kept only inside a
// token; a dot is kept only between two ASCII letters or digits, so
// "Node.js" stays one word.
func Words(s string) []string {
	runes := []rune(s)
	var out []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if f := strings.Trim(string(runes[start:end]), "-"); f != "" {
			out = append(out, f)
		}
		start = -1
	}
	for i, r := range runes {
		if isWordRune(r) || innerDot(runes, i) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(runes))
	return out
}

// Paragraphs returns the non-empty lines of the stripped text
func Paragraphs(raw string) []string {
	stripped := StripMarkup(raw)
	if stripped == "" {
		return nil
	}
	parts := lineBreak.Split(stripped, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Sentences splits a paragraph on Latin and CJK sentence terminators. A dot
// inside a name such as "Next.js" does not end a sentence.
func Sentences(paragraph string) []string {
	runes := []rune(paragraph)
	var out []string
	start := 0
	flush := func(end int) {
		if p := strings.TrimSpace(string(runes[start:end])); p != "" {
			out = append(out, p)
		}
		start = end + 1
	}
	for i, r := range runes {
		if strings.ContainsRune(sentenceEnds, r) && !innerDot(runes, i) {
			flush(i)
		}
	}
	if start < len(runes) {
		flush(len(runes))
	}
	return out
}

// IsCJK reports whether r is in the CJK unified ideographs block
func IsCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// ContainsCJK reports whether s has at least one Han character
func ContainsCJK(s string) bool {
	for _, r := range s {
		if IsCJK(r) {
			return true
		}
	}
	return false
}

// RuneLen is the length of s in characters
func RuneLen(s string) int {
	return len([]rune(s))
}

// innerDot reports whether runes[i] is a '.' between two ASCII letters or digits
func innerDot(runes []rune, i int) bool {
	if runes[i] != '.' || i == 0 || i == len(runes)-1 {
		return false
	}
	return isASCIIAlnum(runes[i-1]) && isASCIIAlnum(runes[i+1])
}

func isASCIIAlnum(r rune) bool {
	return r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}
