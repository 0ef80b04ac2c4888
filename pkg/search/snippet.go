package search

import (
	"strings"
	"unicode"
)

// DefaultSnippetLength is the approximate snippet window in runes.
const DefaultSnippetLength = 200

// Snippet extracts a window of content centered on the first keyword
// occurrence and wraps every occurrence inside the window in
// <mark></mark>. Matching is case-insensitive; when the keyword does not
// occur, the head of the content is returned unhighlighted.
func Snippet(content, keyword string, length int) string {
	if length <= 0 {
		length = DefaultSnippetLength
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	runes := []rune(content)
	kw := lowerRunes([]rune(keyword))

	matchStart := indexRunes(lowerRunes(runes), kw, 0)
	if matchStart < 0 {
		if len(runes) <= length {
			return content
		}
		return string(runes[:length]) + "…"
	}

	start := matchStart - (length-len(kw))/2
	if start < 0 {
		start = 0
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
		start = end - length
		if start < 0 {
			start = 0
		}
	}

	highlighted := highlight(runes[start:end], kw)

	if start > 0 {
		highlighted = "…" + highlighted
	}
	if end < len(runes) {
		highlighted += "…"
	}
	return highlighted
}

// highlight wraps each case-insensitive occurrence of the lowercased
// keyword in <mark></mark>, preserving the original casing of the
// matched text.
func highlight(text, kw []rune) string {
	if len(kw) == 0 {
		return string(text)
	}
	lower := lowerRunes(text)

	var b strings.Builder
	pos := 0
	for {
		idx := indexRunes(lower, kw, pos)
		if idx < 0 {
			b.WriteString(string(text[pos:]))
			return b.String()
		}
		b.WriteString(string(text[pos:idx]))
		b.WriteString("<mark>")
		b.WriteString(string(text[idx : idx+len(kw)]))
		b.WriteString("</mark>")
		pos = idx + len(kw)
	}
}

// lowerRunes lowercases rune by rune. Unlike strings.ToLower this is a
// strict 1:1 mapping, so indices into the result line up with indices
// into the input even for characters such as U+0130 whose full
// lowercase form has a different length.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// indexRunes returns the index of the first occurrence of needle in
// haystack at or after from, or -1.
func indexRunes(haystack, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for j, r := range needle {
			if haystack[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
