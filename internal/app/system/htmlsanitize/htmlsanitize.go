// Package htmlsanitize reduces caller-supplied free text to plain text.
//
// Allocation reasons are typed by administrators and shown again in
// timelines and exports, so markup is stripped before anything is stored.
package htmlsanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxReasonLength is the longest reason kept, in runes.
const MaxReasonLength = 500

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s, unescapes entities, collapses runs of
// whitespace and truncates the result to max runes (max <= 0 means no limit).
func PlainText(s string, max int) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	out = strings.Join(strings.Fields(out), " ")
	if max > 0 && utf8.RuneCountInString(out) > max {
		out = strings.TrimSpace(string([]rune(out)[:max]))
	}
	return out
}
