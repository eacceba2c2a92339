// Package htmlsanitize cleans text that arrives from group records before it
// becomes a room name, a room description or part of a notification email.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	once   sync.Once
	strict *bluemonday.Policy
	ugc    *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	once.Do(func() {
		strict = bluemonday.StrictPolicy()

		ugc = bluemonday.UGCPolicy()
		ugc.AllowElements("u", "s", "mark")
		ugc.AllowAttrs("class").OnElements("table", "tr", "td", "th")
		ugc.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	})
	return strict, ugc
}

// SanitizeName strips every tag from s and returns plain text with
// whitespace collapsed. Entities are decoded so the stored name reads the
// same as the title it came from.
func SanitizeName(s string) string {
	if s == "" {
		return ""
	}
	p, _ := policies()
	clean := html.UnescapeString(p.Sanitize(s))
	return strings.Join(strings.Fields(clean), " ")
}

// Sanitize keeps a safe subset of HTML (formatting, lists, links, tables)
// and removes scripts, event handlers and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	_, p := policies()
	return p.Sanitize(s)
}

// IsPlainText reports whether s contains no markup.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}

// PlainTextToHTML escapes s and wraps it in a paragraph, turning newlines
// into <br>.
func PlainTextToHTML(s string) string {
	if s == "" {
		return ""
	}
	escaped := html.EscapeString(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}

// PrepareForDisplay returns s as template.HTML ready for a mail template:
// plain text is converted, markup is sanitized.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return template.HTML(PlainTextToHTML(s))
	}
	return template.HTML(Sanitize(s))
}
