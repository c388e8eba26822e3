// Package markdown escapes text for Telegram MarkdownV2 messages.
package markdown

import "strings"

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `._[](){}#|!+-=*~>` + "`" + `\`

//nolint:gochecknoglobals // Lookup tables meant to be immutable.
var (
	mdV2Lookup = lookup(mdV2SpecialChars)
	codeLookup = lookup("`\\")
	linkLookup = lookup(`)\`)
)

// EscapeV2 escapes plain text.
func EscapeV2(input string) string {
	return escape(input, &mdV2Lookup)
}

// InlineCode wraps input into an inline code entity. Inside code entities only
// backticks and backslashes are escaped.
func InlineCode(input string) string {
	return "`" + escape(input, &codeLookup) + "`"
}

// Link builds an inline link. Inside the URL part only ')' and '\' are escaped.
func Link(text string, url string) string {
	return "[" + EscapeV2(text) + "](" + escape(url, &linkLookup) + ")"
}

func escape(input string, lookup *[256]bool) string {
	charsToEscape := 0

	for i := range len(input) {
		if lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range len(input) {
		c := input[i]
		if lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

func lookup(chars string) [256]bool {
	var m [256]bool
	for _, c := range []byte(chars) {
		m[c] = true
	}
	return m
}
