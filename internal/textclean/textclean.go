// Package textclean strips formatting noise from review text before it is
// sent to the insight service.
package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Punctuation is the ASCII punctuation set removed by Normalize.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// space is every rune Unicode treats as whitespace. RE2's \s only covers
// [\t\n\f\r ], which would let a URL run on into the next word.
const space = `\t\n\v\f\r \x{1c}-\x{1f}\x{85}\p{Z}`

var (
	tagRe   = regexp.MustCompile(`<.*?>`)
	urlRe   = regexp.MustCompile(`(?:http|www)[^` + space + `]+`)
	spaceRe = regexp.MustCompile(`[` + space + `]+`)
)

// Normalize removes HTML tags, URLs, non-ASCII characters and ASCII
// punctuation, then collapses whitespace. The steps are repeated until the
// text stops changing, so Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	for {
		next := clean(text)
		if next == text {
			return next
		}
		text = next
	}
}

func clean(text string) string {
	text = tagRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	text = strings.Map(func(r rune) rune {
		if r >= utf8.RuneSelf || strings.ContainsRune(Punctuation, r) {
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
