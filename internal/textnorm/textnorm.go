// Package textnorm normalizes user text for matching: lowercasing, diacritic
// stripping and tokenization. Confirmation tokens, field keywords and category
// guesses are all compared in this normalized space so "Xác nhận" and
// "xac nhan" canonicalize identically.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// U+0111/U+0110 carry a stroke, not a combining mark, so NFD leaves them alone.
var foldD = strings.NewReplacer("đ", "d", "Đ", "D")

// Fold lowercases s, strips diacritical marks and trims surrounding space.
func Fold(s string) string {
	in := foldD.Replace(strings.ToLower(strings.TrimSpace(s)))
	out, _, err := transform.String(stripMarks, in)
	if err != nil {
		return in
	}
	return out
}

// Squash is Fold with all whitespace removed; used for multi-word trigger
// phrases like "mua them".
func Squash(s string) string {
	return strings.Join(strings.Fields(Fold(s)), "")
}

// Letters is Fold restricted to a-z only. Confirmation tokens are matched in
// this space so punctuation ("OK!") does not defeat an exact match.
func Letters(s string) string {
	var b strings.Builder
	for _, r := range Fold(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokens splits Fold(s) on any non-alphanumeric rune, dropping empties.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
