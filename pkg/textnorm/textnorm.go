// Package textnorm normalizes user text for matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lang is the working language of user-facing text.
var Lang = language.BrazilianPortuguese

// Normalize trims s and lowercases it with Portuguese casing rules.
func Normalize(s string) string {
	// cases.Caser is stateful, one per call
	return cases.Lower(Lang).String(strings.TrimSpace(s))
}

// Fold normalizes s and strips diacritics ("Não" -> "nao").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, Normalize(s))
	if err != nil {
		return Normalize(s)
	}
	return out
}

// Tokens splits the folded form of s into letter/digit words.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
