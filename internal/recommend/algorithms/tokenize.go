// Vitrine - Hybrid Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitrine

package algorithms

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// minTokenLength drops single-character tokens.
const minTokenLength = 2

// stopWords are English and Spanish function words that carry no product
// signal. Stored without diacritics since tokens are folded first.
var stopWords = map[string]struct{}{
	// English
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "our": {}, "so": {},
	"that": {}, "the": {}, "their": {}, "this": {}, "to": {}, "was": {}, "we": {},
	"with": {}, "you": {}, "your": {}, "all": {}, "more": {}, "very": {}, "can": {},
	"will": {}, "not": {}, "no": {}, "new": {},
	// Spanish
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {}, "unos": {},
	"unas": {}, "de": {}, "del": {}, "al": {}, "en": {}, "con": {}, "para": {},
	"por": {}, "que": {}, "se": {}, "su": {}, "sus": {}, "es": {}, "son": {}, "muy": {},
	"mas": {}, "sin": {}, "sobre": {}, "este": {}, "esta": {}, "estos": {},
	"estas": {}, "ese": {}, "esa": {}, "lo": {}, "le": {}, "les": {}, "como": {},
	"pero": {}, "tu": {}, "nuestro": {}, "nuestra": {}, "nuevo": {}, "nueva": {},
}

// foldDiacritics decomposes text, removes combining marks and recomposes it,
// so "Café" and "cafe" yield the same token.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Tokenize lowercases text, strips diacritics, splits on anything that is not
// a letter or digit and drops stop words and short tokens. The result is a
// set.
func Tokenize(texts ...string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, text := range texts {
		folded := strings.ToLower(foldDiacritics(text))
		fields := strings.FieldsFunc(folded, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, f := range fields {
			if len([]rune(f)) < minTokenLength {
				continue
			}
			if _, stop := stopWords[f]; stop {
				continue
			}
			tokens[f] = struct{}{}
		}
	}
	return tokens
}
