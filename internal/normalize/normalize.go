// Package normalize produces canonical comparison keys from human game
// titles. The key is what cross-source deduplication groups on, so the
// function must be total and idempotent.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Suffix phrases appended by storefronts to free promotions. Stripped from
// the end of the title, repeatedly, so stacked suffixes collapse too.
var freebieSuffixes = []string{
	" es gratis",
	" is free",
	" gratis",
	" free",
	" demo",
}

// Articles stripped from the front and the interior of a title. Spanish
// articles included because several upstream feeds localize titles.
var articles = map[string]bool{
	"the": true, "a": true, "an": true,
	"el": true, "la": true, "los": true, "las": true,
}

// NFKD-decompose then drop combining marks, so "Pokémon" and "Pokemon"
// compare equal. Trademark glyphs decompose to "tm"/"r" junk under NFKD,
// so they are removed before folding.
var foldTransformer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
)

// Title returns the canonical comparison key for a raw title.
//
// Steps, in order: lowercase and trim; fold unicode; promote parenthesized
// alternate names out of their parentheses; replace joiner punctuation with
// spaces; strip trailing freebie suffixes; drop leading and interior
// articles; collapse whitespace.
func Title(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	s = strings.ReplaceAll(s, "™", "")
	s = strings.ReplaceAll(s, "®", "")
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}

	// "Rustler (Grand Theft Horse)" and "Rustler - Grand Theft Horse"
	// must produce the same key.
	s = strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', '-', ':', '_':
			return ' '
		}
		return r
	}, s)

	s = collapse(s)

	for stripped := true; stripped; {
		stripped = false
		for _, suf := range freebieSuffixes {
			if strings.HasSuffix(s, suf) {
				s = strings.TrimSpace(strings.TrimSuffix(s, suf))
				stripped = true
			}
		}
	}

	toks := strings.Fields(s)
	out := make([]string, 0, len(toks))
	for i, tok := range toks {
		// The final token survives even if it is an article, so titles
		// that are nothing but an article still produce a stable key.
		if articles[tok] && i != len(toks)-1 {
			continue
		}
		out = append(out, tok)
	}

	return strings.Join(out, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
