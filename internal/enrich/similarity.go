package enrich

import "strings"

var similarityStop = map[string]bool{"the": true, "a": true, "an": true}

func tokenSet(title string) map[string]bool {
	s := strings.ToLower(title)
	for _, junk := range []string{"™", "®"} {
		s = strings.ReplaceAll(s, junk, "")
	}
	s = strings.Map(func(r rune) rune {
		if r == ':' || r == '-' {
			return ' '
		}
		return r
	}, s)

	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		if similarityStop[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

// Similar reports whether a candidate upstream title is an acceptable match
// for the queried title: one token set contains the other, or their Jaccard
// similarity is at least 0.6.
func Similar(query, candidate string) bool {
	a := tokenSet(query)
	b := tokenSet(candidate)
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}

	if inter == len(a) || inter == len(b) {
		return true // subset either way
	}

	union := len(a) + len(b) - inter
	return float64(inter)/float64(union) >= 0.6
}
