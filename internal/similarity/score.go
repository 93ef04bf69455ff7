package similarity

import (
	"strings"
	"unicode"
)

type bigram [2]rune

// Score returns the bigram overlap coefficient of a and b, a value in [0, 1].
//
// Whitespace is ignored. Each string is treated as a multiset of adjacent
// character pairs and the result is 2*|A∩B| / (|A|+|B|), where a pair shared
// by both sides counts at most as often as it occurs in either. Strings with
// fewer than two characters have no pairs: they score 1 against an identical
// string and 0 against anything else.
func Score(a, b string) float64 {
	ra := compact(a)
	rb := compact(b)

	if string(ra) == string(rb) {
		return 1
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[bigram]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		counts[bigram{ra[i], ra[i+1]}]++
	}

	overlap := 0
	for i := 0; i < len(rb)-1; i++ {
		key := bigram{rb[i], rb[i+1]}
		if counts[key] > 0 {
			counts[key]--
			overlap++
		}
	}

	return 2 * float64(overlap) / float64(len(ra)+len(rb)-2)
}

// compact drops all whitespace and returns the remaining runes.
func compact(s string) []rune {
	if !strings.ContainsFunc(s, unicode.IsSpace) {
		return []rune(s)
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}
