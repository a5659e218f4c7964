// Package similarity implements the lexical scorer used by the match
// pipeline: a token-set Dice coefficient over normalized words. It is cheap
// enough to run against every candidate; the LLM judge is only consulted for
// borderline scores.
package similarity

import (
	"strings"
	"unicode"
)

// Score returns the similarity of two texts in [0, 1]. It is deterministic,
// symmetric, case-insensitive, and tolerant of punctuation and whitespace
// differences. Texts with no tokens score 0 against anything.
func Score(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common++
		}
	}

	// Dice coefficient: 2|A∩B| / (|A|+|B|).
	return 2 * float64(common) / float64(len(ta)+len(tb))
}

// tokenSet splits text into lowercase alphanumeric words.
func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
