package textutil

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minTokenRunes = 3

// Tokenize lower-cases text and splits it on anything that is not a letter
// or digit, dropping tokens shorter than three runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// termVector counts tokens and returns the counts with their Euclidean norm.
func termVector(text string) (map[string]float64, float64) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil, 0
	}
	counts := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}
	var sum float64
	for _, c := range counts {
		sum += c * c
	}
	return counts, math.Sqrt(sum)
}

// Overlap is the cosine similarity of the token counts of reference and
// candidate, in [0, 1]. ok is false when reference has no usable tokens, in
// which case the score is meaningless.
func Overlap(reference, candidate string) (score float64, ok bool) {
	ref, refNorm := termVector(reference)
	if refNorm == 0 {
		return 0, false
	}
	cand, candNorm := termVector(candidate)
	if candNorm == 0 {
		return 0, true
	}
	small, large := ref, cand
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for tok, c := range small {
		dot += c * large[tok]
	}
	return dot / (refNorm * candNorm), true
}
