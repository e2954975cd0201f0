package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharacterCount returns the number of runes in text.
func CharacterCount(text string) int {
	return utf8.RuneCountInString(text)
}

// LongestWord returns the rune length of the longest word, ignoring
// surrounding punctuation.
func LongestWord(text string) int {
	longest := 0
	for _, word := range strings.Fields(text) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if n := utf8.RuneCountInString(word); n > longest {
			longest = n
		}
	}
	return longest
}

// CollapseWhitespace trims text and folds internal whitespace runs to one space.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// EndsSentence reports whether text ends with terminal punctuation, ignoring
// trailing quotes and closing brackets.
func EndsSentence(text string) bool {
	trimmed := strings.TrimRightFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`"')]»”’`, r)
	})
	if trimmed == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	switch last {
	case '.', '!', '?', '…', '。', '！', '？':
		return true
	}
	return false
}
