// Package tokenizer splits utterances into word and punctuation tokens.
package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// Punctuation is the closed set of marks split off the end of a word.
const Punctuation = ".,?!;:"

func isMark(r rune) bool {
	return strings.ContainsRune(Punctuation, r)
}

// Split splits text on whitespace and separates a single trailing
// punctuation mark into its own token. Repeated marks ("!!") and marks
// following '!' or '?' ("?!") stay fused to the word.
func Split(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields)+1)

	for _, f := range fields {
		last, size := utf8.DecodeLastRuneInString(f)
		head := f[:len(f)-size]
		if head == "" {
			tokens = append(tokens, f)
			continue
		}
		prev, _ := utf8.DecodeLastRuneInString(head)

		if last != prev && isMark(last) && prev != '!' && prev != '?' {
			tokens = append(tokens, head, string(last))
		} else {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// IsPunctuation reports whether tok is exactly one punctuation mark.
func IsPunctuation(tok string) bool {
	r, size := utf8.DecodeRuneInString(tok)
	if size == 0 || size != len(tok) {
		return false
	}
	return isMark(r)
}

// Join concatenates tokens with single spaces, except that no space goes
// before a punctuation token.
func Join(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && !IsPunctuation(tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// StartsWithPunctuation reports whether the first rune of s is a
// punctuation mark. Empty strings count as punctuation so that nothing is
// glued onto them.
func StartsWithPunctuation(s string) bool {
	if s == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s)
	return isMark(r)
}

// EndsWithPunctuation is the mirror of StartsWithPunctuation.
func EndsWithPunctuation(s string) bool {
	if s == "" {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return isMark(r)
}
