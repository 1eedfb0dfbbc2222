package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CollapseSpaces trims s and reduces every whitespace run to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Len returns the length of s in characters.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}

// Fold returns the comparison form of s: NFKC-normalized, case-folded, with
// whitespace collapsed. Callers strip markers before folding.
func Fold(s string) string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return CollapseSpaces(folded)
}

// CommonPrefixRatio returns the length of the longest common prefix of a and b
// divided by the longer of the two, in characters. Two empty strings yield 1.
func CommonPrefixRatio(a, b string) float64 {
	ar := []rune(a)
	br := []rune(b)
	longest := max(len(ar), len(br))
	if longest == 0 {
		return 1
	}
	n := 0
	for n < len(ar) && n < len(br) && ar[n] == br[n] {
		n++
	}
	return float64(n) / float64(longest)
}

// TruncateRunes returns the first n characters of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// TailRunes returns the last n characters of s.
func TailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
