package search

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidUTF8 = errors.New("text is not valid utf-8")

// Normalize folds text to lower case, replaces every rune that is not a Latin
// or Cyrillic letter, a digit or whitespace with a space, collapses whitespace
// runs and trims the result.
func Normalize(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrInvalidUTF8
	}
	// cases.Caser keeps state between calls and must not be shared.
	folded := cases.Fold().String(norm.NFC.String(text))

	var builder strings.Builder
	builder.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining marks left over after composition
		case isCatalogLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			builder.WriteRune(r)
		default:
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " "), nil
}

func isCatalogLetter(r rune) bool {
	if !unicode.IsLetter(r) {
		return false
	}
	return unicode.Is(unicode.Latin, r) || unicode.Is(unicode.Cyrillic, r)
}

// foldTitle lower-cases a stored title without stripping punctuation, the
// form titles are compared in.
func foldTitle(title string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(title)))
}

// FoldTitle is exported for stores that persist the folded title.
func FoldTitle(title string) string {
	return foldTitle(title)
}

func ExtractWords(normalized string) []string {
	parts := strings.Split(normalized, " ")
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		words = append(words, part)
	}
	return words
}

// MakeTrigrams returns overlapping three-rune windows of normalized with
// spaces removed. Texts shorter than three runes yield nil.
func MakeTrigrams(normalized string) []string {
	runes := []rune(strings.ReplaceAll(normalized, " ", ""))
	if len(runes) < 3 {
		return nil
	}
	trigrams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		trigrams = append(trigrams, string(runes[i:i+3]))
	}
	return trigrams
}

// soundexCodes holds the digit for each letter A..Z. '0' marks vowels, which
// separate equal codes; '-' marks H and W, which do not.
const soundexCodes = "0123012-02245501262301-202"

// Soundex returns the four character American Soundex code of the Latin
// letters in text, or "" when there are none.
func Soundex(text string) string {
	out := make([]byte, 0, 4)
	var last byte
	for _, r := range text {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		letter := byte(unicode.ToUpper(r))
		code := soundexCodes[letter-'A']
		if len(out) == 0 {
			out = append(out, letter)
			last = code
			continue
		}
		switch code {
		case '0':
			last = code
		case '-':
		default:
			if code != last {
				out = append(out, code)
				if len(out) == 4 {
					return string(out)
				}
			}
			last = code
		}
	}
	if len(out) == 0 {
		return ""
	}
	for len(out) < 4 {
		out = append(out, '0')
	}
	return string(out)
}

func hasCyrillic(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Cyrillic, r) {
			return true
		}
	}
	return false
}

func hasLatin(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}
