// Package textutils provides text extraction and manipulation utilities.
package textutils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	hashtagPattern = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_-]{2,40})`)
	numericPattern = regexp.MustCompile(`^[\s\d.,'xX%R$+\-]*\d[\s\d.,'xX%R$+\-]*$`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Fold lowercases text, strips diacritics, collapses whitespace and trims
// surrounding punctuation, so "  Crédito! " and "credito" compare equal.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)
	folded = spacePattern.ReplaceAllString(folded, " ")
	return strings.TrimFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(".,;:!?\"'()[]", r)
	})
}

// ExtractTags returns the distinct hashtags of a description, lowercased and
// without the leading '#', in order of appearance.
func ExtractTags(description string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(description, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// LooksNumeric reports whether text is made only of digits, separators and
// amount decorations such as "R$", "x" or "%".
func LooksNumeric(text string) bool {
	return numericPattern.MatchString(strings.TrimSpace(text))
}

// Words folds text and splits it on whitespace and punctuation.
func Words(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

// ContainsPhrase reports whether the words of phrase appear consecutively in
// text, ignoring case, accents and punctuation.
func ContainsPhrase(text, phrase string) bool {
	want := Words(phrase)
	if len(want) == 0 {
		return false
	}
	have := Words(text)
	for i := 0; i+len(want) <= len(have); i++ {
		match := true
		for j := range want {
			if have[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
