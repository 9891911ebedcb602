package content

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	htmlTags     = regexp.MustCompile(`<[^>]*>`)
	slugDisallow = regexp.MustCompile(`[^a-z0-9]+`)
)

// LimitString shortens s to at most limit characters, trimming trailing
// whitespace from the cut and appending Ellipsis. Strings within the limit are
// returned unchanged.
func LimitString(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimRight(string(r[:limit]), trimCutset) + Ellipsis
}

// StripTags removes HTML tags from s.
func StripTags(s string) string {
	return htmlTags.ReplaceAllString(s, "")
}

// Initials returns the upper-cased first letters of the first two words of name.
func Initials(name string) string {
	words := strings.Split(name, " ")
	if len(words) > 2 {
		words = words[:2]
	}
	var b strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Slugify turns a title into a lowercase, dash separated ASCII slug.
// Accents are folded ("Café" -> "cafe"); other symbols become separators.
func Slugify(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	slug := slugDisallow.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}
