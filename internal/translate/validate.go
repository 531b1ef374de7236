package translate

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
)

// IsValidTranslation rejects empty answers, answers that merely echo the
// original (ignoring case and surrounding space) and answers that are a URL.
func IsValidTranslation(original, translated string) bool {
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return false
	}
	fold := cases.Fold()
	if fold.String(strings.TrimSpace(original)) == fold.String(translated) {
		return false
	}
	return !looksLikeURL(translated)
}

func looksLikeURL(value string) bool {
	if strings.ContainsAny(value, " \t\n") {
		return false
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}
