package search

import (
	"strings"

	"multfilm/searchbot/internal/domain"
)

// cascadeLanguages is the order in which translation targets are tried.
var cascadeLanguages = []domain.Language{
	domain.LanguageUzbek,
	domain.LanguageRussian,
	domain.LanguageEnglish,
}

// turkicLatinLetters mark Latin text that is not plain English.
const turkicLatinLetters = "İğıöüşçĞÖÜŞÇ"

// DetectLanguage classifies text by script: any Cyrillic letter means
// Russian, plain Latin means English and everything else, including Latin
// with Turkic diacritics, is treated as Uzbek.
func DetectLanguage(text string) domain.Language {
	if hasCyrillic(text) {
		return domain.LanguageRussian
	}
	if hasASCIILetter(text) && !strings.ContainsAny(text, turkicLatinLetters) {
		return domain.LanguageEnglish
	}
	return domain.LanguageUzbek
}

// LanguagesToTry returns the cascade languages other than source, in order.
func LanguagesToTry(source domain.Language) []domain.Language {
	out := make([]domain.Language, 0, len(cascadeLanguages)-1)
	for _, lang := range cascadeLanguages {
		if lang != source {
			out = append(out, lang)
		}
	}
	return out
}

func hasASCIILetter(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}
