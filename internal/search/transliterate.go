package search

import (
	"sort"
	"strings"
)

type translitPair struct {
	cyrillic rune
	latin    string
}

// translitTable lists Russian letters (without hard and soft signs) in both
// cases followed by the Uzbek-specific Cyrillic letters. When several
// Cyrillic letters share a Latin form, the first one listed is restored on
// the way back.
var translitTable = []translitPair{
	{'А', "A"}, {'Б', "B"}, {'В', "V"}, {'Г', "G"}, {'Д', "D"}, {'Е', "E"}, {'Ё', "Yo"},
	{'Ж', "Zh"}, {'З', "Z"}, {'И', "I"}, {'Й', "Y"}, {'К', "K"}, {'Л', "L"}, {'М', "M"},
	{'Н', "N"}, {'О', "O"}, {'П', "P"}, {'Р', "R"}, {'С', "S"}, {'Т', "T"}, {'У', "U"},
	{'Ф', "F"}, {'Х', "Kh"}, {'Ц', "Ts"}, {'Ч', "Ch"}, {'Ш', "Sh"}, {'Щ', "Shch"},
	{'Ы', "Y"}, {'Э', "E"}, {'Ю', "Yu"}, {'Я', "Ya"},
	{'а', "a"}, {'б', "b"}, {'в', "v"}, {'г', "g"}, {'д', "d"}, {'е', "e"}, {'ё', "yo"},
	{'ж', "zh"}, {'з', "z"}, {'и', "i"}, {'й', "y"}, {'к', "k"}, {'л', "l"}, {'м', "m"},
	{'н', "n"}, {'о', "o"}, {'п', "p"}, {'р', "r"}, {'с', "s"}, {'т', "t"}, {'у', "u"},
	{'ф', "f"}, {'х', "kh"}, {'ц', "ts"}, {'ч', "ch"}, {'ш', "sh"}, {'щ', "shch"},
	{'ы', "y"}, {'э', "e"}, {'ю', "yu"}, {'я', "ya"},
	{'Ғ', "G'"}, {'Қ', "Q"}, {'Ў', "O'"}, {'Ҳ', "H"},
	{'ғ', "g'"}, {'қ', "q"}, {'ў', "o'"}, {'ҳ', "h"},
}

var (
	cyrillicToLatin = buildCyrillicToLatin()
	latinToCyrillic = buildLatinToCyrillic()
)

func buildCyrillicToLatin() map[rune]string {
	out := make(map[rune]string, len(translitTable))
	for _, pair := range translitTable {
		out[pair.cyrillic] = pair.latin
	}
	return out
}

// buildLatinToCyrillic orders Latin keys longest first so that "Shch" is
// consumed before "Sh" and "S".
func buildLatinToCyrillic() *strings.Replacer {
	seen := make(map[string]rune, len(translitTable))
	keys := make([]string, 0, len(translitTable))
	for _, pair := range translitTable {
		if _, ok := seen[pair.latin]; ok {
			continue
		}
		seen[pair.latin] = pair.cyrillic
		keys = append(keys, pair.latin)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return len(keys[i]) > len(keys[j])
	})
	oldnew := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		oldnew = append(oldnew, key, string(seen[key]))
	}
	return strings.NewReplacer(oldnew...)
}

// Transliterate converts Cyrillic text to Latin when it contains any Cyrillic
// letter and Latin text to Cyrillic otherwise. Text with neither script is
// returned unchanged. Free Latin text does not necessarily survive a round
// trip: "e" always comes back as "е" and "y" as "й".
func Transliterate(text string) string {
	if hasCyrillic(text) {
		var builder strings.Builder
		builder.Grow(len(text))
		for _, r := range text {
			if latin, ok := cyrillicToLatin[r]; ok {
				builder.WriteString(latin)
				continue
			}
			builder.WriteRune(r)
		}
		return builder.String()
	}
	if !hasLatin(text) {
		return text
	}
	return latinToCyrillic.Replace(text)
}
