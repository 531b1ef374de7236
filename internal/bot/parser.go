package bot

import (
	"regexp"
	"strings"

	"multfilm/searchbot/internal/domain"
)

// minTitleBytes mirrors how storage channel admins write captions: anything
// up to three bytes is a marker, not a title.
const minTitleBytes = 3

var (
	emojiPattern = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}` +
		`\x{1F700}-\x{1F77F}\x{1F780}-\x{1F7FF}\x{1F800}-\x{1F8FF}\x{1F900}-\x{1F9FF}` +
		`\x{1FA00}-\x{1FA6F}\x{1FA70}-\x{1FAFF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}` +
		`\x{FE00}-\x{FE0F}\x{1F1E6}-\x{1F1FF}]`)
	hashtagPattern = regexp.MustCompile(`#([^\s#]+)`)
	yearPattern    = regexp.MustCompile(`\(\d{4}\)`)
	quotePrefix    = regexp.MustCompile(`^>\s*`)
	bulletPrefix   = regexp.MustCompile(`^[▸▹►▶]\s*`)
	quotedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[\x{201C}\x{201D}"](.+?)[\x{201C}\x{201D}"]$`),
		regexp.MustCompile(`^[\x{2018}\x{2019}'](.+?)[\x{2018}\x{2019}']$`),
		regexp.MustCompile(`^\x{00AB}(.+?)\x{00BB}$`),
	}
)

// Caption is what a storage channel post says about its film.
type Caption struct {
	Title   string
	Details []domain.FilmDetail
}

// ParseCaption extracts the title and "Key: Value" details of a post.
// Title is empty when none could be found.
func ParseCaption(text string) Caption {
	lines := captionLines(emojiPattern.ReplaceAllString(text, ""))
	return Caption{
		Title:   extractTitle(lines),
		Details: extractDetails(lines),
	}
}

func captionLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// extractTitle prefers a hashtag on the first line (#Kung_Fu_Panda_(2008)),
// then the first quoted or plain line long enough to be a title.
func extractTitle(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	if m := hashtagPattern.FindStringSubmatch(lines[0]); m != nil {
		title := strings.ReplaceAll(m[1], "_", " ")
		title = yearPattern.ReplaceAllString(title, "")
		return strings.TrimSpace(title)
	}

	for _, line := range lines {
		candidate := bulletPrefix.ReplaceAllString(quotePrefix.ReplaceAllString(line, ""), "")
		for _, pattern := range quotedPatterns {
			if m := pattern.FindStringSubmatch(candidate); m != nil {
				if title := strings.TrimSpace(m[1]); len(title) > minTitleBytes {
					return title
				}
			}
		}
		if title := strings.TrimSpace(candidate); len(title) > minTitleBytes {
			return title
		}
	}
	return ""
}

// extractDetails keeps the first position of a repeated key and its last value.
func extractDetails(lines []string) []domain.FilmDetail {
	var details []domain.FilmDetail
	index := make(map[string]int)
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		if i, seen := index[key]; seen {
			details[i].Value = value
			continue
		}
		index[key] = len(details)
		details = append(details, domain.FilmDetail{Key: key, Value: value})
	}
	return details
}
