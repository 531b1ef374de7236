package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/telegram"
)

const (
	CommandStart       = "/start"
	SearchButtonText   = "🎬 Multfilmlarni Topish"
	FilmCallbackPrefix = "film_"

	buttonsPerRow = 5
	separator     = "━━━━━━━━━━━━━━━━━━━━"
	selectedMark  = "✅ "
	pendingMark   = "▶️ "
)

const (
	welcomeText = "<b>Assalomu alaykum!\n\n" +
		"Men sizga kerakli multfilmlarni topib beraman.\n\n" +
		"🔍 Qanday foydalanish:\n" +
		"1️⃣ Pastdagi tugmani bosing\n" +
		"2️⃣ Film nomini yozing\n\n" +
		"👇 Boshlash uchun tugmani bosing</b>"
	searchInstructionText = "🔍 Multfilm nomini yozing, men sizga topib beraman!\n\n💡 Masalan: <code>Kung Fu Panda</code>"
	shortQueryText        = "⚠️ Iltimos, kamida 2 ta harf kiriting."
	genericErrorText      = "❌ Xatolik yuz berdi. Iltimos, qaytadan urinib ko'ring."
	filmNotFoundText      = "❌ Film topilmadi"
	chooseFilmText        = "👇 <b>Kerakli filmni tanlang:</b>"
)

var detailEmoji = map[string]string{
	"Janr":        "🎭",
	"Sifat":       "📺",
	"Davomiyligi": "⏱",
	"Davlat":      "🌍",
	"Yil":         "📅",
	"Rejissyor":   "🎬",
	"Til":         "🗣",
}

func notFoundText(query string) string {
	return fmt.Sprintf("😔 <b>Afsuski '%s'</b> nomi bilan multfilm topilmadi.\n\n<em>Boshqa nom bilan urinib ko'ring.</em>",
		html.EscapeString(query))
}

func loadingText(film domain.Film) string {
	return fmt.Sprintf("✅ %s yuklanmoqda...", film.Title)
}

// filmListText renders the numbered result list sent with the number buttons.
func filmListText(query string, films []domain.Film) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 <b>Qidiruv natijalari:</b> '%s'\n%s\n📊 Topildi: <b>%d ta natija</b>\n\n",
		html.EscapeString(query), separator, len(films))
	for i, film := range films {
		fmt.Fprintf(&b, "%d. 🎥 <b>%s</b>%s\n", i+1, html.EscapeString(film.Title), shortDetails(film))
	}
	b.WriteString("\n")
	b.WriteString(chooseFilmText)
	return b.String()
}

func shortDetails(film domain.Film) string {
	var parts []string
	for _, key := range []string{"Janr", "Sifat"} {
		if value, ok := detailValue(film.Details, key); ok {
			parts = append(parts, html.EscapeString(value))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " • " + strings.Join(parts, " • ")
}

func detailValue(details []domain.FilmDetail, key string) (string, bool) {
	for _, d := range details {
		if d.Key == key {
			return d.Value, true
		}
	}
	return "", false
}

func filmDetailsText(film domain.Film) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n🎬 <b>%s</b>\n%s\n\n", separator, html.EscapeString(film.Title), separator)
	for _, d := range film.Details {
		emoji, ok := detailEmoji[d.Key]
		if !ok {
			emoji = "📌"
		}
		fmt.Fprintf(&b, "%s <b>%s:</b> %s\n", emoji, html.EscapeString(d.Key), html.EscapeString(d.Value))
	}
	if len(film.Details) > 0 {
		b.WriteString("\n")
	}
	b.WriteString("📥 <i>Film yuklanmoqda...</i>")
	return b.String()
}

func mainKeyboard() *telegram.ReplyKeyboardMarkup {
	return &telegram.ReplyKeyboardMarkup{
		Keyboard:       [][]telegram.KeyboardButton{{{Text: SearchButtonText}}},
		ResizeKeyboard: true,
	}
}

// filmListKeyboard numbers the films in rows of five buttons.
func filmListKeyboard(films []domain.Film) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, (len(films)+buttonsPerRow-1)/buttonsPerRow)
	var row []telegram.InlineKeyboardButton
	for i, film := range films {
		row = append(row, telegram.InlineKeyboardButton{
			Text:         strconv.Itoa(i + 1),
			CallbackData: FilmCallbackPrefix + film.ID,
		})
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// markSelected returns a copy of markup with the button for data ticked.
// ok is false when no button carries data.
func markSelected(markup *telegram.InlineKeyboardMarkup, data string) (*telegram.InlineKeyboardMarkup, bool) {
	if markup == nil {
		return nil, false
	}
	found := false
	rows := make([][]telegram.InlineKeyboardButton, len(markup.InlineKeyboard))
	for i, row := range markup.InlineKeyboard {
		rows[i] = append([]telegram.InlineKeyboardButton(nil), row...)
		for j, button := range rows[i] {
			if button.CallbackData != data || strings.HasPrefix(button.Text, selectedMark) {
				continue
			}
			rows[i][j].Text = selectedMark + strings.TrimPrefix(button.Text, pendingMark)
			found = true
		}
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}, found
}

func captionAlertText(caption string) string {
	return "❌ Xatolik! Film BOT ga saqlanmadi. Film nomini olish xatolik\nCaption:\n" + caption
}

func storeAlertText(err error) string {
	return "❌ Film saqlashda xatolik: " + err.Error()
}
