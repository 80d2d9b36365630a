package review

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"coffee-review-bot/internal/domain"
)

const (
	noCommentPlaceholder = "Без коментаря"
	noNamePlaceholder    = "Без імені"
	timeLayout           = "02.01.2006 15:04"
	skipHint             = "Напишіть коментар або натисніть /skip щоб пропустити."
)

// Тексты, которые бот отправляет пользователю.
const (
	TextWelcome          = "☕ Вітаємо в системі відгуків про нашу каву! ☕\n\nОберіть локацію:"
	TextChooseLocation   = "Будь ласка, оберіть локацію кнопкою вище або натисніть /start, щоб почати спочатку."
	TextChooseRating     = "Будь ласка, оцініть каву кнопкою вище або натисніть /start, щоб почати спочатку."
	TextStartFirst       = "Щоб залишити відгук, натисніть /start"
	TextPersistFailed    = "😔 Не вдалося зберегти відгук. Надішліть коментар ще раз або натисніть /skip."
	TextSomethingWrong   = "😔 Сталася помилка. Спробуйте ще раз пізніше або натисніть /start."
	TextUnknownCommand   = "Невідома команда. Скористайтеся /help"
	TextNoReviews        = "Відгуків поки немає."
	TextHelp             = "☕ Бот відгуків про каву\n\n/start - залишити відгук\n/skip - пропустити коментар\n/reviews - останні відгуки\n/help - довідка"
	ratingButtonTemplate = "%d ⭐"
)

func commentOrPlaceholder(comment string) string {
	if strings.TrimSpace(comment) == "" {
		return noCommentPlaceholder
	}
	return comment
}

func nameOrPlaceholder(name string) string {
	if strings.TrimSpace(name) == "" {
		return noNamePlaceholder
	}
	return name
}

func stars(r int) string {
	return fmt.Sprintf(ratingButtonTemplate, r)
}

// FormatRatingPrompt строит текст меню оценок после выбора локации.
func FormatRatingPrompt(locationLabel string) string {
	return fmt.Sprintf("Ви обрали: %s\n\nОцініть нашу каву від 1 до 5 зірок:", locationLabel)
}

// FormatCommentPrompt просит комментарий, повторяя выбранные значения.
func FormatCommentPrompt(locationLabel string, rating *int) string {
	lines := []string{"📍 Локація: " + locationLabel}
	if rating != nil {
		lines = append(lines, fmt.Sprintf("⭐ Ваша оцінка: %s", stars(*rating)))
	}
	return strings.Join(lines, "\n") + "\n\n" + skipHint
}

// FormatThankYou строит ответ пользователю после сохранения отзыва.
func FormatThankYou(r domain.Review) string {
	lines := []string{
		"🙏 Дякуємо!",
		r.LocationLabel(),
	}
	if r.Rating != nil {
		lines = append(lines, "⭐ "+stars(*r.Rating))
	}
	lines = append(lines,
		"💬 "+commentOrPlaceholder(r.Comment),
		"",
		"Для нового відгуку натисніть /start",
	)
	return strings.Join(lines, "\n")
}

// FormatAdminNotification строит уведомление для админ-чата.
func FormatAdminNotification(r domain.Review, loc *time.Location) string {
	lines := []string{
		"📝 НОВИЙ ВІДГУК",
		"",
		"👤 Користувач: " + nameOrPlaceholder(r.DisplayName),
		"📍 Локація: " + r.LocationLabel(),
	}
	if r.Rating != nil {
		lines = append(lines, "⭐ Оцінка: "+stars(*r.Rating))
	}
	lines = append(lines,
		"💬 Коментар: "+commentOrPlaceholder(r.Comment),
		"🕐 Час: "+formatTime(r.CreatedAt, loc),
	)
	return strings.Join(lines, "\n")
}

// FormatDigest строит сводку последних отзывов, новые сверху.
// Отзывы разделены пустой строкой, чтобы длинную сводку можно было резать по границам отзывов.
func FormatDigest(reviews []domain.Review, loc *time.Location) string {
	if len(reviews) == 0 {
		return TextNoReviews
	}
	blocks := make([]string, 0, len(reviews)+1)
	blocks = append(blocks, fmt.Sprintf("📊 Останні відгуки (%d):", len(reviews)))
	for i, r := range reviews {
		var b strings.Builder
		b.WriteString(strconv.Itoa(i+1) + ". 🕐 " + formatTime(r.CreatedAt, loc) + "\n")
		b.WriteString("👤 " + nameOrPlaceholder(r.DisplayName) + "\n")
		b.WriteString("📍 " + r.LocationLabel() + "\n")
		if r.Rating != nil {
			b.WriteString("⭐ " + stars(*r.Rating) + "\n")
		}
		b.WriteString("💬 " + commentOrPlaceholder(r.Comment))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func formatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timeLayout)
}
