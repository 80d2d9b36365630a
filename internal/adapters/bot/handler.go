package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"coffee-review-bot/internal/adapters/telegram"
	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/metrics"
	"coffee-review-bot/internal/usecase/review"
)

// Deduplicator отсекает повторно доставленные апдейты.
type Deduplicator interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error)
}

// Handler обслуживает апдейты бота: из long polling или вебхука.
type Handler struct {
	api      telegram.Sender
	log      zerolog.Logger
	reviews  *review.Service
	dedup    Deduplicator
	dedupTTL time.Duration
}

// NewHandler создаёт обработчик.
func NewHandler(api telegram.Sender, log zerolog.Logger, reviews *review.Service) *Handler {
	return &Handler{api: api, log: log, reviews: reviews}
}

// WithDeduplicator включает отсев повторных апдейтов по update_id.
func (h *Handler) WithDeduplicator(d Deduplicator, ttl time.Duration) *Handler {
	h.dedup = d
	h.dedupTTL = ttl
	return h
}

// HandleUpdate обрабатывает входящий апдейт. Паника в обработке не роняет цикл получения апдейтов.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Int("update", upd.UpdateID).Msg("паника при обработке апдейта")
		}
	}()
	if h.dedup == nil || upd.UpdateID == 0 {
		h.dispatch(ctx, upd)
		return
	}
	ran, err := h.dedup.Once(ctx, strconv.Itoa(upd.UpdateID), h.dedupTTL, func() error {
		h.dispatch(ctx, upd)
		return nil
	})
	switch {
	case err != nil:
		h.log.Warn().Err(err).Int("update", upd.UpdateID).Msg("отсев повторов недоступен, обрабатываем апдейт")
		h.dispatch(ctx, upd)
	case !ran:
		h.log.Debug().Int("update", upd.UpdateID).Msg("повторный апдейт пропущен")
	}
}

func (h *Handler) dispatch(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	} else if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		// фото, стикеры и прочее без текста анкета не принимает
		return
	}
	chatID := msg.Chat.ID
	author := domain.Author{
		UserID:    msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	}
	switch commandOf(text) {
	case "":
		h.finish(chatID, func() (review.Outcome, error) {
			return h.reviews.SubmitComment(ctx, author, text)
		})
	case "/start":
		reply, err := h.reviews.Start(ctx, author.UserID)
		if err != nil {
			h.handleError(chatID, err)
			return
		}
		h.render(chatID, 0, reply)
	case "/skip":
		h.finish(chatID, func() (review.Outcome, error) {
			return h.reviews.Skip(ctx, author)
		})
	case "/reviews", "/admin":
		reply, err := h.reviews.RecentDigest(ctx)
		if err != nil {
			h.handleError(chatID, err)
			return
		}
		h.render(chatID, 0, reply)
	case "/help":
		h.reply(chatID, review.TextHelp, nil)
	default:
		h.reply(chatID, review.TextUnknownCommand, nil)
	}
}

func (h *Handler) finish(chatID int64, step func() (review.Outcome, error)) {
	out, err := step()
	if err != nil {
		h.handleError(chatID, err)
		return
	}
	if out.NotifyErr != nil {
		h.handleError(chatID, out.NotifyErr)
	}
	h.render(chatID, 0, out.Reply)
}

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer h.answerCallback(cb)
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	reply, err := h.reviews.HandleCallback(ctx, cb.From.ID, cb.Data)
	if err != nil {
		h.handleError(chatID, err)
		return
	}
	h.render(chatID, cb.Message.MessageID, reply)
}

func (h *Handler) answerCallback(cb *tgbotapi.CallbackQuery) {
	target := ""
	if cb.From != nil {
		target = strconv.FormatInt(cb.From.ID, 10)
	}
	start := time.Now()
	_, err := h.api.Request(tgbotapi.NewCallback(cb.ID, ""))
	metrics.ObserveNetworkRequest("telegram_bot", "answer_callback", target, start, err)
	if err != nil {
		h.log.Error().Err(err).Msg("не удалось ответить на callback")
	}
}

// handleError логирует ошибку шага и при необходимости сообщает о ней пользователю.
func (h *Handler) handleError(chatID int64, err error) {
	var (
		invalid *domain.InvalidInputError
		persist *domain.PersistenceError
		notify  *domain.NotificationError
	)
	switch {
	case errors.As(err, &invalid):
		// устаревшие кнопки нажимают часто, сессия при этом не меняется
		h.log.Warn().Int64("chat", chatID).Str("input", invalid.Input).Str("reason", invalid.Reason).Msg("ввод отклонён")
	case errors.As(err, &notify):
		h.log.Error().Err(notify.Err).Int64("chat", chatID).Msg("не удалось уведомить админ-чат")
	case errors.As(err, &persist):
		h.log.Error().Err(persist.Err).Str("op", persist.Op).Int64("chat", chatID).Msg("ошибка хранилища")
		if persist.Op == domain.OpSaveReview {
			h.reply(chatID, review.TextPersistFailed, nil)
			return
		}
		h.reply(chatID, review.TextSomethingWrong, nil)
	default:
		h.log.Error().Err(err).Int64("chat", chatID).Msg("ошибка обработки")
		h.reply(chatID, review.TextSomethingWrong, nil)
	}
}

// render отправляет ответ сервиса. Ответ с Edit заменяет сообщение с меню, если его удалось отредактировать.
func (h *Handler) render(chatID int64, messageID int, r review.Reply) {
	keyboard := keyboardOf(r.Choices)
	if r.Edit && messageID != 0 {
		var edit tgbotapi.Chattable
		if keyboard != nil {
			edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, r.Text, *keyboard)
		} else {
			edit = tgbotapi.NewEditMessageText(chatID, messageID, r.Text)
		}
		start := time.Now()
		_, err := h.api.Send(edit)
		metrics.ObserveNetworkRequest("telegram_bot", "edit_message", strconv.FormatInt(chatID, 10), start, err)
		if err == nil {
			return
		}
		h.log.Warn().Err(err).Int64("chat", chatID).Msg("не удалось отредактировать меню, отправляем новым сообщением")
	}
	h.reply(chatID, r.Text, keyboard)
}

func (h *Handler) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	parts := telegram.SplitMessage(text)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == len(parts)-1 && keyboard != nil {
			msg.ReplyMarkup = keyboard
		}
		start := time.Now()
		_, err := h.api.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Msg("не удалось отправить сообщение")
			return
		}
	}
}

// keyboardOf строит инлайн-клавиатуру, по одной кнопке в ряд.
func keyboardOf(choices []review.Choice) *tgbotapi.InlineKeyboardMarkup {
	if len(choices) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data)))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// commandOf возвращает команду из текста без упоминания бота, или пустую строку для обычного текста.
func commandOf(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}
