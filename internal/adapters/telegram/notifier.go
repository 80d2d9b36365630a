package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"coffee-review-bot/internal/domain"
	"coffee-review-bot/internal/infra/metrics"
)

// Telegram ограничивает бота 20 сообщениями в минуту в одну группу.
const (
	adminChatInterval = 3 * time.Second
	adminChatBurst    = 20
)

// AdminNotifier отправляет сообщения в административный чат.
type AdminNotifier struct {
	api     Sender
	chatID  int64
	limiter *rate.Limiter
}

var _ domain.AdminNotifier = (*AdminNotifier)(nil)

// NewAdminNotifier создаёт уведомитель для чата chatID.
func NewAdminNotifier(api Sender, chatID int64) *AdminNotifier {
	return &AdminNotifier{
		api:     api,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Every(adminChatInterval), adminChatBurst),
	}
}

// NotifyAdmin реализует domain.AdminNotifier. Повторных попыток нет.
func (n *AdminNotifier) NotifyAdmin(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.chatID == 0 {
		return fmt.Errorf("admin chat is not configured")
	}
	target := strconv.FormatInt(n.chatID, 10)
	for _, part := range SplitMessage(text) {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("admin chat rate limit: %w", err)
		}
		start := time.Now()
		_, err := n.api.Send(tgbotapi.NewMessage(n.chatID, part))
		metrics.ObserveNetworkRequest("telegram_bot", "admin_notify", target, start, err)
		if err != nil {
			return fmt.Errorf("send to admin chat %d: %w", n.chatID, err)
		}
	}
	return nil
}
