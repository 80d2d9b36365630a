package domain

import (
	"strings"
	"time"
)

// Author описывает пользователя Telegram, оставившего отзыв.
type Author struct {
	UserID    int64
	Username  string
	FirstName string
}

// DisplayName возвращает username, а если его нет, имя пользователя.
func (a Author) DisplayName() string {
	if name := strings.TrimSpace(a.Username); name != "" {
		return name
	}
	return strings.TrimSpace(a.FirstName)
}

// Review представляет сохранённый отзыв. Запись не изменяется после создания.
type Review struct {
	ID          int64
	UserID      int64
	DisplayName string
	LocationID  string
	Rating      *int
	Comment     string
	CreatedAt   time.Time
}

// LocationLabel возвращает подпись локации отзыва.
func (r Review) LocationLabel() string {
	return LocationLabel(r.LocationID)
}
