package heartbeat

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Run пишет строку живости раз в interval до отмены ctx.
// Нулевой или отрицательный interval отключает тикер.
func Run(ctx context.Context, logger zerolog.Logger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	started := time.Now()
	var beats int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beats++
			logger.Info().Int64("beat", beats).Dur("uptime", time.Since(started)).Msg("heartbeat: бот работает")
		}
	}
}
