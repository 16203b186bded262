package middleware

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// idleLimiterTTL после этого простоя лимитер пользователя удаляется
const idleLimiterTTL = 10 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter ограничивает частоту запросов каждого пользователя
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*userLimiter
	limit    rate.Limit
	burst    int
	logger   *zap.Logger
	now      func() time.Time
}

// NewRateLimiter создает ограничитель: perSecond запросов в секунду с запасом burst
func NewRateLimiter(perSecond float64, burst int, logger *zap.Logger) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[int64]*userLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		logger:   logger,
		now:      time.Now,
	}
}

// Allow проверяет, разрешен ли запрос
func (rl *RateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[userID] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Cleanup удаляет лимитеры давно неактивных пользователей
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleLimiterTTL)
	for userID, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, userID)
		}
	}
}

// RateLimit отбрасывает сообщения и нажатия кнопок сверх лимита.
// Заявки на вступление и системные обновления не ограничиваются.
func RateLimit(rl *RateLimiter, dropped DropFunc, logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		var user *tgbotapi.User
		switch {
		case update.Message != nil:
			user = update.Message.From
		case update.CallbackQuery != nil:
			user = update.CallbackQuery.From
		}

		if user != nil && !rl.Allow(user.ID) {
			logger.Warn("Rate limit exceeded",
				zap.Int64("user_id", user.ID),
				zap.String("user", getUserIdentifier(user)),
				zap.Int("update_id", update.UpdateID))
			notifyDropped(dropped, update)
			return
		}
		next(update)
	}
}
