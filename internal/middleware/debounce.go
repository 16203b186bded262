package middleware

import (
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DefaultDebounce минимальный интервал между одинаковыми командами или нажатиями
const DefaultDebounce = time.Second

// Команды с особыми таймаутами дебаунса
var commandDebounceTimeouts = map[string]time.Duration{
	"search": 3 * time.Second,
}

// Debouncer предотвращает двойные клики
type Debouncer struct {
	requests map[string]time.Time
	mu       sync.Mutex
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDebouncer создает новый debouncer
func NewDebouncer(timeout time.Duration, logger *zap.Logger) *Debouncer {
	return &Debouncer{
		requests: make(map[string]time.Time),
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// CanProcessRequest проверяет, можно ли обработать запрос
func (d *Debouncer) CanProcessRequest(key string) bool {
	return d.CanProcessRequestWithTimeout(key, d.timeout)
}

// CanProcessRequestWithTimeout проверяет, можно ли обработать запрос с кастомным таймаутом
func (d *Debouncer) CanProcessRequestWithTimeout(key string, timeout time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	lastRequest, exists := d.requests[key]
	if !exists || now.Sub(lastRequest) > timeout {
		d.requests[key] = now
		return true
	}
	return false
}

// Cleanup очищает устаревшие записи
func (d *Debouncer) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	maxTimeout := d.timeout
	for _, t := range commandDebounceTimeouts {
		maxTimeout = max(maxTimeout, t)
	}

	now := d.now()
	for key, lastRequest := range d.requests {
		if now.Sub(lastRequest) > maxTimeout {
			delete(d.requests, key)
		}
	}
}

// Debounce отбрасывает повторы команд и нажатий кнопок.
// Обычный текст не дебаунсится: это ответы в многошаговых диалогах.
func Debounce(debouncer *Debouncer, dropped DropFunc, logger *zap.Logger) Func {
	return func(update tgbotapi.Update, next Handler) {
		var key string
		timeout := debouncer.timeout

		switch {
		case update.Message != nil && update.Message.IsCommand():
			command := update.Message.Command()
			key = fmt.Sprintf("cmd:%d:%s", update.Message.Chat.ID, command)
			if custom, ok := commandDebounceTimeouts[command]; ok {
				timeout = custom
			}
		case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
			key = fmt.Sprintf("cb:%d:%s", update.CallbackQuery.From.ID, update.CallbackQuery.Data)
		default:
			next(update)
			return
		}

		if !debouncer.CanProcessRequestWithTimeout(key, timeout) {
			logger.Info("Update debounced",
				zap.String("key", key),
				zap.Int("update_id", update.UpdateID),
				zap.Duration("timeout", timeout))
			notifyDropped(dropped, update)
			return
		}
		next(update)
	}
}
