// Package middleware содержит middleware компоненты.
package middleware

import (
	"autoapprove/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Handler обрабатывает одно обновление
type Handler func(update tgbotapi.Update)

// Func middleware в стиле цепочки: решает, вызывать ли next
type Func func(update tgbotapi.Update, next Handler)

// DropFunc вызывается для обновления, отброшенного дебаунсом или лимитом
type DropFunc func(update tgbotapi.Update)

// Middleware представляет middleware компонент
type Middleware struct {
	rateLimiter *RateLimiter
	debouncer   *Debouncer
	extra       []Func
	dropped     DropFunc
	logger      *zap.Logger
}

// New создает новый middleware
func New(cfg config.RateLimitConfig, logger *zap.Logger) *Middleware {
	return &Middleware{
		rateLimiter: NewRateLimiter(cfg.PerSecond, cfg.Burst, logger),
		debouncer:   NewDebouncer(DefaultDebounce, logger),
		logger:      logger,
	}
}

// Use добавляет middleware в конец цепочки, перед обработчиком
func (m *Middleware) Use(fn Func) {
	m.extra = append(m.extra, fn)
}

// OnDropped задает реакцию на отброшенные обновления, например ответ на callback
func (m *Middleware) OnDropped(fn DropFunc) {
	m.dropped = fn
}

// ProcessWithMiddleware применяет все middleware к обновлению
func (m *Middleware) ProcessWithMiddleware(update tgbotapi.Update, handler Handler) {
	chain := []Func{
		Recovery(m.logger),
		Logging(m.logger),
		Debounce(m.debouncer, m.dropped, m.logger),
		RateLimit(m.rateLimiter, m.dropped, m.logger),
	}
	chain = append(chain, m.extra...)

	Chain(chain...)(update, handler)
}

// Chain объединяет middleware: первый в списке выполняется первым
func Chain(fns ...Func) Func {
	return func(update tgbotapi.Update, final Handler) {
		var step func(i int) Handler
		step = func(i int) Handler {
			if i == len(fns) {
				return final
			}
			return func(update tgbotapi.Update) {
				fns[i](update, step(i+1))
			}
		}
		step(0)(update)
	}
}

func notifyDropped(dropped DropFunc, update tgbotapi.Update) {
	if dropped != nil {
		dropped(update)
	}
}

// Cleanup очищает устаревшие записи в middleware
func (m *Middleware) Cleanup() {
	m.rateLimiter.Cleanup()
	m.debouncer.Cleanup()
}
