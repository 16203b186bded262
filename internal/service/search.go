package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"autoapprove/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchCleanupTaskName имя задачи очистки устаревших сессий поиска
const SearchCleanupTaskName = "search_cleanup"

// DefaultSearchTimeout ограничение одного запроса, если не задано иное
const DefaultSearchTimeout = 15 * time.Second

// ErrSearchDisabled возвращается, когда учетные данные MTProto не заданы
var ErrSearchDisabled = errors.New("search is not configured")

// SearchPage одна страница результатов сессии поиска
type SearchPage struct {
	SessionID string
	Query     string
	Page      int
	Pages     int
	Total     int
	// Offset номер первого результата страницы в сессии, с нуля
	Offset  int
	Results []model.SearchResult
}

// HasPrev сообщает, есть ли предыдущая страница
func (p SearchPage) HasPrev() bool { return p.Page > 0 }

// HasNext сообщает, есть ли следующая страница
func (p SearchPage) HasNext() bool { return p.Page+1 < p.Pages }

type searchSession struct {
	owner   int64
	query   string
	results []model.SearchResult
	expires time.Time
}

// SearchService хранит результаты поиска по сессиям и отдает их постранично
type SearchService struct {
	provider SearchProvider
	pageSize int
	limit    int
	ttl      time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*searchSession
}

// NewSearchService создает сервис поиска. provider может быть nil: тогда поиск выключен.
func NewSearchService(provider SearchProvider, pageSize, limit int, ttl, timeout time.Duration, logger *zap.Logger) *SearchService {
	if pageSize <= 0 {
		pageSize = 10
	}
	if limit <= 0 {
		limit = 50
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return &SearchService{
		provider: provider,
		pageSize: pageSize,
		limit:    limit,
		ttl:      ttl,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*searchSession),
	}
}

// Enabled сообщает, настроен ли поиск
func (s *SearchService) Enabled() bool {
	return s.provider != nil
}

// Search выполняет запрос и открывает новую сессию. Возвращает первую страницу.
func (s *SearchService) Search(ctx context.Context, userID int64, query string) (SearchPage, error) {
	if !s.Enabled() {
		return SearchPage{}, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchPage{}, model.NewValidationError("keyword is required", "query")
	}

	// обновления обрабатываются по одному, поэтому зависший запрос не должен держать цикл
	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	results, err := s.provider.Search(searchCtx, query, s.limit)
	cancel()
	if err != nil {
		return SearchPage{}, fmt.Errorf("failed to search %q: %w", query, err)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &searchSession{
		owner:   userID,
		query:   query,
		results: results,
		expires: s.now().Add(s.ttl),
	}
	s.mu.Unlock()

	s.logger.Info("Search completed",
		zap.Int64("user_id", userID),
		zap.String("query", query),
		zap.Int("results", len(results)))

	return s.Page(userID, id, 0)
}

// Page возвращает страницу сессии. Чужие и истекшие сессии не найдены.
func (s *SearchService) Page(userID int64, sessionID string, page int) (SearchPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.owner != userID {
		return SearchPage{}, &model.NotFoundError{What: "search session"}
	}
	if !s.now().Before(session.expires) {
		delete(s.sessions, sessionID)
		return SearchPage{}, &model.NotFoundError{What: "search session"}
	}

	total := len(session.results)
	pages := (total + s.pageSize - 1) / s.pageSize
	if pages == 0 {
		pages = 1
	}
	if page < 0 || page >= pages {
		return SearchPage{}, model.ErrIndexOutOfRange
	}

	start := page * s.pageSize
	end := min(start+s.pageSize, total)
	return SearchPage{
		SessionID: sessionID,
		Query:     session.query,
		Page:      page,
		Pages:     pages,
		Total:     total,
		Offset:    start,
		Results:   session.results[start:end],
	}, nil
}

// Cleanup удаляет истекшие сессии и возвращает их количество
func (s *SearchService) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.expires) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug("Expired search sessions removed", zap.Int("count", removed))
	}
	return removed
}

// ScheduleCleanup регистрирует периодическую очистку сессий
func (s *SearchService) ScheduleCleanup(scheduler TaskScheduler) {
	if !s.Enabled() {
		return
	}
	scheduler.ScheduleRepeating(SearchCleanupTaskName, s.ttl, s.ttl, func() { s.Cleanup() })
}
