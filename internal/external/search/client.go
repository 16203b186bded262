// Package search проксирует публичный поиск Telegram через пользовательский аккаунт.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"autoapprove/internal/config"
	"autoapprove/internal/model"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

// ErrNotAuthorized возвращается, когда файл сессии не содержит авторизации
var ErrNotAuthorized = errors.New("search session is not authorized, run cmd/login first")

// ErrNotStarted возвращается при поиске до запуска клиента
var ErrNotStarted = errors.New("search client is not connected")

// Client держит MTProto соединение и выполняет contacts.search
type Client struct {
	client *telegram.Client
	logger *zap.Logger

	ready chan struct{}
	once  sync.Once

	mu  sync.RWMutex
	api *tg.Client
	err error
}

// NewClient создает клиент поиска с файловой сессией
func NewClient(cfg config.SearchConfig, logger *zap.Logger) *Client {
	client := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
		Logger:         logger.Named("mtproto"),
	})

	return &Client{
		client: client,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Start подключается и держит соединение до отмены контекста
func (c *Client) Start(ctx context.Context) error {
	err := c.client.Run(ctx, func(ctx context.Context) error {
		status, err := c.client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get auth status: %w", err)
		}
		if !status.Authorized {
			return ErrNotAuthorized
		}

		c.setReady(c.client.API(), nil)
		c.logger.Info("Search client connected")

		<-ctx.Done()
		return ctx.Err()
	})

	c.setReady(nil, err)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Search client stopped", zap.Error(err))
		return fmt.Errorf("failed to run search client: %w", err)
	}
	c.logger.Info("Search client disconnected")
	return nil
}

func (c *Client) setReady(api *tg.Client, err error) {
	c.mu.Lock()
	c.api = api
	if err != nil {
		c.err = err
	}
	c.mu.Unlock()
	c.once.Do(func() { close(c.ready) })
}

// Search выполняет публичный поиск чатов и пользователей
func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	select {
	case <-c.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.mu.RLock()
	api, startErr := c.api, c.err
	c.mu.RUnlock()
	if api == nil {
		if startErr != nil {
			return nil, startErr
		}
		return nil, ErrNotStarted
	}

	found, err := api.ContactsSearch(ctx, &tg.ContactsSearchRequest{Q: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to search contacts: %w", err)
	}

	results := mapFound(found)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// mapFound переводит ответ contacts.search в результаты; порядок как в ответе, собственные результаты первыми
func mapFound(found *tg.ContactsFound) []model.SearchResult {
	chats := make(map[int64]model.SearchResult, len(found.Chats))
	for _, raw := range found.Chats {
		if r, ok := mapChat(raw); ok {
			chats[r.ID] = r
		}
	}
	users := make(map[int64]model.SearchResult, len(found.Users))
	for _, raw := range found.Users {
		if r, ok := mapUser(raw); ok {
			users[r.ID] = r
		}
	}

	peers := make([]tg.PeerClass, 0, len(found.MyResults)+len(found.Results))
	peers = append(peers, found.MyResults...)
	peers = append(peers, found.Results...)

	seen := make(map[string]bool, len(peers))
	results := make([]model.SearchResult, 0, len(peers))
	for _, peer := range peers {
		var (
			r   model.SearchResult
			ok  bool
			key string
		)
		switch p := peer.(type) {
		case *tg.PeerChannel:
			r, ok = chats[p.ChannelID]
			key = fmt.Sprintf("c%d", p.ChannelID)
		case *tg.PeerChat:
			r, ok = chats[p.ChatID]
			key = fmt.Sprintf("c%d", p.ChatID)
		case *tg.PeerUser:
			r, ok = users[p.UserID]
			key = fmt.Sprintf("u%d", p.UserID)
		}
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		results = append(results, r)
	}
	return results
}

func mapChat(raw tg.ChatClass) (model.SearchResult, bool) {
	switch ch := raw.(type) {
	case *tg.Channel:
		kind := model.SearchResultGroup
		if ch.Broadcast {
			kind = model.SearchResultChannel
		}
		participants, _ := ch.GetParticipantsCount()
		return model.SearchResult{
			ID:           ch.ID,
			Kind:         kind,
			Title:        ch.Title,
			Username:     ch.Username,
			Participants: participants,
		}, true
	case *tg.Chat:
		return model.SearchResult{
			ID:           ch.ID,
			Kind:         model.SearchResultGroup,
			Title:        ch.Title,
			Participants: ch.ParticipantsCount,
		}, true
	}
	return model.SearchResult{}, false
}

func mapUser(raw tg.UserClass) (model.SearchResult, bool) {
	u, ok := raw.(*tg.User)
	if !ok {
		return model.SearchResult{}, false
	}
	kind := model.SearchResultUser
	if u.Bot {
		kind = model.SearchResultBot
	}
	title := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if title == "" {
		title = u.Username
	}
	return model.SearchResult{
		ID:       u.ID,
		Kind:     kind,
		Title:    title,
		Username: u.Username,
	}, true
}
