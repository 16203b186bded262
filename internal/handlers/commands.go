package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autoapprove/internal/model"
	"autoapprove/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Start обрабатывает команду /start
func (h *Handlers) Start(message *tgbotapi.Message) {
	if !message.Chat.IsPrivate() {
		h.RecordChat(message.Chat)
		h.reply(message.Chat.ID, welcomeText, nil)
		return
	}
	if message.From == nil {
		return
	}

	h.flows.Clear(message.From.ID)
	result, err := h.services.Access.CheckAccess(message.From.ID)
	if err != nil {
		h.logger.Error("Failed to check access", zap.Int64("user_id", message.From.ID), zap.Error(err))
	}
	h.replyAccess(message.Chat.ID, result, err, false)
}

// replyAccess отправляет результат проверки доступа; verify меняет текст успешной проверки
func (h *Handlers) replyAccess(chatID int64, result service.AccessResult, err error, verify bool) {
	switch {
	case err != nil && result.Status != service.AccessPrompt:
		h.reply(chatID, unexpectedError, nil)
	case result.Status == service.AccessMisconfigured:
		h.reply(chatID, forceMisconfigured, nil)
	case result.Status == service.AccessPrompt:
		h.replyGate(chatID, result.Gate, result.VerifyLabel)
	case verify && (result.IsOwner || result.Gate.Total == 0):
		h.reply(chatID, verifyPassed, h.keyboard.AddToGroup(h.botAPI.Username()))
	case verify:
		h.reply(chatID, verifyComplete+"\n\n"+welcomeText, h.keyboard.AddToGroup(h.botAPI.Username()))
	default:
		h.reply(chatID, welcomeText, h.keyboard.AddToGroup(h.botAPI.Username()))
	}
}

// replyGate показывает кнопки вступления в недостающие каналы
func (h *Handlers) replyGate(chatID int64, gate service.GateResult, verifyLabel string) {
	if gate.CheckFailed {
		h.reply(chatID, gateCheckFailed, nil)
		return
	}
	text := gateJoinedSome
	if gate.JoinedNone() {
		text = gateJoinedNone
	}
	h.reply(chatID, text, h.keyboard.Join(gate.Missing, verifyLabel))
}

// Owner открывает панель владельца
func (h *Handlers) Owner(message *tgbotapi.Message) {
	if message.From != nil {
		h.flows.Clear(message.From.ID)
	}
	h.reply(message.Chat.ID, ownerPanelText, h.keyboard.OwnerPanel())
}

// Help обрабатывает команду /help
func (h *Handlers) Help(message *tgbotapi.Message) {
	isOwner := message.From != nil && h.IsOwner(message.From.ID)
	h.replyPlain(message.Chat.ID, helpText(isOwner), nil)
}

// Search обрабатывает команду /search
func (h *Handlers) Search(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	if !h.services.Search.Enabled() {
		h.reply(message.Chat.ID, searchDisabled, nil)
		return
	}
	query := strings.TrimSpace(message.CommandArguments())
	if query == "" {
		h.replyPlain(message.Chat.ID, searchUsage, nil)
		return
	}

	page, err := h.services.Search.Search(ctx, message.From.ID, query)
	if err != nil {
		h.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		if errors.Is(err, service.ErrSearchDisabled) {
			h.reply(message.Chat.ID, searchDisabled, nil)
			return
		}
		h.reply(message.Chat.ID, searchFailed, nil)
		return
	}

	h.sendSearchPage(message.Chat.ID, page)
}

func (h *Handlers) sendSearchPage(chatID int64, page service.SearchPage) {
	markup := h.keyboard.SearchPage(page)
	if markup == nil {
		h.replyPlain(chatID, h.formatSearchPage(page), nil)
		return
	}
	h.replyPlain(chatID, h.formatSearchPage(page), *markup)
}

// formatSearchPage выводит результаты без разметки: названия чатов могут содержать спецсимволы
func (h *Handlers) formatSearchPage(page service.SearchPage) string {
	if page.Total == 0 {
		return fmt.Sprintf(searchNoResults, page.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Results for \"%s\" (%d found, page %d/%d)\n", page.Query, page.Total, page.Page+1, page.Pages)
	for i, r := range page.Results {
		fmt.Fprintf(&b, "\n%d. %s · %s", page.Offset+i+1, r.Title, h.keyboard.KindLabel(r.Kind))
		if r.Participants > 0 && r.Kind != model.SearchResultUser && r.Kind != model.SearchResultBot {
			fmt.Fprintf(&b, " · %d members", r.Participants)
		}
		if link := r.Link(); link != "" {
			fmt.Fprintf(&b, "\n   %s", link)
		}
	}
	return b.String()
}

// Unknown отвечает на неизвестную команду в личном чате
func (h *Handlers) Unknown(message *tgbotapi.Message) {
	if !message.Chat.IsPrivate() {
		return
	}
	h.replyPlain(message.Chat.ID, unknownCommand, nil)
}
