package handlers

import (
	"context"
	"errors"
	"fmt"

	"autoapprove/internal/keyboard"
	"autoapprove/internal/model"
	"autoapprove/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// callbackTable сопоставляет каждому виду действия обработчик
func (h *Handlers) callbackTable() map[keyboard.ActionKind]callbackFunc {
	return map[keyboard.ActionKind]callbackFunc{
		keyboard.ActionOwnerPanel:      h.onOwnerPanel,
		keyboard.ActionOwnerClose:      h.onOwnerClose,
		keyboard.ActionSetDelay:        h.onSetDelay,
		keyboard.ActionBroadcastMenu:   h.onBroadcastMenu,
		keyboard.ActionBroadcastTarget: h.onBroadcastTarget,

		keyboard.ActionManageOwners:    h.onManageOwners,
		keyboard.ActionOwnerAdd:        h.onOwnerAdd,
		keyboard.ActionOwnerList:       h.onOwnerList,
		keyboard.ActionOwnerRemoveMenu: h.onOwnerRemoveMenu,
		keyboard.ActionOwnerRemoveAt:   h.onOwnerRemoveAt,

		keyboard.ActionForcePanel:      h.onForcePanel,
		keyboard.ActionForceToggle:     h.onForceToggle,
		keyboard.ActionForceAdd:        h.onForceAdd,
		keyboard.ActionForceRemoveMenu: h.onForceRemoveMenu,
		keyboard.ActionForceRemoveAt:   h.onForceRemoveAt,
		keyboard.ActionForceList:       h.onForceList,
		keyboard.ActionForceNoInvite:   h.onForceNoInvite,

		keyboard.ActionDBPanel:        h.onDBPanel,
		keyboard.ActionDBExport:       h.onDBExport,
		keyboard.ActionDBImport:       h.onDBImport,
		keyboard.ActionDBImportMerge:  h.onDBImportMerge,
		keyboard.ActionDBClear:        h.onDBClear,
		keyboard.ActionDBConfirmClear: h.onDBConfirmClear,
		keyboard.ActionDBUndo:         h.onDBUndo,
		keyboard.ActionDBConfirmUndo:  h.onDBConfirmUndo,

		keyboard.ActionAutoBackupPanel:    h.onAutoBackupPanel,
		keyboard.ActionAutoBackupToggle:   h.onAutoBackupToggle,
		keyboard.ActionAutoBackupInterval: h.onAutoBackupInterval,

		keyboard.ActionVerify:     h.onVerify,
		keyboard.ActionSearchPage: h.onSearchPage,
		keyboard.ActionNoop:       func(context.Context, *tgbotapi.CallbackQuery, keyboard.Action) {},
	}
}

// AnswerDropped отвечает на callback, отброшенный middleware, чтобы кнопка не зависла в загрузке
func (h *Handlers) AnswerDropped(update tgbotapi.Update) {
	if update.CallbackQuery == nil {
		return
	}
	if err := h.botAPI.AnswerCallback(update.CallbackQuery.ID, ""); err != nil {
		h.logger.Debug("Failed to answer dropped callback", zap.Error(err))
	}
}

// Callback обрабатывает нажатие inline-кнопки
func (h *Handlers) Callback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if err := h.botAPI.AnswerCallback(query.ID, ""); err != nil {
		h.logger.Debug("Failed to answer callback", zap.Error(err))
	}

	chatID := callbackChat(query)
	action, ok := keyboard.ParseAction(query.Data)
	if !ok {
		h.logger.Warn("Unknown callback data", zap.String("data", query.Data), zap.Int64("user_id", query.From.ID))
		h.replyPlain(chatID, unknownAction, nil)
		return
	}

	if action.Kind.OwnerOnly() && !h.IsOwner(query.From.ID) {
		h.reply(chatID, ownerOnlyAction, nil)
		return
	}

	fn, ok := h.callbacks[action.Kind]
	if !ok {
		h.logger.Error("No handler for action", zap.Stringer("kind", action.Kind))
		h.replyPlain(chatID, unknownAction, nil)
		return
	}
	fn(ctx, query, action)
}

func (h *Handlers) onOwnerPanel(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.flows.Clear(query.From.ID)
	markup := h.keyboard.OwnerPanel()
	h.edit(query, ownerPanelText, &markup)
}

func (h *Handlers) onOwnerClose(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.flows.Clear(query.From.ID)
	h.edit(query, ownerClosedText, nil)
}

func (h *Handlers) onSetDelay(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	chatID := callbackChat(query)
	doc, err := h.services.Admin.Document()
	if err != nil {
		h.fail(chatID, "load delay", err)
		return
	}
	h.flows.Set(query.From.ID, Flow{Kind: FlowSetDelay})
	h.reply(chatID, delayPrompt(doc.ApprovalDelayMinutes), h.keyboard.Cancel())
}

func (h *Handlers) onBroadcastMenu(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	markup := h.keyboard.BroadcastTargets()
	h.edit(query, broadcastMenuText, &markup)
}

func (h *Handlers) onBroadcastTarget(_ context.Context, query *tgbotapi.CallbackQuery, action keyboard.Action) {
	target := service.BroadcastTarget(action.Target)
	h.flows.Set(query.From.ID, Flow{Kind: FlowBroadcastText, Target: target})
	h.reply(callbackChat(query), fmt.Sprintf(broadcastPrompt, target), h.keyboard.Cancel())
}

func (h *Handlers) onManageOwners(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	markup := h.keyboard.ManageOwners()
	h.edit(query, manageOwnersText, &markup)
}

func (h *Handlers) onOwnerAdd(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.flows.Set(query.From.ID, Flow{Kind: FlowAddOwner})
	h.reply(callbackChat(query), addOwnerPrompt, h.keyboard.Cancel())
}

func (h *Handlers) onOwnerList(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	chatID := callbackChat(query)
	doc, err := h.services.Admin.Document()
	if err != nil {
		h.fail(chatID, "list owners", err)
		return
	}
	h.reply(chatID, ownerListText(doc.Owners), nil)
}

func (h *Handlers) onOwnerRemoveMenu(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	chatID := callbackChat(query)
	doc, err := h.services.Admin.Document()
	if err != nil {
		h.fail(chatID, "list owners", err)
		return
	}
	if len(doc.Owners) <= 1 {
		h.reply(chatID, lastOwnerText, nil)
		return
	}
	h.reply(chatID, selectOwnerText, h.keyboard.OwnerRemoval(doc.Owners))
}

func (h *Handlers) onOwnerRemoveAt(_ context.Context, query *tgbotapi.CallbackQuery, action keyboard.Action) {
	chatID := callbackChat(query)
	removed, err := h.services.Admin.RemoveOwnerAt(action.Index)
	switch {
	case errors.Is(err, model.ErrLastOwner):
		h.reply(chatID, lastOwnerText, nil)
	case errors.Is(err, model.ErrIndexOutOfRange):
		h.reply(chatID, invalidSelection, nil)
	case err != nil:
		h.fail(chatID, "remove owner", err)
	default:
		h.edit(query, fmt.Sprintf(ownerRemovedText, removed), nil)
	}
}

func (h *Handlers) onForcePanel(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	doc, err := h.services.Admin.Document()
	if err != nil {
		h.fail(callbackChat(query), "load force settings", err)
		return
	}
	markup := h.keyboard.ForcePanel()
	h.edit(query, forceStatusText(doc.Force.Enabled), &markup)
}

func (h *Handlers) onForceToggle(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	enabled, noChannels, err := h.services.Admin.ToggleForce()
	if err != nil {
		h.fail(callbackChat(query), "toggle force", err)
		return
	}
	markup := h.keyboard.ForcePanel()
	h.edit(query, forceStatusText(enabled), &markup)
	if noChannels {
		h.reply(callbackChat(query), forceEmptyWarning, nil)
	}
}

func (h *Handlers) onForceAdd(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.flows.Set(query.From.ID, Flow{Kind: FlowAddChannel})
	h.reply(callbackChat(query), addChannelPrompt, h.keyboard.Cancel())
}

func (h *Handlers) onForceRemoveMenu(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	chatID := callbackChat(query)
	doc, err := h.services.Admin.Document()
	if err != nil {
		h.fail(chatID, "list channels", err)
		return
	}
	if len(doc.Force.Channels) == 0 {
		h.reply(chatID, noChannelsText, nil)
		return
	}
	h.reply(chatID, selectChannelText, h.keyboard.ChannelRemoval(doc.Force.Channels))
}

func (h *Handlers) onForceRemoveAt(_ context.Context, query *tgbotapi.CallbackQuery, action keyboard.Action) {
	chatID := callbackChat(query)
	removed, err := h.services.Admin.RemoveChannelAt(action.Index)
	switch {
	case errors.Is(err, model.ErrIndexOutOfRange):
		h.reply(chatID, invalidSelection, nil)
	case err != nil:
		h.fail(chatID, "remove channel", err)
	default:
		h.reply(chatID, fmt.Sprintf(channelRemoved, removed.Display()), nil)
	}
}

func (h *Handlers) onForceList(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	chatID := callbackChat(query)
	doc, err := h.services.Admin.Document()
	if err != nil {
		h.fail(chatID, "list channels", err)
		return
	}
	if len(doc.Force.Channels) == 0 {
		h.reply(chatID, noChannelsText, nil)
		return
	}
	h.reply(chatID, channelListText(doc.Force.Channels), nil)
}

func (h *Handlers) onForceNoInvite(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.reply(callbackChat(query), noInviteText, nil)
}

func (h *Handlers) onDBPanel(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	markup := h.keyboard.DatabasePanel()
	h.edit(query, databasePanelText, &markup)
}

func (h *Handlers) onDBExport(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	chatID := callbackChat(query)
	if err := h.services.Database.Export(chatID); err != nil {
		h.logger.Error("Export failed", zap.Int64("chat_id", chatID), zap.Error(err))
		h.replyPlain(chatID, fmt.Sprintf(exportFailedText, err), nil)
	}
}

func (h *Handlers) onDBImport(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.flows.Set(query.From.ID, Flow{Kind: FlowImportFile})
	h.reply(callbackChat(query), importPrompt, h.keyboard.Cancel())
}

func (h *Handlers) onDBImportMerge(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.flows.Set(query.From.ID, Flow{Kind: FlowMergeFile})
	h.reply(callbackChat(query), mergePrompt, h.keyboard.Cancel())
}

func (h *Handlers) onDBClear(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	markup := h.keyboard.ConfirmClear()
	h.edit(query, clearPrompt, &markup)
}

func (h *Handlers) onDBConfirmClear(ctx context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.edit(query, clearing, nil)
	if err := h.services.Database.Clear(ctx, callbackChat(query)); err != nil {
		h.logger.Error("Failed to clear database", zap.Error(err))
		markup := h.keyboard.DatabasePanel()
		h.edit(query, fmt.Sprintf(clearFailedText, err), &markup)
		return
	}
	h.edit(query, clearDone, nil)
}

func (h *Handlers) onDBUndo(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	if !h.services.Database.HasUndo() {
		h.reply(callbackChat(query), undoMissing, h.keyboard.DatabasePanel())
		return
	}
	markup := h.keyboard.ConfirmUndo()
	h.edit(query, undoPrompt, &markup)
}

func (h *Handlers) onDBConfirmUndo(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.edit(query, restoring, nil)
	markup := h.keyboard.DatabasePanel()

	_, err := h.services.Database.Undo()
	var corrupt *model.CorruptError
	var notFound *model.NotFoundError
	switch {
	case errors.As(err, &corrupt):
		h.logger.Warn("Last backup is corrupt", zap.Error(err))
		h.edit(query, undoCorrupt, &markup)
	case errors.As(err, &notFound):
		h.edit(query, undoMissing, &markup)
	case err != nil:
		h.logger.Error("Failed to restore last backup", zap.Error(err))
		h.edit(query, fmt.Sprintf(undoFailedText, err), &markup)
	default:
		h.edit(query, undoDone, &markup)
	}
}

func (h *Handlers) onAutoBackupPanel(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	doc, err := h.services.Admin.Document()
	if err != nil {
		h.fail(callbackChat(query), "load auto-backup settings", err)
		return
	}
	markup := h.keyboard.AutoBackupPanel(doc.AutoBackup)
	h.edit(query, autoBackupPanelText, &markup)
}

func (h *Handlers) onAutoBackupToggle(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	settings, err := h.services.Admin.ToggleAutoBackup()
	if err != nil {
		h.fail(callbackChat(query), "toggle auto-backup", err)
		return
	}
	text := autoBackupDisabled
	if settings.Enabled {
		text = autoBackupEnabledText(settings.IntervalMinutes)
	}
	markup := h.keyboard.AutoBackupPanel(settings)
	h.edit(query, text, &markup)
}

func (h *Handlers) onAutoBackupInterval(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	h.flows.Set(query.From.ID, Flow{Kind: FlowSetInterval})
	h.replyPlain(callbackChat(query), intervalPrompt, h.keyboard.Cancel())
}

func (h *Handlers) onVerify(_ context.Context, query *tgbotapi.CallbackQuery, _ keyboard.Action) {
	chatID := callbackChat(query)
	result, err := h.services.Access.CheckAccess(query.From.ID)
	if err != nil {
		h.logger.Error("Failed to verify access", zap.Int64("user_id", query.From.ID), zap.Error(err))
	}

	if result.Status == service.AccessPrompt && query.Message != nil {
		if err := h.botAPI.DeleteMessage(chatID, query.Message.MessageID); err != nil {
			h.logger.Debug("Failed to delete join prompt", zap.Error(err))
		}
	}
	h.replyAccess(chatID, result, err, true)
}

func (h *Handlers) onSearchPage(_ context.Context, query *tgbotapi.CallbackQuery, action keyboard.Action) {
	page, err := h.services.Search.Page(query.From.ID, action.Session, action.Index)
	if err != nil {
		var notFound *model.NotFoundError
		if errors.As(err, &notFound) || errors.Is(err, model.ErrIndexOutOfRange) {
			h.edit(query, searchExpired, nil)
			return
		}
		h.fail(callbackChat(query), "search page", err)
		return
	}
	h.edit(query, h.formatSearchPage(page), h.keyboard.SearchPage(page))
}
