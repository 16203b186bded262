package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"autoapprove/internal/keyboard"
	"autoapprove/internal/model"
	"autoapprove/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HandleOwnerInput обрабатывает текст и файлы владельца в личном чате по активному диалогу
func (h *Handlers) HandleOwnerInput(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	userID := message.From.ID
	chatID := message.Chat.ID
	flow, active := h.flows.Get(userID)

	if message.Document != nil {
		if active && flow.Kind.ExpectsFile() {
			h.handleUpload(ctx, message, flow)
		}
		return
	}
	if message.Text == "" {
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == keyboard.CancelText {
		h.flows.Clear(userID)
		h.reply(chatID, cancelledText, h.keyboard.RemoveReply())
		return
	}
	if !active {
		h.replyPlain(chatID, unknownOperation, nil)
		return
	}

	h.logger.Debug("Owner input", zap.Int64("user_id", userID), zap.Stringer("flow", flow.Kind))
	switch flow.Kind {
	case FlowSetDelay:
		h.inputDelay(chatID, userID, text)
	case FlowSetInterval:
		h.inputInterval(chatID, userID, text)
	case FlowBroadcastText:
		h.inputBroadcast(chatID, userID, flow.Target, text)
	case FlowAddOwner:
		h.inputOwner(chatID, userID, text)
	case FlowAddChannel:
		h.inputChannel(chatID, userID, text)
	case FlowChannelLabel:
		h.inputChannelLabel(chatID, userID, flow.Channel, text)
	case FlowImportFile, FlowMergeFile:
		h.reply(chatID, uploadReminder, h.keyboard.Cancel())
	default:
		h.flows.Clear(userID)
		h.replyPlain(chatID, unknownOperation, nil)
	}
}

func (h *Handlers) inputDelay(chatID, userID int64, text string) {
	minutes, err := service.ParseDelay(text)
	if err != nil {
		if strings.HasPrefix(text, "-") {
			h.reply(chatID, delayNegative, nil)
			return
		}
		h.reply(chatID, delayInvalid, nil)
		return
	}
	if err := h.services.Admin.SetDelay(minutes); err != nil {
		h.flows.Clear(userID)
		h.fail(chatID, "set delay", err)
		return
	}
	h.flows.Clear(userID)
	h.reply(chatID, fmt.Sprintf(delaySetText, minutes), h.keyboard.RemoveReply())
}

func (h *Handlers) inputInterval(chatID, userID int64, text string) {
	minutes, err := service.ParseInterval(text)
	if err != nil {
		var verr *model.ValidationError
		reason := err.Error()
		if errors.As(err, &verr) {
			reason = verr.Reason
		}
		h.reply(chatID, fmt.Sprintf(intervalInvalid, reason), h.keyboard.Cancel())
		return
	}
	h.flows.Clear(userID)
	if _, err := h.services.Admin.SetBackupInterval(minutes); err != nil {
		h.fail(chatID, "set backup interval", err)
		return
	}
	h.reply(chatID, fmt.Sprintf(intervalSetText, minutes), h.keyboard.RemoveReply())
}

func (h *Handlers) inputBroadcast(chatID, userID int64, target service.BroadcastTarget, text string) {
	h.flows.Clear(userID)
	report, err := h.services.Broadcast.Broadcast(target, text)
	if err != nil {
		h.fail(chatID, "broadcast", err)
		return
	}
	h.reply(chatID, report.String(), h.keyboard.RemoveReply())
}

func (h *Handlers) inputOwner(chatID, userID int64, text string) {
	ownerID, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		h.reply(chatID, numericIDRequired, nil)
		return
	}

	err = h.services.Admin.AddOwner(ownerID)
	h.flows.Clear(userID)
	switch {
	case errors.Is(err, model.ErrAlreadyOwner):
		h.reply(chatID, alreadyOwner, h.keyboard.RemoveReply())
	case err != nil:
		h.fail(chatID, "add owner", err)
	default:
		h.reply(chatID, fmt.Sprintf(ownerAddedText, ownerID), h.keyboard.RemoveReply())
	}
}

func (h *Handlers) inputChannel(chatID, userID int64, text string) {
	ref := model.ParseChannelInput(text)
	if !ref.Resolvable() {
		h.reply(chatID, channelRequired, h.keyboard.Cancel())
		return
	}
	h.flows.Set(userID, Flow{Kind: FlowChannelLabel, Channel: ref})
	h.reply(chatID, fmt.Sprintf(channelDetected, ref.Display()), h.keyboard.Cancel())
}

func (h *Handlers) inputChannelLabel(chatID, userID int64, ref model.ChannelRef, label string) {
	if !ref.Resolvable() {
		h.flows.Clear(userID)
		h.reply(chatID, unexpectedError, h.keyboard.RemoveReply())
		return
	}
	if err := service.ValidateChannelLabel(label); err != nil {
		h.reply(chatID, labelTooLong, nil)
		return
	}

	ref.JoinButtonLabel = label
	h.flows.Clear(userID)
	if err := h.services.Admin.AddChannel(ref); err != nil {
		h.fail(chatID, "add channel", err)
		return
	}
	h.reply(chatID, fmt.Sprintf(channelAdded, ref.Display(), label), h.keyboard.RemoveReply())
}

// handleUpload импортирует или объединяет загруженный JSON-файл
func (h *Handlers) handleUpload(ctx context.Context, message *tgbotapi.Message, flow Flow) {
	chatID := message.Chat.ID
	userID := message.From.ID
	h.flows.Clear(userID)

	if !strings.HasSuffix(strings.ToLower(message.Document.FileName), ".json") {
		h.reply(chatID, invalidFileType, h.keyboard.RemoveReply())
		return
	}

	data, err := h.botAPI.DownloadFile(ctx, message.Document.FileID)
	if err != nil {
		h.logger.Error("Failed to download upload", zap.String("file_name", message.Document.FileName), zap.Error(err))
		h.reply(chatID, downloadFailed, h.keyboard.RemoveReply())
		return
	}

	var verr *model.ValidationError
	if flow.Kind == FlowMergeFile {
		summary, err := h.services.Database.ImportMerge(ctx, chatID, data)
		switch {
		case errors.As(err, &verr):
			h.replyPlain(chatID, invalidStructure+"\n"+validationDetails(verr), h.keyboard.RemoveReply())
		case err != nil:
			h.logger.Error("Merge failed", zap.Error(err))
			h.reply(chatID, fmt.Sprintf(mergeFailedText, err), h.keyboard.RemoveReply())
		default:
			h.replyPlain(chatID, summary.String(), h.keyboard.RemoveReply())
		}
		return
	}

	_, err = h.services.Database.ImportOverwrite(ctx, chatID, data)
	switch {
	case errors.As(err, &verr):
		h.replyPlain(chatID, invalidStructure+"\n"+validationDetails(verr), h.keyboard.RemoveReply())
	case err != nil:
		h.logger.Error("Import failed", zap.Error(err))
		h.reply(chatID, fmt.Sprintf(importFailedText, err), h.keyboard.RemoveReply())
	default:
		h.reply(chatID, importDone, h.keyboard.RemoveReply())
	}
}
