// Package keyboard строит клавиатуры бота и кодирует действия кнопок.
package keyboard

import (
	"fmt"
	"strings"

	"autoapprove/internal/model"
	"autoapprove/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CancelText текст кнопки отмены многошагового ввода
const CancelText = "❌ Cancel"

// Manager строит клавиатуры для Telegram-бота
type Manager struct {
	lang language.Tag
}

// NewManager создает новый менеджер клавиатур
func NewManager() *Manager {
	return &Manager{lang: language.English}
}

func button(label string, action Action) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, action.Data())
}

func kind(k ActionKind) Action {
	return Action{Kind: k}
}

// OwnerPanel возвращает главную панель владельца
func (k *Manager) OwnerPanel() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📢 Broadcast", kind(ActionBroadcastMenu)),
			button("🔒 Force Join", kind(ActionForcePanel)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🧑‍💼 Manage Owner", kind(ActionManageOwners)),
			button("🕒 Set Delay", kind(ActionSetDelay)),
		),
		tgbotapi.NewInlineKeyboardRow(button("🗄️ Database", kind(ActionDBPanel))),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Close", kind(ActionOwnerClose))),
	)
}

// DatabasePanel возвращает меню управления базой
func (k *Manager) DatabasePanel() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📥 Import (overwrite)", kind(ActionDBImport)),
			button("📤 Export", kind(ActionDBExport)),
		),
		tgbotapi.NewInlineKeyboardRow(button("📥 Import & Merge", kind(ActionDBImportMerge))),
		tgbotapi.NewInlineKeyboardRow(button("🧹 Clear DB", kind(ActionDBClear))),
		tgbotapi.NewInlineKeyboardRow(button("↩️ Undo Last Backup", kind(ActionDBUndo))),
		tgbotapi.NewInlineKeyboardRow(button("⚙️ Auto Backup", kind(ActionAutoBackupPanel))),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Back to Owner Panel", kind(ActionOwnerPanel))),
	)
}

// AutoBackupPanel возвращает меню автоматического бэкапа с текущими значениями
func (k *Manager) AutoBackupPanel(settings model.AutoBackup) tgbotapi.InlineKeyboardMarkup {
	state := "Off"
	if settings.Enabled {
		state = "On"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button(fmt.Sprintf("🔁 Toggle Auto-Backup (%s)", state), kind(ActionAutoBackupToggle))),
		tgbotapi.NewInlineKeyboardRow(button(fmt.Sprintf("⏱️ Set Interval (%d minutes)", settings.IntervalMinutes), kind(ActionAutoBackupInterval))),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", kind(ActionDBPanel))),
	)
}

// BroadcastTargets возвращает выбор адресатов рассылки
func (k *Manager) BroadcastTargets() tgbotapi.InlineKeyboardMarkup {
	target := func(t service.BroadcastTarget) Action {
		return Action{Kind: ActionBroadcastTarget, Target: string(t)}
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("👥 Users", target(service.BroadcastUsers)),
			button("🏷️ Groups", target(service.BroadcastChats)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🌐 All", target(service.BroadcastAll)),
			button("⬅️ Back", kind(ActionOwnerPanel)),
		),
	)
}

// ForcePanel возвращает меню обязательной подписки
func (k *Manager) ForcePanel() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("🔁 Toggle Force-Join", kind(ActionForceToggle)),
			button("➕ Add Channel", kind(ActionForceAdd)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🗑️ Remove Channel", kind(ActionForceRemoveMenu)),
			button("📜 List Channel", kind(ActionForceList)),
		),
		tgbotapi.NewInlineKeyboardRow(button("⬅️ Back", kind(ActionOwnerPanel))),
	)
}

// ManageOwners возвращает меню владельцев
func (k *Manager) ManageOwners() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("➕ Add Owner", kind(ActionOwnerAdd)),
			button("📜 List Owners", kind(ActionOwnerList)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🗑️ Remove Owner", kind(ActionOwnerRemoveMenu)),
			button("⬅️ Back", kind(ActionOwnerPanel)),
		),
	)
}

// OwnerRemoval возвращает по кнопке на каждого владельца
func (k *Manager) OwnerRemoval(owners []int64) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(owners))
	for i, owner := range owners {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(fmt.Sprintf("Remove: %d", owner), Action{Kind: ActionOwnerRemoveAt, Index: i}),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ChannelRemoval возвращает по кнопке на каждый канал
func (k *Manager) ChannelRemoval(channels []model.ChannelRef) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(channels))
	for i, ch := range channels {
		label := ch.Key()
		if label == "" {
			label = fmt.Sprint(i)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("Remove: "+label, Action{Kind: ActionForceRemoveAt, Index: i}),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ConfirmClear возвращает подтверждение очистки базы
func (k *Manager) ConfirmClear() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("✅ Confirm Clear (backup then clear)", kind(ActionDBConfirmClear))),
		tgbotapi.NewInlineKeyboardRow(button("❌ Cancel", kind(ActionOwnerPanel))),
	)
}

// ConfirmUndo возвращает подтверждение восстановления бэкапа
func (k *Manager) ConfirmUndo() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("✅ Confirm Restore Last Backup", kind(ActionDBConfirmUndo))),
		tgbotapi.NewInlineKeyboardRow(button("❌ Cancel", kind(ActionOwnerPanel))),
	)
}

// Cancel возвращает reply-клавиатуру с кнопкой отмены
func (k *Manager) Cancel() tgbotapi.ReplyKeyboardMarkup {
	markup := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(CancelText)))
	markup.ResizeKeyboard = true
	return markup
}

// RemoveReply убирает reply-клавиатуру
func (k *Manager) RemoveReply() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(true)
}

// AddToGroup возвращает кнопку добавления бота в группу
func (k *Manager) AddToGroup(botUsername string) tgbotapi.InlineKeyboardMarkup {
	url := fmt.Sprintf("https://t.me/%s?startgroup=true", botUsername)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("➕ Add Me To Your Group ➕", url)),
	)
}

// Join возвращает кнопки вступления по две в ряд и кнопку проверки
func (k *Manager) Join(missing []model.ChannelRef, verifyLabel string) tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(missing))
	for _, ch := range missing {
		if url := JoinURL(ch); url != "" {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(ch.JoinLabel(), url))
			continue
		}
		buttons = append(buttons, button(ch.JoinLabel(), kind(ActionForceNoInvite)))
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(buttons); i += 2 {
		end := min(i+2, len(buttons))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons[i:end]...))
	}

	if verifyLabel == "" {
		verifyLabel = model.DefaultVerifyLabel
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(verifyLabel, kind(ActionVerify))))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// JoinURL возвращает ссылку для кнопки вступления: invite, иначе t.me для @handle
func JoinURL(ch model.ChannelRef) string {
	if ch.InviteURL != "" {
		return ch.InviteURL
	}
	if strings.HasPrefix(ch.ChatID, "@") {
		return "https://t.me/" + strings.TrimPrefix(ch.ChatID, "@")
	}
	return ""
}

// SearchPage возвращает навигацию по страницам поиска; nil если страница одна
func (k *Manager) SearchPage(page service.SearchPage) *tgbotapi.InlineKeyboardMarkup {
	if page.Pages <= 1 {
		return nil
	}

	var row []tgbotapi.InlineKeyboardButton
	if page.HasPrev() {
		row = append(row, button("⬅️ Prev", Action{Kind: ActionSearchPage, Session: page.SessionID, Index: page.Page - 1}))
	}
	row = append(row, button(fmt.Sprintf("%d/%d", page.Page+1, page.Pages), kind(ActionNoop)))
	if page.HasNext() {
		row = append(row, button("Next ➡️", Action{Kind: ActionSearchPage, Session: page.SessionID, Index: page.Page + 1}))
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(row)
	return &markup
}

// KindLabel возвращает подпись вида результата поиска: "Channel", "Group"
func (k *Manager) KindLabel(kind model.SearchResultKind) string {
	// Caser хранит состояние, поэтому создается на каждый вызов
	return cases.Title(k.lang).String(string(kind))
}
