package keyboard

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind тип действия inline-кнопки
type ActionKind int

const (
	ActionUnknown ActionKind = iota

	ActionOwnerPanel
	ActionOwnerClose
	ActionSetDelay

	ActionBroadcastMenu
	ActionBroadcastTarget

	ActionManageOwners
	ActionOwnerAdd
	ActionOwnerList
	ActionOwnerRemoveMenu
	ActionOwnerRemoveAt

	ActionForcePanel
	ActionForceToggle
	ActionForceAdd
	ActionForceRemoveMenu
	ActionForceRemoveAt
	ActionForceList
	ActionForceNoInvite

	ActionDBPanel
	ActionDBExport
	ActionDBImport
	ActionDBImportMerge
	ActionDBClear
	ActionDBConfirmClear
	ActionDBUndo
	ActionDBConfirmUndo

	ActionAutoBackupPanel
	ActionAutoBackupToggle
	ActionAutoBackupInterval

	ActionVerify
	ActionSearchPage
	ActionNoop

	actionKindCount
)

const (
	ownerRemovePrefix = "mgr_rem_"
	forceRemovePrefix = "force_rem_"
	broadcastPrefix   = "broadcast_target_"
	searchPagePrefix  = "page_"

	// MaxCallbackData ограничение Telegram на callback_data
	MaxCallbackData = 64
)

// fixedActions кодировки действий без параметров
var fixedActions = map[ActionKind]string{
	ActionOwnerPanel:         "owner_panel",
	ActionOwnerClose:         "owner_close",
	ActionSetDelay:           "owner_set_delay",
	ActionBroadcastMenu:      "owner_broadcast",
	ActionManageOwners:       "owner_manage",
	ActionOwnerAdd:           "mgr_add",
	ActionOwnerList:          "mgr_list",
	ActionOwnerRemoveMenu:    "mgr_remove",
	ActionForcePanel:         "owner_force",
	ActionForceToggle:        "force_toggle",
	ActionForceAdd:           "force_add",
	ActionForceRemoveMenu:    "force_remove",
	ActionForceList:          "force_list",
	ActionForceNoInvite:      "force_no_invite",
	ActionDBPanel:            "owner_db",
	ActionDBExport:           "db_export",
	ActionDBImport:           "db_import",
	ActionDBImportMerge:      "db_import_merge",
	ActionDBClear:            "db_clear",
	ActionDBConfirmClear:     "db_confirm_clear",
	ActionDBUndo:             "db_undo",
	ActionDBConfirmUndo:      "db_confirm_undo",
	ActionAutoBackupPanel:    "db_autobackup",
	ActionAutoBackupToggle:   "db_backup_toggle",
	ActionAutoBackupInterval: "db_backup_set_interval",
	ActionVerify:             "check_join",
	ActionNoop:               "noop",
}

// backAliases кнопки "назад" из разных меню ведут в панель владельца
var backAliases = []string{"db_back", "mgr_back", "force_back", "owner_back_from_broadcast"}

var parseTable = func() map[string]ActionKind {
	table := make(map[string]ActionKind, len(fixedActions)+len(backAliases))
	for kind, data := range fixedActions {
		table[data] = kind
	}
	for _, alias := range backAliases {
		table[alias] = ActionOwnerPanel
	}
	return table
}()

// Action разобранное действие кнопки
type Action struct {
	Kind ActionKind
	// Index для удаления владельца или канала, номер страницы для поиска
	Index   int
	Target  string
	Session string
}

// String возвращает имя вида действия для логов
func (k ActionKind) String() string {
	if data, ok := fixedActions[k]; ok {
		return data
	}
	switch k {
	case ActionBroadcastTarget:
		return "broadcast_target"
	case ActionOwnerRemoveAt:
		return "mgr_rem"
	case ActionForceRemoveAt:
		return "force_rem"
	case ActionSearchPage:
		return "page"
	}
	return "unknown"
}

// OwnerOnly сообщает, доступно ли действие только владельцам
func (k ActionKind) OwnerOnly() bool {
	switch k {
	case ActionVerify, ActionForceNoInvite, ActionSearchPage, ActionNoop, ActionUnknown:
		return false
	}
	return true
}

// Data кодирует действие в callback_data
func (a Action) Data() string {
	switch a.Kind {
	case ActionBroadcastTarget:
		return broadcastPrefix + a.Target
	case ActionOwnerRemoveAt:
		return ownerRemovePrefix + strconv.Itoa(a.Index)
	case ActionForceRemoveAt:
		return forceRemovePrefix + strconv.Itoa(a.Index)
	case ActionSearchPage:
		return fmt.Sprintf("%s%s_%d", searchPagePrefix, a.Session, a.Index)
	}
	return fixedActions[a.Kind]
}

// ParseAction разбирает callback_data. Неизвестные данные дают false.
func ParseAction(data string) (Action, bool) {
	if kind, ok := parseTable[data]; ok {
		return Action{Kind: kind}, true
	}

	switch {
	case strings.HasPrefix(data, broadcastPrefix):
		target := strings.TrimPrefix(data, broadcastPrefix)
		switch target {
		case "users", "chats", "all":
			return Action{Kind: ActionBroadcastTarget, Target: target}, true
		}
	case strings.HasPrefix(data, ownerRemovePrefix):
		if idx, ok := parseIndex(strings.TrimPrefix(data, ownerRemovePrefix)); ok {
			return Action{Kind: ActionOwnerRemoveAt, Index: idx}, true
		}
	case strings.HasPrefix(data, forceRemovePrefix):
		if idx, ok := parseIndex(strings.TrimPrefix(data, forceRemovePrefix)); ok {
			return Action{Kind: ActionForceRemoveAt, Index: idx}, true
		}
	case strings.HasPrefix(data, searchPagePrefix):
		rest := strings.TrimPrefix(data, searchPagePrefix)
		sep := strings.LastIndex(rest, "_")
		if sep <= 0 {
			break
		}
		if page, ok := parseIndex(rest[sep+1:]); ok {
			return Action{Kind: ActionSearchPage, Session: rest[:sep], Index: page}, true
		}
	}
	return Action{}, false
}

func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Kinds возвращает все известные виды действий
func Kinds() []ActionKind {
	kinds := make([]ActionKind, 0, actionKindCount-1)
	for k := ActionUnknown + 1; k < actionKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}
