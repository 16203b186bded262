// Package model содержит модели данных.
//
// Группа: CONFIG - Документ конфигурации бота
// Содержит: Document, ForceJoin, ChannelRef, ChatRecord, AutoBackup
package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

const (
	// DefaultVerifyLabel подпись кнопки повторной проверки
	DefaultVerifyLabel = "✅ Verify"
	// DefaultJoinLabel подпись кнопки вступления в канал
	DefaultJoinLabel = "🔗 Join Channel"
	// DefaultBackupIntervalMinutes период автоматического бэкапа по умолчанию
	DefaultBackupIntervalMinutes = 60
	// MaxBackupLogEntries количество хранимых сообщений с бэкапами на получателя
	MaxBackupLogEntries = 5
)

// Document представляет весь сохраняемый документ конфигурации
type Document struct {
	Subscribers          []int64         `json:"subscribers"`
	Owners               []int64         `json:"owners"`
	Force                ForceJoin       `json:"force"`
	ApprovalDelayMinutes int             `json:"approval_delay_minutes"`
	KnownChats           []ChatRecord    `json:"known_chats"`
	AutoBackup           AutoBackup      `json:"auto_backup"`
	SentBackupMessages   map[int64][]int `json:"sent_backup_messages"`

	// Extra хранит неизвестные ключи верхнего уровня
	Extra map[string]json.RawMessage `json:"-"`
}

// ForceJoin представляет настройки обязательной подписки
type ForceJoin struct {
	Enabled     bool         `json:"enabled"`
	Channels    []ChannelRef `json:"channels"`
	VerifyLabel string       `json:"check_btn_text"`
}

// AutoBackup представляет настройки периодического бэкапа
type AutoBackup struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"interval_minutes"`
}

// ChatRecord представляет группу или канал, где бот был замечен
type ChatRecord struct {
	ChatID int64  `json:"chat_id"`
	Title  string `json:"title"`
	Type   string `json:"type"`
}

// ChannelRef представляет канал обязательной подписки
type ChannelRef struct {
	ChatID          string `json:"chat_id,omitempty"`
	InviteURL       string `json:"invite,omitempty"`
	JoinButtonLabel string `json:"join_btn_text,omitempty"`
}

var knownKeys = []string{
	"subscribers", "owners", "force", "approval_delay_minutes",
	"known_chats", "auto_backup", "sent_backup_messages",
}

// Default создает документ по умолчанию с одним владельцем
func Default(ownerID int64) *Document {
	return &Document{
		Subscribers: []int64{},
		Owners:      []int64{ownerID},
		Force: ForceJoin{
			Channels:    []ChannelRef{},
			VerifyLabel: DefaultVerifyLabel,
		},
		KnownChats: []ChatRecord{},
		AutoBackup: AutoBackup{
			Enabled:         true,
			IntervalMinutes: DefaultBackupIntervalMinutes,
		},
		SentBackupMessages: map[int64][]int{},
	}
}

// documentAlias нужен, чтобы обойти собственные методы маршалинга
type documentAlias Document

// UnmarshalJSON декодирует поверх текущих значений и собирает неизвестные ключи
func (d *Document) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*documentAlias)(d)); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range knownKeys {
		delete(raw, key)
	}
	if len(raw) > 0 {
		d.Extra = raw
	}
	return nil
}

// MarshalJSON кодирует документ вместе с неизвестными ключами
func (d Document) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(documentAlias(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return data, nil
	}

	merged := make(map[string]json.RawMessage, len(knownKeys)+len(d.Extra))
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range d.Extra {
		if _, ok := merged[key]; !ok {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// Backfill заполняет пустые поля значениями по умолчанию
func (d *Document) Backfill(ownerID int64) {
	if len(d.Owners) == 0 {
		d.Owners = []int64{ownerID}
	}
	if d.Subscribers == nil {
		d.Subscribers = []int64{}
	}
	if d.KnownChats == nil {
		d.KnownChats = []ChatRecord{}
	}
	if d.Force.Channels == nil {
		d.Force.Channels = []ChannelRef{}
	}
	if d.Force.VerifyLabel == "" {
		d.Force.VerifyLabel = DefaultVerifyLabel
	}
	if d.AutoBackup.IntervalMinutes <= 0 {
		d.AutoBackup.IntervalMinutes = DefaultBackupIntervalMinutes
	}
	if d.SentBackupMessages == nil {
		d.SentBackupMessages = map[int64][]int{}
	}
	if d.ApprovalDelayMinutes < 0 {
		d.ApprovalDelayMinutes = 0
	}
}

// Clone возвращает глубокую копию документа
func (d *Document) Clone() *Document {
	out := *d
	out.Subscribers = slices.Clone(d.Subscribers)
	out.Owners = slices.Clone(d.Owners)
	out.Force.Channels = slices.Clone(d.Force.Channels)
	out.KnownChats = slices.Clone(d.KnownChats)
	if d.SentBackupMessages != nil {
		out.SentBackupMessages = make(map[int64][]int, len(d.SentBackupMessages))
		for owner, ids := range d.SentBackupMessages {
			out.SentBackupMessages[owner] = slices.Clone(ids)
		}
	}
	if d.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for key, value := range d.Extra {
			out.Extra[key] = slices.Clone(value)
		}
	}
	return &out
}

// IsOwner проверяет, является ли пользователь владельцем
func (d *Document) IsOwner(userID int64) bool {
	return slices.Contains(d.Owners, userID)
}

// AddSubscriber добавляет подписчика, возвращает true если он новый
func (d *Document) AddSubscriber(userID int64) bool {
	if slices.Contains(d.Subscribers, userID) {
		return false
	}
	d.Subscribers = append(d.Subscribers, userID)
	return true
}

// RemoveSubscriber удаляет подписчика, возвращает true если он был в списке
func (d *Document) RemoveSubscriber(userID int64) bool {
	idx := slices.Index(d.Subscribers, userID)
	if idx < 0 {
		return false
	}
	d.Subscribers = slices.Delete(d.Subscribers, idx, idx+1)
	return true
}

// AddKnownChat запоминает чат, возвращает true если он новый
func (d *Document) AddKnownChat(record ChatRecord) bool {
	for _, known := range d.KnownChats {
		if known.ChatID == record.ChatID {
			return false
		}
	}
	d.KnownChats = append(d.KnownChats, record)
	return true
}

// Key возвращает ключ канала для дедупликации: chat_id, иначе invite
func (c ChannelRef) Key() string {
	if c.ChatID != "" {
		return c.ChatID
	}
	return c.InviteURL
}

// Resolvable сообщает, задан ли хотя бы один идентификатор
func (c ChannelRef) Resolvable() bool {
	return c.Key() != ""
}

// JoinLabel возвращает подпись кнопки вступления
func (c ChannelRef) JoinLabel() string {
	if c.JoinButtonLabel != "" {
		return c.JoinButtonLabel
	}
	return DefaultJoinLabel
}

// Display возвращает человекочитаемое имя канала
func (c ChannelRef) Display() string {
	if key := c.Key(); key != "" {
		return key
	}
	return "—"
}

// UnmarshalJSON нормализует запись канала: строку, псевдонимы ключей и числовой chat_id
func (c *ChannelRef) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = ParseChannelInput(text)
		return nil
	}

	var raw struct {
		ChatID      json.RawMessage `json:"chat_id"`
		Chat        json.RawMessage `json:"chat"`
		Invite      *string         `json:"invite"`
		URL         *string         `json:"url"`
		JoinBtnText *string         `json:"join_btn_text"`
		Button      *string         `json:"button"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode channel entry: %w", err)
	}

	chatID, err := rawChatID(raw.ChatID)
	if err != nil {
		return err
	}
	if chatID == "" {
		if chatID, err = rawChatID(raw.Chat); err != nil {
			return err
		}
	}

	*c = ChannelRef{
		ChatID:          chatID,
		InviteURL:       firstNonEmpty(raw.Invite, raw.URL),
		JoinButtonLabel: firstNonEmpty(raw.JoinBtnText, raw.Button),
	}
	return nil
}

// ParseChannelInput разбирает ввод владельца: ссылка становится invite, остальное chat_id
func ParseChannelInput(text string) ChannelRef {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChannelRef{}
	}
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return ChannelRef{InviteURL: text}
	}
	return ChannelRef{ChatID: text}
}

func rawChatID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text), nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String(), nil
	}
	return "", fmt.Errorf("invalid chat_id value: %s", string(raw))
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && strings.TrimSpace(*v) != "" {
			return strings.TrimSpace(*v)
		}
	}
	return ""
}
