package model

import (
	"encoding/json"
	"fmt"
)

// ValidateImport проверяет схему загружаемого документа и перечисляет все ошибочные поля
func ValidateImport(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return NewValidationError("document must be a JSON object")
	}

	var fields []string

	owners, ok := raw["owners"]
	if !ok {
		fields = append(fields, "owners (missing)")
	} else {
		var ids []int64
		if err := json.Unmarshal(owners, &ids); err != nil {
			fields = append(fields, "owners (must be a list of user ids)")
		} else if len(ids) == 0 {
			fields = append(fields, "owners (must not be empty)")
		}
	}

	if value, ok := raw["subscribers"]; ok && !isNull(value) {
		var ids []int64
		if err := json.Unmarshal(value, &ids); err != nil {
			fields = append(fields, "subscribers (must be a list of user ids)")
		}
	}

	if value, ok := raw["approval_delay_minutes"]; ok && !isNull(value) {
		var delay int
		if err := json.Unmarshal(value, &delay); err != nil {
			fields = append(fields, "approval_delay_minutes (must be an integer)")
		} else if delay < 0 {
			fields = append(fields, "approval_delay_minutes (must not be negative)")
		}
	}

	if value, ok := raw["force"]; ok && !isNull(value) {
		var force ForceJoin
		if err := json.Unmarshal(value, &force); err != nil {
			fields = append(fields, fmt.Sprintf("force (%v)", err))
		}
	}

	if value, ok := raw["known_chats"]; ok && !isNull(value) {
		var chats []ChatRecord
		if err := json.Unmarshal(value, &chats); err != nil {
			fields = append(fields, "known_chats (must be a list of chat records)")
		}
	}

	if value, ok := raw["auto_backup"]; ok && !isNull(value) {
		var backup struct {
			Enabled         *bool `json:"enabled"`
			IntervalMinutes *int  `json:"interval_minutes"`
		}
		if err := json.Unmarshal(value, &backup); err != nil {
			fields = append(fields, "auto_backup (must be an object)")
		} else if backup.IntervalMinutes != nil && *backup.IntervalMinutes <= 0 {
			fields = append(fields, "auto_backup.interval_minutes (must be positive)")
		}
	}

	if value, ok := raw["sent_backup_messages"]; ok && !isNull(value) {
		var log map[int64][]int
		if err := json.Unmarshal(value, &log); err != nil {
			fields = append(fields, "sent_backup_messages (must map owner ids to message ids)")
		}
	}

	if len(fields) > 0 {
		return NewValidationError("invalid document", fields...)
	}
	return nil
}

// DecodeDocument декодирует документ поверх base: отсутствующие ключи сохраняют значения base
func DecodeDocument(data []byte, base *Document) (*Document, error) {
	doc := base.Clone()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// CheckSnapshot проверяет, что снимок пригоден для восстановления
func CheckSnapshot(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return &CorruptError{Reason: "snapshot is not a JSON object"}
	}
	owners, ok := raw["owners"]
	if !ok {
		return &CorruptError{Reason: "snapshot has no owners"}
	}
	var ids []int64
	if err := json.Unmarshal(owners, &ids); err != nil || len(ids) == 0 {
		return &CorruptError{Reason: "snapshot owners are invalid"}
	}
	return nil
}

func isNull(value json.RawMessage) bool {
	return string(value) == "null"
}
