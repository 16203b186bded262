package service

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"autoapprove/internal/model"
)

// MergeSummary описывает результат объединения документов
type MergeSummary struct {
	OwnersAdded   int
	SubsAdded     int
	ChatsAdded    int
	ChannelsAdded int
	DelayChanged  bool
}

// String возвращает отчет для владельца
func (s MergeSummary) String() string {
	changed := "No"
	if s.DelayChanged {
		changed = "Yes"
	}
	lines := []string{
		"✅ Merge completed.",
		fmt.Sprintf("Owners added: %d", s.OwnersAdded),
		fmt.Sprintf("Subscribers added: %d", s.SubsAdded),
		fmt.Sprintf("Known chats added: %d", s.ChatsAdded),
		fmt.Sprintf("Force-channels added: %d", s.ChannelsAdded),
		fmt.Sprintf("Approval delay changed: %s", changed),
	}
	return strings.Join(lines, "\n")
}

// Merge объединяет incoming в existing. Ни один из аргументов не изменяется.
// auto_backup и sent_backup_messages всегда берутся из existing.
func Merge(existing, incoming *model.Document) (*model.Document, MergeSummary) {
	merged := existing.Clone()
	var summary MergeSummary

	merged.Owners = unionIDs(existing.Owners, incoming.Owners)
	summary.OwnersAdded = len(merged.Owners) - len(dedupIDs(existing.Owners))

	merged.Subscribers = unionIDs(existing.Subscribers, incoming.Subscribers)
	summary.SubsAdded = len(merged.Subscribers) - len(dedupIDs(existing.Subscribers))

	for _, chat := range incoming.KnownChats {
		if merged.AddKnownChat(chat) {
			summary.ChatsAdded++
		}
	}

	seen := make(map[string]struct{}, len(merged.Force.Channels))
	for _, ch := range merged.Force.Channels {
		if key := ch.Key(); key != "" {
			seen[key] = struct{}{}
		}
	}
	for _, ch := range incoming.Force.Channels {
		key := ch.Key()
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		merged.Force.Channels = append(merged.Force.Channels, ch)
		summary.ChannelsAdded++
	}
	if incoming.Force.VerifyLabel != "" {
		merged.Force.VerifyLabel = incoming.Force.VerifyLabel
	}

	// входящий 0 никогда не сбрасывает настроенную задержку
	if incoming.ApprovalDelayMinutes > 0 && incoming.ApprovalDelayMinutes != existing.ApprovalDelayMinutes {
		merged.ApprovalDelayMinutes = incoming.ApprovalDelayMinutes
		summary.DelayChanged = true
	}

	for key, value := range incoming.Extra {
		if _, ok := merged.Extra[key]; ok {
			continue
		}
		if merged.Extra == nil {
			merged.Extra = make(map[string]json.RawMessage)
		}
		merged.Extra[key] = slices.Clone(value)
	}

	merged.AutoBackup = existing.AutoBackup
	return merged, summary
}

func unionIDs(a, b []int64) []int64 {
	out := make([]int64, 0, len(a)+len(b))
	seen := make(map[int64]struct{}, len(a)+len(b))
	for _, list := range [][]int64{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func dedupIDs(ids []int64) []int64 {
	return unionIDs(ids, nil)
}
