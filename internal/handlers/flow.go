package handlers

import (
	"sync"
	"time"

	"autoapprove/internal/model"
	"autoapprove/internal/service"
)

// FlowKind шаг многошагового ввода владельца
type FlowKind int

const (
	FlowNone FlowKind = iota
	FlowAddOwner
	FlowAddChannel
	FlowChannelLabel
	FlowSetDelay
	FlowSetInterval
	FlowBroadcastText
	FlowImportFile
	FlowMergeFile
)

// DefaultFlowTTL время жизни незавершенного диалога
const DefaultFlowTTL = 30 * time.Minute

func (k FlowKind) String() string {
	switch k {
	case FlowAddOwner:
		return "add_owner"
	case FlowAddChannel:
		return "add_channel"
	case FlowChannelLabel:
		return "channel_label"
	case FlowSetDelay:
		return "set_delay"
	case FlowSetInterval:
		return "set_interval"
	case FlowBroadcastText:
		return "broadcast_text"
	case FlowImportFile:
		return "import_file"
	case FlowMergeFile:
		return "merge_file"
	}
	return "none"
}

// ExpectsFile сообщает, ждет ли шаг загрузку файла
func (k FlowKind) ExpectsFile() bool {
	return k == FlowImportFile || k == FlowMergeFile
}

// Flow состояние диалога одного пользователя
type Flow struct {
	Kind FlowKind
	// Channel заполняется на первом шаге добавления канала
	Channel model.ChannelRef
	Target  service.BroadcastTarget
	started time.Time
}

// FlowStore хранит диалоги в памяти; после перезапуска они теряются
type FlowStore struct {
	mu    sync.Mutex
	flows map[int64]Flow
	ttl   time.Duration
	now   func() time.Time
}

// NewFlowStore создает хранилище диалогов
func NewFlowStore(ttl time.Duration) *FlowStore {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	return &FlowStore{
		flows: make(map[int64]Flow),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get возвращает активный диалог пользователя
func (s *FlowStore) Get(userID int64) (Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow, ok := s.flows[userID]
	if !ok {
		return Flow{}, false
	}
	if s.now().Sub(flow.started) > s.ttl {
		delete(s.flows, userID)
		return Flow{}, false
	}
	return flow, true
}

// Set начинает или продолжает диалог
func (s *FlowStore) Set(userID int64, flow Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flow.started = s.now()
	s.flows[userID] = flow
}

// Clear завершает диалог
func (s *FlowStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, userID)
}
