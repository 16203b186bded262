package service

import (
	"testing"

	"autoapprove/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBroadcastService_Targets(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBroadcastService(env.store, env.messenger, zap.NewNop())
	env.mustUpdate(t, func(doc *model.Document) {
		doc.Subscribers = []int64{10, 11, 10}
		doc.KnownChats = []model.ChatRecord{{ChatID: -1, Type: "group"}, {ChatID: -2, Type: "channel"}}
	})
	env.messenger.failSend[11] = true

	tests := []struct {
		target BroadcastTarget
		want   BroadcastReport
	}{
		{BroadcastUsers, BroadcastReport{Sent: 1, Failed: 1}},
		{BroadcastChats, BroadcastReport{Sent: 2}},
		{BroadcastAll, BroadcastReport{Sent: 3, Failed: 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			report, err := svc.Broadcast(tt.target, "hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, report)
		})
	}

	assert.Len(t, env.messenger.textsTo(10), 2)
}

func TestBroadcastService_UnknownTarget(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBroadcastService(env.store, env.messenger, zap.NewNop())

	_, err := svc.Broadcast("nobody", "hello")
	assert.Error(t, err)
}

func TestBroadcastReport_String(t *testing.T) {
	assert.Equal(t, "✅ Broadcast done. Sent: 3, Failed: 1", BroadcastReport{Sent: 3, Failed: 1}.String())
}
