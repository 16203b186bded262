package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_DecodeBackfillsNested(t *testing.T) {
	data := []byte(`{"owners":[5],"force":{"enabled":true},"auto_backup":{"enabled":false}}`)

	doc, err := DecodeDocument(data, Default(1))
	require.NoError(t, err)

	assert.Equal(t, []int64{5}, doc.Owners)
	assert.True(t, doc.Force.Enabled)
	assert.Equal(t, DefaultVerifyLabel, doc.Force.VerifyLabel)
	assert.Empty(t, doc.Force.Channels)
	assert.False(t, doc.AutoBackup.Enabled)
	assert.Equal(t, DefaultBackupIntervalMinutes, doc.AutoBackup.IntervalMinutes)
	assert.NotNil(t, doc.SentBackupMessages)
}

func TestDocument_ExtraKeysRoundTrip(t *testing.T) {
	data := []byte(`{"owners":[1],"custom_setting":{"a":1},"note":"keep me"}`)

	doc, err := DecodeDocument(data, Default(1))
	require.NoError(t, err)
	require.Len(t, doc.Extra, 2)

	out, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &raw))
	assert.JSONEq(t, `{"a":1}`, string(raw["custom_setting"]))
	assert.JSONEq(t, `"keep me"`, string(raw["note"]))
	assert.Contains(t, raw, "auto_backup")
}

func TestDocument_SentBackupMessagesKeys(t *testing.T) {
	doc := Default(1)
	doc.SentBackupMessages[1] = []int{10, 11}

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"sent_backup_messages":{"1":[10,11]}`)

	back, err := DecodeDocument(out, Default(1))
	require.NoError(t, err)
	assert.Equal(t, []int{10, 11}, back.SentBackupMessages[1])
}

func TestChannelRef_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ChannelRef
	}{
		{name: "bare handle", in: `"@news"`, want: ChannelRef{ChatID: "@news"}},
		{name: "bare link", in: `"https://t.me/+abc"`, want: ChannelRef{InviteURL: "https://t.me/+abc"}},
		{name: "numeric chat id", in: `{"chat_id":-1001234}`, want: ChannelRef{ChatID: "-1001234"}},
		{name: "null fields", in: `{"chat_id":null,"invite":"https://t.me/x","join_btn_text":null}`, want: ChannelRef{InviteURL: "https://t.me/x"}},
		{name: "aliases", in: `{"chat":"@a","url":"https://t.me/a","button":"Go"}`, want: ChannelRef{ChatID: "@a", InviteURL: "https://t.me/a", JoinButtonLabel: "Go"}},
		{name: "empty object", in: `{}`, want: ChannelRef{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ChannelRef
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChannelRef_Key(t *testing.T) {
	assert.Equal(t, "@a", ChannelRef{ChatID: "@a", InviteURL: "x"}.Key())
	assert.Equal(t, "x", ChannelRef{InviteURL: "x"}.Key())
	assert.False(t, ChannelRef{JoinButtonLabel: "only label"}.Resolvable())
	assert.Equal(t, DefaultJoinLabel, ChannelRef{}.JoinLabel())
}

func TestDocument_SubscribersAndChats(t *testing.T) {
	doc := Default(1)

	assert.True(t, doc.AddSubscriber(7))
	assert.False(t, doc.AddSubscriber(7))
	assert.True(t, doc.RemoveSubscriber(7))
	assert.False(t, doc.RemoveSubscriber(7))

	assert.True(t, doc.AddKnownChat(ChatRecord{ChatID: -1, Title: "g", Type: "group"}))
	assert.False(t, doc.AddKnownChat(ChatRecord{ChatID: -1, Title: "other", Type: "group"}))
	assert.Equal(t, "g", doc.KnownChats[0].Title)
}

func TestDocument_CloneIsDeep(t *testing.T) {
	doc := Default(1)
	doc.SentBackupMessages[1] = []int{1}
	clone := doc.Clone()

	clone.Owners[0] = 99
	clone.SentBackupMessages[1][0] = 42

	assert.Equal(t, int64(1), doc.Owners[0])
	assert.Equal(t, 1, doc.SentBackupMessages[1][0])
}

func TestValidateImport(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantFields []string
		wantErr    bool
	}{
		{name: "valid", in: `{"owners":[1],"approval_delay_minutes":5}`},
		{name: "not an object", in: `[1,2]`, wantErr: true},
		{name: "missing owners", in: `{"subscribers":[]}`, wantErr: true, wantFields: []string{"owners (missing)"}},
		{
			name:       "several problems",
			in:         `{"owners":[],"approval_delay_minutes":-1,"auto_backup":{"interval_minutes":0}}`,
			wantErr:    true,
			wantFields: []string{"owners (must not be empty)", "approval_delay_minutes (must not be negative)", "auto_backup.interval_minutes (must be positive)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImport([]byte(tt.in))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, vErr.Fields)
			}
		})
	}
}

func TestCheckSnapshot(t *testing.T) {
	var corrupt *CorruptError
	assert.True(t, errors.As(CheckSnapshot([]byte(`{"subscribers":[]}`)), &corrupt))
	assert.True(t, errors.As(CheckSnapshot([]byte(`not json`)), &corrupt))
	assert.NoError(t, CheckSnapshot([]byte(`{"owners":[1]}`)))
}
