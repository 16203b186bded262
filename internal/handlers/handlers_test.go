package handlers

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"autoapprove/internal/keyboard"
	"autoapprove/internal/model"
	"autoapprove/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackTable_CoversEveryKind(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, kind := range keyboard.Kinds() {
		assert.Contains(t, env.handlers.callbacks, kind, "no handler for %s", kind)
	}
}

func TestCallback_OwnerOnly(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.Callback(context.Background(), callbackQuery(testUser, "owner_db"))

	assert.Equal(t, ownerOnlyAction, env.bot.last(t, testUser).text)
	assert.Empty(t, env.bot.edits)
	assert.Equal(t, []string{"cb-owner_db"}, env.bot.answered, "every callback is answered")
}

func TestCallback_UnknownData(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.Callback(context.Background(), callbackQuery(testOwner, "something_else"))
	assert.Equal(t, unknownAction, env.bot.last(t, testOwner).text)
}

func TestCallback_BackAliasesOpenOwnerPanel(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, data := range []string{"db_back", "mgr_back", "force_back", "owner_back_from_broadcast"} {
		env.handlers.Callback(context.Background(), callbackQuery(testOwner, data))
		assert.Equal(t, ownerPanelText, env.bot.lastEdit(t).text, data)
	}
}

func TestOwnerInput_AddOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.handlers.Callback(ctx, callbackQuery(testOwner, "mgr_add"))
	assert.Equal(t, addOwnerPrompt, env.bot.last(t, testOwner).text)

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "abc"))
	assert.Equal(t, numericIDRequired, env.bot.last(t, testOwner).text)

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "42"))
	assert.Equal(t, "✅ Added owner `42`", env.bot.last(t, testOwner).text)
	assert.Equal(t, []int64{testOwner, 42}, env.load(t).Owners)
	assert.Len(t, env.bot.textsTo(42), 1, "new owner is notified")

	env.handlers.Callback(ctx, callbackQuery(testOwner, "mgr_add"))
	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "42"))
	assert.Equal(t, alreadyOwner, env.bot.last(t, testOwner).text)
}

func TestOwnerCallbacks_RemoveOwner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.handlers.Callback(ctx, callbackQuery(testOwner, "mgr_remove"))
	assert.Equal(t, lastOwnerText, env.bot.last(t, testOwner).text)

	env.update(t, func(doc *model.Document) { doc.Owners = append(doc.Owners, 42) })
	env.handlers.Callback(ctx, callbackQuery(testOwner, "mgr_remove"))
	assert.Equal(t, selectOwnerText, env.bot.last(t, testOwner).text)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "mgr_rem_5"))
	assert.Equal(t, invalidSelection, env.bot.last(t, testOwner).text)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "mgr_rem_1"))
	assert.Equal(t, "✅ Removed owner `42`", env.bot.lastEdit(t).text)
	assert.Equal(t, []int64{testOwner}, env.load(t).Owners)
}

func TestOwnerInput_CancelAndExpired(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.handlers.Callback(ctx, callbackQuery(testOwner, "owner_set_delay"))
	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, keyboard.CancelText))
	assert.Equal(t, cancelledText, env.bot.last(t, testOwner).text)

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "5"))
	assert.Equal(t, unknownOperation, env.bot.last(t, testOwner).text)
	assert.Equal(t, 0, env.load(t).ApprovalDelayMinutes)
}

func TestOwnerInput_SetDelay(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.handlers.Callback(ctx, callbackQuery(testOwner, "owner_set_delay"))
	assert.Contains(t, env.bot.last(t, testOwner).text, "Current delay is `0` minutes")

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "-3"))
	assert.Equal(t, delayNegative, env.bot.last(t, testOwner).text)
	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "soon"))
	assert.Equal(t, delayInvalid, env.bot.last(t, testOwner).text)

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "5"))
	assert.Equal(t, "✅ Approval delay set to `5` minutes.", env.bot.last(t, testOwner).text)
	assert.Equal(t, 5, env.load(t).ApprovalDelayMinutes)
}

func TestOwnerInput_SetInterval(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_backup_set_interval"))
	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "0h0m"))
	assert.True(t, strings.HasPrefix(env.bot.last(t, testOwner).text, "❌ Invalid interval"))

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "1h30m"))
	assert.Equal(t, "✅ Auto-backup interval set to `90` minutes.", env.bot.last(t, testOwner).text)
	assert.Equal(t, 90, env.load(t).AutoBackup.IntervalMinutes)
}

func TestOwnerInput_AddChannel(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.handlers.Callback(ctx, callbackQuery(testOwner, "force_add"))
	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "@mychannel"))
	assert.Contains(t, env.bot.last(t, testOwner).text, "Channel detected: `@mychannel`")

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, strings.Repeat("x", 41)))
	assert.Equal(t, labelTooLong, env.bot.last(t, testOwner).text)

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "Join us"))
	channels := env.load(t).Force.Channels
	require.Len(t, channels, 1)
	assert.Equal(t, model.ChannelRef{ChatID: "@mychannel", JoinButtonLabel: "Join us"}, channels[0])

	env.handlers.Callback(ctx, callbackQuery(testOwner, "force_rem_0"))
	assert.Equal(t, "✅ Removed channel `@mychannel`", env.bot.last(t, testOwner).text)
	assert.Empty(t, env.load(t).Force.Channels)
}

func TestForceToggle_WarnsWithoutChannels(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.Callback(context.Background(), callbackQuery(testOwner, "force_toggle"))

	assert.Contains(t, env.bot.lastEdit(t).text, "Enabled ✅")
	assert.Equal(t, forceEmptyWarning, env.bot.last(t, testOwner).text)
	assert.True(t, env.load(t).Force.Enabled)
}

func TestOwnerInput_Broadcast(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.update(t, func(doc *model.Document) { doc.Subscribers = []int64{5, 6} })

	env.handlers.Callback(ctx, callbackQuery(testOwner, "broadcast_target_users"))
	assert.Equal(t, "📢 Send the message to broadcast to *users*:", env.bot.last(t, testOwner).text)

	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "hello all"))
	assert.Equal(t, []string{"hello all"}, env.bot.textsTo(5))
	assert.Equal(t, []string{"hello all"}, env.bot.textsTo(6))
	assert.Equal(t, "✅ Broadcast done. Sent: 2, Failed: 0", env.bot.last(t, testOwner).text)
}

func TestUpload_ImportOverwrite(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.bot.files["good"] = []byte(`{"owners": [1, 2], "subscribers": [9]}`)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_import"))
	env.handlers.HandleOwnerInput(ctx, documentMessage(testOwner, "data.txt", "good"))
	assert.Equal(t, invalidFileType, env.bot.last(t, testOwner).text)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_import"))
	env.handlers.HandleOwnerInput(ctx, textMessage(testOwner, "here it is"))
	assert.Equal(t, uploadReminder, env.bot.last(t, testOwner).text)

	env.handlers.HandleOwnerInput(ctx, documentMessage(testOwner, "data.json", "good"))
	assert.Equal(t, importDone, env.bot.last(t, testOwner).text)

	doc := env.load(t)
	assert.Equal(t, []int64{1, 2}, doc.Owners)
	assert.Equal(t, []int64{9}, doc.Subscribers)
	require.Len(t, env.bot.documents, 1, "backup is sent before import")
	assert.True(t, env.services.Database.HasUndo())
}

func TestUpload_MergeAndInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.bot.files["bad"] = []byte(`{"subscribers": "nope"}`)
	env.bot.files["merge"] = []byte(`{"owners": [3], "subscribers": [9]}`)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_import_merge"))
	env.handlers.HandleOwnerInput(ctx, documentMessage(testOwner, "bad.json", "bad"))
	last := env.bot.last(t, testOwner).text
	assert.True(t, strings.HasPrefix(last, invalidStructure))
	assert.Contains(t, last, "owners (missing)")

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_import_merge"))
	env.handlers.HandleOwnerInput(ctx, documentMessage(testOwner, "merge.JSON", "merge"))
	assert.True(t, strings.HasPrefix(env.bot.last(t, testOwner).text, "✅ Merge completed."))
	assert.ElementsMatch(t, []int64{testOwner, 3}, env.load(t).Owners)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_import"))
	env.handlers.HandleOwnerInput(ctx, documentMessage(testOwner, "missing.json", "missing"))
	assert.Equal(t, downloadFailed, env.bot.last(t, testOwner).text)
}

func TestDatabase_ClearAndUndo(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.update(t, func(doc *model.Document) {
		doc.Owners = []int64{testOwner, 2}
		doc.Subscribers = []int64{5}
	})

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_undo"))
	assert.Equal(t, undoMissing, env.bot.last(t, testOwner).text)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_clear"))
	assert.Equal(t, clearPrompt, env.bot.lastEdit(t).text)
	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_confirm_clear"))
	assert.Equal(t, clearDone, env.bot.lastEdit(t).text)

	doc := env.load(t)
	assert.Equal(t, []int64{testOwner, 2}, doc.Owners)
	assert.Empty(t, doc.Subscribers)

	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_undo"))
	assert.Equal(t, undoPrompt, env.bot.lastEdit(t).text)
	env.handlers.Callback(ctx, callbackQuery(testOwner, "db_confirm_undo"))
	assert.Equal(t, undoDone, env.bot.lastEdit(t).text)
	assert.Equal(t, []int64{5}, env.load(t).Subscribers)
}

func TestAutoBackupToggle(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.Callback(context.Background(), callbackQuery(testOwner, "db_backup_toggle"))
	assert.Equal(t, autoBackupDisabled, env.bot.lastEdit(t).text)

	env.handlers.Callback(context.Background(), callbackQuery(testOwner, "db_backup_toggle"))
	assert.Equal(t, autoBackupEnabledText(model.DefaultBackupIntervalMinutes), env.bot.lastEdit(t).text)
}

func TestStart_GrantsAccess(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.Start(textMessage(testUser, "/start"))

	last := env.bot.last(t, testUser)
	assert.Equal(t, welcomeText, last.text)
	markup, ok := last.markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/autoapprove_bot?startgroup=true", *markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, []int64{testUser}, env.load(t).Subscribers)
}

func TestStart_GateAndVerify(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.update(t, func(doc *model.Document) {
		doc.Force.Enabled = true
		doc.Force.Channels = []model.ChannelRef{{ChatID: "@one"}, {ChatID: "@two"}}
		doc.Subscribers = []int64{testUser}
	})

	env.handlers.Start(textMessage(testUser, "/start"))
	assert.Equal(t, gateJoinedNone, env.bot.last(t, testUser).text)
	assert.Empty(t, env.load(t).Subscribers, "gated users are removed from subscribers")

	env.bot.setStatus("@one", testUser, "member")
	env.handlers.Callback(ctx, callbackQuery(testUser, "check_join"))
	last := env.bot.last(t, testUser)
	assert.Equal(t, gateJoinedSome, last.text)
	markup, ok := last.markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, markup.InlineKeyboard, 2, "one join row and the verify row")
	assert.Equal(t, []int{10}, env.bot.deleted, "stale prompt is deleted")

	env.bot.setStatus("@two", testUser, "administrator")
	env.handlers.Callback(ctx, callbackQuery(testUser, "check_join"))
	assert.True(t, strings.HasPrefix(env.bot.last(t, testUser).text, verifyComplete))
	assert.Equal(t, []int64{testUser}, env.load(t).Subscribers)
}

func TestStart_Misconfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	env.update(t, func(doc *model.Document) { doc.Force.Enabled = true })

	env.handlers.Start(textMessage(testUser, "/start"))
	assert.Equal(t, forceMisconfigured, env.bot.last(t, testUser).text)

	env.handlers.Start(textMessage(testOwner, "/start"))
	assert.Equal(t, welcomeText, env.bot.last(t, testOwner).text, "owners skip the gate")
}

func TestVerify_WithoutGate(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.Callback(context.Background(), callbackQuery(testUser, "check_join"))
	assert.Equal(t, verifyPassed, env.bot.last(t, testUser).text)
}

func TestStart_GroupRecordsChat(t *testing.T) {
	env := newTestEnv(t, nil)
	msg := textMessage(testUser, "/start")
	msg.Chat = &tgbotapi.Chat{ID: -100, Type: "supergroup", UserName: "fans"}

	env.handlers.Start(msg)

	assert.Equal(t, welcomeText, env.bot.last(t, -100).text)
	assert.Equal(t, []model.ChatRecord{{ChatID: -100, Title: "fans", Type: "supergroup"}}, env.load(t).KnownChats)
}

func TestJoinRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	request := &tgbotapi.ChatJoinRequest{
		Chat: tgbotapi.Chat{ID: -100, Type: "channel", Title: "News"},
		From: tgbotapi.User{ID: testUser},
	}

	env.handlers.JoinRequest(request)
	assert.Equal(t, []int64{testUser}, env.bot.approved)
	assert.Equal(t, []string{service.ApprovedNotice}, env.bot.textsTo(testUser))
	assert.Len(t, env.load(t).KnownChats, 1)

	env.update(t, func(doc *model.Document) {
		doc.Force.Enabled = true
		doc.Force.Channels = []model.ChannelRef{{ChatID: "@one"}}
	})
	env.handlers.JoinRequest(request)
	assert.Equal(t, []int64{testUser}, env.bot.declined)
	assert.Equal(t, gateJoinedNone, env.bot.last(t, testUser).text)
	assert.Len(t, env.bot.approved, 1)
}

func TestMyChatMember(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.MyChatMember(&tgbotapi.ChatMemberUpdated{
		Chat:          tgbotapi.Chat{ID: -200, Type: "group", Title: "Friends"},
		NewChatMember: tgbotapi.ChatMember{Status: "left"},
	})
	assert.Empty(t, env.load(t).KnownChats)

	env.handlers.MyChatMember(&tgbotapi.ChatMemberUpdated{
		Chat:          tgbotapi.Chat{ID: -200, Type: "group", Title: "Friends"},
		NewChatMember: tgbotapi.ChatMember{Status: "administrator"},
	})
	assert.Equal(t, []model.ChatRecord{{ChatID: -200, Title: "Friends", Type: "group"}}, env.load(t).KnownChats)
}

func TestSearch(t *testing.T) {
	disabled := newTestEnv(t, nil)
	disabled.handlers.Search(context.Background(), textMessage(testUser, "/search music"))
	assert.Equal(t, searchDisabled, disabled.bot.last(t, testUser).text)

	results := make([]model.SearchResult, 3)
	for i := range results {
		results[i] = model.SearchResult{
			ID:           int64(i + 1),
			Kind:         model.SearchResultChannel,
			Title:        fmt.Sprintf("chan %d", i+1),
			Username:     fmt.Sprintf("chan%d", i+1),
			Participants: 100,
		}
	}
	env := newTestEnv(t, &fakeSearch{results: results})
	ctx := context.Background()

	env.handlers.Search(ctx, textMessage(testUser, "/search"))
	assert.Equal(t, searchUsage, env.bot.last(t, testUser).text)

	env.handlers.Search(ctx, textMessage(testUser, "/search music"))
	first := env.bot.last(t, testUser)
	assert.Contains(t, first.text, "1. chan 1 · Channel · 100 members\n   https://t.me/chan1")
	assert.NotContains(t, first.text, "chan 3")
	markup, ok := first.markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	next := markup.InlineKeyboard[0][len(markup.InlineKeyboard[0])-1]
	require.NotNil(t, next.CallbackData)

	env.handlers.Callback(ctx, callbackQuery(testUser, *next.CallbackData))
	assert.Contains(t, env.bot.lastEdit(t).text, "3. chan 3")

	env.handlers.Callback(ctx, callbackQuery(testUser, "page_unknown_0"))
	assert.Equal(t, searchExpired, env.bot.lastEdit(t).text)

	env.handlers.Callback(ctx, callbackQuery(testUser, "noop"))
	assert.Len(t, env.bot.answered, 3)
}

func TestHelp(t *testing.T) {
	env := newTestEnv(t, nil)

	env.handlers.Help(textMessage(testUser, "/help"))
	assert.NotContains(t, env.bot.last(t, testUser).text, "/owner")

	env.handlers.Help(textMessage(testOwner, "/help"))
	assert.Contains(t, env.bot.last(t, testOwner).text, "/owner")
}

func TestUnknown_OnlyInPrivate(t *testing.T) {
	env := newTestEnv(t, nil)

	group := textMessage(testUser, "/nope")
	group.Chat = &tgbotapi.Chat{ID: -5, Type: "group"}
	env.handlers.Unknown(group)
	assert.Empty(t, env.bot.sent)

	env.handlers.Unknown(textMessage(testUser, "/nope"))
	assert.Equal(t, unknownCommand, env.bot.last(t, testUser).text)
}
