package handlers

import (
	"fmt"
	"strings"

	"autoapprove/internal/model"
)

const (
	welcomeText = "🤡 Hey you! \n" +
		"I auto-approve faster than your crush ignores your texts. \n" +
		"But I can’t work outside the group — add me there so I can show off!"

	ownerPanelText   = "🔧 *Owner Panel*\n\nChoose an option:"
	ownerClosedText  = "✅ Owner panel closed."
	ownerOnlyPanel   = "❌ Only owners can access this panel."
	ownerOnlyAction  = "❌ Only owners can use this function."
	unknownAction    = "Unknown action."
	unknownOperation = "Unknown or expired operation. Use /owner to open owner panel."
	unexpectedError  = "❌ Unexpected error. Try again."
	cancelledText    = "❌ Cancelled."
	invalidSelection = "❌ Invalid selection."

	databasePanelText   = "🗄️ *Database Management*\n\nManage database settings, backups, imports and merges."
	autoBackupPanelText = "⚙️ *Auto Backup Settings*\nManage automatic backups to owners."
	autoBackupDisabled  = "✅ Auto-backup DISABLED."
	importPrompt        = "📥 Please upload the `.json` backup file to IMPORT (this will overwrite current DB)."
	mergePrompt         = "📥 Please upload the `.json` backup file to MERGE with current DB. A backup will be created automatically first."
	uploadReminder      = "📥 Please upload the `.json` backup file or press ❌ Cancel."
	invalidFileType     = "❌ Invalid file type. Please upload a `.json` file."
	invalidStructure    = "❌ Invalid JSON structure."
	importDone          = "✅ Database successfully imported and overwritten."
	clearPrompt         = "⚠️ *Clear Database*\n\nThis will BACKUP the current database and then CLEAR all bot data (reset to defaults).\nThis action is irreversible except via the backup file.\n\nAre you sure?"
	clearing            = "⏳ Backing up database and clearing... Please wait."
	clearDone           = "✅ Database cleared. A backup was sent. Owners have been preserved."
	undoMissing         = "ℹ️ No last backup found to restore."
	undoPrompt          = "⚠️ *Restore Last Backup*\n\nThis will overwrite current DB with the most recent backup. Continue?"
	restoring           = "⏳ Restoring last backup... Please wait."
	undoCorrupt         = "❌ Last backup file seems corrupted or invalid. Undo aborted."
	undoDone            = "✅ Restored database from last backup."
	intervalPrompt      = "⏱️ Send new interval. Examples: 30m | 2h | 1h30m"

	broadcastMenuText = "📢 *Broadcast*\nChoose target:"

	manageOwnersText  = "🧑‍💼 *Manage Owner*"
	addOwnerPrompt    = "➕ Send numeric user ID to add as owner:"
	numericIDRequired = "❌ Please send numeric ID."
	alreadyOwner      = "Already an owner."
	lastOwnerText     = "❌ At least one owner must remain."
	selectOwnerText   = "Select an owner to remove:"

	forceEmptyWarning = "⚠️ Force-Join enabled but no channels configured. Add channels using Add Channel."
	addChannelPrompt  = "➕ *Add Channel*\n\nSend channel identifier or invite link.\nExamples:\n - `@MyChannel`\n - `-1001234567890`\n - `https://t.me/joinchat/XXXX`"
	noChannelsText    = "ℹ️ No channels configured."
	selectChannelText = "Select channel to remove:"
	labelTooLong      = "❌ Button text too long (max 40 chars)."
	channelRequired   = "❌ Please send a channel identifier or invite link."
	noInviteText      = "⚠️ No invite URL configured for this channel. Contact the owner."

	delayNegative = "❌ Please send non-negative number."
	delayInvalid  = "❌ Invalid input. Please send numeric minutes."

	forceMisconfigured = "⚠️ Force-Join is enabled but no channels are configured. Owner, please configure channels via /owner."
	gateJoinedNone     = "🔒 *Access Restricted*\n\n" +
		"You need to join the required channels before being approved.\n\n" +
		"Tap each *Join* button below, join those channels, and then press *Verify* to continue."
	gateJoinedSome = "🔒 *Access Restricted*\n\n" +
		"You’ve joined some channels, but a few are still left.\n\n" +
		"Tap the *Join* buttons below for the remaining channels, then press *Verify* once done."
	gateCheckFailed  = "⚠️ I couldn't verify memberships (bot may not have access). Owner, please check bot permissions."
	verifyPassed     = "✅ Verification passed. Access granted."
	verifyComplete   = "✅ Verification complete!"
	searchDisabled   = "🔍 Search is not configured on this bot."
	searchUsage      = "Usage: /search <keyword>"
	searchExpired    = "⌛ This search has expired. Run /search again."
	searchFailed     = "❌ Search failed. Try again later."
	searchNoResults  = "🔍 No results for \"%s\"."
	unknownCommand   = "Unknown command. Use /help to see available commands."
	downloadFailed   = "❌ Could not download the file. Try again."
	exportFailedText = "❌ Export failed: %v"
)

func helpText(isOwner bool) string {
	lines := []string{
		"Available commands:",
		"",
		"/start - Start the bot and get verified",
		"/search <keyword> - Search public channels and groups",
		"/help - Show this message",
	}
	if isOwner {
		lines = append(lines, "/owner - Open the owner panel")
	}
	lines = append(lines, "", "Add me to a group or channel as admin with the 'Invite Users via Link' permission and I will approve join requests.")
	return strings.Join(lines, "\n")
}

func forceStatusText(enabled bool) string {
	status := "Disabled ❌"
	if enabled {
		status = "Enabled ✅"
	}
	return fmt.Sprintf("🔒 *Force Join Setting*\n\nStatus: `%s`\n\nChoose an action:", status)
}

func delayPrompt(current int) string {
	return fmt.Sprintf("🕒 *Set Approval Delay*\n\nCurrent delay is `%d` minutes.\n\n"+
		"Send the new delay time in minutes (e.g., `5`). Send `0` for immediate approval.", current)
}

func ownerListText(owners []int64) string {
	lines := make([]string, 0, len(owners)+1)
	lines = append(lines, "🧑‍💼 *Owners:*")
	for i, owner := range owners {
		lines = append(lines, fmt.Sprintf("%d. `%d`", i+1, owner))
	}
	return strings.Join(lines, "\n")
}

func channelListText(channels []model.ChannelRef) string {
	blocks := make([]string, 0, len(channels)+1)
	blocks = append(blocks, "📜 *Configured Channels:*")
	for i, ch := range channels {
		blocks = append(blocks, fmt.Sprintf("%d. `chat_id`: `%s`\n   `invite`: `%s`\n   `button`: `%s`",
			i+1, orDash(ch.ChatID), orDash(ch.InviteURL), ch.JoinLabel()))
	}
	return strings.Join(blocks, "\n\n")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func autoBackupEnabledText(minutes int) string {
	return fmt.Sprintf("✅ Auto-backup ENABLED. Interval: %d minutes.", minutes)
}

// validationDetails перечисляет поля ошибки валидации для ответа владельцу
func validationDetails(err *model.ValidationError) string {
	if len(err.Fields) == 0 {
		return err.Reason
	}
	return fmt.Sprintf("%s: %s", err.Reason, strings.Join(err.Fields, ", "))
}

const (
	broadcastPrompt  = "📢 Send the message to broadcast to *%s*:"
	ownerAddedText   = "✅ Added owner `%d`"
	ownerRemovedText = "✅ Removed owner `%d`"
	channelRemoved   = "✅ Removed channel `%s`"
	channelDetected  = "✅ Channel detected: `%s`\n\nNow send the button text (e.g. `🔗 Join Channel`)."
	channelAdded     = "✅ Channel added!\n`%s`\nButton: `%s`"
	delaySetText     = "✅ Approval delay set to `%d` minutes."
	intervalSetText  = "✅ Auto-backup interval set to `%d` minutes."
	intervalInvalid  = "❌ Invalid interval: %s. Examples: `30`, `30m`, `2h`, `1h30m`."
	importFailedText = "❌ Import failed: `%v`"
	mergeFailedText  = "❌ Merge failed: `%v`"
	clearFailedText  = "❌ Failed to clear DB: `%v`"
	undoFailedText   = "❌ Failed to restore last backup: `%v`"
)
