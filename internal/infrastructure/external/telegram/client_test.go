package telegram

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_Parsing(t *testing.T) {
	jsonData := `{
    "update_id": 727272,
    "message": {
        "message_id": 42,
        "from": {"id": 123456789, "is_bot": false, "first_name": "Aruzhan", "last_name": "S", "username": "aruzhan"},
        "chat": {"id": -1001234567890, "type": "supergroup", "title": "Community"},
        "date": 1751968800,
        "text": "/start amb_123456789",
        "entities": [{"type": "bot_command", "offset": 0, "length": 6}]
    }
}`

	var update Update
	err := json.Unmarshal([]byte(jsonData), &update)
	require.NoError(t, err)

	assert.Equal(t, int64(727272), update.UpdateID)
	require.NotNil(t, update.Message)
	assert.Equal(t, int64(123456789), update.Message.From.ID)
	assert.Equal(t, "Aruzhan S", update.Message.From.FullName())
	assert.True(t, IsGroupChat(update.Message))
	assert.False(t, IsPrivateChat(update.Message))
	assert.Equal(t, "start", ExtractCommand(update.Message))
	assert.Equal(t, "amb_123456789", ExtractCommandArgs(update.Message))
}

func TestCallbackQuery_Parsing(t *testing.T) {
	jsonData := `{
    "update_id": 727273,
    "callback_query": {
        "id": "4382abc",
        "from": {"id": 200, "is_bot": false, "first_name": "Dana"},
        "message": {"message_id": 7, "chat": {"id": 200, "type": "private"}, "date": 1751968900},
        "data": "amb_done_123456789"
    }
}`

	var update Update
	err := json.Unmarshal([]byte(jsonData), &update)
	require.NoError(t, err)

	require.NotNil(t, update.CallbackQuery)
	assert.Equal(t, "4382abc", update.CallbackQuery.ID)
	assert.Equal(t, "amb_done_123456789", update.CallbackQuery.Data)
	assert.True(t, IsPrivateChat(update.CallbackQuery.Message))
}

func TestExtractCommand_StripsBotMention(t *testing.T) {
	msg := &Message{
		Text: "/report@growth_hub_bot",
		Entities: []MessageEntity{
			{Type: "bot_command", Offset: 0, Length: 22},
		},
	}
	assert.Equal(t, "report", ExtractCommand(msg))
	assert.Equal(t, "", ExtractCommandArgs(msg))
}

func TestIsRetryableError(t *testing.T) {
	c := NewClient(DefaultClientConfig("test-token"))

	assert.True(t, c.isRetryableError(&APIError{Code: 429, Description: "Too Many Requests", RetryAfter: 2}))
	assert.True(t, c.isRetryableError(&APIError{Code: 502, Description: "Bad Gateway"}))
	assert.False(t, c.isRetryableError(&APIError{Code: 400, Description: "Bad Request: chat not found"}))
	assert.False(t, c.isRetryableError(&APIError{Code: 403, Description: "Forbidden: bot was blocked by the user"}))
	assert.False(t, c.isRetryableError(nil))
}

func TestKeyboardBuilder(t *testing.T) {
	kb := NewKeyboard().
		Row(URLButton("Join Telegram", "https://t.me/community"), URLButton("Follow X", "https://x.com/community")).
		Row(Button("Done ✅", "amb_done_100")).
		Build()

	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "https://t.me/community", kb.InlineKeyboard[0][0].URL)
	assert.Equal(t, "amb_done_100", kb.InlineKeyboard[1][0].CallbackData)
	assert.Empty(t, kb.InlineKeyboard[1][0].URL)
}
