package tg

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
)

func TestFromUpdateCommand(t *testing.T) {
	u := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 3,
		Chat:      &tgbotapi.Chat{ID: 42},
		From:      &tgbotapi.User{ID: 42, UserName: "ali", FirstName: "Ali", LanguageCode: "uz"},
		Text:      "/Start@kino_bot ref1",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 15}},
	}}

	ev, ok := FromUpdate(u)
	require.True(t, ok)
	require.Equal(t, KindCommand, ev.Kind)
	require.Equal(t, "start", ev.Command)
	require.Equal(t, "ref1", ev.Args)
	require.Equal(t, int64(42), ev.ChatID)
	require.Equal(t, "ali", ev.From.Username)
}

func TestFromUpdateText(t *testing.T) {
	ev, ok := FromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "0001",
	}})
	require.True(t, ok)
	require.Equal(t, KindText, ev.Kind)
	require.Equal(t, "0001", ev.Text)
}

func TestFromUpdateVideo(t *testing.T) {
	ev, ok := FromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: 1},
		Caption: "trailer",
		Video:   &tgbotapi.Video{FileID: "abc", Width: 1920, Height: 1080, Duration: 90, MimeType: "video/mp4", FileSize: 2048},
	}})
	require.True(t, ok)
	require.Equal(t, KindVideo, ev.Kind)
	require.Equal(t, &Media{FileID: "abc", Caption: "trailer", Width: 1920, Height: 1080, Duration: 90, FileSize: 2048, MimeType: "video/mp4"}, ev.Media)
}

func TestFromUpdatePhotoTakesLargest(t *testing.T) {
	ev, ok := FromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		Chat:  &tgbotapi.Chat{ID: 1},
		Photo: []tgbotapi.PhotoSize{{FileID: "small", Width: 90}, {FileID: "big", Width: 1280}},
	}})
	require.True(t, ok)
	require.Equal(t, KindPhoto, ev.Kind)
	require.Equal(t, "big", ev.Media.FileID)
}

func TestFromUpdateCallback(t *testing.T) {
	ev, ok := FromUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 7},
		Data:    " check_subscription ",
		Message: &tgbotapi.Message{MessageID: 11, Chat: &tgbotapi.Chat{ID: 7}},
	}})
	require.True(t, ok)
	require.Equal(t, KindCallback, ev.Kind)
	require.Equal(t, "cb1", ev.CallbackID)
	require.Equal(t, "check_subscription", ev.Data)
	require.Equal(t, 11, ev.MessageID)
}

func TestFromUpdateIgnoresOtherUpdates(t *testing.T) {
	_, ok := FromUpdate(tgbotapi.Update{})
	require.False(t, ok)

	_, ok = FromUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Sticker: &tgbotapi.Sticker{FileID: "s"}}})
	require.False(t, ok)
}
