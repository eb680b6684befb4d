package tg

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Kind int

const (
	KindText Kind = iota + 1
	KindCommand
	KindPhoto
	KindVideo
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCommand:
		return "command"
	case KindPhoto:
		return "photo"
	case KindVideo:
		return "video"
	case KindCallback:
		return "callback"
	}
	return "unknown"
}

type Sender struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
}

type Media struct {
	FileID   string
	Caption  string
	Width    int
	Height   int
	Duration int
	FileSize int64
	MimeType string
	FileName string
}

// Event is one inbound update reduced to what the bot routes on. Media is set for photo
// and video events; CallbackID and Data for callbacks; Command and Args for commands.
type Event struct {
	Kind      Kind
	ChatID    int64
	From      Sender
	MessageID int
	Text      string
	Command   string
	Args      string
	Media     *Media

	CallbackID string
	Data       string
}

// FromUpdate converts an update; false means the bot has no use for it.
func FromUpdate(u tgbotapi.Update) (Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		return fromCallback(u.CallbackQuery)
	case u.Message != nil:
		return fromMessage(u.Message)
	}
	return Event{}, false
}

func fromCallback(cq *tgbotapi.CallbackQuery) (Event, bool) {
	ev := Event{Kind: KindCallback, CallbackID: cq.ID, Data: strings.TrimSpace(cq.Data)}
	if cq.From != nil {
		ev.From = sender(cq.From)
		ev.ChatID = cq.From.ID
	}
	if cq.Message != nil {
		ev.MessageID = cq.Message.MessageID
		if cq.Message.Chat != nil {
			ev.ChatID = cq.Message.Chat.ID
		}
		ev.Text = cq.Message.Text
	}
	return ev, ev.ChatID != 0
}

func fromMessage(m *tgbotapi.Message) (Event, bool) {
	if m.Chat == nil {
		return Event{}, false
	}
	ev := Event{ChatID: m.Chat.ID, MessageID: m.MessageID}
	if m.From != nil {
		ev.From = sender(m.From)
	}

	switch {
	case m.Video != nil:
		ev.Kind = KindVideo
		ev.Media = &Media{
			FileID:   m.Video.FileID,
			Caption:  m.Caption,
			Width:    m.Video.Width,
			Height:   m.Video.Height,
			Duration: m.Video.Duration,
			FileSize: int64(m.Video.FileSize),
			MimeType: m.Video.MimeType,
			FileName: m.Video.FileName,
		}
	case len(m.Photo) > 0:
		largest := m.Photo[len(m.Photo)-1]
		ev.Kind = KindPhoto
		ev.Media = &Media{
			FileID:   largest.FileID,
			Caption:  m.Caption,
			Width:    largest.Width,
			Height:   largest.Height,
			FileSize: int64(largest.FileSize),
		}
	case m.IsCommand():
		ev.Kind = KindCommand
		ev.Text = m.Text
		ev.Command = strings.ToLower(m.Command())
		ev.Args = strings.TrimSpace(m.CommandArguments())
	case m.Text != "":
		ev.Kind = KindText
		ev.Text = m.Text
	default:
		return Event{}, false
	}
	return ev, true
}

func sender(u *tgbotapi.User) Sender {
	return Sender{
		ID:           u.ID,
		Username:     u.UserName,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
	}
}
