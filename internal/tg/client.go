package tg

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kinobot/internal/logger"
)

const ModeHTML = tgbotapi.ModeHTML

type Client struct {
	api *tgbotapi.BotAPI
	log *zap.SugaredLogger
}

func NewClient(token string, log *zap.SugaredLogger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log = logger.OrNop(log)
	log.Infow("telegram bot authorized", "username", api.Self.UserName)
	return &Client{api: api, log: log}, nil
}

// SendOptions covers the per-message knobs the bot uses. ReplyMarkup takes any tgbotapi
// keyboard value (inline, reply, force reply, remove).
type SendOptions struct {
	Caption            string
	ReplyMarkup        any
	ParseMode          string
	DisableLinkPreview bool
}

// Message identifies a sent message for later edits.
type Message struct {
	ChatID    int64
	MessageID int
}

type Command struct {
	Name        string
	Description string
}

// EmptyInlineKeyboard removes the buttons of an edited message.
func EmptyInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, opts SendOptions) (Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = opts.ParseMode
	msg.DisableWebPagePreview = opts.DisableLinkPreview
	if opts.ReplyMarkup != nil {
		msg.ReplyMarkup = opts.ReplyMarkup
	}
	return c.send(ctx, msg)
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID string, opts SendOptions) (Message, error) {
	p := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	p.Caption = opts.Caption
	p.ParseMode = opts.ParseMode
	if opts.ReplyMarkup != nil {
		p.ReplyMarkup = opts.ReplyMarkup
	}
	return c.send(ctx, p)
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, fileID string, opts SendOptions) (Message, error) {
	v := tgbotapi.NewVideo(chatID, tgbotapi.FileID(fileID))
	v.Caption = opts.Caption
	v.ParseMode = opts.ParseMode
	if opts.ReplyMarkup != nil {
		v.ReplyMarkup = opts.ReplyMarkup
	}
	return c.send(ctx, v)
}

func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, opts SendOptions) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = opts.ParseMode
	edit.DisableWebPagePreview = opts.DisableLinkPreview
	switch kb := opts.ReplyMarkup.(type) {
	case tgbotapi.InlineKeyboardMarkup:
		edit.ReplyMarkup = &kb
	case *tgbotapi.InlineKeyboardMarkup:
		edit.ReplyMarkup = kb
	}
	return c.request(ctx, edit)
}

func (c *Client) EditReplyMarkup(ctx context.Context, chatID int64, messageID int, kb *tgbotapi.InlineKeyboardMarkup) error {
	markup := EmptyInlineKeyboard()
	if kb != nil {
		markup = *kb
	}
	return c.request(ctx, tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, markup))
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID))
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string, text string, showAlert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = showAlert
	return c.request(ctx, cb)
}

func (c *Client) MemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: channel,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", err
	}
	return member.Status, nil
}

func (c *Client) SetCommands(ctx context.Context, cmds []Command) error {
	list := make([]tgbotapi.BotCommand, 0, len(cmds))
	for _, cmd := range cmds {
		list = append(list, tgbotapi.BotCommand{Command: cmd.Name, Description: cmd.Description})
	}
	return c.request(ctx, tgbotapi.NewSetMyCommands(list...))
}

func (c *Client) send(ctx context.Context, chattable tgbotapi.Chattable) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	m, err := c.api.Send(chattable)
	if err != nil {
		return Message{}, err
	}
	var chatID int64
	if m.Chat != nil {
		chatID = m.Chat.ID
	}
	return Message{ChatID: chatID, MessageID: m.MessageID}, nil
}

func (c *Client) request(ctx context.Context, chattable tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(chattable)
	return err
}
