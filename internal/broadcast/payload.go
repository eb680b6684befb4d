package broadcast

import (
	"context"

	"kinobot/internal/tg"
)

const fallbackText = "📢 Yangilik!"

// Payload is one of Text, Photo or Video.
type Payload interface {
	Kind() string
	deliver(ctx context.Context, s Sender, chatID int64) error
}

type Text struct {
	Body string
}

type Photo struct {
	FileID  string
	Caption string
}

type Video struct {
	FileID  string
	Caption string
}

func (Text) Kind() string  { return "text" }
func (Photo) Kind() string { return "photo" }
func (Video) Kind() string { return "video" }

func (p Text) deliver(ctx context.Context, s Sender, chatID int64) error {
	body := p.Body
	if body == "" {
		body = fallbackText
	}
	_, err := s.SendText(ctx, chatID, body, tg.SendOptions{})
	return err
}

func (p Photo) deliver(ctx context.Context, s Sender, chatID int64) error {
	_, err := s.SendPhoto(ctx, chatID, p.FileID, tg.SendOptions{Caption: p.Caption})
	return err
}

func (p Video) deliver(ctx context.Context, s Sender, chatID int64) error {
	_, err := s.SendVideo(ctx, chatID, p.FileID, tg.SendOptions{Caption: p.Caption})
	return err
}
