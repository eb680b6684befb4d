package tg

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var allowedUpdates = []string{"message", "callback_query"}

// Poll drops any webhook and feeds long-polled updates to handle until ctx is done.
func (c *Client) Poll(ctx context.Context, handle func(Event)) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		c.log.Warnw("deleteWebhook failed", "err", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = allowedUpdates
	updates := c.api.GetUpdatesChan(u)
	c.log.Info("polling started")

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := FromUpdate(upd); ok {
				handle(ev)
			}
		}
	}
}

// SetWebhook points Telegram at url.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	wh.AllowedUpdates = allowedUpdates
	return c.request(ctx, wh)
}
