package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"kinobot/internal/storage"
	"kinobot/internal/tg"
)

func (b *Bot) start(ctx context.Context, ev tg.Event) error {
	b.track(ctx, ev)

	if !b.isAdmin(ev.ChatID) && !b.gate.IsSubscribed(ctx, ev.ChatID) {
		name := ev.From.FirstName
		if name == "" {
			name = "do'stim"
		}
		b.reply(ctx, ev.ChatID,
			fmt.Sprintf("🎬 Xush kelibsiz %s! Botdan foydalanish uchun quyidagi kanalga obuna bo'ling:", name),
			tg.SendOptions{ReplyMarkup: subscribeKeyboard(b.gate.ChannelURL())})
		return nil
	}
	b.markSubscribed(ctx, ev.ChatID)
	b.showMenu(ctx, ev.ChatID)
	return nil
}

func (b *Bot) checkSubscription(ctx context.Context, ev tg.Event) error {
	if !b.isAdmin(ev.ChatID) && !b.gate.IsSubscribed(ctx, ev.ChatID) {
		b.answer(ctx, ev, msgNotSubscribedYet, true)
		return nil
	}
	b.track(ctx, ev)
	b.markSubscribed(ctx, ev.ChatID)
	if err := b.msg.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		b.log.Warnw("delete subscribe prompt failed", "chat_id", ev.ChatID, "err", err)
	}
	b.answer(ctx, ev, "", false)
	b.showMenu(ctx, ev.ChatID)
	return nil
}

func (b *Bot) track(ctx context.Context, ev tg.Event) {
	lang := ev.From.LanguageCode
	if lang == "" {
		lang = "uz"
	}
	_, err := b.users.Upsert(ctx, ev.ChatID, storage.Profile{
		Username:     ev.From.Username,
		FirstName:    ev.From.FirstName,
		LastName:     ev.From.LastName,
		LanguageCode: lang,
	})
	if err != nil {
		b.log.Errorw("track user failed", "chat_id", ev.ChatID, "err", err)
	}
}

func (b *Bot) markSubscribed(ctx context.Context, chatID int64) {
	if err := b.users.MarkSubscribed(ctx, chatID); err != nil {
		b.log.Errorw("mark subscribed failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) showMenu(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, msgMainMenu, tg.SendOptions{ReplyMarkup: mainMenu(b.isAdmin(chatID))})
}

func (b *Bot) help(ctx context.Context, chatID int64) error {
	b.reply(ctx, chatID, helpText(b.support), tg.SendOptions{ParseMode: tg.ModeHTML, DisableLinkPreview: true})
	return nil
}

// allowed trusts the stored flag first and falls back to a live membership check, so users
// who subscribed without pressing the button are let in.
func (b *Bot) allowed(ctx context.Context, chatID int64) bool {
	if b.isAdmin(chatID) {
		return true
	}
	if u, ok := b.users.Get(ctx, chatID); ok && u.IsSubscribed {
		return true
	}
	if !b.gate.IsSubscribed(ctx, chatID) {
		return false
	}
	b.markSubscribed(ctx, chatID)
	return true
}

func (b *Bot) denySubscription(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, msgNeedSubscription, tg.SendOptions{ReplyMarkup: subscribeKeyboard(b.gate.ChannelURL())})
}

func (b *Bot) searchPrompt(ctx context.Context, chatID int64) error {
	if !b.allowed(ctx, chatID) {
		b.denySubscription(ctx, chatID)
		return nil
	}
	b.reply(ctx, chatID, msgSearchPrompt, tg.SendOptions{ReplyMarkup: forceReply()})
	return nil
}

// lookup treats numeric input as a code and anything else of two or more characters as a
// title query.
func (b *Bot) lookup(ctx context.Context, ev tg.Event, text string) error {
	if text == "" {
		return nil
	}
	if code, ok := storage.NormalizeCode(text); ok {
		if !b.allowed(ctx, ev.ChatID) {
			b.denySubscription(ctx, ev.ChatID)
			return nil
		}
		e, err := b.catalog.Get(ctx, code)
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(ctx, ev.ChatID, msgNotFound, tg.SendOptions{})
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "get %s", code)
		}
		return b.deliver(ctx, ev.ChatID, e)
	}

	if utf8.RuneCountInString(text) < 2 {
		return nil
	}
	if !b.allowed(ctx, ev.ChatID) {
		b.denySubscription(ctx, ev.ChatID)
		return nil
	}
	found := b.catalog.FindByTitle(ctx, text, storage.MaxSearchResults)
	if len(found) == 0 {
		b.reply(ctx, ev.ChatID, fmt.Sprintf("❌ \"%s\" bo'yicha hech narsa topilmadi.", text), tg.SendOptions{})
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(found))
	for _, e := range found {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🎥 %s [%s]", e.Title, e.Code), cbMovie+e.Code),
		))
	}
	b.reply(ctx, ev.ChatID, fmt.Sprintf("🔎 Topilgan kinolar (%d):", len(found)),
		tg.SendOptions{ReplyMarkup: tgbotapi.NewInlineKeyboardMarkup(rows...)})
	return nil
}

func (b *Bot) movieCallback(ctx context.Context, ev tg.Event, code string) error {
	if !b.allowed(ctx, ev.ChatID) {
		b.answer(ctx, ev, msgNeedSubscription, true)
		return nil
	}
	e, err := b.catalog.Get(ctx, code)
	if err != nil {
		b.answer(ctx, ev, "❌ Kino topilmadi", true)
		return nil
	}
	b.answer(ctx, ev, "", false)
	return b.deliver(ctx, ev.ChatID, e)
}

func (b *Bot) seriesPage(ctx context.Context, ev tg.Event, rest string) error {
	i := strings.LastIndex(rest, ":")
	if i <= 0 {
		b.answer(ctx, ev, "", false)
		return nil
	}
	page, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		b.answer(ctx, ev, "", false)
		return nil
	}
	kb := storage.SeriesKeyboard(b.catalog.AllBySeriesID(ctx, rest[:i]), "", page)
	if kb == nil {
		b.answer(ctx, ev, "❌ Serial topilmadi", true)
		return nil
	}
	if err := b.msg.EditReplyMarkup(ctx, ev.ChatID, ev.MessageID, kb); err != nil {
		b.log.Warnw("edit series keyboard failed", "chat_id", ev.ChatID, "err", err)
	}
	b.answer(ctx, ev, "", false)
	return nil
}

// deliver sends the entry and, on success, counts the view for the entry and the user.
func (b *Bot) deliver(ctx context.Context, chatID int64, e storage.VideoEntry) error {
	if err := b.sendEntry(ctx, chatID, e); err != nil {
		b.log.Warnw("send video failed", "chat_id", chatID, "code", e.Code, "err", err)
		b.reply(ctx, chatID, msgSendFailed, tg.SendOptions{})
		return nil
	}
	if err := b.catalog.IncrementViews(ctx, e.Code); err != nil {
		b.log.Errorw("increment views failed", "code", e.Code, "err", err)
	}
	if err := b.users.RecordDelivery(ctx, chatID, e.Code); err != nil {
		b.log.Errorw("record delivery failed", "chat_id", chatID, "code", e.Code, "err", err)
	}
	return nil
}

func (b *Bot) sendEntry(ctx context.Context, chatID int64, e storage.VideoEntry) error {
	opts := tg.SendOptions{Caption: caption(e)}
	if e.IsSeries {
		episodes := b.catalog.AllBySeriesID(ctx, e.SeriesID)
		if kb := storage.SeriesKeyboard(episodes, e.Code, storage.PageOf(episodes, e.Code)); kb != nil {
			opts.ReplyMarkup = kb
		}
	}
	_, err := b.msg.SendVideo(ctx, chatID, e.FileID, opts)
	return err
}

func caption(e storage.VideoEntry) string {
	return fmt.Sprintf("🎥 %s\n📹 Kodi: %s\n📅 Qo'shilgan sana: %s\n👁 Ko'rishlar: %d",
		e.Title, e.Code, e.AddedAt.Format("02.01.2006"), e.Views+1)
}

func (b *Bot) myStats(ctx context.Context, chatID int64) error {
	u, ok := b.users.Get(ctx, chatID)
	if !ok {
		b.reply(ctx, chatID, msgUnknownUser, tg.SendOptions{})
		return nil
	}
	b.reply(ctx, chatID, fmt.Sprintf(`📊 Sizning statistikangiz:

🔍 Qidiruvlar soni: %d
🎬 Ko'rilgan kinolar: %d
📅 Ro'yxatdan o'tgan sana: %s
🕒 So'nggi faollik: %s`,
		u.SearchCount, len(u.ViewedCodes),
		u.JoinedAt.Format("02.01.2006"), u.LastActive.Format("02.01.2006 15:04")), tg.SendOptions{})
	return nil
}
