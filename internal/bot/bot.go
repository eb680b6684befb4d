package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"kinobot/internal/broadcast"
	"kinobot/internal/logger"
	"kinobot/internal/storage"
	"kinobot/internal/tg"
	"kinobot/internal/wizard"
)

// Messenger is the part of the Bot API the handlers talk to.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, opts tg.SendOptions) (tg.Message, error)
	SendVideo(ctx context.Context, chatID int64, fileID string, opts tg.SendOptions) (tg.Message, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, opts tg.SendOptions) error
	EditReplyMarkup(ctx context.Context, chatID int64, messageID int, kb *tgbotapi.InlineKeyboardMarkup) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID string, text string, showAlert bool) error
}

type Gate interface {
	IsSubscribed(ctx context.Context, userID int64) bool
	ChannelURL() string
}

type Broadcaster interface {
	Start(ctx context.Context, p broadcast.Payload)
	Cancel(id string, by int64) bool
}

type Deps struct {
	Messenger   Messenger
	Catalog     *storage.Catalog
	Users       *storage.Registry
	Gate        Gate
	Broadcaster Broadcaster
	Sessions    *wizard.Sessions
	Log         *zap.SugaredLogger
}

type Options struct {
	AdminID       int64
	SupportHandle string
}

type Bot struct {
	msg      Messenger
	catalog  *storage.Catalog
	users    *storage.Registry
	gate     Gate
	fanout   Broadcaster
	sessions *wizard.Sessions
	log      *zap.SugaredLogger

	adminID int64
	support string
	now     func() time.Time

	locks chatLocks
}

func New(d Deps, opts Options) *Bot {
	sessions := d.Sessions
	if sessions == nil {
		sessions = wizard.NewSessions()
	}
	return &Bot{
		msg:      d.Messenger,
		catalog:  d.Catalog,
		users:    d.Users,
		gate:     d.Gate,
		fanout:   d.Broadcaster,
		sessions: sessions,
		log:      logger.OrNop(d.Log),
		adminID:  opts.AdminID,
		support:  strings.TrimPrefix(opts.SupportHandle, "@"),
		now:      time.Now,
		locks:    chatLocks{m: map[int64]*chatLock{}},
	}
}

// Handle processes one event. Events of the same chat are handled one at a time; failures
// and panics are logged and reported to the admin.
func (b *Bot) Handle(ctx context.Context, ev tg.Event) {
	unlock := b.locks.lock(ev.ChatID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("handler panic", "chat_id", ev.ChatID, "kind", ev.Kind.String(), "panic", r)
			b.notifyAdmin(ctx, fmt.Sprintf("⚠️ Botda kutilmagan xato: %v", r))
		}
	}()

	if err := b.route(ctx, ev); err != nil {
		b.log.Errorw("handler failed", "chat_id", ev.ChatID, "kind", ev.Kind.String(), "err", err)
		b.notifyAdmin(ctx, "⚠️ Botda xato: "+err.Error())
	}
}

func (b *Bot) route(ctx context.Context, ev tg.Event) error {
	if b.isAdmin(ev.ChatID) && !interrupts(ev) {
		if st, ok := b.sessions.Get(ev.ChatID); ok && accepts(st.Step, ev.Kind) {
			return b.step(ctx, ev, st)
		}
	}

	switch ev.Kind {
	case tg.KindCommand:
		return b.command(ctx, ev)
	case tg.KindCallback:
		return b.callback(ctx, ev)
	case tg.KindText:
		return b.text(ctx, ev)
	}
	return nil
}

// interrupts reports whether ev is a command or a menu button; neither is ever wizard input.
func interrupts(ev tg.Event) bool {
	if ev.Kind == tg.KindCommand {
		return true
	}
	if ev.Kind != tg.KindText {
		return false
	}
	text := strings.TrimSpace(ev.Text)
	return strings.HasPrefix(text, "/") || menuButtons[text]
}

func accepts(step wizard.Step, k tg.Kind) bool {
	switch k {
	case tg.KindText:
		return step.Expects()&wizard.ExpectsText != 0
	case tg.KindVideo:
		return step.Expects()&wizard.ExpectsVideo != 0
	case tg.KindPhoto:
		return step.Expects()&wizard.ExpectsPhoto != 0
	}
	return false
}

func (b *Bot) command(ctx context.Context, ev tg.Event) error {
	switch ev.Command {
	case "start":
		return b.start(ctx, ev)
	case "help":
		return b.help(ctx, ev.ChatID)
	case "search":
		return b.searchPrompt(ctx, ev.ChatID)
	}

	if !b.isAdmin(ev.ChatID) {
		return nil
	}
	switch ev.Command {
	case "addmovie":
		return b.beginFlow(ctx, ev.ChatID, wizard.AddMovie)
	case "addseries":
		return b.beginFlow(ctx, ev.ChatID, wizard.AddSeries)
	case "deletemovie":
		return b.beginFlow(ctx, ev.ChatID, wizard.DeleteEntry)
	case "reklama":
		return b.beginFlow(ctx, ev.ChatID, wizard.Broadcast)
	case "cancel":
		return b.cancelFlow(ctx, ev.ChatID)
	case "stats":
		return b.stats(ctx, ev.ChatID)
	case "mymovies":
		return b.listCatalog(ctx, ev.ChatID)
	}
	return nil
}

func (b *Bot) text(ctx context.Context, ev tg.Event) error {
	text := strings.TrimSpace(ev.Text)
	switch text {
	case btnSearch:
		return b.searchPrompt(ctx, ev.ChatID)
	case btnHelp:
		return b.help(ctx, ev.ChatID)
	case btnMyStats:
		return b.myStats(ctx, ev.ChatID)
	}

	if b.isAdmin(ev.ChatID) {
		switch text {
		case btnAddMovie:
			return b.beginFlow(ctx, ev.ChatID, wizard.AddMovie)
		case btnAddSeries:
			return b.beginFlow(ctx, ev.ChatID, wizard.AddSeries)
		case btnDelete:
			return b.beginFlow(ctx, ev.ChatID, wizard.DeleteEntry)
		case btnBroadcast:
			return b.beginFlow(ctx, ev.ChatID, wizard.Broadcast)
		case btnStats:
			return b.stats(ctx, ev.ChatID)
		case btnList:
			return b.listCatalog(ctx, ev.ChatID)
		}
	}

	if strings.HasPrefix(text, "/") {
		return nil
	}
	return b.lookup(ctx, ev, text)
}

func (b *Bot) callback(ctx context.Context, ev tg.Event) error {
	data := ev.Data
	switch {
	case data == cbCheckSubscription:
		return b.checkSubscription(ctx, ev)
	case data == cbClose:
		if err := b.msg.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
			b.log.Warnw("delete message failed", "chat_id", ev.ChatID, "err", err)
		}
		b.answer(ctx, ev, "", false)
		return nil
	case strings.HasPrefix(data, cbMovie):
		return b.movieCallback(ctx, ev, strings.TrimPrefix(data, cbMovie))
	case strings.HasPrefix(data, cbSeriesPage):
		return b.seriesPage(ctx, ev, strings.TrimPrefix(data, cbSeriesPage))
	case strings.HasPrefix(data, cbDeleteYes):
		return b.confirmDelete(ctx, ev, strings.TrimPrefix(data, cbDeleteYes))
	case strings.HasPrefix(data, cbDeleteNo):
		return b.rejectDelete(ctx, ev, strings.TrimPrefix(data, cbDeleteNo))
	}
	if id, ok := broadcast.ParseCancelData(data); ok {
		return b.cancelBroadcast(ctx, ev, id)
	}
	b.answer(ctx, ev, "", false)
	return nil
}

func (b *Bot) isAdmin(chatID int64) bool { return chatID == b.adminID }

// reply sends text and logs, rather than returns, a transport failure.
func (b *Bot) reply(ctx context.Context, chatID int64, text string, opts tg.SendOptions) {
	if _, err := b.msg.SendText(ctx, chatID, text, opts); err != nil {
		b.log.Warnw("send failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) answer(ctx context.Context, ev tg.Event, text string, alert bool) {
	if ev.CallbackID == "" {
		return
	}
	if err := b.msg.AnswerCallback(ctx, ev.CallbackID, text, alert); err != nil {
		b.log.Warnw("answer callback failed", "chat_id", ev.ChatID, "err", err)
	}
}

// NotifyAdmin sends a plain message to the operator.
func (b *Bot) NotifyAdmin(ctx context.Context, text string) {
	b.notifyAdmin(ctx, text)
}

func (b *Bot) notifyAdmin(ctx context.Context, text string) {
	if b.adminID == 0 {
		return
	}
	b.reply(context.WithoutCancel(ctx), b.adminID, text, tg.SendOptions{})
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// chatLocks is a mutex per chat id, dropped once nobody holds or waits for it.
type chatLocks struct {
	mu sync.Mutex
	m  map[int64]*chatLock
}

func (l *chatLocks) lock(chatID int64) func() {
	l.mu.Lock()
	c, ok := l.m[chatID]
	if !ok {
		c = &chatLock{}
		l.m[chatID] = c
	}
	c.refs++
	l.mu.Unlock()

	c.mu.Lock()
	return func() {
		c.mu.Unlock()
		l.mu.Lock()
		c.refs--
		if c.refs == 0 {
			delete(l.m, chatID)
		}
		l.mu.Unlock()
	}
}
