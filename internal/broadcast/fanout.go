package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"kinobot/internal/logger"
	"kinobot/internal/tg"
)

const (
	cancelPrefix  = "cancel_ad:"
	progressEvery = 10
)

type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, opts tg.SendOptions) (tg.Message, error)
	SendPhoto(ctx context.Context, chatID int64, fileID string, opts tg.SendOptions) (tg.Message, error)
	SendVideo(ctx context.Context, chatID int64, fileID string, opts tg.SendOptions) (tg.Message, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, opts tg.SendOptions) error
}

type Recipients interface {
	ActiveSubscribers(ctx context.Context, adminID int64) ([]int64, error)
}

type Result struct {
	Total     int
	Sent      int
	Failed    int
	Cancelled bool
	Elapsed   time.Duration
}

// Fanout sends one payload to every active subscriber, one at a time, reporting progress
// to the admin in a single edited message.
type Fanout struct {
	sender     Sender
	recipients Recipients
	adminID    int64
	delay      time.Duration
	log        *zap.SugaredLogger

	mu   sync.Mutex
	runs map[string]context.CancelFunc
	wg   sync.WaitGroup
}

func New(sender Sender, recipients Recipients, adminID int64, delay time.Duration, log *zap.SugaredLogger) *Fanout {
	return &Fanout{
		sender:     sender,
		recipients: recipients,
		adminID:    adminID,
		delay:      delay,
		log:        logger.OrNop(log),
		runs:       map[string]context.CancelFunc{},
	}
}

// CancelData is the callback payload of the cancel button for run id.
func CancelData(id string) string { return cancelPrefix + id }

// ParseCancelData extracts the run id from a cancel button payload.
func ParseCancelData(data string) (string, bool) {
	if !strings.HasPrefix(data, cancelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(data, cancelPrefix)
	return id, id != ""
}

// Start runs the fanout in the background.
func (f *Fanout) Start(ctx context.Context, p Payload) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.Run(ctx, p)
	}()
}

// Wait blocks until every started run has finished.
func (f *Fanout) Wait() { f.wg.Wait() }

// Cancel stops run id before its next send. Only the admin may cancel.
func (f *Fanout) Cancel(id string, by int64) bool {
	if by != f.adminID {
		return false
	}
	f.mu.Lock()
	cancel, ok := f.runs[id]
	f.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (f *Fanout) register(cancel context.CancelFunc) string {
	id := uuid.NewString()
	f.mu.Lock()
	f.runs[id] = cancel
	f.mu.Unlock()
	return id
}

func (f *Fanout) unregister(id string) {
	f.mu.Lock()
	delete(f.runs, id)
	f.mu.Unlock()
}

func (f *Fanout) Run(ctx context.Context, p Payload) Result {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	id := f.register(cancel)
	defer f.unregister(id)

	return f.run(runCtx, id, p)
}

func (f *Fanout) run(ctx context.Context, id string, p Payload) Result {
	start := time.Now()
	// Reporting must still work after the run itself has been cancelled.
	reportCtx := context.WithoutCancel(ctx)

	ids, err := f.recipients.ActiveSubscribers(ctx, f.adminID)
	if err != nil {
		f.log.Errorw("broadcast recipients unavailable", "err", err)
		_, _ = f.sender.SendText(reportCtx, f.adminID, "❌ Foydalanuvchilar ro'yxatini o'qib bo'lmadi!", tg.SendOptions{})
		return Result{}
	}
	res := Result{Total: len(ids)}
	f.log.Infow("broadcast started", "run_id", id, "kind", p.Kind(), "recipients", res.Total)

	cancelKB := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Bekor qilish", CancelData(id)),
	))
	progress, err := f.sender.SendText(ctx, f.adminID, progressText(0, res.Total), tg.SendOptions{ReplyMarkup: cancelKB})
	hasProgress := err == nil
	if err != nil {
		f.log.Warnw("broadcast progress message failed", "run_id", id, "err", err)
	}

	for i, chatID := range ids {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		if err := p.deliver(ctx, f.sender, chatID); err != nil {
			res.Failed++
			f.log.Warnw("broadcast delivery failed", "run_id", id, "chat_id", chatID, "err", err)
		} else {
			res.Sent++
		}

		if hasProgress && (i%progressEvery == 0 || i == len(ids)-1) {
			_ = f.sender.EditText(ctx, f.adminID, progress.MessageID, progressText(i+1, res.Total), tg.SendOptions{ReplyMarkup: cancelKB})
		}
		f.pause(ctx)
	}
	if !res.Cancelled && ctx.Err() != nil && res.Sent+res.Failed < res.Total {
		res.Cancelled = true
	}
	res.Elapsed = time.Since(start)

	f.log.Infow("broadcast finished", "run_id", id, "sent", res.Sent, "failed", res.Failed, "cancelled", res.Cancelled, "elapsed", res.Elapsed)
	summary := summaryText(res)
	if hasProgress {
		if err := f.sender.EditText(reportCtx, f.adminID, progress.MessageID, summary, tg.SendOptions{ReplyMarkup: tg.EmptyInlineKeyboard()}); err == nil {
			return res
		}
	}
	_, _ = f.sender.SendText(reportCtx, f.adminID, summary, tg.SendOptions{})
	return res
}

func (f *Fanout) pause(ctx context.Context) {
	if f.delay <= 0 {
		return
	}
	t := time.NewTimer(f.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func progressText(done, total int) string {
	return fmt.Sprintf("📢 Reklama yuborilmoqda...\n\n%d/%d", done, total)
}

func summaryText(r Result) string {
	secs := fmt.Sprintf("%.1f", r.Elapsed.Seconds())
	if r.Cancelled {
		return fmt.Sprintf("❌ Reklama bekor qilindi!\n\n⏱ Sarflangan vaqt: %ss\n✔️ Muvaffaqiyatli: %d\n❌ Xatolar: %d\n⏭ Yuborilmadi: %d",
			secs, r.Sent, r.Failed, r.Total-r.Sent-r.Failed)
	}
	return fmt.Sprintf("✅ Reklama yuborildi!\n\n⏱ Sarflangan vaqt: %ss\n✔️ Muvaffaqiyatli: %d\n❌ Xatolar: %d", secs, r.Sent, r.Failed)
}
