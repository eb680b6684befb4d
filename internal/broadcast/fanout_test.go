package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinobot/internal/tg"
)

const admin = int64(999)

type sent struct {
	chatID int64
	kind   string
	text   string
}

type fakeSender struct {
	mu      sync.Mutex
	sends   []sent
	edits   []string
	fail    map[int64]bool
	runID   string
	onSend  func(n int)
	deliver int
}

func (s *fakeSender) record(chatID int64, kind, text string) error {
	s.mu.Lock()
	s.sends = append(s.sends, sent{chatID: chatID, kind: kind, text: text})
	var hook func(int)
	n := 0
	if chatID != admin {
		s.deliver++
		n = s.deliver
		hook = s.onSend
	}
	failed := s.fail[chatID]
	s.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if failed {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	return nil
}

func (s *fakeSender) SendText(_ context.Context, chatID int64, text string, opts tg.SendOptions) (tg.Message, error) {
	if kb, ok := opts.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok && chatID == admin {
		if id, ok := ParseCancelData(*kb.InlineKeyboard[0][0].CallbackData); ok {
			s.mu.Lock()
			s.runID = id
			s.mu.Unlock()
		}
	}
	err := s.record(chatID, "text", text)
	return tg.Message{ChatID: chatID, MessageID: 77}, err
}

func (s *fakeSender) SendPhoto(_ context.Context, chatID int64, fileID string, opts tg.SendOptions) (tg.Message, error) {
	return tg.Message{ChatID: chatID}, s.record(chatID, "photo", fileID+"|"+opts.Caption)
}

func (s *fakeSender) SendVideo(_ context.Context, chatID int64, fileID string, opts tg.SendOptions) (tg.Message, error) {
	return tg.Message{ChatID: chatID}, s.record(chatID, "video", fileID+"|"+opts.Caption)
}

func (s *fakeSender) EditText(_ context.Context, _ int64, _ int, text string, _ tg.SendOptions) error {
	s.mu.Lock()
	s.edits = append(s.edits, text)
	s.mu.Unlock()
	return nil
}

func (s *fakeSender) deliveries() []sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sent
	for _, m := range s.sends {
		if m.chatID != admin {
			out = append(out, m)
		}
	}
	return out
}

type staticRecipients struct {
	ids []int64
	err error
}

func (r staticRecipients) ActiveSubscribers(context.Context, int64) ([]int64, error) {
	return r.ids, r.err
}

func recipients(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestRunProgressCadence(t *testing.T) {
	s := &fakeSender{fail: map[int64]bool{5: true}}
	f := New(s, staticRecipients{ids: recipients(23)}, admin, 0, nil)

	res := f.Run(context.Background(), Text{Body: "Yangi kino!"})

	assert.Equal(t, 23, res.Total)
	assert.Equal(t, 22, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.False(t, res.Cancelled)
	require.Len(t, s.deliveries(), 23)

	require.Len(t, s.edits, 5)
	assert.Contains(t, s.edits[0], "1/23")
	assert.Contains(t, s.edits[1], "11/23")
	assert.Contains(t, s.edits[2], "21/23")
	assert.Contains(t, s.edits[3], "23/23")
	assert.Contains(t, s.edits[4], "✅ Reklama yuborildi!")
	assert.Contains(t, s.edits[4], "✔️ Muvaffaqiyatli: 22")
	assert.Contains(t, s.edits[4], "❌ Xatolar: 1")
}

func TestRunEmptyTextFallsBack(t *testing.T) {
	s := &fakeSender{}
	f := New(s, staticRecipients{ids: []int64{1}}, admin, 0, nil)

	f.Run(context.Background(), Text{})

	d := s.deliveries()
	require.Len(t, d, 1)
	assert.Equal(t, "📢 Yangilik!", d[0].text)
}

func TestRunMediaPayloads(t *testing.T) {
	s := &fakeSender{}
	f := New(s, staticRecipients{ids: []int64{1, 2}}, admin, 0, nil)

	f.Run(context.Background(), Photo{FileID: "p1", Caption: "poster"})
	f.Run(context.Background(), Video{FileID: "v1"})

	d := s.deliveries()
	require.Len(t, d, 4)
	assert.Equal(t, sent{chatID: 1, kind: "photo", text: "p1|poster"}, d[0])
	assert.Equal(t, sent{chatID: 2, kind: "video", text: "v1|"}, d[3])
}

func TestCancelStopsBeforeNextSend(t *testing.T) {
	s := &fakeSender{}
	f := New(s, staticRecipients{ids: recipients(20)}, admin, 0, nil)
	s.onSend = func(n int) {
		if n == 5 {
			s.mu.Lock()
			id := s.runID
			s.mu.Unlock()
			assert.False(t, f.Cancel(id, 1), "only the admin may cancel")
			assert.True(t, f.Cancel(id, admin))
		}
	}

	res := f.Run(context.Background(), Text{Body: "x"})

	assert.True(t, res.Cancelled)
	assert.Equal(t, 5, res.Sent)
	assert.Len(t, s.deliveries(), 5)
	last := s.edits[len(s.edits)-1]
	assert.Contains(t, last, "❌ Reklama bekor qilindi!")
	assert.Contains(t, last, "⏭ Yuborilmadi: 15")
}

func TestCancelUnknownRun(t *testing.T) {
	f := New(&fakeSender{}, staticRecipients{}, admin, 0, nil)
	assert.False(t, f.Cancel("nope", admin))
}

func TestRunRecipientsError(t *testing.T) {
	s := &fakeSender{}
	f := New(s, staticRecipients{err: errors.New("disk")}, admin, 0, nil)

	res := f.Run(context.Background(), Text{Body: "x"})

	assert.Equal(t, Result{}, res)
	require.Len(t, s.sends, 1)
	assert.Equal(t, admin, s.sends[0].chatID)
}

func TestStartAndWait(t *testing.T) {
	s := &fakeSender{}
	f := New(s, staticRecipients{ids: recipients(3)}, admin, 0, nil)

	f.Start(context.Background(), Text{Body: "x"})
	f.Wait()

	assert.Len(t, s.deliveries(), 3)
}

func TestParseCancelData(t *testing.T) {
	id, ok := ParseCancelData(CancelData("abc"))
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	_, ok = ParseCancelData("cancel_ad:")
	assert.False(t, ok)
	_, ok = ParseCancelData("movie:0001")
	assert.False(t, ok)
}
