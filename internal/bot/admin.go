package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"kinobot/internal/broadcast"
	"kinobot/internal/storage"
	"kinobot/internal/tg"
	"kinobot/internal/wizard"
)

const (
	messageLimit = 4000
	minTitleLen  = 2
	topN         = 5
)

func (b *Bot) beginFlow(ctx context.Context, chatID int64, f wizard.Flow) error {
	b.sessions.Set(chatID, wizard.Start(f))

	switch f {
	case wizard.AddMovie:
		b.reply(ctx, chatID, msgAddMovieStart, tg.SendOptions{ReplyMarkup: forceReply()})
	case wizard.AddSeries:
		b.reply(ctx, chatID, msgAddSeriesStart, tg.SendOptions{ReplyMarkup: forceReply()})
	case wizard.DeleteEntry:
		b.reply(ctx, chatID, msgDeleteStart, tg.SendOptions{ReplyMarkup: forceReply()})
	case wizard.Broadcast:
		b.reply(ctx, chatID, msgBroadcastPrompt, tg.SendOptions{ReplyMarkup: forceReply()})
	}
	return nil
}

func (b *Bot) cancelFlow(ctx context.Context, chatID int64) error {
	if _, ok := b.sessions.Get(chatID); !ok {
		b.reply(ctx, chatID, msgNothingToCancel, tg.SendOptions{})
		return nil
	}
	b.sessions.Clear(chatID)
	b.reply(ctx, chatID, msgCancelled, tg.SendOptions{ReplyMarkup: mainMenu(true)})
	return nil
}

// step advances the admin's active flow with an event of the kind the step expects.
func (b *Bot) step(ctx context.Context, ev tg.Event, st wizard.State) error {
	chatID := ev.ChatID
	switch st.Step {
	case wizard.WaitingVideo:
		st.Pending = media(ev)
		st.Step = wizard.WaitingTitle
		b.sessions.Set(chatID, st)
		b.reply(ctx, chatID, msgVideoReceived, tg.SendOptions{ReplyMarkup: forceReply()})

	case wizard.WaitingTitle:
		title := strings.TrimSpace(ev.Text)
		if utf8.RuneCountInString(title) < minTitleLen {
			b.reply(ctx, chatID, msgTitleTooShort, tg.SendOptions{})
			return nil
		}
		b.sessions.Clear(chatID)
		return b.addMovie(ctx, chatID, st.Pending, title)

	case wizard.WaitingSeriesTitle:
		title := strings.TrimSpace(ev.Text)
		if utf8.RuneCountInString(title) < minTitleLen {
			b.reply(ctx, chatID, msgTitleTooShort, tg.SendOptions{})
			return nil
		}
		st.SeriesTitle = title
		st.Step = wizard.WaitingEpisodeVideo
		b.sessions.Set(chatID, st)
		b.reply(ctx, chatID, fmt.Sprintf(msgEpisodePrompt, 1), tg.SendOptions{})

	case wizard.WaitingEpisodeVideo:
		st.Episodes = append(st.Episodes, media(ev))
		st.Step = wizard.WaitingMoreEpisodes
		b.sessions.Set(chatID, st)
		b.reply(ctx, chatID, fmt.Sprintf(msgMoreEpisodes, len(st.Episodes)), tg.SendOptions{})

	case wizard.WaitingMoreEpisodes:
		switch yesNo(ev.Text) {
		case answerYes:
			st.Step = wizard.WaitingEpisodeVideo
			b.sessions.Set(chatID, st)
			b.reply(ctx, chatID, fmt.Sprintf(msgEpisodePrompt, len(st.Episodes)+1), tg.SendOptions{})
		case answerNo:
			b.sessions.Clear(chatID)
			return b.addSeries(ctx, chatID, st)
		default:
			b.reply(ctx, chatID, msgYesNo, tg.SendOptions{})
		}

	case wizard.WaitingCode:
		code, ok := storage.NormalizeCode(ev.Text)
		if !ok {
			b.reply(ctx, chatID, msgInvalidCode, tg.SendOptions{})
			return nil
		}
		b.sessions.Clear(chatID)
		e, err := b.catalog.Get(ctx, code)
		if err != nil {
			b.reply(ctx, chatID, msgDeleteNotFound, tg.SendOptions{})
			return nil
		}
		b.reply(ctx, chatID,
			fmt.Sprintf("🗑 Rostdan ham o'chirmoqchimisiz?\n\n📹 Kodi: %s\n🎥 Nomi: %s", e.Code, e.Title),
			tg.SendOptions{ReplyMarkup: deleteConfirmKeyboard(e.Code)})

	case wizard.WaitingPayload:
		b.sessions.Clear(chatID)
		b.fanout.Start(ctx, payload(ev))
	}
	return nil
}

func (b *Bot) addMovie(ctx context.Context, chatID int64, m wizard.Media, title string) error {
	code, err := b.catalog.Insert(ctx, storage.VideoEntry{
		FileID:  m.FileID,
		Meta:    m.Meta,
		Title:   title,
		AddedAt: b.now().UTC(),
		AddedBy: chatID,
	})
	if err != nil {
		b.log.Errorw("insert movie failed", "title", title, "err", err)
		b.reply(ctx, chatID, "❌ Kino qo'shishda xatolik yuz berdi!", tg.SendOptions{})
		return nil
	}
	b.log.Infow("movie added", "code", code, "title", title)
	b.reply(ctx, chatID, fmt.Sprintf("✅ Kino muvaffaqiyatli qo'shildi!\n\n🎥 Kodi: %s\n📹 Nomi: %s", code, title),
		tg.SendOptions{ReplyMarkup: mainMenu(true)})

	e, err := b.catalog.Get(ctx, code)
	if err == nil {
		err = b.sendEntry(ctx, chatID, e)
	}
	if err != nil {
		b.log.Warnw("self-test resend failed", "code", code, "err", err)
		b.reply(ctx, chatID, fmt.Sprintf(msgSelfTestFailed, err), tg.SendOptions{})
	}
	return nil
}

func (b *Bot) addSeries(ctx context.Context, chatID int64, st wizard.State) error {
	seriesID := uuid.NewString()
	now := b.now().UTC()
	entries := make([]storage.VideoEntry, 0, len(st.Episodes))
	for i, m := range st.Episodes {
		entries = append(entries, storage.VideoEntry{
			FileID:        m.FileID,
			Meta:          m.Meta,
			Title:         fmt.Sprintf("%s - %d-qism", st.SeriesTitle, i+1),
			AddedAt:       now,
			AddedBy:       chatID,
			IsSeries:      true,
			SeriesID:      seriesID,
			EpisodeNumber: i + 1,
		})
	}

	codes, err := b.catalog.InsertSeries(ctx, entries)
	if err != nil {
		b.log.Errorw("insert series failed", "title", st.SeriesTitle, "err", err)
		b.reply(ctx, chatID, "❌ Serial qo'shishda xatolik yuz berdi!", tg.SendOptions{})
		return nil
	}
	b.log.Infow("series added", "series_id", seriesID, "title", st.SeriesTitle, "episodes", len(codes))

	text := fmt.Sprintf("✅ Serial muvaffaqiyatli qo'shildi!\n\n📺 Nomi: %s\n🎞 Qismlar soni: %d", st.SeriesTitle, len(codes))
	if len(codes) > 0 {
		text += fmt.Sprintf("\n🔢 Kodlar: %s - %s", codes[0], codes[len(codes)-1])
	}
	b.reply(ctx, chatID, text, tg.SendOptions{ReplyMarkup: mainMenu(true)})
	return nil
}

type yesNoAnswer int

const (
	answerOther yesNoAnswer = iota
	answerYes
	answerNo
)

var apostrophes = strings.NewReplacer("‘", "'", "’", "'", "ʻ", "'", "ʼ", "'", "`", "'")

func yesNo(s string) yesNoAnswer {
	s = apostrophes.Replace(strings.ToLower(strings.TrimSpace(s)))
	switch s {
	case "ha":
		return answerYes
	case "yo'q", "yoq":
		return answerNo
	}
	return answerOther
}

func media(ev tg.Event) wizard.Media {
	if ev.Media == nil {
		return wizard.Media{}
	}
	return wizard.Media{
		FileID: ev.Media.FileID,
		Meta: storage.MediaMeta{
			Width:    ev.Media.Width,
			Height:   ev.Media.Height,
			Duration: ev.Media.Duration,
			FileSize: ev.Media.FileSize,
			MimeType: ev.Media.MimeType,
			FileName: ev.Media.FileName,
		},
	}
}

func payload(ev tg.Event) broadcast.Payload {
	switch {
	case ev.Kind == tg.KindPhoto && ev.Media != nil:
		return broadcast.Photo{FileID: ev.Media.FileID, Caption: ev.Media.Caption}
	case ev.Kind == tg.KindVideo && ev.Media != nil:
		return broadcast.Video{FileID: ev.Media.FileID, Caption: ev.Media.Caption}
	}
	return broadcast.Text{Body: ev.Text}
}

func (b *Bot) confirmDelete(ctx context.Context, ev tg.Event, code string) error {
	if !b.isAdmin(ev.ChatID) {
		b.answer(ctx, ev, "", false)
		return nil
	}
	deleted, err := b.catalog.Delete(ctx, code)
	if err != nil {
		b.log.Errorw("delete failed", "code", code, "err", err)
		b.answer(ctx, ev, msgStorageFailed, true)
		return nil
	}
	text := fmt.Sprintf("✅ %s kodli kino o'chirildi.", code)
	if !deleted {
		text = fmt.Sprintf("ℹ️ %s kodli kino allaqachon o'chirilgan.", code)
	} else {
		b.log.Infow("entry deleted", "code", code)
	}
	b.editDone(ctx, ev, text)
	b.answer(ctx, ev, "", false)
	return nil
}

func (b *Bot) rejectDelete(ctx context.Context, ev tg.Event, code string) error {
	if !b.isAdmin(ev.ChatID) {
		b.answer(ctx, ev, "", false)
		return nil
	}
	b.editDone(ctx, ev, fmt.Sprintf("❎ %s kodli kinoni o'chirish bekor qilindi.", code))
	b.answer(ctx, ev, "", false)
	return nil
}

func (b *Bot) editDone(ctx context.Context, ev tg.Event, text string) {
	if err := b.msg.EditText(ctx, ev.ChatID, ev.MessageID, text, tg.SendOptions{ReplyMarkup: tg.EmptyInlineKeyboard()}); err != nil {
		b.log.Warnw("edit message failed", "chat_id", ev.ChatID, "err", err)
		b.reply(ctx, ev.ChatID, text, tg.SendOptions{})
	}
}

func (b *Bot) cancelBroadcast(ctx context.Context, ev tg.Event, runID string) error {
	if !b.fanout.Cancel(runID, ev.From.ID) {
		b.answer(ctx, ev, "ℹ️ Reklama allaqachon yakunlangan.", false)
		return nil
	}
	b.answer(ctx, ev, "Reklama bekor qilindi!", false)
	return nil
}

func (b *Bot) stats(ctx context.Context, chatID int64) error {
	b.reply(ctx, chatID, b.StatsText(ctx), tg.SendOptions{})
	return nil
}

// StatsText renders the admin statistics report.
func (b *Bot) StatsText(ctx context.Context) string {
	users := b.users.All(ctx)
	entries := b.catalog.List(ctx)

	var active []storage.User
	for _, u := range users {
		if u.IsSubscribed && u.ChatID != b.adminID {
			active = append(active, u)
		}
	}
	series := map[string]bool{}
	views := 0
	for _, e := range entries {
		views += e.Views
		if e.IsSeries {
			series[e.SeriesID] = true
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Bot statistikasi:\n\n👥 Jami foydalanuvchilar: %d\n✅ Faol obunachilar: %d\n🎥 Kinolar soni: %d\n📺 Seriallar soni: %d\n👁 Jami ko'rishlar: %d\n",
		len(users), len(active), len(entries), len(series), views)

	sort.SliceStable(active, func(i, j int) bool { return active[i].SearchCount > active[j].SearchCount })
	sb.WriteString("\n🔝 Top 5 foydalanuvchilar:\n")
	n := 0
	for _, u := range active {
		if n == topN || u.SearchCount == 0 {
			break
		}
		n++
		fmt.Fprintf(&sb, "%d. %s (%d)\n", n, displayName(u), u.SearchCount)
	}
	if n == 0 {
		sb.WriteString("-\n")
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Views > entries[j].Views })
	sb.WriteString("\n🔥 Top 5 kinolar:\n")
	n = 0
	for _, e := range entries {
		if n == topN || e.Views == 0 {
			break
		}
		n++
		fmt.Fprintf(&sb, "%d. %s %s (%d)\n", n, e.Code, e.Title, e.Views)
	}
	if n == 0 {
		sb.WriteString("-\n")
	}

	fmt.Fprintf(&sb, "\n🔄 Oxirgi yangilanish: %s", b.now().Format("02.01.2006 15:04"))
	return sb.String()
}

func displayName(u storage.User) string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ChatID, 10)
}

func (b *Bot) listCatalog(ctx context.Context, chatID int64) error {
	entries := b.catalog.List(ctx)
	if len(entries) == 0 {
		b.reply(ctx, chatID, "📭 Katalog bo'sh.", tg.SendOptions{})
		return nil
	}

	lines := []string{fmt.Sprintf("🎬 Kinolar ro'yxati (%d):", len(entries)), ""}
	seen := map[string]bool{}
	for _, e := range entries {
		if !e.IsSeries {
			lines = append(lines, fmt.Sprintf("%s | %s (👁 %d)", e.Code, e.Title, e.Views))
			continue
		}
		if seen[e.SeriesID] {
			continue
		}
		seen[e.SeriesID] = true
		eps := b.catalog.AllBySeriesID(ctx, e.SeriesID)
		if len(eps) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("📺 %s-%s | %s (%d qism)", eps[0].Code, eps[len(eps)-1].Code, seriesTitle(eps[0].Title), len(eps)))
	}

	for _, chunk := range chunkLines(lines, messageLimit) {
		b.reply(ctx, chatID, chunk, tg.SendOptions{})
	}
	return nil
}

func seriesTitle(episodeTitle string) string {
	if i := strings.LastIndex(episodeTitle, " - "); i > 0 {
		return episodeTitle[:i]
	}
	return episodeTitle
}

// chunkLines joins lines into messages no longer than limit bytes. A single line longer
// than limit becomes its own message.
func chunkLines(lines []string, limit int) []string {
	var out []string
	var sb strings.Builder
	for _, line := range lines {
		if sb.Len() > 0 && sb.Len()+1+len(line) > limit {
			out = append(out, sb.String())
			sb.Reset()
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	if sb.Len() > 0 {
		out = append(out, sb.String())
	}
	return out
}
