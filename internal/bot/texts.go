package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kinobot/internal/tg"
)

// Reply keyboard labels. They double as text triggers.
const (
	btnSearch  = "🎥 Kino izlash"
	btnHelp    = "ℹ️ Yordam"
	btnMyStats = "📊 Mening statistikam"

	btnAddMovie  = "➕ Kino qo'shish"
	btnAddSeries = "📺 Serial qo'shish"
	btnDelete    = "🗑 Kino o'chirish"
	btnBroadcast = "📢 Reklama"
	btnStats     = "📈 Statistika"
	btnList      = "📋 Kinolar ro'yxati"
)

const (
	cbCheckSubscription = "check_subscription"
	cbClose             = "close"
	cbMovie             = "movie:"
	cbSeriesPage        = "spage:"
	cbDeleteYes         = "del_yes:"
	cbDeleteNo          = "del_no:"
)

const (
	msgNeedSubscription = "❌ Botdan foydalanish uchun kanalga obuna bo'lishingiz kerak!"
	msgNotSubscribedYet = "❌ Siz hali kanalga obuna bo'lmagansiz! Iltimos, avval obuna bo'ling."
	msgMainMenu         = "🎬 Asosiy menyu. Quyidagi tugmalardan birini tanlang:"
	msgSearchPrompt     = "🔍 Kino kodini yoki nomini kiriting (masalan: 0001):"
	msgNotFound         = "❌ Bunday kino topilmadi. Kodni tekshirib qayta kiriting."
	msgSendFailed       = "❌ Video yuborishda xatolik. Iltimos, keyinroq urinib ko'ring."
	msgUnknownUser      = "❌ Siz hali botdan foydalanmadingiz!"
	msgStorageFailed    = "❌ Ma'lumotlarni saqlashda xatolik yuz berdi!"

	msgAddMovieStart   = "🎬 Yangi kino qo'shish rejimi:\n\n1. Video faylni yuboring\n2. Keyin kino nomini yuboring"
	msgVideoReceived   = "✅ Video qabul qilindi! Endi kino nomini yuboring:"
	msgTitleTooShort   = "❌ Nom kamida 2 ta belgidan iborat bo'lishi kerak. Qayta yuboring:"
	msgAddSeriesStart  = "📺 Yangi serial qo'shish rejimi.\n\nSerial nomini yuboring:"
	msgEpisodePrompt   = "🎞 %d-qism videosini yuboring:"
	msgMoreEpisodes    = "✅ %d-qism qabul qilindi!\n\nYana qism qo'shasizmi? (ha / yo'q)"
	msgYesNo           = "❓ Iltimos, \"ha\" yoki \"yo'q\" deb javob bering."
	msgDeleteStart     = "🗑 O'chirmoqchi bo'lgan kino kodini yuboring:"
	msgInvalidCode     = "❌ Kod faqat raqamlardan iborat bo'lishi kerak. Qayta yuboring:"
	msgDeleteNotFound  = "❌ Bunday kodli kino topilmadi."
	msgBroadcastPrompt = "📢 Reklama matnini yuboring yoki media (rasm/video) bilan birga:"
	msgCancelled       = "🚫 Amal bekor qilindi."
	msgNothingToCancel = "ℹ️ Bekor qilinadigan amal yo'q."
	msgSelfTestFailed  = "⚠️ Kino saqlandi, lekin uni qayta yuborib bo'lmadi: %v"
)

var menuButtons = map[string]bool{
	btnSearch: true, btnHelp: true, btnMyStats: true,
	btnAddMovie: true, btnAddSeries: true, btnDelete: true,
	btnBroadcast: true, btnStats: true, btnList: true,
}

func mainMenu(admin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSearch)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnHelp)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnMyStats)),
	}
	if admin {
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddMovie), tgbotapi.NewKeyboardButton(btnAddSeries)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnDelete), tgbotapi.NewKeyboardButton(btnBroadcast)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnStats), tgbotapi.NewKeyboardButton(btnList)),
		)
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func subscribeKeyboard(channelURL string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📢 Kanalga obuna bo'lish", channelURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Obuna bo'ldim", cbCheckSubscription)),
	)
}

func deleteConfirmKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Ha, o'chirish", cbDeleteYes+code),
		tgbotapi.NewInlineKeyboardButtonData("❌ Yo'q", cbDeleteNo+code),
	))
}

func forceReply() tgbotapi.ForceReply {
	return tgbotapi.ForceReply{ForceReply: true}
}

func helpText(support string) string {
	return fmt.Sprintf(`🎬 <b>Kino Bot Yordam</b>

Bu bot orqali siz turli kinolarni kod yoki nomi orqali topib ko'rishingiz mumkin.

🔍 <b>Kino qidirish</b>:
1. "%s" tugmasini bosing
2. 4 xonali kodni (masalan: 0001) yoki kino nomini kiriting

📢 <b>Eslatma</b>: Botdan foydalanish uchun kanalimizga obuna bo'lishingiz kerak.

👨‍💻 <b>Admin komandalari</b>:
- /addmovie - Yangi kino qo'shish
- /addseries - Yangi serial qo'shish
- /deletemovie - Kinoni o'chirish
- /mymovies - Kinolar ro'yxati
- /stats - Bot statistikasi
- /reklama - Reklama yuborish
- /cancel - Amalni bekor qilish

Savollar bo'lsa <a href="https://t.me/%s">@%s</a> ga murojaat qiling.`, btnSearch, support, support)
}

// Commands is the command menu registered with Telegram.
func Commands() []tg.Command {
	return []tg.Command{
		{Name: "start", Description: "Botni ishga tushirish"},
		{Name: "help", Description: "Yordam olish"},
		{Name: "search", Description: "Kino qidirish"},
		{Name: "addmovie", Description: "Yangi kino qo'shish (admin)"},
		{Name: "addseries", Description: "Yangi serial qo'shish (admin)"},
		{Name: "deletemovie", Description: "Kinoni o'chirish (admin)"},
		{Name: "mymovies", Description: "Kinolar ro'yxati (admin)"},
		{Name: "stats", Description: "Bot statistikasi (admin)"},
		{Name: "reklama", Description: "Reklama yuborish (admin)"},
	}
}
