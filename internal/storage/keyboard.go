package storage

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const episodesPerPage = 24

// SeriesKeyboard lays out the episodes of one series three per row, paged, with the
// episode being watched marked.
func SeriesKeyboard(episodes []VideoEntry, current string, page int) *tgbotapi.InlineKeyboardMarkup {
	if len(episodes) == 0 {
		return nil
	}
	seriesID := episodes[0].SeriesID

	total := len(episodes)
	totalPages := (total + episodesPerPage - 1) / episodesPerPage
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * episodesPerPage
	end := start + episodesPerPage
	if end > total {
		end = total
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, episodesPerPage/3+2)
	row := []tgbotapi.InlineKeyboardButton{}
	for i := start; i < end; i++ {
		ep := episodes[i]
		label := fmt.Sprintf("%d-qism", ep.EpisodeNumber)
		if ep.Code == current {
			label = "▶️ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "movie:"+ep.Code))
		if len(row) == 3 {
			rows = append(rows, row)
			row = []tgbotapi.InlineKeyboardButton{}
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	if totalPages > 1 {
		nav := []tgbotapi.InlineKeyboardButton{}
		if page > 1 {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("<<<", fmt.Sprintf("spage:%s:%d", seriesID, page-1)))
		}
		if page < totalPages {
			nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(">>>", fmt.Sprintf("spage:%s:%d", seriesID, page+1)))
		}
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Yopish", "close")))
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

// PageOf returns the keyboard page holding the episode with the given code.
func PageOf(episodes []VideoEntry, code string) int {
	for i, ep := range episodes {
		if ep.Code == code {
			return i/episodesPerPage + 1
		}
	}
	return 1
}
