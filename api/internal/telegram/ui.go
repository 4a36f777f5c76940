package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stress-curve/api/internal/curve"
)

const (
	cbModelPrefix = "model:"
	cbModePrefix  = "mode:"
)

// одна кнопка на модель, подпись: первый тег из каталога
func makeModelKeyboard(cat curve.Catalogue) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range curve.Models() {
		tags := cat.TagsFor(m)
		if len(tags) == 0 {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(tags[0], cbModelPrefix+tags[0]))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func makeModeKeyboard() tgbotapi.InlineKeyboardMarkup {
	scaled := tgbotapi.NewInlineKeyboardButtonData("Scaled linear", cbModePrefix+string(curve.ModeScaled))
	bilinear := tgbotapi.NewInlineKeyboardButtonData("Bilinear", cbModePrefix+string(curve.ModeBilinear))
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(scaled, bilinear))
}
