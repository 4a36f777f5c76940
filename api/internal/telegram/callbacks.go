package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"stress-curve/api/internal/curve"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch {
	case strings.HasPrefix(cb.Data, cbModelPrefix):
		tag := strings.TrimPrefix(cb.Data, cbModelPrefix)
		if _, ok := r.Calc.Catalogue().Lookup(tag); !ok {
			r.send(cid, "That model is no longer available. /model")
			return
		}
		r.prefs.setModel(cid, tag)
		r.clearKeyboard(cid, cb.Message.MessageID)
		r.send(cid, "✅ Model: "+tag)
	case strings.HasPrefix(cb.Data, cbModePrefix):
		mode, err := curve.ParseMode(strings.TrimPrefix(cb.Data, cbModePrefix))
		if err != nil || mode == "" {
			r.send(cid, "Unknown mode. /mode")
			return
		}
		r.prefs.setMode(cid, mode)
		r.clearKeyboard(cid, cb.Message.MessageID)
		r.send(cid, "✅ Mode: "+string(mode))
	}
}

func (r *Router) clearKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{})
	_, _ = r.Bot.Send(edit)
}
