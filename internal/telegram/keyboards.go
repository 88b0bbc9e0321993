package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Menu button labels. These double as routing keys in the update loop, so
// changing one changes the protocol with existing chat clients.
const (
	buttonWishlist   = "📄 Wishlist"
	buttonFragrances = "🔍 Fragrances"
	buttonSettings   = "⚙️ Settings"
	buttonAdmin      = "👨🏻‍💼 Admin"
	buttonAddToList  = "➕ Add fragrance to wishlist"
	buttonBackToMenu = "◀️ Back to menu"
	buttonPriority   = "🚀 Priority mode"
	buttonBroadcast  = "📢 Broadcast"
)

// Callback data values for inline buttons.
const (
	callbackAddMore      = "add_more"
	callbackToggleNotify = "toggle_notification_status"
	callbackDeletePrefix = "_"
)

func mainKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonWishlist),
			tgbotapi.NewKeyboardButton(buttonFragrances),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonSettings),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonAdmin),
		))
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.InputFieldPlaceholder = "Choose from the menu"
	return keyboard
}

func addToWishlistKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonAddToList)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonBackToMenu)),
	)
	keyboard.InputFieldPlaceholder = "Choose from the menu"
	return keyboard
}

func backToMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonBackToMenu)),
	)
}

func adminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonPriority),
			tgbotapi.NewKeyboardButton(buttonBroadcast),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonBackToMenu)),
	)
}

func addMoreMarkup() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕Add more", callbackAddMore),
		),
	)
}

func deleteMarkup(name string) tgbotapi.InlineKeyboardMarkup {
	// Telegram caps callback data at 64 bytes; long names are truncated and
	// re-resolved through the fuzzy lookup on the way back.
	if len(name) > 60 {
		name = name[:60]
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Delete", callbackDeletePrefix+name),
		),
	)
}

func notifyStatusMarkup(enabled bool) tgbotapi.InlineKeyboardMarkup {
	status := "Off"
	if enabled {
		status = "On"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Receive Notification: "+status, callbackToggleNotify),
		),
	)
}
