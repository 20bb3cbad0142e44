package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"viaggi/internal/keypad"
)

// Callback data of the two buttons that are not keypad keys.
const (
	dataCommit = "commit"
	dataCancel = "cancel"
)

func button(label string, key keypad.Token) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(label, string(key))
}

// Keyboard lays out the amount keypad. The decimal key is labelled with the
// configured separator.
func Keyboard(sep rune) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("7", keypad.Digit(7)),
			button("8", keypad.Digit(8)),
			button("9", keypad.Digit(9)),
			button("÷", keypad.OpDiv.Key()),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("4", keypad.Digit(4)),
			button("5", keypad.Digit(5)),
			button("6", keypad.Digit(6)),
			button("×", keypad.OpMul.Key()),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("1", keypad.Digit(1)),
			button("2", keypad.Digit(2)),
			button("3", keypad.Digit(3)),
			button("-", keypad.OpSub.Key()),
		),
		tgbotapi.NewInlineKeyboardRow(
			button(string(sep), keypad.Separator),
			button("0", keypad.Digit(0)),
			button("⌫", keypad.Backspace),
			button("+", keypad.OpAdd.Key()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✕", dataCancel),
			button("=", keypad.Equals),
			tgbotapi.NewInlineKeyboardButtonData("✓ Save", dataCommit),
		),
	)
}

var operatorSymbols = map[keypad.Operator]string{
	keypad.OpAdd: "+",
	keypad.OpSub: "-",
	keypad.OpMul: "×",
	keypad.OpDiv: "÷",
}
