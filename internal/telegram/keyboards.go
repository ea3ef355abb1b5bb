package telegram

import "github.com/hamdam-bot/hamdam/internal/repository"

// Button labels. Routing matches on these exact strings, so they live in
// one place.
const (
	BtnRegister       = "ثبت نام"
	BtnProfile        = "👤 پروفایل"
	BtnReferral       = "🎁 دعوت دوستان"
	BtnBuyCoins       = "💰 خرید سکه"
	BtnStartMatch     = "🔍 اتصال ناشناس"
	BtnBack           = "🔙 بازگشت"
	BtnEndChat        = "🚪 خروج از چت"
	BtnPartnerProfile = "👤 نمایش پروفایل"
	BtnReport         = "⚠️ گزارش کاربر"

	BtnGenderMale   = "پسر"
	BtnGenderFemale = "دختر"
)

// GenderFromLabel maps a keyboard label to the canonical stored value.
func GenderFromLabel(label string) (string, bool) {
	switch label {
	case BtnGenderMale:
		return repository.GenderMale, true
	case BtnGenderFemale:
		return repository.GenderFemale, true
	}
	return "", false
}

// GenderLabel maps a canonical gender back to its keyboard label.
func GenderLabel(gender string) string {
	if gender == repository.GenderFemale {
		return BtnGenderFemale
	}
	return BtnGenderMale
}

type KeyboardButton struct {
	Text string `json:"text"`
}

type ReplyKeyboard struct {
	Keyboard        [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard"`
	OneTimeKeyboard bool               `json:"one_time_keyboard,omitempty"`
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type InlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type RemoveKeyboardMarkup struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

func keyboardOf(rows ...[]string) ReplyKeyboard {
	kb := ReplyKeyboard{ResizeKeyboard: true}
	for _, row := range rows {
		buttons := make([]KeyboardButton, 0, len(row))
		for _, text := range row {
			buttons = append(buttons, KeyboardButton{Text: text})
		}
		kb.Keyboard = append(kb.Keyboard, buttons)
	}
	return kb
}

// MainKeyboard is the top-level menu for a registered user.
func MainKeyboard() ReplyKeyboard {
	return keyboardOf(
		[]string{BtnStartMatch},
		[]string{BtnProfile, BtnReferral},
		[]string{BtnBuyCoins},
	)
}

// RegisterKeyboard is shown to unknown users.
func RegisterKeyboard() ReplyKeyboard {
	return keyboardOf([]string{BtnRegister})
}

// GenderKeyboard serves both the registration gender step and the
// partner-gender selection.
func GenderKeyboard() ReplyKeyboard {
	return keyboardOf([]string{BtnGenderMale, BtnGenderFemale})
}

// ChatKeyboard is the in-chat menu.
func ChatKeyboard() ReplyKeyboard {
	return keyboardOf(
		[]string{BtnEndChat},
		[]string{BtnPartnerProfile, BtnReport},
	)
}

// ProfileKeyboard is shown under the user's own profile.
func ProfileKeyboard() ReplyKeyboard {
	return keyboardOf([]string{BtnBack})
}

// ChoiceKeyboard lays arbitrary options out two per row (provinces, cities).
func ChoiceKeyboard(options []string) ReplyKeyboard {
	kb := ReplyKeyboard{ResizeKeyboard: true}
	var row []KeyboardButton
	for _, opt := range options {
		row = append(row, KeyboardButton{Text: opt})
		if len(row) == 2 {
			kb.Keyboard = append(kb.Keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb.Keyboard = append(kb.Keyboard, row)
	}
	return kb
}

// CoinsKeyboard lists the purchasable coin packages as inline buttons.
func CoinsKeyboard() InlineKeyboard {
	return InlineKeyboard{InlineKeyboard: [][]InlineButton{
		{{Text: "💰 50 سکه - 10,000 تومان", CallbackData: "buy_50"}},
		{{Text: "💰 100 سکه - 18,000 تومان", CallbackData: "buy_100"}},
		{{Text: "💰 200 سکه - 35,000 تومان", CallbackData: "buy_200"}},
		{{Text: "💰 500 سکه - 80,000 تومان", CallbackData: "buy_500"}},
	}}
}

// RemoveKeyboard clears any reply keyboard on the client.
func RemoveKeyboard() RemoveKeyboardMarkup {
	return RemoveKeyboardMarkup{RemoveKeyboard: true}
}
