package dispatch

import "github.com/hamdam-bot/hamdam/internal/telegram"

// Events are the decoded inbound actions the dispatcher routes. The wire
// format stops at Decode; everything past it works on these.

type Event interface{ isEvent() }

type TextEvent struct {
	UserID int64
	Text   string
}

type PhotoEvent struct {
	UserID   int64
	ImageRef string
	Caption  string
}

type CallbackEvent struct {
	UserID  int64
	QueryID string
	Payload string
}

func (TextEvent) isEvent()     {}
func (PhotoEvent) isEvent()    {}
func (CallbackEvent) isEvent() {}

// Decode maps a Telegram update onto an event, or nil for update kinds this
// bot ignores.
func Decode(upd *telegram.Update) Event {
	switch {
	case upd == nil:
		return nil
	case upd.CallbackQuery != nil:
		return CallbackEvent{
			UserID:  upd.CallbackQuery.From.ID,
			QueryID: upd.CallbackQuery.ID,
			Payload: upd.CallbackQuery.Data,
		}
	case upd.Message != nil:
		if ref := upd.Message.LargestPhoto(); ref != "" {
			return PhotoEvent{
				UserID:   upd.Message.From.ID,
				ImageRef: ref,
				Caption:  upd.Message.Caption,
			}
		}
		return TextEvent{
			UserID: upd.Message.From.ID,
			Text:   upd.Message.Text,
		}
	default:
		return nil
	}
}
