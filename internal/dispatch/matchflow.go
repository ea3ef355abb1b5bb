package dispatch

import (
	"context"

	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/fsm"
	"github.com/hamdam-bot/hamdam/internal/match"
	"github.com/hamdam-bot/hamdam/internal/repository"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

// startMatch opens the one-step gender-selection flow, unless the user is
// already chatting.
func (d *Dispatcher) startMatch(ctx context.Context, userID int64) error {
	if inChat, err := d.engine.Sessions().InChat(ctx, userID); err != nil {
		return err
	} else if inChat {
		return d.send(ctx, userID, svcErr.UserMessage(svcErr.ErrAlreadyInChat), telegram.ChatKeyboard())
	}

	if err := d.states.Set(ctx, userID, fsm.PhaseSelectGender, nil); err != nil {
		return err
	}
	return d.send(ctx, userID, "👫 میخوای به کی وصل شی ؟", telegram.GenderKeyboard())
}

// selectGender consumes the gender choice and hands it to the engine. The
// selection state clears no matter how the request comes out: this flow has
// exactly one transition.
func (d *Dispatcher) selectGender(ctx context.Context, userID int64, user *repository.User, label string) error {
	gender, ok := telegram.GenderFromLabel(label)
	if !ok {
		// Anything but the two buttons: stay in the flow until it expires.
		return nil
	}

	if user == nil {
		if err := d.states.Clear(ctx, userID); err != nil {
			return err
		}
		return d.send(ctx, userID, svcErr.UserMessage(svcErr.ErrNotFound), telegram.MainKeyboard())
	}

	result, err := d.engine.RequestMatch(ctx, userID, gender)
	if err != nil {
		// The engine clears the state on its success paths; mirror that on
		// denials so the user lands back in the menu.
		if clearErr := d.states.Clear(ctx, userID); clearErr != nil {
			d.appCtx.Logger.Warn("clear selection state failed", "user", userID, "err", clearErr)
		}
		switch {
		case svcErr.Is(err, svcErr.ErrAlreadyInChat):
			return d.send(ctx, userID, svcErr.UserMessage(err), telegram.ChatKeyboard())
		case svcErr.Is(err, svcErr.ErrInsufficientCoins), svcErr.Is(err, svcErr.ErrNotFound):
			return d.send(ctx, userID, svcErr.UserMessage(err), telegram.MainKeyboard())
		default:
			return err
		}
	}

	if result.Outcome == match.OutcomeQueued {
		return d.send(ctx, userID,
			"⏳ در حال جستجوی مخاطب...\n\nلطفاً صبر کنید تا مخاطبی پیدا شود.",
			telegram.MainKeyboard())
	}

	const found = "✅ مخاطب پیدا شد!\n\n💬 می‌توانید شروع به چت کنید."
	d.sendQuiet(ctx, result.PartnerID, found, telegram.ChatKeyboard())
	return d.send(ctx, userID, found, telegram.ChatKeyboard())
}
