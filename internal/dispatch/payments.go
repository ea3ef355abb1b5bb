package dispatch

import (
	"context"
	"fmt"
	"strings"

	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/repository"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

func (d *Dispatcher) coinsMenu(ctx context.Context, user *repository.User) error {
	msg := fmt.Sprintf(
		"💰 <b>خرید سکه</b>\n\nموجودی فعلی: %d سکه\n\nیکی از بسته‌های زیر را انتخاب کنید:",
		user.Coins,
	)
	return d.send(ctx, user.TelegramID, msg, telegram.CoinsKeyboard())
}

// handleCallback serves the inline buy buttons. Every path answers the
// callback query so the client's spinner stops.
func (d *Dispatcher) handleCallback(ctx context.Context, ev CallbackEvent) error {
	if !strings.HasPrefix(ev.Payload, "buy_") {
		return d.notifier.AnswerCallback(ctx, ev.QueryID, "", false)
	}

	pkg, payURL, err := d.payments.CreateCharge(ctx, ev.UserID, ev.Payload)
	if svcErr.Is(err, svcErr.ErrNotFound) {
		return d.notifier.AnswerCallback(ctx, ev.QueryID, "بسته نامعتبر", true)
	}
	if err != nil {
		d.appCtx.Logger.Error("create charge failed", "user", ev.UserID, "package", ev.Payload, "err", err)
		return d.notifier.AnswerCallback(ctx, ev.QueryID, "خطا در اتصال به درگاه پرداخت. بعداً دوباره تلاش کنید.", true)
	}

	if err := d.notifier.AnswerCallback(ctx, ev.QueryID, "", false); err != nil {
		d.appCtx.Logger.Debug("answer callback failed", "user", ev.UserID, "err", err)
	}

	msg := fmt.Sprintf(
		"💳 بسته %d سکه — %d تومان\n\nبرای پرداخت روی لینک زیر بزنید:\n%s",
		pkg.Coins, pkg.Amount, payURL,
	)
	return d.send(ctx, ev.UserID, msg, nil)
}
