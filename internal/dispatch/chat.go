package dispatch

import (
	"context"
	"fmt"

	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/notify"
	"github.com/hamdam-bot/hamdam/internal/onboarding"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

// reportReason is recorded on every in-chat report; the bot offers no
// free-text reason entry.
const reportReason = "User reported during chat"

// forward relays a message to the user's partner, or silently drops it when
// there is no session. A delivery failure bounces an error back to the
// sender instead of failing the webhook.
func (d *Dispatcher) forward(ctx context.Context, userID int64, in onboarding.Input) error {
	partnerID, _, err := d.engine.Sessions().Get(ctx, userID)
	if svcErr.Is(err, svcErr.ErrNotInChat) {
		return nil
	}
	if err != nil {
		return err
	}

	if in.PhotoRef != "" {
		err = d.notifier.SendPhoto(ctx, partnerID, in.PhotoRef, in.Text, nil)
	} else {
		err = d.notifier.SendText(ctx, partnerID, in.Text, nil)
	}
	if err != nil {
		d.appCtx.Logger.Debug("forward failed", "from", userID, "to", partnerID, "err", err)
		return d.send(ctx, userID, "❌ خطا در ارسال پیام. مخاطب ممکن است ربات را بلاک کرده باشد.", nil)
	}
	return nil
}

func (d *Dispatcher) endChat(ctx context.Context, userID int64) error {
	partnerID, err := d.engine.EndSession(ctx, userID)
	if svcErr.Is(err, svcErr.ErrNotInChat) {
		return d.send(ctx, userID, svcErr.UserMessage(err), telegram.MainKeyboard())
	}
	if err != nil {
		return err
	}

	d.sendQuiet(ctx, partnerID,
		"👋 مخاطب چت را ترک کرد.\n\nبرای یافتن مخاطب جدید از منوی اصلی استفاده کنید.",
		telegram.MainKeyboard())
	return d.send(ctx, userID,
		"👋 چت به پایان رسید.\n\nبرای یافتن مخاطب جدید از منوی اصلی استفاده کنید.",
		telegram.MainKeyboard())
}

// partnerProfile shows the current partner's profile card.
func (d *Dispatcher) partnerProfile(ctx context.Context, userID int64) error {
	partnerID, _, err := d.engine.Sessions().Get(ctx, userID)
	if svcErr.Is(err, svcErr.ErrNotInChat) {
		return d.send(ctx, userID, svcErr.UserMessage(err), telegram.MainKeyboard())
	}
	if err != nil {
		return err
	}

	partner, err := d.users.Get(ctx, partnerID)
	if err != nil {
		return d.send(ctx, userID, "❌ خطا در دریافت اطلاعات مخاطب.", nil)
	}

	caption := fmt.Sprintf(
		"👤 <b>پروفایل مخاطب</b>\n\n📝 نام: %s\n🚻 جنسیت: %s\n📍 موقعیت: %s، %s\n🎂 سن: %d",
		partner.Name, telegram.GenderLabel(partner.Gender), partner.City, partner.Province, partner.Age,
	)
	return d.notifier.SendPhoto(ctx, userID, partner.ProfilePic, caption,
		&notify.SendOpts{Keyboard: telegram.ChatKeyboard()})
}

// report files a report against the partner and ends the chat, then raises
// the admin notice with how many reports the reported user has collected.
func (d *Dispatcher) report(ctx context.Context, userID int64) error {
	partnerID, err := d.engine.Report(ctx, userID, reportReason)
	if svcErr.Is(err, svcErr.ErrNotInChat) {
		return d.send(ctx, userID, svcErr.UserMessage(err), telegram.MainKeyboard())
	}
	if err != nil {
		return err
	}

	d.notifyAdmin(ctx, userID, partnerID)

	return d.send(ctx, userID,
		"✅ گزارش شما ثبت شد. متشکریم.\n\nچت به پایان رسید.",
		telegram.MainKeyboard())
}

func (d *Dispatcher) notifyAdmin(ctx context.Context, reporterID, reportedID int64) {
	if d.cfg.App.AdminID == 0 {
		return
	}

	total, err := d.engine.ReportedCount(ctx, reportedID)
	if err != nil {
		d.appCtx.Logger.Warn("report count lookup failed", "reported", reportedID, "err", err)
	}

	reporterName, reportedName := d.displayName(ctx, reporterID), d.displayName(ctx, reportedID)
	msg := fmt.Sprintf(
		"⚠️ گزارش جدید\n\nگزارش‌دهنده: %s (%d)\nگزارش‌شده: %s (%d)\nمجموع گزارش‌ها علیه این کاربر: %d",
		reporterName, reporterID, reportedName, reportedID, total,
	)
	d.sendQuiet(ctx, d.cfg.App.AdminID, msg, nil)
}

func (d *Dispatcher) displayName(ctx context.Context, userID int64) string {
	if u, err := d.users.Get(ctx, userID); err == nil {
		return u.Name
	}
	return "?"
}
