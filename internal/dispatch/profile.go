package dispatch

import (
	"context"
	"fmt"

	"github.com/hamdam-bot/hamdam/internal/notify"
	"github.com/hamdam-bot/hamdam/internal/onboarding"
	"github.com/hamdam-bot/hamdam/internal/repository"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

func (d *Dispatcher) showProfile(ctx context.Context, user *repository.User) error {
	caption := fmt.Sprintf(
		"👤 <b>پروفایل شما</b>\n\n📝 نام: %s\n🚻 جنسیت: %s\n📍 موقعیت: %s، %s\n🎂 سن: %d\n💰 سکه: %d",
		user.Name, telegram.GenderLabel(user.Gender), user.City, user.Province, user.Age, user.Coins,
	)
	return d.notifier.SendPhoto(ctx, user.TelegramID, user.ProfilePic, caption,
		&notify.SendOpts{Keyboard: telegram.ProfileKeyboard()})
}

// showReferralLink hands the user their personal deep link. Each completed
// registration through it credits the inviter.
func (d *Dispatcher) showReferralLink(ctx context.Context, user *repository.User) error {
	link := fmt.Sprintf("https://t.me/%s?start=%s", d.cfg.App.BotUsername, user.ReferralCode)
	msg := fmt.Sprintf(
		"🎁 <b>دعوت دوستان</b>\n\nبا هر دعوت موفق %d سکه هدیه بگیرید!\n\nلینک دعوت شما:\n%s",
		onboarding.ReferralBonus, link,
	)
	return d.send(ctx, user.TelegramID, msg, telegram.MainKeyboard())
}
