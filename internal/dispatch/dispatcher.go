package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/hamdam-bot/hamdam/internal/app"
	"github.com/hamdam-bot/hamdam/internal/config"
	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/fsm"
	"github.com/hamdam-bot/hamdam/internal/match"
	"github.com/hamdam-bot/hamdam/internal/notify"
	"github.com/hamdam-bot/hamdam/internal/onboarding"
	"github.com/hamdam-bot/hamdam/internal/payment"
	"github.com/hamdam-bot/hamdam/internal/repository"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

// Dispatcher routes each decoded event to the onboarding flow, the match
// engine, session forwarding or a menu action, in that precedence order.
// It owns all user-facing choreography; the engine and flow stay pure.
type Dispatcher struct {
	appCtx   *app.AppContext
	cfg      *config.Config
	users    *repository.UserRepository
	states   *fsm.Store
	engine   *match.Engine
	flow     *onboarding.Flow
	payments *payment.Service
	notifier notify.Notifier
}

func New(appCtx *app.AppContext, cfg *config.Config, engine *match.Engine, flow *onboarding.Flow, payments *payment.Service, notifier notify.Notifier) *Dispatcher {
	return &Dispatcher{
		appCtx:   appCtx,
		cfg:      cfg,
		users:    repository.NewUserRepository(appCtx.KV),
		states:   fsm.NewStore(appCtx.KV),
		engine:   engine,
		flow:     flow,
		payments: payments,
		notifier: notifier,
	}
}

// HandleUpdate processes one inbound update to completion. Errors returned
// here mean the store or another hard dependency failed; everything
// user-recoverable has already been answered in chat.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd *telegram.Update) error {
	switch ev := Decode(upd).(type) {
	case CallbackEvent:
		return d.handleCallback(ctx, ev)
	case TextEvent:
		return d.handleMessage(ctx, ev.UserID, ev.Text, onboarding.Input{Text: ev.Text})
	case PhotoEvent:
		return d.handleMessage(ctx, ev.UserID, "", onboarding.Input{Text: ev.Caption, PhotoRef: ev.ImageRef})
	default:
		return nil
	}
}

func (d *Dispatcher) handleMessage(ctx context.Context, userID int64, text string, in onboarding.Input) error {
	user, err := d.users.Get(ctx, userID)
	if err != nil && !svcErr.Is(err, svcErr.ErrNotFound) {
		return err
	}

	// A banned identity gets the notice and nothing else — no FSM, no
	// matching, no forwarding.
	if user != nil && user.Banned(time.Now()) {
		return d.send(ctx, userID,
			"⛔ حساب شما تا "+user.BannedUntil.Format("2006-01-02")+" مسدود شده است.", nil)
	}

	st, err := d.states.Get(ctx, userID)
	if err != nil {
		return err
	}

	if st.InRegistration() {
		_, err := d.flow.Handle(ctx, userID, st, in)
		return err
	}
	if st != nil && st.Phase == fsm.PhaseSelectGender {
		return d.selectGender(ctx, userID, user, in.Text)
	}

	if user == nil && text != "/start" && !strings.HasPrefix(text, "/start ") && text != telegram.BtnRegister {
		return d.send(ctx, userID,
			"👋 خوش آمدید\nبرای استفاده از ربات ابتدا باید ثبت‌نام کنید.",
			telegram.RegisterKeyboard())
	}

	switch {
	case text == "/start" || strings.HasPrefix(text, "/start "):
		return d.start(ctx, userID, user, text)
	case text == telegram.BtnRegister:
		return d.flow.Start(ctx, userID, "")
	case text == telegram.BtnProfile:
		return d.showProfile(ctx, user)
	case text == telegram.BtnReferral:
		return d.showReferralLink(ctx, user)
	case text == telegram.BtnBack:
		return d.send(ctx, userID, "🔙 بازگشت به منوی اصلی", telegram.MainKeyboard())
	case text == telegram.BtnStartMatch:
		return d.startMatch(ctx, userID)
	case text == telegram.BtnEndChat:
		return d.endChat(ctx, userID)
	case text == telegram.BtnPartnerProfile:
		return d.partnerProfile(ctx, userID)
	case text == telegram.BtnReport:
		return d.report(ctx, userID)
	case text == telegram.BtnBuyCoins:
		return d.coinsMenu(ctx, user)
	default:
		return d.forward(ctx, userID, in)
	}
}

// start greets a returning user, or enters registration carrying any
// ref_<id> deep-link payload.
func (d *Dispatcher) start(ctx context.Context, userID int64, user *repository.User, text string) error {
	if user != nil {
		return d.send(ctx, userID, "👋 خوش آمدید!", telegram.MainKeyboard())
	}

	refCode := ""
	if _, payload, ok := strings.Cut(text, " "); ok {
		refCode = strings.TrimSpace(payload)
	}
	return d.flow.Start(ctx, userID, refCode)
}

// send is the everything-after-routing shorthand for a keyboarded reply.
func (d *Dispatcher) send(ctx context.Context, userID int64, text string, keyboard any) error {
	opts := &notify.SendOpts{}
	if keyboard != nil {
		opts.Keyboard = keyboard
	}
	return d.notifier.SendText(ctx, userID, text, opts)
}

// sendQuiet delivers to a peer: failures are logged, never propagated.
func (d *Dispatcher) sendQuiet(ctx context.Context, userID int64, text string, keyboard any) {
	if err := d.send(ctx, userID, text, keyboard); err != nil {
		d.appCtx.Logger.Debug("peer notice undelivered", "user", userID, "err", err)
	}
}
