package payment

import (
	"context"
	"fmt"

	"github.com/hamdam-bot/hamdam/internal/app"
	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/notify"
	"github.com/hamdam-bot/hamdam/internal/repository"
)

// Package is a purchasable coin bundle, keyed by its callback payload.
type Package struct {
	Coins  int64
	Amount int64 // toman
}

// Packages maps the inline-keyboard callback data to its bundle.
var Packages = map[string]Package{
	"buy_50":  {Coins: 50, Amount: 10000},
	"buy_100": {Coins: 100, Amount: 18000},
	"buy_200": {Coins: 200, Amount: 35000},
	"buy_500": {Coins: 500, Amount: 80000},
}

// Service runs the two-phase top-up workflow: create a pending payment
// against a gateway charge, then settle it exactly once when the gateway
// calls back.
type Service struct {
	appCtx   *app.AppContext
	payments *repository.PaymentRepository
	users    *repository.UserRepository
	gateway  Gateway
	notifier notify.Notifier
}

func NewService(appCtx *app.AppContext, gateway Gateway, notifier notify.Notifier) *Service {
	return &Service{
		appCtx:   appCtx,
		payments: repository.NewPaymentRepository(appCtx.KV),
		users:    repository.NewUserRepository(appCtx.KV),
		gateway:  gateway,
		notifier: notifier,
	}
}

// CreateCharge starts a purchase of the given package for the user and
// returns the payment URL. The pending record is keyed by the authority the
// gateway will echo back on its callback, which is what lets Verify find it.
func (s *Service) CreateCharge(ctx context.Context, userID int64, packageKey string) (*Package, string, error) {
	pkg, ok := Packages[packageKey]
	if !ok {
		return nil, "", svcErr.ErrNotFound
	}

	authority, payURL, err := s.gateway.CreateCharge(ctx, pkg.Amount, "خرید سکه ربات تلگرام")
	if err != nil {
		return nil, "", fmt.Errorf("create charge: %w", err)
	}

	p := &repository.Payment{
		UserID:    userID,
		Amount:    pkg.Amount,
		Coins:     pkg.Coins,
		Authority: authority,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, "", err
	}

	s.appCtx.Logger.Info("payment created", "user", userID, "authority", authority, "coins", pkg.Coins)
	return &pkg, payURL, nil
}

// Verify settles a gateway callback.
//
// Behavior:
//   - Unknown authority → ErrNotFound.
//   - Already-settled payment → ErrPaymentResolved; repeated callbacks are
//     no-ops and never credit twice.
//   - gatewayOK=false (user cancelled / gateway says failed) or an
//     unconfirmed charge → the payment is marked failed, ErrGatewayRejected.
//   - Otherwise the pending→success transition is taken atomically and the
//     coins are credited exactly once. The user notice is best effort.
func (s *Service) Verify(ctx context.Context, authority string, gatewayOK bool) error {
	p, err := s.payments.Get(ctx, authority)
	if err != nil {
		return err
	}
	if p.Status != repository.PaymentPending {
		return svcErr.ErrPaymentResolved
	}

	if !gatewayOK {
		if _, err := s.payments.Resolve(ctx, authority, repository.PaymentFailed); err != nil {
			return err
		}
		return svcErr.ErrGatewayRejected
	}

	confirmed, err := s.gateway.VerifyCharge(ctx, authority, p.Amount)
	if err != nil {
		return fmt.Errorf("verify charge: %w", err)
	}
	if !confirmed {
		if _, err := s.payments.Resolve(ctx, authority, repository.PaymentFailed); err != nil {
			return err
		}
		return svcErr.ErrGatewayRejected
	}

	won, err := s.payments.Resolve(ctx, authority, repository.PaymentSuccess)
	if err != nil {
		return err
	}
	if !won {
		// Lost a settle race with a duplicate callback.
		return svcErr.ErrPaymentResolved
	}

	if _, err := s.users.AddCoins(ctx, p.UserID, p.Coins); err != nil {
		s.appCtx.Logger.Error("credit after payment failed", "user", p.UserID, "authority", authority, "err", err)
		return err
	}

	s.appCtx.Logger.Info("payment settled", "user", p.UserID, "authority", authority, "coins", p.Coins)

	msg := fmt.Sprintf("✅ پرداخت شما با موفقیت انجام شد!\n\n💰 %d سکه به حساب شما اضافه شد.", p.Coins)
	if err := s.notifier.SendText(ctx, p.UserID, msg, nil); err != nil {
		s.appCtx.Logger.Debug("payment notice undelivered", "user", p.UserID, "err", err)
	}
	return nil
}
