// internal/errors/errors.go
package errors

import (
	"errors"
)

// Domain sentinels. Handlers compare with errors.Is and map to user-facing
// replies via UserMessage, keeping the engine and flow layers free of UI text.
var (
	// ErrInsufficientCoins: a match request with a balance below the chat cost.
	ErrInsufficientCoins = errors.New("insufficient coins")

	// ErrAlreadyInChat: a match request from a user who already has a partner.
	ErrAlreadyInChat = errors.New("already in an active chat")

	// ErrNotInChat: a chat-scoped action (end, report, partner profile) from a
	// user with no active session.
	ErrNotInChat = errors.New("not in an active chat")

	// ErrNotFound: a referenced user, payment, or session record is absent.
	ErrNotFound = errors.New("record not found")

	// ErrPaymentResolved: a verification callback for a payment whose status
	// already left pending. Treated as a no-op by callers.
	ErrPaymentResolved = errors.New("payment already resolved")

	// ErrGatewayRejected: the payment gateway did not confirm the charge.
	ErrGatewayRejected = errors.New("gateway did not confirm payment")
)

// UserMessage maps a domain error to the Persian reply shown to the user.
// Unknown errors get a generic failure line; infrastructure details never
// reach the chat.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientCoins):
		return "❌ سکه کافی ندارید.\n\n💰 برای هر چت 2 سکه نیاز است.\nاز منوی اصلی می‌توانید سکه خریداری کنید."
	case errors.Is(err, ErrAlreadyInChat):
		return "❌ شما در حال حاضر در چت هستید."
	case errors.Is(err, ErrNotInChat):
		return "❌ شما در چت نیستید."
	case errors.Is(err, ErrNotFound):
		return "❌ کاربر یافت نشد. لطفاً ابتدا ثبت‌نام کنید."
	case errors.Is(err, ErrGatewayRejected):
		return "پرداخت تایید نشد"
	case errors.Is(err, ErrPaymentResolved):
		return "پرداخت قبلاً بررسی شده"
	default:
		return "❌ خطایی رخ داد. لطفاً دوباره تلاش کنید."
	}
}

// Is re-exports errors.Is so call sites importing this package under an alias
// don't also need the stdlib package.
func Is(err, target error) bool { return errors.Is(err, target) }
