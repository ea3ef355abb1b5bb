package payment

import "context"

// Gateway is the external payment-provider capability. CreateCharge returns
// the opaque authority token the provider will echo back on its callback,
// plus the URL the user pays at. VerifyCharge confirms a charge after the
// callback arrives.
type Gateway interface {
	CreateCharge(ctx context.Context, amount int64, description string) (authority, payURL string, err error)
	VerifyCharge(ctx context.Context, authority string, amount int64) (bool, error)
}
