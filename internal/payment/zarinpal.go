package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hamdam-bot/hamdam/internal/config"
)

const zarinpalAPIBase = "https://api.zarinpal.com/pg/v4/payment"

// ZarinpalClient talks to the Zarinpal v4 payment API.
type ZarinpalClient struct {
	merchantID  string
	callbackURL string
	apiBase     string
	http        *http.Client
}

var _ Gateway = (*ZarinpalClient)(nil)

func NewZarinpalClient(cfg *config.Config) *ZarinpalClient {
	return &ZarinpalClient{
		merchantID:  cfg.Zarinpal.MerchantID,
		callbackURL: cfg.Zarinpal.CallbackURL,
		apiBase:     zarinpalAPIBase,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

type zarinpalResult struct {
	Data struct {
		Code      int    `json:"code"`
		Authority string `json:"authority"`
	} `json:"data"`
}

func (z *ZarinpalClient) post(ctx context.Context, path string, payload any) (*zarinpalResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.apiBase+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := z.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zarinpal %s: %w", path, err)
	}
	defer resp.Body.Close()

	var out zarinpalResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("zarinpal %s: decode: %w", path, err)
	}
	return &out, nil
}

// CreateCharge requests a payment and returns the gateway authority plus the
// StartPay URL. The order_id ties our side of the ledger to the request.
func (z *ZarinpalClient) CreateCharge(ctx context.Context, amount int64, description string) (string, string, error) {
	payload := map[string]any{
		"merchant_id":  z.merchantID,
		"amount":       amount,
		"description":  description,
		"callback_url": z.callbackURL,
		"metadata": map[string]any{
			"order_id": uuid.NewString(),
		},
	}

	out, err := z.post(ctx, "/request.json", payload)
	if err != nil {
		return "", "", err
	}
	if out.Data.Code != 100 || out.Data.Authority == "" {
		return "", "", fmt.Errorf("zarinpal request rejected: code %d", out.Data.Code)
	}

	payURL := "https://www.zarinpal.com/pg/StartPay/" + out.Data.Authority
	return out.Data.Authority, payURL, nil
}

// VerifyCharge confirms a charge. Code 100 is a fresh confirmation; 101
// means the charge was already verified, which still counts as confirmed.
func (z *ZarinpalClient) VerifyCharge(ctx context.Context, authority string, amount int64) (bool, error) {
	payload := map[string]any{
		"merchant_id": z.merchantID,
		"authority":   authority,
		"amount":      amount,
	}

	out, err := z.post(ctx, "/verify.json", payload)
	if err != nil {
		return false, err
	}
	return out.Data.Code == 100 || out.Data.Code == 101, nil
}
