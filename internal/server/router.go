package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hamdam-bot/hamdam/internal/dispatch"
	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/logger"
	"github.com/hamdam-bot/hamdam/internal/payment"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

// NewRouter wires the bot's two inbound surfaces: the Telegram webhook and
// the Zarinpal payment callback.
func NewRouter(dispatcher *dispatch.Dispatcher, payments *payment.Service) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", handleHealth)
	r.Post("/webhook", handleWebhook(dispatcher))
	r.Get("/payment/callback", handlePaymentCallback(payments))

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleWebhook always acknowledges with 200 once the body parses: Telegram
// retries non-2xx responses, and redelivering an update we already failed on
// only repeats the failure.
func handleWebhook(dispatcher *dispatch.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var upd telegram.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		if err := dispatcher.HandleUpdate(r.Context(), &upd); err != nil {
			logger.Error("update handling failed", "update_id", upd.UpdateID, "err", err)
		}
		w.WriteHeader(http.StatusOK)
	}
}

// handlePaymentCallback is the browser-facing leg of the Zarinpal flow. The
// gateway redirects the paying user here with Authority and Status query
// params; the response body is what they see in their browser.
func handlePaymentCallback(payments *payment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authority := r.URL.Query().Get("Authority")
		status := r.URL.Query().Get("Status")
		if authority == "" {
			writePlain(w, http.StatusBadRequest, "درخواست نامعتبر.")
			return
		}

		err := payments.Verify(r.Context(), authority, status == "OK")
		switch {
		case err == nil:
			writePlain(w, http.StatusOK, "✅ پرداخت با موفقیت انجام شد. می‌توانید به ربات بازگردید.")
		case svcErr.Is(err, svcErr.ErrPaymentResolved):
			writePlain(w, http.StatusOK, "این پرداخت قبلاً پردازش شده است.")
		case svcErr.Is(err, svcErr.ErrGatewayRejected):
			writePlain(w, http.StatusOK, "❌ پرداخت ناموفق بود یا لغو شد.")
		case svcErr.Is(err, svcErr.ErrNotFound):
			writePlain(w, http.StatusNotFound, "پرداختی با این شناسه یافت نشد.")
		default:
			logger.Error("payment verify failed", "authority", authority, "err", err)
			writePlain(w, http.StatusInternalServerError, "خطای داخلی. لطفاً با پشتیبانی تماس بگیرید.")
		}
	}
}

func writePlain(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}
