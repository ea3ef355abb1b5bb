package server_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hamdam-bot/hamdam/internal/app"
	"github.com/hamdam-bot/hamdam/internal/config"
	"github.com/hamdam-bot/hamdam/internal/db"
	"github.com/hamdam-bot/hamdam/internal/dispatch"
	"github.com/hamdam-bot/hamdam/internal/fsm"
	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/hamdam-bot/hamdam/internal/match"
	"github.com/hamdam-bot/hamdam/internal/notify"
	"github.com/hamdam-bot/hamdam/internal/onboarding"
	"github.com/hamdam-bot/hamdam/internal/payment"
	"github.com/hamdam-bot/hamdam/internal/repository"
	"github.com/hamdam-bot/hamdam/internal/server"
)

type nullNotifier struct{}

func (nullNotifier) SendText(context.Context, int64, string, *notify.SendOpts) error { return nil }
func (nullNotifier) SendPhoto(context.Context, int64, string, string, *notify.SendOpts) error {
	return nil
}
func (nullNotifier) AnswerCallback(context.Context, string, string, bool) error { return nil }

type okGateway struct{}

func (okGateway) CreateCharge(context.Context, int64, string) (string, string, error) {
	return "A001", "https://pay.example/A001", nil
}

func (okGateway) VerifyCharge(context.Context, string, int64) (bool, error) { return true, nil }

func setupRouter(t *testing.T) (http.Handler, *app.AppContext, *payment.Service) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, dbase.AutoMigrate(&db.Report{}, &db.ChatArchive{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	store := kv.NewStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(dbase, store, logger)

	cfg := &config.Config{}
	cfg.App.BotUsername = "hamdam_bot"

	engine := match.NewEngine(appCtx)
	flow := onboarding.NewFlow(appCtx, nullNotifier{})
	payments := payment.NewService(appCtx, okGateway{}, nullNotifier{})
	dispatcher := dispatch.New(appCtx, cfg, engine, flow, payments, nullNotifier{})

	return server.NewRouter(dispatcher, payments), appCtx, payments
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestWebhookProcessesUpdate(t *testing.T) {
	router, appCtx, _ := setupRouter(t)

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":42},"chat":{"id":42,"type":"private"},"text":"/start"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)

	// The update actually reached the dispatcher: user 42 entered
	// registration.
	st, err := fsm.NewStore(appCtx.KV).Get(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, fsm.PhaseRegisterName, st.Phase)
}

func TestWebhookRejectsGarbage(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentCallbackSettles(t *testing.T) {
	ctx := context.Background()
	router, appCtx, payments := setupRouter(t)

	users := repository.NewUserRepository(appCtx.KV)
	require.NoError(t, users.Create(ctx, &repository.User{
		TelegramID: 42, Name: "علی", Gender: repository.GenderMale, Coins: 0,
	}))
	_, _, err := payments.CreateCharge(ctx, 42, "buy_100")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/callback?Authority=A001&Status=OK", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	u, err := users.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.Coins)

	// The duplicate callback answers politely and credits nothing.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/callback?Authority=A001&Status=OK", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	u, err = users.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.Coins)
}

func TestPaymentCallbackUnknownAuthority(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/callback?Authority=nope&Status=OK", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentCallbackMissingAuthority(t *testing.T) {
	router, _, _ := setupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payment/callback", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
