package dispatch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

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
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

// recordingNotifier captures everything the bot would send.
type recordingNotifier struct {
	texts     map[int64][]string
	photos    map[int64][]string
	callbacks []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{texts: map[int64][]string{}, photos: map[int64][]string{}}
}

func (n *recordingNotifier) SendText(_ context.Context, userID int64, text string, _ *notify.SendOpts) error {
	n.texts[userID] = append(n.texts[userID], text)
	return nil
}

func (n *recordingNotifier) SendPhoto(_ context.Context, userID int64, photoRef, caption string, _ *notify.SendOpts) error {
	n.photos[userID] = append(n.photos[userID], photoRef)
	n.texts[userID] = append(n.texts[userID], caption)
	return nil
}

func (n *recordingNotifier) AnswerCallback(_ context.Context, queryID, _ string, _ bool) error {
	n.callbacks = append(n.callbacks, queryID)
	return nil
}

func (n *recordingNotifier) lastText(userID int64) string {
	msgs := n.texts[userID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

type fixture struct {
	dispatcher *dispatch.Dispatcher
	appCtx     *app.AppContext
	engine     *match.Engine
	notifier   *recordingNotifier
}

type stubGateway struct{}

func (stubGateway) CreateCharge(context.Context, int64, string) (string, string, error) {
	return "A001", "https://pay.example/A001", nil
}

func (stubGateway) VerifyCharge(context.Context, string, int64) (bool, error) {
	return true, nil
}

func setupDispatcher(t *testing.T) *fixture {
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
	cfg.App.AdminID = 555
	cfg.App.BotUsername = "hamdam_bot"

	notifier := newRecordingNotifier()
	engine := match.NewEngine(appCtx)
	flow := onboarding.NewFlow(appCtx, notifier)
	payments := payment.NewService(appCtx, stubGateway{}, notifier)

	return &fixture{
		dispatcher: dispatch.New(appCtx, cfg, engine, flow, payments, notifier),
		appCtx:     appCtx,
		engine:     engine,
		notifier:   notifier,
	}
}

func (f *fixture) seedUser(t *testing.T, telegramID int64, gender string, coins int64) {
	t.Helper()
	require.NoError(t, repository.NewUserRepository(f.appCtx.KV).Create(context.Background(), &repository.User{
		TelegramID: telegramID, Name: fmt.Sprintf("user%d", telegramID),
		Gender: gender, Province: "تهران", City: "تهران", Age: 25,
		ProfilePic: "photo", Coins: coins,
	}))
}

func textUpdate(userID int64, text string) *telegram.Update {
	return &telegram.Update{Message: &telegram.Message{
		From: telegram.UserRef{ID: userID},
		Chat: telegram.Chat{ID: userID, Type: "private"},
		Text: text,
	}}
}

func photoUpdate(userID int64, fileID string) *telegram.Update {
	return &telegram.Update{Message: &telegram.Message{
		From:  telegram.UserRef{ID: userID},
		Chat:  telegram.Chat{ID: userID, Type: "private"},
		Photo: []telegram.PhotoSize{{FileID: fileID}},
	}}
}

func TestUnregisteredUserIsPromptedToRegister(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(42, "سلام")))
	assert.Contains(t, f.notifier.lastText(42), "ثبت‌نام")
}

func TestStartEntersRegistration(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(42, "/start")))

	st, err := fsm.NewStore(f.appCtx.KV).Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, fsm.PhaseRegisterName, st.Phase)
}

func TestStartDeepLinkCarriesReferral(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 7, repository.GenderFemale, 0)

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(42, "/start ref_7")))

	// Walk the whole flow; the inviter gets paid at the end.
	for _, text := range []string{"علی", "پسر", "تهران", "تهران", "25"} {
		require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(42, text)))
	}
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, photoUpdate(42, "photo-1")))

	inviter, err := repository.NewUserRepository(f.appCtx.KV).Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(onboarding.ReferralBonus), inviter.Coins)
}

func TestBannedUserGetsNoticeOnly(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 42, repository.GenderMale, 10)
	require.NoError(t, repository.NewUserRepository(f.appCtx.KV).SetBannedUntil(ctx, 42, time.Now().Add(24*time.Hour)))

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(42, telegram.BtnStartMatch)))

	assert.Contains(t, f.notifier.lastText(42), "مسدود")

	st, err := fsm.NewStore(f.appCtx.KV).Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, st, "no flow was entered")
}

func TestMatchFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 1, repository.GenderMale, 10)
	f.seedUser(t, 2, repository.GenderFemale, 10)

	// User 1 asks and waits.
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnStartMatch)))
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnGenderFemale)))
	assert.Contains(t, f.notifier.lastText(1), "در حال جستجو")

	// User 2 asks and pairs with user 1; both hear about it.
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(2, telegram.BtnStartMatch)))
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(2, telegram.BtnGenderMale)))
	assert.Contains(t, f.notifier.lastText(1), "مخاطب پیدا شد")
	assert.Contains(t, f.notifier.lastText(2), "مخاطب پیدا شد")

	// Plain text now forwards to the partner.
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, "سلام!")))
	assert.Equal(t, "سلام!", f.notifier.lastText(2))

	// Photos forward too.
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, photoUpdate(2, "cat.jpg")))
	assert.Contains(t, f.notifier.photos[1], "cat.jpg")

	// Ending tells both sides.
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnEndChat)))
	assert.Contains(t, f.notifier.lastText(1), "چت به پایان رسید")
	assert.Contains(t, f.notifier.lastText(2), "مخاطب چت را ترک کرد")
}

func TestSelectGenderIgnoresFreeText(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 1, repository.GenderMale, 10)

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnStartMatch)))
	sent := len(f.notifier.texts[1])

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, "هرچی")))
	assert.Len(t, f.notifier.texts[1], sent, "free text in the selection flow is dropped")

	st, err := fsm.NewStore(f.appCtx.KV).Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, fsm.PhaseSelectGender, st.Phase)
}

func TestMatchWithoutCoins(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 1, repository.GenderMale, 0)

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnStartMatch)))
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnGenderFemale)))

	assert.Contains(t, f.notifier.lastText(1), "سکه کافی")

	st, err := fsm.NewStore(f.appCtx.KV).Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, st, "denied request still leaves the selection flow")
}

func TestReportEndsChatAndNotifiesAdmin(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 1, repository.GenderMale, 10)
	f.seedUser(t, 2, repository.GenderFemale, 10)
	require.NoError(t, f.engine.Sessions().Create(ctx, 1, 2))

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnReport)))

	assert.Contains(t, f.notifier.lastText(1), "گزارش شما ثبت شد")

	adminMsgs := f.notifier.texts[555]
	require.NotEmpty(t, adminMsgs, "admin hears about the report")
	assert.Contains(t, adminMsgs[len(adminMsgs)-1], "گزارش جدید")

	var reports []db.Report
	require.NoError(t, f.appCtx.DB.Find(&reports).Error)
	require.Len(t, reports, 1)
	assert.Equal(t, int64(2), reports[0].ReportedID)
}

func TestPartnerProfileDuringChat(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 1, repository.GenderMale, 10)
	f.seedUser(t, 2, repository.GenderFemale, 10)
	require.NoError(t, f.engine.Sessions().Create(ctx, 1, 2))

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(1, telegram.BtnPartnerProfile)))

	assert.Contains(t, f.notifier.photos[1], "photo")
	assert.Contains(t, f.notifier.lastText(1), "user2")
}

func TestReferralLink(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 42, repository.GenderMale, 10)

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(42, telegram.BtnReferral)))

	last := f.notifier.lastText(42)
	assert.Contains(t, last, "https://t.me/hamdam_bot?start=ref_42")
}

func TestBuyFlowSendsPayLink(t *testing.T) {
	ctx := context.Background()
	f := setupDispatcher(t)
	f.seedUser(t, 42, repository.GenderMale, 10)

	require.NoError(t, f.dispatcher.HandleUpdate(ctx, textUpdate(42, telegram.BtnBuyCoins)))
	assert.Contains(t, f.notifier.lastText(42), "خرید سکه")

	upd := &telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb1",
		From: telegram.UserRef{ID: 42},
		Data: "buy_100",
	}}
	require.NoError(t, f.dispatcher.HandleUpdate(ctx, upd))

	assert.Contains(t, f.notifier.callbacks, "cb1")
	assert.True(t, strings.Contains(f.notifier.lastText(42), "https://pay.example/A001"))
}
