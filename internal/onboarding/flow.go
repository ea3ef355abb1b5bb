package onboarding

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hamdam-bot/hamdam/internal/app"
	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/fsm"
	"github.com/hamdam-bot/hamdam/internal/notify"
	"github.com/hamdam-bot/hamdam/internal/repository"
	"github.com/hamdam-bot/hamdam/internal/telegram"
)

const (
	// StartingCoins is granted to every freshly registered user.
	StartingCoins = 15
	// ReferralBonus is credited to the inviter when their invitee registers.
	ReferralBonus = 10
)

// StepResult says what a registration input did.
type StepResult int

const (
	// StepReprompted: the input failed validation; the phase did not move.
	StepReprompted StepResult = iota
	// StepAdvanced: the field was accepted and the flow moved one step.
	StepAdvanced
	// StepCompleted: the terminal step ran; the user now exists and the
	// flow state is gone.
	StepCompleted
)

// Input is one decoded inbound message, as far as registration cares.
type Input struct {
	Text     string
	PhotoRef string
}

// Flow drives the fixed registration sequence
// name → gender → province → city → age → photo. Each step validates one
// field, merges it into the flow data and advances the phase; bad input
// re-prompts without moving. The terminal step creates the user, settles
// the referral and clears the state.
type Flow struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	referrals *repository.ReferralRepository
	states    *fsm.Store
	notifier  notify.Notifier
}

func NewFlow(appCtx *app.AppContext, notifier notify.Notifier) *Flow {
	return &Flow{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.KV),
		referrals: repository.NewReferralRepository(appCtx.KV),
		states:    fsm.NewStore(appCtx.KV),
		notifier:  notifier,
	}
}

// Start (re)enters registration at the name step. Any prior partial state is
// dropped first, so an explicit restart always begins clean. An inviter id
// parsed from a ref_<id> deep-link payload rides along in the flow data
// until the terminal step.
func (f *Flow) Start(ctx context.Context, userID int64, refCode string) error {
	if err := f.states.Clear(ctx, userID); err != nil {
		return err
	}

	data := map[string]any{}
	if inviterID, ok := parseRefCode(refCode); ok {
		data["ref_id"] = inviterID
	}
	if err := f.states.Set(ctx, userID, fsm.PhaseRegisterName, data); err != nil {
		return err
	}

	return f.notifier.SendText(ctx, userID, "👤 نام خود را وارد کنید:",
		&notify.SendOpts{Keyboard: telegram.RemoveKeyboard()})
}

// Handle feeds one input into the step the state sits at.
func (f *Flow) Handle(ctx context.Context, userID int64, st *fsm.State, in Input) (StepResult, error) {
	if st == nil || !st.InRegistration() {
		return StepReprompted, nil
	}

	switch st.Phase {
	case fsm.PhaseRegisterName:
		return f.nameStep(ctx, userID, st, in)
	case fsm.PhaseRegisterGender:
		return f.genderStep(ctx, userID, st, in)
	case fsm.PhaseRegisterProvince:
		return f.provinceStep(ctx, userID, st, in)
	case fsm.PhaseRegisterCity:
		return f.cityStep(ctx, userID, st, in)
	case fsm.PhaseRegisterAge:
		return f.ageStep(ctx, userID, st, in)
	case fsm.PhaseRegisterPhoto:
		return f.photoStep(ctx, userID, st, in)
	default:
		// Unknown register:* phase — drop the broken flow.
		return StepReprompted, f.states.Clear(ctx, userID)
	}
}

func (f *Flow) nameStep(ctx context.Context, userID int64, st *fsm.State, in Input) (StepResult, error) {
	name := strings.TrimSpace(in.Text)
	if utf8.RuneCountInString(name) < 2 {
		return f.reprompt(ctx, userID, "❌ نام معتبر وارد کنید.", nil)
	}

	st.Data["name"] = name
	if err := f.states.Set(ctx, userID, fsm.PhaseRegisterGender, st.Data); err != nil {
		return StepReprompted, err
	}
	return f.advance(ctx, userID, "🚻 جنسیت خود را انتخاب کنید:", telegram.GenderKeyboard())
}

func (f *Flow) genderStep(ctx context.Context, userID int64, st *fsm.State, in Input) (StepResult, error) {
	gender, ok := telegram.GenderFromLabel(strings.TrimSpace(in.Text))
	if !ok {
		return f.reprompt(ctx, userID, "❌ فقط از دکمه‌ها استفاده کنید.", telegram.GenderKeyboard())
	}

	st.Data["gender"] = gender
	if err := f.states.Set(ctx, userID, fsm.PhaseRegisterProvince, st.Data); err != nil {
		return StepReprompted, err
	}
	return f.advance(ctx, userID, "📍 استان خود را انتخاب کنید:", telegram.ChoiceKeyboard(ProvinceNames))
}

func (f *Flow) provinceStep(ctx context.Context, userID int64, st *fsm.State, in Input) (StepResult, error) {
	province := strings.TrimSpace(in.Text)
	if !ValidProvince(province) {
		return f.reprompt(ctx, userID, "❌ استان را فقط از کیبورد انتخاب کنید.", telegram.ChoiceKeyboard(ProvinceNames))
	}

	st.Data["province"] = province
	if err := f.states.Set(ctx, userID, fsm.PhaseRegisterCity, st.Data); err != nil {
		return StepReprompted, err
	}
	return f.advance(ctx, userID, "🏙️ شهر خود را انتخاب کنید:", telegram.ChoiceKeyboard(Provinces[province]))
}

func (f *Flow) cityStep(ctx context.Context, userID int64, st *fsm.State, in Input) (StepResult, error) {
	province, _ := st.Data["province"].(string)
	city := strings.TrimSpace(in.Text)
	if !ValidCity(province, city) {
		return f.reprompt(ctx, userID, "❌ شهر را فقط از کیبورد انتخاب کنید.", telegram.ChoiceKeyboard(Provinces[province]))
	}

	st.Data["city"] = city
	if err := f.states.Set(ctx, userID, fsm.PhaseRegisterAge, st.Data); err != nil {
		return StepReprompted, err
	}
	return f.advance(ctx, userID, "🎂 سن خود را وارد کنید:", telegram.RemoveKeyboard())
}

func (f *Flow) ageStep(ctx context.Context, userID int64, st *fsm.State, in Input) (StepResult, error) {
	text := strings.TrimSpace(in.Text)
	age, err := strconv.Atoi(text)
	if err != nil {
		return f.reprompt(ctx, userID, "❌ لطفاً سن خود را فقط به صورت عدد وارد کنید.", nil)
	}
	if age <= 14 {
		return f.reprompt(ctx, userID, "❌ سن شما باید بالای ۱۴ سال باشد.", nil)
	}
	if age > 100 {
		return f.reprompt(ctx, userID, "❌ لطفاً سن معتبر وارد کنید.", nil)
	}

	st.Data["age"] = age
	if err := f.states.Set(ctx, userID, fsm.PhaseRegisterPhoto, st.Data); err != nil {
		return StepReprompted, err
	}
	return f.advance(ctx, userID, "🖼️ لطفاً یک عکس پروفایل ارسال کنید:", nil)
}

// photoStep is the terminal step: it creates the user with the starting
// balance, settles the referral if one was captured at flow entry, and
// clears the state. The user-exists check plus the cleared state make a
// duplicate submission a no-op rather than a second record.
func (f *Flow) photoStep(ctx context.Context, userID int64, st *fsm.State, in Input) (StepResult, error) {
	if in.PhotoRef == "" {
		return f.reprompt(ctx, userID, "❌ لطفاً فقط عکس ارسال کنید.", nil)
	}

	if exists, err := f.users.Exists(ctx, userID); err != nil {
		return StepReprompted, err
	} else if exists {
		if err := f.states.Clear(ctx, userID); err != nil {
			return StepReprompted, err
		}
		return StepCompleted, f.notifier.SendText(ctx, userID, "👋 خوش آمدید!",
			&notify.SendOpts{Keyboard: telegram.MainKeyboard()})
	}

	user := &repository.User{
		TelegramID: userID,
		Name:       stringField(st.Data, "name"),
		Gender:     stringField(st.Data, "gender"),
		Province:   stringField(st.Data, "province"),
		City:       stringField(st.Data, "city"),
		Age:        intField(st.Data, "age"),
		ProfilePic: in.PhotoRef,
		Coins:      StartingCoins,
	}
	if err := f.users.Create(ctx, user); err != nil {
		return StepReprompted, err
	}

	f.settleReferral(ctx, user, int64(intField(st.Data, "ref_id")))

	if err := f.states.Clear(ctx, userID); err != nil {
		return StepCompleted, err
	}

	return StepCompleted, f.notifier.SendText(ctx, userID,
		fmt.Sprintf("✅ ثبت‌نام شما با موفقیت انجام شد!\n\n🎁 %d سکه دریافت کردید.", StartingCoins),
		&notify.SendOpts{Keyboard: telegram.MainKeyboard()})
}

// settleReferral credits the inviter when the captured ref id resolves to a
// live user other than the invitee. The inviter notification is best effort.
func (f *Flow) settleReferral(ctx context.Context, invited *repository.User, inviterID int64) {
	if inviterID == 0 || inviterID == invited.TelegramID {
		return
	}

	inviter, err := f.users.Get(ctx, inviterID)
	if svcErr.Is(err, svcErr.ErrNotFound) {
		return
	}
	if err != nil {
		f.appCtx.Logger.Warn("referral inviter lookup failed", "inviter", inviterID, "err", err)
		return
	}

	ref := &repository.Referral{
		InviterID: inviter.TelegramID,
		InvitedID: invited.TelegramID,
		Code:      inviter.ReferralCode,
	}
	if err := f.referrals.Create(ctx, ref); err != nil {
		f.appCtx.Logger.Warn("create referral failed", "inviter", inviterID, "invited", invited.TelegramID, "err", err)
		return
	}
	if _, err := f.users.AddCoins(ctx, inviter.TelegramID, ReferralBonus); err != nil {
		f.appCtx.Logger.Warn("referral credit failed", "inviter", inviterID, "err", err)
		return
	}

	msg := fmt.Sprintf("🎉 کاربر جدیدی از طریق لینک دعوت شما ثبت‌نام کرد!\n\n💰 %d سکه به حساب شما اضافه شد.", ReferralBonus)
	if err := f.notifier.SendText(ctx, inviter.TelegramID, msg, nil); err != nil {
		f.appCtx.Logger.Debug("referral notice undelivered", "inviter", inviterID, "err", err)
	}
}

func (f *Flow) reprompt(ctx context.Context, userID int64, text string, keyboard any) (StepResult, error) {
	opts := &notify.SendOpts{}
	if keyboard != nil {
		opts.Keyboard = keyboard
	}
	return StepReprompted, f.notifier.SendText(ctx, userID, text, opts)
}

func (f *Flow) advance(ctx context.Context, userID int64, prompt string, keyboard any) (StepResult, error) {
	opts := &notify.SendOpts{}
	if keyboard != nil {
		opts.Keyboard = keyboard
	}
	return StepAdvanced, f.notifier.SendText(ctx, userID, prompt, opts)
}

// parseRefCode extracts the inviter's id from a ref_<id> payload.
func parseRefCode(code string) (int64, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(code), "ref_")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// intField tolerates the float64 that JSON round-tripping turns numbers into.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
