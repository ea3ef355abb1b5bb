package match

import (
	"context"
	"errors"
	"time"

	"github.com/hamdam-bot/hamdam/internal/app"
	"github.com/hamdam-bot/hamdam/internal/db"
	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/fsm"
	"github.com/hamdam-bot/hamdam/internal/repository"
)

// ChatCost is what each side pays, in coins, when a pair forms.
const ChatCost = 2

type Outcome int

const (
	// OutcomeQueued: no compatible partner was waiting; the requester now is.
	OutcomeQueued Outcome = iota
	// OutcomeMatched: a session was created with PartnerID.
	OutcomeMatched
)

type Result struct {
	Outcome   Outcome
	PartnerID int64
}

// Engine answers "pair this user now, or enqueue them". It is the only
// writer of waiting entries and sessions, and the only spender of coins.
type Engine struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	queue    *WaitingQueue
	sessions *SessionTable
	states   *fsm.Store
	reports  *repository.ReportRepository
	archive  *repository.ChatArchiveRepository
}

func NewEngine(appCtx *app.AppContext) *Engine {
	return &Engine{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.KV),
		queue:    NewWaitingQueue(appCtx.KV),
		sessions: NewSessionTable(appCtx.KV),
		states:   fsm.NewStore(appCtx.KV),
		reports:  repository.NewReportRepository(appCtx.DB),
		archive:  repository.NewChatArchiveRepository(appCtx.DB),
	}
}

// Queue exposes the waiting queue for callers that only need withdraw.
func (e *Engine) Queue() *WaitingQueue { return e.queue }

// Sessions exposes the session table for partner lookups (message
// forwarding, partner profile).
func (e *Engine) Sessions() *SessionTable { return e.sessions }

// RequestMatch tries to pair the user with someone of the desired gender.
//
// Behavior:
//   - Preconditions: the user exists, is not already in a chat, and holds at
//     least ChatCost coins. Violations fail with ErrAlreadyInChat or
//     ErrInsufficientCoins and change nothing.
//   - Any stale waiting entry of the requester is withdrawn first, so a user
//     is never simultaneously waiting and in a chat.
//   - A compatible waiting partner is claimed atomically (see claimScript)
//     and the session is created atomically (see createSessionScript). A
//     claimed candidate who turns out to already be in a chat is a stale
//     entry and is dropped, and the scan continues.
//   - On a pair: both sides pay ChatCost and both FSM states are cleared.
//     The requester's debit is guarded; the partner's balance was checked
//     when they enqueued, so their debit stops at zero if a concurrent
//     credit/spend moved it (best effort, logged).
//   - On a miss: the requester is enqueued with the residency TTL and their
//     FSM state is cleared.
func (e *Engine) RequestMatch(ctx context.Context, userID int64, desiredGender string) (*Result, error) {
	user, err := e.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if inChat, err := e.sessions.InChat(ctx, userID); err != nil {
		return nil, err
	} else if inChat {
		return nil, svcErr.ErrAlreadyInChat
	}

	if user.Coins < ChatCost {
		return nil, svcErr.ErrInsufficientCoins
	}

	if err := e.queue.Withdraw(ctx, userID, user.Gender); err != nil {
		return nil, err
	}

	for {
		partnerID, found, err := e.queue.FindAndClaim(ctx, userID, user.Gender, desiredGender)
		if err != nil {
			return nil, err
		}
		if !found {
			if err := e.queue.Enqueue(ctx, userID, user.Gender, desiredGender); err != nil {
				return nil, err
			}
			if err := e.states.Clear(ctx, userID); err != nil {
				e.appCtx.Logger.Warn("clear state after enqueue failed", "user", userID, "err", err)
			}
			return &Result{Outcome: OutcomeQueued}, nil
		}

		err = e.sessions.Create(ctx, userID, partnerID)
		if errors.Is(err, svcErr.ErrAlreadyInChat) {
			if inChat, chkErr := e.sessions.InChat(ctx, userID); chkErr == nil && inChat {
				// The requester double-fired and the other request won.
				// Give the claimed partner their place back.
				if reqErr := e.queue.Enqueue(ctx, partnerID, desiredGender, user.Gender); reqErr != nil {
					e.appCtx.Logger.Warn("re-enqueue claimed partner failed", "partner", partnerID, "err", reqErr)
				}
				return nil, svcErr.ErrAlreadyInChat
			}
			// The claimed entry was stale: its owner is already chatting.
			e.appCtx.Logger.Debug("dropped stale waiting entry", "partner", partnerID)
			continue
		}
		if err != nil {
			return nil, err
		}

		if _, err := e.users.DebitCoins(ctx, userID, ChatCost); err != nil {
			// Balance moved between the precondition read and the commit.
			// Undo the pairing and put the partner back in line.
			if _, _, endErr := e.sessions.End(ctx, userID); endErr != nil {
				e.appCtx.Logger.Error("rollback session after debit failure", "user", userID, "err", endErr)
			}
			if reqErr := e.queue.Enqueue(ctx, partnerID, desiredGender, user.Gender); reqErr != nil {
				e.appCtx.Logger.Warn("re-enqueue partner after debit failure", "partner", partnerID, "err", reqErr)
			}
			return nil, err
		}
		if bal, err := e.users.DebitUpTo(ctx, partnerID, ChatCost); err != nil {
			e.appCtx.Logger.Warn("partner debit failed", "partner", partnerID, "err", err)
		} else if bal == 0 {
			e.appCtx.Logger.Debug("partner balance drained by debit", "partner", partnerID)
		}

		if err := e.states.Clear(ctx, userID); err != nil {
			e.appCtx.Logger.Warn("clear requester state failed", "user", userID, "err", err)
		}
		if err := e.states.Clear(ctx, partnerID); err != nil {
			e.appCtx.Logger.Warn("clear partner state failed", "user", partnerID, "err", err)
		}

		e.appCtx.Logger.Info("matched", "user", userID, "partner", partnerID)
		return &Result{Outcome: OutcomeMatched, PartnerID: partnerID}, nil
	}
}

// EndSession tears down the caller's chat and returns the former partner so
// the caller can notify them. ErrNotInChat when there is nothing to end.
// The teardown removes both directions together; the archive row is written
// after the fact and is not allowed to fail the teardown.
func (e *Engine) EndSession(ctx context.Context, userID int64) (int64, error) {
	partnerID, startedAt, err := e.sessions.End(ctx, userID)
	if err != nil {
		return 0, err
	}

	e.archiveChat(ctx, userID, partnerID, startedAt, false)
	e.appCtx.Logger.Info("chat ended", "user", userID, "partner", partnerID)
	return partnerID, nil
}

// Report records a report against the caller's current partner and then
// ends the session — reporting always terminates the chat. The report row
// is the point of the operation, so a failure to write it aborts before any
// teardown.
func (e *Engine) Report(ctx context.Context, reporterID int64, reason string) (int64, error) {
	partnerID, _, err := e.sessions.Get(ctx, reporterID)
	if err != nil {
		return 0, err
	}

	if err := e.reports.Create(ctx, reporterID, partnerID, reason); err != nil {
		return 0, err
	}

	endedPartner, startedAt, err := e.sessions.End(ctx, reporterID)
	if errors.Is(err, svcErr.ErrNotInChat) {
		// Partner ended it in between; the report still stands.
		return partnerID, nil
	}
	if err != nil {
		return 0, err
	}

	e.archiveChat(ctx, reporterID, endedPartner, startedAt, true)
	e.appCtx.Logger.Info("chat reported", "reporter", reporterID, "reported", partnerID)
	return partnerID, nil
}

// ReportedCount returns how many reports exist against a user (admin notice).
func (e *Engine) ReportedCount(ctx context.Context, userID int64) (int64, error) {
	return e.reports.CountAgainstUser(ctx, userID)
}

// Withdraw removes the user's waiting entry, if any.
func (e *Engine) Withdraw(ctx context.Context, userID int64) error {
	user, err := e.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	return e.queue.Withdraw(ctx, userID, user.Gender)
}

func (e *Engine) archiveChat(ctx context.Context, endedBy, partnerID int64, startedAt time.Time, reported bool) {
	rec := &db.ChatArchive{
		UserAID:   endedBy,
		UserBID:   partnerID,
		StartedAt: startedAt,
		EndedAt:   time.Now().UTC(),
		EndedBy:   endedBy,
		Reported:  reported,
	}
	if err := e.archive.Create(ctx, rec); err != nil {
		e.appCtx.Logger.Warn("archive chat failed", "user", endedBy, "partner", partnerID, "err", err)
	}
}
