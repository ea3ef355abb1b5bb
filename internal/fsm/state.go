package fsm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hamdam-bot/hamdam/internal/kv"
)

// Phases are dotted paths of the form "domain:step".
const (
	PhaseRegisterName     = "register:name"
	PhaseRegisterGender   = "register:gender"
	PhaseRegisterProvince = "register:province"
	PhaseRegisterCity     = "register:city"
	PhaseRegisterAge      = "register:age"
	PhaseRegisterPhoto    = "register:photo"

	PhaseSelectGender = "matching:select_gender"
)

// StateTTL is the sliding expiry applied on every write. A flow left alone
// for an hour self-clears and the user starts over.
const StateTTL = time.Hour

// State is a user's live flow position: one phase plus the fields collected
// so far. A user has at most one State.
type State struct {
	Phase string         `json:"state"`
	Data  map[string]any `json:"data"`
}

// InRegistration reports whether the state sits anywhere in the onboarding flow.
func (s *State) InRegistration() bool {
	return s != nil && strings.HasPrefix(s.Phase, "register:")
}

// Store persists per-user FSM state in the KV substrate at state:{id}.
type Store struct {
	kv *kv.Store
}

func NewStore(store *kv.Store) *Store {
	return &Store{kv: store}
}

// Get returns the user's state, or nil if there is none. A record past its
// TTL is indistinguishable from an absent one.
func (s *Store) Get(ctx context.Context, userID int64) (*State, error) {
	raw, err := s.kv.Get(ctx, kv.StateKey(userID))
	if kv.IsMiss(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("corrupt fsm state for %d: %w", userID, err)
	}
	if st.Data == nil {
		st.Data = map[string]any{}
	}
	return &st, nil
}

// Set replaces the user's state wholesale and restarts the TTL.
func (s *Store) Set(ctx context.Context, userID int64, phase string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(State{Phase: phase, Data: data})
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, kv.StateKey(userID), raw, StateTTL)
}

// Merge shallow-merges updates into the current state's data: new keys
// override old, untouched keys survive, the phase stays put. A miss is a
// no-op — an expired flow must not be resurrected by a late write.
func (s *Store) Merge(ctx context.Context, userID int64, updates map[string]any) error {
	st, err := s.Get(ctx, userID)
	if err != nil || st == nil {
		return err
	}
	for k, v := range updates {
		st.Data[k] = v
	}
	return s.Set(ctx, userID, st.Phase, st.Data)
}

// Clear drops the user's state.
func (s *Store) Clear(ctx context.Context, userID int64) error {
	return s.kv.Del(ctx, kv.StateKey(userID))
}
