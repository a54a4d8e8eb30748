// Package session issues and validates game-session tokens and keeps
// a cached snapshot of each session on the substrate with a sliding
// TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"spinhub/internal/cache"
	"spinhub/internal/store"
	"spinhub/internal/wallet"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrGameNotAllowed = errors.New("game not allowed")
	ErrInvalidMode    = errors.New("invalid mode")
)

// Store is the repository slice the manager needs.
type Store interface {
	InsertSession(ctx context.Context, gs *store.GameSession) error
	GetSession(ctx context.Context, token string) (*store.GameSession, error)
	TouchSession(ctx context.Context, token string) error
	UpdateSessionBalance(ctx context.Context, token string, balance decimal.Decimal, stale bool) error
	SetSessionStatus(ctx context.Context, token string, status store.SessionStatus) error
	EnsurePlayer(ctx context.Context, ownerID, playerID string, initial decimal.Decimal) error
}

type Manager struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(st Store, c cache.Cache, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: st, cache: c, ttl: ttl, now: time.Now}
}

type CreateParams struct {
	Agent          *store.Agent    // exactly one of Agent/Operator set
	Operator       *store.Operator
	PlayerID       string
	GameCode       string
	Currency       string
	Mode           store.SessionMode
	InitialBalance decimal.Decimal // local-wallet sessions only
}

// Create opens a session. GameNotAllowed applies the agent's
// allowed-games set; an empty set allows everything.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*store.GameSession, error) {
	if p.Mode != store.ModeReal && p.Mode != store.ModeDemo {
		return nil, ErrInvalidMode
	}
	if p.Currency == "" {
		return nil, ErrInvalidMode
	}

	gs := &store.GameSession{
		Token:    store.NewSessionToken(),
		PlayerID: p.PlayerID,
		GameCode: p.GameCode,
		Currency: p.Currency,
		Mode:     p.Mode,
		Balance:  p.InitialBalance,
		Status:   store.SessionActive,
	}
	switch {
	case p.Agent != nil:
		if !gameAllowed(p.Agent.AllowedGames, p.GameCode) {
			return nil, ErrGameNotAllowed
		}
		gs.AgentID = p.Agent.ID
		if p.Agent.UseLocalBalance {
			if err := m.store.EnsurePlayer(ctx, p.Agent.ID, p.PlayerID, p.InitialBalance); err != nil {
				return nil, err
			}
		}
	case p.Operator != nil:
		gs.OperatorID = p.Operator.ID
		if !p.Operator.Remote() {
			if err := m.store.EnsurePlayer(ctx, p.Operator.ID, p.PlayerID, p.InitialBalance); err != nil {
				return nil, err
			}
		}
	default:
		return nil, ErrInvalidSession
	}

	if err := m.store.InsertSession(ctx, gs); err != nil {
		return nil, err
	}
	m.cacheSnapshot(ctx, gs)
	return gs, nil
}

// Validate resolves a token and refreshes the sliding TTL. Closed and
// TTL-expired sessions fail with InvalidSession.
func (m *Manager) Validate(ctx context.Context, token string) (*store.GameSession, error) {
	if gs := m.cachedSnapshot(ctx, token); gs != nil {
		if gs.Status != store.SessionActive {
			return nil, ErrInvalidSession
		}
		m.cacheSnapshot(ctx, gs) // slide the TTL
		return gs, nil
	}

	gs, err := m.store.GetSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if gs.Status != store.SessionActive {
		return nil, ErrInvalidSession
	}
	if m.now().Sub(gs.UpdatedAt) > m.ttl {
		// Expired by inactivity; record it and refuse.
		if err := m.store.SetSessionStatus(ctx, token, store.SessionExpired); err != nil {
			log.Warn().Err(err).Str("token", token).Msg("mark session expired failed")
		}
		return nil, ErrInvalidSession
	}
	if err := m.store.TouchSession(ctx, token); err != nil {
		log.Warn().Err(err).Str("token", token).Msg("touch session failed")
	}
	m.cacheSnapshot(ctx, gs)
	return gs, nil
}

// Balance reads through the wallet adapter. When the remote wallet is
// unreachable the last snapshot is served and the session flagged
// stale instead of failing the request.
func (m *Manager) Balance(ctx context.Context, gs *store.GameSession, adapter wallet.Adapter) (decimal.Decimal, bool, error) {
	bal, err := adapter.Balance(ctx, wallet.RefFor(gs))
	if err != nil {
		if errors.Is(err, wallet.ErrRemoteTimeout) || errors.Is(err, wallet.ErrRemoteRejected) {
			log.Warn().Err(err).Str("token", gs.Token).Msg("remote balance unavailable, serving snapshot")
			gs.BalanceStale = true
			if uerr := m.store.UpdateSessionBalance(ctx, gs.Token, gs.Balance, true); uerr != nil {
				log.Warn().Err(uerr).Msg("flag stale balance failed")
			}
			m.cacheSnapshot(ctx, gs)
			return gs.Balance, true, nil
		}
		return decimal.Zero, false, err
	}
	gs.Balance = bal
	gs.BalanceStale = false
	if err := m.store.UpdateSessionBalance(ctx, gs.Token, bal, false); err != nil {
		log.Warn().Err(err).Msg("persist balance snapshot failed")
	}
	m.cacheSnapshot(ctx, gs)
	return bal, false, nil
}

// SyncBalance records a balance the settlement pipeline just learned.
func (m *Manager) SyncBalance(ctx context.Context, gs *store.GameSession, balance decimal.Decimal) {
	gs.Balance = balance
	gs.BalanceStale = false
	if err := m.store.UpdateSessionBalance(ctx, gs.Token, balance, false); err != nil {
		log.Warn().Err(err).Str("token", gs.Token).Msg("persist balance snapshot failed")
	}
	m.cacheSnapshot(ctx, gs)
}

func (m *Manager) Close(ctx context.Context, token string) error {
	if err := m.store.SetSessionStatus(ctx, token, store.SessionClosed); err != nil {
		return err
	}
	return m.cache.Delete(ctx, cache.SessionKey(token))
}

func (m *Manager) cacheSnapshot(ctx context.Context, gs *store.GameSession) {
	b, err := json.Marshal(gs)
	if err != nil {
		return
	}
	if err := m.cache.Set(ctx, cache.SessionKey(gs.Token), b, m.ttl); err != nil {
		log.Debug().Err(err).Msg("session snapshot cache write failed")
	}
}

func (m *Manager) cachedSnapshot(ctx context.Context, token string) *store.GameSession {
	b, err := m.cache.Get(ctx, cache.SessionKey(token))
	if err != nil {
		return nil
	}
	var gs store.GameSession
	if json.Unmarshal(b, &gs) != nil {
		return nil
	}
	return &gs
}

func gameAllowed(allowed []string, gameCode string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, g := range allowed {
		if g == gameCode {
			return true
		}
	}
	return false
}
