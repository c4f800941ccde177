// Package usecase implements the account synchronization cache: a
// de-duplicated in-memory view of the user's brokerage accounts,
// refreshed from the backend under rate limiting and republished to any
// number of observers as meaningful deltas.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"trading_bridge/internal/feature/accounts/domain/entity"
	"trading_bridge/internal/shared/ratelimiter"
)

const (
	// FetchCooldown is the minimum spacing between backend list
	// fetches unless the caller forces one.
	FetchCooldown = 5 * time.Second

	// subscriberBuffer bounds each observer's event queue. A consumer
	// that falls this far behind starts losing events and is warned.
	subscriberBuffer = 64

	// BrokerInteractiveBrokers marks accounts whose removal goes
	// through the deprovisioning endpoint instead of the generic
	// accounts DELETE.
	BrokerInteractiveBrokers = "interactivebrokers"
)

// BrokerAPI abstracts the backend brokers REST API. Following the
// repo's convention the interface is defined by the consumer; the resty
// implementation lives in adapters.
type BrokerAPI interface {
	// ListAccounts fetches the connected accounts for the current user.
	ListAccounts(ctx context.Context) ([]entity.Account, error)

	// RemoveAccount deletes an account through the generic path.
	RemoveAccount(ctx context.Context, accountID string) error

	// DeprovisionIBAccount tears down an Interactive Brokers account,
	// which runs on a dedicated server and needs its own endpoint.
	DeprovisionIBAccount(ctx context.Context, accountID string) error

	// UpdateNickname patches an account's nickname.
	UpdateNickname(ctx context.Context, accountID, nickname string) error
}

// SnapshotStore persists the cache contents across restarts so a fresh
// process can serve observers before its first fetch. Optional.
type SnapshotStore interface {
	Save(ctx context.Context, accounts []entity.Account) error
	Load(ctx context.Context) ([]entity.Account, error)
}

// Subscription is one observer's handle on the account event stream.
type Subscription struct {
	// C delivers events in publish order. Closed on Cancel.
	C <-chan entity.Event

	cancel func()
}

// Cancel detaches the observer and closes C.
func (s *Subscription) Cancel() {
	s.cancel()
}

// Manager is the process-wide account cache. All mutation happens under
// one mutex; network calls are made outside it.
type Manager struct {
	api       BrokerAPI
	snapshots SnapshotStore
	cooldown  *ratelimiter.Cooldown
	log       *slog.Logger

	mu       sync.Mutex
	accounts map[string]entity.Account
	fetching bool
	subs     map[int]chan entity.Event
	nextSub  int
}

// NewManager creates a Manager. snapshots may be nil to disable warm
// starts.
func NewManager(api BrokerAPI, snapshots SnapshotStore, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		api:       api,
		snapshots: snapshots,
		cooldown:  ratelimiter.NewCooldown(FetchCooldown),
		log:       log,
		accounts:  make(map[string]entity.Account),
		subs:      make(map[int]chan entity.Event),
	}
}

// WarmStart pre-fills an empty cache from the snapshot store. Events
// are not emitted: warm start runs before observers attach, and the
// first real fetch reconciles. Missing store or snapshot is not an
// error.
func (m *Manager) WarmStart(ctx context.Context) {
	if m.snapshots == nil {
		return
	}
	accounts, err := m.snapshots.Load(ctx)
	if err != nil {
		m.log.Warn("account snapshot load failed", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.accounts) > 0 {
		return
	}
	for _, a := range accounts {
		m.accounts[a.AccountID] = a
	}
	if len(accounts) > 0 {
		m.log.Info("account cache warm-started", "accounts", len(accounts))
	}
}

// FetchAccounts refreshes the cache from the backend. A fetch already
// in flight is coalesced, and calls inside the cooldown window serve
// the cached snapshot, unless force is set. A failed fetch propagates
// to the caller and leaves the cache untouched.
func (m *Manager) FetchAccounts(ctx context.Context, force bool) ([]entity.Account, error) {
	m.mu.Lock()
	if !force && m.fetching {
		m.log.Debug("account fetch already in progress")
		accounts := m.snapshotLocked()
		m.mu.Unlock()
		return accounts, nil
	}
	if !force && !m.cooldown.Ready() {
		m.log.Debug("account fetch on cooldown")
		accounts := m.snapshotLocked()
		m.mu.Unlock()
		return accounts, nil
	}
	m.fetching = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.fetching = false
		m.mu.Unlock()
	}()

	fetched, err := m.api.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}
	m.cooldown.Mark()

	m.applyFetched(fetched)
	m.saveSnapshot(ctx)

	m.mu.Lock()
	accounts := m.snapshotLocked()
	m.mu.Unlock()
	return accounts, nil
}

// applyFetched diffs the fresh list against the cache. An existing
// record is replaced (and publishes an update event) only when a
// significant field changed; records absent from the response are
// removed. One trailing bulk event goes out if anything changed.
func (m *Manager) applyFetched(fetched []entity.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []entity.Event

	removals := make(map[string]struct{}, len(m.accounts))
	for id := range m.accounts {
		removals[id] = struct{}{}
	}

	changed := false
	for _, account := range fetched {
		delete(removals, account.AccountID)

		existing, ok := m.accounts[account.AccountID]
		if ok && !existing.SignificantlyDiffers(account) {
			continue
		}
		m.accounts[account.AccountID] = account
		a := account
		events = append(events, entity.Event{Type: entity.EventUpdate, AccountID: account.AccountID, Account: &a})
		changed = true
	}

	for id := range removals {
		delete(m.accounts, id)
		events = append(events, entity.Event{Type: entity.EventRemove, AccountID: id})
		changed = true
	}

	if changed {
		events = append(events, entity.Event{Type: entity.EventBulk, Accounts: m.snapshotLocked()})
	}

	m.publishLocked(events)
}

// Subscribe registers an observer. When the cache is non-empty the new
// observer immediately receives a synthetic bulk snapshot, so late
// subscribers are never left blind waiting for the next change.
func (m *Manager) Subscribe() *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan entity.Event, subscriberBuffer)
	m.subs[id] = ch

	if len(m.accounts) > 0 {
		ch <- entity.Event{Type: entity.EventBulk, Accounts: m.snapshotLocked()}
	}

	return &Subscription{
		C: ch,
		cancel: func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if sub, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(sub)
			}
		},
	}
}

// UpdateAccount merges fields into the cached record and republishes
// both an update and a bulk event. Field keys follow the wire names
// ("nickname", "status", ...); unknown keys land in Extra. Updating an
// id that is not cached is a soft failure: it can legitimately race
// with a remove.
func (m *Manager) UpdateAccount(accountID string, fields map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		m.log.Debug("update for unknown account ignored", "account_id", accountID)
		return false
	}

	known := make(map[string]any, len(fields))
	for k, v := range fields {
		if isKnownAccountField(k) {
			known[k] = v
			continue
		}
		if account.Extra == nil {
			account.Extra = make(map[string]any)
		}
		account.Extra[k] = v
	}
	if len(known) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           &account,
		})
		if err != nil {
			m.log.Error("account patch decoder", "error", err)
			return false
		}
		if err := dec.Decode(known); err != nil {
			m.log.Warn("account patch rejected", "account_id", accountID, "error", err)
			return false
		}
	}

	m.accounts[accountID] = account
	a := account
	m.publishLocked([]entity.Event{
		{Type: entity.EventUpdate, AccountID: accountID, Account: &a},
		{Type: entity.EventBulk, Accounts: m.snapshotLocked()},
	})
	return true
}

// SetNickname patches the nickname on the backend and, on success,
// merges it into the cache.
func (m *Manager) SetNickname(ctx context.Context, accountID, nickname string) error {
	if err := m.api.UpdateNickname(ctx, accountID, nickname); err != nil {
		return fmt.Errorf("update nickname: %w", err)
	}
	m.UpdateAccount(accountID, map[string]any{"nickname": nickname})
	return nil
}

// RemoveAccount deprovisions the account on the backend, choosing the
// broker-specific endpoint where required, then drops the local record
// and republishes remove and bulk events. On API failure the cache
// entry is left untouched and the error propagates.
func (m *Manager) RemoveAccount(ctx context.Context, accountID string) error {
	m.mu.Lock()
	account, ok := m.accounts[accountID]
	m.mu.Unlock()

	var err error
	if ok && account.BrokerID == BrokerInteractiveBrokers {
		err = m.api.DeprovisionIBAccount(ctx, accountID)
	} else {
		err = m.api.RemoveAccount(ctx, accountID)
	}
	if err != nil {
		return fmt.Errorf("remove account %s: %w", accountID, err)
	}

	m.mu.Lock()
	delete(m.accounts, accountID)
	m.publishLocked([]entity.Event{
		{Type: entity.EventRemove, AccountID: accountID},
		{Type: entity.EventBulk, Accounts: m.snapshotLocked()},
	})
	m.mu.Unlock()

	m.saveSnapshot(ctx)
	return nil
}

// Account returns one cached record.
func (m *Manager) Account(accountID string) (entity.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	return a, ok
}

// AllAccounts returns the cache contents sorted by account id.
func (m *Manager) AllAccounts() []entity.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []entity.Account {
	out := make([]entity.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

func (m *Manager) publishLocked(events []entity.Event) {
	for _, ev := range events {
		for id, ch := range m.subs {
			select {
			case ch <- ev:
			default:
				m.log.Warn("account subscriber lagging, event dropped", "subscriber", id, "type", ev.Type)
			}
		}
	}
}

func (m *Manager) saveSnapshot(ctx context.Context) {
	if m.snapshots == nil {
		return
	}
	m.mu.Lock()
	accounts := m.snapshotLocked()
	m.mu.Unlock()
	if err := m.snapshots.Save(ctx, accounts); err != nil {
		m.log.Warn("account snapshot save failed", "error", err)
	}
}

func isKnownAccountField(key string) bool {
	switch key {
	case "account_id", "broker_id", "status", "balance", "is_token_expired", "active", "nickname":
		return true
	}
	return false
}
