package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// DefaultIdleTTL is how long an untouched client session is kept in memory.
const DefaultIdleTTL = 2 * time.Hour

// ClientSession is the explicit context object for one client: its cart, its
// checkout and its membership presence. It holds a presence subscription
// from creation until Close.
type ClientSession struct {
	ID       string
	Cart     *domain.Cart
	Checkout *Checkout

	presence *Presence
	now      func() time.Time

	mu            sync.Mutex
	memberToken   string
	memberActive  bool
	memberExpires time.Time
	lastSeen      time.Time
	release      func()
	closeOnce    sync.Once
}

// MemberToken returns the membership session token known for this client.
func (cs *ClientSession) MemberToken() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.memberToken
}

// MemberActive reports the current session presence. A session whose expiry
// has passed is not present, even before the provider says so.
func (cs *ClientSession) MemberActive() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.memberActive && !cs.expiredLocked()
}

// NeedsSync reports whether token must be checked with the provider: it
// differs from the known one, or the known session has run past its expiry.
func (cs *ClientSession) NeedsSync(token string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return token != cs.memberToken || (cs.memberActive && cs.expiredLocked())
}

func (cs *ClientSession) expiredLocked() bool {
	return !cs.memberExpires.IsZero() && cs.now().After(cs.memberExpires)
}

// SetMember records a membership token and its presence directly, as after a
// sign-out performed through this client. No expiry is tracked.
func (cs *ClientSession) SetMember(token string, active bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.memberToken = token
	cs.memberActive = active && token != ""
	cs.memberExpires = time.Time{}
}

// SetMemberSession records a session just started through this client.
func (cs *ClientSession) SetMemberSession(session *domain.MemberSession) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.memberToken = session.Token
	cs.memberActive = session.Token != ""
	cs.memberExpires = session.ExpiresAt
}

// SyncMember adopts token and asks the provider whether it is live. Provider
// failures count as no session.
func (cs *ClientSession) SyncMember(ctx context.Context, token string) bool {
	if token == "" {
		cs.SetMember("", false)
		return false
	}

	sess := cs.presence.Session(ctx, token)
	if sess == nil {
		cs.SetMember(token, false)
		return false
	}
	cs.SetMemberSession(&domain.MemberSession{Token: token, ExpiresAt: sess.ExpiresAt})
	return true
}

// Modifiers returns the price modifiers for this client.
func (cs *ClientSession) Modifiers(subscribe bool) domain.PriceModifiers {
	return domain.PriceModifiers{MemberActive: cs.MemberActive(), SubscriptionActive: subscribe}
}

// Close releases the presence subscription and tears the checkout down.
// It is idempotent.
func (cs *ClientSession) Close() {
	cs.closeOnce.Do(func() {
		cs.mu.Lock()
		release := cs.release
		cs.release = nil
		cs.mu.Unlock()
		if release != nil {
			release()
		}
		cs.Checkout.Close()
	})
}

func (cs *ClientSession) touch(now time.Time) {
	cs.mu.Lock()
	cs.lastSeen = now
	cs.mu.Unlock()
}

func (cs *ClientSession) idleSince() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.lastSeen
}

// Storefront owns all client sessions of the process.
type Storefront struct {
	store    domain.KeyValueStore
	presence *Presence
	numbers  *OrderNumbers
	log      *zap.Logger
	metrics  *metrics.Metrics
	idleTTL  time.Duration
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*ClientSession
}

// NewStorefront creates the client session registry. store holds every
// client's OrderState, scoped by client id.
func NewStorefront(store domain.KeyValueStore, presence *Presence, numbers *OrderNumbers, log *zap.Logger, m *metrics.Metrics, idleTTL time.Duration) *Storefront {
	if log == nil {
		log = zap.NewNop()
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if numbers == nil {
		numbers = NewOrderNumbers(DefaultBrandCode)
	}
	if presence == nil {
		presence = NewPresence(nil, log, m)
	}
	return &Storefront{
		store:    store,
		presence: presence,
		numbers:  numbers,
		log:      log,
		metrics:  m,
		idleTTL:  idleTTL,
		now:      time.Now,
		clients:  make(map[string]*ClientSession),
	}
}

// Client returns the session for id, creating and hydrating it on first use.
func (s *Storefront) Client(ctx context.Context, id string) *ClientSession {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cs, ok := s.clients[id]; ok {
		cs.touch(now)
		return cs
	}

	cart := domain.NewCart()
	log := s.log.With(zap.String("client_id", id))
	orders := NewOrderStore(NewScopedStore(s.store, id), log, s.metrics)
	cs := &ClientSession{
		ID:       id,
		Cart:     cart,
		Checkout: NewCheckout(ctx, cart, orders, s.numbers, log, s.metrics),
		presence: s.presence,
		now:      func() time.Time { return s.now() },
		lastSeen: now,
	}
	cs.release = s.presence.Watch(cs.MemberToken, func(active bool) {
		cs.mu.Lock()
		cs.memberActive = active
		cs.mu.Unlock()
	})

	s.clients[id] = cs
	s.metrics.SetActiveClients(len(s.clients))
	return cs
}

// Len returns the number of live client sessions.
func (s *Storefront) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Sweep closes and forgets sessions idle since before now-idleTTL and
// returns how many were evicted.
func (s *Storefront) Sweep(now time.Time) int {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	var evicted []*ClientSession
	for id, cs := range s.clients {
		if cs.idleSince().Before(cutoff) {
			evicted = append(evicted, cs)
			delete(s.clients, id)
		}
	}
	s.metrics.SetActiveClients(len(s.clients))
	s.mu.Unlock()

	for _, cs := range evicted {
		cs.Close()
	}
	if len(evicted) > 0 {
		s.log.Debug("evicted idle clients", zap.Int("count", len(evicted)))
	}
	return len(evicted)
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *Storefront) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.Sweep(now)
		}
	}
}

// Close closes every client session.
func (s *Storefront) Close() {
	s.mu.Lock()
	clients := s.clients
	s.clients = make(map[string]*ClientSession)
	s.metrics.SetActiveClients(0)
	s.mu.Unlock()

	for _, cs := range clients {
		cs.Close()
	}
}

type clientContextKey struct{}

// WithClientSession attaches cs to ctx.
func WithClientSession(ctx context.Context, cs *ClientSession) context.Context {
	return context.WithValue(ctx, clientContextKey{}, cs)
}

// ClientSessionFromContext returns the session attached to ctx, if any.
func ClientSessionFromContext(ctx context.Context) (*ClientSession, bool) {
	cs, ok := ctx.Value(clientContextKey{}).(*ClientSession)
	return cs, ok && cs != nil
}

// MustClientSession returns the session attached to ctx and panics when
// there is none: reaching a cart or checkout outside a client scope is a
// wiring bug.
func MustClientSession(ctx context.Context) *ClientSession {
	cs, ok := ClientSessionFromContext(ctx)
	if !ok {
		panic("app: MustClientSession called outside a client session scope")
	}
	return cs
}
