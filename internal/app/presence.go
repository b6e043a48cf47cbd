package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// SessionBroadcaster fans session events out to registered listeners.
// Identity providers embed it to implement OnSessionChange.
type SessionBroadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(domain.SessionEvent)
}

// OnSessionChange registers fn and returns a func that removes it. The
// returned func is safe to call more than once.
func (b *SessionBroadcaster) OnSessionChange(fn func(domain.SessionEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listeners == nil {
		b.listeners = make(map[int]func(domain.SessionEvent))
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Publish calls every listener synchronously. Listeners are snapshotted
// first so a listener may unsubscribe itself.
func (b *SessionBroadcaster) Publish(ev domain.SessionEvent) {
	b.mu.Lock()
	fns := make([]func(domain.SessionEvent), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Listeners returns the number of registered listeners.
func (b *SessionBroadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Presence reports whether a membership session exists. Provider failures
// degrade to "no session".
type Presence struct {
	provider domain.IdentityProvider
	log      *zap.Logger
	metrics  *metrics.Metrics
}

// NewPresence wraps provider. A nil provider means membership is unavailable
// and every lookup reports false.
func NewPresence(provider domain.IdentityProvider, log *zap.Logger, m *metrics.Metrics) *Presence {
	if log == nil {
		log = zap.NewNop()
	}
	return &Presence{provider: provider, log: log, metrics: m}
}

// Active reports whether token names a live session.
func (p *Presence) Active(ctx context.Context, token string) bool {
	return p.Session(ctx, token) != nil
}

// Session returns the live session for token, or nil when there is none or
// the provider fails.
func (p *Presence) Session(ctx context.Context, token string) *domain.MemberSession {
	if p.provider == nil || token == "" {
		return nil
	}
	sess, err := p.provider.CurrentSession(ctx, token)
	if err != nil {
		p.log.Debug("session lookup failed", zap.Error(err))
		p.metrics.ProviderError("current_session")
		return nil
	}
	return sess
}

// Watch calls fn with the new presence whenever the provider reports a change
// for the session token returns. The returned func releases the
// subscription.
func (p *Presence) Watch(token func() string, fn func(active bool)) (release func()) {
	if p.provider == nil {
		return func() {}
	}
	return p.provider.OnSessionChange(func(ev domain.SessionEvent) {
		if ev.Token == "" || ev.Token != token() {
			return
		}
		fn(ev.Active)
	})
}
