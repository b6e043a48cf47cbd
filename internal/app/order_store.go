package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

var errNullOrderState = errors.New("order state is null")

// ScopedStore prefixes every key with a client scope so many clients can
// share one backing store.
type ScopedStore struct {
	store domain.KeyValueStore
	scope string
}

// NewScopedStore wraps store under scope.
func NewScopedStore(store domain.KeyValueStore, scope string) *ScopedStore {
	return &ScopedStore{store: store, scope: scope}
}

func (s *ScopedStore) key(k string) string {
	return s.scope + ":" + k
}

// Get implements domain.KeyValueStore.
func (s *ScopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.key(key))
}

// Set implements domain.KeyValueStore.
func (s *ScopedStore) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.key(key), value)
}

// OrderStore persists OrderState as JSON under domain.OrderStateKey.
// Failures never reach the caller: loads fall back to the default state and
// saves are logged and dropped.
type OrderStore struct {
	store   domain.KeyValueStore
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewOrderStore creates an OrderStore over store.
func NewOrderStore(store domain.KeyValueStore, log *zap.Logger, m *metrics.Metrics) *OrderStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderStore{store: store, log: log, metrics: m}
}

// Load reads the stored state, or the default state if it is absent,
// unreadable or malformed.
func (s *OrderStore) Load(ctx context.Context) domain.OrderState {
	raw, ok, err := s.store.Get(ctx, domain.OrderStateKey)
	if err != nil {
		s.log.Warn("load order state", zap.Error(err))
		s.metrics.StorageError("load")
		return domain.DefaultOrderState()
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.DefaultOrderState()
	}

	state, err := DecodeOrderState(raw)
	if err != nil {
		s.log.Warn("failed to parse order state", zap.Error(err))
		s.metrics.StorageError("decode")
		return domain.DefaultOrderState()
	}
	return state
}

// Save writes state. Errors are logged only.
func (s *OrderStore) Save(ctx context.Context, state domain.OrderState) {
	raw, err := EncodeOrderState(state)
	if err != nil {
		s.log.Error("encode order state", zap.Error(err))
		s.metrics.StorageError("encode")
		return
	}
	if err := s.store.Set(ctx, domain.OrderStateKey, raw); err != nil {
		s.log.Warn("save order state", zap.Error(err))
		s.metrics.StorageError("save")
	}
}

// EncodeOrderState serializes state in its storage format.
func EncodeOrderState(state domain.OrderState) (string, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeOrderState parses the storage format. A JSON null or a non-object
// is rejected.
func DecodeOrderState(raw string) (domain.OrderState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return domain.OrderState{}, err
	}
	if fields == nil {
		return domain.OrderState{}, errNullOrderState
	}

	state := domain.DefaultOrderState()
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return domain.OrderState{}, err
	}
	return state, nil
}
