// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	kv       map[string]string
	members  []*domain.Member
	sessions map[string]*domain.MemberSession
	otps     map[string]otpEntry

	memberIDCounter int64
}

type otpEntry struct {
	hash      string
	expiresAt time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		kv:       make(map[string]string),
		sessions: make(map[string]*domain.MemberSession),
		otps:     make(map[string]otpEntry),
	}
}

// Ensure interfaces are met.
var _ domain.KeyValueStore = (*DB)(nil)
var _ domain.MemberRepository = (*DB)(nil)
var _ domain.OTPRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- KeyValueStore ---

// Get returns the value stored under key.
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := db.kv[key]
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.kv[key] = value
	return nil
}

// --- MemberRepository ---

// GetByEmail retrieves a member by email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if email == "" {
		return nil, nil
	}
	for _, m := range db.members {
		if m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByPhone retrieves a member by phone number.
func (db *DB) GetByPhone(ctx context.Context, phone string) (*domain.Member, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if phone == "" {
		return nil, nil
	}
	for _, m := range db.members {
		if m.Phone == phone {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

// Create creates a new member. Email and phone are unique when set.
func (db *DB) Create(ctx context.Context, email, phone, passwordHash string) (*domain.Member, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, m := range db.members {
		if (email != "" && m.Email == email) || (phone != "" && m.Phone == phone) {
			return nil, errors.New("member already exists")
		}
	}

	db.memberIDCounter++
	m := &domain.Member{
		ID:           db.memberIDCounter,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.members = append(db.members, m)
	cp := *m
	return &cp, nil
}

// --- OTPRepository ---

// PutOTP replaces the pending code for phone.
func (db *DB) PutOTP(ctx context.Context, phone, codeHash string, expiresAt time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.otps[phone] = otpEntry{hash: codeHash, expiresAt: expiresAt}
	return nil
}

// TakeOTP returns and removes the pending code for phone. No code yields an
// empty hash.
func (db *DB) TakeOTP(ctx context.Context, phone string) (string, time.Time, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e, ok := db.otps[phone]
	if !ok {
		return "", time.Time{}, nil
	}
	delete(db.otps, phone)
	return e.hash, e.expiresAt, nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, memberID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	subject := ""
	for _, m := range r.db.members {
		if m.ID == memberID {
			subject = m.Email
			if subject == "" {
				subject = m.Phone
			}
		}
	}
	r.db.sessions[token] = &domain.MemberSession{
		Token:     token,
		MemberID:  memberID,
		Subject:   subject,
		ExpiresAt: expiresAt,
	}
	return nil
}

// GetByToken retrieves a session by token. Expiry is left to the caller.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.MemberSession, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes sessions that expired before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var tokens []string
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
			tokens = append(tokens, k)
		}
	}
	return tokens, nil
}
