// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// Member represents a registered membership identity.
type Member struct {
	ID           int64
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

// MemberSession is an authenticated membership session.
type MemberSession struct {
	Token     string    `json:"-"`
	MemberID  int64     `json:"memberId"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionEvent is published by an identity provider whenever a session
// starts or ends.
type SessionEvent struct {
	Token  string
	Active bool
}

// IdentityProvider is the narrow capability the storefront needs from an
// external identity service.
type IdentityProvider interface {
	CurrentSession(ctx context.Context, token string) (*MemberSession, error)
	OnSessionChange(fn func(SessionEvent)) (unsubscribe func())
	SignIn(ctx context.Context, email, password string) (*MemberSession, error)
	SignUp(ctx context.Context, email, password string) (*MemberSession, error)
	SignOut(ctx context.Context, token string) error
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*MemberSession, error)
}

// MemberRepository defines the port for member persistence operations.
type MemberRepository interface {
	GetByEmail(ctx context.Context, email string) (*Member, error)
	GetByPhone(ctx context.Context, phone string) (*Member, error)
	Create(ctx context.Context, email, phone, passwordHash string) (*Member, error)
}

// SessionRepository defines the port for membership session persistence.
type SessionRepository interface {
	Create(ctx context.Context, memberID int64, token string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*MemberSession, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes sessions that expired before now and returns
	// their tokens.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// OTPRepository stores one pending one-time code per phone number.
type OTPRepository interface {
	PutOTP(ctx context.Context, phone, codeHash string, expiresAt time.Time) error
	TakeOTP(ctx context.Context, phone string) (codeHash string, expiresAt time.Time, err error)
}

// OTPSender delivers a one-time code to a phone number.
type OTPSender interface {
	SendCode(ctx context.Context, phone, code string) error
}
