// Package oidc adapts an external OpenID Connect provider to the storefront's
// identity provider port.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"storefront/internal/app"
	"storefront/internal/domain"
)

// Config describes the OIDC client registration.
type Config struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Provider verifies ID tokens issued by the external provider and keeps an
// opaque storefront session per verified token.
type Provider struct {
	app.SessionBroadcaster

	oauth2   oauth2.Config
	verifier *oidc.IDTokenVerifier
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]domain.MemberSession
}

var _ domain.IdentityProvider = (*Provider)(nil)

// New discovers the issuer and builds a Provider.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Provider, error) {
	p, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	oc := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     p.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return NewWithVerifier(oc, p.Verifier(&oidc.Config{ClientID: cfg.ClientID}), log), nil
}

// NewWithVerifier builds a Provider from an already configured client and
// verifier.
func NewWithVerifier(oc oauth2.Config, verifier *oidc.IDTokenVerifier, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		oauth2:   oc,
		verifier: verifier,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]domain.MemberSession),
	}
}

// AuthCodeURL returns the provider login URL for the authorization-code flow.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// Exchange completes the authorization-code flow and starts a session.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.MemberSession, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return p.sessionFromToken(ctx, token)
}

// CurrentSession returns the session for token if it has not expired.
func (p *Provider) CurrentSession(_ context.Context, token string) (*domain.MemberSession, error) {
	p.mu.Lock()
	s, ok := p.sessions[token]
	expired := ok && p.now().After(s.ExpiresAt)
	if expired {
		delete(p.sessions, token)
	}
	p.mu.Unlock()

	if !ok {
		return nil, app.ErrSessionNotFound
	}
	if expired {
		p.Publish(domain.SessionEvent{Token: token, Active: false})
		return nil, app.ErrSessionExpired
	}
	return &s, nil
}

// SignIn uses the resource-owner password grant. Providers that disable the
// grant answer with an error, which is reported as invalid credentials.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.MemberSession, error) {
	token, err := p.oauth2.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		p.log.Debug("password grant failed", zap.Error(err))
		return nil, app.ErrInvalidCredentials
	}
	return p.sessionFromToken(ctx, token)
}

// SignUp is handled by the external provider's own registration pages.
func (p *Provider) SignUp(context.Context, string, string) (*domain.MemberSession, error) {
	return nil, app.ErrUnsupported
}

// SendOTP is not offered through OIDC.
func (p *Provider) SendOTP(context.Context, string) error {
	return app.ErrUnsupported
}

// VerifyOTP is not offered through OIDC.
func (p *Provider) VerifyOTP(context.Context, string, string) (*domain.MemberSession, error) {
	return nil, app.ErrUnsupported
}

// SignOut forgets the session.
func (p *Provider) SignOut(_ context.Context, token string) error {
	p.mu.Lock()
	_, ok := p.sessions[token]
	delete(p.sessions, token)
	p.mu.Unlock()

	if ok {
		p.Publish(domain.SessionEvent{Token: token, Active: false})
	}
	return nil
}

// PurgeExpired forgets sessions whose ID token has expired and announces
// each one as ended.
func (p *Provider) PurgeExpired(context.Context) error {
	now := p.now()
	var ended []string
	p.mu.Lock()
	for token, s := range p.sessions {
		if now.After(s.ExpiresAt) {
			delete(p.sessions, token)
			ended = append(ended, token)
		}
	}
	p.mu.Unlock()

	for _, token := range ended {
		p.Publish(domain.SessionEvent{Token: token, Active: false})
	}
	return nil
}

func (p *Provider) sessionFromToken(ctx context.Context, token *oauth2.Token) (*domain.MemberSession, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Sub   string `json:"sub"`
	}
	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}

	subject := claims.Email
	if subject == "" {
		subject = claims.Sub
	}

	opaque, err := newToken()
	if err != nil {
		return nil, err
	}
	s := domain.MemberSession{Token: opaque, Subject: subject, ExpiresAt: idToken.Expiry}

	p.mu.Lock()
	p.sessions[opaque] = s
	p.mu.Unlock()

	p.Publish(domain.SessionEvent{Token: opaque, Active: true})
	return &s, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
