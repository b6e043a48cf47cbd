// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/domain"
)

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrMemberExists indicates a sign-up for an email that is already registered.
	ErrMemberExists = errors.New("member already exists")
	// ErrInvalidOTP indicates a missing, wrong or expired one-time code.
	ErrInvalidOTP = errors.New("invalid or expired code")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrInvalidEmail indicates an unparseable email address.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidPhone indicates a phone number with no digits.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrUnsupported indicates the identity provider does not offer the operation.
	ErrUnsupported = errors.New("operation not supported by identity provider")
)

const (
	minPasswordLen = 8
	otpDigits      = 6
)

// AuthConfig tunes MemberAuth.
type AuthConfig struct {
	SessionTTL time.Duration
	OTPTTL     time.Duration
}

// MemberAuth is the built-in identity provider: email/password and SMS
// one-time-code membership backed by the member, session and OTP
// repositories.
type MemberAuth struct {
	SessionBroadcaster

	members  domain.MemberRepository
	sessions domain.SessionRepository
	otps     domain.OTPRepository
	sender   domain.OTPSender
	cfg      AuthConfig
	log      *zap.Logger
	now      func() time.Time
}

var _ domain.IdentityProvider = (*MemberAuth)(nil)

// NewMemberAuth creates the built-in identity provider.
func NewMemberAuth(members domain.MemberRepository, sessions domain.SessionRepository, otps domain.OTPRepository, sender domain.OTPSender, cfg AuthConfig, log *zap.Logger) *MemberAuth {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MemberAuth{
		members:  members,
		sessions: sessions,
		otps:     otps,
		sender:   sender,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// CurrentSession returns the live session for token.
func (s *MemberAuth) CurrentSession(ctx context.Context, token string) (*domain.MemberSession, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		s.Publish(domain.SessionEvent{Token: token, Active: false})
		return nil, ErrSessionExpired
	}
	return session, nil
}

// SignIn authenticates with email and password and starts a session.
func (s *MemberAuth) SignIn(ctx context.Context, email, password string) (*domain.MemberSession, error) {
	member, err := s.members.GetByEmail(ctx, normalizeEmail(email))
	if err != nil || member == nil || member.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, member)
}

// SignUp registers a new member and signs them in.
func (s *MemberAuth) SignUp(ctx context.Context, email, password string) (*domain.MemberSession, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}

	existing, err := s.members.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	if existing != nil {
		return nil, ErrMemberExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	member, err := s.members.Create(ctx, email, "", string(hash))
	if err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	s.log.Info("member signed up", zap.Int64("member_id", member.ID))
	return s.startSession(ctx, member)
}

// SignOut ends the session for token.
func (s *MemberAuth) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return err
	}
	s.Publish(domain.SessionEvent{Token: token, Active: false})
	return nil
}

// SendOTP issues a one-time code for phone and hands it to the sender.
func (s *MemberAuth) SendOTP(ctx context.Context, phone string) error {
	phone = NormalizeJapanesePhone(phone)
	if phone == "" {
		return ErrInvalidPhone
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.otps.PutOTP(ctx, phone, string(hash), s.now().Add(s.cfg.OTPTTL)); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return s.sender.SendCode(ctx, phone, code)
}

// VerifyOTP checks code for phone, registering the phone as a member on first
// use, and starts a session. A code can be tried once.
func (s *MemberAuth) VerifyOTP(ctx context.Context, phone, code string) (*domain.MemberSession, error) {
	phone = NormalizeJapanesePhone(phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	hash, expiresAt, err := s.otps.TakeOTP(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}
	if hash == "" || s.now().After(expiresAt) {
		return nil, ErrInvalidOTP
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(code))); err != nil {
		return nil, ErrInvalidOTP
	}

	member, err := s.members.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("lookup member: %w", err)
	}
	if member == nil {
		member, err = s.members.Create(ctx, "", phone, "")
		if err != nil {
			// Try getting again if creation lost a race on the unique phone.
			member, err = s.members.GetByPhone(ctx, phone)
			if err != nil || member == nil {
				return nil, fmt.Errorf("create member: %w", err)
			}
		}
	}
	return s.startSession(ctx, member)
}

// PurgeExpired removes expired sessions and announces each one as ended.
func (s *MemberAuth) PurgeExpired(ctx context.Context) error {
	tokens, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	for _, token := range tokens {
		s.Publish(domain.SessionEvent{Token: token, Active: false})
	}
	if len(tokens) > 0 {
		s.log.Debug("purged expired sessions", zap.Int("count", len(tokens)))
	}
	return nil
}

func (s *MemberAuth) startSession(ctx context.Context, member *domain.Member) (*domain.MemberSession, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.cfg.SessionTTL)
	if err := s.sessions.Create(ctx, member.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	subject := member.Email
	if subject == "" {
		subject = member.Phone
	}
	session := &domain.MemberSession{Token: token, MemberID: member.ID, Subject: subject, ExpiresAt: expiresAt}
	s.Publish(domain.SessionEvent{Token: token, Active: true})
	return session, nil
}

// NormalizeJapanesePhone turns a domestic number into E.164 (+81…) form:
// non-digits are dropped along with one leading zero. Input that already
// carries the 81 country code keeps it. No digits yields "".
func NormalizeJapanesePhone(v string) string {
	trimmed := strings.TrimSpace(v)
	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+81") {
		d = strings.TrimPrefix(d, "81")
	}
	d = strings.TrimPrefix(d, "0")
	return "+81" + d
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func generateOTP() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// LogOTPSender writes codes to the log instead of sending an SMS. It is meant
// for development setups without an SMS gateway.
type LogOTPSender struct {
	Log *zap.Logger
}

// SendCode implements domain.OTPSender.
func (l LogOTPSender) SendCode(_ context.Context, phone, code string) error {
	log := l.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("one-time code issued", zap.String("phone", phone), zap.String("code", code))
	return nil
}
